package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"github.com/joho/godotenv"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/worktrack-service/internal/config"
	"github.com/light-bringer/worktrack-service/internal/pkg/logging"
)

// dbPath identifies a Spanner database.
type dbPath struct {
	Project  string
	Instance string
	Database string
}

func (p dbPath) instanceName() string {
	return fmt.Sprintf("projects/%s/instances/%s", p.Project, p.Instance)
}

func (p dbPath) String() string {
	return fmt.Sprintf("%s/databases/%s", p.instanceName(), p.Database)
}

var dbPathPattern = regexp.MustCompile(`^projects/([^/]+)/instances/([^/]+)/databases/([^/]+)$`)

func parseDBPath(raw string) (dbPath, error) {
	m := dbPathPattern.FindStringSubmatch(raw)
	if m == nil {
		return dbPath{}, fmt.Errorf("invalid database path %q, want projects/P/instances/I/databases/D", raw)
	}
	return dbPath{Project: m[1], Instance: m[2], Database: m[3]}, nil
}

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("invalid log level", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(level, cfg.LogFormat)

	dbFlag := flag.String("database", cfg.SpannerDatabase, "Spanner database (projects/P/instances/I/databases/D)")
	migrateDir := flag.String("migrations", "migrations", "Directory containing migration SQL files")
	flag.Parse()

	path, err := parseDBPath(*dbFlag)
	if err != nil {
		logger.Error("bad database flag", slog.Any("error", err))
		os.Exit(1)
	}

	emulator := os.Getenv("SPANNER_EMULATOR_HOST")
	if emulator != "" {
		logger.Info("using spanner emulator", slog.String("host", emulator))
	}

	m := &migrator{path: path, dir: *migrateDir, emulator: emulator != "", logger: logger}
	if err := m.run(context.Background()); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations completed", slog.String("database", path.String()))
}

type migrator struct {
	path     dbPath
	dir      string
	emulator bool
	logger   *slog.Logger
}

func (m *migrator) run(ctx context.Context) error {
	if m.emulator {
		if err := m.ensureInstance(ctx); err != nil {
			return fmt.Errorf("failed to ensure instance: %w", err)
		}
	}

	admin, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	if err := m.ensureDatabase(ctx, admin); err != nil {
		return fmt.Errorf("failed to ensure database: %w", err)
	}
	return m.applyMigrations(ctx, admin)
}

// ensureInstance creates the instance on the emulator. Real instances are
// provisioned outside this tool.
func (m *migrator) ensureInstance(ctx context.Context) error {
	admin, err := instance.NewInstanceAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create instance admin client: %w", err)
	}
	defer admin.Close()

	_, err = admin.GetInstance(ctx, &instancepb.GetInstanceRequest{Name: m.path.instanceName()})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return err
	}

	m.logger.Info("creating instance", slog.String("instance", m.path.Instance))
	op, err := admin.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
		Parent:     "projects/" + m.path.Project,
		InstanceId: m.path.Instance,
		Instance: &instancepb.Instance{
			Config:      fmt.Sprintf("projects/%s/instanceConfigs/emulator-config", m.path.Project),
			DisplayName: "worktrack dev",
			NodeCount:   1,
		},
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil && status.Code(err) != codes.AlreadyExists {
		m.logger.Warn("instance creation did not report completion", slog.Any("error", err))
	}
	return nil
}

func (m *migrator) ensureDatabase(ctx context.Context, admin *database.DatabaseAdminClient) error {
	_, err := admin.GetDatabase(ctx, &databasepb.GetDatabaseRequest{Name: m.path.String()})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to check database: %w", err)
	}

	m.logger.Info("creating database", slog.String("database", m.path.Database))
	op, err := admin.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
		Parent:          m.path.instanceName(),
		CreateStatement: fmt.Sprintf("CREATE DATABASE `%s`", m.path.Database),
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for database creation: %w", err)
	}
	return nil
}

func (m *migrator) applyMigrations(ctx context.Context, admin *database.DatabaseAdminClient) error {
	files, err := filepath.Glob(filepath.Join(m.dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migration files: %w", err)
	}
	if len(files) == 0 {
		m.logger.Warn("no migration files found", slog.String("dir", m.dir))
		return nil
	}

	current, err := admin.GetDatabaseDdl(ctx, &databasepb.GetDatabaseDdlRequest{Database: m.path.String()})
	if err != nil {
		return fmt.Errorf("failed to read current schema: %w", err)
	}
	existing := existingObjects(current.GetStatements())

	for _, file := range files {
		name := filepath.Base(file)
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		statements := pendingStatements(splitDDLStatements(string(content)), existing)
		if len(statements) == 0 {
			m.logger.Info("migration already applied", slog.String("file", name))
			continue
		}

		op, err := admin.UpdateDatabaseDdl(ctx, &databasepb.UpdateDatabaseDdlRequest{
			Database:   m.path.String(),
			Statements: statements,
		})
		if err != nil {
			return fmt.Errorf("failed to start DDL update for %s: %w", name, err)
		}
		if err := op.Wait(ctx); err != nil {
			return fmt.Errorf("failed to apply DDL for %s: %w", name, err)
		}
		for _, stmt := range statements {
			if obj := createdObject(stmt); obj != "" {
				existing[obj] = true
			}
		}
		m.logger.Info("migration applied", slog.String("file", name), slog.Int("statements", len(statements)))
	}
	return nil
}

// splitDDLStatements drops comment lines and splits on semicolons.
func splitDDLStatements(content string) []string {
	var cleaned []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var out []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

var createPattern = regexp.MustCompile(`(?i)^CREATE\s+(?:UNIQUE\s+|NULL_FILTERED\s+)*(TABLE|INDEX)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// createdObject returns "table:name" or "index:name" for CREATE statements.
func createdObject(stmt string) string {
	m := createPattern.FindStringSubmatch(strings.TrimSpace(stmt))
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1]) + ":" + strings.ToLower(m[2])
}

func existingObjects(ddl []string) map[string]bool {
	out := make(map[string]bool, len(ddl))
	for _, stmt := range ddl {
		if obj := createdObject(stmt); obj != "" {
			out[obj] = true
		}
	}
	return out
}

// pendingStatements skips CREATE statements for objects that already exist,
// so re-running the tool against a migrated database is a no-op.
func pendingStatements(statements []string, existing map[string]bool) []string {
	var out []string
	for _, stmt := range statements {
		if obj := createdObject(stmt); obj != "" && existing[obj] {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
