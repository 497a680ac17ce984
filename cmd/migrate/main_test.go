package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDBPath(t *testing.T) {
	p, err := parseDBPath("projects/test-project/instances/dev/databases/worktrack")
	require.NoError(t, err)
	assert.Equal(t, dbPath{Project: "test-project", Instance: "dev", Database: "worktrack"}, p)
	assert.Equal(t, "projects/test-project/instances/dev", p.instanceName())
	assert.Equal(t, "projects/test-project/instances/dev/databases/worktrack", p.String())

	_, err = parseDBPath("worktrack")
	assert.Error(t, err)
}

func TestSplitDDLStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (
  id STRING(36) NOT NULL,
) PRIMARY KEY (id);

CREATE INDEX idx_a ON a(id);
`
	stmts := splitDDLStatements(content)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (\nid STRING(36) NOT NULL,\n) PRIMARY KEY (id)", stmts[0])
	assert.Equal(t, "CREATE INDEX idx_a ON a(id)", stmts[1])
}

func TestCreatedObject(t *testing.T) {
	assert.Equal(t, "table:products", createdObject("CREATE TABLE products (x INT64) PRIMARY KEY (x)"))
	assert.Equal(t, "index:idx_x", createdObject("create unique null_filtered index idx_x ON t(x)"))
	assert.Empty(t, createdObject("ALTER TABLE products ADD COLUMN y INT64"))
}

func TestPendingStatements(t *testing.T) {
	existing := existingObjects([]string{"CREATE TABLE products (\n  internal_po STRING(64) NOT NULL,\n) PRIMARY KEY(internal_po)"})
	stmts := []string{
		"CREATE TABLE products (internal_po STRING(64) NOT NULL) PRIMARY KEY (internal_po)",
		"CREATE TABLE product_units (internal_po STRING(64) NOT NULL) PRIMARY KEY (internal_po)",
		"ALTER TABLE products ADD COLUMN note STRING(MAX)",
	}
	got := pendingStatements(stmts, existing)
	assert.Equal(t, stmts[1:], got)
}

func TestMigrationFilesParse(t *testing.T) {
	for _, file := range []string{"../../migrations/001_ledger.sql", "../../migrations/002_outbox.sql"} {
		content, err := os.ReadFile(file)
		require.NoError(t, err, file)
		stmts := splitDDLStatements(string(content))
		require.NotEmpty(t, stmts, file)
		assert.NotEmpty(t, createdObject(stmts[0]), file)
	}
}
