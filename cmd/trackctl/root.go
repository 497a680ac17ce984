package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/config"
	"github.com/light-bringer/worktrack-service/internal/pkg/logging"
	"github.com/light-bringer/worktrack-service/internal/services"
)

var (
	svc      *services.ServiceOptions
	identity string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "trackctl",
	Short: "trackctl tracks work-order unit status against the ledger",
	Long: `trackctl creates work orders, reads their unit status and records
status changes. Configuration comes from the environment (and an optional .env).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if identity == "" {
			identity = cfg.ActingIdentity
		}

		logger := logging.NewNop()
		if verbose {
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger = logging.New(level, "text")
		}

		svc, err = services.NewServiceOptions(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return svc.Ledger.Connect(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if svc != nil {
			svc.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&identity, "identity", "", "Acting identity for writes (default $ACTING_IDENTITY)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(createCmd, showCmd, setStatusCmd, completeCmd, listCmd, eventsCmd)
}

func callOptions() contracts.CallOptions {
	return contracts.CallOptions{ActingIdentity: identity}
}
