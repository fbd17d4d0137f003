package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/chatkeep/internal/config"
	"github.com/ashureev/chatkeep/internal/conversation"
	"github.com/ashureev/chatkeep/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	ownerID string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Inspect and repair chatkeep session storage",
	Long: `Operator tool for the chatkeep session store.

It reads the same environment (or .env file) as the server and talks to the
configured database directly.

Examples:
  chatctl list --owner user_123            # List a user's sessions
  chatctl show <session-id> --owner user_123
  chatctl export <session-id> --owner user_123 --format yaml
  chatctl reindex --all                    # Rebuild missing index entries
  chatctl token --user user_123            # Mint a bearer token`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "", "Owner (user) id")
}

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load()
}

// openService connects to the configured store. Unlike the server, the CLI
// gives up when the store is unreachable.
func openService(ctx context.Context) (*conversation.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	repo, err := store.Open(ctx, cfg)
	if err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	cleanup := func() {
		if err := repo.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}
	return conversation.NewService(repo, repo, slog.Default()), cleanup, nil
}

func requireOwner() error {
	if ownerID == "" {
		return fmt.Errorf("--owner is required")
	}
	return nil
}
