// FONPESCA early-warning report bot server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fonpesca/alertbot/internal/config"
	"github.com/fonpesca/alertbot/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "alertbot",
	Short: "Early-warning incident report bot",
	Long: `alertbot runs the FONPESCA early-warning report conversation over
Telegram and the browser chat, and stores confirmed reports.

Examples:
  alertbot serve                                   # Run the bot and HTTP server
  alertbot migrate                                 # Apply database migrations
  alertbot users add --cedula 12345678 --nombre "María González"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil {
			slog.Info("No .env file found, using environment variables")
		}

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(usersCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openStore connects to the configured database and verifies it.
func openStore(ctx context.Context, migrate bool) (*store.SQLStore, error) {
	repo, err := store.Open(ctx, store.Dialect(cfg.Database.Driver), cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	slog.Info("Database connected", "driver", cfg.Database.Driver)

	if migrate {
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
	}
	return repo, nil
}
