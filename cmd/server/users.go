package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fonpesca/alertbot/internal/domain"
	"github.com/fonpesca/alertbot/internal/identity"
	"github.com/spf13/cobra"
)

var (
	userCedula string
	userName   string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage authorized reporters",
}

var usersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Authorize a reporter or rename an existing one",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cedula, ok := identity.Normalize(userCedula)
		if !ok {
			return fmt.Errorf("invalid cedula %q: digits only", userCedula)
		}
		name := strings.TrimSpace(userName)
		if name == "" {
			return fmt.Errorf("--nombre is required")
		}

		ctx := cmd.Context()
		repo, err := openStore(ctx, cfg.Database.AutoMigrate)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()

		if err := repo.UpsertIdentity(ctx, domain.Identity{Cedula: cedula, DisplayName: name}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "authorized %s (%s)\n", name, cedula)
		return nil
	},
}

func init() {
	usersAddCmd.Flags().StringVar(&userCedula, "cedula", "", "Reporter cédula (digits)")
	usersAddCmd.Flags().StringVar(&userName, "nombre", "", "Reporter display name")
	_ = usersAddCmd.MarkFlagRequired("cedula")
	_ = usersAddCmd.MarkFlagRequired("nombre")
	usersCmd.AddCommand(usersAddCmd)
}
