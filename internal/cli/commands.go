package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/geocoder89/changepassword/internal/auth"
	"github.com/geocoder89/changepassword/internal/db"
	"github.com/geocoder89/changepassword/internal/security"
	"github.com/spf13/cobra"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.migrate(cmd.Context(), e.cfg.DBURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSeedAdminCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, release, err := e.open(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}
			defer release()

			created, err := db.EnsureAdminUser(cmd.Context(), store, e.cfg)
			if err != nil {
				return err
			}

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", e.cfg.AdminUsername)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q already present\n", e.cfg.AdminUsername)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&e.cfg.AdminUsername, "username", e.cfg.AdminUsername, "Admin username")
	cmd.Flags().StringVar(&e.cfg.AdminEmail, "email", e.cfg.AdminEmail, "Admin email")
	cmd.Flags().StringVar(&e.cfg.AdminPassword, "password", e.cfg.AdminPassword, "Admin password")

	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}

			hash, err := security.HashPassword(strings.TrimRight(string(raw), "\r\n"))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newCreateTokenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "create-token <username>",
		Short: "Issue an access token for an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			store, release, err := e.open(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}
			defer release()

			u, err := lookup(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}

			token, err := auth.NewManager(e.cfg.JWTSecret, e.cfg.AccessTTL()).GenerateAccessToken(u)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
