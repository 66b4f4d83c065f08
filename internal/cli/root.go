// Package cli implements useradminctl, the operator tool for the user store.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/geocoder89/changepassword/internal/config"
	"github.com/geocoder89/changepassword/internal/db"
	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/geocoder89/changepassword/internal/repo/memory"
	"github.com/geocoder89/changepassword/internal/repo/postgres"
	"github.com/spf13/cobra"
)

// Store is what the commands need from the user store.
type Store interface {
	db.AdminSeeder
}

// StoreOpener connects to the configured store. The returned func releases it.
type StoreOpener func(ctx context.Context, cfg config.Config) (Store, func(), error)

type env struct {
	cfg     config.Config
	open    StoreOpener
	migrate func(ctx context.Context, dbURL string) error
	out     io.Writer
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd(&env{
		cfg:     config.Load(),
		open:    openStore,
		migrate: db.Migrate,
		out:     os.Stdout,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "useradminctl",
		Short:         "Operate the change password user store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&e.cfg.DBURL, "db-url", e.cfg.DBURL, "Postgres connection URL")
	rootCmd.PersistentFlags().StringVar(&e.cfg.Store, "store", e.cfg.Store, "User store (postgres, memory)")

	rootCmd.SetOut(e.out)

	rootCmd.AddCommand(newMigrateCmd(e))
	rootCmd.AddCommand(newSeedAdminCmd(e))
	rootCmd.AddCommand(newHashPasswordCmd())
	rootCmd.AddCommand(newCreateTokenCmd(e))

	return rootCmd
}

func openStore(ctx context.Context, cfg config.Config) (Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return memory.NewUsersRepo(), func() {}, nil
	case "postgres", "":
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		return postgres.NewUsersRepo(pool, nil), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func lookup(ctx context.Context, s Store, username string) (user.User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return user.User{}, fmt.Errorf("lookup %q: %w", username, err)
	}
	return u, nil
}
