package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/changepassword/internal/config"
	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/geocoder89/changepassword/internal/security"
	"github.com/google/uuid"
)

// AdminSeeder is the slice of a user store needed to bootstrap the admin.
type AdminSeeder interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Begin(ctx context.Context) (user.Tx, error)
}

// EnsureAdminUser creates the configured admin account when it is missing.
// It reports whether a user was created. Without a configured password it
// does nothing.
func EnsureAdminUser(ctx context.Context, users AdminSeeder, cfg config.Config) (bool, error) {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, err := users.GetByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := users.Begin(ctx)
	if err != nil {
		return false, err
	}

	if err := tx.Add(ctx, u); err != nil {
		_ = tx.Rollback(ctx)
		return false, fmt.Errorf("seed admin: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return false, fmt.Errorf("seed admin: %w", err)
	}

	return true, nil
}
