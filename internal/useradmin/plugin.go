package useradmin

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/changepassword/internal/admin"
	"github.com/geocoder89/changepassword/internal/domain/user"
)

// UserRepo is the full store the plugin needs: reads, transactional
// creates, and the writes behind the default persister.
type UserRepo interface {
	Store
	Update(ctx context.Context, u user.User) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// RepoPersister persists changes straight through the user repo.
type RepoPersister struct {
	Repo interface {
		Update(ctx context.Context, u user.User) (user.User, error)
		Delete(ctx context.Context, id string) error
	}
}

func (r RepoPersister) Update(ctx context.Context, u user.User) (user.User, error) {
	return r.Repo.Update(ctx, u)
}

func (r RepoPersister) Delete(ctx context.Context, u user.User) error {
	return r.Repo.Delete(ctx, u.ID)
}

type PluginConfig struct {
	Category string
	URL      string
	PageSize int
	Timeout  time.Duration
}

// EmailLink renders the email column as a mailto link.
func EmailLink(row admin.Row) any {
	email, _ := row["email"].(string)
	if email == "" {
		return ""
	}
	return "mailto:" + email
}

// NewModelView wires v into the generic admin scaffold.
func NewModelView(cfg PluginConfig, v *View, flashes admin.FlashStore, log *slog.Logger) *admin.ModelView[user.User] {
	if cfg.Category == "" {
		cfg.Category = "Admin"
	}
	if cfg.URL == "" {
		cfg.URL = "change_password"
	}

	return admin.NewModelView[user.User](admin.ViewConfig{
		Name:       "Change Password",
		PluralName: "Change Passwords",
		Category:   cfg.Category,
		URL:        cfg.URL,

		Columns: []string{"id", "username", "email", "emailLink"},
		Formatters: map[string]admin.Formatter{
			"emailLink": EmailLink,
		},
		Searchable: []string{"username", "email"},

		PageSize:       cfg.PageSize,
		CanSetPageSize: true,

		CanCreate: true,
		CanEdit:   true,
		CanDelete: true,

		Timeout: cfg.Timeout,
	}, v, flashes, log)
}

// Register builds the view over repo and adds it to reg.
func Register(reg *admin.Registry, cfg PluginConfig, repo UserRepo, flashes admin.FlashStore, log *slog.Logger, opts ...Option) (*View, error) {
	v := New(repo, RepoPersister{Repo: repo}, flashes, log, opts...)

	if err := reg.Add(NewModelView(cfg, v, flashes, log)); err != nil {
		return nil, err
	}
	return v, nil
}
