// Package useradmin is the "change password" admin view: it gates which user
// records a principal can see and change, and audits every mutation.
package useradmin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/changepassword/internal/admin"
	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/go-playground/validator/v10"
)

// ErrForbidden is returned when the principal may not perform the operation.
var ErrForbidden = admin.ErrForbidden

// Store is the user store the view reads from and creates through.
type Store interface {
	List(ctx context.Context, f user.Filter) ([]user.User, error)
	Count(ctx context.Context, f user.Filter) (int, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Begin(ctx context.Context) (user.Tx, error)
}

// Persister writes an already authorized change or deletion.
type Persister interface {
	Update(ctx context.Context, u user.User) (user.User, error)
	Delete(ctx context.Context, u user.User) error
}

// OpsRecorder counts view operations by outcome.
type OpsRecorder interface {
	RecordAdminOp(op, result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAdminOp(string, string) {}

type View struct {
	store     Store
	persister Persister
	flashes   admin.FlashStore
	log       *slog.Logger
	ops       OpsRecorder
	validate  *validator.Validate
	hash      func(plain string) (string, error)
	newID     func() string
}

type Option func(*View)

func WithOpsRecorder(r OpsRecorder) Option {
	return func(v *View) {
		if r != nil {
			v.ops = r
		}
	}
}

// WithHasher replaces bcrypt, mostly so tests stay fast.
func WithHasher(fn func(plain string) (string, error)) Option {
	return func(v *View) { v.hash = fn }
}

func WithIDGenerator(fn func() string) Option {
	return func(v *View) { v.newID = fn }
}

func New(store Store, persister Persister, flashes admin.FlashStore, log *slog.Logger, opts ...Option) *View {
	if log == nil {
		log = slog.Default()
	}

	v := &View{
		store:     store,
		persister: persister,
		flashes:   flashes,
		log:       log.With("component", "useradmin"),
		ops:       noopRecorder{},
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		hash:      defaultHash,
		newID:     defaultID,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Query returns every record for an admin and only the principal's own
// record for anybody else.
func (v *View) Query(ctx context.Context, p user.Principal, q admin.ListQuery) ([]user.User, error) {
	f := visibleTo(p, q)
	f.Limit = q.PageSize
	f.Offset = q.Offset()

	items, err := v.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return items, nil
}

// Count applies the same visibility as Query, so non-admins see 0 or 1.
func (v *View) Count(ctx context.Context, p user.Principal, q admin.ListQuery) (int, error) {
	n, err := v.store.Count(ctx, visibleTo(p, q))
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (v *View) Get(ctx context.Context, id string) (user.User, error) {
	u, err := v.store.GetByID(ctx, id)
	if err != nil {
		return user.User{}, classify(err)
	}
	return u, nil
}

func (v *View) Render(u user.User) admin.Row {
	return admin.Row{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
	}
}

func visibleTo(p user.Principal, q admin.ListQuery) user.Filter {
	f := user.Filter{Search: q.Search}
	if p.IsAdmin() {
		return f
	}

	if p.UserID != "" {
		id := p.UserID
		f.ID = &id
	} else {
		username := p.Username
		f.Username = &username
	}
	return f
}

func (v *View) flash(ctx context.Context, p user.Principal, category, msg string) {
	if v.flashes == nil {
		return
	}
	if err := v.flashes.Push(ctx, admin.FlashKey(p), admin.Flash{Category: category, Message: msg}); err != nil {
		v.log.WarnContext(ctx, "push flash failed", "err", err)
	}
}

// classify maps store errors onto the scaffold's status sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, user.ErrNotFound):
		return fmt.Errorf("%w: %w", admin.ErrNotFound, err)
	case errors.Is(err, user.ErrUsernameTaken):
		return fmt.Errorf("%w: %w", admin.ErrConflict, err)
	default:
		return err
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, admin.ErrForbidden):
		return "forbidden"
	case errors.Is(err, admin.ErrInvalidForm):
		return "invalid"
	case errors.Is(err, admin.ErrConflict):
		return "conflict"
	case errors.Is(err, admin.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
