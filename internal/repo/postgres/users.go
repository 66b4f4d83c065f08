package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

// DBObserver records latency and error class of logical DB operations.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics DBObserver
}

func NewUsersRepo(pool *pgxpool.Pool, metrics DBObserver) *UsersRepo {
	if metrics == nil {
		metrics = noopObserver{}
	}

	return &UsersRepo{pool: pool, metrics: metrics}
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB("users.get_by_username", func() error {
		return scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1`,
			username,
		), &u)
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB("users.get_by_id", func() error {
		return scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		), &u)
	})

	return u, err
}

func (r *UsersRepo) List(ctx context.Context, f user.Filter) ([]user.User, error) {
	where, args := filterClause(f)

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY username ASC, id ASC`

	if f.Limit > 0 {
		args = append(args, f.Limit, max(f.Offset, 0))
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	out := make([]user.User, 0, f.Limit)

	err := r.metrics.ObserveDB("users.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u user.User
			if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) Count(ctx context.Context, f user.Filter) (int, error) {
	where, args := filterClause(f)

	var n int
	err := r.metrics.ObserveDB("users.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&n)
	})

	return n, err
}

// Update writes username, email and password hash of u; id and role are
// immutable through this path.
func (r *UsersRepo) Update(ctx context.Context, u user.User) (user.User, error) {
	var out user.User

	err := r.metrics.ObserveDB("users.update", func() error {
		return scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			SET username = $2,
				email = $3,
				password_hash = $4,
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			u.ID, u.Username, u.Email, u.PasswordHash,
		), &out)
	})

	return out, err
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return r.metrics.ObserveDB("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}

		// if no rows were deleted return a not found error
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) Begin(ctx context.Context) (user.Tx, error) {
	var tx pgx.Tx

	err := r.metrics.ObserveDB("users.begin", func() error {
		var err error
		tx, err = r.pool.Begin(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &usersTx{tx: tx, metrics: r.metrics}, nil
}

type usersTx struct {
	tx      pgx.Tx
	metrics DBObserver
}

func (t *usersTx) Add(ctx context.Context, u user.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	return t.metrics.ObserveDB("users.insert", func() error {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt,
		)
		return mapWriteErr(err)
	})
}

func (t *usersTx) Commit(ctx context.Context) error {
	return t.metrics.ObserveDB("users.commit", func() error {
		return mapWriteErr(t.tx.Commit(ctx))
	})
}

func (t *usersTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return user.ErrTxDone
	}
	return err
}

func filterClause(f user.Filter) (string, []any) {
	var conds []string
	var args []any

	if f.ID != nil {
		args = append(args, *f.ID)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}

	if f.Username != nil {
		args = append(args, *f.Username)
		conds = append(conds, fmt.Sprintf("username = $%d", len(args)))
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		conds = append(conds, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanUser(row pgx.Row, u *user.User) error {
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		return mapWriteErr(err)
	}
	return nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", user.ErrUsernameTaken, err)
	}
	return err
}
