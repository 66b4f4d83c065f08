package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/changepassword/internal/domain/user"
)

// UsersRepo is an in-process user store with the same semantics as the
// postgres one. Used by tests and by the API when no database is configured.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // id -> user
}

func NewUsersRepo(seed ...user.User) *UsersRepo {
	r := &UsersRepo{items: make(map[string]user.User)}

	for _, u := range seed {
		r.items[u.ID] = u
	}

	return r
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) List(_ context.Context, f user.Filter) ([]user.User, error) {
	r.mu.RLock()
	matched := r.matching(f)
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Username != matched[j].Username {
			return matched[i].Username < matched[j].Username
		}
		return matched[i].ID < matched[j].ID
	})

	offset := max(f.Offset, 0)
	if offset >= len(matched) {
		return []user.User{}, nil
	}
	matched = matched[offset:]

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (r *UsersRepo) Count(_ context.Context, f user.Filter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.matching(f)), nil
}

func (r *UsersRepo) Update(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[u.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if r.usernameTakenLocked(u.Username, u.ID) {
		return user.User{}, user.ErrUsernameTaken
	}

	cur.Username = u.Username
	cur.Email = u.Email
	cur.PasswordHash = u.PasswordHash
	cur.UpdatedAt = time.Now().UTC()
	r.items[u.ID] = cur

	return cur, nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *UsersRepo) Begin(_ context.Context) (user.Tx, error) {
	return &usersTx{repo: r}, nil
}

// callers hold r.mu
func (r *UsersRepo) matching(f user.Filter) []user.User {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		if f.ID != nil && u.ID != *f.ID {
			continue
		}
		if f.Username != nil && u.Username != *f.Username {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (r *UsersRepo) usernameTakenLocked(username, exceptID string) bool {
	for id, u := range r.items {
		if id != exceptID && u.Username == username {
			return true
		}
	}
	return false
}

// usersTx stages inserts and applies them all-or-nothing on Commit.
type usersTx struct {
	repo    *UsersRepo
	pending []user.User
	done    bool
}

func (t *usersTx) Add(_ context.Context, u user.User) error {
	if t.done {
		return user.ErrTxDone
	}

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	t.pending = append(t.pending, u)
	return nil
}

func (t *usersTx) Commit(_ context.Context) error {
	if t.done {
		return user.ErrTxDone
	}

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	seen := make(map[string]struct{}, len(t.pending))
	for _, u := range t.pending {
		if _, dup := seen[u.Username]; dup || t.repo.usernameTakenLocked(u.Username, "") {
			// nothing applied; caller is expected to Rollback
			return user.ErrUsernameTaken
		}
		if _, exists := t.repo.items[u.ID]; exists {
			return user.ErrUsernameTaken
		}
		seen[u.Username] = struct{}{}
	}

	for _, u := range t.pending {
		t.repo.items[u.ID] = u
	}

	t.done = true
	t.pending = nil
	return nil
}

func (t *usersTx) Rollback(_ context.Context) error {
	if t.done {
		return user.ErrTxDone
	}

	t.done = true
	t.pending = nil
	return nil
}
