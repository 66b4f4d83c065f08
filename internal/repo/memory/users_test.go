package memory

import (
	"context"
	"testing"

	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *UsersRepo {
	return NewUsersRepo(
		user.User{ID: "1", Username: "admin", Email: "admin@example.com", Role: user.RoleAdmin},
		user.User{ID: "2", Username: "alice", Email: "alice@example.com", Role: user.RoleUser},
		user.User{ID: "3", Username: "bob", Email: "bob@corp.test", Role: user.RoleUser},
	)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	r := seeded()

	all, err := r.List(ctx, user.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "admin", all[0].Username, "ordered by username")

	alice := "alice"
	own, err := r.List(ctx, user.Filter{Username: &alice})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "2", own[0].ID)

	found, err := r.List(ctx, user.Filter{Search: "CORP"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bob", found[0].Username)

	page, err := r.List(ctx, user.Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "alice", page[0].Username)

	empty, err := r.List(ctx, user.Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)

	id := "3"
	byID, err := r.List(ctx, user.Filter{ID: &id})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "bob", byID[0].Username)
}

func TestListNegativeOffsetStartsAtZero(t *testing.T) {
	got, err := seeded().List(context.Background(), user.Filter{Limit: 2, Offset: -20})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "admin", got[0].Username)
}

func TestCountMatchesList(t *testing.T) {
	ctx := context.Background()
	r := seeded()

	n, err := r.Count(ctx, user.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ghost := "ghost"
	n, err = r.Count(ctx, user.Filter{Username: &ghost})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTxCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	r := seeded()

	tx, err := r.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Add(ctx, user.User{ID: "4", Username: "carol"}))
	require.NoError(t, tx.Add(ctx, user.User{ID: "5", Username: "alice"}))

	err = tx.Commit(ctx)
	require.ErrorIs(t, err, user.ErrUsernameTaken)
	require.NoError(t, tx.Rollback(ctx))

	_, err = r.GetByUsername(ctx, "carol")
	assert.ErrorIs(t, err, user.ErrNotFound, "no partial writes survive")
}

func TestTxRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	r := seeded()

	tx, err := r.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Add(ctx, user.User{ID: "4", Username: "carol"}))
	require.NoError(t, tx.Rollback(ctx))

	assert.ErrorIs(t, tx.Commit(ctx), user.ErrTxDone)

	n, _ := r.Count(ctx, user.Filter{})
	assert.Equal(t, 3, n)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	r := seeded()

	_, err := r.Update(ctx, user.User{ID: "2", Username: "bob"})
	assert.ErrorIs(t, err, user.ErrUsernameTaken)

	u, err := r.Update(ctx, user.User{ID: "2", Username: "alice", Email: "new@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, user.RoleUser, u.Role, "role is not writable through Update")

	require.NoError(t, r.Delete(ctx, "2"))
	assert.ErrorIs(t, r.Delete(ctx, "2"), user.ErrNotFound)
}
