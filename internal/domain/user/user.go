package user

import (
	"context"
	"errors"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrTxDone        = errors.New("transaction already finished")
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Filter narrows list and count queries. Nil ID and Username mean "any user".
type Filter struct {
	ID       *string
	Username *string
	Search   string
	Limit    int
	Offset   int
}

// Tx is a unit of work against the user store. Nothing added through it is
// visible until Commit succeeds.
type Tx interface {
	Add(ctx context.Context, u User) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
