package admin

import (
	"errors"
	"strings"

	"github.com/geocoder89/changepassword/internal/http/handlers"
)

// Hooks wrap their failures in these so the scaffold can pick a status code.
var (
	ErrForbidden   = errors.New("admin: forbidden")
	ErrNotFound    = errors.New("admin: record not found")
	ErrConflict    = errors.New("admin: conflicting record")
	ErrInvalidForm = errors.New("admin: invalid form")
)

type ValidationError struct {
	Fields []handlers.FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field+" "+f.Message)
	}
	return "invalid form: " + strings.Join(names, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidForm
}
