package useradmin

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/geocoder89/changepassword/internal/admin"
	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/geocoder89/changepassword/internal/http/handlers"
	"github.com/geocoder89/changepassword/internal/security"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var lockedFields = []string{"username", "password", "email"}

type createForm struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type updateForm struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,max=72"`
}

func defaultHash(plain string) (string, error) {
	return security.HashPassword(plain)
}

func defaultID() string {
	return uuid.NewString()
}

// Prefill builds the edit form. For a principal who neither owns the record
// nor is an admin the credential fields come back read-only and an error
// flash names both users. The lock is advisory; Update enforces ownership.
func (v *View) Prefill(ctx context.Context, p user.Principal, rec user.User) (admin.Form, error) {
	form := admin.Form{Fields: []admin.Field{
		{Name: "username", Label: "Username", Widget: admin.WidgetText, Value: rec.Username},
		{Name: "email", Label: "Email", Widget: admin.WidgetEmail, Value: rec.Email},
		{Name: "password", Label: "Password", Widget: admin.WidgetPassword},
	}}

	if !p.CanModify(rec) {
		form.SetReadOnly(lockedFields...)
		v.flash(ctx, p, admin.FlashError,
			fmt.Sprintf("Trying to edit wrong user %s while logged in as %s", rec.Username, p.Username))
		v.log.WarnContext(ctx, "edit form opened for foreign record",
			"actor", p.Username, "record_id", rec.ID, "record_username", rec.Username)
	}

	return form, nil
}

// Create persists a new user in a single transaction. Only admins may
// create; any failure leaves the store untouched and returns the zero user.
func (v *View) Create(ctx context.Context, p user.Principal, values admin.Values) (out user.User, err error) {
	v.audit(ctx, "create", p, values, nil)
	defer func() { v.ops.RecordAdminOp("create", result(err)) }()

	if !p.IsAdmin() {
		v.flash(ctx, p, admin.FlashError, "Failed to create user. Only admin user can create new user")
		v.log.ErrorContext(ctx, "failed to create new user", "actor", p.Username, "err", ErrForbidden)
		return user.User{}, ErrForbidden
	}

	form := createForm{
		Username: strings.TrimSpace(values["username"]),
		Email:    strings.TrimSpace(values["email"]),
		Password: values["password"],
	}
	if err := v.check(form); err != nil {
		return user.User{}, err
	}

	hash, err := v.hash(form.Password)
	if err != nil {
		return user.User{}, v.createFailed(ctx, p, err)
	}

	rec := user.User{
		ID:           v.newID(),
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		Role:         user.RoleUser,
	}

	tx, err := v.store.Begin(ctx)
	if err != nil {
		return user.User{}, v.createFailed(ctx, p, err)
	}

	if err := tx.Add(ctx, rec); err != nil {
		v.rollback(ctx, tx)
		return user.User{}, v.createFailed(ctx, p, err)
	}

	if err := tx.Commit(ctx); err != nil {
		v.rollback(ctx, tx)
		return user.User{}, v.createFailed(ctx, p, err)
	}

	v.log.InfoContext(ctx, "user created", "actor", p.Username, "record_id", rec.ID, "username", rec.Username)
	return rec, nil
}

// Update applies the submitted form to rec. An empty password keeps the
// stored hash.
func (v *View) Update(ctx context.Context, p user.Principal, values admin.Values, rec user.User) (out user.User, err error) {
	v.audit(ctx, "update", p, values, &rec)
	defer func() { v.ops.RecordAdminOp("update", result(err)) }()

	if !p.CanModify(rec) {
		v.denied(ctx, p, "update", rec)
		return user.User{}, ErrForbidden
	}

	form := updateForm{
		Username: rec.Username,
		Email:    rec.Email,
		Password: values["password"],
	}
	if values.Has("username") {
		form.Username = strings.TrimSpace(values["username"])
	}
	if values.Has("email") {
		form.Email = strings.TrimSpace(values["email"])
	}
	if err := v.check(form); err != nil {
		return user.User{}, err
	}

	changed := rec
	changed.Username = form.Username
	changed.Email = form.Email

	if form.Password != "" {
		hash, err := v.hash(form.Password)
		if err != nil {
			return user.User{}, fmt.Errorf("hash password: %w", err)
		}
		changed.PasswordHash = hash
	}

	updated, err := v.persister.Update(ctx, changed)
	if err != nil {
		return user.User{}, classify(err)
	}

	v.flash(ctx, p, admin.FlashInfo, "Record was successfully saved.")
	return updated, nil
}

func (v *View) Delete(ctx context.Context, p user.Principal, rec user.User) (err error) {
	v.audit(ctx, "delete", p, nil, &rec)
	defer func() { v.ops.RecordAdminOp("delete", result(err)) }()

	if !p.CanModify(rec) {
		v.denied(ctx, p, "delete", rec)
		return ErrForbidden
	}

	if err := v.persister.Delete(ctx, rec); err != nil {
		return classify(err)
	}

	v.flash(ctx, p, admin.FlashInfo, "Record was successfully deleted.")
	return nil
}

func (v *View) check(form any) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return &admin.ValidationError{Fields: handlers.FieldErrors(verrs, reflect.TypeOf(form))}
	}
	return fmt.Errorf("%w: %w", admin.ErrInvalidForm, err)
}

func (v *View) createFailed(ctx context.Context, p user.Principal, err error) error {
	v.flash(ctx, p, admin.FlashError, "Failed to create record. "+err.Error())
	v.log.ErrorContext(ctx, "failed to create record", "actor", p.Username, "err", err)
	return classify(err)
}

func (v *View) rollback(ctx context.Context, tx user.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, user.ErrTxDone) {
		v.log.ErrorContext(ctx, "rollback failed", "err", err)
	}
}

func (v *View) denied(ctx context.Context, p user.Principal, op string, rec user.User) {
	v.flash(ctx, p, admin.FlashError,
		fmt.Sprintf("Trying to %s wrong user %s while logged in as %s", op, rec.Username, p.Username))
	v.log.WarnContext(ctx, "ownership check failed",
		"op", op, "actor", p.Username, "record_id", rec.ID, "record_username", rec.Username)
}
