package useradmin

import (
	"context"
	"log/slog"
	"sort"

	"github.com/geocoder89/changepassword/internal/admin"
	"github.com/geocoder89/changepassword/internal/domain/user"
)

// auditable lists the form fields whose values may appear in logs. Anything
// else is reported by name only.
var auditable = map[string]bool{
	"username": true,
	"email":    true,
}

func (v *View) audit(ctx context.Context, op string, p user.Principal, values admin.Values, rec *user.User) {
	attrs := []any{
		slog.String("op", op),
		slog.String("actor", p.Username),
		slog.String("actor_role", p.Role),
	}

	if values != nil {
		attrs = append(attrs, slog.Group("form", formAttrs(values)...))
	}

	if rec != nil {
		attrs = append(attrs, slog.Group("record",
			slog.String("id", rec.ID),
			slog.String("username", rec.Username),
			slog.String("email", rec.Email),
		))
	}

	v.log.InfoContext(ctx, "admin audit", attrs...)
}

func formAttrs(values admin.Values) []any {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys)+1)
	var redacted []string

	for _, k := range keys {
		switch {
		case k == "password":
			attrs = append(attrs, slog.Bool("password_set", values[k] != ""))
		case auditable[k]:
			attrs = append(attrs, slog.String(k, values[k]))
		default:
			redacted = append(redacted, k)
		}
	}

	if len(redacted) > 0 {
		attrs = append(attrs, slog.Any("redacted", redacted))
	}

	return attrs
}
