package actorctx

import (
	"context"

	"github.com/geocoder89/changepassword/internal/domain/user"
)

type ctxKey string

const keyPrincipal ctxKey = "principal"

func WithPrincipal(ctx context.Context, p user.Principal) context.Context {
	return context.WithValue(ctx, keyPrincipal, p)
}

func PrincipalFrom(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(keyPrincipal).(user.Principal)

	return p, ok && p.Username != ""
}
