package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/changepassword/internal/actorctx"
	"github.com/geocoder89/changepassword/internal/auth"
	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		p := claims.Principal()

		// Stash the identity on both the gin context and the request context;
		// admin views only see the latter.
		c.Set(CtxUserID, p.UserID)
		c.Set(CtxUsername, p.Username)
		c.Set(CtxRole, p.Role)
		c.Request = c.Request.WithContext(actorctx.WithPrincipal(c.Request.Context(), p))

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxUserID)
}

func RoleFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxRole)
}

func PrincipalFromContext(c *gin.Context) (user.Principal, bool) {
	return actorctx.PrincipalFrom(c.Request.Context())
}

func stringFromContext(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
