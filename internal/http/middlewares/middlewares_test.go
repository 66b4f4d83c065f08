package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/changepassword/internal/auth"
	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/geocoder89/changepassword/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f fakeVerifier) VerifyAccessToken(string) (*auth.Claims, error) {
	return f.claims, f.err
}

func newAuthRouter(v middlewares.TokenVerifier, extra ...gin.HandlerFunc) *gin.Engine {
	m := middlewares.NewAuthMiddleware(v)

	r := gin.New()
	handlers := append([]gin.HandlerFunc{m.RequireAuth()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		p, ok := middlewares.PrincipalFromContext(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no principal")
			return
		}
		c.String(http.StatusOK, p.Username)
	})
	r.GET("/whoami", handlers...)
	return r
}

func TestRequireAuth(t *testing.T) {
	alice := &auth.Claims{UserID: "1", Username: "alice", Role: user.RoleUser}

	tests := []struct {
		name       string
		header     string
		verifier   fakeVerifier
		wantStatus int
		wantBody   string
	}{
		{name: "missing_header", header: "", verifier: fakeVerifier{claims: alice}, wantStatus: http.StatusUnauthorized},
		{name: "wrong_scheme", header: "Basic abc", verifier: fakeVerifier{claims: alice}, wantStatus: http.StatusUnauthorized},
		{name: "invalid_token", header: "Bearer nope", verifier: fakeVerifier{err: errors.New("bad")}, wantStatus: http.StatusUnauthorized},
		{name: "valid_token", header: "Bearer ok", verifier: fakeVerifier{claims: alice}, wantStatus: http.StatusOK, wantBody: "alice"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := newAuthRouter(tt.verifier)

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("got body %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	m := middlewares.NewAuthMiddleware(nil)

	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{name: "admin", role: user.RoleAdmin, wantStatus: http.StatusOK},
		{name: "plain_user", role: user.RoleUser, wantStatus: http.StatusForbidden},
		{name: "no_identity", role: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			v := fakeVerifier{claims: &auth.Claims{UserID: "1", Username: "x", Role: tt.role}}
			r := newAuthRouter(v, m.RequireRole(user.RoleAdmin))

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Bearer ok")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := middlewares.NewRateLimiter(2, time.Minute)

	r := gin.New()
	r.POST("/auth/login", rl.RateLimiterMiddleware(middlewares.KeyByIP), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent {
		t.Fatalf("first two requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited, got %d", codes[2])
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.Any("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("POST text/plain: got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/x", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE without body: got %d", w.Code)
	}
}
