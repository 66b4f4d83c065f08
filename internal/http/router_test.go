package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/changepassword/internal/auth"
	"github.com/geocoder89/changepassword/internal/config"
	"github.com/geocoder89/changepassword/internal/domain/user"
	"github.com/geocoder89/changepassword/internal/observability"
	"github.com/geocoder89/changepassword/internal/repo/memory"
	"github.com/geocoder89/changepassword/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	repo   *memory.UsersRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hash, err := security.HashPassword("pw")
	require.NoError(t, err)

	repo := memory.NewUsersRepo(
		user.User{ID: "1", Username: "admin", Email: "admin@example.com", PasswordHash: hash, Role: user.RoleAdmin},
		user.User{ID: "2", Username: "alice", Email: "alice@example.com", PasswordHash: hash, Role: user.RoleUser},
		user.User{ID: "3", Username: "bob", Email: "bob@example.com", PasswordHash: hash, Role: user.RoleUser},
	)

	cfg := config.Config{
		Env:           "test",
		AdminCategory: "Admin",
		AdminURL:      "change_password",
		PageSize:      20,
	}

	router, err := NewRouter(nil, cfg, Deps{
		Users:  repo,
		Tokens: auth.NewManager("test-secret", 15*time.Minute),
		Prom:   observability.NewProm(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	return &testServer{router: router, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()

	w, out := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token, _ := out["accessToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func usernames(out map[string]any) []string {
	items, _ := out["items"].([]any)
	names := make([]string, 0, len(items))
	for _, it := range items {
		row, _ := it.(map[string]any)
		name, _ := row["username"].(string)
		names = append(names, name)
	}
	return names
}

func flashMessages(out map[string]any) []string {
	raw, _ := out["flashes"].([]any)
	if raw == nil {
		if e, ok := out["error"].(map[string]any); ok {
			if d, ok := e["details"].(map[string]any); ok {
				raw, _ = d["flashes"].([]any)
			}
		}
	}

	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		m, _ := f.(map[string]any)
		msg, _ := m["message"].(string)
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/admin/change_password", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListVisibilityEndToEnd(t *testing.T) {
	s := newTestServer(t)

	w, out := s.do(t, http.MethodGet, "/admin/change_password", s.login(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"alice"}, usernames(out))
	assert.EqualValues(t, 1, out["count"])

	w, out = s.do(t, http.MethodGet, "/admin/change_password", s.login(t, "admin"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"admin", "alice", "bob"}, usernames(out))
	assert.EqualValues(t, 3, out["count"])

	items := out["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "mailto:admin@example.com", first["emailLink"])
}

func TestEditForeignRecordIsLockedEndToEnd(t *testing.T) {
	s := newTestServer(t)

	w, out := s.do(t, http.MethodGet, "/admin/change_password/3/edit", s.login(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	form := out["form"].(map[string]any)
	for _, f := range form["fields"].([]any) {
		field := f.(map[string]any)
		assert.Equal(t, true, field["readonly"], field["name"])
	}

	assert.Equal(t, []string{"Trying to edit wrong user bob while logged in as alice"}, flashMessages(out))
}

func TestUpdateForeignRecordForbidden(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "alice")

	w, out := s.do(t, http.MethodPut, "/admin/change_password/3", token, map[string]string{"password": "owned"})
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	assert.Len(t, flashMessages(out), 1)

	w, _ = s.do(t, http.MethodDelete, "/admin/change_password/3", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	_, err := s.repo.GetByID(t.Context(), "3")
	require.NoError(t, err)
}

func TestOwnPasswordChange(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPut, "/admin/change_password/2", s.login(t, "alice"), map[string]string{"password": "n3w-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := s.repo.GetByID(t.Context(), "2")
	require.NoError(t, err)
	require.NoError(t, security.CheckPassword(stored.PasswordHash, "n3w-pass"))
}

func TestCreateEndToEnd(t *testing.T) {
	s := newTestServer(t)
	form := map[string]string{"username": "carol", "email": "carol@example.com", "password": "pw"}

	w, out := s.do(t, http.MethodPost, "/admin/change_password", s.login(t, "alice"), form)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	assert.Equal(t, []string{"Failed to create user. Only admin user can create new user"}, flashMessages(out))

	n, _ := s.repo.Count(t.Context(), user.Filter{})
	require.Equal(t, 3, n)

	adminToken := s.login(t, "admin")

	w, out = s.do(t, http.MethodPost, "/admin/change_password", adminToken, form)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "carol", out["item"].(map[string]any)["username"])

	w, _ = s.do(t, http.MethodPost, "/admin/change_password", adminToken, form)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	n, _ = s.repo.Count(t.Context(), user.Filter{})
	assert.Equal(t, 4, n)
}

func TestMenuAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, out := s.do(t, http.MethodGet, "/admin/menu", s.login(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	cats := out["categories"].([]any)
	require.Len(t, cats, 1)

	w, _ = s.do(t, http.MethodGet, "/admin/metrics", s.login(t, "alice"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/admin/metrics", s.login(t, "admin"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
