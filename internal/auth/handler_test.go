package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-pos/internal/auth"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
	"github.com/odyssey-erp/odyssey-pos/internal/users/userstest"
	_ "github.com/odyssey-erp/odyssey-pos/testing"
)

type stubSessions struct {
	created []string
	deleted []string
}

func (s *stubSessions) CreateSession(_ context.Context, id, _ string, _ time.Time, _, _ string) error {
	s.created = append(s.created, id)
	return nil
}

func (s *stubSessions) DeleteSession(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type fixture struct {
	router   chi.Router
	sessions *shared.SessionManager
	log      *stubSessions
	service  *auth.Service
}

func newFixture(t *testing.T, seed ...users.User) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	log := &stubSessions{}
	service := auth.NewService(userstest.New(seed...), log, auth.NewTokens("jwt-secret", time.Hour), nil)
	handler := auth.NewHandler(nil, service, sessions, shared.NewCSRFManager("csrfsecret"))

	router := chi.NewRouter()
	router.Use(auth.Middleware{Service: service}.Principal)
	router.Route("/auth", handler.MountRoutes)
	return &fixture{router: router, sessions: sessions, log: log, service: service}
}

// do runs req with the session lifecycle the app middleware provides.
func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := f.sessions.Load(req.Context(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req.WithContext(ctx))
	require.NoError(t, f.sessions.Commit(ctx, rec, sess))
	return rec, sess
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestMessageMapping(t *testing.T) {
	cases := map[error]string{
		auth.ErrEmailInUse:           "An account with this email already exists.",
		auth.ErrWeakPassword:         "Password should be at least 6 characters.",
		auth.ErrInvalidEmail:         "Invalid email address.",
		auth.ErrUserNotFound:         "No account found with this email.",
		auth.ErrWrongPassword:        "Incorrect password.",
		auth.ErrInactive:             "This account has been disabled.",
		errors.New("provider down"):  "Login failed. Please try again.",
	}
	for err, want := range cases {
		assert.Equal(t, want, auth.Message(err), err.Error())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t, users.User{ID: "u1", Email: "user@test.local", PasswordHash: hashed(t, "correctpass"), Role: rbac.RoleCashier, Status: users.StatusActive})

	rec, _ := f.do(t, jsonRequest(http.MethodPost, "/auth/login", `{"email":"user@test.local","password":"wrongpass"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect password.")

	rec, _ = f.do(t, jsonRequest(http.MethodPost, "/auth/login", `{"email":"nobody@test.local","password":"whatever"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "No account found with this email.")

	rec, _ = f.do(t, jsonRequest(http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"whatever"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email address.")
	assert.Empty(t, f.log.created)
}

func TestLoginDisabledAccount(t *testing.T) {
	f := newFixture(t, users.User{ID: "u1", Email: "gone@test.local", PasswordHash: hashed(t, "secret1"), Role: rbac.RoleCashier, Status: users.StatusDisabled})

	rec, _ := f.do(t, jsonRequest(http.MethodPost, "/auth/login", `{"email":"gone@test.local","password":"secret1"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "This account has been disabled.")
}

func TestSignupFailures(t *testing.T) {
	f := newFixture(t, users.User{ID: "u1", Email: "taken@test.local", PasswordHash: hashed(t, "secret1"), Role: rbac.RoleAdmin})

	rec, _ := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", `{"name":"X","email":"TAKEN@test.local","password":"secret1"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "An account with this email already exists.")

	rec, _ = f.do(t, jsonRequest(http.MethodPost, "/auth/signup", `{"name":"X","email":"new@test.local","password":"12345"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password should be at least 6 characters.")
}

func TestSignupStartsSessionAndMeResolvesIt(t *testing.T) {
	f := newFixture(t)

	rec, sess := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", `{"name":"Owner","email":"owner@test.local","password":"secret1","role":"Admin"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		User      users.User `json:"user"`
		CSRFToken string     `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, rbac.RoleAdmin, body.User.Role)
	assert.NotEmpty(t, body.CSRFToken)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
	assert.Equal(t, []string{sess.ID}, f.log.created)

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: sess.ID})
	rec, _ = f.do(t, me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "owner@test.local")

	out := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	out.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: sess.ID})
	rec, _ = f.do(t, out)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{sess.ID}, f.log.deleted)

	me = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: sess.ID})
	rec, _ = f.do(t, me)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenLoginAndBearerPrincipal(t *testing.T) {
	f := newFixture(t, users.User{ID: "u1", Name: "Clerk", Email: "clerk@test.local", PasswordHash: hashed(t, "secret1"), Role: rbac.RoleCashier, Status: users.StatusActive})

	rec, _ := f.do(t, jsonRequest(http.MethodPost, "/auth/login?token=1", `{"email":"clerk@test.local","password":"secret1"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	assert.Empty(t, f.log.created)

	claims, err := f.service.ParseToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Cashier", claims.Role)

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.Header.Set("Authorization", "Bearer "+body.Token)
	rec, _ = f.do(t, me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "csrfToken")

	bad := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	bad.Header.Set("Authorization", "Bearer "+body.Token+"x")
	rec, _ = f.do(t, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCLIUserAgentReceivesToken(t *testing.T) {
	f := newFixture(t, users.User{ID: "u1", Email: "admin@test.local", PasswordHash: hashed(t, "secret1"), Role: rbac.RoleAdmin, Status: users.StatusActive})

	req := jsonRequest(http.MethodPost, "/auth/login", `{"email":"admin@test.local","password":"secret1"}`)
	req.Header.Set("User-Agent", auth.CLIUserAgent+"1.0")
	rec, _ := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}

func TestTokensRejectForeignSecret(t *testing.T) {
	issuer := auth.NewTokens("one", time.Hour)
	token, expires, err := issuer.IssueToken(users.User{ID: "u1", Role: rbac.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	_, err = auth.NewTokens("two", time.Hour).ParseToken(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
