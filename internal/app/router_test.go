package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/auth"
	"github.com/odyssey-erp/odyssey-pos/internal/preferences"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
	"github.com/odyssey-erp/odyssey-pos/internal/users/userstest"
	_ "github.com/odyssey-erp/odyssey-pos/testing"
)

type routerFixture struct {
	handler  http.Handler
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	auth     *auth.Service
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	authService := auth.NewService(userstest.New(), nil, auth.NewTokens("jwt-secret-for-tests", time.Hour), nil)
	cfg := &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second}

	handler := NewRouter(RouterParams{
		Config:             cfg,
		SessionManager:     sessions,
		CSRFManager:        csrf,
		Auth:               authService,
		RBACMiddleware:     rbac.Middleware{Service: rbac.NewService(nil)},
		PreferencesHandler: preferences.NewHandler(nil, preferences.NewStore(client)),
	})
	return &routerFixture{handler: handler, sessions: sessions, csrf: csrf, auth: authService}
}

// signIn persists a cookie session for userID and returns its cookie and CSRF token.
func (f *routerFixture) signIn(t *testing.T, userID string) (*http.Cookie, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := f.sessions.Load(req.Context(), req)
	require.NoError(t, err)
	sess.SetUser(userID, string(rbac.RoleCashier))
	token, err := f.csrf.EnsureToken(req.Context(), sess)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, f.sessions.Commit(req.Context(), rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], token
}

func (f *routerFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndNotFound(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = f.serve(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "problem+json")
}

func TestAnonymousRequestsAreRejectedByRouteGuards(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.serve(httptest.NewRequest(http.MethodGet, "/api/preferences", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCookieSessionsNeedCSRFForWrites(t *testing.T) {
	f := newRouterFixture(t)
	cookie, token := f.signIn(t, "cashier-1")

	get := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	get.AddCookie(cookie)
	rec := f.serve(get)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"taxEnabled":true,"darkMode":false}`, rec.Body.String())

	patch := httptest.NewRequest(http.MethodPatch, "/api/preferences", strings.NewReader(`{"darkMode":true}`))
	patch.Header.Set("Content-Type", "application/json")
	patch.AddCookie(cookie)
	rec = f.serve(patch)
	require.Equal(t, http.StatusForbidden, rec.Code)

	patch = httptest.NewRequest(http.MethodPatch, "/api/preferences", strings.NewReader(`{"darkMode":true}`))
	patch.Header.Set("Content-Type", "application/json")
	patch.Header.Set(shared.CSRFHeader, token)
	patch.AddCookie(cookie)
	rec = f.serve(patch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"taxEnabled":true,"darkMode":true}`, rec.Body.String())
}

func TestBearerTokensSkipCSRF(t *testing.T) {
	f := newRouterFixture(t)
	token, _, err := f.auth.IssueToken(users.User{ID: "cashier-2", Role: rbac.RoleCashier})
	require.NoError(t, err)

	patch := httptest.NewRequest(http.MethodPatch, "/api/preferences", strings.NewReader(`{"taxEnabled":false}`))
	patch.Header.Set("Content-Type", "application/json")
	patch.Header.Set("Authorization", "Bearer "+token)
	rec := f.serve(patch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"taxEnabled":false,"darkMode":false}`, rec.Body.String())

	bad := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	bad.Header.Set("Authorization", "Bearer not-a-token")
	rec = f.serve(bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{
		SessionSecret:  "s",
		CSRFSecret:     "c",
		JWTSecret:      "0123456789abcdef",
		StoreBackend:   " Mongo ",
		ReportTimezone: "Asia/Kolkata",
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	short := cfg
	short.JWTSecret = "short"
	require.Error(t, short.Validate())

	backend := cfg
	backend.StoreBackend = "sqlite"
	require.Error(t, backend.Validate())

	zone := cfg
	zone.ReportTimezone = "Mars/Olympus"
	require.Error(t, zone.Validate())
}

func TestCheckOrigin(t *testing.T) {
	assert.Nil(t, (&Config{}).CheckOrigin())

	check := (&Config{AllowedOrigins: []string{"https://till.example.com/"}}).CheckOrigin()
	req := httptest.NewRequest(http.MethodGet, "/api/live", nil)
	req.Header.Set("Origin", "https://till.example.com")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}
