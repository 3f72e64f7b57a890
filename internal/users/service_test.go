package users_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
	"github.com/odyssey-erp/odyssey-pos/internal/users/userstest"
)

func strPtr(v string) *string { return &v }

func TestAddHashesPasswordAndDefaultsRole(t *testing.T) {
	repo := userstest.New()
	svc := users.NewService(repo, nil)

	u, err := svc.Add(context.Background(), "admin", users.Input{Name: " Asha ", Email: "Asha@Shop.IN"}, "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "asha@shop.in", u.Email)
	assert.Equal(t, rbac.RoleCashier, u.Role)
	assert.Equal(t, users.StatusActive, u.Status)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")))

	_, err = svc.Add(context.Background(), "admin", users.Input{Name: "Other", Email: "asha@shop.in"}, "secret1")
	require.ErrorIs(t, err, users.ErrEmailInUse)
}

func TestAddRejectsShortPasswordAndBadEmail(t *testing.T) {
	svc := users.NewService(userstest.New(), nil)

	_, err := svc.Add(context.Background(), "admin", users.Input{Name: "A", Email: "a@b.in"}, "12345")
	require.ErrorIs(t, err, users.ErrWeakPassword)

	_, err = svc.Add(context.Background(), "admin", users.Input{Name: "A", Email: "not-an-email"}, "123456")
	require.ErrorIs(t, err, users.ErrInvalidUser)

	_, err = svc.Add(context.Background(), "admin", users.Input{Name: "A", Email: "a@b.in", Role: "Manager"}, "123456")
	require.ErrorIs(t, err, users.ErrInvalidUser)
}

func TestUpdateKeepsEmail(t *testing.T) {
	repo := userstest.New(users.User{ID: "u1", Name: "Ravi", Email: "ravi@shop.in", Role: rbac.RoleCashier, Status: users.StatusActive})
	svc := users.NewService(repo, nil)

	u, err := svc.Update(context.Background(), "admin", "u1", users.Patch{Role: strPtr("Admin"), Name: strPtr("Ravi K")})
	require.NoError(t, err)
	assert.Equal(t, "ravi@shop.in", u.Email)
	assert.Equal(t, rbac.RoleAdmin, u.Role)
	assert.Equal(t, "Ravi K", u.Name)

	_, err = svc.Update(context.Background(), "admin", "u1", users.Patch{Password: strPtr("abc")})
	require.ErrorIs(t, err, users.ErrWeakPassword)

	_, err = svc.Update(context.Background(), "admin", "missing", users.Patch{Name: strPtr("x")})
	require.ErrorIs(t, err, users.ErrNotFound)
}

func TestDeleteRejectsSelf(t *testing.T) {
	repo := userstest.New(
		users.User{ID: "admin", Name: "Owner", Email: "owner@shop.in", Role: rbac.RoleAdmin},
		users.User{ID: "u2", Name: "Clerk", Email: "clerk@shop.in", Role: rbac.RoleCashier},
	)
	svc := users.NewService(repo, nil)

	require.ErrorIs(t, svc.Delete(context.Background(), "admin", "admin"), users.ErrSelfDelete)
	require.NoError(t, svc.Delete(context.Background(), "admin", "u2"))
	assert.Equal(t, 1, repo.Count())
}

func TestListFiltersBySearchAndRole(t *testing.T) {
	repo := userstest.New(
		users.User{ID: "1", Name: "Owner", Email: "owner@shop.in", Role: rbac.RoleAdmin},
		users.User{ID: "2", Name: "Clerk One", Email: "c1@shop.in", Role: rbac.RoleCashier},
		users.User{ID: "3", Name: "Clerk Two", Email: "c2@shop.in", Role: rbac.RoleCashier},
	)
	svc := users.NewService(repo, nil)

	list, err := svc.List(context.Background(), users.Filter{Role: rbac.RoleCashier})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.List(context.Background(), users.Filter{Search: "OWNER"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1", list[0].ID)
}

func TestRoleOfRejectsDisabled(t *testing.T) {
	repo := userstest.New(
		users.User{ID: "1", Email: "a@shop.in", Role: rbac.RoleAdmin, Status: users.StatusActive},
		users.User{ID: "2", Email: "b@shop.in", Role: rbac.RoleAdmin, Status: users.StatusDisabled},
	)
	svc := users.NewService(repo, nil)

	role, err := svc.RoleOf(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Admin", role)
	_, err = svc.RoleOf(context.Background(), "2")
	require.ErrorIs(t, err, users.ErrDisabled)
}

func TestHandlerRequiresUsersManage(t *testing.T) {
	repo := userstest.New(users.User{ID: "admin", Name: "Owner", Email: "owner@shop.in", Role: rbac.RoleAdmin})
	svc := users.NewService(repo, nil)
	h := users.NewHandler(nil, svc, rbac.Middleware{Service: rbac.NewService(nil)})
	router := chi.NewRouter()
	h.MountRoutes(router)

	do := func(role, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: "admin", Role: role}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, do("Cashier", http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, do("Admin", http.MethodGet, "/", "").Code)

	rec := do("Admin", http.MethodPost, "/", `{"name":"Clerk","email":"clerk@shop.in","password":"123456"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = do("Admin", http.MethodPatch, "/admin", `{"email":"new@shop.in"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do("Admin", http.MethodDelete, "/admin", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
