package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersManage))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type createRequest struct {
	Input
	Password string `json:"password"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{Search: q.Get("search")}
	if raw := q.Get("role"); raw != "" {
		filter.Role = rbac.ParseRole(raw)
	}
	users, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Add(r.Context(), actorID(r), req.Input, req.Password)
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Update(r.Context(), actorID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
	case errors.Is(err, ErrInvalidUser):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationMessage(err))
	case errors.Is(err, ErrWeakPassword):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Password should be at least 6 characters.")
	case errors.Is(err, ErrEmailInUse):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "An account with this email already exists.")
	case errors.Is(err, ErrSelfDelete):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Not Allowed", "You cannot delete your own account.")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func actorID(r *http.Request) string {
	p, _ := shared.PrincipalFromContext(r.Context())
	return p.UserID
}
