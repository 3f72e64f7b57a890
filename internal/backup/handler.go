package backup

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler exposes backup administration.
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

// MountRoutes registers backup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermBackupRestore))
		r.Get("/", h.list)
		r.Post("/", h.run)
		r.Post("/{id}/restore", h.restore)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list backups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"backups": entries})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Run(r.Context())
	if err != nil {
		h.logger.Error("run backup", slog.Any("error", err))
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnavailable, "backup failed"))
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")
	counts, err := h.service.Restore(r.Context(), principal, id)
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "backup not found")
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case err != nil:
		h.logger.Error("restore backup", slog.String("backup_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
	default:
		h.logger.Info("backup restored", slog.String("backup_id", id), slog.String("actor_id", principal.UserID))
		httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Backup restored successfully", "restored": counts})
	}
}
