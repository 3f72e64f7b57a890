package shop

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler serves the shop settings.
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

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAuth).Get("/", h.get)
	r.With(h.rbac.RequireAll(shared.PermSettingsManage)).Put("/", h.save)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context())
	if err != nil {
		h.logger.Error("get shop profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Save(r.Context(), patch)
	if err != nil {
		if errors.Is(err, ErrInvalidProfile) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationMessage(err))
			return
		}
		h.logger.Error("save shop profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
