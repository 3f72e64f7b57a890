package preferences

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler serves the current user's preferences.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers preference routes. Callers apply authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Patch("/", h.patch)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	prefs, err := h.store.Get(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("get preferences", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, prefs)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	var patch Patch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	prefs, err := h.store.Set(r.Context(), principal.UserID, patch)
	if err != nil {
		h.logger.Error("set preferences", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, prefs)
}
