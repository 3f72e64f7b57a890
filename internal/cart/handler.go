package cart

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler exposes the cart API. Every mutation answers with the new view.
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

// MountRoutes registers cart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermSell))
	r.Get("/", h.get)
	r.Delete("/", h.clear)
	r.Post("/lines", h.add)
	r.Patch("/lines/{id}", h.change)
	r.Delete("/lines/{id}", h.remove)
}

type addRequest struct {
	ProductID string `json:"productId"`
}

type changeRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), userID(r))
	h.respond(w, "view cart", view, err)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Clear(r.Context(), userID(r))
	h.respond(w, "clear cart", view, err)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.Add(r.Context(), userID(r), req.ProductID)
	h.respond(w, "add to cart", view, err)
}

func (h *Handler) change(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.ChangeQuantity(r.Context(), userID(r), chi.URLParam(r, "id"), req.Delta)
	h.respond(w, "change quantity", view, err)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Remove(r.Context(), userID(r), chi.URLParam(r, "id"))
	h.respond(w, "remove line", view, err)
}

func (h *Handler) respond(w http.ResponseWriter, op string, view View, err error) {
	switch {
	case err == nil:
		if view.Lines == nil {
			view.Lines = []Line{}
		}
		httpx.JSON(w, http.StatusOK, view)
	case errors.Is(err, ErrUnknownProduct):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Product not found")
	case errors.Is(err, ErrStockCeiling):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Stock Limit", "Not enough stock available")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func userID(r *http.Request) string {
	p, _ := shared.PrincipalFromContext(r.Context())
	return p.UserID
}
