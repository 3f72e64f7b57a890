package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/barcode"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler exposes the product API.
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

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSell, shared.PermInventoryManage))
		r.Get("/", h.list)
		r.Get("/categories", h.categories)
		r.Get("/barcode/{code}", h.byBarcode)
		r.Get("/{id}", h.get)
		r.Get("/{id}/barcode.svg", h.barcodeSVG)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermInventoryManage))
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

// MountBarcodeRoutes registers the standalone barcode generator.
func (h *Handler) MountBarcodeRoutes(r chi.Router) {
	r.With(h.rbac.RequireAll(shared.PermInventoryManage)).Post("/generate", h.generateBarcode)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Stock:    ParseStockLevel(q.Get("stock")),
	}
	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		h.fail(w, "list categories", err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) byBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.FindByBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, "lookup barcode", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) barcodeSVG(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "barcode product", err)
		return
	}
	if p.Barcode == "" {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "product has no barcode")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := barcode.Code128SVG(w, p.Barcode, barcode.Options{ShowText: true}); err != nil {
		h.logger.Error("render barcode", slog.String("product_id", p.ID), slog.Any("error", err))
	}
}

func (h *Handler) generateBarcode(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"barcode": barcode.Generate(nil)})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), actorID(r), in)
	if err != nil {
		h.fail(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := httpx.DecodeJSON(w, r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), actorID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
	case errors.Is(err, ErrInvalidProduct):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationMessage(err))
	case errors.Is(err, ErrDuplicateBarcode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "barcode already assigned to another product")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func actorID(r *http.Request) string {
	p, _ := shared.PrincipalFromContext(r.Context())
	return p.UserID
}
