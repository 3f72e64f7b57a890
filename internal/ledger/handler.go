package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// ReceiptRenderer turns a bill into a printable PDF.
type ReceiptRenderer interface {
	PDF(ctx context.Context, bill Bill) ([]byte, error)
}

// Handler exposes bill history.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	receipts ReceiptRenderer
	rbac     rbac.Middleware
}

// NewHandler builds Handler instance. receipts may be nil when PDF rendering is not configured.
func NewHandler(logger *slog.Logger, service *Service, receipts ReceiptRenderer, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, receipts: receipts, rbac: rbac}
}

// MountRoutes registers bill routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSell, shared.PermReportsView))
		r.Get("/{id}", h.get)
		r.Get("/{id}/receipt.pdf", h.receipt)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Limit: DefaultListLimit}
	var err error
	if raw := q.Get("from"); raw != "" {
		if filter.From, err = time.Parse(time.RFC3339, raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be RFC 3339")
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		if filter.To, err = time.Parse(time.RFC3339, raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be RFC 3339")
			return
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, DefaultListLimit)
	}
	bills, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list bills", err)
		return
	}
	if bills == nil {
		bills = []Bill{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get bill", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	if h.receipts == nil {
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnavailable, "receipt rendering not configured"))
		return
	}
	bill, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "receipt bill", err)
		return
	}
	pdf, err := h.receipts.PDF(r.Context(), bill)
	if err != nil {
		h.logger.Error("render receipt", slog.String("bill_id", bill.ID), slog.Any("error", err))
		httpx.RespondError(w, httpx.Wrap(httpx.ErrUnavailable, "receipt rendering failed"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="receipt-`+bill.ShortCode(8)+`.pdf"`)
	_, _ = w.Write(pdf)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "bill not found")
	case errors.Is(err, ErrInvalidBill):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
