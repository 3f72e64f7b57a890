package checkout

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// IdempotencyHeader carries an optional client generated submission key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes the checkout API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers checkout routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermSell))
	r.Get("/review", h.review)
	r.Post("/", h.submit)
	r.Get("/last", h.last)
}

type submitRequest struct {
	Paid          float64 `json:"paid" validate:"gte=0"`
	PaymentMethod string  `json:"paymentMethod" validate:"omitempty,oneof=cash card upi"`
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	review, err := h.service.Review(r.Context(), userID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, review)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "PaymentMethod" {
			h.fail(w, ErrInvalidPaymentMethod)
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationMessage(err))
		return
	}
	result, err := h.service.Checkout(r.Context(), Request{
		UserID:         userID(r),
		Payment:        Payment{Amount: req.Paid, Method: req.PaymentMethod},
		IdempotencyKey: strings.TrimSpace(r.Header.Get(IdempotencyHeader)),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	if result.Skipped == nil {
		result.Skipped = []SkippedLine{}
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) last(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.LastBill(r.Context(), userID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCartEmpty):
		httpx.Problem(w, http.StatusBadRequest, "Cart Empty", "Cart is empty")
	case errors.Is(err, ErrInsufficientPayment):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Payment", err.Error())
	case errors.Is(err, ErrInvalidPaymentMethod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "paymentMethod must be cash, card or upi")
	case errors.Is(err, ErrDuplicateSubmission):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "this checkout was already submitted")
	case errors.Is(err, ErrNoLastBill):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no recent bill")
	default:
		h.logger.Error("checkout", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Error processing checkout")
	}
}

func userID(r *http.Request) string {
	p, _ := shared.PrincipalFromContext(r.Context())
	return p.UserID
}
