package reports

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/charts"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler exposes the reports API.
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

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReportsView))
		r.Get("/summary", h.summary)
		r.Get("/analytics", h.analytics)
		r.Get("/daily", h.daily)
		r.Get("/trend.svg", h.trendSVG)
		r.Get("/hourly.svg", h.hourlySVG)
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.SalesSummary(r.Context())
	if err != nil {
		h.fail(w, "sales summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

// window reads ?from=&to= (YYYY-MM-DD) or ?days=.
func (h *Handler) window(r *http.Request) (Window, error) {
	q := r.URL.Query()
	if from, to := q.Get("from"), q.Get("to"); from != "" || to != "" {
		loc := h.service.Location()
		start, err := time.ParseInLocation("2006-01-02", from, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidWindow)
		}
		end, err := time.ParseInLocation("2006-01-02", to, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidWindow)
		}
		return h.service.Dates(start, end)
	}
	days := 0
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Window{}, fmt.Errorf("%w: days must be a positive integer", ErrInvalidWindow)
		}
		days = n
	}
	return h.service.LastDays(days)
}

func (h *Handler) loadAnalytics(w http.ResponseWriter, r *http.Request) (Analytics, bool) {
	win, err := h.window(r)
	if err != nil {
		h.fail(w, "analytics window", err)
		return Analytics{}, false
	}
	a, err := h.service.Analytics(r.Context(), win)
	if err != nil {
		h.fail(w, "analytics", err)
		return Analytics{}, false
	}
	return a, true
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	if a, ok := h.loadAnalytics(w, r); ok {
		httpx.JSON(w, http.StatusOK, a)
	}
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.service.Location())
		if err != nil {
			h.fail(w, "daily report", fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidWindow))
			return
		}
		day = parsed
	}
	rep, err := h.service.DailyReport(r.Context(), day)
	if err != nil {
		h.fail(w, "daily report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) trendSVG(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAnalytics(w, r)
	if !ok {
		return
	}
	series := make([]float64, len(a.Trend))
	labels := make([]string, len(a.Trend))
	for i, p := range a.Trend {
		series[i] = p.Revenue
		if t, err := time.Parse("2006-01-02", p.Date); err == nil {
			labels[i] = t.Format("02 Jan")
		} else {
			labels[i] = p.Date
		}
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := charts.Line(w, 0, 0, series, labels, charts.Options{
		Title:       "Daily revenue",
		Description: fmt.Sprintf("Revenue per day, %d days", len(series)),
		ShowDots:    len(series) <= 31,
	}); err != nil {
		h.logger.Error("render trend chart", slog.Any("error", err))
	}
}

func (h *Handler) hourlySVG(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAnalytics(w, r)
	if !ok {
		return
	}
	labels := make([]string, len(a.Hourly))
	for i := range labels {
		labels[i] = fmt.Sprintf("%02d", i)
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := charts.Bars(w, 0, 0, a.Hourly[:], labels, charts.Options{
		Title:       "Sales by hour",
		Description: "Revenue by hour of day",
	}); err != nil {
		h.logger.Error("render hourly chart", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrInvalidWindow) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
