package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-pos/internal/auth"
	"github.com/odyssey-erp/odyssey-pos/internal/backup"
	"github.com/odyssey-erp/odyssey-pos/internal/cart"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
	"github.com/odyssey-erp/odyssey-pos/internal/dashboard"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/preferences"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
	"github.com/odyssey-erp/odyssey-pos/internal/transfer"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
	"github.com/odyssey-erp/odyssey-pos/jobs"
	"github.com/odyssey-erp/odyssey-pos/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Auth           *auth.Service
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	CartHandler        *cart.Handler
	CheckoutHandler    *checkout.Handler
	PreferencesHandler *preferences.Handler
	CatalogHandler     *catalog.Handler
	LedgerHandler      *ledger.Handler
	DashboardHandler   *dashboard.Handler
	ReportsHandler     *reports.Handler
	UsersHandler       *users.Handler
	ShopHandler        *shop.Handler
	TransferHandler    *transfer.Handler
	BackupHandler      *backup.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	// LiveFeed serves the WebSocket endpoint. It bypasses the request timeout.
	LiveFeed http.Handler
}

// NewRouter constructs the chi.Router with POS defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Auth:           params.Auth,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	timeout := RequestTimeout(params.Config)
	compress := chimw.Compress(5)

	r.Route("/api", func(r chi.Router) {
		if params.LiveFeed != nil {
			r.With(params.RBACMiddleware.RequireAuth).Handle("/live", params.LiveFeed)
		}
		r.Group(func(r chi.Router) {
			r.Use(timeout, compress)
			mount(r, "/cart", params.CartHandler)
			mount(r, "/checkout", params.CheckoutHandler)
			if params.PreferencesHandler != nil {
				r.Route("/preferences", func(r chi.Router) {
					r.Use(params.RBACMiddleware.RequireAuth)
					params.PreferencesHandler.MountRoutes(r)
				})
			}
			mount(r, "/products", params.CatalogHandler)
			if params.CatalogHandler != nil {
				r.Route("/barcodes", params.CatalogHandler.MountBarcodeRoutes)
			}
			mount(r, "/bills", params.LedgerHandler)
			mount(r, "/dashboard", params.DashboardHandler)
			mount(r, "/reports", params.ReportsHandler)
			mount(r, "/users", params.UsersHandler)
			mount(r, "/settings", params.ShopHandler)
			mount(r, "/data", params.TransferHandler)
			mount(r, "/backups", params.BackupHandler)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(timeout, compress)
		mount(r, "/auth", params.AuthHandler)
		mount(r, "/jobs", params.JobHandler)
		mount(r, "/report", params.ReportHandler)
	})

	return r
}

type routeMounter interface {
	MountRoutes(r chi.Router)
}

// mount skips handlers that were not wired.
func mount[H interface {
	*T
	routeMounter
}, T any](r chi.Router, pattern string, h H) {
	if h == nil {
		return
	}
	r.Route(pattern, h.MountRoutes)
}
