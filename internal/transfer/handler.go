package transfer

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler serves export and import.
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

// MountRoutes registers data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermSettingsManage))
		r.Get("/export", h.exportAll)
		r.Get("/export/{collection}", h.exportCollection)
		r.Post("/import", h.importProducts)
	})
}

func (h *Handler) exportAll(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportAll(r.Context())
	if err != nil {
		h.logger.Error("export all", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="store-backup-`+data.ExportedAt.Format(time.DateOnly)+`.json"`)
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) exportCollection(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "format must be json or csv")
		return
	}
	name := chi.URLParam(r, "collection")
	var buf bytes.Buffer
	if err := h.service.ExportCollection(r.Context(), name, format, &buf); err != nil {
		if errors.Is(err, ErrUnknownCollection) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("export collection", slog.String("collection", name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	contentType := "application/json"
	if format == FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.`+string(format)+`"`)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) importProducts(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	body := http.MaxBytesReader(w, r.Body, MaxImportBytes)
	result, err := h.service.ImportProducts(r.Context(), principal.UserID, body)
	if err != nil {
		if errors.Is(err, ErrInvalidImport) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Error importing data. Invalid file format.")
			return
		}
		h.logger.Error("import products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("products imported", slog.Int("imported", result.Imported), slog.Int("failed", result.Failed))
	httpx.JSON(w, http.StatusOK, result)
}
