package transfer

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog/catalogtest"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
)

type staticProfile shop.Profile

func (p staticProfile) Get(context.Context) (shop.Profile, error) { return shop.Profile(p), nil }

func newService(t *testing.T) (*Service, *catalogtest.Repository) {
	t.Helper()
	repo := catalogtest.New(catalog.Product{ID: "p1", Name: "Pen", SKU: "PEN", Price: 10, Quantity: 40})
	bills := ledgertest.New(ledger.Bill{
		ID: "b1", Items: []ledger.Item{{Name: "Pen", Price: 10, Quantity: 2}},
		Subtotal: 20, Total: 20, Paid: 20, PaymentMethod: ledger.PaymentCash,
		CreatedAt: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	})
	svc := NewService(catalog.NewService(repo, nil), bills, nil, staticProfile{Name: "Corner Mart"})
	svc.now = func() time.Time { return time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestExportAll(t *testing.T) {
	svc, _ := newService(t)
	data, err := svc.ExportAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Products, 1)
	assert.Len(t, data.Bills, 1)
	assert.Equal(t, "Corner Mart", data.Settings.Name)
	assert.Equal(t, "2026-04-02", data.ExportedAt.Format(time.DateOnly))
}

func TestExportCSVUsesSortedKeyUnion(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []map[string]any{
		{"name": "a", "qty": 1},
		{"name": "b", "extra": map[string]any{"k": "v"}, "tags": []any{"x"}},
	})
	require.NoError(t, err)
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"extra", "name", "qty", "tags"}, records[0])
	assert.Equal(t, []string{"", "a", "1", ""}, records[1])
	assert.Equal(t, []string{`{"k":"v"}`, "b", "", `["x"]`}, records[2])
}

func TestExportCollectionBillsCSV(t *testing.T) {
	svc, _ := newService(t)
	var buf bytes.Buffer
	require.NoError(t, svc.ExportCollection(context.Background(), "bills", FormatCSV, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	idx := map[string]int{}
	for i, h := range records[0] {
		idx[h] = i
	}
	assert.Equal(t, "b1", records[1][idx["id"]])
	assert.Equal(t, "20", records[1][idx["total"]])
	assert.JSONEq(t, `[{"name":"Pen","price":10,"quantity":2}]`, records[1][idx["items"]])

	err = svc.ExportCollection(context.Background(), "users", FormatJSON, &buf)
	require.ErrorIs(t, err, ErrUnknownCollection)
}

func TestImportProductsCoercesValues(t *testing.T) {
	svc, repo := newService(t)
	body := `{"products":[
		{"name":"Tea","price":"120.50","quantity":"12","sku":"tea"},
		{"name":"Rice","price":55,"quantity":3.0,"barcode":8901234567890},
		{"name":"","price":1},
		{"name":"Bad","price":"abc"},
		{"name":"Half","quantity":"1.5"}
	]}`
	result, err := svc.ImportProducts(context.Background(), "u1", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 3, result.Failed)
	assert.Len(t, result.Errors, 3)

	all, err := repo.List(context.Background(), catalog.Filter{Search: "tea"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.InDelta(t, 120.5, all[0].Price, 1e-9)
	assert.Equal(t, 12, all[0].Quantity)
	assert.Equal(t, "TEA", all[0].SKU)

	rice, err := repo.FindByBarcode(context.Background(), "8901234567890")
	require.NoError(t, err)
	assert.Equal(t, "Rice", rice.Name)
}

func TestImportAcceptsBareArrayAndRejectsGarbage(t *testing.T) {
	svc, _ := newService(t)
	result, err := svc.ImportProducts(context.Background(), "u1", strings.NewReader(`[{"name":"Soap","price":30,"quantity":5}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	_, err = svc.ImportProducts(context.Background(), "u1", strings.NewReader(`{"items":[]}`))
	require.ErrorIs(t, err, ErrInvalidImport)
	_, err = svc.ImportProducts(context.Background(), "u1", strings.NewReader(`not json`))
	require.ErrorIs(t, err, ErrInvalidImport)
}

func TestHandlerPermissions(t *testing.T) {
	svc, _ := newService(t)
	router := chi.NewRouter()
	NewHandler(nil, svc, rbac.Middleware{Service: rbac.NewService(nil)}).MountRoutes(router)

	do := func(role, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: "u", Role: role}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, do("Cashier", http.MethodGet, "/export", "").Code)
	rec := do("Admin", http.MethodGet, "/export/products?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusBadRequest, do("Admin", http.MethodGet, "/export/products?format=xml", "").Code)
	assert.Equal(t, http.StatusNotFound, do("Admin", http.MethodGet, "/export/nope", "").Code)
	assert.Equal(t, http.StatusBadRequest, do("Admin", http.MethodPost, "/import", "{").Code)
	assert.Equal(t, http.StatusOK, do("Admin", http.MethodPost, "/import", `[{"name":"Soap"}]`).Code)
}
