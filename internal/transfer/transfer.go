// Package transfer exports store data and imports product lists.
package transfer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// MaxImportBytes bounds an import upload.
const MaxImportBytes = 8 << 20

var (
	// ErrUnknownCollection indicates an export of a collection that does not exist.
	ErrUnknownCollection = errors.New("transfer: unknown collection")
	// ErrUnknownFormat indicates an unsupported export format.
	ErrUnknownFormat = errors.New("transfer: unknown format")
	// ErrInvalidImport indicates the upload is neither an array nor an object with products.
	ErrInvalidImport = errors.New("transfer: invalid file format")
)

// ParseFormat accepts "json" and "csv"; empty means JSON.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Products lists and creates catalog entries.
type Products interface {
	List(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error)
	Create(ctx context.Context, actorID string, in catalog.Input) (catalog.Product, error)
}

// Bills lists the ledger.
type Bills interface {
	List(ctx context.Context, filter ledger.ListFilter) ([]ledger.Bill, error)
}

// Accounts lists users.
type Accounts interface {
	List(ctx context.Context, filter users.Filter) ([]users.User, error)
}

// Profiles loads the shop profile.
type Profiles interface {
	Get(ctx context.Context) (shop.Profile, error)
}

// Export is the full data dump.
type Export struct {
	Products   []catalog.Product `json:"products"`
	Bills      []ledger.Bill     `json:"bills"`
	Settings   shop.Profile      `json:"settings"`
	ExportedAt time.Time         `json:"exportedAt"`
}

// ImportResult counts the outcome of a product import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Service implements export and import.
type Service struct {
	products Products
	bills    Bills
	accounts Accounts
	profiles Profiles
	now      func() time.Time
}

// NewService constructs a Service. accounts may be nil, which hides the users collection.
func NewService(products Products, bills Bills, accounts Accounts, profiles Profiles) *Service {
	return &Service{products: products, bills: bills, accounts: accounts, profiles: profiles, now: time.Now}
}

// Collections lists the exportable collection names.
func (s *Service) Collections() []string {
	names := []string{"bills", "products", "shop"}
	if s.accounts != nil {
		names = append(names, "users")
	}
	return names
}

// ExportAll gathers products, bills and settings.
func (s *Service) ExportAll(ctx context.Context) (Export, error) {
	products, err := s.products.List(ctx, catalog.Filter{})
	if err != nil {
		return Export{}, fmt.Errorf("transfer: products: %w", err)
	}
	bills, err := s.bills.List(ctx, ledger.ListFilter{})
	if err != nil {
		return Export{}, fmt.Errorf("transfer: bills: %w", err)
	}
	profile, err := s.profiles.Get(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("transfer: settings: %w", err)
	}
	if products == nil {
		products = []catalog.Product{}
	}
	if bills == nil {
		bills = []ledger.Bill{}
	}
	return Export{Products: products, Bills: bills, Settings: profile, ExportedAt: s.now().UTC()}, nil
}

func (s *Service) documents(ctx context.Context, name string) (any, error) {
	switch name {
	case "products":
		return s.products.List(ctx, catalog.Filter{})
	case "bills":
		return s.bills.List(ctx, ledger.ListFilter{})
	case "shop", "settings":
		p, err := s.profiles.Get(ctx)
		return []shop.Profile{p}, err
	case "users":
		if s.accounts != nil {
			return s.accounts.List(ctx, users.Filter{})
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// ExportCollection writes one collection to w.
func (s *Service) ExportCollection(ctx context.Context, name string, format Format, w io.Writer) error {
	docs, err := s.documents(ctx, name)
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	case FormatCSV:
		rows, err := toRows(docs)
		if err != nil {
			return err
		}
		return WriteCSV(w, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// toRows flattens documents to their JSON object form.
func toRows(docs any) ([]map[string]any, error) {
	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// WriteCSV writes rows with a header made of every key, sorted. Nested values are JSON-encoded.
func WriteCSV(w io.Writer, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	keySet := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			keySet[k] = struct{}{}
		}
	}
	headers := make([]string, 0, len(keySet))
	for k := range keySet {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			cell, err := csvCell(row[h])
			if err != nil {
				return err
			}
			record[i] = cell
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v any) (string, error) {
	switch v.(type) {
	case nil:
		return "", nil
	case map[string]any, []any:
		b, err := json.Marshal(v)
		return string(b), err
	default:
		return cast.ToStringE(v)
	}
}

// ImportProducts creates every product in r. The body is either a bare array or
// an object with a products array; numeric strings are accepted for price and quantity.
func (s *Service) ImportProducts(ctx context.Context, actorID string, r io.Reader) (ImportResult, error) {
	dec := json.NewDecoder(io.LimitReader(r, MaxImportBytes))
	dec.UseNumber()
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	items, err := productDocs(raw)
	if err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{}
	for i, doc := range items {
		in, err := coerceInput(doc)
		if err == nil {
			_, err = s.products.Create(ctx, actorID, in)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("product %d: %v", i+1, err))
			continue
		}
		result.Imported++
	}
	return result, nil
}

func productDocs(raw json.RawMessage) ([]map[string]any, error) {
	decode := func(b []byte, target any) error {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		return dec.Decode(target)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []map[string]any
		if err := decode(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
		return items, nil
	}
	var wrapper struct {
		Products []map[string]any `json:"products"`
	}
	if err := decode(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if wrapper.Products == nil {
		return nil, fmt.Errorf("%w: no products array", ErrInvalidImport)
	}
	return wrapper.Products, nil
}

func coerceInput(doc map[string]any) (catalog.Input, error) {
	in := catalog.Input{
		Name:     cast.ToString(doc["name"]),
		SKU:      cast.ToString(doc["sku"]),
		Category: cast.ToString(doc["category"]),
		Barcode:  cast.ToString(doc["barcode"]),
	}
	if raw := strings.TrimSpace(cast.ToString(doc["price"])); raw != "" {
		price, err := cast.ToFloat64E(raw)
		if err != nil {
			return catalog.Input{}, fmt.Errorf("price %q is not a number", raw)
		}
		in.Price = price
	}
	if raw := strings.TrimSpace(cast.ToString(doc["quantity"])); raw != "" {
		qty, err := cast.ToFloat64E(raw)
		if err != nil || qty != math.Trunc(qty) {
			return catalog.Input{}, fmt.Errorf("quantity %q is not a whole number", raw)
		}
		in.Quantity = int(qty)
	}
	return in, nil
}
