package ledger_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger/ledgertest"
)

func sampleBill(id string, at time.Time) ledger.Bill {
	return ledger.Bill{
		ID:            id,
		Items:         []ledger.Item{{Name: "Soap", Price: 100, Quantity: 2}},
		Subtotal:      200,
		Tax:           36,
		GSTApplied:    true,
		Total:         236,
		Paid:          250,
		Change:        14,
		PaymentMethod: ledger.PaymentCash,
		CreatedAt:     at,
	}
}

func TestValidate(t *testing.T) {
	now := time.Now()
	require.NoError(t, sampleBill("b1", now).Validate())

	b := sampleBill("b1", now)
	b.Paid = 200
	b.Change = -36
	require.ErrorIs(t, b.Validate(), ledger.ErrInvalidBill)

	b = sampleBill("b1", now)
	b.Tax = 0
	require.ErrorIs(t, b.Validate(), ledger.ErrInvalidBill)

	b = sampleBill("b1", now)
	b.GSTApplied = false
	b.Tax = 0
	b.Total = 200
	b.Change = 50
	require.NoError(t, b.Validate())

	b = sampleBill("b1", now)
	b.PaymentMethod = "cheque"
	require.ErrorIs(t, b.Validate(), ledger.ErrInvalidBill)
}

func TestShortCode(t *testing.T) {
	b := ledger.Bill{ID: "3f2a9c1e-aaaa-bbbb-cccc-0d9e8f7a6b5c"}
	assert.Equal(t, "7A6B5C", b.ShortCode(6))
	assert.Equal(t, "8F7A6B5C", b.ShortCode(8))
	assert.Equal(t, "AB", ledger.Bill{ID: "ab"}.ShortCode(6))
}

func TestWireShape(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	data, err := json.Marshal(sampleBill("b1", at))
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	for _, key := range []string{"id", "items", "subtotal", "tax", "gstApplied", "total", "paid", "change", "paymentMethod", "createdAt"} {
		assert.Contains(t, wire, key)
	}
	assert.Equal(t, "2026-03-01T10:30:00Z", wire["createdAt"])
	item := wire["items"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"name": "Soap", "price": 100.0, "quantity": 2.0}, item)
}

func TestServiceOrdering(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := ledgertest.New()
	svc := ledger.NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, sampleBill("b2", base.Add(2*time.Hour))))
	require.NoError(t, svc.Append(ctx, sampleBill("b1", base)))
	require.NoError(t, svc.Append(ctx, sampleBill("b3", base.Add(26*time.Hour))))

	bad := sampleBill("b4", base)
	bad.Total = 1
	require.ErrorIs(t, svc.Append(ctx, bad), ledger.ErrInvalidBill)
	assert.Equal(t, 3, repo.Count())

	all, err := svc.List(ctx, ledger.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b1", "b2", "b3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	day, err := svc.List(ctx, ledger.ListFilter{From: base, To: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, day, 2)

	recent, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "b3", recent[0].ID)
	assert.Equal(t, "b2", recent[1].ID)

	_, err = svc.Get(ctx, "nope")
	require.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = svc.List(ctx, ledger.ListFilter{From: base, To: base})
	require.ErrorIs(t, err, ledger.ErrInvalidBill)
}

func TestListLimitKeepsNewestBills(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := ledgertest.New()
	svc := ledger.NewService(repo)
	ctx := context.Background()

	total := ledger.DefaultListLimit + 1
	for i := 0; i < total; i++ {
		require.NoError(t, svc.Append(ctx, sampleBill(fmt.Sprintf("b%04d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	bills, err := svc.List(ctx, ledger.ListFilter{Limit: ledger.DefaultListLimit})
	require.NoError(t, err)
	require.Len(t, bills, ledger.DefaultListLimit)
	assert.Equal(t, "b0001", bills[0].ID)
	assert.Equal(t, fmt.Sprintf("b%04d", total-1), bills[len(bills)-1].ID)
	for i := 1; i < len(bills); i++ {
		assert.True(t, bills[i-1].CreatedAt.Before(bills[i].CreatedAt))
	}

	window, err := svc.List(ctx, ledger.ListFilter{To: base.Add(10 * time.Minute), Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"b0007", "b0008", "b0009"}, []string{window[0].ID, window[1].ID, window[2].ID})
}
