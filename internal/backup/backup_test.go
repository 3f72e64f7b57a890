package backup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog/catalogtest"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/objectstore"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
	"github.com/odyssey-erp/odyssey-pos/internal/users/userstest"
)

type shopRepo struct{ profile *shop.Profile }

func (m *shopRepo) Load(context.Context) (shop.Profile, error) {
	if m.profile == nil {
		return shop.Profile{}, shop.ErrNotConfigured
	}
	return *m.profile, nil
}

func (m *shopRepo) Store(_ context.Context, p shop.Profile) error {
	m.profile = &p
	return nil
}

type fixture struct {
	svc      *Service
	store    *objectstore.Memory
	products *catalogtest.Repository
	bills    *ledgertest.Repository
	accounts *userstest.Repository
	shop     *shop.Service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		store:    objectstore.NewMemory(),
		products: catalogtest.New(catalog.Product{ID: "p1", Name: "Pen", Price: 10, Quantity: 40}),
		bills:    ledgertest.New(ledger.Bill{ID: "b1", Items: []ledger.Item{{Name: "Pen", Price: 10, Quantity: 1}}, Subtotal: 10, Total: 10, Paid: 10, PaymentMethod: ledger.PaymentCash, CreatedAt: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}),
		accounts: userstest.New(users.User{ID: "u1", Name: "Asha", Email: "asha@shop.test", PasswordHash: "$2a$hash", Role: rbac.RoleAdmin, Status: users.StatusActive}),
		shop:     shop.NewService(&shopRepo{profile: &shop.Profile{Name: "Corner Mart", Email: "owner@shop.test"}}),
		now:      time.Date(2026, 4, 5, 2, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		Store:    f.store,
		Redis:    client,
		Products: f.products,
		Bills:    f.bills,
		Accounts: f.accounts,
		Profiles: f.shop,
		Now:      func() time.Time { return f.now },
	})
	return f
}

var admin = shared.Principal{UserID: "u1", Role: string(rbac.RoleAdmin)}

func TestRunWritesObjectAndManifest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, entry.Key, "backups/20260405T020000Z-")
	assert.Equal(t, map[string]int{"products": 1, "bills": 1, "users": 1, "shop": 1}, entry.Counts)

	objs, err := f.store.List(ctx, "backups/")
	require.NoError(t, err)
	require.Len(t, objs, 1)

	entries, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)

	snap, err := f.svc.Load(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, snap.Data.Users, 1)
	assert.Equal(t, "$2a$hash", snap.Data.Users[0].PasswordHash)
}

func TestPruneRemovesOldBackups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.svc.Run(ctx)
	require.NoError(t, err)
	f.now = f.now.Add(30 * 24 * time.Hour)
	fresh, err := f.svc.Run(ctx)
	require.NoError(t, err)

	removed, err := f.svc.Prune(ctx, f.now.Add(-DefaultRetention))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh.ID, entries[0].ID)
	_, err = f.store.Get(ctx, old.Key)
	require.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestRestoreMergesDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.Run(ctx)
	require.NoError(t, err)

	_, err = f.products.SetQuantity(ctx, "p1", 3)
	require.NoError(t, err)
	_, err = f.products.Create(ctx, catalog.Product{ID: "p2", Name: "New", Quantity: 5})
	require.NoError(t, err)
	_, err = f.shop.Save(ctx, shop.Patch{Name: strPtr("Renamed"), Phone: strPtr("555")})
	require.NoError(t, err)

	counts, err := f.svc.Restore(ctx, admin, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["products"])

	assert.Equal(t, 40, f.products.Quantity("p1"))
	assert.Equal(t, 5, f.products.Quantity("p2"))
	profile, err := f.shop.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Corner Mart", profile.Name)
	assert.Equal(t, "555", profile.Phone)

	u, err := f.accounts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "$2a$hash", u.PasswordHash)
}

func TestRestoreGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.svc.Run(ctx)
	require.NoError(t, err)

	_, err = f.svc.Restore(ctx, shared.Principal{UserID: "c1", Role: string(rbac.RoleCashier)}, entry.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Restore(ctx, admin, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func strPtr(v string) *string { return &v }
