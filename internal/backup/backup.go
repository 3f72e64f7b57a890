// Package backup snapshots the store collections to object storage and restores them.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/objectstore"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
)

const (
	// ManifestKey is the sorted set of backup entries scored by unix time.
	ManifestKey = "pos:backups"
	// DefaultRetention keeps four weekly backups.
	DefaultRetention = 28 * 24 * time.Hour
	keyPrefix        = "backups/"
	timestampLayout  = "20060102T150405Z"
)

var (
	// ErrNotFound indicates the backup id is not in the manifest.
	ErrNotFound = errors.New("backup: not found")
	// ErrForbidden indicates the actor may not restore.
	ErrForbidden = errors.New("backup: only admins can restore backups")
)

// Entry is one manifest row.
type Entry struct {
	ID        string         `json:"id"`
	Key       string         `json:"key"`
	Timestamp time.Time      `json:"timestamp"`
	Counts    map[string]int `json:"counts"`
	Size      int            `json:"size"`
}

// UserRecord keeps the password hash that users.User hides from JSON.
type UserRecord struct {
	users.User
	PasswordHash string `json:"passwordHash"`
}

// Data holds the snapshotted collections.
type Data struct {
	Products []catalog.Product `json:"products"`
	Bills    []ledger.Bill     `json:"bills"`
	Users    []UserRecord      `json:"users"`
	Shop     shop.Profile      `json:"shop"`
}

// Snapshot is the document written to object storage.
type Snapshot struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Data      Data      `json:"data"`
}

// Products is the catalog port used by backups.
type Products interface {
	List(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error)
	Upsert(ctx context.Context, p catalog.Product) error
}

// Bills is the ledger port used by backups.
type Bills interface {
	List(ctx context.Context, filter ledger.ListFilter) ([]ledger.Bill, error)
	Upsert(ctx context.Context, b ledger.Bill) error
}

// Accounts is the user port used by backups.
type Accounts interface {
	List(ctx context.Context, filter users.Filter) ([]users.User, error)
	Upsert(ctx context.Context, u users.User) error
}

// Profiles reads and merges the shop profile.
type Profiles interface {
	Get(ctx context.Context) (shop.Profile, error)
	Save(ctx context.Context, patch shop.Patch) (shop.Profile, error)
}

// Deps wires a Service.
type Deps struct {
	Store    objectstore.Store
	Redis    *redis.Client
	Products Products
	Bills    Bills
	Accounts Accounts
	Profiles Profiles
	Audit    shared.AuditRecorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// Service runs backups.
type Service struct {
	deps Deps
}

// NewService constructs a Service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// Snapshot collects every collection.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	products, err := s.deps.Products.List(ctx, catalog.Filter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("backup: products: %w", err)
	}
	bills, err := s.deps.Bills.List(ctx, ledger.ListFilter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("backup: bills: %w", err)
	}
	accounts, err := s.deps.Accounts.List(ctx, users.Filter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("backup: users: %w", err)
	}
	profile, err := s.deps.Profiles.Get(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("backup: shop: %w", err)
	}
	records := make([]UserRecord, 0, len(accounts))
	for _, u := range accounts {
		records = append(records, UserRecord{User: u, PasswordHash: u.PasswordHash})
	}
	if products == nil {
		products = []catalog.Product{}
	}
	if bills == nil {
		bills = []ledger.Bill{}
	}
	return Snapshot{
		ID:        uuid.NewString(),
		Timestamp: s.deps.Now().UTC(),
		Data:      Data{Products: products, Bills: bills, Users: records, Shop: profile},
	}, nil
}

// Run writes a snapshot to backups/<timestamp>-<id>.json and records it in the manifest.
func (s *Service) Run(ctx context.Context) (Entry, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Entry{}, err
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return Entry{}, fmt.Errorf("backup: encode: %w", err)
	}
	entry := Entry{
		ID:        snap.ID,
		Key:       keyPrefix + snap.Timestamp.Format(timestampLayout) + "-" + snap.ID + ".json",
		Timestamp: snap.Timestamp,
		Size:      len(body),
		Counts: map[string]int{
			"products": len(snap.Data.Products),
			"bills":    len(snap.Data.Bills),
			"users":    len(snap.Data.Users),
			"shop":     1,
		},
	}
	if err := s.deps.Store.Put(ctx, entry.Key, body, "application/json"); err != nil {
		return Entry{}, err
	}
	row, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, err
	}
	if err := s.deps.Redis.ZAdd(ctx, ManifestKey, redis.Z{Score: float64(entry.Timestamp.Unix()), Member: string(row)}).Err(); err != nil {
		return Entry{}, fmt.Errorf("backup: manifest: %w", err)
	}
	s.deps.Logger.Info("backup written", slog.String("backup_id", entry.ID), slog.String("key", entry.Key), slog.Int("bytes", entry.Size))
	return entry, nil
}

func decodeRows(rows []string) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var e Entry
		if err := json.Unmarshal([]byte(row), &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// List returns the manifest, newest first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.deps.Redis.ZRevRange(ctx, ManifestKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}
	return decodeRows(rows), nil
}

// Prune deletes backups taken before cutoff and returns how many were removed.
func (s *Service) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.deps.Redis.ZRangeByScore(ctx, ManifestKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("backup: prune scan: %w", err)
	}
	removed := 0
	for _, row := range rows {
		var e Entry
		if err := json.Unmarshal([]byte(row), &e); err == nil {
			if err := s.deps.Store.Delete(ctx, e.Key); err != nil {
				return removed, err
			}
		}
		if err := s.deps.Redis.ZRem(ctx, ManifestKey, row).Err(); err != nil {
			return removed, fmt.Errorf("backup: prune manifest: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *Service) find(ctx context.Context, id string) (Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Load reads the snapshot behind id.
func (s *Service) Load(ctx context.Context, id string) (Snapshot, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	body, err := s.deps.Store.Get(ctx, entry.Key)
	if errors.Is(err, objectstore.ErrNotFound) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("backup: decode %s: %w", entry.Key, err)
	}
	return snap, nil
}

// Restore merges backup id into the live stores. Documents are upserted by id;
// records created after the backup are kept.
func (s *Service) Restore(ctx context.Context, actor shared.Principal, id string) (map[string]int, error) {
	if !rbac.Can(rbac.ParseRole(actor.Role), shared.PermBackupRestore) {
		return nil, ErrForbidden
	}
	snap, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, p := range snap.Data.Products {
		if err := s.deps.Products.Upsert(ctx, p); err != nil {
			return counts, fmt.Errorf("backup: restore product %s: %w", p.ID, err)
		}
		counts["products"]++
	}
	for _, b := range snap.Data.Bills {
		if err := s.deps.Bills.Upsert(ctx, b); err != nil {
			return counts, fmt.Errorf("backup: restore bill %s: %w", b.ID, err)
		}
		counts["bills"]++
	}
	for _, rec := range snap.Data.Users {
		u := rec.User
		u.PasswordHash = rec.PasswordHash
		if err := s.deps.Accounts.Upsert(ctx, u); err != nil {
			return counts, fmt.Errorf("backup: restore user %s: %w", u.ID, err)
		}
		counts["users"]++
	}
	if _, err := s.deps.Profiles.Save(ctx, profilePatch(snap.Data.Shop)); err != nil {
		return counts, fmt.Errorf("backup: restore shop: %w", err)
	}
	counts["shop"] = 1

	shared.RecordAudit(ctx, s.deps.Audit, s.deps.Logger, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "backup.restore",
		Entity:   "backup",
		EntityID: id,
		Meta:     map[string]any{"counts": counts},
		At:       s.deps.Now().UTC(),
	})
	return counts, nil
}

// profilePatch sets only the fields the backup carries.
func profilePatch(p shop.Profile) shop.Patch {
	var patch shop.Patch
	set := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}
	patch.Name = set(p.Name)
	patch.Address = set(p.Address)
	patch.Phone = set(p.Phone)
	patch.Email = set(p.Email)
	patch.GSTNumber = set(p.GSTNumber)
	return patch
}
