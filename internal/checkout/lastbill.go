package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
)

// ErrNoLastBill is returned when the user has not completed a sale recently.
var ErrNoLastBill = errors.New("checkout: no recent bill")

// LastBillStore remembers the most recent bill per user for reprinting.
type LastBillStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLastBillStore constructs the store.
func NewLastBillStore(client *redis.Client, ttl time.Duration) *LastBillStore {
	return &LastBillStore{client: client, ttl: ttl}
}

func lastBillKey(userID string) string {
	return "pos:lastbill:" + userID
}

// Set stores bill as the user's last bill.
func (s *LastBillStore) Set(ctx context.Context, userID string, bill ledger.Bill) error {
	data, err := json.Marshal(bill)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, lastBillKey(userID), data, s.ttl).Err()
}

// Get returns the user's last bill.
func (s *LastBillStore) Get(ctx context.Context, userID string) (ledger.Bill, error) {
	raw, err := s.client.Get(ctx, lastBillKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ledger.Bill{}, ErrNoLastBill
	}
	if err != nil {
		return ledger.Bill{}, fmt.Errorf("checkout: last bill: %w", err)
	}
	var bill ledger.Bill
	if err := json.Unmarshal(raw, &bill); err != nil {
		return ledger.Bill{}, fmt.Errorf("checkout: decode last bill: %w", err)
	}
	return bill, nil
}
