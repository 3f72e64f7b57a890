package live

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublisherAfterCheckout(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()
	sub := client.Subscribe(ctx, Channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewPublisher(client)
	err = pub.AfterCheckout(ctx, checkout.Result{
		Bill:     ledger.Bill{ID: "b1", Total: 118, PaymentMethod: ledger.PaymentCard, Items: []ledger.Item{{Name: "Pen", Price: 50, Quantity: 2}}},
		LowStock: []catalog.Product{{ID: "p1", Name: "Pen", Quantity: 9}},
	})
	require.NoError(t, err)

	var got []map[string]any
	for i := 0; i < 2; i++ {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		got = append(got, ev)
	}
	assert.Equal(t, EventSale, got[0]["type"])
	assert.Equal(t, "b1", got[0]["payload"].(map[string]any)["billId"])
	assert.EqualValues(t, 2, got[0]["payload"].(map[string]any)["items"])
	assert.Equal(t, EventLowStock, got[1]["type"])
	assert.Equal(t, "p1", got[1]["payload"].(map[string]any)["productId"])
}

func TestHubFansOut(t *testing.T) {
	client := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(client, nil, nil)
	runErr := make(chan error, 1)
	go func() { runErr <- hub.Run(ctx) }()

	srv := httptest.NewServer(hub)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, NewPublisher(client).Publish(context.Background(), Event{Type: EventLowStock, Payload: StockPayload{ProductID: "p9", Name: "Ink", Quantity: 4}}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, EventLowStock, ev.Type)
	assert.False(t, ev.At.IsZero())

	cancel()
	select {
	case err := <-runErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
}
