package cart

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(id string, qty int) *ProductSnapshot {
	return &ProductSnapshot{ID: id, Name: "P-" + id, Price: 10, Quantity: qty}
}

func TestAddAppendsThenIncrements(t *testing.T) {
	c, err := Cart{}.Add(snap("a", 2))
	require.NoError(t, err)
	c, err = c.Add(snap("a", 2))
	require.NoError(t, err)

	line, ok := c.Line("a")
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 2, line.MaxQuantity)

	same, err := c.Add(snap("a", 2))
	require.ErrorIs(t, err, ErrStockCeiling)
	assert.Equal(t, c.Lines(), same.Lines())
}

func TestAddRejectsUnknownAndOutOfStock(t *testing.T) {
	_, err := Cart{}.Add(nil)
	require.ErrorIs(t, err, ErrUnknownProduct)
	_, err = Cart{}.Add(&ProductSnapshot{})
	require.ErrorIs(t, err, ErrUnknownProduct)

	c, err := Cart{}.Add(snap("a", 0))
	require.ErrorIs(t, err, ErrStockCeiling)
	assert.True(t, c.IsEmpty())
}

func TestMutationsDoNotAlterReceiver(t *testing.T) {
	base, err := Cart{}.Add(snap("a", 5))
	require.NoError(t, err)
	next, err := base.ChangeQuantity("a", 2)
	require.NoError(t, err)

	l, _ := base.Line("a")
	assert.Equal(t, 1, l.Quantity)
	l, _ = next.Line("a")
	assert.Equal(t, 3, l.Quantity)

	lines := next.Lines()
	lines[0].Quantity = 99
	l, _ = next.Line("a")
	assert.Equal(t, 3, l.Quantity)
}

func TestChangeQuantity(t *testing.T) {
	c, _ := Cart{}.Add(snap("a", 3))
	c, _ = c.Add(snap("b", 1))

	_, err := c.ChangeQuantity("a", 3)
	require.ErrorIs(t, err, ErrStockCeiling)

	kept, err := c.ChangeQuantity("a", math.MaxInt)
	require.ErrorIs(t, err, ErrStockCeiling)
	l, ok := kept.Line("a")
	require.True(t, ok)
	assert.Equal(t, 1, l.Quantity)

	gone, err := c.ChangeQuantity("a", math.MinInt)
	require.NoError(t, err)
	_, ok = gone.Line("a")
	assert.False(t, ok)

	c, err = c.ChangeQuantity("a", 2)
	require.NoError(t, err)
	l, _ = c.Line("a")
	assert.Equal(t, 3, l.Quantity)

	c, err = c.ChangeQuantity("a", -3)
	require.NoError(t, err)
	_, ok = c.Line("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	same, err := c.ChangeQuantity("missing", 1)
	require.NoError(t, err)
	assert.Equal(t, c.Lines(), same.Lines())
}

func TestRemoveAndClear(t *testing.T) {
	c, _ := Cart{}.Add(snap("a", 3))
	c, _ = c.Add(snap("b", 3))
	c = c.Remove("a").Remove("missing")
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "b", c.Lines()[0].ProductID)
	assert.True(t, c.Clear().IsEmpty())
}

func TestNewDropsInvalidLines(t *testing.T) {
	c := New([]Line{{ProductID: "a", Quantity: 1, MaxQuantity: 2}, {ProductID: "b", Quantity: 0}, {Quantity: 3}})
	assert.Equal(t, 1, c.Len())
}

// Random operation sequences must keep every line within 1..MaxQuantity.
func TestQuantityBoundsHoldUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	ids := []string{"a", "b", "c", "d"}
	for run := 0; run < 200; run++ {
		c := Cart{}
		for step := 0; step < 60; step++ {
			id := ids[rng.IntN(len(ids))]
			switch rng.IntN(4) {
			case 0, 1:
				c, _ = c.Add(snap(id, rng.IntN(6)))
			case 2:
				c, _ = c.ChangeQuantity(id, rng.IntN(9)-4)
			default:
				c = c.Remove(id)
			}
			seen := map[string]bool{}
			for _, l := range c.Lines() {
				require.False(t, seen[l.ProductID], "duplicate line %s", l.ProductID)
				seen[l.ProductID] = true
				require.GreaterOrEqual(t, l.Quantity, 1)
				require.LessOrEqual(t, l.Quantity, l.MaxQuantity)
			}
		}
	}
}
