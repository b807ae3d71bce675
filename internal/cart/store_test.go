package cart

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/angelmondragon/fitconnect-client/internal/notifications"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id int64, price int64) Product {
	return Product{ID: id, Name: "Product", Price: decimal.NewFromInt(price)}
}

func TestAddMergesLinesForSameProduct(t *testing.T) {
	t.Parallel()

	rec := &notifications.Recorder{}
	store := NewStore(WithNotifier(rec))

	require.NoError(t, store.Add(product(1, 100000), 1, ""))
	require.NoError(t, store.Add(product(1, 100000), 2, "XL"))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, DefaultSize, items[0].Size, "merging keeps the original size")

	notices := rec.Drain()
	require.Len(t, notices, 2)
	assert.Equal(t, notifications.LevelSuccess, notices[0].Level)
}

func TestAddDefaultsQuantityAndSize(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.Add(product(2, 5000), 0, " l "))
	line, ok := store.Line(2)
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, "L", line.Size)
}

func TestAddRejectsInvalidProduct(t *testing.T) {
	t.Parallel()

	store := NewStore()
	cases := []Product{
		{ID: 0, Name: "x", Price: decimal.NewFromInt(1)},
		{ID: 1, Name: "", Price: decimal.NewFromInt(1)},
		{ID: 1, Name: "x", Price: decimal.NewFromInt(-1)},
	}
	for _, p := range cases {
		err := store.Add(p, 1, "")
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	}
	assert.True(t, store.IsEmpty())
}

func TestSetQuantityBelowOneIsNoop(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.Add(product(1, 100), 3, ""))

	assert.False(t, store.SetQuantity(1, 0))
	assert.False(t, store.SetQuantity(1, -1))
	line, _ := store.Line(1)
	assert.Equal(t, 3, line.Quantity)

	assert.True(t, store.SetQuantity(1, 5))
	line, _ = store.Line(1)
	assert.Equal(t, 5, line.Quantity)

	assert.False(t, store.SetQuantity(99, 2), "unknown ids are ignored")
}

func TestSetQuantityLeavesOtherLinesUntouched(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.Add(product(1, 100), 1, "S"))
	require.NoError(t, store.Add(product(2, 200), 4, "L"))

	store.SetQuantity(1, 7)
	other, _ := store.Line(2)
	assert.Equal(t, 4, other.Quantity)
	assert.Equal(t, "L", other.Size)
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.Add(product(1, 100), 1, ""))
	require.NoError(t, store.Add(product(2, 100), 1, ""))

	assert.False(t, store.Remove(3))
	assert.True(t, store.Remove(1))
	assert.Len(t, store.Items(), 1)

	store.Clear()
	assert.True(t, store.IsEmpty())
	assert.Equal(t, 0, store.Count())
	assert.True(t, store.Subtotal().IsZero())
}

func TestSetSize(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.Add(product(1, 100), 1, ""))
	assert.True(t, store.SetSize(1, "xl"))
	assert.False(t, store.SetSize(1, "XL"))
	line, _ := store.Line(1)
	assert.Equal(t, "XL", line.Size)
}

func TestDerivedTotals(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.Add(product(1, 100000), 2, ""))
	require.NoError(t, store.Add(Product{ID: 2, Name: "Band", Price: decimal.RequireFromString("49999.50")}, 3, ""))

	assert.Equal(t, 5, store.Count())
	want := decimal.RequireFromString("349998.5")
	assert.True(t, store.Subtotal().Equal(want), "got %s", store.Subtotal())
	assert.True(t, store.Subtotal().Equal(store.Subtotal()), "repeated reads agree")
}

func TestItemsReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.Add(product(1, 100), 1, ""))
	items := store.Items()
	items[0].Quantity = 50
	line, _ := store.Line(1)
	assert.Equal(t, 1, line.Quantity)
}

func TestListenersSeeEveryEffectiveMutation(t *testing.T) {
	t.Parallel()

	store := NewStore()
	var calls int
	var last []Item
	store.Subscribe(func(items []Item) {
		calls++
		last = items
	})

	require.NoError(t, store.Add(product(1, 100), 1, ""))
	store.SetQuantity(1, 1) // unchanged
	store.SetQuantity(1, 0) // rejected
	store.Remove(42)        // absent
	store.SetQuantity(1, 2)
	store.Clear()
	store.Clear() // already empty

	assert.Equal(t, 3, calls)
	assert.Empty(t, last)
}

func TestListenersSeeMutationsInOrder(t *testing.T) {
	t.Parallel()

	store := NewStore()
	var sizes []int
	var last []Item
	store.Subscribe(func(items []Item) {
		sizes = append(sizes, len(items))
		last = items
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, store.Add(product(id, 100), 1, ""))
		}(int64(i))
	}
	wg.Wait()

	require.Len(t, sizes, 50)
	for i, n := range sizes {
		assert.Equal(t, i+1, n, "snapshot %d published out of order", i)
	}
	assert.Equal(t, store.Items(), last)
}

func TestSettleTakesOutOrderedUnits(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.Add(product(1, 100), 3, ""))
	require.NoError(t, store.Add(product(2, 50), 1, ""))
	require.NoError(t, store.Add(product(3, 10), 1, ""))
	var calls int
	store.Subscribe(func([]Item) { calls++ })

	assert.True(t, store.Settle([]Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}))
	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ProductID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, int64(3), items[1].ProductID)

	assert.False(t, store.Settle([]Item{{ProductID: 99, Quantity: 1}}))
	assert.False(t, store.Settle(nil))
	assert.Equal(t, 1, calls)

	assert.True(t, store.Settle([]Item{{ProductID: 1, Quantity: 5}, {ProductID: 3, Quantity: 1}}))
	assert.True(t, store.IsEmpty())
}

func TestWithItemsSanitizesSeed(t *testing.T) {
	t.Parallel()

	store := NewStore(WithItems([]Item{
		{ProductID: 1, Name: "a", UnitPrice: decimal.NewFromInt(10), Quantity: 1},
		{ProductID: 1, Name: "a", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
		{ProductID: 2, Name: "b", UnitPrice: decimal.NewFromInt(10), Quantity: 0},
		{ProductID: 0, Name: "c", UnitPrice: decimal.NewFromInt(10), Quantity: 1},
	}))
	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, DefaultSize, items[0].Size)
}

func TestRandomOperationSequencesKeepInvariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	store := NewStore()
	for step := 0; step < 2000; step++ {
		id := int64(rng.Intn(6) + 1)
		switch rng.Intn(4) {
		case 0:
			require.NoError(t, store.Add(product(id, int64(rng.Intn(500))), rng.Intn(4)-1, ""))
		case 1:
			store.SetQuantity(id, rng.Intn(6)-2)
		case 2:
			store.Remove(id)
		case 3:
			store.SetSize(id, "s")
		}

		seen := map[int64]bool{}
		expected := decimal.Zero
		count := 0
		for _, item := range store.Items() {
			require.False(t, seen[item.ProductID], "duplicate line for %d", item.ProductID)
			seen[item.ProductID] = true
			require.GreaterOrEqual(t, item.Quantity, 1)
			expected = expected.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
			count += item.Quantity
		}
		require.True(t, store.Subtotal().Equal(expected))
		require.Equal(t, count, store.Count())
	}
}
