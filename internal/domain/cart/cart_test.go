package cart

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func ref(id string, stock int) ProductRef {
	return ProductRef{ID: id, Title: "Product " + id, Quantity: stock}
}

func TestCart_AddNewAndExisting(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(ref("p1", 5), decimal.NewFromInt(10)))
	require.NoError(t, c.Add(ref("p2", 5), decimal.NewFromInt(20)))
	require.NoError(t, c.Add(ref("p1", 5), decimal.NewFromInt(10)))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 3, c.Units())

	it, ok := c.Find("p1")
	require.True(t, ok)
	assert.Equal(t, 2, it.Count)
	assert.True(t, decimal.NewFromInt(40).Equal(c.Subtotal()))
}

func TestCart_AddRespectsStock(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(ref("p1", 1), decimal.NewFromInt(10)))
	require.ErrorIs(t, c.Add(ref("p1", 1), decimal.NewFromInt(10)), ErrExceedsStock)

	// Unknown stock is not enforced.
	require.NoError(t, c.Add(ref("unknown", 0), decimal.NewFromInt(10)))
}

func TestCart_SetCount(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(ref("p1", 3), decimal.NewFromInt(10)))

	require.ErrorIs(t, c.SetCount("p1", 0), ErrInvalidCount)
	require.ErrorIs(t, c.SetCount("p1", 4), ErrExceedsStock)
	require.ErrorIs(t, c.SetCount("missing", 1), ErrNotInCart)

	require.NoError(t, c.SetCount("p1", 3))
	it, _ := c.Find("p1")
	assert.Equal(t, 3, it.Count)
}

func TestCart_RemoveMissingIsNoop(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(ref("p1", 3), decimal.NewFromInt(10)))
	before := c.Clone()

	c.Remove("does-not-exist")

	if diff := cmp.Diff(before.Items, c.Items, decimalComparer); diff != "" {
		t.Fatalf("items changed (-want +got):\n%s", diff)
	}
}

func TestCart_Remove(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(ref("p1", 3), decimal.NewFromInt(10)))
	require.NoError(t, c.Add(ref("p2", 3), decimal.NewFromInt(10)))

	c.Remove("p1")

	_, ok := c.Find("p1")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestCart_Discount(t *testing.T) {
	c := Cart{
		TotalPrice:         decimal.NewNullDecimal(decimal.NewFromInt(200)),
		TotalAfterDiscount: decimal.NewNullDecimal(decimal.NewFromInt(150)),
	}
	assert.True(t, decimal.NewFromInt(50).Equal(c.Discount()))

	c.TotalAfterDiscount = decimal.NewNullDecimal(decimal.NewFromInt(250))
	assert.True(t, decimal.Zero.Equal(c.Discount()))

	c.TotalAfterDiscount = decimal.NullDecimal{}
	assert.True(t, decimal.Zero.Equal(c.Discount()))
}

func TestCheckCount(t *testing.T) {
	tests := []struct {
		name  string
		stock int
		count int
		want  error
	}{
		{"zero count", 5, 0, ErrInvalidCount},
		{"negative count", 5, -1, ErrInvalidCount},
		{"within stock", 5, 5, nil},
		{"over stock", 5, 6, ErrExceedsStock},
		{"unknown stock", 0, 99, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, CheckCount(tt.stock, tt.count), tt.want)
		})
	}
}
