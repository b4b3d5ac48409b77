package state

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/domain/wishlist"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func cartWith(ids ...string) *cart.Cart {
	c := &cart.Cart{ID: "cart-1"}
	for _, id := range ids {
		_ = c.Add(cart.ProductRef{ID: id}, decimal.NewFromInt(5))
	}
	return c
}

func TestMirror_LastWriteWins(t *testing.T) {
	m := New()
	m.SetCart("u1", cartWith("p1"))
	m.SetCart("u1", cartWith("p1", "p2"))

	c, ok := m.Cart("u1")
	require.True(t, ok)
	assert.Equal(t, 2, c.Len())

	m.SetCart("u1", cartWith())
	c, ok = m.Cart("u1")
	require.True(t, ok)
	assert.Zero(t, c.Len())
}

func TestMirror_ConcurrentWritesKeepOneResponse(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	written := make(map[int]bool)
	for i := 1; i <= 20; i++ {
		written[i] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]string, i)
			for j := range ids {
				ids[j] = fmt.Sprintf("p%d", j)
			}
			m.SetCart("u1", cartWith(ids...))
		}()
	}
	wg.Wait()

	c, ok := m.Cart("u1")
	require.True(t, ok)
	assert.True(t, written[c.Len()], "mirrored cart must be one of the observed responses")
}

func TestMirror_ValuesAreCopied(t *testing.T) {
	m := New()
	src := cartWith("p1")
	m.SetCart("u1", src)
	src.Remove("p1")

	c, _ := m.Cart("u1")
	assert.Equal(t, 1, c.Len())

	c.Remove("p1")
	again, _ := m.Cart("u1")
	assert.Equal(t, 1, again.Len())
}

func TestMirror_RemoveMissingIsNoop(t *testing.T) {
	m := New()
	m.SetCart("u1", cartWith("p1", "p2"))
	m.SetWishlist("u1", &wishlist.Wishlist{Items: []wishlist.Item{{ID: "w1"}}})

	beforeCart, _ := m.Cart("u1")
	beforeWish, _ := m.Wishlist("u1")

	m.RemoveWishlistItem("u1", "nope")
	m.RemoveWishlistItem("unknown-user", "w1")

	afterCart, _ := m.Cart("u1")
	afterWish, _ := m.Wishlist("u1")
	if diff := cmp.Diff(beforeCart, afterCart, decimalComparer); diff != "" {
		t.Fatalf("cart changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(beforeWish, afterWish, decimalComparer); diff != "" {
		t.Fatalf("wishlist changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, 1, m.Len())
}

func TestMirror_RemoveItem(t *testing.T) {
	m := New()
	m.SetWishlist("u1", &wishlist.Wishlist{Items: []wishlist.Item{{ID: "w1"}, {ID: "w2"}}})
	m.RemoveWishlistItem("u1", "w1")

	w, _ := m.Wishlist("u1")
	assert.False(t, w.Contains("w1"))
	assert.Equal(t, []string{"w2"}, w.IDs())
}

func TestMirror_SyncWishlistIDs(t *testing.T) {
	m := New()
	m.SetWishlist("u1", &wishlist.Wishlist{Items: []wishlist.Item{
		{ID: "w1", Title: "Lamp"},
		{ID: "w2", Title: "Rug"},
	}})

	m.SyncWishlistIDs("u1", []string{"w2", "w3"})

	w, ok := m.Wishlist("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"w2", "w3"}, w.IDs())
	assert.Equal(t, "Rug", w.Items[0].Title)
	assert.Empty(t, w.Items[1].Title)
	assert.Equal(t, []string{"w2", "w3"}, m.WishlistIDs("u1"))
}

func TestMirror_Drop(t *testing.T) {
	m := New()
	m.SetCart("u1", cartWith("p1"))
	m.SetWishlist("u1", &wishlist.Wishlist{})

	m.DropCart("u1")
	_, ok := m.Cart("u1")
	assert.False(t, ok)
	_, ok = m.Wishlist("u1")
	assert.True(t, ok)

	m.Drop("u1")
	assert.Zero(t, m.Len())
	assert.Nil(t, m.WishlistIDs("u1"))
}

func TestMirror_Cleanup(t *testing.T) {
	m := New()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return now.Add(-time.Hour) }
	m.SetCart("idle", cartWith("p1"))
	m.now = func() time.Time { return now }
	m.SetCart("active", cartWith("p1"))

	assert.Equal(t, 1, m.cleanup(now, 30*time.Minute))
	_, ok := m.Cart("idle")
	assert.False(t, ok)
	_, ok = m.Cart("active")
	assert.True(t, ok)
}

func TestMirror_StartCleanupStops(t *testing.T) {
	m := New()
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	m.SetCart("u1", cartWith("p1"))

	ctx, cancel := context.WithCancel(context.Background())
	m.StartCleanup(ctx, 20*time.Millisecond)

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}
