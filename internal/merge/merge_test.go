package merge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/domain/wishlist"
	"github.com/xenking/freshcart/internal/events"
	"github.com/xenking/freshcart/internal/guest"
	"github.com/xenking/freshcart/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Mock implementations ---

type fakeUpstream struct {
	mu        sync.Mutex
	cartIDs   []string
	wishIDs   []string
	fail      map[string]bool
	delay     time.Duration
	inflight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *fakeUpstream) enter() func() {
	n := f.inflight.Add(1)
	for {
		cur := f.maxFlight.Load()
		if n <= cur || f.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inflight.Add(-1) }
}

func (f *fakeUpstream) AddToCart(_ context.Context, token, productID string) (*cart.Cart, error) {
	defer f.enter()()
	if token == "" {
		return nil, errors.New("no token")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cartIDs = append(f.cartIDs, productID)
	if f.fail[productID] {
		return nil, errors.New("out of stock")
	}
	c := &cart.Cart{ID: "cart-1"}
	for _, id := range f.cartIDs {
		_ = c.Add(cart.ProductRef{ID: id}, decimal.NewFromInt(1))
	}
	return c, nil
}

func (f *fakeUpstream) AddToWishlist(_ context.Context, _ string, productID string) ([]string, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wishIDs = append(f.wishIDs, productID)
	if f.fail[productID] {
		return nil, errors.New("unknown product")
	}
	return append([]string(nil), f.wishIDs...), nil
}

type recordingMirror struct {
	mu        sync.Mutex
	carts     int
	wishlists int
}

func (m *recordingMirror) SetCart(string, *cart.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts++
}

func (m *recordingMirror) SyncWishlistIDs(string, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wishlists++
}

// countingStore counts writes to the wrapped store.
type countingStore struct {
	guest.Store
	writes atomic.Int32
}

func (s *countingStore) Put(ctx context.Context, sid, key string, v []byte) error {
	s.writes.Add(1)
	return s.Store.Put(ctx, sid, key, v)
}

func (s *countingStore) Delete(ctx context.Context, sid string, keys ...string) error {
	s.writes.Add(1)
	return s.Store.Delete(ctx, sid, keys...)
}

func seedGuest(t *testing.T, repo *guest.Repository, sid string, cartIDs, wishIDs []string) {
	t.Helper()
	ctx := context.Background()
	c := &cart.Cart{}
	for _, id := range cartIDs {
		require.NoError(t, c.Add(cart.ProductRef{ID: id}, decimal.NewFromInt(10)))
	}
	require.NoError(t, repo.SaveCart(ctx, sid, c))

	w := &wishlist.Wishlist{}
	for _, id := range wishIDs {
		w.Add(wishlist.Item{ID: id})
	}
	require.NoError(t, repo.SaveWishlist(ctx, sid, w))
}

func TestMerge_ReplaysEveryItemAndClears(t *testing.T) {
	ctx := context.Background()
	repo := guest.NewRepository(memory.New())
	seedGuest(t, repo, "g1", []string{"p1", "p2", "p3"}, []string{"w1", "w2"})

	up := &fakeUpstream{}
	mirror := &recordingMirror{}
	rec := &events.Recorder{}
	m, err := New(up, up, repo, Options{Concurrency: 2, Mirror: mirror, Publisher: rec})
	require.NoError(t, err)

	report, err := m.Merge(ctx, "g1", "tok", "u1")
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, up.cartIDs)
	assert.ElementsMatch(t, []string{"w1", "w2"}, up.wishIDs)
	assert.Equal(t, 3, report.Added(KindCart))
	assert.Equal(t, 2, report.Added(KindWishlist))
	assert.Equal(t, 3, mirror.carts)
	assert.Equal(t, 2, mirror.wishlists)

	c, err := repo.Cart(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, c.Len())
	w, err := repo.Wishlist(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, w.Items)

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeCartMerged, evs[0].Type)
	assert.Equal(t, "u1", evs[0].Key)
}

func TestMerge_FailuresStillClear(t *testing.T) {
	ctx := context.Background()
	repo := guest.NewRepository(memory.New())
	seedGuest(t, repo, "g1", []string{"p1", "bad"}, []string{"w-bad"})

	up := &fakeUpstream{fail: map[string]bool{"bad": true, "w-bad": true}}
	m, err := New(up, up, repo, Options{})
	require.NoError(t, err)

	report, err := m.Merge(ctx, "g1", "tok", "u1")
	require.NoError(t, err)

	assert.Len(t, up.cartIDs, 2)
	assert.Len(t, up.wishIDs, 1)
	assert.Equal(t, 1, report.Added(KindCart))
	assert.Zero(t, report.Added(KindWishlist))

	failed := report.Failed()
	require.Len(t, failed, 2)
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "cart bad")
	assert.Contains(t, report.Err().Error(), "wishlist w-bad")

	c, err := repo.Cart(ctx, "g1")
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestMerge_EmptyGuestDoesNothing(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.New()}
	repo := guest.NewRepository(store)

	up := &fakeUpstream{}
	rec := &events.Recorder{}
	m, err := New(up, up, repo, Options{Publisher: rec})
	require.NoError(t, err)

	report, err := m.Merge(ctx, "g-empty", "tok", "u1")
	require.NoError(t, err)

	assert.True(t, report.Empty())
	assert.Empty(t, up.cartIDs)
	assert.Empty(t, up.wishIDs)
	assert.Zero(t, store.writes.Load())
	assert.Empty(t, rec.Events())
}

func TestMerge_NoGuestSession(t *testing.T) {
	up := &fakeUpstream{}
	m, err := New(up, up, guest.NewRepository(memory.New()), Options{})
	require.NoError(t, err)

	report, err := m.Merge(context.Background(), "", "tok", "u1")
	require.NoError(t, err)
	assert.True(t, report.Empty())
}

func TestMerge_BoundedConcurrency(t *testing.T) {
	ctx := context.Background()
	repo := guest.NewRepository(memory.New())
	ids := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
	seedGuest(t, repo, "g1", ids, nil)

	up := &fakeUpstream{delay: 10 * time.Millisecond}
	m, err := New(up, up, repo, Options{Concurrency: 3})
	require.NoError(t, err)

	_, err = m.Merge(ctx, "g1", "tok", "u1")
	require.NoError(t, err)

	assert.Len(t, up.cartIDs, len(ids))
	assert.LessOrEqual(t, up.maxFlight.Load(), int32(3))
}

func TestMerge_CancelledContextStillClears(t *testing.T) {
	repo := guest.NewRepository(memory.New())
	seedGuest(t, repo, "g1", []string{"p1"}, []string{"w1"})

	up := &fakeUpstream{}
	m, err := New(up, up, repo, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Merge(ctx, "g1", "tok", "u1")
	require.NoError(t, err)

	c, err := repo.Cart(context.Background(), "g1")
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

// failingReads makes every guest read fail.
type failingReads struct {
	countingStore
}

func (s *failingReads) Get(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("connection reset")
}

func TestMerge_UnreadableGuestStateIsLeftInPlace(t *testing.T) {
	store := &failingReads{countingStore: countingStore{Store: memory.New()}}
	seedGuest(t, guest.NewRepository(store.Store), "g1", []string{"p1"}, []string{"w1"})

	up := &fakeUpstream{}
	m, err := New(up, up, guest.NewRepository(store), Options{})
	require.NoError(t, err)

	report, err := m.Merge(context.Background(), "g1", "tok", "u1")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Empty(t, up.cartIDs)
	assert.Empty(t, up.wishIDs)
	assert.Zero(t, store.writes.Load(), "guest state is not cleared")
}
