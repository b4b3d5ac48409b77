// Package state keeps the last cart and wishlist the remote API returned for
// each signed-in user, so pages can render without another upstream call.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/domain/wishlist"
)

type entry struct {
	cart     *cart.Cart
	wishlist *wishlist.Wishlist
	seen     time.Time
}

// Mirror is an in-process copy of authenticated state keyed by user id.
// Every write replaces the previous value: the last response observed wins.
// Values are copied on the way in and out.
type Mirror struct {
	mu    sync.Mutex
	users map[string]*entry
	now   func() time.Time
}

// New returns an empty Mirror.
func New() *Mirror {
	return &Mirror{
		users: make(map[string]*entry),
		now:   time.Now,
	}
}

// touch returns the entry of userID, creating it. The caller must hold m.mu.
func (m *Mirror) touch(userID string) *entry {
	e, ok := m.users[userID]
	if !ok {
		e = &entry{}
		m.users[userID] = e
	}
	e.seen = m.now()
	return e
}

// SetCart records c as the user's current cart.
func (m *Mirror) SetCart(userID string, c *cart.Cart) {
	if userID == "" || c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(userID).cart = c.Clone()
}

// SetWishlist records w as the user's current wishlist.
func (m *Mirror) SetWishlist(userID string, w *wishlist.Wishlist) {
	if userID == "" || w == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(userID).wishlist = w.Clone()
}

// SyncWishlistIDs applies an id-only wishlist response: known items are
// kept in the reported order and unknown ids become bare items.
func (m *Mirror) SyncWishlistIDs(userID string, ids []string) {
	if userID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.touch(userID)
	known := make(map[string]wishlist.Item)
	if e.wishlist != nil {
		for _, it := range e.wishlist.Items {
			known[it.ID] = it
		}
	}
	next := &wishlist.Wishlist{Items: make([]wishlist.Item, 0, len(ids))}
	for _, id := range ids {
		it, ok := known[id]
		if !ok {
			it = wishlist.Item{ID: id}
		}
		next.Add(it)
	}
	e.wishlist = next
}

// Cart returns the mirrored cart.
func (m *Mirror) Cart(userID string) (*cart.Cart, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.users[userID]
	if !ok || e.cart == nil {
		return nil, false
	}
	return e.cart.Clone(), true
}

// Wishlist returns the mirrored wishlist.
func (m *Mirror) Wishlist(userID string) (*wishlist.Wishlist, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.users[userID]
	if !ok || e.wishlist == nil {
		return nil, false
	}
	return e.wishlist.Clone(), true
}

// WishlistIDs returns the mirrored wishlist product ids, or nil.
func (m *Mirror) WishlistIDs(userID string) []string {
	w, ok := m.Wishlist(userID)
	if !ok {
		return nil
	}
	return w.IDs()
}

// RemoveWishlistItem drops an item from the mirrored wishlist. Unknown users
// and products are ignored.
func (m *Mirror) RemoveWishlistItem(userID, productID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.users[userID]; ok && e.wishlist != nil {
		e.wishlist.Remove(productID)
	}
}

// DropCart forgets the user's cart, e.g. after an order consumed it.
func (m *Mirror) DropCart(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.users[userID]; ok {
		e.cart = nil
	}
}

// Drop forgets everything about the user.
func (m *Mirror) Drop(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
}

// Len returns the number of mirrored users.
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// cleanup evicts users not written since now-idle.
func (m *Mirror) cleanup(now time.Time, idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for id, e := range m.users {
		if now.Sub(e.seen) >= idle {
			delete(m.users, id)
			n++
		}
	}
	return n
}

// StartCleanup launches a background goroutine that evicts idle users every
// idle/2. It stops when ctx is cancelled. A non-positive idle disables
// eviction.
func (m *Mirror) StartCleanup(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(idle / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.cleanup(now, idle)
			}
		}
	}()
}
