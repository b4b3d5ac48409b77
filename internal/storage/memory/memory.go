// Package memory is an in-process guest store for development and tests.
// Contents are lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xenking/freshcart/internal/guest"
)

var (
	_ guest.Store  = (*Store)(nil)
	_ guest.Pruner = (*Store)(nil)
)

type session struct {
	values    map[string][]byte
	updatedAt time.Time
}

// Store keeps guest sessions in a map.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	now      func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	v, ok := sess.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(_ context.Context, sessionID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{values: make(map[string][]byte, len(guest.Keys))}
		s.sessions[sessionID] = sess
	}
	sess.values[key] = append([]byte(nil), value...)
	sess.updatedAt = s.now()
	return nil
}

func (s *Store) Delete(_ context.Context, sessionID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(sess.values, k)
	}
	if len(sess.values) == 0 {
		delete(s.sessions, sessionID)
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Sessions lists stored sessions, most recently written first.
func (s *Store) Sessions(context.Context) ([]guest.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]guest.Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		info := guest.Session{ID: id, UpdatedAt: sess.updatedAt}
		units, subtotal, err := guest.Tally(sess.values[guest.KeyCart])
		if err == nil {
			info.CartUnits, info.CartSubtotal = units, subtotal
		}
		if items, _, err := guest.Tally(sess.values[guest.KeyWishlist]); err == nil {
			info.WishlistItems = items
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Prune drops sessions last written before the given time.
func (s *Store) Prune(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, sess := range s.sessions {
		if sess.updatedAt.Before(before) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
