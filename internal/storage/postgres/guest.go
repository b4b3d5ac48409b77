package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/freshcart/internal/guest"
)

var (
	_ guest.Store  = (*GuestStore)(nil)
	_ guest.Pruner = (*GuestStore)(nil)
)

const (
	getQuery = `SELECT items FROM guest_state WHERE session_id = $1 AND key = $2`

	putQuery = `
INSERT INTO guest_state (session_id, key, items, item_count, subtotal, updated_at)
VALUES ($1, $2, $3::jsonb, $4, $5, now())
ON CONFLICT (session_id, key) DO UPDATE
SET items      = EXCLUDED.items,
    item_count = EXCLUDED.item_count,
    subtotal   = EXCLUDED.subtotal,
    updated_at = EXCLUDED.updated_at`

	deleteQuery = `DELETE FROM guest_state WHERE session_id = $1 AND key = ANY($2)`

	sessionsQuery = `
SELECT session_id,
       COALESCE(SUM(item_count) FILTER (WHERE key = $1), 0)::int,
       COALESCE(SUM(subtotal) FILTER (WHERE key = $1), 0),
       COALESCE(SUM(item_count) FILTER (WHERE key = $2), 0)::int,
       max(updated_at)
FROM guest_state
GROUP BY session_id
ORDER BY max(updated_at) DESC`

	pruneQuery = `
DELETE FROM guest_state
WHERE session_id IN (
    SELECT session_id FROM guest_state
    GROUP BY session_id
    HAVING max(updated_at) < $1
)
RETURNING session_id`
)

// GuestStore implements guest.Store on the guest_state table.
type GuestStore struct {
	pool *pgxpool.Pool
}

// NewGuestStore returns a GuestStore that uses the given pool.
func NewGuestStore(pool *pgxpool.Pool) *GuestStore {
	return &GuestStore{pool: pool}
}

// Get returns the stored list, or nil when the session has none.
func (s *GuestStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	var items []byte
	err := s.pool.QueryRow(ctx, getQuery, sessionID, key).Scan(&items)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting guest %s: %w", key, err)
	}
	return items, nil
}

// Put upserts a list and its unit count and subtotal.
func (s *GuestStore) Put(ctx context.Context, sessionID, key string, value []byte) error {
	units, subtotal, err := guest.Tally(value)
	if err != nil {
		return fmt.Errorf("tallying guest %s: %w", key, err)
	}
	if _, err := s.pool.Exec(ctx, putQuery, sessionID, key, string(value), units, subtotal); err != nil {
		return fmt.Errorf("storing guest %s: %w", key, err)
	}
	return nil
}

func (s *GuestStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, deleteQuery, sessionID, keys); err != nil {
		return fmt.Errorf("deleting guest state: %w", err)
	}
	return nil
}

func (s *GuestStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Sessions lists stored sessions, most recently written first.
func (s *GuestStore) Sessions(ctx context.Context) ([]guest.Session, error) {
	rows, err := s.pool.Query(ctx, sessionsQuery, guest.KeyCart, guest.KeyWishlist)
	if err != nil {
		return nil, fmt.Errorf("listing guest sessions: %w", err)
	}
	defer rows.Close()

	var out []guest.Session
	for rows.Next() {
		var g guest.Session
		if err := rows.Scan(&g.ID, &g.CartUnits, &g.CartSubtotal, &g.WishlistItems, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning guest session: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating guest sessions: %w", err)
	}
	return out, nil
}

// Prune deletes sessions whose newest list was written before the given time.
func (s *GuestStore) Prune(ctx context.Context, before time.Time) (int, error) {
	rows, err := s.pool.Query(ctx, pruneQuery, before)
	if err != nil {
		return 0, fmt.Errorf("pruning guest sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("pruning guest sessions: %w", err)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen), nil
}
