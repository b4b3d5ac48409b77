// Package guest persists the cart and wishlist of shoppers who have not
// signed in. Each list is stored as a flat JSON array under a fixed key,
// scoped by the guest session id.
package guest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Storage keys of the two guest lists.
const (
	KeyCart     = "guestCart"
	KeyWishlist = "guestWishlist"
)

// Keys lists every guest key.
var Keys = []string{KeyCart, KeyWishlist}

// ErrNoSession is returned when writing guest state without a session id.
var ErrNoSession = errors.New("guest session id is required")

// Store is a byte-level key/value store scoped by guest session.
type Store interface {
	// Get returns the value under key, or nil when absent.
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Put(ctx context.Context, sessionID, key string, value []byte) error
	// Delete removes keys of a session. Missing keys are ignored.
	Delete(ctx context.Context, sessionID string, keys ...string) error
	Ping(ctx context.Context) error
}

// Session summarizes a stored guest session.
type Session struct {
	ID            string
	CartUnits     int
	CartSubtotal  decimal.Decimal
	WishlistItems int
	UpdatedAt     time.Time
}

// Pruner is implemented by stores that can enumerate and expire sessions.
type Pruner interface {
	Sessions(ctx context.Context) ([]Session, error)
	// Prune deletes sessions not written since before. It returns the number
	// of sessions removed.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// Tally counts the units of a stored list and sums price*count. Entries
// without a count weigh one unit.
func Tally(data []byte) (units int, subtotal decimal.Decimal, err error) {
	if len(data) == 0 {
		return 0, decimal.Zero, nil
	}
	var entries []struct {
		Price decimal.Decimal `json:"price"`
		Count *int            `json:"count"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, decimal.Zero, errors.Wrap(err, "decode list")
	}
	subtotal = decimal.Zero
	for _, e := range entries {
		n := 1
		if e.Count != nil {
			n = *e.Count
		}
		units += n
		subtotal = subtotal.Add(e.Price.Mul(decimal.NewFromInt(int64(n))))
	}
	return units, subtotal, nil
}
