// Package events publishes storefront activity (merged guest carts, placed
// orders) to downstream consumers.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeCartMerged  = "cart.merged"
	TypeOrderPlaced = "order.placed"
)

// Event is a single storefront fact. Key is the partitioning key, normally
// the user id.
type Event struct {
	Type    string         `json:"type"`
	Key     string         `json:"key"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

var _ Publisher = Nop{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
