package guest

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/domain/wishlist"
)

// Repository reads and writes typed guest lists on top of a Store.
type Repository struct {
	store Store
}

// NewRepository wraps s.
func NewRepository(s Store) *Repository {
	return &Repository{store: s}
}

// Store returns the underlying store.
func (r *Repository) Store() Store {
	return r.store
}

// Cart loads the guest cart. Unknown sessions yield an empty cart.
func (r *Repository) Cart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	items, err := loadList[cart.Item](ctx, r.store, sessionID, KeyCart)
	if err != nil {
		return nil, err
	}
	return &cart.Cart{Items: items}, nil
}

// SaveCart stores the cart lines. An empty cart deletes the key.
func (r *Repository) SaveCart(ctx context.Context, sessionID string, c *cart.Cart) error {
	return r.save(ctx, sessionID, KeyCart, len(c.Items), c.Items)
}

// Wishlist loads the guest wishlist. Unknown sessions yield an empty list.
func (r *Repository) Wishlist(ctx context.Context, sessionID string) (*wishlist.Wishlist, error) {
	items, err := loadList[wishlist.Item](ctx, r.store, sessionID, KeyWishlist)
	if err != nil {
		return nil, err
	}
	return &wishlist.Wishlist{Items: items}, nil
}

// SaveWishlist stores the wishlist. An empty wishlist deletes the key.
func (r *Repository) SaveWishlist(ctx context.Context, sessionID string, w *wishlist.Wishlist) error {
	return r.save(ctx, sessionID, KeyWishlist, len(w.Items), w.Items)
}

// Clear removes both guest lists.
func (r *Repository) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := r.store.Delete(ctx, sessionID, Keys...); err != nil {
		return errors.Wrap(err, "clear guest state")
	}
	return nil
}

func loadList[T any](ctx context.Context, s Store, sessionID, key string) ([]T, error) {
	if sessionID == "" {
		return nil, nil
	}
	data, err := s.Get(ctx, sessionID, key)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		// Corrupt state reads as empty; the next write replaces it.
		zctx.From(ctx).Warn("Discarding unreadable guest state",
			zap.String("key", key),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return nil, nil
	}
	return items, nil
}

func (r *Repository) save(ctx context.Context, sessionID, key string, n int, items any) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if n == 0 {
		if err := r.store.Delete(ctx, sessionID, key); err != nil {
			return errors.Wrapf(err, "delete %s", key)
		}
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := r.store.Put(ctx, sessionID, key, data); err != nil {
		return errors.Wrapf(err, "put %s", key)
	}
	return nil
}
