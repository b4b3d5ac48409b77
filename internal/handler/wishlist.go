package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/domain/wishlist"
)

func writeWishlist(w http.ResponseWriter, wl *wishlist.Wishlist, guest bool) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeWishlist(e, wl, guest)
	})
}

// mirroredWishlist returns the user's mirrored wishlist after an id-only
// update, fetching details for addedID when the mirror has none.
func (h *Handler) mirroredWishlist(ctx context.Context, userID, addedID string) *wishlist.Wishlist {
	wl, ok := h.mirror.Wishlist(userID)
	if !ok {
		return &wishlist.Wishlist{}
	}
	if addedID == "" {
		return wl
	}
	for i, it := range wl.Items {
		if it.ID != addedID || it.Title != "" {
			continue
		}
		p, err := h.catalog.GetProduct(ctx, addedID)
		if err != nil {
			zctx.From(ctx).Debug("Product lookup failed", zap.String("product_id", addedID), zap.Error(err))
			break
		}
		wl.Items[i] = wishlist.ItemFromProduct(*p)
		h.mirror.SetWishlist(userID, wl)
		break
	}
	return wl
}

// GetWishlist returns the caller's wishlist.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := shopperFrom(ctx)

	if s.authenticated() {
		wl, err := h.wishlists.GetWishlist(ctx, s.Token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.mirror.SetWishlist(s.User.ID, wl)
		writeWishlist(w, wl, false)
		return
	}

	wl, err := h.guests.Wishlist(ctx, s.GuestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeWishlist(w, wl, true)
}

// AddToWishlist saves a product. Saving a product twice is a no-op.
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	productID, err := readProductID(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	s := shopperFrom(ctx)

	if s.authenticated() {
		ids, err := h.wishlists.AddToWishlist(ctx, s.Token, productID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.mirror.SyncWishlistIDs(s.User.ID, ids)
		writeWishlist(w, h.mirroredWishlist(ctx, s.User.ID, productID), false)
		return
	}

	p, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	guestID := h.guestID(w, r)
	wl, err := h.guests.Wishlist(ctx, guestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if wl.Add(wishlist.ItemFromProduct(*p)) {
		if err := h.guests.SaveWishlist(ctx, guestID, wl); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	writeWishlist(w, wl, true)
}

// RemoveFromWishlist drops a saved product. Unknown products are ignored.
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	ctx := r.Context()
	s := shopperFrom(ctx)

	if s.authenticated() {
		ids, err := h.wishlists.RemoveFromWishlist(ctx, s.Token, productID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.mirror.RemoveWishlistItem(s.User.ID, productID)
		h.mirror.SyncWishlistIDs(s.User.ID, ids)
		writeWishlist(w, h.mirroredWishlist(ctx, s.User.ID, ""), false)
		return
	}

	wl, err := h.guests.Wishlist(ctx, s.GuestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if wl.Contains(productID) {
		wl.Remove(productID)
		if err := h.guests.SaveWishlist(ctx, s.GuestID, wl); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	writeWishlist(w, wl, true)
}
