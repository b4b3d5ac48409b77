package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/cart"
)

var errMissingProductID = errors.New("productId is required")

func readProductID(w http.ResponseWriter, r *http.Request) (string, error) {
	var id string
	if err := readStringFields(w, r, map[string]*string{"productId": &id}); err != nil {
		return "", err
	}
	if id = strings.TrimSpace(id); id == "" {
		return "", errMissingProductID
	}
	return id, nil
}

func (h *Handler) writeCart(w http.ResponseWriter, c *cart.Cart, guest bool) {
	summary := h.pricing.Summarize(c)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, c, summary, guest)
	})
}

// fillProducts restores product details on lines the store returned with a
// bare product id, using the previously mirrored cart. A newly added
// product unknown to the mirror is fetched from the catalog.
func (h *Handler) fillProducts(ctx context.Context, prev, next *cart.Cart, addedID string) {
	for i := range next.Items {
		it := &next.Items[i]
		if it.Product.Title != "" {
			continue
		}
		if prev != nil {
			if old, ok := prev.Find(it.Product.ID); ok {
				it.Product = old.Product
				continue
			}
		}
		if it.Product.ID != addedID {
			continue
		}
		p, err := h.catalog.GetProduct(ctx, addedID)
		if err != nil {
			zctx.From(ctx).Debug("Product lookup failed", zap.String("product_id", addedID), zap.Error(err))
			continue
		}
		it.Product = cart.RefFromProduct(*p)
	}
}

// GetCart returns the caller's cart with its pricing summary.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := shopperFrom(ctx)

	if s.authenticated() {
		c, err := h.carts.GetCart(ctx, s.Token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		prev, _ := h.mirror.Cart(s.User.ID)
		h.fillProducts(ctx, prev, c, "")
		h.mirror.SetCart(s.User.ID, c)
		h.writeCart(w, c, false)
		return
	}

	c, err := h.guests.Cart(ctx, s.GuestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, c, true)
}

// AddToCart adds one unit of a product.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	productID, err := readProductID(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	s := shopperFrom(ctx)

	if s.authenticated() {
		prev, _ := h.mirror.Cart(s.User.ID)
		c, err := h.carts.AddToCart(ctx, s.Token, productID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.fillProducts(ctx, prev, c, productID)
		h.mirror.SetCart(s.User.ID, c)
		h.writeCart(w, c, false)
		return
	}

	p, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// The catalog stock is authoritative here, so zero means sold out.
	if !p.InStock() {
		h.writeError(w, r, cart.ErrOutOfStock)
		return
	}
	guestID := h.guestID(w, r)
	c, err := h.guests.Cart(ctx, guestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := c.Add(cart.RefFromProduct(*p), p.EffectivePrice()); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.guests.SaveCart(ctx, guestID, c); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, c, true)
}

// UpdateCartItem sets the count of a cart line. Signed-in updates are
// checked against the mirrored stock before reaching the store.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var count int
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "count" {
			return d.Skip()
		}
		v, err := d.Int()
		count = v
		return err
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	s := shopperFrom(ctx)

	if s.authenticated() {
		prev, _ := h.mirror.Cart(s.User.ID)
		stock := 0
		if prev != nil {
			if it, ok := prev.Find(productID); ok {
				stock = it.Product.Quantity
			}
		}
		if err := cart.CheckCount(stock, count); err != nil {
			h.writeError(w, r, err)
			return
		}
		c, err := h.carts.UpdateCount(ctx, s.Token, productID, count)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.fillProducts(ctx, prev, c, "")
		h.mirror.SetCart(s.User.ID, c)
		h.writeCart(w, c, false)
		return
	}

	c, err := h.guests.Cart(ctx, s.GuestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := c.SetCount(productID, count); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.guests.SaveCart(ctx, s.GuestID, c); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, c, true)
}

// RemoveCartItem drops a cart line. Removing a product that is not on the
// cart leaves the cart unchanged.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	ctx := r.Context()
	s := shopperFrom(ctx)

	if s.authenticated() {
		prev, _ := h.mirror.Cart(s.User.ID)
		c, err := h.carts.RemoveFromCart(ctx, s.Token, productID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.fillProducts(ctx, prev, c, "")
		h.mirror.SetCart(s.User.ID, c)
		h.writeCart(w, c, false)
		return
	}

	c, err := h.guests.Cart(ctx, s.GuestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, ok := c.Find(productID); ok {
		c.Remove(productID)
		if err := h.guests.SaveCart(ctx, s.GuestID, c); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.writeCart(w, c, true)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := shopperFrom(ctx)

	if s.authenticated() {
		if err := h.carts.ClearCart(ctx, s.Token); err != nil {
			h.writeError(w, r, err)
			return
		}
		h.mirror.DropCart(s.User.ID)
		h.writeCart(w, &cart.Cart{}, false)
		return
	}

	if s.GuestID != "" {
		if err := h.guests.SaveCart(ctx, s.GuestID, &cart.Cart{}); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.writeCart(w, &cart.Cart{}, true)
}

// ApplyCoupon applies a coupon code to the signed-in shopper's cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var code string
	if err := readStringFields(w, r, map[string]*string{"couponName": &code}); err != nil {
		h.writeError(w, r, err)
		return
	}
	if code = strings.TrimSpace(code); code == "" {
		h.writeError(w, r, &auth.ValidationError{Fields: map[string]string{"couponName": "is required"}})
		return
	}

	ctx := r.Context()
	s := shopperFrom(ctx)
	prev, _ := h.mirror.Cart(s.User.ID)
	c, err := h.carts.ApplyCoupon(ctx, s.Token, code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.fillProducts(ctx, prev, c, "")
	h.mirror.SetCart(s.User.ID, c)
	h.writeCart(w, c, false)
}
