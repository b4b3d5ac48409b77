package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/domain/product"
)

var errInvalidQuery = errors.New("invalid query parameter")

// parseListParams reads the product listing filters. Categories may be
// repeated or comma separated.
func parseListParams(q url.Values) (product.ListParams, error) {
	var (
		p   product.ListParams
		err error
	)
	if p.Page, err = queryInt(q, "page"); err != nil {
		return p, err
	}
	if p.Limit, err = queryInt(q, "limit"); err != nil {
		return p, err
	}
	if p.PriceMin, err = queryDecimal(q, "minPrice"); err != nil {
		return p, err
	}
	if p.PriceMax, err = queryDecimal(q, "maxPrice"); err != nil {
		return p, err
	}
	p.Sort = q.Get("sort")
	p.Keyword = strings.TrimSpace(q.Get("keyword"))
	p.BrandID = q.Get("brand")
	for _, v := range q["category"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				p.CategoryIDs = append(p.CategoryIDs, id)
			}
		}
	}
	return p, p.Validate()
}

func queryInt(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrap(errInvalidQuery, name)
	}
	return n, nil
}

func queryDecimal(q url.Values, name string) (decimal.NullDecimal, error) {
	v := q.Get(name)
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, errors.Wrap(errInvalidQuery, name)
	}
	return decimal.NewNullDecimal(d), nil
}

// savedProducts returns the product ids on the caller's wishlist. Lookup
// failures only cost the wishlist markers, so they are logged and ignored.
func (h *Handler) savedProducts(ctx context.Context) map[string]struct{} {
	s := shopperFrom(ctx)
	var ids []string
	switch {
	case s.authenticated():
		if _, ok := h.mirror.Wishlist(s.User.ID); !ok {
			wl, err := h.wishlists.GetWishlist(ctx, s.Token)
			if err != nil {
				zctx.From(ctx).Debug("Wishlist lookup failed", zap.Error(err))
				return nil
			}
			h.mirror.SetWishlist(s.User.ID, wl)
		}
		ids = h.mirror.WishlistIDs(s.User.ID)
	case s.GuestID != "":
		wl, err := h.guests.Wishlist(ctx, s.GuestID)
		if err != nil {
			zctx.From(ctx).Debug("Guest wishlist lookup failed", zap.Error(err))
			return nil
		}
		ids = wl.IDs()
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// ListProducts returns one page of the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	listing, err := h.catalog.ListProducts(ctx, params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	saved := h.savedProducts(ctx)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("metadata")
		encodePage(e, listing.Page)
		e.FieldStart("data")
		e.ArrStart()
		for _, p := range listing.Products {
			_, ok := saved[p.ID]
			encodeProduct(e, p, ok)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_, saved := h.savedProducts(ctx)[p.ID]

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, *p, saved)
	})
}

// ListReviews returns a product's reviews.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.catalog.ListReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("results")
		e.Int(len(reviews))
		e.FieldStart("data")
		e.ArrStart()
		for _, rv := range reviews {
			encodeReview(e, rv)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

// AddReview posts the signed-in shopper's review.
func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request) {
	var review product.NewReview
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "review":
			return readString(d, &review.Text)
		case "rating":
			v, err := d.Float64()
			review.Rating = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	review.Text = strings.TrimSpace(review.Text)
	if err := review.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	s := shopperFrom(r.Context())
	created, err := h.catalog.AddReview(r.Context(), s.Token, chi.URLParam(r, "id"), review)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeReview(e, *created)
	})
}

// ListCategories returns all categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("data")
		e.ArrStart()
		for _, c := range cats {
			encodeCategory(e, c)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

// GetCategory returns a single category.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCategory(e, *c)
	})
}

// ListBrands returns all brands.
func (h *Handler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.catalog.ListBrands(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("data")
		e.ArrStart()
		for _, b := range brands {
			encodeBrand(e, b)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}
