package wishlist

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/freshcart/internal/domain/product"
)

// Item is a product snapshot saved to a wishlist.
type Item struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	ImageCover         string              `json:"imageCover,omitempty"`
	Price              decimal.Decimal     `json:"price"`
	PriceAfterDiscount decimal.NullDecimal `json:"priceAfterDiscount"`
	Quantity           int                 `json:"quantity"`
	RatingsAverage     float64             `json:"ratingsAverage"`
}

// ItemFromProduct snapshots p for a wishlist.
func ItemFromProduct(p product.Product) Item {
	return Item{
		ID:                 p.ID,
		Title:              p.Title,
		ImageCover:         p.ImageCover,
		Price:              p.Price,
		PriceAfterDiscount: p.PriceAfterDiscount,
		Quantity:           p.Quantity,
		RatingsAverage:     p.RatingsAverage,
	}
}

// Wishlist is an unordered set of saved products.
type Wishlist struct {
	Items []Item
}

// Add saves it unless a product with the same ID is already present.
// It reports whether the wishlist changed.
func (w *Wishlist) Add(it Item) bool {
	if w.Contains(it.ID) {
		return false
	}
	w.Items = append(w.Items, it)
	return true
}

// Remove drops productID. Removing an absent product is a no-op.
func (w *Wishlist) Remove(productID string) {
	for i, it := range w.Items {
		if it.ID == productID {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			return
		}
	}
}

// Contains reports whether productID is saved.
func (w *Wishlist) Contains(productID string) bool {
	for _, it := range w.Items {
		if it.ID == productID {
			return true
		}
	}
	return false
}

// IDs returns the saved product IDs in list order.
func (w *Wishlist) IDs() []string {
	ids := make([]string, len(w.Items))
	for i, it := range w.Items {
		ids[i] = it.ID
	}
	return ids
}

// Clone returns a deep copy of w.
func (w *Wishlist) Clone() *Wishlist {
	return &Wishlist{Items: append([]Item(nil), w.Items...)}
}

// API is the authenticated remote wishlist. Add and Remove return the product
// IDs left on the wishlist, which is all the remote API reports for them.
type API interface {
	GetWishlist(ctx context.Context, token string) (*Wishlist, error)
	AddToWishlist(ctx context.Context, token, productID string) ([]string, error)
	RemoveFromWishlist(ctx context.Context, token, productID string) ([]string, error)
}
