package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/freshcart/internal/domain/product"
)

// Sentinel errors for cart line validation.
var (
	ErrInvalidCount = errors.New("count must be at least 1")
	ErrExceedsStock = errors.New("count exceeds available stock")
	ErrOutOfStock   = errors.New("product is out of stock")
	ErrNotInCart    = errors.New("product is not in cart")
)

// ProductRef is the product snapshot kept on a cart line.
type ProductRef struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	ImageCover string `json:"imageCover,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
	Category   string `json:"category,omitempty"`
}

// RefFromProduct builds a cart snapshot of p.
func RefFromProduct(p product.Product) ProductRef {
	return ProductRef{
		ID:         p.ID,
		Title:      p.Title,
		ImageCover: p.ImageCover,
		Quantity:   p.Quantity,
		Category:   p.Category.Name,
	}
}

// Item is a single cart line.
type Item struct {
	Product ProductRef      `json:"product"`
	Price   decimal.Decimal `json:"price"`
	Count   int             `json:"count"`
}

// LineTotal returns price * count.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Count)))
}

// CheckCount validates count against the line's known stock. A zero stock
// means the stock is unknown and only the lower bound is enforced.
func CheckCount(stock, count int) error {
	if count < 1 {
		return ErrInvalidCount
	}
	if stock > 0 && count > stock {
		return ErrExceedsStock
	}
	return nil
}

// Cart is either a guest cart (no ID) or a mirror of the remote cart.
type Cart struct {
	ID                 string
	OwnerID            string
	Items              []Item
	TotalPrice         decimal.NullDecimal
	TotalAfterDiscount decimal.NullDecimal
}

// Find returns the line for productID.
func (c *Cart) Find(productID string) (Item, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

// Add puts one unit of ref on the cart, creating the line if needed.
func (c *Cart) Add(ref ProductRef, price decimal.Decimal) error {
	if i := c.index(ref.ID); i >= 0 {
		next := c.Items[i].Count + 1
		if err := CheckCount(ref.Quantity, next); err != nil {
			return err
		}
		c.Items[i].Count = next
		c.Items[i].Product = ref
		c.Items[i].Price = price
		return nil
	}
	if err := CheckCount(ref.Quantity, 1); err != nil {
		return err
	}
	c.Items = append(c.Items, Item{Product: ref, Price: price, Count: 1})
	return nil
}

// SetCount replaces the count of an existing line.
func (c *Cart) SetCount(productID string, count int) error {
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	if err := CheckCount(c.Items[i].Product.Quantity, count); err != nil {
		return err
	}
	c.Items[i].Count = count
	return nil
}

// Remove drops the line for productID. Removing an absent product is a no-op.
func (c *Cart) Remove(productID string) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// Len is the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.Items)
}

// Units is the total number of units across all lines.
func (c *Cart) Units() int {
	n := 0
	for _, it := range c.Items {
		n += it.Count
	}
	return n
}

// Subtotal is the server-computed total when present, otherwise the sum of
// line totals.
func (c *Cart) Subtotal() decimal.Decimal {
	if c.TotalPrice.Valid {
		return c.TotalPrice.Decimal
	}
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Discount is the coupon discount applied by the server, or zero.
func (c *Cart) Discount() decimal.Decimal {
	if !c.TotalAfterDiscount.Valid {
		return decimal.Zero
	}
	sub := c.Subtotal()
	if c.TotalAfterDiscount.Decimal.GreaterThanOrEqual(sub) {
		return decimal.Zero
	}
	return sub.Sub(c.TotalAfterDiscount.Decimal)
}

// Clone returns a deep copy of c.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = append([]Item(nil), c.Items...)
	return &out
}

func (c *Cart) index(productID string) int {
	for i, it := range c.Items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}

// API is the authenticated remote cart. Every call returns the cart as the
// server sees it after the mutation.
type API interface {
	GetCart(ctx context.Context, token string) (*Cart, error)
	AddToCart(ctx context.Context, token, productID string) (*Cart, error)
	UpdateCount(ctx context.Context, token, productID string, count int) (*Cart, error)
	RemoveFromCart(ctx context.Context, token, productID string) (*Cart, error)
	ClearCart(ctx context.Context, token string) error
	ApplyCoupon(ctx context.Context, token, code string) (*Cart, error)
}
