package product

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product, category or brand does
// not exist upstream.
var ErrNotFound = errors.New("product not found")

// Sentinel errors for catalog query and review validation.
var (
	ErrInvalidPage       = errors.New("page must be at least 1")
	ErrInvalidLimit      = errors.New("limit must be between 1 and 100")
	ErrInvalidPriceRange = errors.New("minimum price exceeds maximum price")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrEmptyReview       = errors.New("review text is required")
	ErrReviewTooLong     = errors.New("review text must be at most 500 characters")
)

const (
	// MaxLimit caps the page size forwarded upstream.
	MaxLimit = 100
	// MaxReviewLength is the maximum review length in runes.
	MaxReviewLength = 500
)

// Product is a catalog item as exposed by the remote API.
type Product struct {
	ID                 string
	Title              string
	Slug               string
	Description        string
	Quantity           int
	Sold               int
	Price              decimal.Decimal
	PriceAfterDiscount decimal.NullDecimal
	ImageCover         string
	Images             []string
	Category           Category
	Subcategories      []Category
	Brand              Brand
	RatingsAverage     float64
	RatingsQuantity    int
}

// EffectivePrice is the price a shopper pays: the discounted price when it is
// set and lower than the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.PriceAfterDiscount.Valid && p.PriceAfterDiscount.Decimal.LessThan(p.Price) {
		return p.PriceAfterDiscount.Decimal
	}
	return p.Price
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Quantity > 0
}

// Category groups products. Subcategories use the same shape.
type Category struct {
	ID    string
	Name  string
	Slug  string
	Image string
}

// Brand is a product manufacturer.
type Brand struct {
	ID    string
	Name  string
	Slug  string
	Image string
}

// Review is a shopper's rating of a product.
type Review struct {
	ID        string
	Text      string
	Rating    float64
	ProductID string
	UserName  string
	CreatedAt time.Time
}

// NewReview is the input for posting a review.
type NewReview struct {
	Text   string
	Rating float64
}

// Validate checks rating bounds and review length.
func (r NewReview) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	if r.Text == "" {
		return ErrEmptyReview
	}
	if utf8.RuneCountInString(r.Text) > MaxReviewLength {
		return ErrReviewTooLong
	}
	return nil
}

// Page carries upstream pagination metadata.
type Page struct {
	Results       int
	CurrentPage   int
	NumberOfPages int
	Limit         int
	NextPage      int
}

// ListParams filters and paginates a product listing.
type ListParams struct {
	Page        int
	Limit       int
	Sort        string
	Keyword     string
	CategoryIDs []string
	BrandID     string
	PriceMin    decimal.NullDecimal
	PriceMax    decimal.NullDecimal
}

// Validate checks pagination bounds and the price range. Zero Page and Limit
// mean "upstream default" and are accepted.
func (p ListParams) Validate() error {
	if p.Page < 0 {
		return ErrInvalidPage
	}
	if p.Limit < 0 || p.Limit > MaxLimit {
		return ErrInvalidLimit
	}
	if p.PriceMin.Valid && p.PriceMax.Valid && p.PriceMin.Decimal.GreaterThan(p.PriceMax.Decimal) {
		return ErrInvalidPriceRange
	}
	return nil
}

// Listing is one page of products.
type Listing struct {
	Products []Product
	Page     Page
}

// Catalog provides read access to products, categories, brands and reviews.
// The token is optional except for AddReview.
type Catalog interface {
	ListProducts(ctx context.Context, params ListParams) (*Listing, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListBrands(ctx context.Context) ([]Brand, error)
	ListReviews(ctx context.Context, productID string) ([]Review, error)
	AddReview(ctx context.Context, token, productID string, review NewReview) (*Review, error)
}
