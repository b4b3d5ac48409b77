package routemisr

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/domain/order"
	"github.com/xenking/freshcart/internal/domain/product"
	"github.com/xenking/freshcart/internal/domain/wishlist"
)

// Wire shapes of the remote API. Only the fields the storefront reads are
// declared.

type metadataDTO struct {
	CurrentPage   int `json:"currentPage"`
	NumberOfPages int `json:"numberOfPages"`
	Limit         int `json:"limit"`
	NextPage      int `json:"nextPage"`
}

type categoryDTO struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
}

func (c categoryDTO) category() product.Category {
	return product.Category{ID: c.ID, Name: c.Name, Slug: c.Slug, Image: c.Image}
}

func (c categoryDTO) brand() product.Brand {
	return product.Brand{ID: c.ID, Name: c.Name, Slug: c.Slug, Image: c.Image}
}

type productDTO struct {
	ID                 string              `json:"_id"`
	Title              string              `json:"title"`
	Slug               string              `json:"slug"`
	Description        string              `json:"description"`
	Quantity           int                 `json:"quantity"`
	Sold               float64             `json:"sold"`
	Price              decimal.Decimal     `json:"price"`
	PriceAfterDiscount decimal.NullDecimal `json:"priceAfterDiscount"`
	ImageCover         string              `json:"imageCover"`
	Images             []string            `json:"images"`
	Category           categoryDTO         `json:"category"`
	Subcategory        []categoryDTO       `json:"subcategory"`
	Brand              categoryDTO         `json:"brand"`
	RatingsAverage     float64             `json:"ratingsAverage"`
	RatingsQuantity    int                 `json:"ratingsQuantity"`
}

func (p productDTO) product() product.Product {
	subs := make([]product.Category, len(p.Subcategory))
	for i, s := range p.Subcategory {
		subs[i] = s.category()
	}
	return product.Product{
		ID:                 p.ID,
		Title:              p.Title,
		Slug:               p.Slug,
		Description:        p.Description,
		Quantity:           p.Quantity,
		Sold:               int(p.Sold),
		Price:              p.Price,
		PriceAfterDiscount: p.PriceAfterDiscount,
		ImageCover:         p.ImageCover,
		Images:             p.Images,
		Category:           p.Category.category(),
		Subcategories:      subs,
		Brand:              p.Brand.brand(),
		RatingsAverage:     p.RatingsAverage,
		RatingsQuantity:    p.RatingsQuantity,
	}
}

// lineProductDTO is a cart line's product, which the API sends either
// populated or as a bare id (the add-to-cart response).
type lineProductDTO struct {
	productDTO
}

func (p *lineProductDTO) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &p.ID)
	}
	return json.Unmarshal(b, &p.productDTO)
}

// refDTO is a reference the API sends either populated or as a bare id.
type refDTO struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *refDTO) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	type plain refDTO
	return json.Unmarshal(b, (*plain)(r))
}

type cartLineDTO struct {
	Count   int             `json:"count"`
	Product lineProductDTO  `json:"product"`
	Price   decimal.Decimal `json:"price"`
}

func (l cartLineDTO) item() cart.Item {
	return cart.Item{
		Product: cart.ProductRef{
			ID:         l.Product.ID,
			Title:      l.Product.Title,
			ImageCover: l.Product.ImageCover,
			Quantity:   l.Product.Quantity,
			Category:   l.Product.Category.Name,
		},
		Price: l.Price,
		Count: l.Count,
	}
}

func linesToItems(lines []cartLineDTO) []cart.Item {
	items := make([]cart.Item, len(lines))
	for i, l := range lines {
		items[i] = l.item()
	}
	return items
}

type cartDTO struct {
	ID                      string              `json:"_id"`
	CartOwner               string              `json:"cartOwner"`
	Products                []cartLineDTO       `json:"products"`
	TotalCartPrice          decimal.NullDecimal `json:"totalCartPrice"`
	TotalPriceAfterDiscount decimal.NullDecimal `json:"totalPriceAfterDiscount"`
}

type cartResponse struct {
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	NumOfCartItems int     `json:"numOfCartItems"`
	CartID         string  `json:"cartId"`
	Data           cartDTO `json:"data"`
}

func (r cartResponse) cart() *cart.Cart {
	id := r.CartID
	if id == "" {
		id = r.Data.ID
	}
	return &cart.Cart{
		ID:                 id,
		OwnerID:            r.Data.CartOwner,
		Items:              linesToItems(r.Data.Products),
		TotalPrice:         r.Data.TotalCartPrice,
		TotalAfterDiscount: r.Data.TotalPriceAfterDiscount,
	}
}

type wishlistResponse struct {
	Status string       `json:"status"`
	Count  int          `json:"count"`
	Data   []productDTO `json:"data"`
}

func (r wishlistResponse) wishlist() *wishlist.Wishlist {
	w := &wishlist.Wishlist{Items: make([]wishlist.Item, 0, len(r.Data))}
	for _, p := range r.Data {
		w.Items = append(w.Items, wishlist.ItemFromProduct(p.product()))
	}
	return w
}

type wishlistIDsResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Data    []string `json:"data"`
}

type orderDTO struct {
	ID                string                `json:"_id"`
	User              refDTO                `json:"user"`
	CartItems         []cartLineDTO         `json:"cartItems"`
	ShippingAddress   order.ShippingAddress `json:"shippingAddress"`
	TaxPrice          decimal.Decimal       `json:"taxPrice"`
	ShippingPrice     decimal.Decimal       `json:"shippingPrice"`
	TotalOrderPrice   decimal.Decimal       `json:"totalOrderPrice"`
	PaymentMethodType string                `json:"paymentMethodType"`
	IsPaid            bool                  `json:"isPaid"`
	IsDelivered       bool                  `json:"isDelivered"`
	CreatedAt         time.Time             `json:"createdAt"`
}

func (o orderDTO) order() order.Order {
	return order.Order{
		ID:              o.ID,
		UserID:          o.User.ID,
		Items:           linesToItems(o.CartItems),
		ShippingAddress: o.ShippingAddress,
		TaxPrice:        o.TaxPrice,
		ShippingPrice:   o.ShippingPrice,
		TotalPrice:      o.TotalOrderPrice,
		PaymentMethod:   order.PaymentMethod(o.PaymentMethodType),
		IsPaid:          o.IsPaid,
		IsDelivered:     o.IsDelivered,
		CreatedAt:       o.CreatedAt,
	}
}

type reviewDTO struct {
	ID        string    `json:"_id"`
	Review    string    `json:"review"`
	Rating    float64   `json:"rating"`
	Product   string    `json:"product"`
	User      refDTO    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r reviewDTO) review() product.Review {
	return product.Review{
		ID:        r.ID,
		Text:      r.Review,
		Rating:    r.Rating,
		ProductID: r.Product,
		UserName:  r.User.Name,
		CreatedAt: r.CreatedAt,
	}
}

type userDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResponse struct {
	Message string  `json:"message"`
	User    userDTO `json:"user"`
	Token   string  `json:"token"`
}
