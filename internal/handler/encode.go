package handler

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/domain/order"
	"github.com/xenking/freshcart/internal/domain/pricing"
	"github.com/xenking/freshcart/internal/domain/product"
	"github.com/xenking/freshcart/internal/domain/wishlist"
)

const timeLayout = time.RFC3339

func encodeCategory(e *jx.Encoder, c product.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("slug")
	e.Str(c.Slug)
	if c.Image != "" {
		e.FieldStart("image")
		e.Str(c.Image)
	}
	e.ObjEnd()
}

func encodeBrand(e *jx.Encoder, b product.Brand) {
	encodeCategory(e, product.Category(b))
}

// encodeProduct writes a product card. inWishlist marks the heart icon.
func encodeProduct(e *jx.Encoder, p product.Product, inWishlist bool) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("title")
	e.Str(p.Title)
	e.FieldStart("slug")
	e.Str(p.Slug)
	if p.Description != "" {
		e.FieldStart("description")
		e.Str(p.Description)
	}
	e.FieldStart("quantity")
	e.Int(p.Quantity)
	e.FieldStart("inStock")
	e.Bool(p.InStock())
	e.FieldStart("sold")
	e.Int(p.Sold)
	e.FieldStart("price")
	writeMoney(e, p.Price)
	e.FieldStart("priceAfterDiscount")
	writeOptMoney(e, p.PriceAfterDiscount)
	e.FieldStart("effectivePrice")
	writeMoney(e, p.EffectivePrice())
	e.FieldStart("discountPercent")
	e.Int(pricing.ItemDiscountPercent(p.Price, p.PriceAfterDiscount))
	e.FieldStart("imageCover")
	e.Str(p.ImageCover)
	if len(p.Images) > 0 {
		e.FieldStart("images")
		writeStrings(e, p.Images)
	}
	e.FieldStart("category")
	encodeCategory(e, p.Category)
	if len(p.Subcategories) > 0 {
		e.FieldStart("subcategories")
		e.ArrStart()
		for _, s := range p.Subcategories {
			encodeCategory(e, s)
		}
		e.ArrEnd()
	}
	e.FieldStart("brand")
	encodeBrand(e, p.Brand)
	e.FieldStart("ratingsAverage")
	e.Float64(p.RatingsAverage)
	e.FieldStart("ratingsQuantity")
	e.Int(p.RatingsQuantity)
	e.FieldStart("inWishlist")
	e.Bool(inWishlist)
	e.ObjEnd()
}

func encodePage(e *jx.Encoder, p product.Page) {
	e.ObjStart()
	e.FieldStart("results")
	e.Int(p.Results)
	e.FieldStart("currentPage")
	e.Int(p.CurrentPage)
	e.FieldStart("numberOfPages")
	e.Int(p.NumberOfPages)
	e.FieldStart("limit")
	e.Int(p.Limit)
	if p.NextPage > 0 {
		e.FieldStart("nextPage")
		e.Int(p.NextPage)
	}
	e.ObjEnd()
}

func encodeReview(e *jx.Encoder, r product.Review) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.ID)
	e.FieldStart("review")
	e.Str(r.Text)
	e.FieldStart("rating")
	e.Float64(r.Rating)
	e.FieldStart("productId")
	e.Str(r.ProductID)
	e.FieldStart("user")
	e.Str(r.UserName)
	if !r.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		e.Str(r.CreatedAt.UTC().Format(timeLayout))
	}
	e.ObjEnd()
}

func encodeUser(e *jx.Encoder, u auth.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID)
	e.FieldStart("name")
	e.Str(u.Name)
	if u.Email != "" {
		e.FieldStart("email")
		e.Str(u.Email)
	}
	e.FieldStart("role")
	e.Str(u.Role)
	e.ObjEnd()
}

func encodeCartItem(e *jx.Encoder, it cart.Item) {
	e.ObjStart()
	e.FieldStart("product")
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.Product.ID)
	e.FieldStart("title")
	e.Str(it.Product.Title)
	e.FieldStart("imageCover")
	e.Str(it.Product.ImageCover)
	e.FieldStart("quantity")
	e.Int(it.Product.Quantity)
	e.FieldStart("category")
	e.Str(it.Product.Category)
	e.ObjEnd()
	e.FieldStart("price")
	writeMoney(e, it.Price)
	e.FieldStart("count")
	e.Int(it.Count)
	e.FieldStart("lineTotal")
	writeMoney(e, it.LineTotal())
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s pricing.Summary) {
	e.ObjStart()
	e.FieldStart("lines")
	e.Int(s.Lines)
	e.FieldStart("units")
	e.Int(s.Units)
	e.FieldStart("subtotal")
	writeMoney(e, s.Subtotal)
	e.FieldStart("discount")
	writeMoney(e, s.Discount)
	e.FieldStart("shipping")
	writeMoney(e, s.Shipping)
	e.FieldStart("total")
	writeMoney(e, s.Total)
	e.FieldStart("freeShippingRemaining")
	writeMoney(e, s.FreeShippingRemaining)
	e.ObjEnd()
}

// encodeCart writes the cart with its pricing summary. guest marks carts
// kept in guest storage rather than on the store account.
func encodeCart(e *jx.Encoder, c *cart.Cart, s pricing.Summary, guest bool) {
	e.ObjStart()
	if c.ID != "" {
		e.FieldStart("id")
		e.Str(c.ID)
	}
	e.FieldStart("guest")
	e.Bool(guest)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.Items {
		encodeCartItem(e, it)
	}
	e.ArrEnd()
	e.FieldStart("summary")
	encodeSummary(e, s)
	e.ObjEnd()
}

func encodeWishlistItem(e *jx.Encoder, it wishlist.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("title")
	e.Str(it.Title)
	e.FieldStart("imageCover")
	e.Str(it.ImageCover)
	e.FieldStart("price")
	writeMoney(e, it.Price)
	e.FieldStart("priceAfterDiscount")
	writeOptMoney(e, it.PriceAfterDiscount)
	e.FieldStart("discountPercent")
	e.Int(pricing.ItemDiscountPercent(it.Price, it.PriceAfterDiscount))
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("ratingsAverage")
	e.Float64(it.RatingsAverage)
	e.ObjEnd()
}

func encodeWishlist(e *jx.Encoder, w *wishlist.Wishlist, guest bool) {
	e.ObjStart()
	e.FieldStart("guest")
	e.Bool(guest)
	e.FieldStart("count")
	e.Int(len(w.Items))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range w.Items {
		encodeWishlistItem(e, it)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a order.ShippingAddress) {
	e.ObjStart()
	e.FieldStart("details")
	e.Str(a.Details)
	e.FieldStart("phone")
	e.Str(a.Phone)
	e.FieldStart("city")
	e.Str(a.City)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		encodeCartItem(e, it)
	}
	e.ArrEnd()
	e.FieldStart("shippingAddress")
	encodeAddress(e, o.ShippingAddress)
	e.FieldStart("taxPrice")
	writeMoney(e, o.TaxPrice)
	e.FieldStart("shippingPrice")
	writeMoney(e, o.ShippingPrice)
	e.FieldStart("totalPrice")
	writeMoney(e, o.TotalPrice)
	e.FieldStart("paymentMethod")
	e.Str(string(o.PaymentMethod))
	e.FieldStart("isPaid")
	e.Bool(o.IsPaid)
	e.FieldStart("isDelivered")
	e.Bool(o.IsDelivered)
	if !o.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		e.Str(o.CreatedAt.UTC().Format(timeLayout))
	}
	e.ObjEnd()
}
