package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/cart"
)

// PaymentMethod selects how an order is paid.
type PaymentMethod string

const (
	// PaymentCash places the order immediately, paid on delivery.
	PaymentCash PaymentMethod = "cash"
	// PaymentCard opens a hosted card checkout session.
	PaymentCard PaymentMethod = "card"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard
}

const minDetailsLen = 5

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	Details string `json:"details"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
}

// Validate checks the checkout form fields.
func (a ShippingAddress) Validate() error {
	fields := map[string]string{}
	switch d := strings.TrimSpace(a.Details); {
	case d == "":
		fields["details"] = "is required"
	case len(d) < minDetailsLen:
		fields["details"] = "must be at least 5 characters"
	}
	switch {
	case a.Phone == "":
		fields["phone"] = "is required"
	case !auth.ValidatePhone(a.Phone):
		fields["phone"] = "must be a valid Egyptian mobile number"
	}
	if strings.TrimSpace(a.City) == "" {
		fields["city"] = "is required"
	}
	if len(fields) > 0 {
		return &auth.ValidationError{Fields: fields}
	}
	return nil
}

// Order is a placed order as reported by the remote API.
type Order struct {
	ID              string
	UserID          string
	Items           []cart.Item
	ShippingAddress ShippingAddress
	TaxPrice        decimal.Decimal
	ShippingPrice   decimal.Decimal
	TotalPrice      decimal.Decimal
	PaymentMethod   PaymentMethod
	IsPaid          bool
	IsDelivered     bool
	CreatedAt       time.Time
}

// CheckoutSession is a hosted card payment page.
type CheckoutSession struct {
	URL string
}

// API is the remote order API.
type API interface {
	CreateCashOrder(ctx context.Context, token, cartID string, addr ShippingAddress) (*Order, error)
	CreateCheckoutSession(ctx context.Context, token, cartID, returnURL string, addr ShippingAddress) (*CheckoutSession, error)
	ListUserOrders(ctx context.Context, token, userID string) ([]Order, error)
}
