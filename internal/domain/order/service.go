package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/events"
)

// Sentinel errors for checkout.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrUnknownPaymentMethod = errors.New("payment method must be cash or card")
)

// PlaceOrderRequest holds checkout form input.
type PlaceOrderRequest struct {
	Token   string
	UserID  string
	Method  PaymentMethod
	Address ShippingAddress
}

// PlaceOrderResult is either a placed cash order or a card checkout session.
type PlaceOrderResult struct {
	Order   *Order
	Session *CheckoutSession
}

// Service runs checkout against the remote cart and order APIs.
type Service struct {
	carts     cart.API
	orders    API
	events    events.Publisher
	returnURL string
	now       func() time.Time
}

// NewService creates a checkout Service. returnURL is where the card payment
// page sends the shopper after paying.
func NewService(carts cart.API, orders API, publisher events.Publisher, returnURL string) *Service {
	return &Service{
		carts:     carts,
		orders:    orders,
		events:    publisher,
		returnURL: returnURL,
		now:       time.Now,
	}
}

// PlaceOrder validates the form, resolves the shopper's current cart and
// either places a cash order or opens a card checkout session.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if !req.Method.Valid() {
		return nil, ErrUnknownPaymentMethod
	}
	if err := req.Address.Validate(); err != nil {
		return nil, err
	}

	c, err := s.carts.GetCart(ctx, req.Token)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if c.ID == "" || c.Len() == 0 {
		return nil, ErrEmptyCart
	}

	if req.Method == PaymentCard {
		sess, err := s.orders.CreateCheckoutSession(ctx, req.Token, c.ID, s.returnURL, req.Address)
		if err != nil {
			return nil, errors.Wrap(err, "create checkout session")
		}
		return &PlaceOrderResult{Session: sess}, nil
	}

	o, err := s.orders.CreateCashOrder(ctx, req.Token, c.ID, req.Address)
	if err != nil {
		return nil, errors.Wrap(err, "create cash order")
	}

	if err := s.events.Publish(ctx, events.Event{
		Type: events.TypeOrderPlaced,
		Key:  req.UserID,
		At:   s.now(),
		Payload: map[string]any{
			"order_id": o.ID,
			"total":    o.TotalPrice.String(),
			"items":    len(o.Items),
			"payment":  string(PaymentCash),
		},
	}); err != nil {
		zctx.From(ctx).Warn("Publish order event failed", zap.Error(err))
	}

	return &PlaceOrderResult{Order: o}, nil
}

// ListOrders returns the shopper's order history.
func (s *Service) ListOrders(ctx context.Context, token, userID string) ([]Order, error) {
	orders, err := s.orders.ListUserOrders(ctx, token, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}
