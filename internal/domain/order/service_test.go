package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/events"
)

// --- Mock implementations ---

type mockCartAPI struct {
	cart.API
	cart   *cart.Cart
	getErr error
}

func (m *mockCartAPI) GetCart(_ context.Context, _ string) (*cart.Cart, error) {
	return m.cart, m.getErr
}

type mockOrderAPI struct {
	cashCartID    string
	sessionCartID string
	returnURL     string
	cashErr       error
}

func (m *mockOrderAPI) CreateCashOrder(_ context.Context, _, cartID string, _ ShippingAddress) (*Order, error) {
	m.cashCartID = cartID
	if m.cashErr != nil {
		return nil, m.cashErr
	}
	return &Order{ID: "o-1", TotalPrice: decimal.NewFromInt(120), PaymentMethod: PaymentCash}, nil
}

func (m *mockOrderAPI) CreateCheckoutSession(_ context.Context, _, cartID, returnURL string, _ ShippingAddress) (*CheckoutSession, error) {
	m.sessionCartID = cartID
	m.returnURL = returnURL
	return &CheckoutSession{URL: "https://pay.example.com/s/1"}, nil
}

func (m *mockOrderAPI) ListUserOrders(_ context.Context, _, _ string) ([]Order, error) {
	return []Order{{ID: "o-1"}}, nil
}

// --- Helpers ---

var validAddress = ShippingAddress{Details: "12 Tahrir St", Phone: "01112345678", City: "Cairo"}

func filledCart() *cart.Cart {
	return &cart.Cart{
		ID: "c-1",
		Items: []cart.Item{{
			Product: cart.ProductRef{ID: "p1", Quantity: 5},
			Price:   decimal.NewFromInt(60),
			Count:   2,
		}},
	}
}

// --- Tests ---

func TestPlaceOrder_Cash(t *testing.T) {
	orders := &mockOrderAPI{}
	rec := &events.Recorder{}
	svc := NewService(&mockCartAPI{cart: filledCart()}, orders, rec, "https://shop.example.com/allorders")

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Token:   "tok",
		UserID:  "u-1",
		Method:  PaymentCash,
		Address: validAddress,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Nil(t, res.Session)
	assert.Equal(t, "c-1", orders.cashCartID)

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeOrderPlaced, evs[0].Type)
	assert.Equal(t, "u-1", evs[0].Key)
	assert.Equal(t, "o-1", evs[0].Payload["order_id"])
}

func TestPlaceOrder_Card(t *testing.T) {
	orders := &mockOrderAPI{}
	rec := &events.Recorder{}
	svc := NewService(&mockCartAPI{cart: filledCart()}, orders, rec, "https://shop.example.com/allorders")

	res, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Token:   "tok",
		Method:  PaymentCard,
		Address: validAddress,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, "https://pay.example.com/s/1", res.Session.URL)
	assert.Equal(t, "https://shop.example.com/allorders", orders.returnURL)
	assert.Empty(t, rec.Events(), "card checkout completes outside the storefront")
}

func TestPlaceOrder_UnknownMethod(t *testing.T) {
	svc := NewService(&mockCartAPI{cart: filledCart()}, &mockOrderAPI{}, events.Nop{}, "")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{Method: "crypto", Address: validAddress})
	require.ErrorIs(t, err, ErrUnknownPaymentMethod)
}

func TestPlaceOrder_InvalidAddress(t *testing.T) {
	svc := NewService(&mockCartAPI{cart: filledCart()}, &mockOrderAPI{}, events.Nop{}, "")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Method:  PaymentCash,
		Address: ShippingAddress{Details: "abc", Phone: "123"},
	})

	var verr *auth.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "details")
	assert.Contains(t, verr.Fields, "phone")
	assert.Contains(t, verr.Fields, "city")
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	svc := NewService(&mockCartAPI{cart: &cart.Cart{ID: "c-1"}}, &mockOrderAPI{}, events.Nop{}, "")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{Method: PaymentCash, Address: validAddress})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_UpstreamError(t *testing.T) {
	orders := &mockOrderAPI{cashErr: errors.New("upstream down")}
	svc := NewService(&mockCartAPI{cart: filledCart()}, orders, events.Nop{}, "")

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{Method: PaymentCash, Address: validAddress})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create cash order")
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, PaymentCash.Valid())
	assert.True(t, PaymentCard.Valid())
	assert.False(t, PaymentMethod("").Valid())
}
