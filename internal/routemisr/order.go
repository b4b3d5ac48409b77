package routemisr

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/order"
)

var _ order.API = (*Client)(nil)

// CreateCashOrder turns the cart into a cash-on-delivery order. The API
// deletes the cart on success.
func (cl *Client) CreateCashOrder(ctx context.Context, token, cartID string, addr order.ShippingAddress) (*order.Order, error) {
	if token == "" {
		return nil, auth.ErrUnauthenticated
	}
	var resp struct {
		Data orderDTO `json:"data"`
	}
	err := cl.do(ctx, call{
		method: http.MethodPost,
		path:   "/orders/" + url.PathEscape(cartID),
		token:  token,
		body:   map[string]order.ShippingAddress{"shippingAddress": addr},
	}, &resp)
	if err != nil {
		return nil, wrap(err, "create cash order")
	}
	o := resp.Data.order()
	return &o, nil
}

// CreateCheckoutSession starts a hosted card payment for the cart. The
// payment page redirects to returnURL when done.
func (cl *Client) CreateCheckoutSession(ctx context.Context, token, cartID, returnURL string, addr order.ShippingAddress) (*order.CheckoutSession, error) {
	if token == "" {
		return nil, auth.ErrUnauthenticated
	}
	var resp struct {
		Session struct {
			URL string `json:"url"`
		} `json:"session"`
	}
	err := cl.do(ctx, call{
		method: http.MethodPost,
		path:   "/orders/checkout-session/" + url.PathEscape(cartID),
		token:  token,
		query:  url.Values{"url": {returnURL}},
		body:   map[string]order.ShippingAddress{"shippingAddress": addr},
	}, &resp)
	if err != nil {
		return nil, wrap(err, "create checkout session")
	}
	if resp.Session.URL == "" {
		return nil, errors.New("checkout session without url")
	}
	return &order.CheckoutSession{URL: resp.Session.URL}, nil
}

// ListUserOrders returns every order of userID, oldest first as the API
// reports them.
func (cl *Client) ListUserOrders(ctx context.Context, token, userID string) ([]order.Order, error) {
	var resp []orderDTO
	err := cl.do(ctx, call{
		method: http.MethodGet,
		path:   "/orders/user/" + url.PathEscape(userID),
		token:  token,
	}, &resp)
	if err != nil {
		return nil, wrap(err, "list orders")
	}
	out := make([]order.Order, len(resp))
	for i, o := range resp {
		out[i] = o.order()
	}
	return out, nil
}
