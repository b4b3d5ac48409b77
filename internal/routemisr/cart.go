package routemisr

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/cart"
)

var _ cart.API = (*Client)(nil)

// cartCall runs an authenticated cart request and decodes the cart it returns.
func (cl *Client) cartCall(ctx context.Context, op string, c call) (*cart.Cart, error) {
	if c.token == "" {
		return nil, auth.ErrUnauthenticated
	}
	var resp cartResponse
	if err := cl.do(ctx, c, &resp); err != nil {
		return nil, wrap(err, op)
	}
	return resp.cart(), nil
}

// GetCart returns the user's cart. A user without a cart gets an empty one.
func (cl *Client) GetCart(ctx context.Context, token string) (*cart.Cart, error) {
	c, err := cl.cartCall(ctx, "get cart", call{
		method: http.MethodGet,
		path:   "/cart",
		token:  token,
	})
	if err != nil {
		if IsNotFound(err) {
			return &cart.Cart{}, nil
		}
		return nil, err
	}
	return c, nil
}

// AddToCart adds one unit of productID. The API populates only product IDs
// in this response.
func (cl *Client) AddToCart(ctx context.Context, token, productID string) (*cart.Cart, error) {
	return cl.cartCall(ctx, "add to cart", call{
		method: http.MethodPost,
		path:   "/cart",
		token:  token,
		body:   map[string]string{"productId": productID},
	})
}

// UpdateCount sets the quantity of a cart line.
func (cl *Client) UpdateCount(ctx context.Context, token, productID string, count int) (*cart.Cart, error) {
	if err := cart.CheckCount(0, count); err != nil {
		return nil, err
	}
	return cl.cartCall(ctx, "update cart count", call{
		method: http.MethodPut,
		path:   "/cart/" + url.PathEscape(productID),
		token:  token,
		body:   map[string]int{"count": count},
	})
}

// RemoveFromCart drops a cart line.
func (cl *Client) RemoveFromCart(ctx context.Context, token, productID string) (*cart.Cart, error) {
	return cl.cartCall(ctx, "remove from cart", call{
		method: http.MethodDelete,
		path:   "/cart/" + url.PathEscape(productID),
		token:  token,
	})
}

// ClearCart deletes the user's cart.
func (cl *Client) ClearCart(ctx context.Context, token string) error {
	if token == "" {
		return auth.ErrUnauthenticated
	}
	err := cl.do(ctx, call{
		method: http.MethodDelete,
		path:   "/cart",
		token:  token,
	}, nil)
	if err != nil && !IsNotFound(err) {
		return wrap(err, "clear cart")
	}
	return nil
}

// ApplyCoupon applies a coupon code to the user's cart.
func (cl *Client) ApplyCoupon(ctx context.Context, token, code string) (*cart.Cart, error) {
	return cl.cartCall(ctx, "apply coupon", call{
		method: http.MethodPut,
		path:   "/cart/applyCoupon",
		token:  token,
		body:   map[string]string{"couponName": code},
	})
}
