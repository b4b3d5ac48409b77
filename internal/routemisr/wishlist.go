package routemisr

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/wishlist"
)

var _ wishlist.API = (*Client)(nil)

// GetWishlist returns the user's wishlist with populated products.
func (cl *Client) GetWishlist(ctx context.Context, token string) (*wishlist.Wishlist, error) {
	if token == "" {
		return nil, auth.ErrUnauthenticated
	}
	var resp wishlistResponse
	err := cl.do(ctx, call{
		method: http.MethodGet,
		path:   "/wishlist",
		token:  token,
	}, &resp)
	if err != nil {
		if IsNotFound(err) {
			return &wishlist.Wishlist{}, nil
		}
		return nil, wrap(err, "get wishlist")
	}
	return resp.wishlist(), nil
}

// AddToWishlist saves productID and returns the saved IDs.
func (cl *Client) AddToWishlist(ctx context.Context, token, productID string) ([]string, error) {
	return cl.wishlistIDs(ctx, "add to wishlist", call{
		method: http.MethodPost,
		path:   "/wishlist",
		token:  token,
		body:   map[string]string{"productId": productID},
	})
}

// RemoveFromWishlist drops productID and returns the saved IDs.
func (cl *Client) RemoveFromWishlist(ctx context.Context, token, productID string) ([]string, error) {
	return cl.wishlistIDs(ctx, "remove from wishlist", call{
		method: http.MethodDelete,
		path:   "/wishlist/" + url.PathEscape(productID),
		token:  token,
	})
}

func (cl *Client) wishlistIDs(ctx context.Context, op string, c call) ([]string, error) {
	if c.token == "" {
		return nil, auth.ErrUnauthenticated
	}
	var resp wishlistIDsResponse
	if err := cl.do(ctx, c, &resp); err != nil {
		return nil, wrap(err, op)
	}
	if resp.Data == nil {
		resp.Data = []string{}
	}
	return resp.Data, nil
}
