package routemisr

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/product"
)

var _ product.Catalog = (*Client)(nil)

// listQuery renders p as the API's query syntax.
func listQuery(p product.ListParams) url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Keyword != "" {
		q.Set("keyword", p.Keyword)
	}
	for _, id := range p.CategoryIDs {
		q.Add("category[in]", id)
	}
	if p.BrandID != "" {
		q.Set("brand", p.BrandID)
	}
	if p.PriceMin.Valid {
		q.Set("price[gte]", p.PriceMin.Decimal.String())
	}
	if p.PriceMax.Valid {
		q.Set("price[lte]", p.PriceMax.Decimal.String())
	}
	return q
}

// ListProducts returns one page of products matching params.
func (cl *Client) ListProducts(ctx context.Context, params product.ListParams) (*product.Listing, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var resp struct {
		Results  int          `json:"results"`
		Metadata metadataDTO  `json:"metadata"`
		Data     []productDTO `json:"data"`
	}
	err := cl.do(ctx, call{
		method: http.MethodGet,
		path:   "/products",
		query:  listQuery(params),
	}, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	out := &product.Listing{
		Products: make([]product.Product, len(resp.Data)),
		Page: product.Page{
			Results:       resp.Results,
			CurrentPage:   resp.Metadata.CurrentPage,
			NumberOfPages: resp.Metadata.NumberOfPages,
			Limit:         resp.Metadata.Limit,
			NextPage:      resp.Metadata.NextPage,
		},
	}
	for i, p := range resp.Data {
		out.Products[i] = p.product()
	}
	return out, nil
}

// GetProduct returns a single product.
func (cl *Client) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	var resp struct {
		Data productDTO `json:"data"`
	}
	err := cl.do(ctx, call{
		method: http.MethodGet,
		path:   "/products/" + url.PathEscape(id),
	}, &resp)
	if err != nil {
		return nil, notFound(err, "get product")
	}
	if resp.Data.ID == "" {
		return nil, product.ErrNotFound
	}
	p := resp.Data.product()
	return &p, nil
}

// ListCategories returns every category.
func (cl *Client) ListCategories(ctx context.Context) ([]product.Category, error) {
	var resp struct {
		Data []categoryDTO `json:"data"`
	}
	if err := cl.do(ctx, call{method: http.MethodGet, path: "/categories"}, &resp); err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	out := make([]product.Category, len(resp.Data))
	for i, c := range resp.Data {
		out[i] = c.category()
	}
	return out, nil
}

// GetCategory returns a single category.
func (cl *Client) GetCategory(ctx context.Context, id string) (*product.Category, error) {
	var resp struct {
		Data categoryDTO `json:"data"`
	}
	err := cl.do(ctx, call{
		method: http.MethodGet,
		path:   "/categories/" + url.PathEscape(id),
	}, &resp)
	if err != nil {
		return nil, notFound(err, "get category")
	}
	if resp.Data.ID == "" {
		return nil, product.ErrNotFound
	}
	c := resp.Data.category()
	return &c, nil
}

// ListBrands returns every brand.
func (cl *Client) ListBrands(ctx context.Context) ([]product.Brand, error) {
	var resp struct {
		Data []categoryDTO `json:"data"`
	}
	if err := cl.do(ctx, call{method: http.MethodGet, path: "/brands"}, &resp); err != nil {
		return nil, errors.Wrap(err, "list brands")
	}
	out := make([]product.Brand, len(resp.Data))
	for i, b := range resp.Data {
		out[i] = b.brand()
	}
	return out, nil
}

// ListReviews returns the reviews of a product.
func (cl *Client) ListReviews(ctx context.Context, productID string) ([]product.Review, error) {
	var resp struct {
		Data []reviewDTO `json:"data"`
	}
	err := cl.do(ctx, call{
		method: http.MethodGet,
		path:   "/products/" + url.PathEscape(productID) + "/reviews",
	}, &resp)
	if err != nil {
		return nil, notFound(err, "list reviews")
	}
	out := make([]product.Review, len(resp.Data))
	for i, r := range resp.Data {
		out[i] = r.review()
	}
	return out, nil
}

// AddReview posts a review as the token's user.
func (cl *Client) AddReview(ctx context.Context, token, productID string, review product.NewReview) (*product.Review, error) {
	if token == "" {
		return nil, auth.ErrUnauthenticated
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}
	var resp struct {
		Data reviewDTO `json:"data"`
	}
	err := cl.do(ctx, call{
		method: http.MethodPost,
		path:   "/products/" + url.PathEscape(productID) + "/reviews",
		token:  token,
		body: map[string]any{
			"review": review.Text,
			"rating": review.Rating,
		},
	}, &resp)
	if err != nil {
		return nil, notFound(err, "add review")
	}
	r := resp.Data.review()
	if r.ProductID == "" {
		r.ProductID = productID
	}
	return &r, nil
}

// notFound maps an upstream 404 to product.ErrNotFound.
func notFound(err error, op string) error {
	if IsNotFound(err) {
		return errors.Wrap(product.ErrNotFound, op)
	}
	return wrap(err, op)
}
