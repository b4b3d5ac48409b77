// Package handler serves the storefront HTTP API. Signed-in shoppers are
// proxied to the remote API with their session token; guests work against
// server-side guest storage until they sign in.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/domain/order"
	"github.com/xenking/freshcart/internal/domain/pricing"
	"github.com/xenking/freshcart/internal/domain/product"
	"github.com/xenking/freshcart/internal/domain/wishlist"
	"github.com/xenking/freshcart/internal/guest"
	"github.com/xenking/freshcart/internal/merge"
	"github.com/xenking/freshcart/internal/state"
)

// Merger moves guest state into a signed-in account.
type Merger interface {
	Merge(ctx context.Context, guestID, token, userID string) (*merge.Report, error)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Auth      auth.Authenticator
	Catalog   product.Catalog
	Carts     cart.API
	Wishlists wishlist.API
	Orders    *order.Service
	Guests    *guest.Repository
	Merger    Merger
	Mirror    *state.Mirror
}

// Config holds non-dependency settings.
type Config struct {
	Cookies CookieConfig
	Pricing pricing.Rules
}

// Handler implements the /api routes.
type Handler struct {
	auth      auth.Authenticator
	catalog   product.Catalog
	carts     cart.API
	wishlists wishlist.API
	orders    *order.Service
	guests    *guest.Repository
	merger    Merger
	mirror    *state.Mirror

	cookies CookieConfig
	pricing pricing.Rules
	now     func() time.Time
}

// New creates a Handler.
func New(cfg Config, deps Deps) *Handler {
	return &Handler{
		auth:      deps.Auth,
		catalog:   deps.Catalog,
		carts:     deps.Carts,
		wishlists: deps.Wishlists,
		orders:    deps.Orders,
		guests:    deps.Guests,
		merger:    deps.Merger,
		mirror:    deps.Mirror,
		cookies:   cfg.Cookies.withDefaults(),
		pricing:   cfg.Pricing,
		now:       time.Now,
	}
}

// Routes returns the API router, rooted at /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.resolveSession)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", h.SignIn)
			r.Post("/signup", h.SignUp)
			r.Post("/signout", h.SignOut)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/verify-reset-code", h.VerifyResetCode)
			r.Put("/reset-password", h.ResetPassword)
			r.With(h.requireSession).Get("/me", h.Me)
		})

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/products/{id}/reviews", h.ListReviews)
		r.With(h.requireSession).Post("/products/{id}/reviews", h.AddReview)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{id}", h.GetCategory)
		r.Get("/brands", h.ListBrands)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/", h.AddToCart)
			r.Delete("/", h.ClearCart)
			r.With(h.requireSession).Put("/coupon", h.ApplyCoupon)
			r.Put("/{productId}", h.UpdateCartItem)
			r.Delete("/{productId}", h.RemoveCartItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.GetWishlist)
			r.Post("/", h.AddToWishlist)
			r.Delete("/{productId}", h.RemoveFromWishlist)
		})

		r.With(h.requireSession).Post("/checkout", h.Checkout)
		r.With(h.requireSession).Get("/orders", h.ListOrders)
	})
	return r
}
