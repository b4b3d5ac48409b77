package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteFinder resolves the route pattern serving r, e.g. "/api/cart/{productId}".
type RouteFinder func(r *http.Request) (string, bool)

// MakeRouteFinder resolves patterns against a chi router without serving
// the request, so middleware outside the router can label by route.
func MakeRouteFinder(routes chi.Routes) RouteFinder {
	return func(r *http.Request) (string, bool) {
		rctx := chi.NewRouteContext()
		if !routes.Match(rctx, r.Method, r.URL.Path) {
			return "", false
		}
		return rctx.RoutePattern(), true
	}
}
