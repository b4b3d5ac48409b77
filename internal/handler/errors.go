package handler

import (
	"net/http"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/domain/order"
	"github.com/xenking/freshcart/internal/domain/product"
	"github.com/xenking/freshcart/internal/routemisr"
)

// LoginPath is where the front-end sends shoppers whose session ended.
const LoginPath = "/login"

// apiError is the error body. Fields is set for form validation failures,
// Redirect for authentication failures.
type apiError struct {
	Code     int
	Message  string
	Fields   map[string]string
	Redirect string
}

func (a apiError) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(a.Code)
	e.FieldStart("message")
	e.Str(a.Message)
	if len(a.Fields) > 0 {
		keys := make([]string, 0, len(a.Fields))
		for k := range a.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		e.FieldStart("fields")
		e.ObjStart()
		for _, k := range keys {
			e.FieldStart(k)
			e.Str(a.Fields[k])
		}
		e.ObjEnd()
	}
	if a.Redirect != "" {
		e.FieldStart("redirect")
		e.Str(a.Redirect)
	}
	e.ObjEnd()
}

// mapError converts domain and upstream errors to a response body.
func mapError(err error) apiError {
	var (
		verr   *auth.ValidationError
		apiErr *routemisr.APIError
	)
	switch {
	case errors.As(err, &verr):
		return apiError{Code: http.StatusUnprocessableEntity, Message: "validation failed", Fields: verr.Fields}

	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrMalformedToken):
		msg := auth.ErrUnauthenticated.Error()
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return apiError{Code: http.StatusUnauthorized, Message: msg, Redirect: LoginPath}

	case errors.Is(err, product.ErrNotFound):
		return apiError{Code: http.StatusNotFound, Message: "product not found"}
	case errors.Is(err, cart.ErrNotInCart):
		return apiError{Code: http.StatusNotFound, Message: cart.ErrNotInCart.Error()}

	case errors.Is(err, errMalformedBody):
		return apiError{Code: http.StatusBadRequest, Message: errMalformedBody.Error()}
	case errors.Is(err, product.ErrInvalidPage),
		errors.Is(err, product.ErrInvalidLimit),
		errors.Is(err, product.ErrInvalidPriceRange),
		errors.Is(err, errInvalidQuery):
		return apiError{Code: http.StatusBadRequest, Message: rootMessage(err)}

	case errors.Is(err, product.ErrInvalidRating),
		errors.Is(err, product.ErrEmptyReview),
		errors.Is(err, product.ErrReviewTooLong),
		errors.Is(err, cart.ErrInvalidCount),
		errors.Is(err, cart.ErrExceedsStock),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrUnknownPaymentMethod),
		errors.Is(err, errMissingProductID):
		return apiError{Code: http.StatusUnprocessableEntity, Message: rootMessage(err)}

	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			msg := apiErr.Message
			if msg == "" {
				msg = http.StatusText(apiErr.Status)
			}
			return apiError{Code: apiErr.Status, Message: msg}
		}
		return apiError{Code: http.StatusBadGateway, Message: "store service unavailable"}

	default:
		return apiError{Code: http.StatusInternalServerError, Message: "internal error"}
	}
}

// rootMessage returns the message of the innermost error in the chain.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// writeError maps err to a status and error body. Authentication failures
// also expire the session cookie.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := mapError(err)

	lg := zctx.From(r.Context())
	switch {
	case body.Code >= http.StatusInternalServerError:
		lg.Error("Request failed", zap.Error(err))
	case body.Code == http.StatusUnauthorized:
		h.clearSessionCookie(w)
		lg.Debug("Session rejected", zap.Error(err))
	}

	writeJSON(w, body.Code, body.encode)
}
