package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/domain/auth"
)

// TokenHeader is the header API clients may use instead of the cookie.
const TokenHeader = "token"

// CookieConfig controls the session and guest cookies.
type CookieConfig struct {
	TokenName string
	GuestName string
	Domain    string
	Secure    bool
	// GuestTTL is the lifetime of the guest cookie.
	GuestTTL time.Duration
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.TokenName == "" {
		c.TokenName = "token"
	}
	if c.GuestName == "" {
		c.GuestName = "guest_id"
	}
	if c.GuestTTL <= 0 {
		c.GuestTTL = 30 * 24 * time.Hour
	}
	return c
}

// shopper is the caller of a request: a signed-in user, a guest, or both
// when a guest cookie survives sign-in.
type shopper struct {
	Token   string
	User    auth.User
	GuestID string
}

func (s shopper) authenticated() bool {
	return s.Token != ""
}

type shopperKey struct{}

func shopperFrom(ctx context.Context) shopper {
	s, _ := ctx.Value(shopperKey{}).(shopper)
	return s
}

// resolveSession reads the session token and guest id. Tokens that are
// expired or unreadable are dropped and the request continues as a guest.
func (h *Handler) resolveSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var s shopper

		if c, err := r.Cookie(h.cookies.GuestName); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				s.GuestID = id.String()
			}
		}

		token := r.Header.Get(TokenHeader)
		if token == "" {
			if c, err := r.Cookie(h.cookies.TokenName); err == nil {
				token = c.Value
			}
		}
		if token != "" {
			claims, err := auth.ParseToken(token, h.now())
			switch {
			case err == nil:
				s.Token = token
				s.User = claims.User()
			case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrMalformedToken):
				zctx.From(r.Context()).Debug("Dropping session token", zap.Error(err))
				h.clearSessionCookie(w)
			}
		}

		ctx := context.WithValue(r.Context(), shopperKey{}, s)
		if s.User.ID != "" {
			ctx = zctx.With(ctx, zap.String("user_id", s.User.ID))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSession rejects requests without a usable session token.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shopperFrom(r.Context()).authenticated() {
			h.writeError(w, r, auth.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// guestID returns the caller's guest id, issuing a new guest cookie when
// the request carries none.
func (h *Handler) guestID(w http.ResponseWriter, r *http.Request) string {
	if id := shopperFrom(r.Context()).GuestID; id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.GuestName,
		Value:    id,
		Path:     "/",
		Domain:   h.cookies.Domain,
		Expires:  h.now().Add(h.cookies.GuestTTL),
		MaxAge:   int(h.cookies.GuestTTL / time.Second),
		Secure:   h.cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sess *auth.Session) {
	c := &http.Cookie{
		Name:     h.cookies.TokenName,
		Value:    sess.Token,
		Path:     "/",
		Domain:   h.cookies.Domain,
		Secure:   h.cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if !sess.ExpiresAt.IsZero() {
		c.Expires = sess.ExpiresAt
		c.MaxAge = int(sess.ExpiresAt.Sub(h.now()) / time.Second)
		if c.MaxAge <= 0 {
			c.MaxAge = -1
		}
	}
	http.SetCookie(w, c)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	h.expireCookie(w, h.cookies.TokenName)
}

func (h *Handler) clearGuestCookie(w http.ResponseWriter) {
	h.expireCookie(w, h.cookies.GuestName)
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   -1,
		Secure:   h.cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
