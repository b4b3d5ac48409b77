package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthenticated is returned when an operation needs a session token
	// and none (or an unusable one) was presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrTokenExpired is returned by ParseToken for tokens past their expiry.
	ErrTokenExpired = errors.New("session token expired")
	// ErrMalformedToken is returned by ParseToken for tokens that are not JWTs.
	ErrMalformedToken = errors.New("malformed session token")
)

// User is the identity the remote API reports for a session.
type User struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// Session is an authenticated shopper session.
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// Authenticator is the remote account API.
type Authenticator interface {
	SignIn(ctx context.Context, form SignInForm) (*Session, error)
	SignUp(ctx context.Context, form SignUpForm) (*Session, error)
	ForgotPassword(ctx context.Context, form ForgotPasswordForm) error
	VerifyResetCode(ctx context.Context, form VerifyResetCodeForm) error
	ResetPassword(ctx context.Context, form ResetPasswordForm) (*Session, error)
	VerifyToken(ctx context.Context, token string) (*User, error)
}
