package routemisr

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/freshcart/internal/domain/auth"
)

var _ auth.Authenticator = (*Client)(nil)

// SignIn exchanges credentials for a session.
func (cl *Client) SignIn(ctx context.Context, form auth.SignInForm) (*auth.Session, error) {
	var resp authResponse
	err := cl.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/signin",
		body: map[string]string{
			"email":    form.Email,
			"password": form.Password,
		},
	}, &resp)
	if err != nil {
		return nil, wrap(err, "sign in")
	}
	return cl.session(resp)
}

// SignUp registers an account. The returned session is valid, but callers
// decide whether to keep it.
func (cl *Client) SignUp(ctx context.Context, form auth.SignUpForm) (*auth.Session, error) {
	var resp authResponse
	err := cl.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/signup",
		body: map[string]string{
			"name":       form.Name,
			"email":      form.Email,
			"password":   form.Password,
			"rePassword": form.RePassword,
			"phone":      form.Phone,
		},
	}, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "sign up")
	}
	return cl.session(resp)
}

// ForgotPassword asks the API to email a reset code.
func (cl *Client) ForgotPassword(ctx context.Context, form auth.ForgotPasswordForm) error {
	err := cl.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/forgotPasswords",
		body:   map[string]string{"email": form.Email},
	}, nil)
	if err != nil {
		return errors.Wrap(err, "forgot password")
	}
	return nil
}

// VerifyResetCode checks an emailed reset code.
func (cl *Client) VerifyResetCode(ctx context.Context, form auth.VerifyResetCodeForm) error {
	err := cl.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/verifyResetCode",
		body:   map[string]string{"resetCode": form.Code},
	}, nil)
	if err != nil {
		return errors.Wrap(err, "verify reset code")
	}
	return nil
}

// ResetPassword sets a new password and returns a fresh session.
func (cl *Client) ResetPassword(ctx context.Context, form auth.ResetPasswordForm) (*auth.Session, error) {
	var resp authResponse
	err := cl.do(ctx, call{
		method: http.MethodPut,
		path:   "/auth/resetPassword",
		body: map[string]string{
			"email":       form.Email,
			"newPassword": form.NewPassword,
		},
	}, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "reset password")
	}
	resp.User.Email = form.Email
	return cl.session(resp)
}

// VerifyToken asks the API whether token is still accepted.
func (cl *Client) VerifyToken(ctx context.Context, token string) (*auth.User, error) {
	var resp struct {
		Decoded struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"decoded"`
	}
	err := cl.do(ctx, call{
		method: http.MethodGet,
		path:   "/auth/verifyToken",
		token:  token,
	}, &resp)
	if err != nil {
		if IsUnauthorized(err) {
			return nil, auth.ErrUnauthenticated
		}
		return nil, errors.Wrap(err, "verify token")
	}
	return &auth.User{
		ID:   resp.Decoded.ID,
		Name: resp.Decoded.Name,
		Role: resp.Decoded.Role,
	}, nil
}

// session builds a Session from an auth response, taking the user ID and
// expiry from the token claims.
func (cl *Client) session(resp authResponse) (*auth.Session, error) {
	claims, err := auth.ParseToken(resp.Token, cl.now())
	if err != nil {
		return nil, errors.Wrap(err, "parse issued token")
	}
	u := claims.User()
	if resp.User.Name != "" {
		u.Name = resp.User.Name
	}
	if resp.User.Role != "" {
		u.Role = resp.User.Role
	}
	u.Email = resp.User.Email
	return &auth.Session{
		Token:     resp.Token,
		User:      u,
		ExpiresAt: claims.Expiry(),
	}, nil
}
