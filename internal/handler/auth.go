package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/domain/auth"
	"github.com/xenking/freshcart/internal/merge"
)

// SignIn authenticates the shopper, sets the session cookie and merges any
// guest cart and wishlist into the account. A failed merge never fails the
// sign-in; its counts are reported in the response.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var form auth.SignInForm
	if err := readStringFields(w, r, map[string]*string{
		"email":    &form.Email,
		"password": &form.Password,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := form.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	sess, err := h.auth.SignIn(ctx, form)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setSessionCookie(w, sess)
	h.mirror.Drop(sess.User.ID)

	ctx = zctx.With(ctx, zap.String("user_id", sess.User.ID))
	report := &merge.Report{}
	if guestID := shopperFrom(ctx).GuestID; guestID != "" {
		rep, err := h.merger.Merge(ctx, guestID, sess.Token, sess.User.ID)
		switch {
		case rep == nil:
			// Nothing was replayed; the guest session stays for the next sign-in.
			zctx.From(ctx).Warn("Guest merge skipped", zap.Error(err))
		default:
			if err != nil {
				zctx.From(ctx).Warn("Guest merge incomplete", zap.Error(err))
			}
			if ferr := rep.Err(); ferr != nil {
				zctx.From(ctx).Info("Guest items not merged", zap.Error(ferr))
			}
			report = rep
			h.clearGuestCookie(w)
		}
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("user")
		encodeUser(e, sess.User)
		e.FieldStart("expiresAt")
		if sess.ExpiresAt.IsZero() {
			e.Null()
		} else {
			e.Str(sess.ExpiresAt.UTC().Format(timeLayout))
		}
		e.FieldStart("merge")
		encodeMergeReport(e, report)
		e.ObjEnd()
	})
}

func encodeMergeReport(e *jx.Encoder, r *merge.Report) {
	e.ObjStart()
	for _, kind := range []merge.Kind{merge.KindCart, merge.KindWishlist} {
		total := len(r.Cart)
		if kind == merge.KindWishlist {
			total = len(r.Wishlist)
		}
		added := r.Added(kind)
		e.FieldStart(string(kind))
		e.ObjStart()
		e.FieldStart("added")
		e.Int(added)
		e.FieldStart("failed")
		e.Int(total - added)
		e.ObjEnd()
	}
	e.ObjEnd()
}

// SignUp registers an account. The shopper signs in separately afterwards.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var form auth.SignUpForm
	if err := readStringFields(w, r, map[string]*string{
		"name":       &form.Name,
		"email":      &form.Email,
		"password":   &form.Password,
		"rePassword": &form.RePassword,
		"phone":      &form.Phone,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := form.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.auth.SignUp(r.Context(), form)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("user")
		encodeUser(e, sess.User)
		e.FieldStart("message")
		e.Str("account created, please sign in")
		e.ObjEnd()
	})
}

// SignOut expires the session cookie and forgets the mirrored state.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if s := shopperFrom(r.Context()); s.authenticated() {
		h.mirror.Drop(s.User.ID)
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword asks the store to email a reset code.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var form auth.ForgotPasswordForm
	if err := readStringFields(w, r, map[string]*string{"email": &form.Email}); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := form.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), form); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "reset code sent")
}

// VerifyResetCode checks the emailed reset code.
func (h *Handler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var form auth.VerifyResetCodeForm
	if err := readStringFields(w, r, map[string]*string{"resetCode": &form.Code}); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := form.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.auth.VerifyResetCode(r.Context(), form); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "reset code verified")
}

// ResetPassword sets a new password and signs the shopper in with the
// token the store returns.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var form auth.ResetPasswordForm
	if err := readStringFields(w, r, map[string]*string{
		"email":       &form.Email,
		"newPassword": &form.NewPassword,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := form.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.auth.ResetPassword(r.Context(), form)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setSessionCookie(w, sess)
	h.mirror.Drop(sess.User.ID)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("user")
		encodeUser(e, sess.User)
		e.ObjEnd()
	})
}

// Me returns the signed-in user as the store reports it.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	s := shopperFrom(r.Context())
	u, err := h.auth.VerifyToken(r.Context(), s.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("user")
		encodeUser(e, *u)
		e.ObjEnd()
	})
}
