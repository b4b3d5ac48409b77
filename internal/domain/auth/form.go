package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	passwordPattern  = regexp.MustCompile(`^[A-Z][a-z0-9]{5,10}$`)
	phonePattern     = regexp.MustCompile(`^01[0125][0-9]{8}$`)
	resetCodePattern = regexp.MustCompile(`^[0-9]{4,8}$`)
)

// Field validation messages shown inline on the forms.
const (
	msgRequired      = "is required"
	msgEmail         = "must be a valid email address"
	msgPassword      = "must start with a capital letter followed by 5 to 10 lowercase letters or digits"
	msgPasswordMatch = "must match password"
	msgNameLength    = "must be between 3 and 30 characters"
	msgPhone         = "must be a valid Egyptian mobile number"
	msgResetCode     = "must be 4 to 8 digits"
)

const (
	nameMinLen = 3
	nameMaxLen = 30
)

// ValidationError lists per-field problems of a submitted form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors accumulates field failures. The first failure per field wins.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func (f fieldErrors) email(field, v string) {
	if v == "" {
		f.add(field, msgRequired)
		return
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || !strings.Contains(v[strings.LastIndexByte(v, '@')+1:], ".") {
		f.add(field, msgEmail)
	}
}

func (f fieldErrors) password(field, v string) {
	if v == "" {
		f.add(field, msgRequired)
		return
	}
	if !passwordPattern.MatchString(v) {
		f.add(field, msgPassword)
	}
}

// ValidatePhone checks an Egyptian mobile number.
func ValidatePhone(v string) bool {
	return phonePattern.MatchString(v)
}

// SignInForm is the login form.
type SignInForm struct {
	Email    string
	Password string
}

// Validate only checks presence and email syntax.
func (f SignInForm) Validate() error {
	errs := fieldErrors{}
	errs.email("email", f.Email)
	if f.Password == "" {
		errs.add("password", msgRequired)
	}
	return errs.err()
}

// SignUpForm is the registration form.
type SignUpForm struct {
	Name       string
	Email      string
	Password   string
	RePassword string
	Phone      string
}

// Validate checks every registration field.
func (f SignUpForm) Validate() error {
	errs := fieldErrors{}

	switch n := utf8.RuneCountInString(strings.TrimSpace(f.Name)); {
	case n == 0:
		errs.add("name", msgRequired)
	case n < nameMinLen || n > nameMaxLen:
		errs.add("name", msgNameLength)
	}

	errs.email("email", f.Email)
	errs.password("password", f.Password)

	if f.RePassword == "" {
		errs.add("rePassword", msgRequired)
	} else if f.RePassword != f.Password {
		errs.add("rePassword", msgPasswordMatch)
	}

	if f.Phone == "" {
		errs.add("phone", msgRequired)
	} else if !ValidatePhone(f.Phone) {
		errs.add("phone", msgPhone)
	}

	return errs.err()
}

// ForgotPasswordForm requests a reset code by email.
type ForgotPasswordForm struct {
	Email string
}

// Validate checks the email.
func (f ForgotPasswordForm) Validate() error {
	errs := fieldErrors{}
	errs.email("email", f.Email)
	return errs.err()
}

// VerifyResetCodeForm submits the emailed reset code.
type VerifyResetCodeForm struct {
	Code string
}

// Validate checks the code shape.
func (f VerifyResetCodeForm) Validate() error {
	errs := fieldErrors{}
	switch {
	case f.Code == "":
		errs.add("resetCode", msgRequired)
	case !resetCodePattern.MatchString(f.Code):
		errs.add("resetCode", msgResetCode)
	}
	return errs.err()
}

// ResetPasswordForm sets a new password after a verified reset code.
type ResetPasswordForm struct {
	Email       string
	NewPassword string
}

// Validate checks the email and the new password.
func (f ResetPasswordForm) Validate() error {
	errs := fieldErrors{}
	errs.email("email", f.Email)
	errs.password("newPassword", f.NewPassword)
	return errs.err()
}
