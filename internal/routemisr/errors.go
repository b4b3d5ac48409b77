package routemisr

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/freshcart/internal/domain/auth"
)

// APIError is a non-2xx answer from the remote API.
type APIError struct {
	Status    int
	StatusMsg string
	Message   string
	// Param names the offending field for validation failures.
	Param string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// wrap annotates err with op. Upstream 401s also match
// auth.ErrUnauthenticated.
func wrap(err error, op string) error {
	if IsUnauthorized(err) {
		return fmt.Errorf("%s: %w: %w", op, auth.ErrUnauthenticated, err)
	}
	return errors.Wrap(err, op)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// parseAPIError reads the error envelope. The API uses several shapes:
//
//	{"statusMsg":"fail","message":"Incorrect email or password"}
//	{"message":"fail","errors":{"msg":"Account Already Exists","param":"email"}}
//
// Bodies that are not JSON objects fall back to the HTTP status text.
func parseAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}

	d := jx.DecodeBytes(body)
	if d.Next() == jx.Object {
		var detail string
		_ = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch string(key) {
			case "message":
				return decodeOptStr(d, &e.Message)
			case "statusMsg":
				return decodeOptStr(d, &e.StatusMsg)
			case "errors":
				if d.Next() != jx.Object {
					return d.Skip()
				}
				return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					switch string(key) {
					case "msg":
						return decodeOptStr(d, &detail)
					case "param":
						return decodeOptStr(d, &e.Param)
					default:
						return d.Skip()
					}
				})
			default:
				return d.Skip()
			}
		})
		if detail != "" && (e.Message == "" || e.Message == "fail") {
			e.Message = detail
		}
	}

	if e.Message == "" || e.Message == "fail" {
		e.Message = http.StatusText(status)
	}
	return e
}

// decodeOptStr reads a string value, skipping anything else.
func decodeOptStr(d *jx.Decoder, dst *string) error {
	if d.Next() != jx.String {
		return d.Skip()
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
