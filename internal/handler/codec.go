package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// errMalformedBody is returned for request bodies that are not the expected
// JSON object.
var errMalformedBody = errors.New("malformed request body")

// readObject decodes a JSON object body, calling fn for every field.
func readObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(errMalformedBody, err.Error())
	}
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return errMalformedBody
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		return fn(d, key)
	}); err != nil {
		return errors.Wrap(errMalformedBody, err.Error())
	}
	return nil
}

// readString decodes a string field, treating null as empty.
func readString(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// readStringFields decodes a flat object of string fields. Unknown fields
// are skipped.
func readStringFields(w http.ResponseWriter, r *http.Request, fields map[string]*string) error {
	return readObject(w, r, func(d *jx.Decoder, key string) error {
		dst, ok := fields[key]
		if !ok {
			return d.Skip()
		}
		return readString(d, dst)
	})
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}

func writeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func writeOptMoney(e *jx.Encoder, d decimal.NullDecimal) {
	if !d.Valid {
		e.Null()
		return
	}
	writeMoney(e, d.Decimal)
}

func writeStrings(e *jx.Encoder, vs []string) {
	e.ArrStart()
	for _, v := range vs {
		e.Str(v)
	}
	e.ArrEnd()
}
