package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/freshcart/internal/domain/order"
)

// Checkout places a cash order or opens a card payment session for the
// signed-in shopper's cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var (
		method string
		addr   order.ShippingAddress
	)
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "paymentMethod":
			return readString(d, &method)
		case "shippingAddress":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "details":
					return readString(d, &addr.Details)
				case "phone":
					return readString(d, &addr.Phone)
				case "city":
					return readString(d, &addr.City)
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	s := shopperFrom(ctx)
	res, err := h.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
		Token:   s.Token,
		UserID:  s.User.ID,
		Method:  order.PaymentMethod(method),
		Address: addr,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if res.Session != nil {
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("paymentMethod")
			e.Str(string(order.PaymentCard))
			e.FieldStart("url")
			e.Str(res.Session.URL)
			e.ObjEnd()
		})
		return
	}

	h.mirror.DropCart(s.User.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("paymentMethod")
		e.Str(string(order.PaymentCash))
		e.FieldStart("order")
		encodeOrder(e, *res.Order)
		e.ObjEnd()
	})
}

// ListOrders returns the signed-in shopper's order history.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := shopperFrom(ctx)
	orders, err := h.orders.ListOrders(ctx, s.Token, s.User.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("results")
		e.Int(len(orders))
		e.FieldStart("data")
		e.ArrStart()
		for _, o := range orders {
			encodeOrder(e, o)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}
