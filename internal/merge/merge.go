// Package merge moves a guest's cart and wishlist into the account they
// just signed in to.
package merge

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/freshcart/internal/domain/cart"
	"github.com/xenking/freshcart/internal/events"
	"github.com/xenking/freshcart/internal/guest"
)

// DefaultConcurrency bounds in-flight upstream calls per merge.
const DefaultConcurrency = 4

// CartAdder adds one unit of a product to an authenticated cart.
type CartAdder interface {
	AddToCart(ctx context.Context, token, productID string) (*cart.Cart, error)
}

// WishlistAdder saves a product to an authenticated wishlist.
type WishlistAdder interface {
	AddToWishlist(ctx context.Context, token, productID string) ([]string, error)
}

// Mirror receives every upstream response observed during a merge.
type Mirror interface {
	SetCart(userID string, c *cart.Cart)
	SyncWishlistIDs(userID string, ids []string)
}

// Kind names the list an item came from.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// ItemResult is the outcome of replaying one guest item.
type ItemResult struct {
	ProductID string
	Kind      Kind
	Err       error
}

// Report lists the outcome of every replayed item.
type Report struct {
	Cart     []ItemResult
	Wishlist []ItemResult
}

// Empty reports whether nothing was replayed.
func (r *Report) Empty() bool {
	return len(r.Cart) == 0 && len(r.Wishlist) == 0
}

// Added counts successful replays of kind.
func (r *Report) Added(kind Kind) int {
	var n int
	for _, res := range r.results(kind) {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns every failed replay.
func (r *Report) Failed() []ItemResult {
	var out []ItemResult
	for _, res := range append(append([]ItemResult(nil), r.Cart...), r.Wishlist...) {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the per-item errors, or returns nil when every replay succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s %s: %w", res.Kind, res.ProductID, res.Err))
	}
	return stderrors.Join(errs...)
}

func (r *Report) results(kind Kind) []ItemResult {
	if kind == KindWishlist {
		return r.Wishlist
	}
	return r.Cart
}

// Options configures a Merger.
type Options struct {
	Concurrency   int
	Mirror        Mirror
	Publisher     events.Publisher
	MeterProvider metric.MeterProvider
}

// Merger replays guest state against the authenticated API.
type Merger struct {
	carts     CartAdder
	wishlists WishlistAdder
	store     *guest.Repository
	mirror    Mirror
	events    events.Publisher
	limit     int
	items     metric.Int64Counter
	now       func() time.Time
}

// New creates a Merger.
func New(carts CartAdder, wishlists WishlistAdder, store *guest.Repository, opts Options) (*Merger, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = noop.NewMeterProvider()
	}

	items, err := opts.MeterProvider.Meter("github.com/xenking/freshcart/internal/merge").Int64Counter(
		"freshcart.merge.items",
		metric.WithDescription("Guest items replayed into authenticated state"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create merge counter")
	}

	return &Merger{
		carts:     carts,
		wishlists: wishlists,
		store:     store,
		mirror:    opts.Mirror,
		events:    opts.Publisher,
		limit:     opts.Concurrency,
		items:     items,
		now:       time.Now,
	}, nil
}

// Merge issues one add call per guest cart line and per wishlist item, then
// clears the guest lists whether or not the calls succeeded. Per-item
// failures are reported, never returned; the returned error only covers
// loading and clearing guest state, and a nil report means guest state could
// not be loaded so nothing was replayed. A guest with nothing stored causes no
// upstream calls and no storage writes.
func (m *Merger) Merge(ctx context.Context, guestID, token, userID string) (*Report, error) {
	lg := zctx.From(ctx)

	c, err := m.store.Cart(ctx, guestID)
	if err != nil {
		return nil, errors.Wrap(err, "load guest cart")
	}
	w, err := m.store.Wishlist(ctx, guestID)
	if err != nil {
		return nil, errors.Wrap(err, "load guest wishlist")
	}

	report := &Report{
		Cart:     make([]ItemResult, len(c.Items)),
		Wishlist: make([]ItemResult, len(w.Items)),
	}
	if report.Empty() {
		return report, nil
	}

	// Each goroutine owns one slot of the report; siblings are never
	// cancelled by a failure.
	var g errgroup.Group
	g.SetLimit(m.limit)
	for i, it := range c.Items {
		id := it.Product.ID
		g.Go(func() error {
			res, err := m.carts.AddToCart(ctx, token, id)
			if err == nil && m.mirror != nil {
				m.mirror.SetCart(userID, res)
			}
			report.Cart[i] = ItemResult{ProductID: id, Kind: KindCart, Err: err}
			return nil
		})
	}
	for i, it := range w.Items {
		id := it.ID
		g.Go(func() error {
			ids, err := m.wishlists.AddToWishlist(ctx, token, id)
			if err == nil && m.mirror != nil {
				m.mirror.SyncWishlistIDs(userID, ids)
			}
			report.Wishlist[i] = ItemResult{ProductID: id, Kind: KindWishlist, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	clearErr := m.store.Clear(context.WithoutCancel(ctx), guestID)

	m.record(ctx, report)
	for _, f := range report.Failed() {
		lg.Debug("Guest item not merged",
			zap.String("kind", string(f.Kind)),
			zap.String("product_id", f.ProductID),
			zap.Error(f.Err),
		)
	}
	lg.Info("Merged guest state",
		zap.String("user_id", userID),
		zap.Int("cart_added", report.Added(KindCart)),
		zap.Int("cart_failed", len(report.Cart)-report.Added(KindCart)),
		zap.Int("wishlist_added", report.Added(KindWishlist)),
		zap.Int("wishlist_failed", len(report.Wishlist)-report.Added(KindWishlist)),
	)

	if err := m.events.Publish(ctx, events.Event{
		Type: events.TypeCartMerged,
		Key:  userID,
		At:   m.now(),
		Payload: map[string]any{
			"cart_added":     report.Added(KindCart),
			"wishlist_added": report.Added(KindWishlist),
			"failed":         len(report.Failed()),
		},
	}); err != nil {
		lg.Warn("Publish merge event failed", zap.Error(err))
	}

	if clearErr != nil {
		return report, errors.Wrap(clearErr, "clear guest state")
	}
	return report, nil
}

func (m *Merger) record(ctx context.Context, r *Report) {
	for _, kind := range []Kind{KindCart, KindWishlist} {
		total := len(r.results(kind))
		if total == 0 {
			continue
		}
		added := r.Added(kind)
		m.items.Add(ctx, int64(added), metric.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("outcome", "added"),
		))
		if failed := total - added; failed > 0 {
			m.items.Add(ctx, int64(failed), metric.WithAttributes(
				attribute.String("kind", string(kind)),
				attribute.String("outcome", "failed"),
			))
		}
	}
}
