// Command guestctl inspects and maintains guest carts and wishlists in the
// configured guest storage backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	appkg "github.com/xenking/freshcart/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(openConfiguredStore, time.Now)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openConfiguredStore opens the guest backend the storefront is configured
// with.
func openConfiguredStore(ctx context.Context) (appkg.GuestStore, func(), error) {
	cfg, err := appkg.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, closeFn, err := appkg.OpenGuestStore(ctx, cfg.Guest)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open guest store")
	}
	return store, closeFn, nil
}
