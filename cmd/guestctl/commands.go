package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	appkg "github.com/xenking/freshcart/internal/app"
	"github.com/xenking/freshcart/internal/guest"
)

type storeOpener func(ctx context.Context) (appkg.GuestStore, func(), error)

// cli holds the state shared by all subcommands.
type cli struct {
	open  storeOpener
	store appkg.GuestStore
	close func()
	now   func() time.Time
}

func newRootCmd(open storeOpener, now func() time.Time) *cobra.Command {
	c := &cli{open: open, now: now}

	root := &cobra.Command{
		Use:           "guestctl",
		Short:         "Inspect and maintain guest carts and wishlists",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			store, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.store, c.close = store, closeFn
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.close != nil {
				c.close()
			}
		},
	}
	root.AddCommand(c.listCmd(), c.showCmd(), c.clearCmd(), c.pruneCmd())
	return root
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List guest sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := c.store.Sessions(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "list sessions")
			}
			return writeSessions(cmd.OutOrStdout(), sessions)
		},
	}
}

func writeSessions(out io.Writer, sessions []guest.Session) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tUNITS\tSUBTOTAL\tWISHLIST\tUPDATED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n",
			s.ID, s.CartUnits, s.CartSubtotal.StringFixed(2), s.WishlistItems, s.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <guest-id>",
		Short: "Print a guest session's cart and wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo := guest.NewRepository(c.store)

			crt, err := repo.Cart(ctx, args[0])
			if err != nil {
				return err
			}
			wl, err := repo.Wishlist(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Cart (%d lines, %d units, subtotal %s)\n", crt.Len(), crt.Units(), crt.Subtotal().StringFixed(2))
			for _, it := range crt.Items {
				fmt.Fprintf(tw, "  %s\t%s\t%d x %s\n", it.Product.ID, it.Product.Title, it.Count, it.Price.StringFixed(2))
			}
			fmt.Fprintf(tw, "Wishlist (%d items)\n", len(wl.Items))
			for _, it := range wl.Items {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", it.ID, it.Title, it.Price.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <guest-id>",
		Short: "Delete a guest session's cart and wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := guest.NewRepository(c.store).Clear(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) pruneCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete guest sessions not updated within --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			n, err := c.store.Prune(cmd.Context(), c.now().Add(-olderThan))
			if err != nil {
				return errors.Wrap(err, "prune sessions")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d sessions\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum idle time of pruned sessions")
	return cmd
}
