package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/angelmondragon/fitconnect-client/internal/orders"
	"github.com/angelmondragon/fitconnect-client/internal/session"
)

func runOrders(ctx context.Context, s *session.Session, out io.Writer) error {
	if err := s.RefreshHistory(ctx); err != nil {
		return err
	}
	printOrders(out, s.History().Orders())
	return nil
}

func printOrders(out io.Writer, list []orders.Order) {
	if len(list) == 0 {
		fmt.Fprintln(out, "You have no orders yet.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tPLACED\tSTATUS\tITEMS\tTOTAL\tPAYMENT\tSHIP TO")
	for _, o := range list {
		placed := "-"
		if !o.CreatedAt.IsZero() {
			placed = o.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			o.ID, placed, o.Status, o.ItemCount(), money(o.Total), o.PaymentMethod, o.ShippingAddress)
	}
	_ = tw.Flush()
}
