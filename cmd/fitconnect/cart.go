package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/angelmondragon/fitconnect-client/internal/cart"
	"github.com/angelmondragon/fitconnect-client/internal/session"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/shopspring/decimal"
)

func runCart(ctx context.Context, s *session.Session, args []string, out io.Writer) error {
	if len(args) == 0 {
		printCart(out, s.Cart())
		return nil
	}

	switch args[0] {
	case "show":
		printCart(out, s.Cart())
		return nil

	case "add":
		product, quantity, size, err := parseAdd(args[1:], out)
		if err != nil {
			return err
		}
		if err := s.AddToCart(ctx, product, quantity, size); err != nil {
			return err
		}

	case "set":
		id, value, err := lineArgs(args[1:], "set <productId> <quantity>")
		if err != nil {
			return err
		}
		quantity, err := strconv.Atoi(value)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a whole number")
		}
		if err := requireLine(s.Cart(), id); err != nil {
			return err
		}
		if err := s.SetQuantity(ctx, id, quantity); err != nil {
			return err
		}

	case "size":
		id, value, err := lineArgs(args[1:], "size <productId> <size>")
		if err != nil {
			return err
		}
		if err := requireLine(s.Cart(), id); err != nil {
			return err
		}
		s.SetSize(id, value)

	case "remove":
		if len(args) != 2 {
			return pkgerrors.New(pkgerrors.CodeValidation, "usage: cart remove <productId>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := s.RemoveFromCart(ctx, id); err != nil {
			return err
		}

	case "clear":
		if err := s.ClearCart(ctx); err != nil {
			return err
		}

	case "pull":
		if err := s.PullCart(ctx); err != nil {
			return err
		}

	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown cart command %q", args[0]))
	}

	printCart(out, s.Cart())
	return nil
}

func parseAdd(args []string, out io.Writer) (cart.Product, int, string, error) {
	fs := flag.NewFlagSet("cart add", flag.ContinueOnError)
	fs.SetOutput(out)
	id := fs.Int64("id", 0, "product id")
	name := fs.String("name", "", "product name")
	price := fs.String("price", "", "unit price")
	image := fs.String("image", "", "image url")
	quantity := fs.Int("qty", 1, "quantity")
	size := fs.String("size", cart.DefaultSize, "size")
	if err := fs.Parse(args); err != nil {
		return cart.Product{}, 0, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart add arguments")
	}

	amount, err := decimal.NewFromString(*price)
	if err != nil {
		return cart.Product{}, 0, "", pkgerrors.New(pkgerrors.CodeValidation, "price must be a number")
	}
	return cart.Product{ID: *id, Name: *name, Price: amount, ImageURL: *image}, *quantity, *size, nil
}

func lineArgs(args []string, usage string) (int64, string, error) {
	if len(args) != 2 {
		return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "usage: cart "+usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return 0, "", err
	}
	return id, args[1], nil
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id must be a positive number")
	}
	return id, nil
}

func requireLine(store *cart.Store, id int64) error {
	if _, ok := store.Line(id); !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d is not in your cart", id))
	}
	return nil
}

func printCart(out io.Writer, store *cart.Store) {
	items := store.Items()
	if len(items) == 0 {
		fmt.Fprintln(out, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tSIZE\tQTY\tPRICE\tLINE")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			item.ProductID, item.Name, item.Size, item.Quantity, money(item.UnitPrice), money(item.LineTotal()))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "%d item(s), subtotal %s\n", store.Count(), money(store.Subtotal()))
}

func money(d decimal.Decimal) string {
	return d.String()
}
