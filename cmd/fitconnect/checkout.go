package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/fitconnect-client/internal/checkout"
	"github.com/angelmondragon/fitconnect-client/internal/orders"
	"github.com/angelmondragon/fitconnect-client/internal/session"
	"github.com/angelmondragon/fitconnect-client/pkg/enums"
)

// countdownInterval is how often the payment window is advanced.
var countdownInterval = time.Second

// prompter reads answers line by line. Lines are read on their own goroutine
// so a prompt can be abandoned when the payment window runs out.
type prompter struct {
	out   io.Writer
	lines <-chan string
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return &prompter{out: out, lines: lines}
}

func (p *prompter) ask(ctx context.Context, label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// askDefault keeps current when the answer is blank.
func (p *prompter) askDefault(ctx context.Context, label, current string) (string, error) {
	if current != "" {
		label = fmt.Sprintf("%s [%s]", label, current)
	}
	answer, err := p.ask(ctx, label)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

func runCheckout(ctx context.Context, s *session.Session, in io.Reader, out io.Writer) error {
	s.Mount(ctx)

	flow := s.Flow()
	printCart(out, s.Cart())
	if err := flow.ProceedToCheckout(); err != nil {
		// the flow already told the user why
		return nil
	}

	p := newPrompter(in, out)
	for {
		switch flow.State() {
		case enums.CheckoutStateCheckout:
			leave, err := fillAndSubmit(ctx, s, p, out)
			if err != nil || leave {
				return abandon(ctx, flow, err)
			}

		case enums.CheckoutStateAwaitingConfirmation:
			leave, err := awaitPayment(ctx, s, p, out)
			if err != nil || leave {
				return abandon(ctx, flow, err)
			}

		case enums.CheckoutStateComplete:
			snap := flow.Snapshot()
			if snap.LastOrder != nil {
				printReceipt(out, *snap.LastOrder)
			}
			return flow.Finish(ctx)

		default:
			return nil
		}
	}
}

// abandon walks the flow back to the cart when the shopper quits midway.
// End of input is a normal way to quit.
func abandon(ctx context.Context, flow *checkout.Flow, cause error) error {
	for {
		state := flow.State()
		if state == enums.CheckoutStateCart || state == enums.CheckoutStateComplete {
			break
		}
		if err := flow.Back(ctx); err != nil {
			break
		}
	}
	if cause == io.EOF || cause == context.Canceled {
		return nil
	}
	return cause
}

// fillAndSubmit collects the form and submits it. It reports true when the
// shopper chose to leave checkout.
func fillAndSubmit(ctx context.Context, s *session.Session, p *prompter, out io.Writer) (bool, error) {
	flow := s.Flow()
	snap := flow.Snapshot()
	if snap.Draft == nil {
		return true, nil
	}
	printSummary(out, *snap.Draft)

	draft := *snap.Draft
	name, err := p.askDefault(ctx, "Full name", draft.Shipping.Name)
	if err != nil {
		return true, err
	}
	phone, err := p.askDefault(ctx, "Phone", draft.Shipping.Phone)
	if err != nil {
		return true, err
	}
	address, err := p.askDefault(ctx, "Shipping address", draft.Shipping.Address)
	if err != nil {
		return true, err
	}

	promo, err := p.askDefault(ctx, "Promo code (blank to skip)", draft.Promo)
	if err != nil {
		return true, err
	}
	if promo != "" && promo != draft.Promo {
		if _, err := flow.ApplyPromo(promo); err != nil {
			return true, err
		}
	}

	method, err := askMethod(ctx, p, draft.Payment)
	if err != nil {
		return true, err
	}

	if updated := flow.Snapshot().Draft; updated != nil {
		printTotals(out, updated.Totals)
	}
	answer, err := p.ask(ctx, "Place order? [y]es / [e]dit / [b]ack to cart")
	if err != nil {
		return true, err
	}
	switch strings.ToLower(answer) {
	case "b", "back":
		return true, nil
	case "e", "edit":
		return false, nil
	case "y", "yes", "":
	default:
		return false, nil
	}

	shipping := orders.ShippingInfo{Name: name, Phone: phone, Address: address}
	if _, err := flow.Submit(ctx, shipping, method); err != nil {
		// shown as a blocking notice; the draft is kept for another try
		retry, askErr := p.ask(ctx, "Try again? [y/n]")
		if askErr != nil {
			return true, askErr
		}
		return !strings.HasPrefix(strings.ToLower(retry), "y"), nil
	}
	return false, nil
}

func askMethod(ctx context.Context, p *prompter, current enums.PaymentMethod) (enums.PaymentMethod, error) {
	fallback := string(current)
	if fallback == "" {
		fallback = string(enums.PaymentMethodCOD)
	}
	for {
		answer, err := p.askDefault(ctx, "Payment method (cod / ewallet)", fallback)
		if err != nil {
			return "", err
		}
		method, err := enums.ParsePaymentMethod(answer)
		if err == nil {
			return method, nil
		}
		fmt.Fprintln(p.out, "Please answer cod or ewallet.")
	}
}

// awaitPayment shows the QR code and runs the countdown until the shopper
// confirms, goes back or the window expires.
func awaitPayment(ctx context.Context, s *session.Session, p *prompter, out io.Writer) (bool, error) {
	flow := s.Flow()
	if req, ok := s.PaymentRequest(); ok {
		if qr, err := req.RenderQR(); err == nil {
			fmt.Fprintln(out, qr)
		}
		fmt.Fprintf(out, "Pay %s %s for order #%d.\n", money(req.Amount), req.Currency, req.OrderID)
	}
	fmt.Fprintln(out, "Type 'confirm' once you have paid or 'back' to return to the form.")

	countdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ticker := time.NewTicker(countdownInterval)
	defer ticker.Stop()

	done := make(chan enums.CheckoutState, 1)
	go func() {
		done <- flow.RunCountdown(countdownCtx, ticker.C, func(snap checkout.Snapshot) {
			if announce(snap.Remaining) {
				fmt.Fprintf(out, "\n%s left to confirm the payment\n", checkout.FormatClock(snap.Remaining))
			}
		})
	}()

	for {
		select {
		case <-done:
			// expired: the flow is back on the form
			return false, nil
		case <-ctx.Done():
			return true, ctx.Err()
		case line, ok := <-p.lines:
			if !ok {
				cancel()
				<-done
				return true, io.EOF
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "confirm", "c":
				if err := flow.ConfirmPayment(ctx); err != nil {
					continue
				}
				cancel()
				<-done
				return false, nil
			case "back", "b":
				if err := flow.Back(ctx); err != nil {
					continue
				}
				cancel()
				<-done
				return false, nil
			default:
				fmt.Fprintf(out, "%s left. Type 'confirm' or 'back'.\n", checkout.FormatClock(flow.Snapshot().Remaining))
			}
		}
	}
}

// announce limits countdown output to whole minutes and the last ten seconds.
func announce(remaining time.Duration) bool {
	if remaining <= 0 {
		return false
	}
	return remaining%time.Minute == 0 || remaining <= 10*time.Second
}

func printSummary(out io.Writer, draft checkout.DraftView) {
	fmt.Fprintln(out, "\nOrder summary")
	for _, item := range draft.Items {
		fmt.Fprintf(out, "  %s x%d (%s)  %s\n", item.Name, item.Quantity, item.Size, money(item.LineTotal()))
	}
	printTotals(out, draft.Totals)
}

func printTotals(out io.Writer, t checkout.Totals) {
	fmt.Fprintf(out, "  subtotal  %s\n", money(t.Subtotal))
	if t.Discount.IsPositive() {
		fmt.Fprintf(out, "  discount -%s\n", money(t.Discount))
	}
	shipping := money(t.Shipping)
	if t.Shipping.IsZero() {
		shipping = "free"
	}
	fmt.Fprintf(out, "  shipping  %s\n", shipping)
	fmt.Fprintf(out, "  tax       %s\n", money(t.Tax))
	fmt.Fprintf(out, "  total     %s\n", money(t.Total))
}

func printReceipt(out io.Writer, order orders.Order) {
	fmt.Fprintf(out, "\nOrder #%d: %d item(s), %s, %s\n", order.ID, order.ItemCount(), money(order.Total), order.Status)
	if order.ShippingAddress != "" {
		fmt.Fprintf(out, "Ships to %s\n", order.ShippingAddress)
	}
}
