package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/fitconnect-client/internal/cart"
	"github.com/angelmondragon/fitconnect-client/internal/notifications"
	"github.com/angelmondragon/fitconnect-client/internal/orders"
	"github.com/angelmondragon/fitconnect-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/logger"
)

// DefaultPaymentWindow is how long an e-wallet payment may stay unconfirmed.
const DefaultPaymentWindow = 10 * time.Minute

// Submission outcomes reported to metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeRejected     = "rejected"
	OutcomeUnauthorized = "unauthorized"
	OutcomeFailed       = "failed"
	OutcomeLate         = "late"
)

type cartStore interface {
	Items() []cart.Item
	IsEmpty() bool
	Settle(ordered []cart.Item) bool
}

// SettleFunc takes the lines of a placed order out of the cart.
type SettleFunc func(ctx context.Context, ordered []cart.Item) error

type orderSubmitter interface {
	Submit(ctx context.Context, in orders.SubmitInput) (*orders.Order, error)
}

type flowMetrics interface {
	ObserveTransition(from, to enums.CheckoutState)
	ObserveSubmission(method enums.PaymentMethod, outcome string, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTransition(enums.CheckoutState, enums.CheckoutState) {}

func (nopMetrics) ObserveSubmission(enums.PaymentMethod, string, time.Duration) {}

// IdentityFunc resolves the signed-in user; false means nobody is signed in.
type IdentityFunc func() (int64, bool)

// Option configures a Flow.
type Option func(*Flow)

func WithPolicy(p Policy) Option {
	return func(f *Flow) { f.policy = p }
}

// WithPaymentWindow sets the e-wallet confirmation window.
func WithPaymentWindow(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.countdown = NewCountdown(d)
		}
	}
}

func WithNotifier(n notifications.Notifier) Option {
	return func(f *Flow) {
		if n != nil {
			f.notifier = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logg = l
		}
	}
}

func WithMetrics(m flowMetrics) Option {
	return func(f *Flow) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithSettlement replaces the default settlement, which only updates the local
// store; the session uses it to keep a synced remote cart in step.
func WithSettlement(fn SettleFunc) Option {
	return func(f *Flow) {
		if fn != nil {
			f.settle = fn
		}
	}
}

// Flow is the checkout state machine: cart, checkout, awaiting_confirmation,
// complete. Every method is safe to call from the countdown goroutine and the
// input loop at the same time.
type Flow struct {
	mu sync.Mutex

	store    cartStore
	gateway  orderSubmitter
	identity IdentityFunc
	policy   Policy

	countdown *Countdown
	notifier  notifications.Notifier
	logg      *logger.Logger
	metrics   flowMetrics
	settle    SettleFunc

	state     enums.CheckoutState
	draft     *Draft
	inFlight  bool
	epoch     uint64
	lastOrder *orders.Order
	// ordered holds the lines sent with the last successful submission.
	ordered []cart.Item
	hooks     []func(ctx context.Context)
}

func NewFlow(store cartStore, gateway orderSubmitter, identity IdentityFunc, opts ...Option) (*Flow, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("order gateway required")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	f := &Flow{
		store:     store,
		gateway:   gateway,
		identity:  identity,
		policy:    DefaultPolicy(),
		countdown: NewCountdown(DefaultPaymentWindow),
		notifier:  notifications.Discard,
		logg:      logger.Nop(),
		metrics:   nopMetrics{},
		state:     enums.CheckoutStateCart,
	}
	f.settle = func(_ context.Context, ordered []cart.Item) error {
		store.Settle(ordered)
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// OnReturnToCart registers fn to run every time the flow comes back to the
// cart state. Hooks run outside the flow's lock.
func (f *Flow) OnReturnToCart(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	f.hooks = append(f.hooks, fn)
	f.mu.Unlock()
}

func (f *Flow) State() enums.CheckoutState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Snapshot is a consistent view of the flow for rendering.
type Snapshot struct {
	State     enums.CheckoutState
	Remaining time.Duration
	Window    time.Duration
	InFlight  bool
	Draft     *DraftView
	LastOrder *orders.Order
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := Snapshot{
		State:     f.state,
		Remaining: f.countdown.Remaining(),
		Window:    f.countdown.Total(),
		InFlight:  f.inFlight,
	}
	if f.draft != nil {
		if f.state == enums.CheckoutStateCheckout && !f.inFlight {
			f.draft.setItems(f.store.Items())
		}
		view := f.draft.view()
		snap.Draft = &view
	}
	if f.lastOrder != nil {
		order := *f.lastOrder
		snap.LastOrder = &order
	}
	return snap
}

// ProceedToCheckout moves from the cart to the checkout form with a new draft.
func (f *Flow) ProceedToCheckout() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expect(enums.CheckoutStateCart, "proceed to checkout"); err != nil {
		return err
	}
	if f.store.IsEmpty() {
		err := pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
		f.block(err)
		return err
	}
	f.draft = newDraft(f.policy, f.store.Items())
	f.transition(enums.CheckoutStateCheckout)
	return nil
}

// ApplyPromo sets the draft's promotional code. It reports whether the code
// grants a discount; a non-matching code removes any discount.
func (f *Flow) ApplyPromo(code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.expect(enums.CheckoutStateCheckout, "apply a promo code"); err != nil {
		return false, err
	}
	if f.draft.applyPromo(code) {
		f.notifier.Notify(notifications.Notice{
			Level:   notifications.LevelSuccess,
			Message: fmt.Sprintf("Promo code applied: %s%% off", f.policy.PromoPercent.String()),
		})
		return true, nil
	}
	f.notifier.Notify(notifications.Notice{
		Level:   notifications.LevelWarning,
		Message: "That promo code is not valid",
	})
	return false, nil
}

// Submit validates the form and places the order. Cash on delivery completes
// the checkout and clears the cart; e-wallet waits for payment confirmation
// with the cart kept.
//
// When the user left checkout while the call was running, a successful order
// is still returned and announced but the flow does not move and the cart is
// left alone.
func (f *Flow) Submit(ctx context.Context, shipping orders.ShippingInfo, method enums.PaymentMethod) (*orders.Order, error) {
	f.mu.Lock()
	if err := f.expect(enums.CheckoutStateCheckout, "submit the order"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.inFlight {
		f.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "your order is already being submitted")
	}

	input, err := f.prepareSubmission(shipping, method)
	if err != nil {
		f.block(err)
		f.metrics.ObserveSubmission(method, outcomeFor(err), 0)
		f.mu.Unlock()
		return nil, err
	}
	f.inFlight = true
	epoch := f.epoch
	f.mu.Unlock()

	started := time.Now()
	ctx = f.logg.WithUserID(ctx, input.UserID)
	order, err := f.gateway.Submit(ctx, input)
	elapsed := time.Since(started)

	f.mu.Lock()
	f.inFlight = false
	late := epoch != f.epoch

	if err != nil {
		f.metrics.ObserveSubmission(method, outcomeFor(err), elapsed)
		f.block(err)
		f.mu.Unlock()
		return nil, err
	}

	f.lastOrder = order
	if late {
		f.metrics.ObserveSubmission(method, OutcomeLate, elapsed)
		f.notifier.Notify(notifications.Notice{
			Level: notifications.LevelWarning,
			Message: fmt.Sprintf("Order #%d was placed after you left checkout. Your cart was kept; check your orders before ordering again.",
				order.ID),
		})
		hooks := f.copyHooks()
		f.mu.Unlock()

		f.logg.Warn(f.logg.WithOrderID(ctx, order.ID), "order confirmed after checkout was left")
		runHooks(ctx, hooks)
		return order, nil
	}

	f.metrics.ObserveSubmission(method, OutcomeSuccess, elapsed)
	f.draft.rotateKey()
	f.ordered = input.Lines
	settle := false
	if method.RequiresConfirmation() {
		f.countdown.Reset()
		f.transition(enums.CheckoutStateAwaitingConfirmation)
		f.notifier.Notify(notifications.Notice{
			Level: notifications.LevelInfo,
			Message: fmt.Sprintf("Order #%d created. Scan the QR code and confirm your payment within %s.",
				order.ID, FormatClock(f.countdown.Remaining())),
		})
	} else {
		f.transition(enums.CheckoutStateComplete)
		settle = true
		f.notifier.Notify(notifications.Notice{
			Level:   notifications.LevelSuccess,
			Message: fmt.Sprintf("Order #%d placed. You will pay on delivery.", order.ID),
		})
	}
	f.mu.Unlock()

	if settle {
		f.settleOrder(ctx, input.Lines)
	}
	return order, nil
}

// prepareSubmission runs every local check; nothing goes over the network
// unless it passes. Must be called with f.mu held.
func (f *Flow) prepareSubmission(shipping orders.ShippingInfo, method enums.PaymentMethod) (orders.SubmitInput, error) {
	if err := shipping.Validate(); err != nil {
		return orders.SubmitInput{}, pkgerrors.New(pkgerrors.CodeValidation,
			"please fill in your name, phone and address").WithDetails(detailsOf(err))
	}
	if !method.IsValid() {
		return orders.SubmitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "please choose a payment method")
	}
	items := f.store.Items()
	if len(items) == 0 {
		return orders.SubmitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}
	userID, ok := f.identity()
	if !ok || userID <= 0 {
		return orders.SubmitInput{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in again")
	}

	f.draft.setItems(items)
	f.draft.shipping = shipping.Normalize()
	f.draft.payment = method
	totals := f.draft.totals()

	return orders.SubmitInput{
		UserID:         userID,
		Lines:          items,
		Total:          totals.Total,
		Shipping:       f.draft.shipping,
		Payment:        method,
		IdempotencyKey: f.draft.key,
	}, nil
}

// ConfirmPayment records the shopper's word that the transfer went through and
// takes the ordered lines out of the cart. Lines added while waiting stay.
func (f *Flow) ConfirmPayment(ctx context.Context) error {
	f.mu.Lock()
	if err := f.expect(enums.CheckoutStateAwaitingConfirmation, "confirm the payment"); err != nil {
		f.mu.Unlock()
		return err
	}
	f.transition(enums.CheckoutStateComplete)
	f.countdown.Reset()
	msg := "Payment confirmed. Thank you for your order!"
	if f.lastOrder != nil {
		msg = fmt.Sprintf("Payment confirmed for order #%d. Thank you!", f.lastOrder.ID)
	}
	f.notifier.Notify(notifications.Notice{Level: notifications.LevelSuccess, Message: msg})
	ordered := f.ordered
	f.mu.Unlock()

	f.settleOrder(ctx, ordered)
	return nil
}

// Back leaves the payment screen for the form (draft kept, window reset) or
// the form for the cart (draft discarded).
func (f *Flow) Back(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case enums.CheckoutStateAwaitingConfirmation:
		f.countdown.Reset()
		f.transition(enums.CheckoutStateCheckout)
		f.mu.Unlock()
		return nil
	case enums.CheckoutStateCheckout:
		hooks := f.returnToCart()
		f.mu.Unlock()
		runHooks(ctx, hooks)
		return nil
	default:
		err := f.expect(enums.CheckoutStateCheckout, "go back")
		f.mu.Unlock()
		return err
	}
}

// Tick advances the payment window by one second. When it runs out the flow
// returns to the checkout form and the window is reset. It reports whether
// the window expired on this tick.
func (f *Flow) Tick() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != enums.CheckoutStateAwaitingConfirmation {
		return false
	}
	if !f.countdown.Tick() {
		return false
	}
	f.countdown.Reset()
	f.transition(enums.CheckoutStateCheckout)
	f.notifier.Notify(notifications.Notice{
		Level:   notifications.LevelWarning,
		Message: "The payment window has expired. Your details are kept; submit again when you are ready.",
	})
	return true
}

// Finish leaves the completed screen and returns to an empty cart.
func (f *Flow) Finish(ctx context.Context) error {
	f.mu.Lock()
	if err := f.expect(enums.CheckoutStateComplete, "finish checkout"); err != nil {
		f.mu.Unlock()
		return err
	}
	hooks := f.returnToCart()
	f.mu.Unlock()

	runHooks(ctx, hooks)
	return nil
}

// RunCountdown drives Tick from ticks while the flow awaits confirmation and
// returns the state it ended in. onTick, when set, sees the flow after every
// tick.
func (f *Flow) RunCountdown(ctx context.Context, ticks <-chan time.Time, onTick func(Snapshot)) enums.CheckoutState {
	for {
		if state := f.State(); state != enums.CheckoutStateAwaitingConfirmation {
			return state
		}
		select {
		case <-ctx.Done():
			return f.State()
		case <-ticks:
			f.Tick()
			if onTick != nil {
				onTick(f.Snapshot())
			}
		}
	}
}

// settleOrder runs outside f.mu. A failed settlement does not undo the order;
// the settle func reports it to the user.
func (f *Flow) settleOrder(ctx context.Context, ordered []cart.Item) {
	if err := f.settle(ctx, ordered); err != nil {
		f.logg.Warn(f.logg.WithField(ctx, "error", err.Error()), "cart not settled after order")
	}
}

// returnToCart must be called with f.mu held.
func (f *Flow) returnToCart() []func(ctx context.Context) {
	f.draft = nil
	f.epoch++
	f.countdown.Reset()
	f.transition(enums.CheckoutStateCart)
	return f.copyHooks()
}

func (f *Flow) copyHooks() []func(ctx context.Context) {
	return append([]func(ctx context.Context){}, f.hooks...)
}

func runHooks(ctx context.Context, hooks []func(ctx context.Context)) {
	for _, hook := range hooks {
		hook(ctx)
	}
}

func (f *Flow) transition(to enums.CheckoutState) {
	from := f.state
	f.state = to
	f.metrics.ObserveTransition(from, to)
	f.logg.Debug(f.logg.WithFields(context.Background(), map[string]any{
		"from": from.String(),
		"to":   to.String(),
	}), "checkout transition")
}

func (f *Flow) expect(want enums.CheckoutState, action string) error {
	if f.state == want {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot %s while in %s", action, f.state)).WithDetails(map[string]string{
		"state":    f.state.String(),
		"required": want.String(),
	})
}

// block shows err as a notice the user has to acknowledge.
func (f *Flow) block(err error) {
	f.notifier.Notify(notifications.Notice{
		Level:   notifications.LevelBlocking,
		Message: pkgerrors.UserMessage(err),
	})
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case pkgerrors.Is(err, pkgerrors.CodeUnauthorized):
		return OutcomeUnauthorized
	case pkgerrors.Is(err, pkgerrors.CodeValidation):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

func detailsOf(err error) any {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Details()
	}
	return nil
}
