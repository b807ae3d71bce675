package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/angelmondragon/fitconnect-client/internal/cart"
	"github.com/angelmondragon/fitconnect-client/internal/checkout"
	"github.com/angelmondragon/fitconnect-client/internal/notifications"
	"github.com/angelmondragon/fitconnect-client/internal/orders"
	"github.com/angelmondragon/fitconnect-client/pkg/auth"
	"github.com/angelmondragon/fitconnect-client/pkg/config"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/fitapi"
	"github.com/angelmondragon/fitconnect-client/pkg/logger"
	"github.com/angelmondragon/fitconnect-client/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const persistTimeout = 5 * time.Second

// RemoteAPI is the slice of the order/cart service a session talks to.
type RemoteAPI interface {
	CreateOrder(ctx context.Context, req fitapi.CreateOrderRequest, idempotencyKey string) (*fitapi.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]fitapi.Order, error)
	GetCart(ctx context.Context, userID int64) (*fitapi.Cart, error)
	AddCartItem(ctx context.Context, req fitapi.CartItemRequest) (*fitapi.CartLine, error)
	UpdateCartItem(ctx context.Context, req fitapi.CartItemRequest) (*fitapi.CartLine, error)
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

// Options are the collaborators a Session is assembled from.
type Options struct {
	Config    *config.Config
	Logger    *logger.Logger
	Notifier  notifications.Notifier
	API       RemoteAPI
	Snapshots cart.SnapshotRepository
	// Registry receives the session metrics; nil disables them.
	Registry *prometheus.Registry
	// Closers are released, in order, by Close.
	Closers []io.Closer
}

// Session owns the state of one shopper: identity, cart, checkout flow and
// order history. Screens receive it by reference and only use its methods.
type Session struct {
	cfg      *config.Config
	logg     *logger.Logger
	notifier notifications.Notifier

	userID        int64
	authenticated bool
	owner         string

	store     *cart.Store
	snapshots cart.SnapshotRepository
	syncer    *cart.Syncer
	flow      *checkout.Flow
	history   *orders.History

	metrics  *metrics.CheckoutMetrics
	registry *prometheus.Registry
	closers  []io.Closer
}

func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if opts.API == nil {
		return nil, fmt.Errorf("remote api required")
	}
	if opts.Snapshots == nil {
		return nil, fmt.Errorf("snapshot repository required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.Discard
	}

	s := &Session{
		cfg:       opts.Config,
		logg:      opts.Logger,
		notifier:  opts.Notifier,
		snapshots: opts.Snapshots,
		registry:  opts.Registry,
		closers:   opts.Closers,
	}
	if opts.Registry != nil {
		s.metrics = metrics.NewCheckoutMetrics(opts.Registry)
	}

	s.userID, s.authenticated = auth.ResolveUserID(opts.Config.Auth.Token)
	s.owner = cart.OwnerKey(s.userID, s.authenticated)
	if s.authenticated {
		ctx = s.logg.WithUserID(ctx, s.userID)
	}

	s.store = cart.NewStore(cart.WithNotifier(s.notifier), cart.WithItems(s.loadSnapshot(ctx)))
	s.store.Subscribe(s.persist)
	s.store.Subscribe(func(items []cart.Item) {
		s.metrics.ObserveCart(unitCount(items))
	})

	gateway, err := orders.NewGateway(opts.API, s.logg)
	if err != nil {
		return nil, err
	}
	history, err := orders.NewHistory(opts.API, s.logg)
	if err != nil {
		return nil, err
	}
	s.history = history

	flowOpts := []checkout.Option{
		checkout.WithPolicy(checkout.PolicyFromConfig(opts.Config.Pricing)),
		checkout.WithPaymentWindow(opts.Config.Checkout.PaymentWindow),
		checkout.WithNotifier(s.notifier),
		checkout.WithLogger(s.logg),
		checkout.WithSettlement(s.settleOrder),
	}
	if s.metrics != nil {
		flowOpts = append(flowOpts, checkout.WithMetrics(s.metrics))
	}
	flow, err := checkout.NewFlow(s.store, gateway, s.Identity, flowOpts...)
	if err != nil {
		return nil, err
	}
	flow.OnReturnToCart(func(ctx context.Context) {
		s.refreshHistory(ctx)
	})
	s.flow = flow

	if opts.Config.FeatureFlags.CartSync && s.authenticated {
		syncer, err := cart.NewSyncer(s.store, opts.API, s.userID, s.notifier, s.logg)
		if err != nil {
			return nil, err
		}
		s.syncer = syncer
	}

	return s, nil
}

// Identity is the signed-in user id; false when the token is missing or
// unreadable.
func (s *Session) Identity() (int64, bool) {
	return s.userID, s.authenticated
}

// RequireIdentity returns the user id or an error asking the user to sign in.
func (s *Session) RequireIdentity() (int64, error) {
	if !s.authenticated {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in again")
	}
	return s.userID, nil
}

func (s *Session) Owner() string { return s.owner }

func (s *Session) Cart() *cart.Store { return s.store }

func (s *Session) Flow() *checkout.Flow { return s.flow }

func (s *Session) History() *orders.History { return s.history }

// Syncing reports whether cart changes are mirrored to the remote cart.
func (s *Session) Syncing() bool { return s.syncer != nil }

// Mount runs the start-of-session work: pull the remote cart when syncing and
// load the order history.
func (s *Session) Mount(ctx context.Context) {
	if s.syncer != nil {
		if err := s.syncer.Pull(ctx); err != nil {
			s.warn(ctx, "could not load your saved cart: "+pkgerrors.UserMessage(err), err)
		}
	}
	s.refreshHistory(ctx)
}

// RefreshHistory reloads the order list and reports why it failed.
func (s *Session) RefreshHistory(ctx context.Context) error {
	userID, err := s.RequireIdentity()
	if err != nil {
		return err
	}
	return s.history.Refresh(ctx, userID)
}

func (s *Session) refreshHistory(ctx context.Context) {
	if !s.authenticated {
		return
	}
	if err := s.history.Refresh(ctx, s.userID); err != nil {
		s.warn(ctx, "could not load your orders: "+pkgerrors.UserMessage(err), err)
	}
}

// AddToCart adds a product, mirroring it to the remote cart when syncing.
func (s *Session) AddToCart(ctx context.Context, p cart.Product, quantity int, size string) error {
	if s.syncer != nil {
		return s.syncer.Add(ctx, p, quantity, size)
	}
	return s.store.Add(p, quantity, size)
}

// SetQuantity changes a line's quantity; values below one are ignored.
func (s *Session) SetQuantity(ctx context.Context, productID int64, quantity int) error {
	if s.syncer != nil {
		return s.syncer.SetQuantity(ctx, productID, quantity)
	}
	s.store.SetQuantity(productID, quantity)
	return nil
}

func (s *Session) SetSize(productID int64, size string) bool {
	return s.store.SetSize(productID, size)
}

func (s *Session) RemoveFromCart(ctx context.Context, productID int64) error {
	if s.syncer != nil {
		return s.syncer.Remove(ctx, productID)
	}
	s.store.Remove(productID)
	return nil
}

func (s *Session) ClearCart(ctx context.Context) error {
	if s.syncer != nil {
		return s.syncer.Clear(ctx)
	}
	s.store.Clear()
	return nil
}

// settleOrder takes a placed order out of the cart, on the remote cart too
// when syncing so the next session does not pull the bought lines back.
func (s *Session) settleOrder(ctx context.Context, ordered []cart.Item) error {
	if s.syncer != nil {
		return s.syncer.Settle(ctx, ordered)
	}
	s.store.Settle(ordered)
	return nil
}

// PullCart replaces the local cart with the remote one.
func (s *Session) PullCart(ctx context.Context) error {
	if _, err := s.RequireIdentity(); err != nil {
		return err
	}
	if s.syncer == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart sync is disabled")
	}
	return s.syncer.Pull(ctx)
}

// PaymentRequest describes the QR payment for the order awaiting confirmation.
func (s *Session) PaymentRequest() (checkout.PaymentRequest, bool) {
	snap := s.flow.Snapshot()
	if snap.LastOrder == nil {
		return checkout.PaymentRequest{}, false
	}
	return checkout.PaymentRequest{
		Payee:    s.cfg.Checkout.WalletPayee,
		OrderID:  snap.LastOrder.ID,
		Amount:   snap.LastOrder.Total,
		Currency: s.cfg.Pricing.Currency,
	}, true
}

// Close flushes the metrics textfile and releases every resource.
func (s *Session) Close() error {
	var err error
	if s.registry != nil {
		err = multierr.Append(err, metrics.WriteTextfile(s.cfg.Metrics.Textfile, s.registry))
	}
	for _, c := range s.closers {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	s.closers = nil
	return err
}

func (s *Session) loadSnapshot(ctx context.Context) []cart.Item {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	items, err := s.snapshots.Load(ctx, s.owner)
	if err != nil {
		s.warn(ctx, "your saved cart could not be restored", err)
		return nil
	}
	return items
}

// persist saves the cart after every change; failures are reported but never
// undo the change.
func (s *Session) persist(items []cart.Item) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.snapshots.Save(ctx, s.owner, items); err != nil {
		s.warn(ctx, "your cart could not be saved", err)
	}
}

func (s *Session) warn(ctx context.Context, message string, err error) {
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), message)
	s.notifier.Notify(notifications.Notice{Level: notifications.LevelWarning, Message: message})
}

func unitCount(items []cart.Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
