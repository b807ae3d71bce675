package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/fitconnect-client/internal/notifications"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/fitapi"
	"github.com/angelmondragon/fitconnect-client/pkg/logger"
	"github.com/angelmondragon/fitconnect-client/pkg/validate"
	"go.uber.org/multierr"
)

type remoteCart interface {
	GetCart(ctx context.Context, userID int64) (*fitapi.Cart, error)
	AddCartItem(ctx context.Context, req fitapi.CartItemRequest) (*fitapi.CartLine, error)
	UpdateCartItem(ctx context.Context, req fitapi.CartItemRequest) (*fitapi.CartLine, error)
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

// Syncer mirrors cart mutations to the remote cart. Each change is applied
// locally as a provisional line first, then confirmed with the server's answer
// or rolled back when the call fails.
type Syncer struct {
	mu       sync.Mutex
	store    *Store
	remote   remoteCart
	userID   int64
	notifier notifications.Notifier
	logg     *logger.Logger
}

func NewSyncer(store *Store, remote remoteCart, userID int64, notifier notifications.Notifier, logg *logger.Logger) (*Syncer, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote cart required")
	}
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to sync your cart")
	}
	if notifier == nil {
		notifier = notifications.Discard
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Syncer{store: store, remote: remote, userID: userID, notifier: notifier, logg: logg}, nil
}

func (s *Syncer) Add(ctx context.Context, p Product, quantity int, size string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity < 1 {
		quantity = 1
	}
	previous, existed := s.store.Line(p.ID)
	if !existed {
		previous.ProductID = p.ID
	}
	if err := s.store.add(p, quantity, size, true); err != nil {
		return err
	}

	line, err := s.remote.AddCartItem(ctx, fitapi.CartItemRequest{
		UserID:    s.userID,
		ProductID: p.ID,
		Quantity:  quantity,
		Size:      normalizeSize(size),
	})
	if err != nil {
		s.rollback(ctx, previous, existed, "add", err)
		return err
	}
	s.store.confirm(p.ID, remoteQuantity(line, p.ID))
	return nil
}

// SetQuantity mirrors Store.SetQuantity; quantities below one are ignored.
func (s *Syncer) SetQuantity(ctx context.Context, productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.store.Line(productID)
	if !existed || quantity < 1 {
		return nil
	}
	if !s.store.setQuantity(productID, quantity, true) {
		return nil
	}

	line, err := s.remote.UpdateCartItem(ctx, fitapi.CartItemRequest{
		UserID:    s.userID,
		ProductID: productID,
		Quantity:  quantity,
		Size:      previous.Size,
	})
	if err != nil {
		s.rollback(ctx, previous, true, "update", err)
		return err
	}
	s.store.confirm(productID, remoteQuantity(line, productID))
	return nil
}

func (s *Syncer) Remove(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.store.Line(productID)
	if !existed {
		return nil
	}
	s.store.Remove(productID)

	if err := s.remote.RemoveCartItem(ctx, s.userID, productID); err != nil {
		s.rollback(ctx, previous, true, "remove", err)
		return err
	}
	return nil
}

func (s *Syncer) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.store.Items()
	if len(previous) == 0 {
		return nil
	}
	s.store.Clear()

	if err := s.remote.ClearCart(ctx, s.userID); err != nil {
		s.store.Replace(previous)
		s.warn(ctx, "clear", err)
		return err
	}
	return nil
}

// Settle takes the units of a placed order out of the cart and mirrors that on
// the remote cart. The order exists either way, so the local cart stays
// settled when the remote update fails; the failure is reported and returned.
func (s *Syncer) Settle(ctx context.Context, ordered []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.store.Items()
	if !s.store.Settle(ordered) {
		return nil
	}
	after := s.store.Items()

	var err error
	if len(after) == 0 {
		err = s.remote.ClearCart(ctx, s.userID)
	} else {
		kept := make(map[int64]Item, len(after))
		for _, item := range after {
			kept[item.ProductID] = item
		}
		for _, line := range before {
			next, ok := kept[line.ProductID]
			switch {
			case !ok:
				err = multierr.Append(err, s.remote.RemoveCartItem(ctx, s.userID, line.ProductID))
			case next.Quantity != line.Quantity:
				_, updateErr := s.remote.UpdateCartItem(ctx, fitapi.CartItemRequest{
					UserID:    s.userID,
					ProductID: line.ProductID,
					Quantity:  next.Quantity,
					Size:      next.Size,
				})
				err = multierr.Append(err, updateErr)
			}
		}
	}
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"op": "settle", "error": err.Error()}), "remote cart not settled after order")
		s.notifier.Notify(notifications.Notice{
			Level:   notifications.LevelWarning,
			Message: "Your order was placed but your saved cart could not be updated: " + pkgerrors.UserMessage(firstError(err)),
		})
		return err
	}
	return nil
}

// Pull replaces the local cart with the server's copy.
func (s *Syncer) Pull(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remote, err := s.remote.GetCart(ctx, s.userID)
	if err != nil {
		return err
	}
	if err := validate.Struct(remote); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remote cart failed validation")
	}
	items := make([]Item, 0, len(remote.Items))
	for _, line := range remote.Items {
		items = append(items, Item{
			ProductID: line.ProductID,
			Name:      line.ProductName,
			UnitPrice: line.Price,
			Quantity:  line.Quantity,
			Size:      line.Size,
			ImageURL:  line.ImageURL,
		})
	}
	s.store.Replace(items)
	return nil
}

func (s *Syncer) rollback(ctx context.Context, previous Item, existed bool, op string, cause error) {
	s.store.restore(previous, existed)
	s.warn(ctx, op, cause)
}

func (s *Syncer) warn(ctx context.Context, op string, cause error) {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"op": op, "error": cause.Error()}), "cart sync rolled back")
	s.notifier.Notify(notifications.Notice{
		Level:   notifications.LevelWarning,
		Message: "Your cart could not be updated: " + pkgerrors.UserMessage(cause),
	})
}

func remoteQuantity(line *fitapi.CartLine, productID int64) int {
	if line == nil || line.ProductID != productID {
		return 0
	}
	return line.Quantity
}

func firstError(err error) error {
	if errs := multierr.Errors(err); len(errs) > 0 {
		return errs[0]
	}
	return err
}
