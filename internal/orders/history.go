package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/logger"
)

// History is the read-only list of a user's past orders. It shows the full
// list; there is no paging.
type History struct {
	mu        sync.RWMutex
	api       orderAPI
	logg      *logger.Logger
	orders    []Order
	fetchedAt time.Time
	lastErr   error
}

func NewHistory(api orderAPI, logg *logger.Logger) (*History, error) {
	if api == nil {
		return nil, fmt.Errorf("order api required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &History{api: api, logg: logg}, nil
}

// Refresh refetches every order of userID. On failure the previous list is
// kept and the error is returned.
func (h *History) Refresh(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to see your orders")
	}
	ctx = h.logg.WithUserID(ctx, userID)

	remote, err := h.api.ListOrdersByUser(ctx, userID)
	if err != nil {
		mapped := mapRemoteError(err)
		if pkgerrors.Is(mapped, pkgerrors.CodeDependency) {
			mapped = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not load your orders, please try again later")
		}
		h.setErr(mapped)
		h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "order history refresh failed")
		return mapped
	}

	orders := make([]Order, 0, len(remote))
	skipped := 0
	for _, src := range remote {
		order, err := fromAPI(src)
		if err != nil {
			skipped++
			continue
		}
		orders = append(orders, order)
	}
	if skipped > 0 {
		h.logg.Warn(h.logg.WithField(ctx, "skipped", skipped), "ignored malformed orders from history")
	}

	h.mu.Lock()
	h.orders = orders
	h.fetchedAt = time.Now()
	h.lastErr = nil
	h.mu.Unlock()
	return nil
}

func (h *History) setErr(err error) {
	h.mu.Lock()
	h.lastErr = err
	h.mu.Unlock()
}

// Orders returns the list from the last successful refresh.
func (h *History) Orders() []Order {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Order, len(h.orders))
	copy(out, h.orders)
	return out
}

// FetchedAt is when the list was last refreshed successfully.
func (h *History) FetchedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fetchedAt
}

// Err is the error of the most recent refresh, if it failed.
func (h *History) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastErr
}
