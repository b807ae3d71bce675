package cart

import (
	"fmt"
	"sync"

	"github.com/angelmondragon/fitconnect-client/internal/notifications"
	"github.com/shopspring/decimal"
)

// Listener observes the cart after every effective mutation. It receives a
// copy and must not call back into the store's mutators.
type Listener func(items []Item)

// Store is the in-memory cart owned by the session. All mutation goes through
// its methods; totals are derived on every read. Mutations are serialised
// together with their listeners, so listeners see snapshots in the order the
// mutations happened.
type Store struct {
	// commitMu is held from the start of a mutation until its listeners return.
	commitMu  sync.Mutex
	mu        sync.RWMutex
	items     []Item
	notifier  notifications.Notifier
	listeners []Listener
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNotifier routes confirmation notices (e.g. "added to cart").
func WithNotifier(n notifications.Notifier) StoreOption {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithItems seeds the store, typically from a persisted snapshot.
func WithItems(items []Item) StoreOption {
	return func(s *Store) {
		s.items = sanitizeItems(items)
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{notifier: notifications.Discard}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Subscribe registers a listener for subsequent mutations.
func (s *Store) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Add puts quantity units of product in the cart. An existing line for the
// same product grows instead of being duplicated; its size is kept.
// Quantities below one are treated as one.
func (s *Store) Add(p Product, quantity int, size string) error {
	return s.add(p, quantity, size, false)
}

func (s *Store) add(p Product, quantity int, size string, provisional bool) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if quantity < 1 {
		quantity = 1
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if pos := s.indexOf(p.ID); pos >= 0 {
		item := &s.items[pos]
		if provisional {
			item.markProvisional()
		}
		item.Quantity += quantity
	} else {
		s.items = append(s.items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  quantity,
			Size:      normalizeSize(size),
			ImageURL:  p.ImageURL,

			Provisional: provisional,
		})
	}
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.notifier.Notify(notifications.Notice{
		Level:   notifications.LevelSuccess,
		Message: fmt.Sprintf("Added %d x %s to your cart", quantity, p.Name),
	})
	s.publish(snapshot)
	return nil
}

// SetQuantity replaces the quantity of a line. Values below one and unknown
// ids leave the cart untouched; use Remove to delete a line.
func (s *Store) SetQuantity(productID int64, quantity int) bool {
	return s.setQuantity(productID, quantity, false)
}

func (s *Store) setQuantity(productID int64, quantity int, provisional bool) bool {
	if quantity < 1 {
		return false
	}
	return s.mutate(productID, func(item *Item) bool {
		if item.Quantity == quantity {
			return false
		}
		if provisional {
			item.markProvisional()
		}
		item.Quantity = quantity
		return true
	})
}

// SetSize changes the chosen variant of a line.
func (s *Store) SetSize(productID int64, size string) bool {
	normalized := normalizeSize(size)
	return s.mutate(productID, func(item *Item) bool {
		if item.Size == normalized {
			return false
		}
		item.Size = normalized
		return true
	})
}

// Remove deletes the line for productID; it is a no-op when absent.
func (s *Store) Remove(productID int64) bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	pos := s.indexOf(productID)
	if pos < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.publish(snapshot)
	return true
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	s.items = nil
	s.mu.Unlock()

	s.publish(nil)
}

// Replace swaps the whole content, e.g. after pulling the remote cart.
func (s *Store) Replace(items []Item) {
	clean := sanitizeItems(items)
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	s.items = clean
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.publish(snapshot)
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Line returns the line for productID.
func (s *Store) Line(productID int64) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos := s.indexOf(productID); pos >= 0 {
		return s.items[pos], true
	}
	return Item{}, false
}

// Count is the number of units across all lines.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// Subtotal is the sum of unit price times quantity.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Subtotal(s.items)
}

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}

// Subtotal sums the line totals of items.
func Subtotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s *Store) mutate(productID int64, fn func(item *Item) bool) bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	pos := s.indexOf(productID)
	if pos < 0 || !fn(&s.items[pos]) {
		s.mu.Unlock()
		return false
	}
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.publish(snapshot)
	return true
}

// restore puts back a line exactly as it was, used to undo a provisional change.
func (s *Store) restore(previous Item, existed bool) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	pos := s.indexOf(previous.ProductID)
	switch {
	case existed && pos >= 0:
		s.items[pos] = previous
	case existed:
		s.items = append(s.items, previous)
	case pos >= 0:
		s.items = append(s.items[:pos], s.items[pos+1:]...)
	}
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.publish(snapshot)
}

// confirm clears the provisional flag of a line, adopting the quantity the
// remote cart reports when it sent one.
func (s *Store) confirm(productID int64, remoteQuantity int) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	pos := s.indexOf(productID)
	if pos < 0 {
		s.mu.Unlock()
		return
	}
	s.items[pos].Provisional = false
	s.items[pos].confirmedQuantity = 0
	if remoteQuantity >= 1 {
		s.items[pos].Quantity = remoteQuantity
	}
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.publish(snapshot)
}

// Settle takes the units of a placed order out of the cart. Lines whose
// quantity grew after the order was submitted keep the extra units; lines the
// order did not contain are left alone. It reports whether anything changed.
func (s *Store) Settle(ordered []Item) bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	remaining, changed := settleLines(s.items, ordered)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.items = remaining
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.publish(snapshot)
	return true
}

// settleLines returns items minus the ordered units.
func settleLines(items, ordered []Item) ([]Item, bool) {
	bought := make(map[int64]int, len(ordered))
	for _, o := range ordered {
		bought[o.ProductID] += o.Quantity
	}
	changed := false
	remaining := make([]Item, 0, len(items))
	for _, item := range items {
		qty, ok := bought[item.ProductID]
		if !ok {
			remaining = append(remaining, item)
			continue
		}
		changed = true
		if item.Quantity > qty {
			item.Quantity -= qty
			remaining = append(remaining, item)
		}
	}
	if len(remaining) == 0 {
		remaining = nil
	}
	return remaining, changed
}

func (s *Store) indexOf(productID int64) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) copyLocked() []Item {
	if len(s.items) == 0 {
		return nil
	}
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) publish(items []Item) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(items)
	}
}
