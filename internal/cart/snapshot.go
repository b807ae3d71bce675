package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const guestOwner = "guest"

// OwnerKey names whose cart a snapshot belongs to.
func OwnerKey(userID int64, authenticated bool) string {
	if !authenticated || userID <= 0 {
		return guestOwner
	}
	return "user:" + strconv.FormatInt(userID, 10)
}

// SnapshotRepository persists confirmed cart lines between runs of the client.
type SnapshotRepository interface {
	Load(ctx context.Context, owner string) ([]Item, error)
	Save(ctx context.Context, owner string, items []Item) error
}

// confirmedOnly keeps what the remote cart has acknowledged: pending lines
// fall back to their last confirmed quantity and new pending lines are left
// out.
func confirmedOnly(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if confirmed, ok := item.Confirmed(); ok {
			out = append(out, confirmed)
		}
	}
	return out
}

// CartLine is the row stored per cart line.
type CartLine struct {
	Owner     string          `gorm:"column:owner;primaryKey"`
	ProductID int64           `gorm:"column:product_id;primaryKey"`
	Position  int             `gorm:"column:position"`
	Name      string          `gorm:"column:name"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(18,2)"`
	Quantity  int             `gorm:"column:quantity"`
	Size      string          `gorm:"column:size"`
	ImageURL  string          `gorm:"column:image_url"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (CartLine) TableName() string { return "cart_lines" }

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormSnapshotRepository keeps snapshots in the local SQL database.
type GormSnapshotRepository struct {
	db *gorm.DB
	tx txRunner
}

func NewGormSnapshotRepository(db *gorm.DB, tx txRunner) (*GormSnapshotRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &GormSnapshotRepository{db: db, tx: tx}, nil
}

func (r *GormSnapshotRepository) Load(ctx context.Context, owner string) ([]Item, error) {
	var rows []CartLine
	if err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			ProductID: row.ProductID,
			Name:      row.Name,
			UnitPrice: row.UnitPrice,
			Quantity:  row.Quantity,
			Size:      row.Size,
			ImageURL:  row.ImageURL,
		})
	}
	return sanitizeItems(items), nil
}

// Save replaces every line of owner atomically.
func (r *GormSnapshotRepository) Save(ctx context.Context, owner string, items []Item) error {
	confirmed := confirmedOnly(items)
	now := time.Now().UTC()
	return r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("owner = ?", owner).Delete(&CartLine{}).Error; err != nil {
			return fmt.Errorf("clear cart lines: %w", err)
		}
		if len(confirmed) == 0 {
			return nil
		}
		rows := make([]CartLine, 0, len(confirmed))
		for i, item := range confirmed {
			rows = append(rows, CartLine{
				Owner:     owner,
				ProductID: item.ProductID,
				Position:  i,
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
				Size:      item.Size,
				ImageURL:  item.ImageURL,
				UpdatedAt: now,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert cart lines: %w", err)
		}
		return nil
	})
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartSnapshotKey(owner string) string
}

// RedisSnapshotRepository keeps snapshots as JSON documents with a TTL so
// abandoned guest carts age out.
type RedisSnapshotRepository struct {
	store    kvStore
	ttl      time.Duration
	isAbsent func(error) bool
}

func NewRedisSnapshotRepository(store kvStore, ttl time.Duration, isAbsent func(error) bool) (*RedisSnapshotRepository, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if isAbsent == nil {
		return nil, fmt.Errorf("missing-key predicate required")
	}
	return &RedisSnapshotRepository{store: store, ttl: ttl, isAbsent: isAbsent}, nil
}

func (r *RedisSnapshotRepository) Load(ctx context.Context, owner string) ([]Item, error) {
	raw, err := r.store.Get(ctx, r.store.CartSnapshotKey(owner))
	if err != nil {
		if r.isAbsent(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return sanitizeItems(items), nil
}

func (r *RedisSnapshotRepository) Save(ctx context.Context, owner string, items []Item) error {
	key := r.store.CartSnapshotKey(owner)
	confirmed := confirmedOnly(items)
	if len(confirmed) == 0 {
		return r.store.Del(ctx, key)
	}
	payload, err := json.Marshal(confirmed)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	return r.store.Set(ctx, key, string(payload), r.ttl)
}

// MemorySnapshotRepository keeps nothing beyond the process; it backs the
// "memory" store driver and tests.
type MemorySnapshotRepository struct {
	mu    sync.Mutex
	carts map[string][]Item
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{carts: map[string][]Item{}}
}

func (r *MemorySnapshotRepository) Load(_ context.Context, owner string) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, ok := r.carts[owner]
	if !ok {
		return nil, nil
	}
	return append([]Item(nil), items...), nil
}

func (r *MemorySnapshotRepository) Save(_ context.Context, owner string, items []Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[owner] = confirmedOnly(items)
	return nil
}
