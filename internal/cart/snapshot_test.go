package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/fitconnect-client/pkg/config"
	"github.com/angelmondragon/fitconnect-client/pkg/db"
	"github.com/angelmondragon/fitconnect-client/pkg/migrate"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []Item {
	return []Item{
		{ProductID: 3, Name: "Dumbbell", UnitPrice: decimal.NewFromInt(250000), Quantity: 2, Size: "M"},
		{ProductID: 1, Name: "Yoga mat", UnitPrice: decimal.RequireFromString("99000.50"), Quantity: 1, Size: "L", ImageURL: "https://cdn/mat.png"},
	}
}

func newGormRepo(t *testing.T) *GormSnapshotRepository {
	t.Helper()
	client, err := db.New(context.Background(), config.StoreDriverSQLite, config.DBConfig{
		DSN:          "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxIdleConns: 2,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.SQL()
	require.NoError(t, err)
	require.NoError(t, migrate.Run(context.Background(), sqlDB, client.Dialect(), "up"))

	repo, err := NewGormSnapshotRepository(client.DB(), client)
	require.NoError(t, err)
	return repo
}

func assertSameLines(t *testing.T, want, got []Item) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ProductID, got[i].ProductID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.True(t, want[i].UnitPrice.Equal(got[i].UnitPrice), "price %s != %s", want[i].UnitPrice, got[i].UnitPrice)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].Size, got[i].Size)
		assert.Equal(t, want[i].ImageURL, got[i].ImageURL)
	}
}

func TestOwnerKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user:42", OwnerKey(42, true))
	assert.Equal(t, "guest", OwnerKey(42, false))
	assert.Equal(t, "guest", OwnerKey(0, true))
}

func TestGormSnapshotRoundTripKeepsOrder(t *testing.T) {
	repo := newGormRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "user:1", sampleItems()))
	got, err := repo.Load(ctx, "user:1")
	require.NoError(t, err)
	assertSameLines(t, sampleItems(), got)

	other, err := repo.Load(ctx, "guest")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestGormSnapshotSaveReplacesAndSkipsProvisional(t *testing.T) {
	repo := newGormRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "user:1", sampleItems()))

	next := []Item{
		{ProductID: 9, Name: "Band", UnitPrice: decimal.NewFromInt(10000), Quantity: 4, Size: "S"},
		{ProductID: 10, Name: "Pending", UnitPrice: decimal.NewFromInt(1), Quantity: 1, Size: "M", Provisional: true},
	}
	require.NoError(t, repo.Save(ctx, "user:1", next))

	got, err := repo.Load(ctx, "user:1")
	require.NoError(t, err)
	assertSameLines(t, next[:1], got)

	require.NoError(t, repo.Save(ctx, "user:1", nil))
	got, err = repo.Load(ctx, "user:1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemorySnapshotRepository(t *testing.T) {
	t.Parallel()

	repo := NewMemorySnapshotRepository()
	ctx := context.Background()

	got, err := repo.Load(ctx, "guest")
	require.NoError(t, err)
	assert.Nil(t, got)

	items := sampleItems()
	items[0].Provisional = true
	require.NoError(t, repo.Save(ctx, "guest", items))
	got, err = repo.Load(ctx, "guest")
	require.NoError(t, err)
	assertSameLines(t, items[1:], got)
}

func TestSnapshotKeepsConfirmedQuantityOfPendingLine(t *testing.T) {
	t.Parallel()

	store := NewStore()
	require.NoError(t, store.Add(product(1, 1000), 2, "S"))
	require.NoError(t, store.add(product(1, 1000), 3, "", true))
	require.NoError(t, store.add(product(2, 500), 1, "", true))

	line, _ := store.Line(1)
	require.True(t, line.Provisional)
	require.Equal(t, 5, line.Quantity)

	repo := NewMemorySnapshotRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "user:1", store.Items()))
	got, err := repo.Load(ctx, "user:1")
	require.NoError(t, err)
	require.Len(t, got, 1, "lines the remote cart never saw are left out")
	assert.Equal(t, int64(1), got[0].ProductID)
	assert.Equal(t, 2, got[0].Quantity)
	assert.False(t, got[0].Provisional)

	store.confirm(1, 0)
	line, _ = store.Line(1)
	confirmed, ok := line.Confirmed()
	require.True(t, ok)
	assert.Equal(t, 5, confirmed.Quantity)
}

var errMissing = errors.New("missing")

type fakeKV struct {
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", errMissing
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) CartSnapshotKey(owner string) string { return "fc:cart:" + owner }

func TestRedisSnapshotRepository(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	repo, err := NewRedisSnapshotRepository(kv, time.Hour, func(err error) bool { return errors.Is(err, errMissing) })
	require.NoError(t, err)
	ctx := context.Background()

	got, err := repo.Load(ctx, "user:5")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Save(ctx, "user:5", sampleItems()))
	assert.Equal(t, time.Hour, kv.ttl["fc:cart:user:5"])

	got, err = repo.Load(ctx, "user:5")
	require.NoError(t, err)
	assertSameLines(t, sampleItems(), got)

	require.NoError(t, repo.Save(ctx, "user:5", nil))
	_, present := kv.data["fc:cart:user:5"]
	assert.False(t, present, "empty carts delete the key")

	kv.err = errors.New("connection refused")
	_, err = repo.Load(ctx, "user:5")
	require.Error(t, err)
}

func TestRedisSnapshotRejectsCorruptPayload(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.data["fc:cart:guest"] = "{not json"
	repo, err := NewRedisSnapshotRepository(kv, 0, func(err error) bool { return errors.Is(err, errMissing) })
	require.NoError(t, err)

	_, err = repo.Load(context.Background(), "guest")
	require.Error(t, err)
}
