package orders

import (
	"context"
	"testing"

	"github.com/angelmondragon/fitconnect-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/fitapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRefresh(t *testing.T) {
	t.Parallel()

	second := placedOrder()
	second.ID = 78
	second.Status = "canceled"
	second.PaymentMethod = "ewallet"
	malformed := placedOrder()
	malformed.ID = -1

	api := &stubAPI{listed: []fitapi.Order{*placedOrder(), *second, *malformed}}
	history, err := NewHistory(api, nil)
	require.NoError(t, err)
	assert.Empty(t, history.Orders())

	require.NoError(t, history.Refresh(context.Background(), 42))
	assert.Equal(t, int64(42), api.listUser)

	got := history.Orders()
	require.Len(t, got, 2)
	assert.Equal(t, int64(77), got[0].ID)
	assert.Equal(t, enums.OrderStatusCancelled, got[1].Status)
	assert.Equal(t, enums.PaymentMethodEWallet, got[1].PaymentMethod)
	assert.False(t, history.FetchedAt().IsZero())
	assert.NoError(t, history.Err())
}

func TestHistoryRefreshFailureKeepsPreviousList(t *testing.T) {
	t.Parallel()

	api := &stubAPI{listed: []fitapi.Order{*placedOrder()}}
	history, err := NewHistory(api, nil)
	require.NoError(t, err)
	require.NoError(t, history.Refresh(context.Background(), 42))

	api.err = pkgerrors.New(pkgerrors.CodeUnauthorized, "expired")
	err = history.Refresh(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
	assert.Len(t, history.Orders(), 1)
	assert.Equal(t, err, history.Err())

	api.err = pkgerrors.New(pkgerrors.CodeDependency, "down")
	err = history.Refresh(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestHistoryRequiresIdentity(t *testing.T) {
	t.Parallel()

	api := &stubAPI{}
	history, err := NewHistory(api, nil)
	require.NoError(t, err)

	err = history.Refresh(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
	assert.Zero(t, api.calls)
}
