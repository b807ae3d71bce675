package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/fitconnect-client/internal/cart"
	"github.com/angelmondragon/fitconnect-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/fitapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	created  *fitapi.Order
	err      error
	listed   []fitapi.Order
	calls    int
	lastReq  fitapi.CreateOrderRequest
	lastKey  string
	listUser int64
}

func (s *stubAPI) CreateOrder(_ context.Context, req fitapi.CreateOrderRequest, key string) (*fitapi.Order, error) {
	s.calls++
	s.lastReq = req
	s.lastKey = key
	if s.err != nil {
		return nil, s.err
	}
	return s.created, nil
}

func (s *stubAPI) ListOrdersByUser(_ context.Context, userID int64) ([]fitapi.Order, error) {
	s.calls++
	s.listUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return s.listed, nil
}

func validInput() SubmitInput {
	return SubmitInput{
		UserID: 42,
		Lines: []cart.Item{
			{ProductID: 1, Name: "Mat", UnitPrice: decimal.NewFromInt(100000), Quantity: 2, Size: "M"},
		},
		Total:    decimal.NewFromInt(246000),
		Shipping: ShippingInfo{Name: " An ", Phone: "0900", Address: "1 Main St"},
		Payment:  enums.PaymentMethodCOD,
	}
}

func placedOrder() *fitapi.Order {
	return &fitapi.Order{
		ID:          77,
		UserID:      42,
		Items:       []fitapi.OrderItem{{ProductID: 1, ProductName: "Mat", Quantity: 2, Price: decimal.NewFromInt(100000)}},
		Status:      "PENDING",
		TotalAmount: decimal.NewFromInt(246000),
		CreatedAt:   fitapi.Timestamp{Time: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
}

func TestGatewaySubmitBuildsRequest(t *testing.T) {
	t.Parallel()

	api := &stubAPI{created: placedOrder()}
	gw, err := NewGateway(api, nil)
	require.NoError(t, err)

	in := validInput()
	in.IdempotencyKey = "draft-1"
	order, err := gw.Submit(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, api.calls)
	assert.Equal(t, "draft-1", api.lastKey)
	assert.Equal(t, int64(42), api.lastReq.UserID)
	assert.Equal(t, "An | 0900 | 1 Main St", api.lastReq.ShippingAddress)
	assert.Equal(t, "COD", api.lastReq.PaymentMethod)
	assert.Equal(t, json.Number("246000"), api.lastReq.TotalAmount)
	require.Len(t, api.lastReq.Items, 1)
	assert.Equal(t, fitapi.CreateOrderItem{ProductID: 1, Quantity: 2, Price: json.Number("100000")}, api.lastReq.Items[0])

	assert.Equal(t, int64(77), order.ID)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, 2, order.ItemCount())
}

func TestGatewayGeneratesIdempotencyKey(t *testing.T) {
	t.Parallel()

	api := &stubAPI{created: placedOrder()}
	gw, err := NewGateway(api, nil)
	require.NoError(t, err)

	_, err = gw.Submit(context.Background(), validInput())
	require.NoError(t, err)
	assert.Len(t, api.lastKey, 36)
}

func TestGatewayLocalValidationSkipsNetwork(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		mutate func(*SubmitInput)
		code   pkgerrors.Code
	}{
		"no identity":   {func(in *SubmitInput) { in.UserID = 0 }, pkgerrors.CodeUnauthorized},
		"empty cart":    {func(in *SubmitInput) { in.Lines = nil }, pkgerrors.CodeValidation},
		"blank name":    {func(in *SubmitInput) { in.Shipping.Name = "   " }, pkgerrors.CodeValidation},
		"blank phone":   {func(in *SubmitInput) { in.Shipping.Phone = "" }, pkgerrors.CodeValidation},
		"blank address": {func(in *SubmitInput) { in.Shipping.Address = "\t" }, pkgerrors.CodeValidation},
		"bad method":    {func(in *SubmitInput) { in.Payment = "CARD" }, pkgerrors.CodeValidation},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			api := &stubAPI{created: placedOrder()}
			gw, err := NewGateway(api, nil)
			require.NoError(t, err)

			in := validInput()
			tc.mutate(&in)
			_, err = gw.Submit(context.Background(), in)
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, tc.code), "got %v", err)
			assert.Zero(t, api.calls)
		})
	}
}

func TestGatewayMapsRemoteFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		remote error
		code   pkgerrors.Code
	}{
		{pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired"), pkgerrors.CodeUnauthorized},
		{pkgerrors.New(pkgerrors.CodeDependency, "bad gateway"), pkgerrors.CodeDependency},
		{pkgerrors.New(pkgerrors.CodeValidation, "price mismatch"), pkgerrors.CodeDependency},
		{errors.New("dial tcp: refused"), pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		api := &stubAPI{err: tc.remote}
		gw, err := NewGateway(api, nil)
		require.NoError(t, err)

		_, err = gw.Submit(context.Background(), validInput())
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, tc.code), "remote %v mapped to %v", tc.remote, err)
		assert.Equal(t, 1, api.calls, "no automatic retry")
		assert.ErrorIs(t, err, tc.remote)
	}
}

func TestGatewayRejectsInvalidResponse(t *testing.T) {
	t.Parallel()

	bad := placedOrder()
	bad.ID = 0
	api := &stubAPI{created: bad}
	gw, err := NewGateway(api, nil)
	require.NoError(t, err)

	_, err = gw.Submit(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))

	unknown := placedOrder()
	unknown.Status = "SHIPPED"
	api.created = unknown
	_, err = gw.Submit(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestShippingInfoString(t *testing.T) {
	t.Parallel()

	info := ShippingInfo{Name: "Lan ", Phone: " 0123", Address: "12 Le Loi, HCMC"}
	assert.Equal(t, "Lan | 0123 | 12 Le Loi, HCMC", info.String())
	require.NoError(t, info.Validate())
}
