package orders

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/angelmondragon/fitconnect-client/pkg/fitapi"
	"github.com/angelmondragon/fitconnect-client/pkg/logger"
	"github.com/google/uuid"
)

type orderAPI interface {
	CreateOrder(ctx context.Context, req fitapi.CreateOrderRequest, idempotencyKey string) (*fitapi.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]fitapi.Order, error)
}

// Gateway turns a checkout draft into exactly one order-creation call.
// It never retries: a repeated attempt must come from the user.
type Gateway struct {
	api  orderAPI
	logg *logger.Logger
}

func NewGateway(api orderAPI, logg *logger.Logger) (*Gateway, error) {
	if api == nil {
		return nil, fmt.Errorf("order api required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Gateway{api: api, logg: logg}, nil
}

// Submit validates the input locally, places the order and validates the
// service's answer.
func (g *Gateway) Submit(ctx context.Context, in SubmitInput) (*Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	key := in.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	ctx = g.logg.WithFields(g.logg.WithUserID(ctx, in.UserID), map[string]any{
		"payment_method":  in.Payment.String(),
		"idempotency_key": key,
		"lines":           len(in.Lines),
	})

	created, err := g.api.CreateOrder(ctx, in.request(), key)
	if err != nil {
		mapped := mapRemoteError(err)
		g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "order submission failed")
		return nil, mapped
	}
	if created == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service returned an empty response")
	}

	order, err := fromAPI(*created)
	if err != nil {
		g.logg.Error(ctx, "order service returned an invalid order", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order service returned an invalid order")
	}

	g.logg.Info(g.logg.WithOrderID(ctx, order.ID), "order placed")
	return &order, nil
}

// mapRemoteError folds remote failures into the two outcomes the user can act
// on: sign in again, or try again later.
func mapRemoteError(err error) error {
	switch {
	case pkgerrors.Is(err, pkgerrors.CodeUnauthorized), pkgerrors.Is(err, pkgerrors.CodeForbidden):
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "please sign in again")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not place your order, please try again later")
	}
}
