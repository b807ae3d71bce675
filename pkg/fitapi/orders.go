package fitapi

import (
	"context"
	"fmt"
	"net/http"
)

// CreateOrder posts a new order. The idempotency key lets the service collapse
// a user-initiated re-submission of the same draft.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (*Order, error) {
	var order Order
	if err := c.do(ctx, "create order", http.MethodPost, "/api/orders", req, &order, requestOptions{idempotencyKey: idempotencyKey}); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByUser returns every order the user has placed, newest first as
// the service orders them.
func (c *Client) ListOrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	var orders []Order
	path := fmt.Sprintf("/api/orders/user/%d", userID)
	if err := c.do(ctx, "list orders", http.MethodGet, path, nil, &orders, requestOptions{}); err != nil {
		return nil, err
	}
	return orders, nil
}
