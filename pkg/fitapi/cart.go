package fitapi

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, "get cart", http.MethodGet, fmt.Sprintf("/api/cart/%d", userID), nil, &cart, requestOptions{}); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddCartItem adds quantity to the server-side line and returns the resulting line.
func (c *Client) AddCartItem(ctx context.Context, req CartItemRequest) (*CartLine, error) {
	var line CartLine
	if err := c.do(ctx, "add cart item", http.MethodPost, "/api/cart/add", req, &line, requestOptions{}); err != nil {
		return nil, err
	}
	return &line, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, req CartItemRequest) (*CartLine, error) {
	var line CartLine
	if err := c.do(ctx, "update cart item", http.MethodPut, "/api/cart/update", req, &line, requestOptions{}); err != nil {
		return nil, err
	}
	return &line, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	path := fmt.Sprintf("/api/cart/remove/%d/%d", userID, productID)
	return c.do(ctx, "remove cart item", http.MethodDelete, path, nil, nil, requestOptions{})
}

func (c *Client) ClearCart(ctx context.Context, userID int64) error {
	return c.do(ctx, "clear cart", http.MethodDelete, fmt.Sprintf("/api/cart/clear/%d", userID), nil, nil, requestOptions{})
}
