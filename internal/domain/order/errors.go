package order

import "errors"

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrItemNotFound            = errors.New("order item not found")
	ErrNoItems                 = errors.New("an order needs at least one item")
	ErrInvalidOrderType        = errors.New("invalid order type")
	ErrInvalidPriority         = errors.New("invalid order priority")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrOrderClosed             = errors.New("order is already completed or cancelled")
	ErrItemClosed              = errors.New("order item is already resulted or cancelled")
)
