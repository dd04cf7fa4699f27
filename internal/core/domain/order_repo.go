package domain

import "context"

// OrderRepository stores orders keyed by (user, order id) with a
// secondary lookup by originating Nostr event id. Lookups return a nil
// order, not an error, when no order matches.
type OrderRepository interface {
	AddOrder(ctx context.Context, order Order) error
	GetOrder(ctx context.Context, userID, id string) (*Order, error)
	GetOrderByEventID(ctx context.Context, userID, eventID string) (*Order, error)
	GetOrders(ctx context.Context) ([]Order, error)
	GetOrdersForUser(ctx context.Context, userID string) ([]Order, error)
	GetUnpaidOrders(ctx context.Context) ([]Order, error)
	// SetOrderPaid is idempotent: marking an already-paid order paid
	// again returns the order unchanged.
	SetOrderPaid(ctx context.Context, id string, paid bool) (*Order, error)
	Close()
}
