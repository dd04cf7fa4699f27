package domain

import "context"

// ProductRepository stores the merchant catalog. GetProductsByIDs
// returns only the products resolvable for the given user; unknown ids
// are silently left out so the caller can reject the order.
type ProductRepository interface {
	AddProduct(ctx context.Context, product Product) error
	UpdateProduct(ctx context.Context, product Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProductsByIDs(ctx context.Context, userID string, ids []string) ([]Product, error)
	GetProductsForStall(ctx context.Context, stallID string) ([]Product, error)
	// GetWalletForProduct resolves the payment-receiving wallet of the
	// stall owning the product. Empty when none is associated.
	GetWalletForProduct(ctx context.Context, id string) (string, error)
	DeleteProduct(ctx context.Context, id string) error
	Close()
}

type StallRepository interface {
	AddStall(ctx context.Context, stall Stall) error
	UpdateStall(ctx context.Context, stall Stall) error
	GetStall(ctx context.Context, id string) (*Stall, error)
	GetStallsForUser(ctx context.Context, userID string) ([]Stall, error)
	DeleteStall(ctx context.Context, id string) error
	Close()
}
