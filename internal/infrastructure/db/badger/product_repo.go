package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/SatoshiDNC/nostrmarket/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const (
	productStoreDir = "products"
	stallStoreDir   = "stalls"
)

type productRepository struct {
	store *badgerhold.Store
	// stall lookups resolve the wallet owning a product
	stalls domain.StallRepository
}

func NewProductRepository(
	stalls domain.StallRepository, config ...interface{},
) (domain.ProductRepository, error) {
	baseDir, logger, err := parseConfig(config...)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, productStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open product store: %s", err)
	}

	return &productRepository{store, stalls}, nil
}

func (r *productRepository) AddProduct(ctx context.Context, product domain.Product) error {
	return r.store.Insert(product.ID, product)
}

func (r *productRepository) UpdateProduct(ctx context.Context, product domain.Product) error {
	return r.store.Update(product.ID, product)
}

func (r *productRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := r.store.Get(id, &product); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetProductsByIDs(
	ctx context.Context, userID string, ids []string,
) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		product, err := r.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if product == nil || product.UserID != userID {
			continue
		}
		products = append(products, *product)
	}
	return products, nil
}

func (r *productRepository) GetProductsForStall(
	ctx context.Context, stallID string,
) ([]domain.Product, error) {
	products := make([]domain.Product, 0)
	if err := r.store.Find(
		&products, badgerhold.Where("StallID").Eq(stallID),
	); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) GetWalletForProduct(ctx context.Context, id string) (string, error) {
	product, err := r.GetProduct(ctx, id)
	if err != nil {
		return "", err
	}
	if product == nil {
		return "", nil
	}

	stall, err := r.stalls.GetStall(ctx, product.StallID)
	if err != nil {
		return "", err
	}
	if stall == nil {
		return "", nil
	}
	return stall.WalletID, nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id string) error {
	return r.store.Delete(id, domain.Product{})
}

func (r *productRepository) Close() {
	// nolint:all
	r.store.Close()
}

type stallRepository struct {
	store *badgerhold.Store
}

func NewStallRepository(config ...interface{}) (domain.StallRepository, error) {
	baseDir, logger, err := parseConfig(config...)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, stallStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open stall store: %s", err)
	}

	return &stallRepository{store}, nil
}

func (r *stallRepository) AddStall(ctx context.Context, stall domain.Stall) error {
	return r.store.Insert(stall.ID, stall)
}

func (r *stallRepository) UpdateStall(ctx context.Context, stall domain.Stall) error {
	return r.store.Update(stall.ID, stall)
}

func (r *stallRepository) GetStall(ctx context.Context, id string) (*domain.Stall, error) {
	var stall domain.Stall
	if err := r.store.Get(id, &stall); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stall, nil
}

func (r *stallRepository) GetStallsForUser(ctx context.Context, userID string) ([]domain.Stall, error) {
	stalls := make([]domain.Stall, 0)
	if err := r.store.Find(
		&stalls, badgerhold.Where("UserID").Eq(userID),
	); err != nil {
		return nil, err
	}
	return stalls, nil
}

func (r *stallRepository) DeleteStall(ctx context.Context, id string) error {
	return r.store.Delete(id, domain.Stall{})
}

func (r *stallRepository) Close() {
	// nolint:all
	r.store.Close()
}
