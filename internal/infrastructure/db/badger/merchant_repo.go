package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/SatoshiDNC/nostrmarket/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const merchantStoreDir = "merchants"

type merchantRepository struct {
	store *badgerhold.Store
}

func NewMerchantRepository(config ...interface{}) (domain.MerchantRepository, error) {
	baseDir, logger, err := parseConfig(config...)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, merchantStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open merchant store: %s", err)
	}

	return &merchantRepository{store}, nil
}

func (r *merchantRepository) AddMerchant(ctx context.Context, merchant domain.Merchant) error {
	if err := r.store.Upsert(merchant.UserID, merchant); err != nil {
		return err
	}
	return nil
}

func (r *merchantRepository) GetMerchantForUser(
	ctx context.Context, userID string,
) (*domain.Merchant, error) {
	var merchant domain.Merchant
	if err := r.store.Get(userID, &merchant); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) GetMerchantByPubkey(
	ctx context.Context, pubkey string,
) (*domain.Merchant, error) {
	merchants := make([]domain.Merchant, 0, 1)
	if err := r.store.Find(
		&merchants, badgerhold.Where("PublicKey").Eq(pubkey),
	); err != nil {
		return nil, err
	}
	if len(merchants) <= 0 {
		return nil, nil
	}
	return &merchants[0], nil
}

func (r *merchantRepository) Close() {
	// nolint:all
	r.store.Close()
}
