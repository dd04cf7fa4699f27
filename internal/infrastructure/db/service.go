package db

import (
	"fmt"

	"github.com/SatoshiDNC/nostrmarket/internal/core/domain"
	"github.com/SatoshiDNC/nostrmarket/internal/core/ports"
	badgerdb "github.com/SatoshiDNC/nostrmarket/internal/infrastructure/db/badger"
)

var (
	orderStoreTypes = map[string]func(...interface{}) (domain.OrderRepository, error){
		"badger": badgerdb.NewOrderRepository,
	}
	stallStoreTypes = map[string]func(...interface{}) (domain.StallRepository, error){
		"badger": badgerdb.NewStallRepository,
	}
	productStoreTypes = map[string]func(domain.StallRepository, ...interface{}) (domain.ProductRepository, error){
		"badger": badgerdb.NewProductRepository,
	}
	merchantStoreTypes = map[string]func(...interface{}) (domain.MerchantRepository, error){
		"badger": badgerdb.NewMerchantRepository,
	}
)

type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	orderStore    domain.OrderRepository
	productStore  domain.ProductRepository
	stallStore    domain.StallRepository
	merchantStore domain.MerchantRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	orderStoreFactory, ok := orderStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	stallStoreFactory := stallStoreTypes[config.DataStoreType]
	productStoreFactory := productStoreTypes[config.DataStoreType]
	merchantStoreFactory := merchantStoreTypes[config.DataStoreType]

	orderStore, err := orderStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create order store: %w", err)
	}

	stallStore, err := stallStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stall store: %w", err)
	}

	productStore, err := productStoreFactory(stallStore, config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create product store: %w", err)
	}

	merchantStore, err := merchantStoreFactory(config.DataStoreConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create merchant store: %w", err)
	}

	return &service{
		orderStore:    orderStore,
		productStore:  productStore,
		stallStore:    stallStore,
		merchantStore: merchantStore,
	}, nil
}

func (s *service) Orders() domain.OrderRepository {
	return s.orderStore
}

func (s *service) Products() domain.ProductRepository {
	return s.productStore
}

func (s *service) Stalls() domain.StallRepository {
	return s.stallStore
}

func (s *service) Merchants() domain.MerchantRepository {
	return s.merchantStore
}

func (s *service) Close() {
	s.orderStore.Close()
	s.productStore.Close()
	s.stallStore.Close()
	s.merchantStore.Close()
}
