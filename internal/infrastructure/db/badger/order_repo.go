package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/SatoshiDNC/nostrmarket/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const orderStoreDir = "orders"

type orderRepository struct {
	store *badgerhold.Store
}

func NewOrderRepository(config ...interface{}) (domain.OrderRepository, error) {
	baseDir, logger, err := parseConfig(config...)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, orderStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open order store: %s", err)
	}

	return &orderRepository{store}, nil
}

func (r *orderRepository) AddOrder(ctx context.Context, order domain.Order) error {
	if err := r.store.Insert(orderKey(order.UserID, order.ID), order); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("order %s already exists", order.ID)
		}
		return err
	}
	return nil
}

func (r *orderRepository) GetOrder(ctx context.Context, userID, id string) (*domain.Order, error) {
	var order domain.Order
	if err := r.store.Get(orderKey(userID, id), &order); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetOrderByEventID(
	ctx context.Context, userID, eventID string,
) (*domain.Order, error) {
	query := badgerhold.Where("UserID").Eq(userID).And("EventID").Eq(eventID)
	orders, err := r.findOrders(query)
	if err != nil {
		return nil, err
	}
	if len(orders) <= 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func (r *orderRepository) GetOrders(ctx context.Context) ([]domain.Order, error) {
	return r.findOrders(&badgerhold.Query{})
}

func (r *orderRepository) GetOrdersForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.findOrders(badgerhold.Where("UserID").Eq(userID))
}

func (r *orderRepository) GetUnpaidOrders(ctx context.Context) ([]domain.Order, error) {
	return r.findOrders(badgerhold.Where("Paid").Eq(false))
}

func (r *orderRepository) SetOrderPaid(
	ctx context.Context, id string, paid bool,
) (*domain.Order, error) {
	orders, err := r.findOrders(badgerhold.Where("ID").Eq(id))
	if err != nil {
		return nil, err
	}
	if len(orders) <= 0 {
		return nil, nil
	}

	order := orders[0]
	if order.Paid == paid {
		return &order, nil
	}

	order.Paid = paid
	if err := r.updateOrder(order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *orderRepository) findOrders(query *badgerhold.Query) ([]domain.Order, error) {
	orders := make([]domain.Order, 0)
	if err := r.store.Find(&orders, query); err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt > orders[j].CreatedAt
	})
	return orders, nil
}

func (r *orderRepository) updateOrder(order domain.Order) error {
	updateFn := func() error {
		return r.store.Update(orderKey(order.UserID, order.ID), order)
	}

	err := updateFn()
	attempts := 1
	for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
		err = updateFn()
		attempts++
	}
	return err
}

func orderKey(userID, id string) string {
	return fmt.Sprintf("%s/%s", userID, id)
}
