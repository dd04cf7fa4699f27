package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/SatoshiDNC/nostrmarket/internal/core/application"
	"github.com/SatoshiDNC/nostrmarket/internal/core/domain"
	"github.com/SatoshiDNC/nostrmarket/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	testUserID = "user1"
	buyerKey   = "c1b4cb18b8dd0b6b3a6b7a8cfbc04f44e4132d1f8e102ab3c7f1f12e1fbb82e1"
)

type fixture struct {
	svc       application.Service
	orders    *mockOrderRepo
	invoicer  *mockInvoicer
	publisher *mockPublisher
	merchant  *domain.Merchant
	buyerPub  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	merchant, err := domain.NewMerchant(testUserID, nostr.GeneratePrivateKey())
	require.NoError(t, err)

	buyerPub, err := nostr.GetPublicKey(buyerKey)
	require.NoError(t, err)

	stalls := &mockStallRepo{stalls: map[string]domain.Stall{
		"s1": {
			ID:       "s1",
			UserID:   testUserID,
			WalletID: "w1",
			Name:     "my stall",
			Currency: "sat",
			Shipping: []domain.ShippingZone{{ID: "z1", Cost: 150}},
		},
	}}
	products := &mockProductRepo{
		stalls: stalls,
		products: map[string]domain.Product{
			"p1": {ID: "p1", UserID: testUserID, StallID: "s1", Name: "socks", Price: 1000},
			"p2": {ID: "p2", UserID: testUserID, StallID: "s1", Name: "cap", Price: 2500},
		},
	}
	orders := &mockOrderRepo{orders: make(map[string]domain.Order)}
	merchants := &mockMerchantRepo{merchants: map[string]domain.Merchant{
		testUserID: *merchant,
	}}

	invoicer := &mockInvoicer{paid: make(map[string]bool)}
	publisher := &mockPublisher{}

	repoManager := &mockRepoManager{
		orders:    orders,
		products:  products,
		stalls:    stalls,
		merchants: merchants,
	}

	return &fixture{
		svc:       application.NewService(repoManager, invoicer, publisher),
		orders:    orders,
		invoicer:  invoicer,
		publisher: publisher,
		merchant:  merchant,
		buyerPub:  buyerPub,
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("returns_payment_request", func(t *testing.T) {
		f := newFixture(t)

		paymentRequest, err := f.svc.CreateOrder(ctx, testUserID, domain.PartialOrder{
			ID:     "o1",
			PubKey: "abc",
			Items: []domain.OrderItem{
				{ProductID: "p1", Quantity: 1},
				{ProductID: "p2", Quantity: 1},
			},
		})
		require.NoError(t, err)
		require.NotNil(t, paymentRequest)
		require.Equal(t, "o1", paymentRequest.ID)
		require.Len(t, paymentRequest.PaymentOptions, 1)
		require.Equal(t, "ln", paymentRequest.PaymentOptions[0].Type)
		require.NotEmpty(t, paymentRequest.PaymentOptions[0].Link)

		require.Equal(t, 1, f.invoicer.createCalls)
		require.Equal(t, "w1", f.invoicer.lastWalletID)
		require.Equal(t, int64(3500), f.invoicer.lastAmount)
		require.Equal(t, "Order 'o1' for pubkey 'abc'", f.invoicer.lastMemo)
		require.Equal(t, "nostrmarket", f.invoicer.lastExtra["tag"])
		require.Equal(t, "o1", f.invoicer.lastExtra["order_id"])
		require.Equal(t, f.merchant.PublicKey, f.invoicer.lastExtra["merchant_pubkey"])

		order, err := f.orders.GetOrder(ctx, testUserID, "o1")
		require.NoError(t, err)
		require.NotNil(t, order)
		require.Equal(t, float64(3500), order.Total)
		require.Equal(t, "s1", order.StallID)
		require.False(t, order.Paid)
	})

	t.Run("shipping_cost_in_total", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, testUserID, domain.PartialOrder{
			ID:         "o1",
			PubKey:     "abc",
			ShippingID: "z1",
			Items:      []domain.OrderItem{{ProductID: "p1", Quantity: 2}},
		})
		require.NoError(t, err)
		require.Equal(t, int64(2150), f.invoicer.lastAmount)
	})

	t.Run("rejects_duplicate_id", func(t *testing.T) {
		f := newFixture(t)

		data := domain.PartialOrder{
			ID:     "o1",
			PubKey: "abc",
			Items:  []domain.OrderItem{{ProductID: "p1", Quantity: 1}},
		}
		_, err := f.svc.CreateOrder(ctx, testUserID, data)
		require.NoError(t, err)

		paymentRequest, err := f.svc.CreateOrder(ctx, testUserID, data)
		require.ErrorIs(t, err, application.ErrOrderAlreadyExists)
		require.Nil(t, paymentRequest)
		require.Equal(t, 1, f.invoicer.createCalls)
		require.Equal(t, 1, f.orders.count())
	})

	t.Run("rejects_duplicate_event_id", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, testUserID, domain.PartialOrder{
			ID:      "o1",
			EventID: "ev1",
			PubKey:  "abc",
			Items:   []domain.OrderItem{{ProductID: "p1", Quantity: 1}},
		})
		require.NoError(t, err)

		paymentRequest, err := f.svc.CreateOrder(ctx, testUserID, domain.PartialOrder{
			ID:      "o2",
			EventID: "ev1",
			PubKey:  "abc",
			Items:   []domain.OrderItem{{ProductID: "p1", Quantity: 1}},
		})
		require.ErrorIs(t, err, application.ErrOrderAlreadyExists)
		require.Nil(t, paymentRequest)
		require.Equal(t, 1, f.orders.count())
	})

	t.Run("rejects_unknown_product", func(t *testing.T) {
		f := newFixture(t)

		paymentRequest, err := f.svc.CreateOrder(ctx, testUserID, domain.PartialOrder{
			ID:     "o1",
			PubKey: "abc",
			Items: []domain.OrderItem{
				{ProductID: "p1", Quantity: 1},
				{ProductID: "ghost", Quantity: 1},
			},
		})
		require.ErrorIs(t, err, application.ErrProductNotFound)
		require.Nil(t, paymentRequest)
		require.Zero(t, f.invoicer.createCalls)
		require.Zero(t, f.orders.count())
	})

	t.Run("fails_without_merchant", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, "stranger", domain.PartialOrder{
			ID:     "o1",
			PubKey: "abc",
			Items:  []domain.OrderItem{{ProductID: "p1", Quantity: 1}},
		})
		require.ErrorIs(t, err, application.ErrMerchantNotFound)
		require.Zero(t, f.invoicer.createCalls)
	})

	t.Run("generates_id_when_missing", func(t *testing.T) {
		f := newFixture(t)

		paymentRequest, err := f.svc.CreateOrder(ctx, testUserID, domain.PartialOrder{
			PubKey: "abc",
			Items:  []domain.OrderItem{{ProductID: "p1", Quantity: 1}},
		})
		require.NoError(t, err)
		require.NotEmpty(t, paymentRequest.ID)
	})
}

func TestSignAndPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("creation_event", func(t *testing.T) {
		f := newFixture(t)

		stall := domain.Stall{ID: "s1", Name: "my stall", Currency: "sat"}
		event, err := f.svc.SignAndPublish(ctx, testUserID, stall, false)
		require.NoError(t, err)
		require.NotNil(t, event)
		require.Equal(t, domain.KindStall, event.Kind)
		require.Equal(t, f.merchant.PublicKey, event.PubKey)
		require.Equal(t, event.GetID(), event.ID)

		ok, err := event.CheckSignature()
		require.NoError(t, err)
		require.True(t, ok)

		require.Len(t, f.publisher.events(), 1)
	})

	t.Run("deletion_event", func(t *testing.T) {
		f := newFixture(t)

		product := domain.Product{ID: "p1", EventID: "ee01"}
		event, err := f.svc.SignAndPublish(ctx, testUserID, product, true)
		require.NoError(t, err)
		require.Equal(t, nostr.KindDeletion, event.Kind)
	})

	t.Run("fails_without_merchant", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.SignAndPublish(ctx, "stranger", domain.Stall{ID: "s1"}, false)
		require.ErrorIs(t, err, application.ErrMerchantNotFound)
		require.Empty(t, f.publisher.events())
	})
}

func TestHandleOrderPaid(t *testing.T) {
	ctx := context.Background()

	newPaidFixture := func(t *testing.T) *fixture {
		f := newFixture(t)
		_, err := f.svc.CreateOrder(ctx, testUserID, domain.PartialOrder{
			ID:     "o1",
			PubKey: f.buyerPub,
			Items:  []domain.OrderItem{{ProductID: "p1", Quantity: 1}},
		})
		require.NoError(t, err)
		return f
	}

	t.Run("marks_paid_and_notifies", func(t *testing.T) {
		f := newPaidFixture(t)

		f.svc.HandleOrderPaid(ctx, "o1", f.merchant.PublicKey)

		order, err := f.orders.GetOrder(ctx, testUserID, "o1")
		require.NoError(t, err)
		require.True(t, order.Paid)
		require.False(t, order.Shipped)

		events := f.publisher.events()
		require.Len(t, events, 1)
		dm := events[0]
		require.Equal(t, nostr.KindEncryptedDirectMessage, dm.Kind)

		pTag := dm.Tags.GetFirst([]string{"p"})
		require.NotNil(t, pTag)
		require.Equal(t, f.buyerPub, pTag.Value())

		sharedSecret, err := nip04.ComputeSharedSecret(f.merchant.PublicKey, buyerKey)
		require.NoError(t, err)
		decrypted, err := nip04.Decrypt(dm.Content, sharedSecret)
		require.NoError(t, err)
		require.Equal(
			t,
			`{"id":"o1","message":"Payment received.","paid":true,"shipped":false}`,
			decrypted,
		)
	})

	t.Run("already_paid_does_not_fail", func(t *testing.T) {
		f := newPaidFixture(t)

		f.svc.HandleOrderPaid(ctx, "o1", f.merchant.PublicKey)
		f.svc.HandleOrderPaid(ctx, "o1", f.merchant.PublicKey)

		order, err := f.orders.GetOrder(ctx, testUserID, "o1")
		require.NoError(t, err)
		require.True(t, order.Paid)
	})

	t.Run("storage_failure_is_swallowed", func(t *testing.T) {
		f := newPaidFixture(t)
		f.orders.setPaidErr = errors.New("storage offline")

		hook := logtest.NewGlobal()
		defer hook.Reset()

		f.svc.HandleOrderPaid(ctx, "o1", f.merchant.PublicKey)

		require.Empty(t, f.publisher.events())
		order, err := f.orders.GetOrder(ctx, testUserID, "o1")
		require.NoError(t, err)
		require.False(t, order.Paid)

		require.NotEmpty(t, hook.Entries)
		require.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	})

	t.Run("unknown_order_is_swallowed", func(t *testing.T) {
		f := newFixture(t)

		hook := logtest.NewGlobal()
		defer hook.Reset()

		f.svc.HandleOrderPaid(ctx, "ghost", f.merchant.PublicKey)

		require.Empty(t, f.publisher.events())
		require.NotEmpty(t, hook.Entries)
		require.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	})
}

func TestCheckPendingOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("settles_paid_invoices", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, testUserID, domain.PartialOrder{
			ID:     "o1",
			PubKey: f.buyerPub,
			Items:  []domain.OrderItem{{ProductID: "p1", Quantity: 1}},
		})
		require.NoError(t, err)

		f.invoicer.paid[f.invoicer.lastHash] = true
		f.svc.CheckPendingOrders(ctx)

		order, err := f.orders.GetOrder(ctx, testUserID, "o1")
		require.NoError(t, err)
		require.True(t, order.Paid)
		require.Len(t, f.publisher.events(), 1)
	})

	t.Run("leaves_unpaid_invoices", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, testUserID, domain.PartialOrder{
			ID:     "o1",
			PubKey: f.buyerPub,
			Items:  []domain.OrderItem{{ProductID: "p1", Quantity: 1}},
		})
		require.NoError(t, err)

		f.svc.CheckPendingOrders(ctx)

		order, err := f.orders.GetOrder(ctx, testUserID, "o1")
		require.NoError(t, err)
		require.False(t, order.Paid)
		require.Empty(t, f.publisher.events())
	})
}

// mocks

type mockRepoManager struct {
	orders    *mockOrderRepo
	products  *mockProductRepo
	stalls    *mockStallRepo
	merchants *mockMerchantRepo
}

func (m *mockRepoManager) Orders() domain.OrderRepository       { return m.orders }
func (m *mockRepoManager) Products() domain.ProductRepository   { return m.products }
func (m *mockRepoManager) Stalls() domain.StallRepository       { return m.stalls }
func (m *mockRepoManager) Merchants() domain.MerchantRepository { return m.merchants }
func (m *mockRepoManager) Close()                               {}

type mockOrderRepo struct {
	lock       sync.Mutex
	orders     map[string]domain.Order
	setPaidErr error
}

func orderKey(userID, id string) string { return userID + "/" + id }

func (m *mockOrderRepo) AddOrder(_ context.Context, order domain.Order) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	key := orderKey(order.UserID, order.ID)
	if _, ok := m.orders[key]; ok {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	m.orders[key] = order
	return nil
}

func (m *mockOrderRepo) GetOrder(_ context.Context, userID, id string) (*domain.Order, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if order, ok := m.orders[orderKey(userID, id)]; ok {
		return &order, nil
	}
	return nil, nil
}

func (m *mockOrderRepo) GetOrderByEventID(
	_ context.Context, userID, eventID string,
) (*domain.Order, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, order := range m.orders {
		if order.UserID == userID && order.EventID == eventID {
			return &order, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) GetOrders(_ context.Context) ([]domain.Order, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	orders := make([]domain.Order, 0, len(m.orders))
	for _, order := range m.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

func (m *mockOrderRepo) GetOrdersForUser(_ context.Context, userID string) ([]domain.Order, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	orders := make([]domain.Order, 0)
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) GetUnpaidOrders(_ context.Context) ([]domain.Order, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	orders := make([]domain.Order, 0)
	for _, order := range m.orders {
		if !order.Paid {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) SetOrderPaid(
	_ context.Context, id string, paid bool,
) (*domain.Order, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.setPaidErr != nil {
		return nil, m.setPaidErr
	}
	for key, order := range m.orders {
		if order.ID == id {
			order.Paid = paid
			m.orders[key] = order
			return &order, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) Close() {}

func (m *mockOrderRepo) count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.orders)
}

type mockProductRepo struct {
	products map[string]domain.Product
	stalls   *mockStallRepo
}

func (m *mockProductRepo) AddProduct(_ context.Context, product domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepo) UpdateProduct(_ context.Context, product domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepo) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if product, ok := m.products[id]; ok {
		return &product, nil
	}
	return nil, nil
}

func (m *mockProductRepo) GetProductsByIDs(
	_ context.Context, userID string, ids []string,
) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := m.products[id]; ok && product.UserID == userID {
			products = append(products, product)
		}
	}
	return products, nil
}

func (m *mockProductRepo) GetProductsForStall(
	_ context.Context, stallID string,
) ([]domain.Product, error) {
	products := make([]domain.Product, 0)
	for _, product := range m.products {
		if product.StallID == stallID {
			products = append(products, product)
		}
	}
	return products, nil
}

func (m *mockProductRepo) GetWalletForProduct(ctx context.Context, id string) (string, error) {
	product, err := m.GetProduct(ctx, id)
	if err != nil || product == nil {
		return "", err
	}
	stall, err := m.stalls.GetStall(ctx, product.StallID)
	if err != nil || stall == nil {
		return "", err
	}
	return stall.WalletID, nil
}

func (m *mockProductRepo) DeleteProduct(_ context.Context, id string) error {
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) Close() {}

type mockStallRepo struct {
	stalls map[string]domain.Stall
}

func (m *mockStallRepo) AddStall(_ context.Context, stall domain.Stall) error {
	m.stalls[stall.ID] = stall
	return nil
}

func (m *mockStallRepo) UpdateStall(_ context.Context, stall domain.Stall) error {
	m.stalls[stall.ID] = stall
	return nil
}

func (m *mockStallRepo) GetStall(_ context.Context, id string) (*domain.Stall, error) {
	if stall, ok := m.stalls[id]; ok {
		return &stall, nil
	}
	return nil, nil
}

func (m *mockStallRepo) GetStallsForUser(_ context.Context, userID string) ([]domain.Stall, error) {
	stalls := make([]domain.Stall, 0)
	for _, stall := range m.stalls {
		if stall.UserID == userID {
			stalls = append(stalls, stall)
		}
	}
	return stalls, nil
}

func (m *mockStallRepo) DeleteStall(_ context.Context, id string) error {
	delete(m.stalls, id)
	return nil
}

func (m *mockStallRepo) Close() {}

type mockMerchantRepo struct {
	merchants map[string]domain.Merchant
}

func (m *mockMerchantRepo) AddMerchant(_ context.Context, merchant domain.Merchant) error {
	m.merchants[merchant.UserID] = merchant
	return nil
}

func (m *mockMerchantRepo) GetMerchantForUser(
	_ context.Context, userID string,
) (*domain.Merchant, error) {
	if merchant, ok := m.merchants[userID]; ok {
		return &merchant, nil
	}
	return nil, nil
}

func (m *mockMerchantRepo) GetMerchantByPubkey(
	_ context.Context, pubkey string,
) (*domain.Merchant, error) {
	for _, merchant := range m.merchants {
		if merchant.PublicKey == pubkey {
			return &merchant, nil
		}
	}
	return nil, nil
}

func (m *mockMerchantRepo) Close() {}

type mockInvoicer struct {
	createCalls  int
	lastWalletID string
	lastAmount   int64
	lastMemo     string
	lastExtra    map[string]interface{}
	lastHash     string
	paid         map[string]bool
}

func (m *mockInvoicer) CreateInvoice(
	_ context.Context, walletID string, amount int64, memo string,
	extra map[string]interface{},
) (*ports.Invoice, error) {
	m.createCalls++
	m.lastWalletID = walletID
	m.lastAmount = amount
	m.lastMemo = memo
	m.lastExtra = extra
	m.lastHash = fmt.Sprintf("hash-%d", m.createCalls)
	return &ports.Invoice{
		PaymentHash:    m.lastHash,
		PaymentRequest: fmt.Sprintf("lnbc%d", m.createCalls),
	}, nil
}

func (m *mockInvoicer) IsInvoicePaid(_ context.Context, paymentHash string) (bool, error) {
	return m.paid[paymentHash], nil
}

type mockPublisher struct {
	lock      sync.Mutex
	published []nostr.Event
}

func (m *mockPublisher) PublishEvent(_ context.Context, event nostr.Event) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.published = append(m.published, event)
}

func (m *mockPublisher) events() []nostr.Event {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]nostr.Event{}, m.published...)
}
