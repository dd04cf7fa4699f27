package application

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/SatoshiDNC/nostrmarket/internal/core/domain"
	"github.com/SatoshiDNC/nostrmarket/internal/core/ports"
	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

// invoiceTag marks invoices created by this service so the payment
// service can route settlement callbacks back to this domain.
const invoiceTag = "nostrmarket"

type Service interface {
	CreateOrder(
		ctx context.Context, userID string, data domain.PartialOrder,
	) (*domain.PaymentRequest, error)
	SignAndPublish(
		ctx context.Context, userID string, target domain.Nostrable, delete bool,
	) (*nostr.Event, error)
	HandleOrderPaid(ctx context.Context, orderID, merchantPubkey string)
	CheckPendingOrders(ctx context.Context)

	CreateMerchant(ctx context.Context, userID, privateKey string) (*domain.Merchant, error)
	UpsertStall(ctx context.Context, userID string, stall domain.Stall) (*nostr.Event, error)
	DeleteStall(ctx context.Context, userID, stallID string) (*nostr.Event, error)
	UpsertProduct(ctx context.Context, userID string, product domain.Product) (*nostr.Event, error)
	DeleteProduct(ctx context.Context, userID, productID string) (*nostr.Event, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

type service struct {
	repoManager ports.RepoManager
	invoicer    ports.InvoiceService
	publisher   ports.Publisher
}

func NewService(
	repoManager ports.RepoManager,
	invoicer ports.InvoiceService,
	publisher ports.Publisher,
) Service {
	return &service{repoManager, invoicer, publisher}
}

// CreateOrder validates the proposed order against the catalog,
// requests a Lightning invoice for the total amount and persists the
// resulting order. Duplicate orders and unknown product references
// are rejected before any invoice is requested.
func (s *service) CreateOrder(
	ctx context.Context, userID string, data domain.PartialOrder,
) (*domain.PaymentRequest, error) {
	if len(data.ID) <= 0 {
		data.ID = uuid.NewString()
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repoManager.Orders().GetOrder(ctx, userID, data.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderAlreadyExists, data.ID)
	}
	if len(data.EventID) > 0 {
		existing, err := s.repoManager.Orders().GetOrderByEventID(ctx, userID, data.EventID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: event %s", ErrOrderAlreadyExists, data.EventID)
		}
	}

	merchant, err := s.repoManager.Merchants().GetMerchantForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}

	products, err := s.repoManager.Products().GetProductsByIDs(ctx, userID, data.ProductIDs())
	if err != nil {
		return nil, err
	}
	if missing := data.MissingProducts(products); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, strings.Join(missing, ", "))
	}

	stall, err := s.repoManager.Stalls().GetStall(ctx, products[0].StallID)
	if err != nil {
		return nil, err
	}

	extra := domain.OrderExtra{Currency: "sat"}
	if stall != nil {
		extra = domain.OrderExtra{
			Currency:     stall.Currency,
			ShippingCost: stall.ShippingCost(data.ShippingID),
		}
	}
	total := data.Total(products, extra.ShippingCost)

	walletID, err := s.repoManager.Products().GetWalletForProduct(ctx, data.Items[0].ProductID)
	if err != nil {
		return nil, err
	}
	if len(walletID) <= 0 {
		return nil, fmt.Errorf("%w: order %s", ErrWalletNotFound, data.ID)
	}

	invoice, err := s.invoicer.CreateInvoice(
		ctx, walletID, int64(math.Round(total)),
		fmt.Sprintf("Order '%s' for pubkey '%s'", data.ID, data.PubKey),
		map[string]interface{}{
			"tag":             invoiceTag,
			"order_id":        data.ID,
			"merchant_pubkey": merchant.PublicKey,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice for order %s: %w", data.ID, err)
	}

	order := domain.Order{
		ID:         data.ID,
		UserID:     userID,
		EventID:    data.EventID,
		PubKey:     data.PubKey,
		Items:      data.Items,
		StallID:    products[0].StallID,
		InvoiceID:  invoice.PaymentHash,
		Total:      total,
		ShippingID: data.ShippingID,
		Address:    data.Address,
		Contact:    data.Contact,
		Extra:      extra,
		CreatedAt:  time.Now().Unix(),
	}
	if err := s.repoManager.Orders().AddOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order %s: %w", data.ID, err)
	}

	return &domain.PaymentRequest{
		ID: data.ID,
		PaymentOptions: []domain.PaymentOption{
			{Type: "ln", Link: invoice.PaymentRequest},
		},
	}, nil
}

// SignAndPublish builds the creation or deletion event for the target,
// signs its content-derived id with the merchant key and hands it to
// the transport. The signed event is returned for inspection.
func (s *service) SignAndPublish(
	ctx context.Context, userID string, target domain.Nostrable, delete bool,
) (*nostr.Event, error) {
	merchant, err := s.repoManager.Merchants().GetMerchantForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}

	event := target.ToNostrEvent(merchant.PublicKey)
	if delete {
		event = target.ToNostrDeleteEvent(merchant.PublicKey)
	}

	event.ID = event.GetID()
	hash, err := hex.DecodeString(event.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid event id: %w", err)
	}
	sig, err := merchant.SignEventHash(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign event %s: %w", event.ID, err)
	}
	event.Sig = hex.EncodeToString(sig)

	s.publisher.PublishEvent(ctx, event)

	return &event, nil
}

// HandleOrderPaid is invoked by the payment-confirmation trigger once
// an invoice settles. The payment itself is already final, so every
// failure past this point is logged and swallowed: a lost notification
// must never surface to the payment pipeline.
func (s *service) HandleOrderPaid(ctx context.Context, orderID, merchantPubkey string) {
	if err := s.notifyOrderPaid(ctx, orderID, merchantPubkey); err != nil {
		log.WithError(err).Warnf("failed to notify buyer for paid order %s", orderID)
	}
}

func (s *service) notifyOrderPaid(ctx context.Context, orderID, merchantPubkey string) error {
	order, err := s.repoManager.Orders().SetOrderPaid(ctx, orderID, true)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("paid order cannot be found, order id: %s", orderID)
	}

	merchant, err := s.repoManager.Merchants().GetMerchantByPubkey(ctx, merchantPubkey)
	if err != nil {
		return err
	}
	if merchant == nil {
		return fmt.Errorf("%w: pubkey %s", ErrMerchantNotFound, merchantPubkey)
	}

	orderStatus := domain.OrderStatusUpdate{
		ID:      orderID,
		Message: "Payment received.",
		Paid:    true,
		Shipped: order.Shipped,
	}
	dmContent, err := orderStatus.Serialize()
	if err != nil {
		return err
	}

	dmEvent, err := merchant.BuildDMEvent(dmContent, order.PubKey)
	if err != nil {
		return err
	}
	s.publisher.PublishEvent(ctx, dmEvent)

	return nil
}

// CheckPendingOrders settles orders whose invoice was paid without a
// settlement callback reaching this service.
func (s *service) CheckPendingOrders(ctx context.Context) {
	orders, err := s.repoManager.Orders().GetUnpaidOrders(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to list unpaid orders")
		return
	}

	for _, order := range orders {
		if len(order.InvoiceID) <= 0 {
			continue
		}
		paid, err := s.invoicer.IsInvoicePaid(ctx, order.InvoiceID)
		if err != nil {
			log.WithError(err).Warnf("failed to check invoice for order %s", order.ID)
			continue
		}
		if !paid {
			continue
		}

		merchant, err := s.repoManager.Merchants().GetMerchantForUser(ctx, order.UserID)
		if err != nil || merchant == nil {
			log.Warnf("no merchant for user %s, skipping paid order %s", order.UserID, order.ID)
			continue
		}

		log.Infof("invoice settled for order %s", order.ID)
		s.HandleOrderPaid(ctx, order.ID, merchant.PublicKey)
	}
}

func (s *service) CreateMerchant(
	ctx context.Context, userID, privateKey string,
) (*domain.Merchant, error) {
	merchant, err := domain.NewMerchant(userID, privateKey)
	if err != nil {
		return nil, err
	}
	if err := s.repoManager.Merchants().AddMerchant(ctx, *merchant); err != nil {
		return nil, err
	}
	return merchant, nil
}

func (s *service) UpsertStall(
	ctx context.Context, userID string, stall domain.Stall,
) (*nostr.Event, error) {
	stall.UserID = userID

	existing, err := s.repoManager.Stalls().GetStall(ctx, stall.ID)
	if err != nil {
		return nil, err
	}

	event, err := s.SignAndPublish(ctx, userID, stall, false)
	if err != nil {
		return nil, err
	}
	stall.EventID = event.ID

	if existing != nil {
		err = s.repoManager.Stalls().UpdateStall(ctx, stall)
	} else {
		err = s.repoManager.Stalls().AddStall(ctx, stall)
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) DeleteStall(ctx context.Context, userID, stallID string) (*nostr.Event, error) {
	stall, err := s.repoManager.Stalls().GetStall(ctx, stallID)
	if err != nil {
		return nil, err
	}
	if stall == nil {
		return nil, fmt.Errorf("stall not found: %s", stallID)
	}

	event, err := s.SignAndPublish(ctx, userID, *stall, true)
	if err != nil {
		return nil, err
	}
	if err := s.repoManager.Stalls().DeleteStall(ctx, stallID); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) UpsertProduct(
	ctx context.Context, userID string, product domain.Product,
) (*nostr.Event, error) {
	product.UserID = userID

	stall, err := s.repoManager.Stalls().GetStall(ctx, product.StallID)
	if err != nil {
		return nil, err
	}
	if stall == nil {
		return nil, fmt.Errorf("stall not found: %s", product.StallID)
	}

	existing, err := s.repoManager.Products().GetProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	event, err := s.SignAndPublish(ctx, userID, product, false)
	if err != nil {
		return nil, err
	}
	product.EventID = event.ID

	if existing != nil {
		err = s.repoManager.Products().UpdateProduct(ctx, product)
	} else {
		err = s.repoManager.Products().AddProduct(ctx, product)
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) DeleteProduct(ctx context.Context, userID, productID string) (*nostr.Event, error) {
	product, err := s.repoManager.Products().GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	event, err := s.SignAndPublish(ctx, userID, *product, true)
	if err != nil {
		return nil, err
	}
	if err := s.repoManager.Products().DeleteProduct(ctx, productID); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repoManager.Orders().GetOrders(ctx)
}
