package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderContact struct {
	Nostr string `json:"nostr,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// PartialOrder is a buyer-submitted order request, consumed to produce
// an Order once validated and priced.
type PartialOrder struct {
	ID         string        `json:"id"`
	EventID    string        `json:"event_id,omitempty"`
	PubKey     string        `json:"pubkey"`
	Items      []OrderItem   `json:"items"`
	ShippingID string        `json:"shipping_id,omitempty"`
	Address    string        `json:"address,omitempty"`
	Contact    *OrderContact `json:"contact,omitempty"`
}

func (p PartialOrder) Validate() error {
	if len(p.PubKey) <= 0 {
		return fmt.Errorf("missing buyer pubkey")
	}
	if len(p.Items) <= 0 {
		return fmt.Errorf("missing order items")
	}
	for _, item := range p.Items {
		if len(item.ProductID) <= 0 {
			return fmt.Errorf("missing product id")
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("invalid quantity for product %s", item.ProductID)
		}
	}
	return nil
}

func (p PartialOrder) ProductIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// MissingProducts returns the ids of line items that reference a
// product outside the resolvable set.
func (p PartialOrder) MissingProducts(products []Product) []string {
	resolvable := make(map[string]struct{}, len(products))
	for _, product := range products {
		resolvable[product.ID] = struct{}{}
	}

	missing := make([]string, 0)
	for _, item := range p.Items {
		if _, ok := resolvable[item.ProductID]; !ok {
			missing = append(missing, item.ProductID)
		}
	}
	return missing
}

// Total sums the line-item prices plus the shipping cost of the
// selected zone. The caller must have validated the items first.
func (p PartialOrder) Total(products []Product, shippingCost float64) float64 {
	prices := make(map[string]float64, len(products))
	for _, product := range products {
		prices[product.ID] = product.Price
	}

	total := shippingCost
	for _, item := range p.Items {
		total += prices[item.ProductID] * float64(item.Quantity)
	}
	return total
}

type OrderExtra struct {
	Currency     string  `json:"currency"`
	ShippingCost float64 `json:"shipping_cost"`
}

type Order struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	EventID    string        `json:"event_id,omitempty"`
	PubKey     string        `json:"pubkey"`
	Items      []OrderItem   `json:"items"`
	StallID    string        `json:"stall_id"`
	InvoiceID  string        `json:"invoice_id"`
	Total      float64       `json:"total"`
	Paid       bool          `json:"paid"`
	Shipped    bool          `json:"shipped"`
	ShippingID string        `json:"shipping_id,omitempty"`
	Address    string        `json:"address,omitempty"`
	Contact    *OrderContact `json:"contact,omitempty"`
	Extra      OrderExtra    `json:"extra"`
	CreatedAt  int64         `json:"created_at"`
}

type PaymentOption struct {
	Type string `json:"type"`
	Link string `json:"link"`
}

type PaymentRequest struct {
	ID             string          `json:"id"`
	PaymentOptions []PaymentOption `json:"payment_options"`
}

// OrderStatusUpdate is the payload sent to the buyer as an encrypted
// direct message once the state of an order changes.
type OrderStatusUpdate struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Paid    bool   `json:"paid"`
	Shipped bool   `json:"shipped"`
}

func (u OrderStatusUpdate) Serialize() (string, error) {
	return marshalCompact(u)
}

// marshalCompact renders v as compact JSON with HTML escaping disabled
// so non-ASCII content is preserved verbatim on the wire.
func marshalCompact(v interface{}) (string, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
