package domain

import (
	"github.com/nbd-wtf/go-nostr"
)

// NIP-15 marketplace event kinds. Stalls and products are
// parameterized replaceable events addressed by their "d" tag.
const (
	KindStall   = 30017
	KindProduct = 30018
)

// Nostrable is implemented by the closed set of domain types that can
// be represented as a signable Nostr event. The returned events carry
// the author pubkey but no id or signature; signing is the publisher's
// job.
type Nostrable interface {
	ToNostrEvent(pubkey string) nostr.Event
	ToNostrDeleteEvent(pubkey string) nostr.Event
}

type Product struct {
	ID          string   `json:"id"`
	UserID      string   `json:"-"`
	StallID     string   `json:"stall_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
	Price       float64  `json:"price"`
	Quantity    int      `json:"quantity"`
	Categories  []string `json:"categories,omitempty"`
	// EventID is the id of the last published creation event, kept so
	// a deletion can reference it.
	EventID string `json:"-"`
}

func (p Product) ToNostrEvent(pubkey string) nostr.Event {
	content, _ := marshalCompact(p)
	tags := nostr.Tags{{"d", p.ID}}
	for _, category := range p.Categories {
		tags = append(tags, nostr.Tag{"t", category})
	}
	return nostr.Event{
		PubKey:    pubkey,
		CreatedAt: nostr.Now(),
		Kind:      KindProduct,
		Tags:      tags,
		Content:   content,
	}
}

func (p Product) ToNostrDeleteEvent(pubkey string) nostr.Event {
	return nostr.Event{
		PubKey:    pubkey,
		CreatedAt: nostr.Now(),
		Kind:      nostr.KindDeletion,
		Tags:      nostr.Tags{{"e", p.EventID}},
		Content:   "Product is deleted",
	}
}

type ShippingZone struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Cost      float64  `json:"cost"`
	Countries []string `json:"countries,omitempty"`
}

// Stall is a merchant storefront grouping a set of products. The
// associated wallet receives the payments for its products.
type Stall struct {
	ID          string         `json:"id"`
	UserID      string         `json:"-"`
	WalletID    string         `json:"-"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Currency    string         `json:"currency"`
	Shipping    []ShippingZone `json:"shipping,omitempty"`
	EventID     string         `json:"-"`
}

// ShippingCost returns the cost of the zone with the given id, or zero
// when the stall does not serve it.
func (s Stall) ShippingCost(zoneID string) float64 {
	for _, zone := range s.Shipping {
		if zone.ID == zoneID {
			return zone.Cost
		}
	}
	return 0
}

func (s Stall) ToNostrEvent(pubkey string) nostr.Event {
	content, _ := marshalCompact(s)
	return nostr.Event{
		PubKey:    pubkey,
		CreatedAt: nostr.Now(),
		Kind:      KindStall,
		Tags:      nostr.Tags{{"d", s.ID}},
		Content:   content,
	}
}

func (s Stall) ToNostrDeleteEvent(pubkey string) nostr.Event {
	return nostr.Event{
		PubKey:    pubkey,
		CreatedAt: nostr.Now(),
		Kind:      nostr.KindDeletion,
		Tags:      nostr.Tags{{"e", s.EventID}},
		Content:   "Stall is deleted",
	}
}
