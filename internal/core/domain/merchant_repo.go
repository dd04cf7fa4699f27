package domain

import "context"

type MerchantRepository interface {
	AddMerchant(ctx context.Context, merchant Merchant) error
	GetMerchantForUser(ctx context.Context, userID string) (*Merchant, error)
	GetMerchantByPubkey(ctx context.Context, pubkey string) (*Merchant, error)
	Close()
}
