package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
)

// Merchant is a selling identity: a secp256k1 keypair plus the user
// account it belongs to. The private key is held as hex, the public
// key in the x-only form Nostr uses.
type Merchant struct {
	UserID     string `json:"user_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

func NewMerchant(userID, privateKey string) (*Merchant, error) {
	if len(privateKey) <= 0 {
		privateKey = nostr.GeneratePrivateKey()
	}
	publicKey, err := nostr.GetPublicKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Merchant{
		UserID:     userID,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}, nil
}

// SignEventHash produces a BIP-340 schnorr signature over the given
// event id hash.
func (m Merchant) SignEventHash(hash []byte) ([]byte, error) {
	buf, err := hex.DecodeString(m.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	privKey, _ := btcec.PrivKeyFromBytes(buf)
	sig, err := schnorr.Sign(privKey, hash)
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// BuildDMEvent wraps content into a NIP-04 encrypted direct message
// addressed to the recipient pubkey, signed by the merchant key.
func (m Merchant) BuildDMEvent(content, recipientPubkey string) (nostr.Event, error) {
	sharedSecret, err := nip04.ComputeSharedSecret(recipientPubkey, m.PrivateKey)
	if err != nil {
		return nostr.Event{}, fmt.Errorf("failed to compute shared secret: %w", err)
	}

	encryptedContent, err := nip04.Encrypt(content, sharedSecret)
	if err != nil {
		return nostr.Event{}, fmt.Errorf("failed to encrypt message for %s: %w", recipientPubkey, err)
	}

	event := nostr.Event{
		PubKey:    m.PublicKey,
		CreatedAt: nostr.Now(),
		Kind:      nostr.KindEncryptedDirectMessage,
		Tags:      nostr.Tags{{"p", recipientPubkey}},
		Content:   encryptedContent,
	}
	if err := event.Sign(m.PrivateKey); err != nil {
		return nostr.Event{}, fmt.Errorf("failed to sign event: %w", err)
	}

	return event, nil
}
