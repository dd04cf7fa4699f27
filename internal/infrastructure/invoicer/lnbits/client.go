package lnbits

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SatoshiDNC/nostrmarket/internal/core/ports"
	"github.com/go-resty/resty/v2"
)

type createInvoiceRequest struct {
	Out      bool                   `json:"out"`
	Amount   int64                  `json:"amount"`
	Unit     string                 `json:"unit"`
	Memo     string                 `json:"memo"`
	WalletID string                 `json:"wallet_id,omitempty"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

type createInvoiceResponse struct {
	PaymentHash    string `json:"payment_hash"`
	PaymentRequest string `json:"payment_request"`
	Bolt11         string `json:"bolt11"`
}

type paymentStatusResponse struct {
	Paid bool `json:"paid"`
}

type client struct {
	http *resty.Client
}

// New creates a ports.InvoiceService backed by an LNbits-compatible
// payments API. The api key must be authorized for the merchant
// wallets invoices are created on.
func New(baseURL, apiKey string) ports.InvoiceService {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("X-Api-Key", apiKey)

	return &client{httpClient}
}

func (c *client) CreateInvoice(
	ctx context.Context, walletID string, amount int64, memo string,
	extra map[string]interface{},
) (*ports.Invoice, error) {
	var result createInvoiceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createInvoiceRequest{
			Out:      false,
			Amount:   amount,
			Unit:     "sat",
			Memo:     memo,
			WalletID: walletID,
			Extra:    extra,
		}).
		SetResult(&result).
		Post("/api/v1/payments")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf(
			"failed to create invoice: %s (%s)", resp.Status(), resp.Body(),
		)
	}

	paymentRequest := result.PaymentRequest
	if len(paymentRequest) <= 0 {
		paymentRequest = result.Bolt11
	}

	return &ports.Invoice{
		PaymentHash:    result.PaymentHash,
		PaymentRequest: paymentRequest,
	}, nil
}

func (c *client) IsInvoicePaid(ctx context.Context, paymentHash string) (bool, error) {
	var result paymentStatusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/api/v1/payments/%s", paymentHash))
	if err != nil {
		return false, err
	}
	if resp.StatusCode() != http.StatusOK {
		return false, fmt.Errorf(
			"failed to check payment %s: %s", paymentHash, resp.Status(),
		)
	}

	return result.Paid, nil
}
