package ports

import "context"

// Invoice is a Lightning payment request plus the hash used to detect
// settlement.
type Invoice struct {
	PaymentHash    string
	PaymentRequest string
}

// InvoiceService is the external payment service owning the invoice
// lifecycle. CreateInvoice is not idempotent: calling it twice for the
// same order produces two pending invoices.
type InvoiceService interface {
	CreateInvoice(
		ctx context.Context, walletID string, amount int64, memo string,
		extra map[string]interface{},
	) (*Invoice, error)
	IsInvoicePaid(ctx context.Context, paymentHash string) (bool, error)
}
