package application

import "errors"

// Rejections: expected, recoverable by the caller.
var (
	ErrOrderAlreadyExists = errors.New("order already exists")
	ErrProductNotFound    = errors.New("product not found")
)

// Configuration faults: unexpected, abort the current operation.
var (
	ErrMerchantNotFound = errors.New("cannot find merchant")
	ErrWalletNotFound   = errors.New("no wallet associated with product")
)
