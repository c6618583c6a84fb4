package payments

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrMissingCustomer   = errors.New("customer name, phone and address are required")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrNotRefundable     = errors.New("only paid orders can be refunded")
	ErrGateway           = errors.New("payment gateway error")
)
