package app

import "github.com/shopspring/decimal"

// PaymentRequest settles a client invoice in full.
type PaymentRequest struct {
	OrderRef string
	Method   string
	Note     string
}

// PartialPaymentRequest sets the total received on a client invoice.
type PartialPaymentRequest struct {
	OrderRef     string
	NewTotalPaid decimal.Decimal
	Method       string
	Note         string
}

// ClientReturnRequest takes goods back; OrderRef is optional.
type ClientReturnRequest struct {
	ClientID  int
	OrderRef  string
	ProductID int
	Quantity  decimal.Decimal
	Note      string
}
