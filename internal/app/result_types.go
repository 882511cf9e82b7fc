package app

import (
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

// OrderResult is returned by order lifecycle operations.
type OrderResult struct {
	Order *core.Order `json:"order"`
}

// OrderListResult is returned by ListOrders and TodaysOrders.
type OrderListResult struct {
	Orders []core.Order `json:"orders"`
}

// ConfirmResult lists the invoice numbers issued by a confirmation.
type ConfirmResult struct {
	Invoices []core.ConfirmedInvoice `json:"invoices"`
}

type ProductListResult struct {
	Products []core.Product `json:"products"`
}

type ClientListResult struct {
	Clients []core.Client `json:"clients"`
}

type AddressListResult struct {
	ClientID  int            `json:"client_id"`
	Addresses []core.Address `json:"addresses"`
}

type SupplierListResult struct {
	Suppliers []core.Supplier `json:"suppliers"`
}

// ClientPaymentResult carries the written row (nil for a no-op) and the
// invoice state after the event.
type ClientPaymentResult struct {
	Payment *core.ClientPayment `json:"payment"`
	State   *core.PaymentState  `json:"state"`
}

type SupplierPaymentResult struct {
	Payment *core.SupplierPayment `json:"payment"`
	State   *core.PaymentState    `json:"state"`
}

type SupplierInvoiceResult struct {
	Invoice *core.SupplierInvoice `json:"invoice"`
	State   *core.PaymentState    `json:"state"`
}

type StockResult struct {
	Levels []core.StockLevel `json:"levels"`
}

// OutstandingResult lists invoices with a positive balance.
type OutstandingResult struct {
	Invoices []core.PaymentState `json:"invoices"`
}

// ActionResult is a proposal awaiting confirmation.
type ActionResult struct {
	Proposal *ai.ActionProposal `json:"proposal"`
}
