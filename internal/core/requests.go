package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dispatcher event payloads. Decimal tags (gt, gte) are checked by validateRequest.

type CreateOrderRequest struct {
	ClientID     int              `json:"client_id"`
	AddressID    int              `json:"address_id"`
	EmployeeID   int              `json:"employee_id"`
	OrderDate    *time.Time       `json:"order_date,omitempty"`
	DeliveryDate *time.Time       `json:"delivery_date,omitempty"`
	Lines        []OrderLineInput `json:"lines" validate:"dive"`
}

type PaymentRequest struct {
	OrderID int           `json:"order_id"`
	Method  PaymentMethod `json:"payment_method"`
	Note    string        `json:"note"`
}

type PartialPaymentRequest struct {
	OrderID      int             `json:"order_id"`
	NewTotalPaid decimal.Decimal `json:"new_total_paid" validate:"gte=0,scale=2"`
	Method       PaymentMethod   `json:"payment_method"`
	Note         string          `json:"note"`
}

// ClientReturnRequest takes goods back from a client. With OrderID set the
// product must be on that order, and a confirmed order is credited at the
// product selling price.
type ClientReturnRequest struct {
	ClientID  int             `json:"client_id"`
	OrderID   *int            `json:"order_id,omitempty"`
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0,scale=3"`
	Note      string          `json:"note"`
}

type ClientReturnResult struct {
	Movement *StockMovement `json:"movement"`
	Credit   *ClientPayment `json:"credit,omitempty"`
}

// DeliveryRequest opens a supplier invoice and appends every line in one
// transaction. Finalize closes the invoice afterwards.
type DeliveryRequest struct {
	SupplierID    int                 `json:"supplier_id"`
	InvoiceNumber string              `json:"invoice_number"`
	InvoiceDate   *time.Time          `json:"invoice_date,omitempty"`
	DueDate       *time.Time          `json:"due_date,omitempty"`
	Note          string              `json:"note"`
	Lines         []DeliveryLineInput `json:"lines" validate:"dive"`
	Finalize      bool                `json:"finalize"`
}

type DeliveryResult struct {
	SupplierInvoiceID int   `json:"supplier_invoice_id"`
	DeliveryIDs       []int `json:"delivery_ids"`
}

type SupplierPaymentRequest struct {
	SupplierInvoiceID int           `json:"supplier_invoice_id"`
	Method            PaymentMethod `json:"payment_method"`
	Note              string        `json:"note"`
}

type SupplierPartialPaymentRequest struct {
	SupplierInvoiceID int             `json:"supplier_invoice_id"`
	NewTotalPaid      decimal.Decimal `json:"new_total_paid" validate:"gte=0,scale=2"`
	Method            PaymentMethod   `json:"payment_method"`
	Note              string          `json:"note"`
}

// SupplierReturnRequest sends goods back. DeliveryID ties the return to the
// line it came in on; its cost is then used and over-returning is refused.
type SupplierReturnRequest struct {
	SupplierID        int             `json:"supplier_id"`
	SupplierInvoiceID *int            `json:"supplier_invoice_id,omitempty"`
	DeliveryID        *int            `json:"delivery_id,omitempty"`
	ProductID         int             `json:"product_id"`
	Quantity          decimal.Decimal `json:"quantity" validate:"gt=0,scale=3"`
	Note              string          `json:"note"`
}

type SupplierReturnResult struct {
	Movement *StockMovement   `json:"movement"`
	Credit   *SupplierPayment `json:"credit"`
}

type AdjustmentRequest struct {
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0,scale=3"`
	Kind      MovementKind    `json:"kind"`
	Note      string          `json:"note"`
}
