package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of a client or supplier invoice.
// Only unpaid, partially_paid and paid are persisted; overdue is derived on read.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentPaid          PaymentStatus = "paid"
	PaymentOverdue       PaymentStatus = "overdue"
)

// PaymentMethod is free text; these are the values the engine writes itself.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodTransfer     PaymentMethod = "transfer"
	MethodReturnCredit PaymentMethod = "return_credit"
	MethodReversal     PaymentMethod = "reversal"
)

// ClientPayment is a signed receivables row. Positive amounts are money
// received, negative amounts are credits and reversals.
type ClientPayment struct {
	ID          int64           `json:"id"`
	ClientID    int             `json:"client_id"`
	OrderID     *int            `json:"order_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"payment_method"`
	PaymentDate time.Time       `json:"payment_date"`
	Note        string          `json:"note"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SupplierPayment is a signed payables row. Positive amounts are money paid
// out, negative amounts are supplier credits and reversals.
type SupplierPayment struct {
	ID                int64           `json:"id"`
	SupplierID        int             `json:"supplier_id"`
	SupplierName      string          `json:"supplier_name,omitempty"`
	SupplierInvoiceID *int            `json:"supplier_invoice_id,omitempty"`
	DeliveryID        *int            `json:"delivery_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Method            PaymentMethod   `json:"payment_method"`
	PaymentDate       time.Time       `json:"payment_date"`
	Note              string          `json:"note"`
	CreatedAt         time.Time       `json:"created_at"`
}

// PaymentState is the projection of one invoice's payment rows.
//
//	NetReceived = TotalReceived - TotalCredited
//	AmountPaid  = clamp(NetReceived, 0, TotalAmount)
//	Outstanding = TotalAmount - NetReceived (may be negative)
type PaymentState struct {
	InvoiceID     int             `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PartyID       int             `json:"party_id"`
	PartyName     string          `json:"party_name"`
	InvoiceDate   *time.Time      `json:"invoice_date,omitempty"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalReceived decimal.Decimal `json:"total_received"`
	TotalCredited decimal.Decimal `json:"total_credited"`
	NetReceived   decimal.Decimal `json:"net_received"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Status        PaymentStatus   `json:"status"`
}
