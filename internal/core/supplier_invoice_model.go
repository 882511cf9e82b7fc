package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// SupplierInvoice groups the delivery lines received against one supplier
// document. TotalAmount always equals Σ quantity × unit_cost of its lines.
type SupplierInvoice struct {
	ID            int             `json:"id"`
	SupplierID    int             `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"` // joined from suppliers
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Note          string          `json:"note"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	FinalizedAt   *time.Time      `json:"finalized_at,omitempty"`
	Lines         []DeliveryLine  `json:"lines"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DeliveryLine is one incoming_deliveries row.
type DeliveryLine struct {
	ID                int             `json:"id"`
	SupplierInvoiceID int             `json:"supplier_invoice_id"`
	InvoiceNumber     string          `json:"invoice_number,omitempty"`
	SupplierID        int             `json:"supplier_id"`
	SupplierName      string          `json:"supplier_name,omitempty"`
	ProductID         int             `json:"product_id"`
	ProductName       string          `json:"product_name,omitempty"`
	DeliveryDate      time.Time       `json:"delivery_date"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	LineTotal         decimal.Decimal `json:"line_total"`
}

// SupplierInvoiceInput opens an invoice. InvoiceDate defaults to today.
type SupplierInvoiceInput struct {
	SupplierID    int        `json:"supplier_id"`
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   *time.Time `json:"invoice_date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Note          string     `json:"note"`
}

// DeliveryLineInput is one received line. DeliveryDate defaults to today.
type DeliveryLineInput struct {
	ProductID    int             `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0,scale=3"`
	UnitCost     decimal.Decimal `json:"unit_cost" validate:"gt=0,scale=2"`
	DeliveryDate *time.Time      `json:"delivery_date,omitempty"`
}

// SupplierCreditInput records money the supplier owes back for returned goods.
// Amount is a positive magnitude; it is stored negated.
type SupplierCreditInput struct {
	SupplierID        int
	SupplierInvoiceID *int
	DeliveryID        *int
	Amount            decimal.Decimal
	PaymentDate       time.Time
	Note              string
}
