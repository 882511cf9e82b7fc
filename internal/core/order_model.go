package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a client order:
//
//	draft → confirmed
//	draft → cancelled (the draft row is removed)
type OrderStatus string

const (
	OrderDraft     OrderStatus = "draft"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a client order header. A confirmed order is also the client invoice:
// InvoiceNumber, ConfirmationDate and the payment fields are set from then on.
type Order struct {
	ID               int             `json:"id"`
	OrderDate        time.Time       `json:"order_date"`
	DeliveryDate     *time.Time      `json:"delivery_date,omitempty"`
	EmployeeID       int             `json:"employee_id"`
	ClientID         int             `json:"client_id"`
	ClientName       string          `json:"client_name"` // joined from clients
	AddressID        int             `json:"address_id"`
	Address          string          `json:"address"` // joined from addresses
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Status           OrderStatus     `json:"status"`
	InvoiceNumber    *string         `json:"invoice_number,omitempty"`
	ConfirmationDate *time.Time      `json:"confirmation_date,omitempty"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	Lines            []OrderLine     `json:"lines"`
	CreatedAt        time.Time       `json:"created_at"`
}

type OrderLine struct {
	ID          int             `json:"id"`
	OrderID     int             `json:"order_id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"` // joined from products
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"` // Quantity × UnitPrice
}

// OrderLineInput is one requested line. A nil UnitPrice takes the product's
// selling price.
type OrderLineInput struct {
	ProductID int              `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"gt=0,scale=3"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0,scale=2"`
}

// DraftOrderInput creates a draft. OrderDate defaults to today.
type DraftOrderInput struct {
	ClientID     int              `json:"client_id"`
	AddressID    int              `json:"address_id"`
	EmployeeID   int              `json:"employee_id"`
	OrderDate    *time.Time       `json:"order_date,omitempty"`
	DeliveryDate *time.Time       `json:"delivery_date,omitempty"`
	Lines        []OrderLineInput `json:"lines" validate:"dive"`
}

// OrderFilter narrows ListOrders. Zero fields are ignored.
type OrderFilter struct {
	Status    OrderStatus
	ClientID  int
	OrderDate *time.Time
}

// ConfirmedInvoice pairs an order with the invoice number it received.
type ConfirmedInvoice struct {
	OrderID       int    `json:"order_id"`
	InvoiceNumber string `json:"invoice_number"`
}
