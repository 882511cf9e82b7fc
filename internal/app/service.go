package app

import (
	"context"
	"time"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

// ApplicationService is the single interface all UI adapters (REPL, CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
//
// Order references (ref) accept a numeric order id or an invoice number.
type ApplicationService interface {
	// Today is the engine's business date.
	Today() time.Time

	ListProducts(ctx context.Context) (*ProductListResult, error)
	ListClients(ctx context.Context) (*ClientListResult, error)
	ListAddresses(ctx context.Context, clientID int) (*AddressListResult, error)
	ListSuppliers(ctx context.Context) (*SupplierListResult, error)

	// GetOrder returns a single order by numeric ID or invoice number.
	GetOrder(ctx context.Context, ref string) (*OrderResult, error)

	// ListOrders returns orders, optionally filtered by status and client.
	ListOrders(ctx context.Context, filter core.OrderFilter) (*OrderListResult, error)

	// CreateOrder creates a new draft order.
	CreateOrder(ctx context.Context, req core.CreateOrderRequest) (*OrderResult, error)

	// EditOrder replaces the lines of a draft order.
	EditOrder(ctx context.Context, ref string, lines []core.OrderLineInput) (*OrderResult, error)

	// CancelOrders deletes every referenced draft, or none of them.
	CancelOrders(ctx context.Context, refs []string) error

	// ConfirmOrders confirms every referenced draft in one event: stock ships
	// and invoice numbers are assigned, or nothing changes.
	ConfirmOrders(ctx context.Context, refs []string) (*ConfirmResult, error)

	RecordFullPayment(ctx context.Context, req PaymentRequest) (*ClientPaymentResult, error)
	RecordPartialPayment(ctx context.Context, req PartialPaymentRequest) (*ClientPaymentResult, error)
	ReversePayment(ctx context.Context, ref, note string) (*ClientPaymentResult, error)
	ClientReturn(ctx context.Context, req ClientReturnRequest) (*core.ClientReturnResult, error)

	// GetPaymentState returns the derived payment state of a confirmed order.
	GetPaymentState(ctx context.Context, ref string) (*core.PaymentState, error)
	ListClientPayments(ctx context.Context, ref string) ([]core.ClientPayment, error)

	// ReceiveDelivery books a supplier invoice with its lines.
	ReceiveDelivery(ctx context.Context, req core.DeliveryRequest) (*core.DeliveryResult, error)
	AppendDeliveryLine(ctx context.Context, invoiceID int, line core.DeliveryLineInput) (int, error)
	FinalizeSupplierInvoice(ctx context.Context, invoiceID int) error
	GetSupplierInvoice(ctx context.Context, invoiceID int) (*SupplierInvoiceResult, error)

	RecordSupplierPayment(ctx context.Context, req core.SupplierPaymentRequest) (*SupplierPaymentResult, error)
	RecordSupplierPartialPayment(ctx context.Context, req core.SupplierPartialPaymentRequest) (*SupplierPaymentResult, error)
	ReverseSupplierPayment(ctx context.Context, invoiceID int, note string) (*SupplierPaymentResult, error)
	ReturnToSupplier(ctx context.Context, req core.SupplierReturnRequest) (*core.SupplierReturnResult, error)
	ListSupplierPayments(ctx context.Context, invoiceID int) ([]core.SupplierPayment, error)

	AdjustInventory(ctx context.Context, req core.AdjustmentRequest) (*core.StockMovement, error)
	GetStockLevels(ctx context.Context) (*StockResult, error)
	GetMovements(ctx context.Context, productID int, from, to *time.Time) ([]core.StockMovement, error)

	// Reports.
	TodaysOrders(ctx context.Context) (*OrderListResult, error)
	UnpaidInvoices(ctx context.Context, clientID int) (*OutstandingResult, error)
	SupplierOutstanding(ctx context.Context, supplierID int) (*OutstandingResult, error)
	IncomingDeliveries(ctx context.Context, from, to time.Time) ([]core.DeliveryLine, error)
	SupplierPayments(ctx context.Context, from, to time.Time) ([]core.SupplierPayment, error)
	CheckIntegrity(ctx context.Context) (*core.IntegrityReport, error)

	// InterpretAction sends a free-text request to the AI agent and returns one
	// proposed action. Nothing is executed.
	InterpretAction(ctx context.Context, text string) (*ActionResult, error)

	// ExecuteProposal runs a previously proposed action after human confirmation
	// and returns a one-line description of what happened.
	ExecuteProposal(ctx context.Context, proposal *ai.ActionProposal) (string, error)
}
