package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

type appService struct {
	disp    *core.Dispatcher
	reports core.ReportingService
	agent   ai.AgentService
	tools   *ai.ToolRegistry
}

// NewAppService constructs an appService that satisfies ApplicationService.
// agent may be nil when no OpenAI key is configured.
func NewAppService(disp *core.Dispatcher, reports core.ReportingService, agent ai.AgentService) ApplicationService {
	return &appService{
		disp:    disp,
		reports: reports,
		agent:   agent,
		tools:   ai.EngineTools(),
	}
}

func (s *appService) Today() time.Time { return s.disp.Today() }

// ── Master data ───────────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.disp.MasterData().ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) ListClients(ctx context.Context) (*ClientListResult, error) {
	clients, err := s.disp.MasterData().ListClients(ctx)
	if err != nil {
		return nil, err
	}
	return &ClientListResult{Clients: clients}, nil
}

func (s *appService) ListAddresses(ctx context.Context, clientID int) (*AddressListResult, error) {
	addrs, err := s.disp.MasterData().ListAddresses(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &AddressListResult{ClientID: clientID, Addresses: addrs}, nil
}

func (s *appService) ListSuppliers(ctx context.Context) (*SupplierListResult, error) {
	suppliers, err := s.disp.MasterData().ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	return &SupplierListResult{Suppliers: suppliers}, nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) GetOrder(ctx context.Context, ref string) (*OrderResult, error) {
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListOrders(ctx context.Context, filter core.OrderFilter) (*OrderListResult, error) {
	orders, err := s.disp.Orders().ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) CreateOrder(ctx context.Context, req core.CreateOrderRequest) (*OrderResult, error) {
	id, err := s.disp.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, strconv.Itoa(id))
}

func (s *appService) EditOrder(ctx context.Context, ref string, lines []core.OrderLineInput) (*OrderResult, error) {
	id, err := s.resolveOrderID(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.disp.EditOrder(ctx, id, lines); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, strconv.Itoa(id))
}

func (s *appService) CancelOrders(ctx context.Context, refs []string) error {
	ids, err := s.resolveOrderIDs(ctx, refs)
	if err != nil {
		return err
	}
	return s.disp.CancelOrders(ctx, ids)
}

func (s *appService) ConfirmOrders(ctx context.Context, refs []string) (*ConfirmResult, error) {
	ids, err := s.resolveOrderIDs(ctx, refs)
	if err != nil {
		return nil, err
	}
	invoices, err := s.disp.ConfirmOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Invoices: invoices}, nil
}

// ── Receivables ───────────────────────────────────────────────────────────────

func (s *appService) RecordFullPayment(ctx context.Context, req PaymentRequest) (*ClientPaymentResult, error) {
	id, err := s.resolveOrderID(ctx, req.OrderRef)
	if err != nil {
		return nil, err
	}
	p, err := s.disp.RecordFullPayment(ctx, core.PaymentRequest{
		OrderID: id, Method: core.PaymentMethod(req.Method), Note: req.Note,
	})
	if err != nil {
		return nil, err
	}
	return s.clientPaymentResult(ctx, id, p)
}

func (s *appService) RecordPartialPayment(ctx context.Context, req PartialPaymentRequest) (*ClientPaymentResult, error) {
	id, err := s.resolveOrderID(ctx, req.OrderRef)
	if err != nil {
		return nil, err
	}
	p, err := s.disp.RecordPartialPayment(ctx, core.PartialPaymentRequest{
		OrderID: id, NewTotalPaid: req.NewTotalPaid, Method: core.PaymentMethod(req.Method), Note: req.Note,
	})
	if err != nil {
		return nil, err
	}
	return s.clientPaymentResult(ctx, id, p)
}

func (s *appService) ReversePayment(ctx context.Context, ref, note string) (*ClientPaymentResult, error) {
	id, err := s.resolveOrderID(ctx, ref)
	if err != nil {
		return nil, err
	}
	p, err := s.disp.ReversePayment(ctx, id, note)
	if err != nil {
		return nil, err
	}
	return s.clientPaymentResult(ctx, id, p)
}

func (s *appService) ClientReturn(ctx context.Context, req ClientReturnRequest) (*core.ClientReturnResult, error) {
	in := core.ClientReturnRequest{
		ClientID: req.ClientID, ProductID: req.ProductID, Quantity: req.Quantity, Note: req.Note,
	}
	if strings.TrimSpace(req.OrderRef) != "" {
		id, err := s.resolveOrderID(ctx, req.OrderRef)
		if err != nil {
			return nil, err
		}
		in.OrderID = &id
	}
	return s.disp.ClientReturn(ctx, in)
}

func (s *appService) GetPaymentState(ctx context.Context, ref string) (*core.PaymentState, error) {
	id, err := s.resolveOrderID(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.disp.Receivables().GetPaymentState(ctx, id, s.disp.Today())
}

func (s *appService) ListClientPayments(ctx context.Context, ref string) ([]core.ClientPayment, error) {
	id, err := s.resolveOrderID(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.disp.Receivables().ListPayments(ctx, id)
}

func (s *appService) clientPaymentResult(ctx context.Context, orderID int, p *core.ClientPayment) (*ClientPaymentResult, error) {
	st, err := s.disp.Receivables().GetPaymentState(ctx, orderID, s.disp.Today())
	if err != nil {
		return nil, err
	}
	return &ClientPaymentResult{Payment: p, State: st}, nil
}

// ── Supplier side ─────────────────────────────────────────────────────────────

func (s *appService) ReceiveDelivery(ctx context.Context, req core.DeliveryRequest) (*core.DeliveryResult, error) {
	return s.disp.ReceiveDelivery(ctx, req)
}

func (s *appService) AppendDeliveryLine(ctx context.Context, invoiceID int, line core.DeliveryLineInput) (int, error) {
	return s.disp.AppendDeliveryLine(ctx, invoiceID, line)
}

func (s *appService) FinalizeSupplierInvoice(ctx context.Context, invoiceID int) error {
	return s.disp.FinalizeSupplierInvoice(ctx, invoiceID)
}

func (s *appService) GetSupplierInvoice(ctx context.Context, invoiceID int) (*SupplierInvoiceResult, error) {
	inv, err := s.disp.SupplierInvoices().GetSupplierInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	st, err := s.disp.Payables().GetPaymentState(ctx, invoiceID, s.disp.Today())
	if err != nil {
		return nil, err
	}
	return &SupplierInvoiceResult{Invoice: inv, State: st}, nil
}

func (s *appService) RecordSupplierPayment(ctx context.Context, req core.SupplierPaymentRequest) (*SupplierPaymentResult, error) {
	p, err := s.disp.RecordSupplierPayment(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.supplierPaymentResult(ctx, req.SupplierInvoiceID, p)
}

func (s *appService) RecordSupplierPartialPayment(ctx context.Context, req core.SupplierPartialPaymentRequest) (*SupplierPaymentResult, error) {
	p, err := s.disp.RecordSupplierPartialPayment(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.supplierPaymentResult(ctx, req.SupplierInvoiceID, p)
}

func (s *appService) ReverseSupplierPayment(ctx context.Context, invoiceID int, note string) (*SupplierPaymentResult, error) {
	p, err := s.disp.ReverseSupplierPayment(ctx, invoiceID, note)
	if err != nil {
		return nil, err
	}
	return s.supplierPaymentResult(ctx, invoiceID, p)
}

func (s *appService) ReturnToSupplier(ctx context.Context, req core.SupplierReturnRequest) (*core.SupplierReturnResult, error) {
	return s.disp.ReturnToSupplier(ctx, req)
}

func (s *appService) ListSupplierPayments(ctx context.Context, invoiceID int) ([]core.SupplierPayment, error) {
	return s.disp.Payables().ListPayments(ctx, invoiceID)
}

func (s *appService) supplierPaymentResult(ctx context.Context, invoiceID int, p *core.SupplierPayment) (*SupplierPaymentResult, error) {
	st, err := s.disp.Payables().GetPaymentState(ctx, invoiceID, s.disp.Today())
	if err != nil {
		return nil, err
	}
	return &SupplierPaymentResult{Payment: p, State: st}, nil
}

// ── Inventory and reports ─────────────────────────────────────────────────────

func (s *appService) AdjustInventory(ctx context.Context, req core.AdjustmentRequest) (*core.StockMovement, error) {
	return s.disp.AdjustInventory(ctx, req)
}

func (s *appService) GetStockLevels(ctx context.Context) (*StockResult, error) {
	levels, err := s.reports.InventoryLevels(ctx)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels}, nil
}

func (s *appService) GetMovements(ctx context.Context, productID int, from, to *time.Time) ([]core.StockMovement, error) {
	return s.reports.ProductMovements(ctx, productID, from, to)
}

func (s *appService) TodaysOrders(ctx context.Context) (*OrderListResult, error) {
	orders, err := s.reports.TodaysOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) UnpaidInvoices(ctx context.Context, clientID int) (*OutstandingResult, error) {
	states, err := s.reports.UnpaidInvoices(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &OutstandingResult{Invoices: states}, nil
}

func (s *appService) SupplierOutstanding(ctx context.Context, supplierID int) (*OutstandingResult, error) {
	states, err := s.reports.SupplierOutstanding(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	return &OutstandingResult{Invoices: states}, nil
}

func (s *appService) IncomingDeliveries(ctx context.Context, from, to time.Time) ([]core.DeliveryLine, error) {
	return s.reports.IncomingDeliveries(ctx, from, to)
}

func (s *appService) SupplierPayments(ctx context.Context, from, to time.Time) ([]core.SupplierPayment, error) {
	return s.reports.SupplierPayments(ctx, from, to)
}

func (s *appService) CheckIntegrity(ctx context.Context) (*core.IntegrityReport, error) {
	return s.reports.CheckIntegrity(ctx)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// resolveOrder looks up an order by numeric ID or invoice number.
func (s *appService) resolveOrder(ctx context.Context, ref string) (*core.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: order reference is empty", core.ErrNotFound)
	}
	if id, err := strconv.Atoi(ref); err == nil {
		return s.disp.Orders().GetOrder(ctx, id)
	}
	return s.disp.Orders().GetOrderByInvoiceNumber(ctx, strings.ToUpper(ref))
}

func (s *appService) resolveOrderID(ctx context.Context, ref string) (int, error) {
	if id, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil {
		return id, nil
	}
	order, err := s.resolveOrder(ctx, ref)
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (s *appService) resolveOrderIDs(ctx context.Context, refs []string) ([]int, error) {
	ids := make([]int, 0, len(refs))
	for _, ref := range refs {
		id, err := s.resolveOrderID(ctx, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
