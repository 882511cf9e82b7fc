package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// Mismatch is one failed reconciliation check.
type Mismatch struct {
	CheckType  string `json:"check_type"`
	EntityType string `json:"entity_type"`
	EntityID   int    `json:"entity_id"`
	Details    string `json:"details"`
}

// IntegrityReport is the result of one reconciliation run over all ledgers.
type IntegrityReport struct {
	CorrelationID string     `json:"correlation_id"`
	CheckedAt     time.Time  `json:"checked_at"`
	Mismatches    []Mismatch `json:"mismatches"`
}

func (r *IntegrityReport) OK() bool { return len(r.Mismatches) == 0 }

// ReportingService provides read-only views across the ledgers.
type ReportingService interface {
	TodaysOrders(ctx context.Context) ([]Order, error)
	UnpaidInvoices(ctx context.Context, clientID int) ([]PaymentState, error)
	InventoryLevels(ctx context.Context) ([]StockLevel, error)
	IncomingDeliveries(ctx context.Context, from, to time.Time) ([]DeliveryLine, error)
	SupplierPayments(ctx context.Context, from, to time.Time) ([]SupplierPayment, error)
	SupplierOutstanding(ctx context.Context, supplierID int) ([]PaymentState, error)
	ProductMovements(ctx context.Context, productID int, from, to *time.Time) ([]StockMovement, error)
	// CheckIntegrity reconciles stored quantities, totals and payment
	// projections against the rows they derive from.
	CheckIntegrity(ctx context.Context) (*IntegrityReport, error)
}

type reportingService struct {
	pool *pgxpool.Pool
	d    *Dispatcher
}

func NewReportingService(pool *pgxpool.Pool, d *Dispatcher) ReportingService {
	return &reportingService{pool: pool, d: d}
}

func (s *reportingService) TodaysOrders(ctx context.Context) ([]Order, error) {
	today := s.d.Today()
	return s.d.orders.ListOrders(ctx, OrderFilter{OrderDate: &today})
}

func (s *reportingService) UnpaidInvoices(ctx context.Context, clientID int) ([]PaymentState, error) {
	return s.d.receivables.ListOutstanding(ctx, clientID, s.d.Today())
}

func (s *reportingService) InventoryLevels(ctx context.Context) ([]StockLevel, error) {
	return s.d.stock.GetStockLevels(ctx)
}

func (s *reportingService) IncomingDeliveries(ctx context.Context, from, to time.Time) ([]DeliveryLine, error) {
	return s.d.invoices.ListDeliveries(ctx, from, to)
}

func (s *reportingService) SupplierPayments(ctx context.Context, from, to time.Time) ([]SupplierPayment, error) {
	return s.d.payables.ListPaymentsBetween(ctx, from, to)
}

func (s *reportingService) SupplierOutstanding(ctx context.Context, supplierID int) ([]PaymentState, error) {
	return s.d.payables.ListOutstanding(ctx, supplierID, s.d.Today())
}

func (s *reportingService) ProductMovements(ctx context.Context, productID int, from, to *time.Time) ([]StockMovement, error) {
	return s.d.stock.GetMovements(ctx, productID, from, to)
}

// ── Reconciliation ────────────────────────────────────────────────────────────

type reconciliationCheck struct {
	checkType  string
	entityType string
	query      string
}

// Each query returns (entity id, details) for every violating row.
var reconciliationChecks = []reconciliationCheck{
	{
		checkType:  "STOCK_MOVEMENT_SUM",
		entityType: "Product",
		query: `
			SELECT p.id, 'on hand ' || COALESCE(st.quantity, 0) || ' vs movements ' || COALESCE(SUM(m.quantity_change), 0)
			FROM products p
			LEFT JOIN stock st ON st.product_id = p.id
			LEFT JOIN inventory_movements m ON m.product_id = p.id
			GROUP BY p.id, st.quantity
			HAVING COALESCE(st.quantity, 0) <> COALESCE(SUM(m.quantity_change), 0)`,
	},
	{
		checkType:  "STOCK_NEGATIVE",
		entityType: "Product",
		query:      `SELECT product_id, 'on hand ' || quantity FROM stock WHERE quantity < 0`,
	},
	{
		checkType:  "ORDER_TOTAL",
		entityType: "Order",
		query: `
			SELECT o.id, 'total ' || o.total_amount || ' vs lines ' || ROUND(COALESCE(SUM(l.quantity * l.unit_price), 0), 2)
			FROM orders o
			LEFT JOIN order_lines l ON l.order_id = o.id
			GROUP BY o.id
			HAVING o.total_amount <> ROUND(COALESCE(SUM(l.quantity * l.unit_price), 0), 2)`,
	},
	{
		checkType:  "SUPPLIER_INVOICE_TOTAL",
		entityType: "SupplierInvoice",
		query: `
			SELECT si.id, 'total ' || si.total_amount || ' vs lines ' || ROUND(COALESCE(SUM(d.quantity * d.unit_cost), 0), 2)
			FROM supplier_invoices si
			LEFT JOIN incoming_deliveries d ON d.supplier_invoice_id = si.id
			GROUP BY si.id
			HAVING si.total_amount <> ROUND(COALESCE(SUM(d.quantity * d.unit_cost), 0), 2)`,
	},
	{
		checkType:  "DELIVERY_RECEIVED",
		entityType: "DeliveryLine",
		query: `
			SELECT d.id, 'matching incoming movements: ' || COUNT(m.id)
			FROM incoming_deliveries d
			LEFT JOIN inventory_movements m
			       ON m.source_doc_kind = 'incoming_delivery' AND m.source_doc_id = d.id
			      AND m.movement_kind = 'incoming' AND m.product_id = d.product_id
			      AND m.quantity_change = d.quantity AND m.unit_cost = d.unit_cost
			GROUP BY d.id
			HAVING COUNT(m.id) <> 1`,
	},
	{
		checkType:  "INVOICE_NUMBER",
		entityType: "Order",
		query: `
			SELECT id, 'status ' || status || ' with invoice number ' || COALESCE(invoice_number, '<none>')
			FROM orders
			WHERE (status = 'confirmed') <> (invoice_number IS NOT NULL)
			   OR (status = 'confirmed') <> (confirmation_date IS NOT NULL)`,
	},
	{
		checkType:  "CONFIRMED_ORDER_SHIPPED",
		entityType: "Order",
		query: `
			SELECT o.id, 'product ' || l.product_id || ' ordered ' || l.qty || ' shipped ' || COALESCE(m.qty, 0)
			FROM orders o
			JOIN (SELECT order_id, product_id, SUM(quantity) AS qty
			      FROM order_lines GROUP BY order_id, product_id) l ON l.order_id = o.id
			LEFT JOIN (SELECT source_doc_id, product_id, SUM(-quantity_change) AS qty
			           FROM inventory_movements
			           WHERE movement_kind = 'outgoing' AND source_doc_kind = 'order'
			           GROUP BY source_doc_id, product_id) m
			       ON m.source_doc_id = o.id AND m.product_id = l.product_id
			WHERE o.status = 'confirmed' AND COALESCE(m.qty, 0) <> l.qty`,
	},
	{
		checkType:  "PAYMENT_ON_UNCONFIRMED_ORDER",
		entityType: "Order",
		query: `
			SELECT DISTINCT o.id, 'status ' || o.status
			FROM client_payments cp
			JOIN orders o ON o.id = cp.order_id
			WHERE o.status <> 'confirmed'`,
	},
}

// projectionRow is a stored projection with the net it should derive from.
type projectionRow struct {
	id         int
	total      decimal.Decimal
	amountPaid decimal.Decimal
	status     PaymentStatus
	net        decimal.Decimal
}

func (s *reportingService) CheckIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{CorrelationID: uuid.NewString(), CheckedAt: s.d.now().UTC()}

	for _, c := range reconciliationChecks {
		rows, err := s.pool.Query(ctx, c.query)
		if err != nil {
			return nil, fmt.Errorf("reconciliation %s: %w", c.checkType, err)
		}
		for rows.Next() {
			m := Mismatch{CheckType: c.checkType, EntityType: c.entityType}
			if err := rows.Scan(&m.EntityID, &m.Details); err != nil {
				rows.Close()
				return nil, fmt.Errorf("reconciliation %s: scan: %w", c.checkType, err)
			}
			report.Mismatches = append(report.Mismatches, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("reconciliation %s: %w", c.checkType, err)
		}
	}

	for _, p := range []struct {
		checkType, entityType, query string
	}{
		{"CLIENT_PAYMENT_PROJECTION", "Order", `
			SELECT o.id, o.total_amount, o.amount_paid, o.payment_status, COALESCE(SUM(cp.amount), 0)
			FROM orders o
			LEFT JOIN client_payments cp ON cp.order_id = o.id
			WHERE o.status = 'confirmed'
			GROUP BY o.id`},
		{"SUPPLIER_PAYMENT_PROJECTION", "SupplierInvoice", `
			SELECT si.id, si.total_amount, si.amount_paid, si.payment_status, COALESCE(SUM(sp.amount), 0)
			FROM supplier_invoices si
			LEFT JOIN supplier_payments sp ON sp.supplier_invoice_id = si.id
			GROUP BY si.id`},
	} {
		projections, err := s.loadProjections(ctx, p.query)
		if err != nil {
			return nil, fmt.Errorf("reconciliation %s: %w", p.checkType, err)
		}
		for _, r := range projections {
			if details := projectionMismatch(r); details != "" {
				report.Mismatches = append(report.Mismatches, Mismatch{
					CheckType: p.checkType, EntityType: p.entityType, EntityID: r.id, Details: details,
				})
			}
		}
	}

	return report, nil
}

func (s *reportingService) loadProjections(ctx context.Context, query string) ([]projectionRow, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []projectionRow
	for rows.Next() {
		var (
			r      projectionRow
			status string
		)
		if err := rows.Scan(&r.id, &r.total, &r.amountPaid, &status, &r.net); err != nil {
			return nil, err
		}
		r.status = PaymentStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// projectionMismatch describes how a stored projection differs from the
// one derived from its payments, or returns "" when they agree. Confirmation
// stores unpaid before any payment exists, which is accepted for zero totals.
func projectionMismatch(r projectionRow) string {
	wantPaid := ClampPaid(r.net, r.total)
	wantStatus := StoredStatus(r.total, r.net)
	if r.net.IsZero() && r.status == PaymentUnpaid {
		wantStatus = PaymentUnpaid
	}
	if !r.amountPaid.Equal(wantPaid) || r.status != wantStatus {
		return fmt.Sprintf("stored %s/%s, derived %s/%s from net %s",
			r.status, r.amountPaid.String(), wantStatus, wantPaid.String(), r.net.String())
	}
	return ""
}
