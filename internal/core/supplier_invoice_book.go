package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SupplierInvoiceBook owns supplier invoice headers and their incoming
// delivery lines. Appending a line receives the stock through the StockLedger.
type SupplierInvoiceBook interface {
	// TX-scoped operations: work within a caller-provided transaction.

	CreateTx(ctx context.Context, tx pgx.Tx, in SupplierInvoiceInput, today time.Time) (int, error)
	// AppendLineTx writes one delivery line, records the incoming movement at
	// the line's unit cost and resets the invoice total to Σ quantity × unit_cost.
	AppendLineTx(ctx context.Context, tx pgx.Tx, invoiceID int, in DeliveryLineInput, today time.Time) (int, error)
	// FinalizeTx closes the invoice to further lines. Finalizing twice is a no-op.
	FinalizeTx(ctx context.Context, tx pgx.Tx, invoiceID int) error
	GetHeaderTx(ctx context.Context, tx pgx.Tx, invoiceID int) (*SupplierInvoice, error)
	GetDeliveryLineTx(ctx context.Context, tx pgx.Tx, deliveryID int) (*DeliveryLine, error)
	// ProductLinesTx lists the invoice's delivery lines for one product, oldest first.
	ProductLinesTx(ctx context.Context, tx pgx.Tx, invoiceID, productID int) ([]DeliveryLine, error)

	// Standalone reads.
	GetSupplierInvoice(ctx context.Context, invoiceID int) (*SupplierInvoice, error)
	// ListDeliveries returns delivery lines whose delivery_date falls in [from, to].
	ListDeliveries(ctx context.Context, from, to time.Time) ([]DeliveryLine, error)
}

type supplierInvoiceBook struct {
	pool  *pgxpool.Pool
	stock StockLedger
}

func NewSupplierInvoiceBook(pool *pgxpool.Pool, stock StockLedger) SupplierInvoiceBook {
	return &supplierInvoiceBook{pool: pool, stock: stock}
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *supplierInvoiceBook) CreateTx(ctx context.Context, tx pgx.Tx, in SupplierInvoiceInput, today time.Time) (int, error) {
	const op = "create supplier invoice"

	number := strings.TrimSpace(in.InvoiceNumber)
	if number == "" {
		return 0, invalidState(op, "invoice number is required")
	}
	if err := requireSupplier(ctx, tx, op, in.SupplierID); err != nil {
		return 0, err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM supplier_invoices WHERE supplier_id = $1 AND invoice_number = $2)
	`, in.SupplierID, number).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check invoice number: %w", err)
	}
	if exists {
		return 0, invalidState(op, "supplier %d already has invoice %s", in.SupplierID, number)
	}

	invoiceDate := today
	if in.InvoiceDate != nil {
		invoiceDate = *in.InvoiceDate
	}

	var id int
	err := tx.QueryRow(ctx, `
		INSERT INTO supplier_invoices (supplier_id, invoice_number, invoice_date, due_date, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.SupplierID, number, dateOnly(invoiceDate), in.DueDate, in.Note).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, invalidState(op, "supplier %d already has invoice %s", in.SupplierID, number)
		}
		return 0, fmt.Errorf("failed to insert supplier invoice: %w", err)
	}
	return id, nil
}

func (s *supplierInvoiceBook) AppendLineTx(ctx context.Context, tx pgx.Tx, invoiceID int, in DeliveryLineInput, today time.Time) (int, error) {
	const op = "append delivery line"

	if !in.Quantity.IsPositive() {
		return 0, invalidAmount(op, "quantity must be positive, got %s", in.Quantity.String())
	}
	if !in.UnitCost.IsPositive() {
		return 0, invalidAmount(op, "unit cost must be positive, got %s", in.UnitCost.String())
	}
	if exceedsScale(in.Quantity, quantityScale) || exceedsScale(in.UnitCost, moneyScale) {
		return 0, invalidAmount(op, "quantity %s or unit cost %s exceeds the stored precision",
			in.Quantity.String(), in.UnitCost.String())
	}

	var (
		supplierID  int
		finalizedAt *time.Time
	)
	err := tx.QueryRow(ctx, `
		SELECT supplier_id, finalized_at FROM supplier_invoices WHERE id = $1 FOR UPDATE
	`, invoiceID).Scan(&supplierID, &finalizedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, notFound(op, "supplier invoice %d not found", invoiceID)
		}
		return 0, fmt.Errorf("failed to lock supplier invoice: %w", err)
	}
	if finalizedAt != nil {
		return 0, invalidState(op, "supplier invoice %d is finalized", invoiceID)
	}
	if _, err := getProduct(ctx, tx, op, in.ProductID); err != nil {
		return 0, err
	}

	deliveryDate := today
	if in.DeliveryDate != nil {
		deliveryDate = *in.DeliveryDate
	}

	var deliveryID int
	err = tx.QueryRow(ctx, `
		INSERT INTO incoming_deliveries (supplier_invoice_id, supplier_id, product_id, delivery_date, quantity, unit_cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, invoiceID, supplierID, in.ProductID, dateOnly(deliveryDate), in.Quantity, in.UnitCost).Scan(&deliveryID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert delivery line: %w", err)
	}

	cost := in.UnitCost
	if _, err := s.stock.RecordMovementTx(ctx, tx, MovementInput{
		ProductID:     in.ProductID,
		Quantity:      in.Quantity,
		Kind:          MovementIncoming,
		UnitCost:      &cost,
		SourceDocKind: SourceIncomingDelivery,
		SourceDocID:   &deliveryID,
		Note:          fmt.Sprintf("supplier invoice %d", invoiceID),
	}); err != nil {
		return 0, err
	}

	// Summed over all lines and rounded once, like an order total.
	if _, err := tx.Exec(ctx, `
		UPDATE supplier_invoices
		SET total_amount = (
			SELECT ROUND(COALESCE(SUM(quantity * unit_cost), 0), 2)
			FROM incoming_deliveries WHERE supplier_invoice_id = $1
		)
		WHERE id = $1
	`, invoiceID); err != nil {
		return 0, fmt.Errorf("failed to update supplier invoice total: %w", err)
	}
	return deliveryID, nil
}

func (s *supplierInvoiceBook) FinalizeTx(ctx context.Context, tx pgx.Tx, invoiceID int) error {
	const op = "finalize supplier invoice"

	var finalizedAt *time.Time
	err := tx.QueryRow(ctx, "SELECT finalized_at FROM supplier_invoices WHERE id = $1 FOR UPDATE", invoiceID).
		Scan(&finalizedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound(op, "supplier invoice %d not found", invoiceID)
		}
		return fmt.Errorf("failed to lock supplier invoice: %w", err)
	}
	if finalizedAt != nil {
		return nil
	}

	var lines int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM incoming_deliveries WHERE supplier_invoice_id = $1", invoiceID,
	).Scan(&lines); err != nil {
		return fmt.Errorf("failed to count delivery lines: %w", err)
	}
	if lines == 0 {
		return invalidState(op, "supplier invoice %d has no lines", invoiceID)
	}

	if _, err := tx.Exec(ctx, "UPDATE supplier_invoices SET finalized_at = NOW() WHERE id = $1", invoiceID); err != nil {
		return fmt.Errorf("failed to finalize supplier invoice: %w", err)
	}
	return nil
}

func (s *supplierInvoiceBook) GetHeaderTx(ctx context.Context, tx pgx.Tx, invoiceID int) (*SupplierInvoice, error) {
	return getSupplierInvoiceHeader(ctx, tx, invoiceID)
}

func (s *supplierInvoiceBook) GetDeliveryLineTx(ctx context.Context, tx pgx.Tx, deliveryID int) (*DeliveryLine, error) {
	lines, err := queryDeliveryLines(ctx, tx, "d.id = $1", deliveryID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, notFound("get delivery line", "delivery line %d not found", deliveryID)
	}
	return &lines[0], nil
}

func (s *supplierInvoiceBook) ProductLinesTx(ctx context.Context, tx pgx.Tx, invoiceID, productID int) ([]DeliveryLine, error) {
	return queryDeliveryLines(ctx, tx, "d.supplier_invoice_id = $1 AND d.product_id = $2", invoiceID, productID)
}

// ── Standalone reads ──────────────────────────────────────────────────────────

func getSupplierInvoiceHeader(ctx context.Context, q pgxQuerier, invoiceID int) (*SupplierInvoice, error) {
	var (
		inv    SupplierInvoice
		status string
	)
	err := q.QueryRow(ctx, `
		SELECT si.id, si.supplier_id, s.name, si.invoice_number, si.invoice_date, si.total_amount,
		       si.due_date, si.note, si.payment_status, si.amount_paid, si.finalized_at, si.created_at
		FROM supplier_invoices si
		JOIN suppliers s ON s.id = si.supplier_id
		WHERE si.id = $1
	`, invoiceID).Scan(&inv.ID, &inv.SupplierID, &inv.SupplierName, &inv.InvoiceNumber, &inv.InvoiceDate,
		&inv.TotalAmount, &inv.DueDate, &inv.Note, &status, &inv.AmountPaid, &inv.FinalizedAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("get supplier invoice", "supplier invoice %d not found", invoiceID)
		}
		return nil, fmt.Errorf("failed to fetch supplier invoice: %w", err)
	}
	inv.PaymentStatus = PaymentStatus(status)
	return &inv, nil
}

func (s *supplierInvoiceBook) GetSupplierInvoice(ctx context.Context, invoiceID int) (*SupplierInvoice, error) {
	inv, err := getSupplierInvoiceHeader(ctx, s.pool, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Lines, err = queryDeliveryLines(ctx, s.pool, "d.supplier_invoice_id = $1", invoiceID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *supplierInvoiceBook) ListDeliveries(ctx context.Context, from, to time.Time) ([]DeliveryLine, error) {
	if to.Before(from) {
		return nil, invalidState("list deliveries", "range end %s is before start %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	return queryDeliveryLines(ctx, s.pool, "d.delivery_date BETWEEN $1 AND $2", dateOnly(from), dateOnly(to))
}

func queryDeliveryLines(ctx context.Context, q pgxQuerier, where string, args ...any) ([]DeliveryLine, error) {
	rows, err := q.Query(ctx, `
		SELECT d.id, d.supplier_invoice_id, si.invoice_number, d.supplier_id, s.name, d.product_id, p.name,
		       d.delivery_date, d.quantity, d.unit_cost
		FROM incoming_deliveries d
		JOIN supplier_invoices si ON si.id = d.supplier_invoice_id
		JOIN suppliers s ON s.id = d.supplier_id
		JOIN products p ON p.id = d.product_id
		WHERE `+where+`
		ORDER BY d.delivery_date, d.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery lines: %w", err)
	}
	defer rows.Close()

	var lines []DeliveryLine
	for rows.Next() {
		var l DeliveryLine
		if err := rows.Scan(&l.ID, &l.SupplierInvoiceID, &l.InvoiceNumber, &l.SupplierID, &l.SupplierName,
			&l.ProductID, &l.ProductName, &l.DeliveryDate, &l.Quantity, &l.UnitCost); err != nil {
			return nil, fmt.Errorf("failed to scan delivery line: %w", err)
		}
		l.LineTotal = l.Quantity.Mul(l.UnitCost).Round(2)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
