package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PayablesLedger owns supplier payment rows and the projection persisted on
// supplier invoices. It applies the same rules as the ReceivablesLedger.
type PayablesLedger interface {
	// TX-scoped operations: work within a caller-provided transaction.
	// Each returns the written payment, or nil when the call was a no-op.

	RecordPaymentTx(ctx context.Context, tx pgx.Tx, invoiceID int, method PaymentMethod, day time.Time, note string) (*SupplierPayment, error)
	RecordPartialPaymentTx(ctx context.Context, tx pgx.Tx, invoiceID int, newTotalPaid decimal.Decimal, method PaymentMethod, day time.Time, note string) (*SupplierPayment, error)
	ReversePaymentTx(ctx context.Context, tx pgx.Tx, invoiceID int, day time.Time, note string) (*SupplierPayment, error)
	// RecordReturnToSupplierCreditTx writes −Amount with method return_credit.
	// Without an invoice the credit stays on the supplier account only.
	RecordReturnToSupplierCreditTx(ctx context.Context, tx pgx.Tx, in SupplierCreditInput) (*SupplierPayment, error)
	// RefreshTx recomputes the stored projection after the invoice total changed.
	RefreshTx(ctx context.Context, tx pgx.Tx, invoiceID int) error

	// Standalone reads.
	GetPaymentState(ctx context.Context, invoiceID int, today time.Time) (*PaymentState, error)
	ListOutstanding(ctx context.Context, supplierID int, today time.Time) ([]PaymentState, error)
	ListPayments(ctx context.Context, invoiceID int) ([]SupplierPayment, error)
	// ListPaymentsBetween returns every supplier payment dated in [from, to].
	ListPaymentsBetween(ctx context.Context, from, to time.Time) ([]SupplierPayment, error)
}

type payablesLedger struct {
	pool *pgxpool.Pool
}

func NewPayablesLedger(pool *pgxpool.Pool) PayablesLedger {
	return &payablesLedger{pool: pool}
}

type supplierBill struct {
	invoiceID  int
	supplierID int
	total      decimal.Decimal
	storedPaid decimal.Decimal
	net        decimal.Decimal
}

func lockSupplierBill(ctx context.Context, tx pgx.Tx, op string, invoiceID int) (*supplierBill, error) {
	bill := supplierBill{invoiceID: invoiceID}
	err := tx.QueryRow(ctx, `
		SELECT supplier_id, total_amount, amount_paid
		FROM supplier_invoices WHERE id = $1
		FOR UPDATE
	`, invoiceID).Scan(&bill.supplierID, &bill.total, &bill.storedPaid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(op, "supplier invoice %d not found", invoiceID)
		}
		return nil, fmt.Errorf("failed to lock supplier invoice: %w", err)
	}
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM supplier_payments WHERE supplier_invoice_id = $1", invoiceID,
	).Scan(&bill.net); err != nil {
		return nil, fmt.Errorf("failed to sum supplier payments: %w", err)
	}
	return &bill, nil
}

func storeSupplierProjection(ctx context.Context, tx pgx.Tx, bill *supplierBill) error {
	if _, err := tx.Exec(ctx, `
		UPDATE supplier_invoices SET payment_status = $1, amount_paid = $2 WHERE id = $3
	`, string(StoredStatus(bill.total, bill.net)), ClampPaid(bill.net, bill.total), bill.invoiceID); err != nil {
		return fmt.Errorf("failed to update supplier invoice payment state: %w", err)
	}
	return nil
}

func insertSupplierPayment(ctx context.Context, tx pgx.Tx, p *SupplierPayment) error {
	p.PaymentDate = dateOnly(p.PaymentDate)
	err := tx.QueryRow(ctx, `
		INSERT INTO supplier_payments (supplier_id, supplier_invoice_id, delivery_id, amount, payment_method, payment_date, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, p.SupplierID, p.SupplierInvoiceID, p.DeliveryID, p.Amount, string(p.Method), p.PaymentDate, p.Note,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert supplier payment: %w", err)
	}
	return nil
}

// writeSupplierPayment stamps p with the bill's invoice and supplier, inserts
// it and refreshes the stored projection.
func writeSupplierPayment(ctx context.Context, tx pgx.Tx, bill *supplierBill, p SupplierPayment) (*SupplierPayment, error) {
	invoiceID := bill.invoiceID
	p.SupplierID = bill.supplierID
	p.SupplierInvoiceID = &invoiceID
	if err := insertSupplierPayment(ctx, tx, &p); err != nil {
		return nil, err
	}
	bill.net = bill.net.Add(p.Amount)
	if err := storeSupplierProjection(ctx, tx, bill); err != nil {
		return nil, err
	}
	return &p, nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *payablesLedger) RecordPaymentTx(ctx context.Context, tx pgx.Tx, invoiceID int, method PaymentMethod, day time.Time, note string) (*SupplierPayment, error) {
	bill, err := lockSupplierBill(ctx, tx, "record supplier payment", invoiceID)
	if err != nil {
		return nil, err
	}
	amount := FullPaymentAmount(bill.total, bill.net)
	if amount.IsZero() {
		return nil, nil
	}
	return writeSupplierPayment(ctx, tx, bill, SupplierPayment{Amount: amount, Method: defaultMethod(method), PaymentDate: day, Note: note})
}

func (s *payablesLedger) RecordPartialPaymentTx(ctx context.Context, tx pgx.Tx, invoiceID int, newTotalPaid decimal.Decimal, method PaymentMethod, day time.Time, note string) (*SupplierPayment, error) {
	const op = "record supplier partial payment"
	if newTotalPaid.IsNegative() {
		return nil, invalidAmount(op, "new total paid must not be negative, got %s", newTotalPaid.String())
	}
	bill, err := lockSupplierBill(ctx, tx, op, invoiceID)
	if err != nil {
		return nil, err
	}
	delta := PartialPaymentAmount(bill.total, bill.storedPaid, newTotalPaid)
	if delta.IsZero() {
		return nil, nil
	}
	return writeSupplierPayment(ctx, tx, bill, SupplierPayment{Amount: delta, Method: defaultMethod(method), PaymentDate: day, Note: note})
}

func (s *payablesLedger) ReversePaymentTx(ctx context.Context, tx pgx.Tx, invoiceID int, day time.Time, note string) (*SupplierPayment, error) {
	bill, err := lockSupplierBill(ctx, tx, "reverse supplier payment", invoiceID)
	if err != nil {
		return nil, err
	}
	amount := ReversalAmount(bill.net)
	if amount.IsZero() {
		return nil, nil
	}
	return writeSupplierPayment(ctx, tx, bill, SupplierPayment{Amount: amount, Method: MethodReversal, PaymentDate: day, Note: note})
}

func (s *payablesLedger) RecordReturnToSupplierCreditTx(ctx context.Context, tx pgx.Tx, in SupplierCreditInput) (*SupplierPayment, error) {
	const op = "record supplier credit"
	if !in.Amount.IsPositive() {
		return nil, invalidAmount(op, "credit amount must be positive, got %s", in.Amount.String())
	}
	amount := in.Amount.Round(2).Neg()

	if in.SupplierInvoiceID == nil {
		if err := requireSupplier(ctx, tx, op, in.SupplierID); err != nil {
			return nil, err
		}
		p := SupplierPayment{
			SupplierID:  in.SupplierID,
			DeliveryID:  in.DeliveryID,
			Amount:      amount,
			Method:      MethodReturnCredit,
			PaymentDate: in.PaymentDate,
			Note:        in.Note,
		}
		if err := insertSupplierPayment(ctx, tx, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}

	bill, err := lockSupplierBill(ctx, tx, op, *in.SupplierInvoiceID)
	if err != nil {
		return nil, err
	}
	if bill.supplierID != in.SupplierID {
		return nil, invalidState(op, "supplier invoice %d belongs to supplier %d, not %d",
			bill.invoiceID, bill.supplierID, in.SupplierID)
	}
	return writeSupplierPayment(ctx, tx, bill, SupplierPayment{
		DeliveryID:  in.DeliveryID,
		Amount:      amount,
		Method:      MethodReturnCredit,
		PaymentDate: in.PaymentDate,
		Note:        in.Note,
	})
}

func (s *payablesLedger) RefreshTx(ctx context.Context, tx pgx.Tx, invoiceID int) error {
	bill, err := lockSupplierBill(ctx, tx, "refresh supplier invoice", invoiceID)
	if err != nil {
		return err
	}
	return storeSupplierProjection(ctx, tx, bill)
}

// ── Standalone reads ──────────────────────────────────────────────────────────

const supplierStateQuery = `
	SELECT si.id, si.invoice_number, si.supplier_id, s.name, si.invoice_date, si.due_date, si.total_amount,
	       COALESCE(SUM(sp.amount) FILTER (WHERE sp.amount > 0), 0),
	       COALESCE(-(SUM(sp.amount) FILTER (WHERE sp.amount < 0)), 0)
	FROM supplier_invoices si
	JOIN suppliers s ON s.id = si.supplier_id
	LEFT JOIN supplier_payments sp ON sp.supplier_invoice_id = si.id`

func (s *payablesLedger) GetPaymentState(ctx context.Context, invoiceID int, today time.Time) (*PaymentState, error) {
	st, err := scanPaymentState(s.pool.QueryRow(ctx, supplierStateQuery+`
		WHERE si.id = $1
		GROUP BY si.id, s.name
	`, invoiceID), today)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("get supplier payment state", "supplier invoice %d not found", invoiceID)
		}
		return nil, fmt.Errorf("failed to project supplier payment state: %w", err)
	}
	return &st, nil
}

func (s *payablesLedger) ListOutstanding(ctx context.Context, supplierID int, today time.Time) ([]PaymentState, error) {
	rows, err := s.pool.Query(ctx, supplierStateQuery+`
		WHERE ($1 = 0 OR si.supplier_id = $1)
		GROUP BY si.id, s.name
		HAVING si.total_amount - COALESCE(SUM(sp.amount), 0) > 0
		ORDER BY si.invoice_date, si.id
	`, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outstanding supplier invoices: %w", err)
	}
	defer rows.Close()

	var states []PaymentState
	for rows.Next() {
		st, err := scanPaymentState(rows, today)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier invoice: %w", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

func (s *payablesLedger) ListPayments(ctx context.Context, invoiceID int) ([]SupplierPayment, error) {
	if err := requireRow(ctx, s.pool, "list supplier payments", "supplier_invoices", "supplier invoice", invoiceID); err != nil {
		return nil, err
	}
	return querySupplierPayments(ctx, s.pool, "sp.supplier_invoice_id = $1", invoiceID)
}

func (s *payablesLedger) ListPaymentsBetween(ctx context.Context, from, to time.Time) ([]SupplierPayment, error) {
	if to.Before(from) {
		return nil, invalidState("list supplier payments", "range end %s is before start %s",
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	return querySupplierPayments(ctx, s.pool, "sp.payment_date BETWEEN $1 AND $2", dateOnly(from), dateOnly(to))
}

func querySupplierPayments(ctx context.Context, q pgxQuerier, where string, args ...any) ([]SupplierPayment, error) {
	rows, err := q.Query(ctx, `
		SELECT sp.id, sp.supplier_id, s.name, sp.supplier_invoice_id, sp.delivery_id, sp.amount,
		       sp.payment_method, sp.payment_date, sp.note, sp.created_at
		FROM supplier_payments sp
		JOIN suppliers s ON s.id = sp.supplier_id
		WHERE `+where+`
		ORDER BY sp.payment_date, sp.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query supplier payments: %w", err)
	}
	defer rows.Close()

	var payments []SupplierPayment
	for rows.Next() {
		var (
			p      SupplierPayment
			method string
		)
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.SupplierName, &p.SupplierInvoiceID, &p.DeliveryID,
			&p.Amount, &method, &p.PaymentDate, &p.Note, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan supplier payment: %w", err)
		}
		p.Method = PaymentMethod(method)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
