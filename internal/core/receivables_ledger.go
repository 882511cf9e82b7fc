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

// ReceivablesLedger owns client payment rows and the payment projection
// persisted on confirmed orders (payment_status, amount_paid).
type ReceivablesLedger interface {
	// TX-scoped operations: work within a caller-provided transaction.
	// Each returns the written payment, or nil when the call was a no-op.

	RecordFullPaymentTx(ctx context.Context, tx pgx.Tx, orderID int, method PaymentMethod, day time.Time, note string) (*ClientPayment, error)
	RecordPartialPaymentTx(ctx context.Context, tx pgx.Tx, orderID int, newTotalPaid decimal.Decimal, method PaymentMethod, day time.Time, note string) (*ClientPayment, error)
	ReversePaymentTx(ctx context.Context, tx pgx.Tx, orderID int, day time.Time, note string) (*ClientPayment, error)
	RecordReturnCreditTx(ctx context.Context, tx pgx.Tx, in ReturnCreditInput) (*ClientPayment, error)

	// Standalone reads.
	GetPaymentState(ctx context.Context, orderID int, today time.Time) (*PaymentState, error)
	// ListOutstanding lists confirmed invoices with a positive outstanding
	// balance, oldest confirmation first. clientID 0 means every client.
	ListOutstanding(ctx context.Context, clientID int, today time.Time) ([]PaymentState, error)
	ListPayments(ctx context.Context, orderID int) ([]ClientPayment, error)
}

// ReturnCreditInput credits an invoice for goods a client sent back.
// The written row is −Quantity × UnitPrice.
type ReturnCreditInput struct {
	OrderID   int
	ProductID int
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Day       time.Time
	Note      string
}

type receivablesLedger struct {
	pool *pgxpool.Pool
}

func NewReceivablesLedger(pool *pgxpool.Pool) ReceivablesLedger {
	return &receivablesLedger{pool: pool}
}

// clientInvoice is a locked confirmed order with its current payment sums.
type clientInvoice struct {
	orderID    int
	clientID   int
	total      decimal.Decimal
	storedPaid decimal.Decimal
	net        decimal.Decimal
}

// lockClientInvoice locks the order row and rejects anything not confirmed.
func lockClientInvoice(ctx context.Context, tx pgx.Tx, op string, orderID int) (*clientInvoice, error) {
	inv := clientInvoice{orderID: orderID}
	var status string
	err := tx.QueryRow(ctx, `
		SELECT status, client_id, total_amount, amount_paid
		FROM orders WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&status, &inv.clientID, &inv.total, &inv.storedPaid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(op, "order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if OrderStatus(status) != OrderConfirmed {
		return nil, invalidState(op, "order %d is %s, payments need a confirmed invoice", orderID, status)
	}
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM client_payments WHERE order_id = $1", orderID,
	).Scan(&inv.net); err != nil {
		return nil, fmt.Errorf("failed to sum client payments: %w", err)
	}
	return &inv, nil
}

// writeClientPayment inserts one signed row and refreshes the order projection.
func writeClientPayment(ctx context.Context, tx pgx.Tx, inv *clientInvoice, amount decimal.Decimal,
	method PaymentMethod, day time.Time, note string) (*ClientPayment, error) {
	orderID := inv.orderID
	p := ClientPayment{
		ClientID:    inv.clientID,
		OrderID:     &orderID,
		Amount:      amount,
		Method:      method,
		PaymentDate: dateOnly(day),
		Note:        note,
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO client_payments (client_id, order_id, amount, payment_method, payment_date, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, p.ClientID, orderID, amount, string(method), p.PaymentDate, note).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert client payment: %w", err)
	}

	net := inv.net.Add(amount)
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET payment_status = $1, amount_paid = $2 WHERE id = $3
	`, string(StoredStatus(inv.total, net)), ClampPaid(net, inv.total), orderID); err != nil {
		return nil, fmt.Errorf("failed to update order payment state: %w", err)
	}
	inv.net = net
	return &p, nil
}

func defaultMethod(m PaymentMethod) PaymentMethod {
	if m == "" {
		return MethodCash
	}
	return m
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *receivablesLedger) RecordFullPaymentTx(ctx context.Context, tx pgx.Tx, orderID int, method PaymentMethod, day time.Time, note string) (*ClientPayment, error) {
	inv, err := lockClientInvoice(ctx, tx, "record full payment", orderID)
	if err != nil {
		return nil, err
	}
	amount := FullPaymentAmount(inv.total, inv.net)
	if amount.IsZero() {
		return nil, nil
	}
	return writeClientPayment(ctx, tx, inv, amount, defaultMethod(method), day, note)
}

func (s *receivablesLedger) RecordPartialPaymentTx(ctx context.Context, tx pgx.Tx, orderID int, newTotalPaid decimal.Decimal, method PaymentMethod, day time.Time, note string) (*ClientPayment, error) {
	const op = "record partial payment"
	if newTotalPaid.IsNegative() {
		return nil, invalidAmount(op, "new total paid must not be negative, got %s", newTotalPaid.String())
	}
	inv, err := lockClientInvoice(ctx, tx, op, orderID)
	if err != nil {
		return nil, err
	}
	delta := PartialPaymentAmount(inv.total, inv.storedPaid, newTotalPaid)
	if delta.IsZero() {
		return nil, nil
	}
	return writeClientPayment(ctx, tx, inv, delta, defaultMethod(method), day, note)
}

func (s *receivablesLedger) ReversePaymentTx(ctx context.Context, tx pgx.Tx, orderID int, day time.Time, note string) (*ClientPayment, error) {
	inv, err := lockClientInvoice(ctx, tx, "reverse payment", orderID)
	if err != nil {
		return nil, err
	}
	amount := ReversalAmount(inv.net)
	if amount.IsZero() {
		return nil, nil
	}
	return writeClientPayment(ctx, tx, inv, amount, MethodReversal, day, note)
}

func (s *receivablesLedger) RecordReturnCreditTx(ctx context.Context, tx pgx.Tx, in ReturnCreditInput) (*ClientPayment, error) {
	const op = "record return credit"
	if !in.Quantity.IsPositive() {
		return nil, invalidAmount(op, "quantity must be positive, got %s", in.Quantity.String())
	}
	if in.UnitPrice.IsNegative() {
		return nil, invalidAmount(op, "unit price must not be negative, got %s", in.UnitPrice.String())
	}
	inv, err := lockClientInvoice(ctx, tx, op, in.OrderID)
	if err != nil {
		return nil, err
	}
	credit := in.Quantity.Mul(in.UnitPrice).Round(2)
	if credit.IsZero() {
		return nil, nil
	}
	note := in.Note
	if note == "" {
		note = fmt.Sprintf("return of product %d x %s", in.ProductID, in.Quantity.String())
	}
	return writeClientPayment(ctx, tx, inv, credit.Neg(), MethodReturnCredit, in.Day, note)
}

// ── Standalone reads ──────────────────────────────────────────────────────────

const clientStateQuery = `
	SELECT o.id, o.invoice_number, o.client_id, c.name, o.confirmation_date, o.due_date, o.total_amount,
	       COALESCE(SUM(cp.amount) FILTER (WHERE cp.amount > 0), 0),
	       COALESCE(-(SUM(cp.amount) FILTER (WHERE cp.amount < 0)), 0)
	FROM orders o
	JOIN clients c ON c.id = o.client_id
	LEFT JOIN client_payments cp ON cp.order_id = o.id
	WHERE o.status = 'confirmed'`

func scanPaymentState(row pgx.Row, today time.Time) (PaymentState, error) {
	var (
		st                        PaymentState
		number                    *string
		total, received, credited decimal.Decimal
		invoiceDate, due          *time.Time
	)
	if err := row.Scan(&st.InvoiceID, &number, &st.PartyID, &st.PartyName, &invoiceDate, &due,
		&total, &received, &credited); err != nil {
		return PaymentState{}, err
	}
	projected := projectTotals(total, received, credited, due, today)
	projected.InvoiceID, projected.PartyID, projected.PartyName = st.InvoiceID, st.PartyID, st.PartyName
	projected.InvoiceDate = invoiceDate
	if number != nil {
		projected.InvoiceNumber = *number
	}
	return projected, nil
}

func (s *receivablesLedger) GetPaymentState(ctx context.Context, orderID int, today time.Time) (*PaymentState, error) {
	const op = "get payment state"
	var status string
	if err := s.pool.QueryRow(ctx, "SELECT status FROM orders WHERE id = $1", orderID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(op, "order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	if OrderStatus(status) != OrderConfirmed {
		return nil, invalidState(op, "order %d is %s and has no invoice", orderID, status)
	}

	st, err := scanPaymentState(s.pool.QueryRow(ctx, clientStateQuery+`
		AND o.id = $1
		GROUP BY o.id, c.name
	`, orderID), today)
	if err != nil {
		return nil, fmt.Errorf("failed to project payment state: %w", err)
	}
	return &st, nil
}

func (s *receivablesLedger) ListOutstanding(ctx context.Context, clientID int, today time.Time) ([]PaymentState, error) {
	rows, err := s.pool.Query(ctx, clientStateQuery+`
		AND ($1 = 0 OR o.client_id = $1)
		GROUP BY o.id, c.name
		HAVING o.total_amount - COALESCE(SUM(cp.amount), 0) > 0
		ORDER BY o.confirmation_date, o.id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outstanding invoices: %w", err)
	}
	defer rows.Close()

	var states []PaymentState
	for rows.Next() {
		st, err := scanPaymentState(rows, today)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outstanding invoice: %w", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

func (s *receivablesLedger) ListPayments(ctx context.Context, orderID int) ([]ClientPayment, error) {
	if err := requireRow(ctx, s.pool, "list client payments", "orders", "order", orderID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, order_id, amount, payment_method, payment_date, note, created_at
		FROM client_payments
		WHERE order_id = $1
		ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query client payments: %w", err)
	}
	defer rows.Close()

	var payments []ClientPayment
	for rows.Next() {
		var (
			p      ClientPayment
			method string
		)
		if err := rows.Scan(&p.ID, &p.ClientID, &p.OrderID, &p.Amount, &method, &p.PaymentDate, &p.Note, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client payment: %w", err)
		}
		p.Method = PaymentMethod(method)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
