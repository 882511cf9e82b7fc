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

// OrderBook owns client order headers and lines and the draft → confirmed
// lifecycle. Confirmation ships stock through the StockLedger in the same
// transaction.
type OrderBook interface {
	// TX-scoped operations: work within a caller-provided transaction.

	CreateDraftTx(ctx context.Context, tx pgx.Tx, in DraftOrderInput, today time.Time) (int, error)
	// EditDraftTx replaces every line of a draft and recomputes its total.
	EditDraftTx(ctx context.Context, tx pgx.Tx, orderID int, lines []OrderLineInput) error
	// CancelDraftTx deletes a draft and its lines.
	CancelDraftTx(ctx context.Context, tx pgx.Tx, orderID int) error
	// ConfirmTx moves a draft to confirmed, assigns the invoice number and
	// records one outgoing movement per line at the product base cost.
	ConfirmTx(ctx context.Context, tx pgx.Tx, orderID int, today time.Time, dueDate *time.Time) (string, error)
	// ProductIDsTx lists the distinct products on the given orders.
	ProductIDsTx(ctx context.Context, tx pgx.Tx, orderIDs []int) ([]int, error)
	GetOrderTx(ctx context.Context, tx pgx.Tx, orderID int) (*Order, error)

	// Standalone reads.
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	GetOrderByInvoiceNumber(ctx context.Context, invoiceNumber string) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
}

type orderBook struct {
	pool  *pgxpool.Pool
	stock StockLedger
}

func NewOrderBook(pool *pgxpool.Pool, stock StockLedger) OrderBook {
	return &orderBook{pool: pool, stock: stock}
}

// InvoiceNumber formats the client invoice number for an order confirmed on day.
func InvoiceNumber(day time.Time, orderID int) string {
	return fmt.Sprintf("INV-%s-%d", day.Format("20060102"), orderID)
}

type resolvedLine struct {
	productID int
	qty       decimal.Decimal
	unitPrice decimal.Decimal
}

// resolveLines checks every product and fills in default prices.
func resolveLines(ctx context.Context, q pgxQuerier, op string, lines []OrderLineInput) ([]resolvedLine, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, invalidState(op, "order must have at least one line")
	}
	resolved := make([]resolvedLine, 0, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		if !l.Quantity.IsPositive() {
			return nil, decimal.Zero, invalidAmount(op, "line %d: quantity must be positive", i+1)
		}
		product, err := getProduct(ctx, q, op, l.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		price := product.SellingPrice
		if l.UnitPrice != nil {
			if l.UnitPrice.IsNegative() {
				return nil, decimal.Zero, invalidAmount(op, "line %d: unit price must not be negative", i+1)
			}
			price = *l.UnitPrice
		}
		resolved = append(resolved, resolvedLine{productID: l.ProductID, qty: l.Quantity, unitPrice: price})
		total = total.Add(l.Quantity.Mul(price))
	}
	return resolved, total.Round(2), nil
}

func insertLines(ctx context.Context, tx pgx.Tx, orderID int, lines []resolvedLine) error {
	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, orderID, l.productID, l.qty, l.unitPrice); err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}
	return nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *orderBook) CreateDraftTx(ctx context.Context, tx pgx.Tx, in DraftOrderInput, today time.Time) (int, error) {
	const op = "create order"

	if err := requireClient(ctx, tx, op, in.ClientID); err != nil {
		return 0, err
	}
	var addressOwner int
	err := tx.QueryRow(ctx, "SELECT client_id FROM addresses WHERE id = $1", in.AddressID).Scan(&addressOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, notFound(op, "address %d not found", in.AddressID)
		}
		return 0, fmt.Errorf("failed to fetch address: %w", err)
	}
	if addressOwner != in.ClientID {
		return 0, invalidState(op, "address %d does not belong to client %d", in.AddressID, in.ClientID)
	}
	if err := requireEmployee(ctx, tx, op, in.EmployeeID); err != nil {
		return 0, err
	}

	lines, total, err := resolveLines(ctx, tx, op, in.Lines)
	if err != nil {
		return 0, err
	}

	orderDate := today
	if in.OrderDate != nil {
		orderDate = *in.OrderDate
	}

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (order_date, delivery_date, employee_id, client_id, address_id, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'draft')
		RETURNING id
	`, dateOnly(orderDate), in.DeliveryDate, in.EmployeeID, in.ClientID, in.AddressID, total).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	if err := insertLines(ctx, tx, orderID, lines); err != nil {
		return 0, err
	}
	return orderID, nil
}

// lockOrder locks the order header and returns its status and client.
func lockOrder(ctx context.Context, tx pgx.Tx, op string, orderID int) (OrderStatus, int, error) {
	var status string
	var clientID int
	err := tx.QueryRow(ctx, "SELECT status, client_id FROM orders WHERE id = $1 FOR UPDATE", orderID).
		Scan(&status, &clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, notFound(op, "order %d not found", orderID)
		}
		return "", 0, fmt.Errorf("failed to lock order: %w", err)
	}
	return OrderStatus(status), clientID, nil
}

func (s *orderBook) EditDraftTx(ctx context.Context, tx pgx.Tx, orderID int, lines []OrderLineInput) error {
	const op = "edit order"

	status, _, err := lockOrder(ctx, tx, op, orderID)
	if err != nil {
		return err
	}
	if status != OrderDraft {
		return invalidState(op, "order %d is %s, only draft orders can be edited", orderID, status)
	}

	resolved, total, err := resolveLines(ctx, tx, op, lines)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM order_lines WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("failed to clear order lines: %w", err)
	}
	if err := insertLines(ctx, tx, orderID, resolved); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "UPDATE orders SET total_amount = $1 WHERE id = $2", total, orderID); err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}
	return nil
}

func (s *orderBook) CancelDraftTx(ctx context.Context, tx pgx.Tx, orderID int) error {
	const op = "cancel order"

	status, _, err := lockOrder(ctx, tx, op, orderID)
	if err != nil {
		return err
	}
	if status != OrderDraft {
		return invalidState(op, "order %d is %s, only draft orders can be cancelled", orderID, status)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM orders WHERE id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

func (s *orderBook) ConfirmTx(ctx context.Context, tx pgx.Tx, orderID int, today time.Time, dueDate *time.Time) (string, error) {
	const op = "confirm order"

	status, _, err := lockOrder(ctx, tx, op, orderID)
	if err != nil {
		return "", err
	}
	if status != OrderDraft {
		return "", invalidState(op, "order %d is %s, only draft orders can be confirmed", orderID, status)
	}

	lines, err := fetchOrderLines(ctx, tx, orderID)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", invalidState(op, "order %d has no lines", orderID)
	}

	id := orderID
	for _, l := range lines {
		product, err := getProduct(ctx, tx, op, l.ProductID)
		if err != nil {
			return "", err
		}
		cost := product.BaseCost
		if _, err := s.stock.RecordMovementTx(ctx, tx, MovementInput{
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			Kind:          MovementOutgoing,
			UnitCost:      &cost,
			SourceDocKind: SourceOrder,
			SourceDocID:   &id,
			Note:          fmt.Sprintf("order %d", orderID),
		}); err != nil {
			return "", err
		}
	}

	number := InvoiceNumber(today, orderID)
	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = 'confirmed', invoice_number = $1, confirmation_date = $2, due_date = $3,
		    payment_status = 'unpaid', amount_paid = 0
		WHERE id = $4
	`, number, dateOnly(today), dueDate, orderID); err != nil {
		if isUniqueViolation(err) {
			return "", classify(op, err)
		}
		return "", fmt.Errorf("failed to confirm order: %w", err)
	}
	return number, nil
}

func (s *orderBook) ProductIDsTx(ctx context.Context, tx pgx.Tx, orderIDs []int) ([]int, error) {
	rows, err := tx.Query(ctx, `
		SELECT DISTINCT product_id FROM order_lines WHERE order_id = ANY($1) ORDER BY product_id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query order products: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *orderBook) GetOrderTx(ctx context.Context, tx pgx.Tx, orderID int) (*Order, error) {
	return getOrder(ctx, tx, "o.id = $1", orderID)
}

// ── Standalone reads ──────────────────────────────────────────────────────────

func (s *orderBook) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	return getOrder(ctx, s.pool, "o.id = $1", orderID)
}

func (s *orderBook) GetOrderByInvoiceNumber(ctx context.Context, invoiceNumber string) (*Order, error) {
	return getOrder(ctx, s.pool, "o.invoice_number = $1", invoiceNumber)
}

const orderColumns = `
	o.id, o.order_date, o.delivery_date, o.employee_id, o.client_id, c.name, o.address_id, a.address,
	o.total_amount, o.status, o.invoice_number, o.confirmation_date, o.due_date,
	o.payment_status, o.amount_paid, o.created_at`

func scanOrder(row pgx.Row, o *Order) error {
	var status, paymentStatus string
	if err := row.Scan(&o.ID, &o.OrderDate, &o.DeliveryDate, &o.EmployeeID, &o.ClientID, &o.ClientName,
		&o.AddressID, &o.Address, &o.TotalAmount, &status, &o.InvoiceNumber, &o.ConfirmationDate,
		&o.DueDate, &paymentStatus, &o.AmountPaid, &o.CreatedAt); err != nil {
		return err
	}
	o.Status = OrderStatus(status)
	o.PaymentStatus = PaymentStatus(paymentStatus)
	return nil
}

func getOrder(ctx context.Context, q pgxQuerier, where string, arg any) (*Order, error) {
	var o Order
	err := scanOrder(q.QueryRow(ctx, `
		SELECT`+orderColumns+`
		FROM orders o
		JOIN clients c ON c.id = o.client_id
		JOIN addresses a ON a.id = o.address_id
		WHERE `+where, arg), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("get order", "order %v not found", arg)
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	o.Lines, err = fetchOrderLines(ctx, q, o.ID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *orderBook) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	var orderDate *time.Time
	if filter.OrderDate != nil {
		d := dateOnly(*filter.OrderDate)
		orderDate = &d
	}
	rows, err := s.pool.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders o
		JOIN clients c ON c.id = o.client_id
		JOIN addresses a ON a.id = o.address_id
		WHERE ($1 = '' OR o.status = $1)
		  AND ($2 = 0 OR o.client_id = $2)
		  AND ($3::date IS NULL OR o.order_date = $3)
		ORDER BY o.order_date DESC, o.id DESC
	`, string(filter.Status), filter.ClientID, orderDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func fetchOrderLines(ctx context.Context, q pgxQuerier, orderID int) ([]OrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT l.id, l.order_id, l.product_id, p.name, l.quantity, l.unit_price
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1
		ORDER BY l.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		l.LineTotal = l.Quantity.Mul(l.UnitPrice).Round(2)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
