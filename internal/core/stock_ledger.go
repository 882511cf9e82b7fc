package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StockLedger owns on-hand quantities and the append-only movement log.
// Every change to stock.quantity goes through RecordMovementTx together with
// exactly one inventory_movements row.
type StockLedger interface {
	// TX-scoped operations: work within a caller-provided transaction.

	// RecordMovementTx applies one signed movement to the product's stock row.
	// Outflows that would take stock below zero fail with ErrInsufficientStock.
	RecordMovementTx(ctx context.Context, tx pgx.Tx, in MovementInput) (*StockMovement, error)
	// LockProductsTx creates missing stock rows and locks them in ascending
	// product id order. Callers touching several products lock them first.
	LockProductsTx(ctx context.Context, tx pgx.Tx, productIDs []int) error
	// ReturnedToSupplierTx sums the quantity already sent back against a delivery line.
	ReturnedToSupplierTx(ctx context.Context, tx pgx.Tx, deliveryID int) (decimal.Decimal, error)
	// ReturnedFromOrderTx sums the quantity of a product a client has returned against an order.
	ReturnedFromOrderTx(ctx context.Context, tx pgx.Tx, orderID, productID int) (decimal.Decimal, error)

	// Standalone reads.
	GetOnHand(ctx context.Context, productID int) (decimal.Decimal, error)
	GetStockLevels(ctx context.Context) ([]StockLevel, error)
	GetMovements(ctx context.Context, productID int, from, to *time.Time) ([]StockMovement, error)
}

type stockLedger struct {
	pool *pgxpool.Pool
}

func NewStockLedger(pool *pgxpool.Pool) StockLedger {
	return &stockLedger{pool: pool}
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *stockLedger) RecordMovementTx(ctx context.Context, tx pgx.Tx, in MovementInput) (*StockMovement, error) {
	const op = "record movement"

	sign, err := in.Kind.Sign()
	if err != nil {
		return nil, invalidState(op, "%v", err)
	}
	if !in.SourceDocKind.Valid() {
		return nil, invalidState(op, "unknown source document kind %q", string(in.SourceDocKind))
	}
	if !in.Quantity.IsPositive() {
		return nil, invalidAmount(op, "quantity must be positive, got %s", in.Quantity.String())
	}
	if exceedsScale(in.Quantity, quantityScale) {
		return nil, invalidAmount(op, "quantity %s has more than %d decimal places", in.Quantity.String(), quantityScale)
	}

	product, err := getProduct(ctx, tx, op, in.ProductID)
	if err != nil {
		return nil, err
	}

	unitCost, err := s.resolveUnitCost(ctx, tx, op, in, sign, product)
	if err != nil {
		return nil, err
	}

	onHand, err := lockStockRow(ctx, tx, in.ProductID)
	if err != nil {
		return nil, err
	}

	change := in.Quantity
	if sign < 0 {
		change = in.Quantity.Neg()
	}
	newQty := onHand.Add(change)
	if newQty.IsNegative() {
		return nil, insufficientStock(op, "product %d (%s): on hand %s, requested %s",
			product.ID, product.Name, onHand.String(), in.Quantity.String())
	}

	m := StockMovement{
		ProductID:      in.ProductID,
		ProductName:    product.Name,
		QuantityChange: change,
		Kind:           in.Kind,
		UnitCost:       unitCost,
		SourceDocKind:  in.SourceDocKind,
		SourceDocID:    in.SourceDocID,
		Note:           in.Note,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO inventory_movements
			(product_id, quantity_change, movement_kind, unit_cost, source_doc_kind, source_doc_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, in.ProductID, change, string(in.Kind), unitCost, nullableSource(in.SourceDocKind), in.SourceDocID, in.Note,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert inventory movement: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE stock SET quantity = $1, updated_at = NOW() WHERE product_id = $2
	`, newQty, in.ProductID); err != nil {
		return nil, fmt.Errorf("failed to update stock for product %d: %w", in.ProductID, err)
	}

	return &m, nil
}

// resolveUnitCost applies the costing rules:
// inflows must carry a cost; outflows default to the delivery line's cost for
// supplier returns and to the product base cost otherwise.
func (s *stockLedger) resolveUnitCost(ctx context.Context, tx pgx.Tx, op string, in MovementInput, sign int, product *Product) (decimal.Decimal, error) {
	if in.UnitCost != nil {
		if in.UnitCost.IsNegative() {
			return decimal.Zero, invalidAmount(op, "unit cost must not be negative, got %s", in.UnitCost.String())
		}
		if exceedsScale(*in.UnitCost, moneyScale) {
			return decimal.Zero, invalidAmount(op, "unit cost %s has more than %d decimal places", in.UnitCost.String(), moneyScale)
		}
		return *in.UnitCost, nil
	}
	if sign > 0 {
		return decimal.Zero, missingUnitCost(op, "%s movement for product %d needs a unit cost", in.Kind, in.ProductID)
	}
	if in.SourceDocKind == SourceReturnToSupplier && in.SourceDocID != nil {
		var cost decimal.Decimal
		err := tx.QueryRow(ctx, "SELECT unit_cost FROM incoming_deliveries WHERE id = $1", *in.SourceDocID).Scan(&cost)
		if err == nil {
			return cost, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("failed to read delivery cost: %w", err)
		}
	}
	return product.BaseCost, nil
}

func (s *stockLedger) LockProductsTx(ctx context.Context, tx pgx.Tx, productIDs []int) error {
	ids := uniqueSorted(productIDs)
	if len(ids) == 0 {
		return nil
	}

	rows, err := tx.Query(ctx, "SELECT id FROM products WHERE id = ANY($1)", ids)
	if err != nil {
		return fmt.Errorf("failed to resolve products: %w", err)
	}
	found := make(map[int]bool, len(ids))
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan product id: %w", err)
		}
		found[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to resolve products: %w", err)
	}
	for _, id := range ids {
		if !found[id] {
			return notFound("lock products", "product %d not found", id)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO stock (product_id, quantity)
		SELECT unnest($1::int[]), 0
		ON CONFLICT (product_id) DO NOTHING
	`, ids); err != nil {
		return fmt.Errorf("failed to create stock rows: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		SELECT product_id FROM stock WHERE product_id = ANY($1) ORDER BY product_id FOR UPDATE
	`, ids); err != nil {
		return fmt.Errorf("failed to lock stock rows: %w", err)
	}
	return nil
}

func (s *stockLedger) ReturnedToSupplierTx(ctx context.Context, tx pgx.Tx, deliveryID int) (decimal.Decimal, error) {
	var returned decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(-quantity_change), 0)
		FROM inventory_movements
		WHERE source_doc_kind = 'return_to_supplier' AND source_doc_id = $1
	`, deliveryID).Scan(&returned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum returned quantity: %w", err)
	}
	return returned, nil
}

func (s *stockLedger) ReturnedFromOrderTx(ctx context.Context, tx pgx.Tx, orderID, productID int) (decimal.Decimal, error) {
	var returned decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_change), 0)
		FROM inventory_movements
		WHERE source_doc_kind = 'return' AND source_doc_id = $1 AND product_id = $2
	`, orderID, productID).Scan(&returned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum returned quantity: %w", err)
	}
	return returned, nil
}

// lockStockRow ensures a stock row exists for the product and locks it.
// Returns the current on-hand quantity.
func lockStockRow(ctx context.Context, tx pgx.Tx, productID int) (decimal.Decimal, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock (product_id, quantity) VALUES ($1, 0)
		ON CONFLICT (product_id) DO NOTHING
	`, productID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to upsert stock row: %w", err)
	}
	var onHand decimal.Decimal
	if err := tx.QueryRow(ctx,
		"SELECT quantity FROM stock WHERE product_id = $1 FOR UPDATE", productID,
	).Scan(&onHand); err != nil {
		return decimal.Zero, fmt.Errorf("failed to lock stock row: %w", err)
	}
	return onHand, nil
}

func nullableSource(k SourceDocKind) any {
	if k == SourceNone {
		return nil
	}
	return string(k)
}

func uniqueSorted(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// ── Standalone reads ──────────────────────────────────────────────────────────

func (s *stockLedger) GetOnHand(ctx context.Context, productID int) (decimal.Decimal, error) {
	var onHand decimal.Decimal
	err := s.pool.QueryRow(ctx, "SELECT quantity FROM stock WHERE product_id = $1", productID).Scan(&onHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read stock: %w", err)
	}
	return onHand, nil
}

func (s *stockLedger) GetStockLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, COALESCE(st.quantity, 0), p.base_cost, p.selling_price
		FROM products p
		LEFT JOIN stock st ON st.product_id = p.id
		WHERE p.is_active = true
		ORDER BY p.name, p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.OnHand, &l.BaseCost, &l.SellingPrice); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		l.StockValue = l.OnHand.Mul(l.BaseCost).Round(2)
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// GetMovements returns a product's movements oldest first. from and to bound
// created_at inclusively when set.
func (s *stockLedger) GetMovements(ctx context.Context, productID int, from, to *time.Time) ([]StockMovement, error) {
	if err := requireRow(ctx, s.pool, "get movements", "products", "product", productID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.product_id, p.name, m.quantity_change, m.movement_kind, m.unit_cost,
		       m.source_doc_kind, m.source_doc_id, m.note, m.created_at
		FROM inventory_movements m
		JOIN products p ON p.id = m.product_id
		WHERE m.product_id = $1
		  AND ($2::timestamptz IS NULL OR m.created_at >= $2)
		  AND ($3::timestamptz IS NULL OR m.created_at <= $3)
		ORDER BY m.created_at, m.id
	`, productID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var (
			m      StockMovement
			kind   string
			source *string
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.QuantityChange, &kind, &m.UnitCost,
			&source, &m.SourceDocID, &m.Note, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		m.Kind = MovementKind(kind)
		if source != nil {
			m.SourceDocKind = SourceDocKind(*source)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
