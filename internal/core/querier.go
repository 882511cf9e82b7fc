package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ── Master data lookups shared by the ledgers ────────────────────────────────

func getProduct(ctx context.Context, q pgxQuerier, op string, productID int) (*Product, error) {
	var p Product
	err := q.QueryRow(ctx, `
		SELECT id, name, base_cost, selling_price, is_active, created_at
		FROM products WHERE id = $1
	`, productID).Scan(&p.ID, &p.Name, &p.BaseCost, &p.SellingPrice, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(op, "product %d not found", productID)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return &p, nil
}

func requireRow(ctx context.Context, q pgxQuerier, op, table, label string, id int) error {
	var exists bool
	// table is always a package constant, never user input.
	if err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", label, id, err)
	}
	if !exists {
		return notFound(op, "%s %d not found", label, id)
	}
	return nil
}

func requireClient(ctx context.Context, q pgxQuerier, op string, id int) error {
	return requireRow(ctx, q, op, "clients", "client", id)
}

func requireSupplier(ctx context.Context, q pgxQuerier, op string, id int) error {
	return requireRow(ctx, q, op, "suppliers", "supplier", id)
}

func requireEmployee(ctx context.Context, q pgxQuerier, op string, id int) error {
	return requireRow(ctx, q, op, "employees", "employee", id)
}
