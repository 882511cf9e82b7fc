package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MasterDataService exposes read access to products, clients, addresses,
// employees and suppliers. Master data is maintained outside the engine.
type MasterDataService interface {
	GetProduct(ctx context.Context, id int) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	GetClient(ctx context.Context, id int) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	ListAddresses(ctx context.Context, clientID int) ([]Address, error)
	GetEmployee(ctx context.Context, id int) (*Employee, error)
	GetSupplier(ctx context.Context, id int) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
}

type masterDataService struct {
	pool *pgxpool.Pool
}

func NewMasterDataService(pool *pgxpool.Pool) MasterDataService {
	return &masterDataService{pool: pool}
}

func (s *masterDataService) GetProduct(ctx context.Context, id int) (*Product, error) {
	return getProduct(ctx, s.pool, "get product", id)
}

func (s *masterDataService) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, base_cost, selling_price, is_active, created_at
		FROM products
		WHERE is_active = true
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.BaseCost, &p.SellingPrice, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *masterDataService) GetClient(ctx context.Context, id int) (*Client, error) {
	var c Client
	err := s.pool.QueryRow(ctx, "SELECT id, name, phone, created_at FROM clients WHERE id = $1", id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("get client", "client %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	return &c, nil
}

func (s *masterDataService) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, phone, created_at FROM clients ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *masterDataService) ListAddresses(ctx context.Context, clientID int) ([]Address, error) {
	if err := requireClient(ctx, s.pool, "list addresses", clientID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		"SELECT id, client_id, address FROM addresses WHERE client_id = $1 ORDER BY id", clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var addresses []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Address); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func (s *masterDataService) GetEmployee(ctx context.Context, id int) (*Employee, error) {
	var e Employee
	err := s.pool.QueryRow(ctx, "SELECT id, name, role, created_at FROM employees WHERE id = $1", id).
		Scan(&e.ID, &e.Name, &e.Role, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("get employee", "employee %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch employee: %w", err)
	}
	return &e, nil
}

func (s *masterDataService) GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	var sup Supplier
	err := s.pool.QueryRow(ctx, "SELECT id, name, phone, created_at FROM suppliers WHERE id = $1", id).
		Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("get supplier", "supplier %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch supplier: %w", err)
	}
	return &sup, nil
}

func (s *masterDataService) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, phone, created_at FROM suppliers ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var sup Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}
