// seed loads demo master data and opening stock into an empty database.
// Opening stock is booked as a supplier delivery so the movement history
// reconciles with the on-hand quantities.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/config"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/db"
)

type seedProduct struct {
	name         string
	baseCost     string
	sellingPrice string
	opening      string
}

var products = []seedProduct{
	{"Apples 1kg", "1.20", "1.90", "200"},
	{"Pears 1kg", "1.50", "2.30", "120"},
	{"Orange juice 1l", "0.80", "1.40", "300"},
	{"Sugar 1kg", "0.65", "0.95", "500"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	var existing int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&existing); err != nil {
		log.Fatalf("Failed to count products: %v", err)
	}
	if existing > 0 {
		logger.WithField("products", existing).Info("database already seeded, nothing to do")
		return
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Inserting employees, clients and suppliers...")
	if _, err := tx.Exec(ctx, `
		INSERT INTO employees (name, role) VALUES ('Olena', 'sales'), ('Taras', 'warehouse');
		INSERT INTO clients (name, phone) VALUES ('Corner Grocery', '+380501112233'), ('Cafe Lipa', '+380671234567');
		INSERT INTO addresses (client_id, address)
		SELECT id, name || ', main entrance' FROM clients;
		INSERT INTO suppliers (name, phone) VALUES ('Fresh Farms', '+380441234567');
	`); err != nil {
		log.Fatalf("Failed to insert parties: %v", err)
	}

	log.Println("Inserting products...")
	ids := make([]int, len(products))
	for i, p := range products {
		if err := tx.QueryRow(ctx, `
			INSERT INTO products (name, base_cost, selling_price) VALUES ($1, $2, $3) RETURNING id`,
			p.name, p.baseCost, p.sellingPrice,
		).Scan(&ids[i]); err != nil {
			log.Fatalf("Failed to insert product %s: %v", p.name, err)
		}
	}

	var supplierID int
	if err := tx.QueryRow(ctx, `SELECT id FROM suppliers ORDER BY id LIMIT 1`).Scan(&supplierID); err != nil {
		log.Fatalf("Failed to read supplier: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	disp := core.NewDispatcher(pool, logger, core.DispatcherOptions{AcquireTimeout: cfg.Database.AcquireTimeout})
	req := core.DeliveryRequest{
		SupplierID:    supplierID,
		InvoiceNumber: "OPENING-STOCK",
		Note:          "opening balance",
		Finalize:      true,
	}
	for i, p := range products {
		req.Lines = append(req.Lines, core.DeliveryLineInput{
			ProductID: ids[i],
			Quantity:  decimal.RequireFromString(p.opening),
			UnitCost:  decimal.RequireFromString(p.baseCost),
		})
	}
	res, err := disp.ReceiveDelivery(ctx, req)
	if err != nil {
		log.Fatalf("Failed to book opening stock: %v", err)
	}
	logger.WithField("supplier_invoice_id", res.SupplierInvoiceID).Info("seed complete")
}
