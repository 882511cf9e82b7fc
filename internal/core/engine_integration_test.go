package core_test

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/db"
)

// Seeded master data ids.
const (
	productApples = 1 // base 3.00, sell 5.00
	productBolts  = 2 // base 1.50, sell 2.50
	productCable  = 3 // base 3.00, sell 6.00

	clientAcme = 1
	clientBeta = 2
	addrAcme   = 1
	addrBeta   = 2
	employee   = 1

	supplierNorth = 1
	supplierSouth = 2
)

// testClock is a settable engine clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type engine struct {
	pool    *pgxpool.Pool
	disp    *core.Dispatcher
	reports core.ReportingService
	clock   *testClock
	ctx     context.Context
}

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	return dbURL
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// setupEngine migrates and truncates the test database, seeds master data
// and returns a dispatcher on a fixed clock.
func setupEngine(t *testing.T, opts core.DispatcherOptions) *engine {
	t.Helper()
	dbURL := testDatabaseURL(t)

	if _, err := db.MigrateUp(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE supplier_payments, incoming_deliveries, supplier_invoices, client_payments,
			order_lines, orders, inventory_movements, stock, suppliers, employees, addresses, clients, products
			RESTART IDENTITY CASCADE;

		INSERT INTO products (name, base_cost, selling_price) VALUES
		('Apples', 3.00, 5.00),
		('Bolts',  1.50, 2.50),
		('Cable',  3.00, 6.00);

		INSERT INTO clients (name, phone) VALUES ('Acme Market', '+1-555-0100'), ('Beta Shop', '+1-555-0101');
		INSERT INTO addresses (client_id, address) VALUES (1, '12 Main St'), (2, '3 Side Rd');
		INSERT INTO employees (name, role) VALUES ('Dana', 'sales');
		INSERT INTO suppliers (name, phone) VALUES ('Northwind', '+1-555-0200'), ('Southwind', '+1-555-0201');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	clock := &testClock{now: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	disp := core.NewDispatcher(pool, quietLogger(), opts)
	return &engine{
		pool:    pool,
		disp:    disp,
		reports: core.NewReportingService(pool, disp),
		clock:   clock,
		ctx:     ctx,
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (e *engine) stockUp(t *testing.T, productID int, qty string) {
	t.Helper()
	if _, err := e.disp.AdjustInventory(e.ctx, core.AdjustmentRequest{
		ProductID: productID, Quantity: d(qty), Kind: core.MovementAdjustmentIn, Note: "opening count",
	}); err != nil {
		t.Fatalf("AdjustInventory(%d, %s) failed: %v", productID, qty, err)
	}
}

func (e *engine) onHand(t *testing.T, productID int) decimal.Decimal {
	t.Helper()
	qty, err := e.disp.Stock().GetOnHand(e.ctx, productID)
	if err != nil {
		t.Fatalf("GetOnHand(%d) failed: %v", productID, err)
	}
	return qty
}

func (e *engine) movements(t *testing.T, productID int) []core.StockMovement {
	t.Helper()
	ms, err := e.disp.Stock().GetMovements(e.ctx, productID, nil, nil)
	if err != nil {
		t.Fatalf("GetMovements(%d) failed: %v", productID, err)
	}
	return ms
}

func (e *engine) draft(t *testing.T, clientID, addressID int, lines ...core.OrderLineInput) int {
	t.Helper()
	id, err := e.disp.CreateOrder(e.ctx, core.CreateOrderRequest{
		ClientID: clientID, AddressID: addressID, EmployeeID: employee, Lines: lines,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	return id
}

func line(productID int, qty, price string) core.OrderLineInput {
	p := d(price)
	return core.OrderLineInput{ProductID: productID, Quantity: d(qty), UnitPrice: &p}
}

func (e *engine) confirmed(t *testing.T, clientID, addressID int, lines ...core.OrderLineInput) int {
	t.Helper()
	id := e.draft(t, clientID, addressID, lines...)
	if _, err := e.disp.ConfirmOrder(e.ctx, id); err != nil {
		t.Fatalf("ConfirmOrder(%d) failed: %v", id, err)
	}
	return id
}

func (e *engine) order(t *testing.T, id int) *core.Order {
	t.Helper()
	o, err := e.disp.Orders().GetOrder(e.ctx, id)
	if err != nil {
		t.Fatalf("GetOrder(%d) failed: %v", id, err)
	}
	return o
}

func (e *engine) clientState(t *testing.T, orderID int) *core.PaymentState {
	t.Helper()
	st, err := e.disp.Receivables().GetPaymentState(e.ctx, orderID, e.disp.Today())
	if err != nil {
		t.Fatalf("GetPaymentState(%d) failed: %v", orderID, err)
	}
	return st
}

func (e *engine) supplierState(t *testing.T, invoiceID int) *core.PaymentState {
	t.Helper()
	st, err := e.disp.Payables().GetPaymentState(e.ctx, invoiceID, e.disp.Today())
	if err != nil {
		t.Fatalf("Payables.GetPaymentState(%d) failed: %v", invoiceID, err)
	}
	return st
}

// checkInvariants fails the test on any reconciliation mismatch.
func (e *engine) checkInvariants(t *testing.T) {
	t.Helper()
	report, err := e.reports.CheckIntegrity(e.ctx)
	if err != nil {
		t.Fatalf("CheckIntegrity failed: %v", err)
	}
	for _, m := range report.Mismatches {
		t.Errorf("invariant %s on %s %d: %s", m.CheckType, m.EntityType, m.EntityID, m.Details)
	}
}

func expectKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}

// receiveS5 books supplier invoice SINV-42: Bolts 10 @ 2.00 and Cable 5 @ 4.00.
func (e *engine) receiveS5(t *testing.T) *core.DeliveryResult {
	t.Helper()
	res, err := e.disp.ReceiveDelivery(e.ctx, core.DeliveryRequest{
		SupplierID:    supplierNorth,
		InvoiceNumber: "SINV-42",
		Lines: []core.DeliveryLineInput{
			{ProductID: productBolts, Quantity: d("10"), UnitCost: d("2.00")},
			{ProductID: productCable, Quantity: d("5"), UnitCost: d("4.00")},
		},
	})
	if err != nil {
		t.Fatalf("ReceiveDelivery failed: %v", err)
	}
	return res
}
