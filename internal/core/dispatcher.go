package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/config"
)

const defaultAcquireTimeout = 60 * time.Second

// DispatcherOptions tunes a Dispatcher. Zero values take the defaults.
type DispatcherOptions struct {
	// AcquireTimeout bounds the wait for a pooled connection (default 60s).
	AcquireTimeout time.Duration
	// ClientPaymentTermsDays sets due_date = confirmation date + N days; 0 leaves it empty.
	ClientPaymentTermsDays int
	// Now is the engine clock (default time.Now).
	Now func() time.Time
}

// Dispatcher maps each business event onto exactly one database transaction
// spanning every ledger the event touches. Either all effects commit or none do.
//
// Lock order inside an event: stock rows in ascending product id, then the
// order or supplier invoice row.
type Dispatcher struct {
	pool *pgxpool.Pool
	log  *logrus.Logger

	stock       StockLedger
	orders      OrderBook
	receivables ReceivablesLedger
	invoices    SupplierInvoiceBook
	payables    PayablesLedger
	masterData  MasterDataService

	acquireTimeout time.Duration
	termsDays      int
	now            func() time.Time
}

func NewDispatcher(pool *pgxpool.Pool, logger *logrus.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = defaultAcquireTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	stock := NewStockLedger(pool)
	return &Dispatcher{
		pool:           pool,
		log:            logger,
		stock:          stock,
		orders:         NewOrderBook(pool, stock),
		receivables:    NewReceivablesLedger(pool),
		invoices:       NewSupplierInvoiceBook(pool, stock),
		payables:       NewPayablesLedger(pool),
		masterData:     NewMasterDataService(pool),
		acquireTimeout: opts.AcquireTimeout,
		termsDays:      opts.ClientPaymentTermsDays,
		now:            opts.Now,
	}
}

func (d *Dispatcher) Stock() StockLedger                     { return d.stock }
func (d *Dispatcher) Orders() OrderBook                      { return d.orders }
func (d *Dispatcher) Receivables() ReceivablesLedger         { return d.receivables }
func (d *Dispatcher) SupplierInvoices() SupplierInvoiceBook { return d.invoices }
func (d *Dispatcher) Payables() PayablesLedger               { return d.payables }
func (d *Dispatcher) MasterData() MasterDataService          { return d.masterData }

// Today is the engine's business date.
func (d *Dispatcher) Today() time.Time { return dateOnly(d.now()) }

// inTx acquires a connection within the acquire timeout, runs fn in one
// transaction and commits. Failures are classified, logged and returned.
func (d *Dispatcher) inTx(ctx context.Context, event string, fields logrus.Fields, fn func(tx pgx.Tx) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, d.acquireTimeout)
	conn, err := d.pool.Acquire(acquireCtx)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			err = &EngineError{Kind: ErrTransient, Op: event, Msg: "no database connection available", Err: err}
		} else {
			err = fmt.Errorf("%s: %w", event, err)
		}
		return d.fail(event, fields, err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return d.fail(event, fields, classify(event, fmt.Errorf("begin transaction: %w", err)))
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return d.fail(event, fields, classify(event, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return d.fail(event, fields, classify(event, fmt.Errorf("commit: %w", err)))
	}

	d.log.WithFields(fields).WithField("event", event).Info("event committed")
	return nil
}

func (d *Dispatcher) fail(event string, fields logrus.Fields, err error) error {
	data := logrus.Fields{"kind": KindOf(err)}
	for k, v := range fields {
		data[k] = v
	}
	config.LogError(d.log, "core", event, "event rolled back", data, err)
	return err
}

func (d *Dispatcher) dueDate(confirmed time.Time) *time.Time {
	if d.termsDays <= 0 {
		return nil
	}
	due := confirmed.AddDate(0, 0, d.termsDays)
	return &due
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (d *Dispatcher) CreateOrder(ctx context.Context, req CreateOrderRequest) (int, error) {
	const event = "CreateOrder"
	fields := logrus.Fields{"client_id": req.ClientID, "lines": len(req.Lines)}
	if err := validateRequest(event, req); err != nil {
		return 0, d.fail(event, fields, err)
	}

	var orderID int
	err := d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		var err error
		orderID, err = d.orders.CreateDraftTx(ctx, tx, DraftOrderInput{
			ClientID:     req.ClientID,
			AddressID:    req.AddressID,
			EmployeeID:   req.EmployeeID,
			OrderDate:    req.OrderDate,
			DeliveryDate: req.DeliveryDate,
			Lines:        req.Lines,
		}, d.Today())
		return err
	})
	return orderID, err
}

func (d *Dispatcher) EditOrder(ctx context.Context, orderID int, lines []OrderLineInput) error {
	const event = "EditOrder"
	fields := logrus.Fields{"order_id": orderID, "lines": len(lines)}
	if err := validateRequest(event, struct {
		Lines []OrderLineInput `validate:"dive"`
	}{lines}); err != nil {
		return d.fail(event, fields, err)
	}
	return d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		return d.orders.EditDraftTx(ctx, tx, orderID, lines)
	})
}

func (d *Dispatcher) CancelOrder(ctx context.Context, orderID int) error {
	return d.CancelOrders(ctx, []int{orderID})
}

// CancelOrders deletes every listed draft, or none of them.
func (d *Dispatcher) CancelOrders(ctx context.Context, orderIDs []int) error {
	const event = "CancelOrders"
	ids := uniqueSorted(orderIDs)
	fields := logrus.Fields{"order_ids": ids}
	return d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		for _, id := range ids {
			if err := d.orders.CancelDraftTx(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// ConfirmOrder confirms one draft and returns its invoice number.
func (d *Dispatcher) ConfirmOrder(ctx context.Context, orderID int) (string, error) {
	confirmed, err := d.confirm(ctx, "ConfirmOrder", []int{orderID})
	if err != nil {
		return "", err
	}
	return confirmed[0].InvoiceNumber, nil
}

// ConfirmOrders confirms every listed draft in one transaction. One failure
// leaves all of them draft.
func (d *Dispatcher) ConfirmOrders(ctx context.Context, orderIDs []int) ([]ConfirmedInvoice, error) {
	return d.confirm(ctx, "ConfirmOrders", orderIDs)
}

func (d *Dispatcher) confirm(ctx context.Context, event string, orderIDs []int) ([]ConfirmedInvoice, error) {
	ids := uniqueSorted(orderIDs)
	fields := logrus.Fields{"order_ids": ids}
	if len(ids) == 0 {
		return nil, d.fail(event, fields, invalidState(event, "no orders to confirm"))
	}

	today := d.Today()
	var confirmed []ConfirmedInvoice
	err := d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		productIDs, err := d.orders.ProductIDsTx(ctx, tx, ids)
		if err != nil {
			return err
		}
		if err := d.stock.LockProductsTx(ctx, tx, productIDs); err != nil {
			return err
		}
		for _, id := range ids {
			number, err := d.orders.ConfirmTx(ctx, tx, id, today, d.dueDate(today))
			if err != nil {
				return err
			}
			confirmed = append(confirmed, ConfirmedInvoice{OrderID: id, InvoiceNumber: number})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// ── Client payments and returns ───────────────────────────────────────────────

// RecordFullPayment settles the invoice. It returns nil when nothing was owed.
func (d *Dispatcher) RecordFullPayment(ctx context.Context, req PaymentRequest) (*ClientPayment, error) {
	const event = "RecordFullPayment"
	var p *ClientPayment
	err := d.inTx(ctx, event, logrus.Fields{"order_id": req.OrderID}, func(tx pgx.Tx) error {
		var err error
		p, err = d.receivables.RecordFullPaymentTx(ctx, tx, req.OrderID, req.Method, d.Today(), req.Note)
		return err
	})
	return p, err
}

func (d *Dispatcher) RecordPartialPayment(ctx context.Context, req PartialPaymentRequest) (*ClientPayment, error) {
	const event = "RecordPartialPayment"
	fields := logrus.Fields{"order_id": req.OrderID, "new_total_paid": req.NewTotalPaid.String()}
	if err := validateRequest(event, req); err != nil {
		return nil, d.fail(event, fields, err)
	}
	var p *ClientPayment
	err := d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		var err error
		p, err = d.receivables.RecordPartialPaymentTx(ctx, tx, req.OrderID, req.NewTotalPaid, req.Method, d.Today(), req.Note)
		return err
	})
	return p, err
}

func (d *Dispatcher) ReversePayment(ctx context.Context, orderID int, note string) (*ClientPayment, error) {
	const event = "ReversePayment"
	var p *ClientPayment
	err := d.inTx(ctx, event, logrus.Fields{"order_id": orderID}, func(tx pgx.Tx) error {
		var err error
		p, err = d.receivables.ReversePaymentTx(ctx, tx, orderID, d.Today(), note)
		return err
	})
	return p, err
}

func (d *Dispatcher) ClientReturn(ctx context.Context, req ClientReturnRequest) (*ClientReturnResult, error) {
	const event = "ClientReturn"
	fields := logrus.Fields{"client_id": req.ClientID, "product_id": req.ProductID, "quantity": req.Quantity.String()}
	if req.OrderID != nil {
		fields["order_id"] = *req.OrderID
	}
	if err := validateRequest(event, req); err != nil {
		return nil, d.fail(event, fields, err)
	}

	var result ClientReturnResult
	err := d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		if err := d.stock.LockProductsTx(ctx, tx, []int{req.ProductID}); err != nil {
			return err
		}
		if err := requireClient(ctx, tx, event, req.ClientID); err != nil {
			return err
		}
		product, err := getProduct(ctx, tx, event, req.ProductID)
		if err != nil {
			return err
		}

		var order *Order
		if req.OrderID != nil {
			order, err = d.orders.GetOrderTx(ctx, tx, *req.OrderID)
			if err != nil {
				return err
			}
			if order.ClientID != req.ClientID {
				return invalidState(event, "order %d belongs to client %d, not %d", order.ID, order.ClientID, req.ClientID)
			}
			ordered := orderedQuantity(order, req.ProductID)
			if !ordered.IsPositive() {
				return invalidState(event, "product %d is not on order %d", req.ProductID, order.ID)
			}
			returned, err := d.stock.ReturnedFromOrderTx(ctx, tx, order.ID, req.ProductID)
			if err != nil {
				return err
			}
			if returned.Add(req.Quantity).GreaterThan(ordered) {
				return invalidState(event, "order %d product %d: ordered %s, already returned %s, requested %s",
					order.ID, req.ProductID, ordered.String(), returned.String(), req.Quantity.String())
			}
		}

		cost := product.BaseCost
		result.Movement, err = d.stock.RecordMovementTx(ctx, tx, MovementInput{
			ProductID:     req.ProductID,
			Quantity:      req.Quantity,
			Kind:          MovementReturnIn,
			UnitCost:      &cost,
			SourceDocKind: SourceReturn,
			SourceDocID:   req.OrderID,
			Note:          req.Note,
		})
		if err != nil {
			return err
		}

		if order != nil && order.Status == OrderConfirmed {
			result.Credit, err = d.receivables.RecordReturnCreditTx(ctx, tx, ReturnCreditInput{
				OrderID:   order.ID,
				ProductID: req.ProductID,
				Quantity:  req.Quantity,
				UnitPrice: product.SellingPrice,
				Day:       d.Today(),
				Note:      req.Note,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// orderedQuantity sums the product's quantity over the order's lines.
func orderedQuantity(o *Order, productID int) decimal.Decimal {
	qty := decimal.Zero
	for _, l := range o.Lines {
		if l.ProductID == productID {
			qty = qty.Add(l.Quantity)
		}
	}
	return qty
}

// ── Supplier side ─────────────────────────────────────────────────────────────

// ReceiveDelivery creates the supplier invoice and appends every line.
func (d *Dispatcher) ReceiveDelivery(ctx context.Context, req DeliveryRequest) (*DeliveryResult, error) {
	const event = "ReceiveDelivery"
	fields := logrus.Fields{"supplier_id": req.SupplierID, "invoice_number": req.InvoiceNumber, "lines": len(req.Lines)}
	if err := validateRequest(event, req); err != nil {
		return nil, d.fail(event, fields, err)
	}
	if req.Finalize && len(req.Lines) == 0 {
		return nil, d.fail(event, fields, invalidState(event, "cannot finalize an invoice without lines"))
	}

	today := d.Today()
	var result DeliveryResult
	err := d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		var err error
		result.SupplierInvoiceID, err = d.invoices.CreateTx(ctx, tx, SupplierInvoiceInput{
			SupplierID:    req.SupplierID,
			InvoiceNumber: req.InvoiceNumber,
			InvoiceDate:   req.InvoiceDate,
			DueDate:       req.DueDate,
			Note:          req.Note,
		}, today)
		if err != nil {
			return err
		}

		productIDs := make([]int, 0, len(req.Lines))
		for _, l := range req.Lines {
			productIDs = append(productIDs, l.ProductID)
		}
		if err := d.stock.LockProductsTx(ctx, tx, productIDs); err != nil {
			return err
		}

		for _, l := range req.Lines {
			deliveryID, err := d.invoices.AppendLineTx(ctx, tx, result.SupplierInvoiceID, l, today)
			if err != nil {
				return err
			}
			result.DeliveryIDs = append(result.DeliveryIDs, deliveryID)
		}
		if err := d.payables.RefreshTx(ctx, tx, result.SupplierInvoiceID); err != nil {
			return err
		}
		if req.Finalize {
			return d.invoices.FinalizeTx(ctx, tx, result.SupplierInvoiceID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (d *Dispatcher) CreateSupplierInvoice(ctx context.Context, in SupplierInvoiceInput) (int, error) {
	const event = "CreateSupplierInvoice"
	var id int
	err := d.inTx(ctx, event, logrus.Fields{"supplier_id": in.SupplierID, "invoice_number": in.InvoiceNumber}, func(tx pgx.Tx) error {
		var err error
		id, err = d.invoices.CreateTx(ctx, tx, in, d.Today())
		return err
	})
	return id, err
}

// AppendDeliveryLine adds one line to an open supplier invoice.
func (d *Dispatcher) AppendDeliveryLine(ctx context.Context, invoiceID int, line DeliveryLineInput) (int, error) {
	const event = "AppendDeliveryLine"
	fields := logrus.Fields{"supplier_invoice_id": invoiceID, "product_id": line.ProductID}
	if err := validateRequest(event, line); err != nil {
		return 0, d.fail(event, fields, err)
	}
	var deliveryID int
	err := d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		if err := d.stock.LockProductsTx(ctx, tx, []int{line.ProductID}); err != nil {
			return err
		}
		var err error
		deliveryID, err = d.invoices.AppendLineTx(ctx, tx, invoiceID, line, d.Today())
		if err != nil {
			return err
		}
		return d.payables.RefreshTx(ctx, tx, invoiceID)
	})
	return deliveryID, err
}

func (d *Dispatcher) FinalizeSupplierInvoice(ctx context.Context, invoiceID int) error {
	return d.inTx(ctx, "FinalizeSupplierInvoice", logrus.Fields{"supplier_invoice_id": invoiceID}, func(tx pgx.Tx) error {
		return d.invoices.FinalizeTx(ctx, tx, invoiceID)
	})
}

func (d *Dispatcher) RecordSupplierPayment(ctx context.Context, req SupplierPaymentRequest) (*SupplierPayment, error) {
	const event = "RecordSupplierPayment"
	var p *SupplierPayment
	err := d.inTx(ctx, event, logrus.Fields{"supplier_invoice_id": req.SupplierInvoiceID}, func(tx pgx.Tx) error {
		var err error
		p, err = d.payables.RecordPaymentTx(ctx, tx, req.SupplierInvoiceID, req.Method, d.Today(), req.Note)
		return err
	})
	return p, err
}

func (d *Dispatcher) RecordSupplierPartialPayment(ctx context.Context, req SupplierPartialPaymentRequest) (*SupplierPayment, error) {
	const event = "RecordSupplierPartialPayment"
	fields := logrus.Fields{"supplier_invoice_id": req.SupplierInvoiceID, "new_total_paid": req.NewTotalPaid.String()}
	if err := validateRequest(event, req); err != nil {
		return nil, d.fail(event, fields, err)
	}
	var p *SupplierPayment
	err := d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		var err error
		p, err = d.payables.RecordPartialPaymentTx(ctx, tx, req.SupplierInvoiceID, req.NewTotalPaid, req.Method, d.Today(), req.Note)
		return err
	})
	return p, err
}

func (d *Dispatcher) ReverseSupplierPayment(ctx context.Context, invoiceID int, note string) (*SupplierPayment, error) {
	const event = "ReverseSupplierPayment"
	var p *SupplierPayment
	err := d.inTx(ctx, event, logrus.Fields{"supplier_invoice_id": invoiceID}, func(tx pgx.Tx) error {
		var err error
		p, err = d.payables.ReversePaymentTx(ctx, tx, invoiceID, d.Today(), note)
		return err
	})
	return p, err
}

// ReturnToSupplier ships goods back and books the supplier credit at the cost
// they came in at.
func (d *Dispatcher) ReturnToSupplier(ctx context.Context, req SupplierReturnRequest) (*SupplierReturnResult, error) {
	const event = "ReturnToSupplier"
	fields := logrus.Fields{"supplier_id": req.SupplierID, "product_id": req.ProductID, "quantity": req.Quantity.String()}
	if req.DeliveryID != nil {
		fields["delivery_id"] = *req.DeliveryID
	}
	if err := validateRequest(event, req); err != nil {
		return nil, d.fail(event, fields, err)
	}

	var result SupplierReturnResult
	err := d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		if err := d.stock.LockProductsTx(ctx, tx, []int{req.ProductID}); err != nil {
			return err
		}
		if err := requireSupplier(ctx, tx, event, req.SupplierID); err != nil {
			return err
		}
		product, err := getProduct(ctx, tx, event, req.ProductID)
		if err != nil {
			return err
		}

		invoiceID := req.SupplierInvoiceID
		deliveryID := req.DeliveryID
		var line *DeliveryLine
		switch {
		case deliveryID != nil:
			line, err = d.invoices.GetDeliveryLineTx(ctx, tx, *deliveryID)
			if err != nil {
				return err
			}
			if line.SupplierID != req.SupplierID || line.ProductID != req.ProductID {
				return invalidState(event, "delivery line %d is product %d from supplier %d",
					line.ID, line.ProductID, line.SupplierID)
			}
			if invoiceID != nil && *invoiceID != line.SupplierInvoiceID {
				return invalidState(event, "delivery line %d is on supplier invoice %d, not %d",
					line.ID, line.SupplierInvoiceID, *invoiceID)
			}
			returned, err := d.stock.ReturnedToSupplierTx(ctx, tx, line.ID)
			if err != nil {
				return err
			}
			if returned.Add(req.Quantity).GreaterThan(line.Quantity) {
				return invalidState(event, "delivery line %d: delivered %s, already returned %s, requested %s",
					line.ID, line.Quantity.String(), returned.String(), req.Quantity.String())
			}
		case invoiceID != nil:
			inv, err := d.invoices.GetHeaderTx(ctx, tx, *invoiceID)
			if err != nil {
				return err
			}
			if inv.SupplierID != req.SupplierID {
				return invalidState(event, "supplier invoice %d belongs to supplier %d", inv.ID, inv.SupplierID)
			}
			// Attribute the return to the oldest line of the product with room for it.
			lines, err := d.invoices.ProductLinesTx(ctx, tx, inv.ID, req.ProductID)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				return invalidState(event, "product %d was not delivered on supplier invoice %d", req.ProductID, inv.ID)
			}
			for i := range lines {
				returned, err := d.stock.ReturnedToSupplierTx(ctx, tx, lines[i].ID)
				if err != nil {
					return err
				}
				if !returned.Add(req.Quantity).GreaterThan(lines[i].Quantity) {
					line = &lines[i]
					break
				}
			}
			if line == nil {
				return invalidState(event, "supplier invoice %d: no delivery line of product %d has %s left to return",
					inv.ID, req.ProductID, req.Quantity.String())
			}
			deliveryID = &line.ID
		}

		unitCost := product.BaseCost
		if line != nil {
			lineInvoice := line.SupplierInvoiceID
			invoiceID = &lineInvoice
			unitCost = line.UnitCost
		}

		result.Movement, err = d.stock.RecordMovementTx(ctx, tx, MovementInput{
			ProductID:     req.ProductID,
			Quantity:      req.Quantity,
			Kind:          MovementOutgoing,
			UnitCost:      &unitCost,
			SourceDocKind: SourceReturnToSupplier,
			SourceDocID:   deliveryID,
			Note:          req.Note,
		})
		if err != nil {
			return err
		}

		credit := req.Quantity.Mul(unitCost)
		if !credit.IsPositive() {
			return invalidAmount(event, "product %d has no cost to credit", req.ProductID)
		}
		result.Credit, err = d.payables.RecordReturnToSupplierCreditTx(ctx, tx, SupplierCreditInput{
			SupplierID:        req.SupplierID,
			SupplierInvoiceID: invoiceID,
			DeliveryID:        deliveryID,
			Amount:            credit,
			PaymentDate:       d.Today(),
			Note:              req.Note,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ── Inventory ─────────────────────────────────────────────────────────────────

// AdjustInventory books a stock count correction at the product base cost.
func (d *Dispatcher) AdjustInventory(ctx context.Context, req AdjustmentRequest) (*StockMovement, error) {
	const event = "AdjustInventory"
	fields := logrus.Fields{"product_id": req.ProductID, "kind": string(req.Kind), "quantity": req.Quantity.String()}
	if req.Kind != MovementAdjustmentIn && req.Kind != MovementAdjustmentOut {
		return nil, d.fail(event, fields, invalidState(event, "adjustment kind must be %s or %s, got %q",
			MovementAdjustmentIn, MovementAdjustmentOut, string(req.Kind)))
	}
	if err := validateRequest(event, req); err != nil {
		return nil, d.fail(event, fields, err)
	}

	var m *StockMovement
	err := d.inTx(ctx, event, fields, func(tx pgx.Tx) error {
		product, err := getProduct(ctx, tx, event, req.ProductID)
		if err != nil {
			return err
		}
		cost := product.BaseCost
		m, err = d.stock.RecordMovementTx(ctx, tx, MovementInput{
			ProductID:     req.ProductID,
			Quantity:      req.Quantity,
			Kind:          req.Kind,
			UnitCost:      &cost,
			SourceDocKind: SourceAdjustment,
			Note:          req.Note,
		})
		return err
	})
	return m, err
}

// IsRetryable reports whether err is a transient failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
