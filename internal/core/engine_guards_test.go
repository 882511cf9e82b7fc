package core_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

func TestEngine_SupplierInvoiceTotalRoundsOnce(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})

	// Each line is 0.495; rounding per line would store 1.00.
	id, err := e.disp.CreateSupplierInvoice(e.ctx, core.SupplierInvoiceInput{SupplierID: supplierNorth, InvoiceNumber: "FR-1"})
	if err != nil {
		t.Fatalf("CreateSupplierInvoice failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := e.disp.AppendDeliveryLine(e.ctx, id, core.DeliveryLineInput{
			ProductID: productBolts, Quantity: d("1.5"), UnitCost: d("0.33"),
		}); err != nil {
			t.Fatalf("AppendDeliveryLine #%d failed: %v", i+1, err)
		}
	}
	inv, err := e.disp.SupplierInvoices().GetSupplierInvoice(e.ctx, id)
	if err != nil {
		t.Fatalf("GetSupplierInvoice failed: %v", err)
	}
	assertDecimal(t, "appended total", inv.TotalAmount, "0.99")

	res, err := e.disp.ReceiveDelivery(e.ctx, core.DeliveryRequest{
		SupplierID:    supplierNorth,
		InvoiceNumber: "FR-2",
		Lines: []core.DeliveryLineInput{
			{ProductID: productBolts, Quantity: d("1.5"), UnitCost: d("0.33")},
			{ProductID: productCable, Quantity: d("1.5"), UnitCost: d("0.33")},
		},
	})
	if err != nil {
		t.Fatalf("ReceiveDelivery failed: %v", err)
	}
	inv, err = e.disp.SupplierInvoices().GetSupplierInvoice(e.ctx, res.SupplierInvoiceID)
	if err != nil {
		t.Fatalf("GetSupplierInvoice failed: %v", err)
	}
	assertDecimal(t, "received total", inv.TotalAmount, "0.99")
	e.checkInvariants(t)
}

func TestEngine_OverScaleAmountsRefused(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	e.stockUp(t, productApples, "5")

	_, err := e.disp.AdjustInventory(e.ctx, core.AdjustmentRequest{
		ProductID: productApples, Quantity: d("1.0005"), Kind: core.MovementAdjustmentOut,
	})
	expectKind(t, err, core.ErrInvalidAmount)

	id := e.confirmed(t, clientAcme, addrAcme, line(productApples, "2", "5.00"))
	_, err = e.disp.ClientReturn(e.ctx, core.ClientReturnRequest{
		ClientID: clientAcme, OrderID: &id, ProductID: productApples, Quantity: d("0.0005"),
	})
	expectKind(t, err, core.ErrInvalidAmount)
	_, err = e.disp.RecordPartialPayment(e.ctx, core.PartialPaymentRequest{OrderID: id, NewTotalPaid: d("1.005")})
	expectKind(t, err, core.ErrInvalidAmount)

	_, err = e.disp.ReceiveDelivery(e.ctx, core.DeliveryRequest{
		SupplierID:    supplierNorth,
		InvoiceNumber: "SC-1",
		Lines:         []core.DeliveryLineInput{{ProductID: productBolts, Quantity: d("1"), UnitCost: d("0.333")}},
	})
	expectKind(t, err, core.ErrInvalidAmount)

	assertDecimal(t, "on-hand apples", e.onHand(t, productApples), "3")
	assertDecimal(t, "on-hand bolts", e.onHand(t, productBolts), "0")
	e.checkInvariants(t)
}

func TestEngine_ClientReturnLimitedToOrderedQuantity(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	e.stockUp(t, productApples, "5")
	id := e.confirmed(t, clientAcme, addrAcme, line(productApples, "2", "5.00"))

	if _, err := e.disp.ClientReturn(e.ctx, core.ClientReturnRequest{
		ClientID: clientAcme, OrderID: &id, ProductID: productApples, Quantity: d("1.5"),
	}); err != nil {
		t.Fatalf("ClientReturn failed: %v", err)
	}
	_, err := e.disp.ClientReturn(e.ctx, core.ClientReturnRequest{
		ClientID: clientAcme, OrderID: &id, ProductID: productApples, Quantity: d("1"),
	})
	expectKind(t, err, core.ErrInvalidState)

	if _, err := e.disp.ClientReturn(e.ctx, core.ClientReturnRequest{
		ClientID: clientAcme, OrderID: &id, ProductID: productApples, Quantity: d("0.5"),
	}); err != nil {
		t.Fatalf("ClientReturn of the remainder failed: %v", err)
	}

	st := e.clientState(t, id)
	assertDecimal(t, "credited", st.TotalCredited, "10")
	assertDecimal(t, "on-hand", e.onHand(t, productApples), "5")
	e.checkInvariants(t)
}

func TestEngine_ReturnToSupplierByInvoice(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	res := e.receiveS5(t)
	e.stockUp(t, productApples, "4")
	invoiceID := res.SupplierInvoiceID

	// Apples were never delivered on SINV-42.
	_, err := e.disp.ReturnToSupplier(e.ctx, core.SupplierReturnRequest{
		SupplierID: supplierNorth, SupplierInvoiceID: &invoiceID, ProductID: productApples, Quantity: d("1"),
	})
	expectKind(t, err, core.ErrInvalidState)
	assertDecimal(t, "on-hand apples", e.onHand(t, productApples), "4")

	ret, err := e.disp.ReturnToSupplier(e.ctx, core.SupplierReturnRequest{
		SupplierID: supplierNorth, SupplierInvoiceID: &invoiceID, ProductID: productCable, Quantity: d("2"),
	})
	if err != nil {
		t.Fatalf("ReturnToSupplier failed: %v", err)
	}
	lineCable := res.DeliveryIDs[1]
	if ret.Movement.SourceDocID == nil || *ret.Movement.SourceDocID != lineCable {
		t.Errorf("return attributed to %v, want delivery line %d", ret.Movement.SourceDocID, lineCable)
	}
	assertDecimal(t, "unit cost", ret.Movement.UnitCost, "4.00")
	assertDecimal(t, "credit", ret.Credit.Amount, "-8.00")

	// 3 of 5 cables left on the invoice.
	_, err = e.disp.ReturnToSupplier(e.ctx, core.SupplierReturnRequest{
		SupplierID: supplierNorth, SupplierInvoiceID: &invoiceID, ProductID: productCable, Quantity: d("4"),
	})
	expectKind(t, err, core.ErrInvalidState)
	assertDecimal(t, "on-hand cable", e.onHand(t, productCable), "3")
	e.checkInvariants(t)
}

func TestEngine_AppendAndSupplierReturnDoNotDeadlock(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	res := e.receiveS5(t)
	invoiceID := res.SupplierInvoiceID
	lineBolts := res.DeliveryIDs[0]

	const rounds = 10
	var (
		wg         sync.WaitGroup
		appendErrs = make([]error, rounds)
		returnErrs = make([]error, rounds)
	)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, appendErrs[i] = e.disp.AppendDeliveryLine(e.ctx, invoiceID, core.DeliveryLineInput{
				ProductID: productBolts, Quantity: d("1"), UnitCost: d("2.00"),
			})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, returnErrs[i] = e.disp.ReturnToSupplier(e.ctx, core.SupplierReturnRequest{
				SupplierID: supplierNorth, DeliveryID: &lineBolts, ProductID: productBolts, Quantity: d("1"),
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < rounds; i++ {
		for _, err := range []error{appendErrs[i], returnErrs[i]} {
			if errors.Is(err, core.ErrTransient) {
				t.Errorf("round %d: lock conflict surfaced as %v", i, err)
			} else if err != nil {
				t.Errorf("round %d: unexpected error %v", i, err)
			}
		}
	}
	// 10 delivered + 10 appended - 10 returned.
	assertDecimal(t, "on-hand bolts", e.onHand(t, productBolts), "10")
	e.checkInvariants(t)
}
