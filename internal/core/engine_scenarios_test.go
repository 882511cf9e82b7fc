package core_test

import (
	"testing"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

func TestEngine_ConfirmWithSufficientStock(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	e.stockUp(t, productApples, "10")

	id := e.draft(t, clientAcme, addrAcme, line(productApples, "4", "5.00"))
	number, err := e.disp.ConfirmOrder(e.ctx, id)
	if err != nil {
		t.Fatalf("ConfirmOrder failed: %v", err)
	}

	if want := core.InvoiceNumber(e.disp.Today(), id); number != want {
		t.Errorf("invoice number %q, want %q", number, want)
	}
	o := e.order(t, id)
	if o.Status != core.OrderConfirmed {
		t.Errorf("status %s, want confirmed", o.Status)
	}
	if o.InvoiceNumber == nil || *o.InvoiceNumber != number {
		t.Errorf("stored invoice number %v, want %s", o.InvoiceNumber, number)
	}
	if o.ConfirmationDate == nil {
		t.Error("confirmation date not set")
	}
	if o.PaymentStatus != core.PaymentUnpaid {
		t.Errorf("payment status %s, want unpaid", o.PaymentStatus)
	}
	assertDecimal(t, "amount_paid", o.AmountPaid, "0")
	assertDecimal(t, "total", o.TotalAmount, "20.00")
	assertDecimal(t, "on-hand", e.onHand(t, productApples), "6")

	ms := e.movements(t, productApples)
	if len(ms) != 2 {
		t.Fatalf("expected opening count + 1 outgoing movement, got %d", len(ms))
	}
	out := ms[1]
	if out.Kind != core.MovementOutgoing || out.SourceDocKind != core.SourceOrder || out.SourceDocID == nil || *out.SourceDocID != id {
		t.Errorf("unexpected movement %+v", out)
	}
	assertDecimal(t, "quantity_change", out.QuantityChange, "-4")
	assertDecimal(t, "unit_cost", out.UnitCost, "3.00")

	e.checkInvariants(t)
}

func TestEngine_ConfirmWithInsufficientStock(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	e.stockUp(t, productApples, "1")

	id := e.draft(t, clientAcme, addrAcme, line(productApples, "4", "5.00"))
	_, err := e.disp.ConfirmOrder(e.ctx, id)
	expectKind(t, err, core.ErrInsufficientStock)

	o := e.order(t, id)
	if o.Status != core.OrderDraft || o.InvoiceNumber != nil {
		t.Errorf("order changed despite failure: status=%s invoice=%v", o.Status, o.InvoiceNumber)
	}
	assertDecimal(t, "on-hand", e.onHand(t, productApples), "1")
	if n := len(e.movements(t, productApples)); n != 1 {
		t.Errorf("movement log grew to %d rows", n)
	}
	e.checkInvariants(t)
}

func TestEngine_PartialThenFullPayment(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	e.stockUp(t, productApples, "20")
	id := e.confirmed(t, clientAcme, addrAcme, line(productApples, "20", "5.00"))

	p, err := e.disp.RecordPartialPayment(e.ctx, core.PartialPaymentRequest{OrderID: id, NewTotalPaid: d("60")})
	if err != nil {
		t.Fatalf("RecordPartialPayment failed: %v", err)
	}
	assertDecimal(t, "partial amount", p.Amount, "60.00")
	o := e.order(t, id)
	if o.PaymentStatus != core.PaymentPartiallyPaid {
		t.Errorf("status %s, want partially_paid", o.PaymentStatus)
	}
	assertDecimal(t, "amount_paid", o.AmountPaid, "60")
	e.checkInvariants(t)

	p, err = e.disp.RecordFullPayment(e.ctx, core.PaymentRequest{OrderID: id, Method: core.MethodTransfer})
	if err != nil {
		t.Fatalf("RecordFullPayment failed: %v", err)
	}
	assertDecimal(t, "full amount", p.Amount, "40.00")
	if p.Method != core.MethodTransfer {
		t.Errorf("method %s, want transfer", p.Method)
	}
	o = e.order(t, id)
	if o.PaymentStatus != core.PaymentPaid {
		t.Errorf("status %s, want paid", o.PaymentStatus)
	}
	assertDecimal(t, "amount_paid", o.AmountPaid, "100")

	again, err := e.disp.RecordFullPayment(e.ctx, core.PaymentRequest{OrderID: id})
	if err != nil || again != nil {
		t.Errorf("second full payment should be a no-op, got %+v, %v", again, err)
	}
	e.checkInvariants(t)
}

func TestEngine_PartialPaymentOvershootClamps(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	e.stockUp(t, productApples, "2")
	id := e.confirmed(t, clientAcme, addrAcme, line(productApples, "2", "5.00"))

	p, err := e.disp.RecordPartialPayment(e.ctx, core.PartialPaymentRequest{OrderID: id, NewTotalPaid: d("25")})
	if err != nil {
		t.Fatalf("RecordPartialPayment failed: %v", err)
	}
	assertDecimal(t, "written amount", p.Amount, "10")
	if st := e.clientState(t, id); st.Status != core.PaymentPaid || !st.Outstanding.IsZero() {
		t.Errorf("got %s outstanding %s, want paid/0", st.Status, st.Outstanding)
	}

	_, err = e.disp.RecordPartialPayment(e.ctx, core.PartialPaymentRequest{OrderID: id, NewTotalPaid: d("-1")})
	expectKind(t, err, core.ErrInvalidAmount)
	e.checkInvariants(t)
}

func TestEngine_ClientReturnAgainstInvoice(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	e.stockUp(t, productApples, "5")
	id := e.confirmed(t, clientAcme, addrAcme, line(productApples, "2", "5.00"))
	if _, err := e.disp.RecordFullPayment(e.ctx, core.PaymentRequest{OrderID: id}); err != nil {
		t.Fatalf("RecordFullPayment failed: %v", err)
	}

	res, err := e.disp.ClientReturn(e.ctx, core.ClientReturnRequest{
		ClientID: clientAcme, OrderID: &id, ProductID: productApples, Quantity: d("1"),
	})
	if err != nil {
		t.Fatalf("ClientReturn failed: %v", err)
	}
	if res.Movement.Kind != core.MovementReturnIn || res.Movement.SourceDocKind != core.SourceReturn {
		t.Errorf("unexpected movement %+v", res.Movement)
	}
	assertDecimal(t, "return qty", res.Movement.QuantityChange, "1")
	assertDecimal(t, "return cost", res.Movement.UnitCost, "3.00")
	if res.Credit == nil || res.Credit.Method != core.MethodReturnCredit {
		t.Fatalf("expected a return credit, got %+v", res.Credit)
	}
	assertDecimal(t, "credit", res.Credit.Amount, "-5.00")
	assertDecimal(t, "on-hand", e.onHand(t, productApples), "4")

	st := e.clientState(t, id)
	if st.Status != core.PaymentPartiallyPaid {
		t.Errorf("status %s, want partially_paid", st.Status)
	}
	assertDecimal(t, "net", st.NetReceived, "5")
	assertDecimal(t, "outstanding", st.Outstanding, "5")
	assertDecimal(t, "credited", st.TotalCredited, "5")
	e.checkInvariants(t)
}

func TestEngine_ClientReturnGuards(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	e.stockUp(t, productApples, "5")
	id := e.confirmed(t, clientAcme, addrAcme, line(productApples, "2", "5.00"))

	_, err := e.disp.ClientReturn(e.ctx, core.ClientReturnRequest{
		ClientID: clientBeta, OrderID: &id, ProductID: productApples, Quantity: d("1"),
	})
	expectKind(t, err, core.ErrInvalidState)

	_, err = e.disp.ClientReturn(e.ctx, core.ClientReturnRequest{
		ClientID: clientAcme, OrderID: &id, ProductID: productBolts, Quantity: d("1"),
	})
	expectKind(t, err, core.ErrInvalidState)

	_, err = e.disp.ClientReturn(e.ctx, core.ClientReturnRequest{
		ClientID: clientAcme, ProductID: 999, Quantity: d("1"),
	})
	expectKind(t, err, core.ErrNotFound)

	// Without an order only stock moves.
	res, err := e.disp.ClientReturn(e.ctx, core.ClientReturnRequest{
		ClientID: clientBeta, ProductID: productBolts, Quantity: d("2"),
	})
	if err != nil {
		t.Fatalf("ClientReturn without order failed: %v", err)
	}
	if res.Credit != nil {
		t.Errorf("unexpected credit %+v", res.Credit)
	}
	assertDecimal(t, "on-hand bolts", e.onHand(t, productBolts), "2")
	e.checkInvariants(t)
}

func TestEngine_SupplierInvoiceTwoLines(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	res := e.receiveS5(t)

	if len(res.DeliveryIDs) != 2 {
		t.Fatalf("expected 2 delivery ids, got %v", res.DeliveryIDs)
	}
	inv, err := e.disp.SupplierInvoices().GetSupplierInvoice(e.ctx, res.SupplierInvoiceID)
	if err != nil {
		t.Fatalf("GetSupplierInvoice failed: %v", err)
	}
	assertDecimal(t, "invoice total", inv.TotalAmount, "40.00")
	if inv.PaymentStatus != core.PaymentUnpaid {
		t.Errorf("payment status %s, want unpaid", inv.PaymentStatus)
	}
	assertDecimal(t, "on-hand bolts", e.onHand(t, productBolts), "10")
	assertDecimal(t, "on-hand cable", e.onHand(t, productCable), "5")

	for i, pid := range []int{productBolts, productCable} {
		ms := e.movements(t, pid)
		if len(ms) != 1 {
			t.Fatalf("product %d: expected 1 movement, got %d", pid, len(ms))
		}
		m := ms[0]
		if m.Kind != core.MovementIncoming || m.SourceDocKind != core.SourceIncomingDelivery ||
			m.SourceDocID == nil || *m.SourceDocID != res.DeliveryIDs[i] {
			t.Errorf("product %d: unexpected movement %+v", pid, m)
		}
	}
	if st := e.supplierState(t, res.SupplierInvoiceID); st.Status != core.PaymentUnpaid {
		t.Errorf("PL status %s, want unpaid", st.Status)
	}
	e.checkInvariants(t)
}

func TestEngine_ReturnToSupplier(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	res := e.receiveS5(t)
	lineB := res.DeliveryIDs[0]

	ret, err := e.disp.ReturnToSupplier(e.ctx, core.SupplierReturnRequest{
		SupplierID: supplierNorth, DeliveryID: &lineB, ProductID: productBolts, Quantity: d("3"),
	})
	if err != nil {
		t.Fatalf("ReturnToSupplier failed: %v", err)
	}
	m := ret.Movement
	if m.Kind != core.MovementOutgoing || m.SourceDocKind != core.SourceReturnToSupplier || m.SourceDocID == nil || *m.SourceDocID != lineB {
		t.Errorf("unexpected movement %+v", m)
	}
	assertDecimal(t, "quantity_change", m.QuantityChange, "-3")
	assertDecimal(t, "unit_cost", m.UnitCost, "2.00")
	assertDecimal(t, "credit", ret.Credit.Amount, "-6.00")
	if ret.Credit.Method != core.MethodReturnCredit {
		t.Errorf("credit method %s", ret.Credit.Method)
	}
	assertDecimal(t, "on-hand bolts", e.onHand(t, productBolts), "7")

	st := e.supplierState(t, res.SupplierInvoiceID)
	assertDecimal(t, "PL net", st.NetReceived, "-6")
	if st.Status != core.PaymentPartiallyPaid {
		t.Errorf("PL status %s, want partially_paid", st.Status)
	}
	e.checkInvariants(t)

	// 7 left on the line; 8 more is an over-return.
	_, err = e.disp.ReturnToSupplier(e.ctx, core.SupplierReturnRequest{
		SupplierID: supplierNorth, DeliveryID: &lineB, ProductID: productBolts, Quantity: d("8"),
	})
	expectKind(t, err, core.ErrInvalidState)

	_, err = e.disp.ReturnToSupplier(e.ctx, core.SupplierReturnRequest{
		SupplierID: supplierSouth, DeliveryID: &lineB, ProductID: productBolts, Quantity: d("1"),
	})
	expectKind(t, err, core.ErrInvalidState)
	assertDecimal(t, "on-hand bolts after refusals", e.onHand(t, productBolts), "7")
}

func TestEngine_DuplicateSupplierInvoiceRollsBack(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})
	e.receiveS5(t)

	_, err := e.disp.ReceiveDelivery(e.ctx, core.DeliveryRequest{
		SupplierID:    supplierNorth,
		InvoiceNumber: "SINV-42",
		Lines:         []core.DeliveryLineInput{{ProductID: productApples, Quantity: d("1"), UnitCost: d("1")}},
	})
	expectKind(t, err, core.ErrInvalidState)
	assertDecimal(t, "on-hand apples", e.onHand(t, productApples), "0")

	// The same number from another supplier is fine.
	if _, err := e.disp.ReceiveDelivery(e.ctx, core.DeliveryRequest{
		SupplierID:    supplierSouth,
		InvoiceNumber: "SINV-42",
		Lines:         []core.DeliveryLineInput{{ProductID: productApples, Quantity: d("1"), UnitCost: d("1")}},
	}); err != nil {
		t.Fatalf("ReceiveDelivery for another supplier failed: %v", err)
	}
	e.checkInvariants(t)
}

func TestEngine_SupplierInvoiceLifecycle(t *testing.T) {
	e := setupEngine(t, core.DispatcherOptions{})

	id, err := e.disp.CreateSupplierInvoice(e.ctx, core.SupplierInvoiceInput{SupplierID: supplierNorth, InvoiceNumber: "N-1"})
	if err != nil {
		t.Fatalf("CreateSupplierInvoice failed: %v", err)
	}
	expectKind(t, e.disp.FinalizeSupplierInvoice(e.ctx, id), core.ErrInvalidState)

	if _, err := e.disp.AppendDeliveryLine(e.ctx, id, core.DeliveryLineInput{
		ProductID: productCable, Quantity: d("2"), UnitCost: d("4.50"),
	}); err != nil {
		t.Fatalf("AppendDeliveryLine failed: %v", err)
	}
	_, err = e.disp.AppendDeliveryLine(e.ctx, id, core.DeliveryLineInput{ProductID: productCable, Quantity: d("1"), UnitCost: d("0")})
	expectKind(t, err, core.ErrInvalidAmount)

	if err := e.disp.FinalizeSupplierInvoice(e.ctx, id); err != nil {
		t.Fatalf("FinalizeSupplierInvoice failed: %v", err)
	}
	_, err = e.disp.AppendDeliveryLine(e.ctx, id, core.DeliveryLineInput{ProductID: productCable, Quantity: d("1"), UnitCost: d("4")})
	expectKind(t, err, core.ErrInvalidState)

	if _, err := e.disp.RecordSupplierPartialPayment(e.ctx, core.SupplierPartialPaymentRequest{SupplierInvoiceID: id, NewTotalPaid: d("4")}); err != nil {
		t.Fatalf("RecordSupplierPartialPayment failed: %v", err)
	}
	p, err := e.disp.RecordSupplierPayment(e.ctx, core.SupplierPaymentRequest{SupplierInvoiceID: id})
	if err != nil {
		t.Fatalf("RecordSupplierPayment failed: %v", err)
	}
	assertDecimal(t, "balance paid", p.Amount, "5.00")
	if st := e.supplierState(t, id); st.Status != core.PaymentPaid {
		t.Errorf("status %s, want paid", st.Status)
	}

	rev, err := e.disp.ReverseSupplierPayment(e.ctx, id, "bounced")
	if err != nil {
		t.Fatalf("ReverseSupplierPayment failed: %v", err)
	}
	assertDecimal(t, "reversal", rev.Amount, "-9.00")
	if st := e.supplierState(t, id); st.Status != core.PaymentUnpaid || !st.NetReceived.IsZero() {
		t.Errorf("after reversal got %s net %s, want unpaid/0", st.Status, st.NetReceived)
	}
	payments, err := e.disp.Payables().ListPayments(e.ctx, id)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 3 {
		t.Errorf("history should keep 3 rows, got %d", len(payments))
	}
	e.checkInvariants(t)
}
