package web

import (
	"net/http"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

// apiReceiveDelivery handles POST /api/deliveries.
func (h *Handler) apiReceiveDelivery(w http.ResponseWriter, r *http.Request) {
	var req core.DeliveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ReceiveDelivery(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiListDeliveries handles GET /api/deliveries?from=&to=.
func (h *Handler) apiListDeliveries(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	lines, err := h.svc.IncomingDeliveries(r.Context(), from, to)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, lines)
}

// apiGetSupplierInvoice handles GET /api/supplier-invoices/{id}.
func (h *Handler) apiGetSupplierInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetSupplierInvoice(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAppendDeliveryLine handles POST /api/supplier-invoices/{id}/lines.
func (h *Handler) apiAppendDeliveryLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var line core.DeliveryLineInput
	if !decodeJSON(w, r, &line) {
		return
	}
	deliveryID, err := h.svc.AppendDeliveryLine(r.Context(), id, line)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeCreated(w, map[string]int{"delivery_id": deliveryID})
}

// apiFinalizeSupplierInvoice handles POST /api/supplier-invoices/{id}/finalize.
func (h *Handler) apiFinalizeSupplierInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.FinalizeSupplierInvoice(r.Context(), id); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiListSupplierPayments handles GET /api/supplier-invoices/{id}/payments.
func (h *Handler) apiListSupplierPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.svc.ListSupplierPayments(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, payments)
}

// apiSupplierPayment handles POST /api/supplier-invoices/{id}/payments.
func (h *Handler) apiSupplierPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body paymentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.RecordSupplierPayment(r.Context(), core.SupplierPaymentRequest{
		SupplierInvoiceID: id, Method: core.PaymentMethod(body.Method), Note: body.Note,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiSupplierPartialPayment handles POST /api/supplier-invoices/{id}/payments/partial.
func (h *Handler) apiSupplierPartialPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body partialPaymentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.RecordSupplierPartialPayment(r.Context(), core.SupplierPartialPaymentRequest{
		SupplierInvoiceID: id, NewTotalPaid: body.NewTotalPaid, Method: core.PaymentMethod(body.Method), Note: body.Note,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiReverseSupplierPayment handles POST /api/supplier-invoices/{id}/payments/reverse.
func (h *Handler) apiReverseSupplierPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body paymentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.ReverseSupplierPayment(r.Context(), id, body.Note)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiReturnToSupplier handles POST /api/supplier-returns.
func (h *Handler) apiReturnToSupplier(w http.ResponseWriter, r *http.Request) {
	var req core.SupplierReturnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ReturnToSupplier(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiSupplierPaymentsBetween handles GET /api/supplier-payments?from=&to=.
func (h *Handler) apiSupplierPaymentsBetween(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	payments, err := h.svc.SupplierPayments(r.Context(), from, to)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, payments)
}

// apiPayables handles GET /api/payables?supplier_id=.
func (h *Handler) apiPayables(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := queryID(w, r, "supplier_id")
	if !ok {
		return
	}
	result, err := h.svc.SupplierOutstanding(r.Context(), supplierID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Invoices)
}
