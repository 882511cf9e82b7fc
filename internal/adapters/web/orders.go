package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/app"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

type orderRefsRequest struct {
	Refs []string `json:"refs"`
}

type paymentBody struct {
	Method string `json:"payment_method"`
	Note   string `json:"note"`
}

type partialPaymentBody struct {
	NewTotalPaid decimal.Decimal `json:"new_total_paid"`
	Method       string          `json:"payment_method"`
	Note         string          `json:"note"`
}

type clientReturnBody struct {
	ClientID  int             `json:"client_id"`
	OrderRef  string          `json:"order_ref"`
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note"`
}

// apiListOrders handles GET /api/orders?status=&client_id=&date=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	clientID, ok := queryID(w, r, "client_id")
	if !ok {
		return
	}
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	result, err := h.svc.ListOrders(r.Context(), core.OrderFilter{
		Status:    core.OrderStatus(r.URL.Query().Get("status")),
		ClientID:  clientID,
		OrderDate: date,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// apiCreateOrder handles POST /api/orders.
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req core.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeCreated(w, result.Order)
}

// apiGetOrder handles GET /api/orders/{ref}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiEditOrder handles PUT /api/orders/{ref}/lines.
func (h *Handler) apiEditOrder(w http.ResponseWriter, r *http.Request) {
	var lines []core.OrderLineInput
	if !decodeJSON(w, r, &lines) {
		return
	}
	result, err := h.svc.EditOrder(r.Context(), chi.URLParam(r, "ref"), lines)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiConfirmOrder handles POST /api/orders/{ref}/confirm.
func (h *Handler) apiConfirmOrder(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, []string{chi.URLParam(r, "ref")})
}

// apiConfirmOrders handles POST /api/orders/confirm with {"refs": [...]}.
func (h *Handler) apiConfirmOrders(w http.ResponseWriter, r *http.Request) {
	var req orderRefsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Refs) == 0 {
		writeError(w, r, "refs is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	h.confirm(w, r, req.Refs)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request, refs []string) {
	result, err := h.svc.ConfirmOrders(r.Context(), refs)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Invoices)
}

// apiCancelOrder handles DELETE /api/orders/{ref}.
func (h *Handler) apiCancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelOrders(r.Context(), []string{chi.URLParam(r, "ref")}); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiCancelOrders handles POST /api/orders/cancel with {"refs": [...]}.
func (h *Handler) apiCancelOrders(w http.ResponseWriter, r *http.Request) {
	var req orderRefsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.CancelOrders(r.Context(), req.Refs); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Receivables ───────────────────────────────────────────────────────────────

// apiPaymentState handles GET /api/orders/{ref}/payment-state.
func (h *Handler) apiPaymentState(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetPaymentState(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, st)
}

// apiListClientPayments handles GET /api/orders/{ref}/payments.
func (h *Handler) apiListClientPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.ListClientPayments(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, payments)
}

// apiFullPayment handles POST /api/orders/{ref}/payments.
func (h *Handler) apiFullPayment(w http.ResponseWriter, r *http.Request) {
	var body paymentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.RecordFullPayment(r.Context(), app.PaymentRequest{
		OrderRef: chi.URLParam(r, "ref"), Method: body.Method, Note: body.Note,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPartialPayment handles POST /api/orders/{ref}/payments/partial.
func (h *Handler) apiPartialPayment(w http.ResponseWriter, r *http.Request) {
	var body partialPaymentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.RecordPartialPayment(r.Context(), app.PartialPaymentRequest{
		OrderRef: chi.URLParam(r, "ref"), NewTotalPaid: body.NewTotalPaid, Method: body.Method, Note: body.Note,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiReversePayment handles POST /api/orders/{ref}/payments/reverse.
func (h *Handler) apiReversePayment(w http.ResponseWriter, r *http.Request) {
	var body paymentBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.ReversePayment(r.Context(), chi.URLParam(r, "ref"), body.Note)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiClientReturn handles POST /api/returns.
func (h *Handler) apiClientReturn(w http.ResponseWriter, r *http.Request) {
	var body clientReturnBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.ClientReturn(r.Context(), app.ClientReturnRequest{
		ClientID: body.ClientID, OrderRef: body.OrderRef, ProductID: body.ProductID,
		Quantity: body.Quantity, Note: body.Note,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiReceivables handles GET /api/receivables?client_id=.
func (h *Handler) apiReceivables(w http.ResponseWriter, r *http.Request) {
	clientID, ok := queryID(w, r, "client_id")
	if !ok {
		return
	}
	result, err := h.svc.UnpaidInvoices(r.Context(), clientID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Invoices)
}
