package web

import (
	"net/http"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

// ── Master data ───────────────────────────────────────────────────────────────

func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Products)
}

func (h *Handler) apiListClients(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListClients(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Clients)
}

func (h *Handler) apiListAddresses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.ListAddresses(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiListSuppliers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListSuppliers(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Suppliers)
}

// ── Stock ─────────────────────────────────────────────────────────────────────

// apiStockLevels handles GET /api/stock.
func (h *Handler) apiStockLevels(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetStockLevels(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Levels)
}

// apiProductMovements handles GET /api/products/{id}/movements?from=&to=.
// Both bounds are optional.
func (h *Handler) apiProductMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	from, ok := queryDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to")
	if !ok {
		return
	}
	movements, err := h.svc.GetMovements(r.Context(), id, from, to)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, movements)
}

// apiAdjustInventory handles POST /api/adjustments.
func (h *Handler) apiAdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req core.AdjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	movement, err := h.svc.AdjustInventory(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeCreated(w, movement)
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (h *Handler) apiTodaysOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.TodaysOrders(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// apiIntegrity runs the reconciliation checks. Mismatches are reported with
// 200; the caller decides what a failed check means.
func (h *Handler) apiIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.CheckIntegrity(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if !report.OK() {
		h.log.WithField("correlation_id", report.CorrelationID).
			WithField("mismatches", len(report.Mismatches)).
			Warn("integrity check found mismatches")
	}
	writeJSON(w, report)
}
