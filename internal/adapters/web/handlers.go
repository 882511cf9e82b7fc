package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/app"
)

// Handler holds the ApplicationService, the chi router, and the pending action store.
type Handler struct {
	svc     app.ApplicationService
	router  chi.Router
	pending *pendingStore
	log     *logrus.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins []string, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &Handler{
		svc:     svc,
		pending: newPendingStore(),
		log:     logger,
	}
	h.pending.startPurge(context.Background())

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/api/health", h.health)

	r.Route("/api", func(r chi.Router) {
		// ── Master data ───────────────────────────────────────────────────────
		r.Get("/products", h.apiListProducts)
		r.Get("/products/{id}/movements", h.apiProductMovements)
		r.Get("/clients", h.apiListClients)
		r.Get("/clients/{id}/addresses", h.apiListAddresses)
		r.Get("/suppliers", h.apiListSuppliers)

		// ── Orders and receivables ────────────────────────────────────────────
		r.Get("/orders", h.apiListOrders)
		r.Post("/orders", h.apiCreateOrder)
		r.Post("/orders/confirm", h.apiConfirmOrders)
		r.Post("/orders/cancel", h.apiCancelOrders)
		r.Get("/orders/{ref}", h.apiGetOrder)
		r.Put("/orders/{ref}/lines", h.apiEditOrder)
		r.Post("/orders/{ref}/confirm", h.apiConfirmOrder)
		r.Delete("/orders/{ref}", h.apiCancelOrder)
		r.Get("/orders/{ref}/payment-state", h.apiPaymentState)
		r.Get("/orders/{ref}/payments", h.apiListClientPayments)
		r.Post("/orders/{ref}/payments", h.apiFullPayment)
		r.Post("/orders/{ref}/payments/partial", h.apiPartialPayment)
		r.Post("/orders/{ref}/payments/reverse", h.apiReversePayment)
		r.Post("/returns", h.apiClientReturn)
		r.Get("/receivables", h.apiReceivables)

		// ── Supplier side ─────────────────────────────────────────────────────
		r.Post("/deliveries", h.apiReceiveDelivery)
		r.Get("/deliveries", h.apiListDeliveries)
		r.Get("/supplier-invoices/{id}", h.apiGetSupplierInvoice)
		r.Post("/supplier-invoices/{id}/lines", h.apiAppendDeliveryLine)
		r.Post("/supplier-invoices/{id}/finalize", h.apiFinalizeSupplierInvoice)
		r.Get("/supplier-invoices/{id}/payments", h.apiListSupplierPayments)
		r.Post("/supplier-invoices/{id}/payments", h.apiSupplierPayment)
		r.Post("/supplier-invoices/{id}/payments/partial", h.apiSupplierPartialPayment)
		r.Post("/supplier-invoices/{id}/payments/reverse", h.apiReverseSupplierPayment)
		r.Post("/supplier-returns", h.apiReturnToSupplier)
		r.Get("/supplier-payments", h.apiSupplierPaymentsBetween)
		r.Get("/payables", h.apiPayables)

		// ── Inventory and reports ─────────────────────────────────────────────
		r.Get("/stock", h.apiStockLevels)
		r.Post("/adjustments", h.apiAdjustInventory)
		r.Get("/reports/today", h.apiTodaysOrders)
		r.Get("/integrity", h.apiIntegrity)

		// ── AI ────────────────────────────────────────────────────────────────
		r.Post("/chat", h.chatMessage)
		r.Post("/chat/confirm", h.chatConfirm)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// health returns service status and the business date.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
		Today  string `json:"today"`
	}
	writeJSON(w, response{Status: "ok", Today: h.svc.Today().Format(dateLayout)})
}

const dateLayout = "2006-01-02"

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter, writing 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, fmt.Sprintf("invalid %s", name), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryID parses an optional non-negative integer query parameter (0 when absent).
func queryID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		writeError(w, r, fmt.Sprintf("invalid %s", name), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		writeError(w, r, fmt.Sprintf("invalid %s, expected YYYY-MM-DD", name), "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	return &t, true
}

// dateRange reads from/to query parameters; both default to today.
func (h *Handler) dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, ok := queryDate(w, r, "from")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := queryDate(w, r, "to")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	today := h.svc.Today()
	if from == nil {
		from = &today
	}
	if to == nil {
		to = from
	}
	return *from, *to, true
}
