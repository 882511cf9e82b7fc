package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/app"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

// fakeService implements the few ApplicationService methods the tests hit.
// Anything else panics through the nil embedded interface.
type fakeService struct {
	app.ApplicationService

	confirmErr  error
	confirmed   []string
	stock       []core.StockLevel
	proposal    *ai.ActionProposal
	interpretErr error
	executed    []*ai.ActionProposal
}

func (f *fakeService) Today() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

func (f *fakeService) ConfirmOrders(_ context.Context, refs []string) (*app.ConfirmResult, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	f.confirmed = append(f.confirmed, refs...)
	return &app.ConfirmResult{Invoices: []core.ConfirmedInvoice{{OrderID: 1, InvoiceNumber: "INV-20240301-0001"}}}, nil
}

func (f *fakeService) GetStockLevels(context.Context) (*app.StockResult, error) {
	return &app.StockResult{Levels: f.stock}, nil
}

func (f *fakeService) InterpretAction(context.Context, string) (*app.ActionResult, error) {
	if f.interpretErr != nil {
		return nil, f.interpretErr
	}
	return &app.ActionResult{Proposal: f.proposal}, nil
}

func (f *fakeService) ExecuteProposal(_ context.Context, p *ai.ActionProposal) (string, error) {
	f.executed = append(f.executed, p)
	return "done", nil
}

func newTestHandler(svc app.ApplicationService) *Handler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHandler(svc, nil, logger)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{}), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["today"] != "2024-03-01" {
		t.Errorf("today = %q", body["today"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestRequestIDIsEchoedWhenSafe(t *testing.T) {
	h := newTestHandler(&fakeService{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "bad id; drop table")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got == "bad id; drop table" {
		t.Error("unsafe request id was echoed")
	}
}

func TestEngineErrorStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", &core.EngineError{Kind: core.ErrNotFound, Op: "ConfirmOrder", Msg: "order 9"}, http.StatusNotFound, "NOT_FOUND"},
		{"invalid state", &core.EngineError{Kind: core.ErrInvalidState, Msg: "already confirmed"}, http.StatusConflict, "INVALID_STATE"},
		{"insufficient stock", &core.EngineError{Kind: core.ErrInsufficientStock, Msg: "product 1"}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"invalid amount", &core.EngineError{Kind: core.ErrInvalidAmount, Msg: "negative"}, http.StatusUnprocessableEntity, "INVALID_AMOUNT"},
		{"transient", &core.EngineError{Kind: core.ErrTransient, Msg: "pool exhausted"}, http.StatusServiceUnavailable, "TRANSIENT"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, newTestHandler(&fakeService{confirmErr: tc.err}), http.MethodPost, "/api/orders/7/confirm", "")
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Code != tc.code {
				t.Errorf("code = %q, want %q", body.Code, tc.code)
			}
			if body.RequestID == "" {
				t.Error("error response without request_id")
			}
			if tc.status == http.StatusInternalServerError && strings.Contains(body.Error, "boom") {
				t.Error("internal error details leaked")
			}
			if tc.status == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
				t.Error("missing Retry-After on transient error")
			}
		})
	}
}

func TestConfirmOrdersBatch(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newTestHandler(svc), http.MethodPost, "/api/orders/confirm", `{"refs":["1","INV-20240301-0002"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.confirmed) != 2 || svc.confirmed[1] != "INV-20240301-0002" {
		t.Errorf("confirmed = %v", svc.confirmed)
	}

	rec = do(t, newTestHandler(svc), http.MethodPost, "/api/orders/confirm", `{"refs":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty refs: status = %d", rec.Code)
	}
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(&fakeService{})
	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/orders/confirm", `{not json`},
		{http.MethodGet, "/api/supplier-invoices/abc", ""},
		{http.MethodGet, "/api/receivables?client_id=-1", ""},
		{http.MethodGet, "/api/deliveries?from=01/03/2024", ""},
	}
	for _, tc := range cases {
		if rec := do(t, h, tc.method, tc.path, tc.body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", tc.method, tc.path, rec.Code)
		}
	}
}

func TestStockLevels(t *testing.T) {
	svc := &fakeService{stock: []core.StockLevel{{ProductID: 1, ProductName: "Apples", OnHand: decimal.NewFromInt(3)}}}
	rec := do(t, newTestHandler(svc), http.MethodGet, "/api/stock", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var levels []core.StockLevel
	if err := json.Unmarshal(rec.Body.Bytes(), &levels); err != nil {
		t.Fatal(err)
	}
	if len(levels) != 1 || !levels[0].OnHand.Equal(decimal.NewFromInt(3)) {
		t.Errorf("levels = %+v", levels)
	}
}

func TestChatProposeThenConfirm(t *testing.T) {
	svc := &fakeService{proposal: &ai.ActionProposal{Action: ai.ActionConfirmOrder, Arguments: `{"order_ref":"7"}`}}
	h := newTestHandler(svc)

	rec := do(t, h, http.MethodPost, "/api/chat", `{"text":"confirm order 7"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: status = %d: %s", rec.Code, rec.Body.String())
	}
	var msg chatMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Token == "" || msg.Proposal == nil {
		t.Fatalf("response = %+v", msg)
	}
	if len(svc.executed) != 0 {
		t.Fatal("proposal executed before confirmation")
	}

	rec = do(t, h, http.MethodPost, "/api/chat/confirm", `{"token":"`+msg.Token+`","action":"confirm"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.executed) != 1 {
		t.Fatalf("executed %d proposals", len(svc.executed))
	}

	rec = do(t, h, http.MethodPost, "/api/chat/confirm", `{"token":"`+msg.Token+`","action":"confirm"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second confirm: status = %d, want 404", rec.Code)
	}
}

func TestChatWithoutAgent(t *testing.T) {
	svc := &fakeService{interpretErr: app.ErrAgentUnavailable}
	rec := do(t, newTestHandler(svc), http.MethodPost, "/api/chat", `{"text":"hello"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestPendingStoreExpiry(t *testing.T) {
	s := newPendingStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.put("a", pendingAction{CreatedAt: now})
	s.put("b", pendingAction{CreatedAt: now.Add(-pendingTTL - time.Second)})

	s.purgeExpired()
	if _, ok := s.actions["b"]; ok {
		t.Error("expired action survived purge")
	}
	now = now.Add(pendingTTL + time.Second)
	if _, ok := s.take("a"); ok {
		t.Error("expired action was returned")
	}
}
