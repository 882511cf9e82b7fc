package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
		kind string
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrIntegrityViolation, "INTEGRITY_VIOLATION"},
		{"fk violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), ErrIntegrityViolation, "INTEGRITY_VIOLATION"},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, ErrTransient, "TRANSIENT"},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ErrTransient, "TRANSIENT"},
		{"deadline", context.DeadlineExceeded, ErrTransient, "TRANSIENT"},
		{"already typed", notFound("x", "order 1 not found"), ErrNotFound, "NOT_FOUND"},
		{"wrapped typed", fmt.Errorf("outer: %w", insufficientStock("x", "short")), ErrInsufficientStock, "INSUFFICIENT_STOCK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify(%v) = %v, want kind %v", tt.err, got, tt.want)
			}
			if KindOf(got) != tt.kind {
				t.Errorf("KindOf = %s, want %s", KindOf(got), tt.kind)
			}
		})
	}

	plain := errors.New("connection reset")
	if got := classify("op", plain); KindOf(got) != "INTERNAL" || !errors.Is(got, plain) {
		t.Errorf("unclassified error should stay wrapped and INTERNAL, got %v", got)
	}
}

func TestMissingUnitCostIsInvalidAmount(t *testing.T) {
	err := missingUnitCost("record movement", "no cost")
	if !errors.Is(err, ErrInvalidAmount) || !errors.Is(err, ErrMissingUnitCost) {
		t.Errorf("missing unit cost should match both kinds: %v", err)
	}
	if KindOf(err) != "MISSING_UNIT_COST" {
		t.Errorf("KindOf = %s", KindOf(err))
	}
	if errors.Is(invalidAmount("x", "negative"), ErrMissingUnitCost) {
		t.Error("plain invalid amount must not match ErrMissingUnitCost")
	}
}

func TestEngineError_Message(t *testing.T) {
	err := &EngineError{Kind: ErrTransient, Op: "ConfirmOrder", Msg: "no database connection available", Err: context.DeadlineExceeded}
	want := "ConfirmOrder: no database connection available: context deadline exceeded"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("EngineError should unwrap to its cause")
	}
}

func TestValidateRequest(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	tests := []struct {
		name    string
		req     any
		wantErr bool
	}{
		{"valid return", ClientReturnRequest{ClientID: 1, ProductID: 1, Quantity: decimal.NewFromInt(2)}, false},
		{"zero quantity", ClientReturnRequest{ClientID: 1, ProductID: 1, Quantity: decimal.Zero}, true},
		{"negative partial", PartialPaymentRequest{OrderID: 1, NewTotalPaid: negative}, true},
		{"zero partial", PartialPaymentRequest{OrderID: 1, NewTotalPaid: decimal.Zero}, false},
		{"fractional quantity", AdjustmentRequest{ProductID: 1, Quantity: decimal.RequireFromString("0.250")}, false},
		{"bad order line", CreateOrderRequest{Lines: []OrderLineInput{{ProductID: 1, Quantity: decimal.NewFromInt(1)}, {ProductID: 2, Quantity: negative}}}, true},
		{"negative line price", CreateOrderRequest{Lines: []OrderLineInput{{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: &negative}}}, true},
		{"nil line price", CreateOrderRequest{Lines: []OrderLineInput{{ProductID: 1, Quantity: decimal.NewFromInt(1)}}}, false},
		{"delivery zero cost", DeliveryRequest{Lines: []DeliveryLineInput{{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitCost: decimal.Zero}}}, true},
		{"adjustment past quantity scale", AdjustmentRequest{ProductID: 1, Quantity: decimal.RequireFromString("1.0005")}, true},
		{"return past quantity scale", ClientReturnRequest{ClientID: 1, ProductID: 1, Quantity: decimal.RequireFromString("0.0001")}, true},
		{"supplier return past quantity scale", SupplierReturnRequest{SupplierID: 1, ProductID: 1, Quantity: decimal.RequireFromString("2.5005")}, true},
		{"partial past money scale", PartialPaymentRequest{OrderID: 1, NewTotalPaid: decimal.RequireFromString("1.005")}, true},
		{"supplier partial past money scale", SupplierPartialPaymentRequest{SupplierInvoiceID: 1, NewTotalPaid: decimal.RequireFromString("0.001")}, true},
		{"line price past money scale", CreateOrderRequest{Lines: []OrderLineInput{{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimalPtr("5.001")}}}, true},
		{"delivery cost past money scale", DeliveryRequest{Lines: []DeliveryLineInput{{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitCost: decimal.RequireFromString("0.333")}}}, true},
		{"delivery at full scale", DeliveryRequest{Lines: []DeliveryLineInput{{ProductID: 1, Quantity: decimal.RequireFromString("1.125"), UnitCost: decimal.RequireFromString("0.33")}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest("test", tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("validation failure should be ErrInvalidAmount, got %v", err)
			}
		})
	}
}

func decimalPtr(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestExceedsScale(t *testing.T) {
	tests := []struct {
		value  string
		places int32
		want   bool
	}{
		{"1.0005", quantityScale, true},
		{"1.000", quantityScale, false},
		{"1.0000", quantityScale, false},
		{"12", quantityScale, false},
		{"0.495", moneyScale, true},
		{"0.50", moneyScale, false},
		{"-3.001", moneyScale, true},
	}
	for _, tt := range tests {
		if got := exceedsScale(decimal.RequireFromString(tt.value), tt.places); got != tt.want {
			t.Errorf("exceedsScale(%s, %d) = %v, want %v", tt.value, tt.places, got, tt.want)
		}
	}
}

func TestUniqueSorted(t *testing.T) {
	got := uniqueSorted([]int{5, 2, 5, 9, 2})
	want := []int{2, 5, 9}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("uniqueSorted = %v, want %v", got, want)
	}
}
