package app

import (
	"context"
	"errors"
	"testing"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("quantity", " 12.50 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.String() != "12.5" {
		t.Errorf("got %s, want 12.5", v)
	}

	_, err = parseAmount("quantity", "twelve")
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if core.KindOf(err) != "INVALID_AMOUNT" {
		t.Errorf("KindOf = %s", core.KindOf(err))
	}
}

func TestCreateOrderFromArgs(t *testing.T) {
	req, err := createOrderFromArgs(ai.CreateOrderArgs{
		ClientID:  1,
		AddressID: 2,
		Lines: []ai.OrderLineArgs{
			{ProductID: 3, Quantity: "4", UnitPrice: ""},
			{ProductID: 5, Quantity: "1.5", UnitPrice: "9.99"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(req.Lines))
	}
	if req.Lines[0].UnitPrice != nil {
		t.Error("empty unit price should fall back to the selling price")
	}
	if req.Lines[1].UnitPrice == nil || req.Lines[1].UnitPrice.String() != "9.99" {
		t.Errorf("unexpected unit price %v", req.Lines[1].UnitPrice)
	}

	_, err = createOrderFromArgs(ai.CreateOrderArgs{Lines: []ai.OrderLineArgs{{ProductID: 1, Quantity: "x"}}})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDeliveryFromArgs(t *testing.T) {
	req, err := deliveryFromArgs(ai.ReceiveDeliveryArgs{
		SupplierID:    1,
		InvoiceNumber: " SINV-42 ",
		Lines:         []ai.DeliveryLineArgs{{ProductID: 2, Quantity: "10", UnitCost: "2.00"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.InvoiceNumber != "SINV-42" || len(req.Lines) != 1 || req.Lines[0].UnitCost.String() != "2" {
		t.Errorf("unexpected request %+v", req)
	}

	_, err = deliveryFromArgs(ai.ReceiveDeliveryArgs{Lines: []ai.DeliveryLineArgs{{Quantity: "1", UnitCost: ""}}})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestExecuteProposal_Guards(t *testing.T) {
	s := &appService{tools: ai.EngineTools()}

	if _, err := s.ExecuteProposal(context.Background(), nil); err == nil {
		t.Error("expected error for nil proposal")
	}
	if _, err := s.ExecuteProposal(context.Background(), &ai.ActionProposal{Action: "post_journal", Arguments: "{}"}); err == nil {
		t.Error("expected error for unknown action")
	}
	// Bad arguments fail before the engine is touched.
	_, err := s.ExecuteProposal(context.Background(), &ai.ActionProposal{
		Action: ai.ActionAdjustInventory, Arguments: `{"product_id":1,"quantity":"lots","kind":"adjustment_in","note":""}`,
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	if _, err := s.InterpretAction(context.Background(), "sell apples"); !errors.Is(err, ErrAgentUnavailable) {
		t.Errorf("expected ErrAgentUnavailable, got %v", err)
	}
}
