package ai

import (
	"strings"
	"testing"
)

func TestEngineTools_SchemasAreStrict(t *testing.T) {
	tools := EngineTools()
	if got := len(tools.All()); got != 10 {
		t.Fatalf("expected 10 tools, got %d", got)
	}
	for _, tool := range tools.All() {
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s: schema type %v, want object", tool.Name, tool.InputSchema["type"])
		}
		if tool.InputSchema["additionalProperties"] != false {
			t.Errorf("%s: additional properties allowed", tool.Name)
		}
		if _, ok := tool.InputSchema["required"]; !ok {
			t.Errorf("%s: no required properties", tool.Name)
		}
	}

	desc, err := tools.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if !strings.Contains(desc, ActionReturnToSupplier) || !strings.Contains(desc, `"delivery_id"`) {
		t.Errorf("description missing return_to_supplier schema:\n%s", desc)
	}
}

func TestParseProposal(t *testing.T) {
	tools := EngineTools()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"valid", `{"action":" Confirm_Order ","arguments":"{\"order_ref\":\"INV-20260315-7\"}","summary":"confirm","confidence":0.9,"reasoning":"asked to confirm"}`, ""},
		{"empty", ``, "empty response"},
		{"not json", `confirm it`, "failed to parse"},
		{"unknown action", `{"action":"post_journal","arguments":"{}","confidence":0.5}`, "unknown action"},
		{"bad confidence", `{"action":"confirm_order","arguments":"{}","confidence":1.5}`, "confidence"},
		{"arguments not object", `{"action":"confirm_order","arguments":"[1]","confidence":0.5}`, "not a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProposal(tt.content, tools)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.Action != ActionConfirmOrder {
					t.Errorf("action %q not normalized", p.Action)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDecodeArguments(t *testing.T) {
	p := &ActionProposal{
		Action:    ActionCreateOrder,
		Arguments: `{"client_id":1,"address_id":2,"lines":[{"product_id":3,"quantity":"4","unit_price":""}]}`,
	}
	var args CreateOrderArgs
	if err := DecodeArguments(p, &args); err != nil {
		t.Fatalf("DecodeArguments failed: %v", err)
	}
	if args.ClientID != 1 || args.AddressID != 2 || len(args.Lines) != 1 || args.Lines[0].Quantity != "4" {
		t.Errorf("unexpected args %+v", args)
	}

	p.Arguments = `{"client_id":1,"debit_account":"1200"}`
	if err := DecodeArguments(p, &args); err == nil {
		t.Error("expected unknown field to be rejected")
	}
}
