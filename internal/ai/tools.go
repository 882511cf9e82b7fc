package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// Engine actions the agent may propose. Each maps to one dispatcher event.
const (
	ActionCreateOrder           = "create_order"
	ActionConfirmOrder          = "confirm_order"
	ActionRecordFullPayment     = "record_full_payment"
	ActionRecordPartialPayment  = "record_partial_payment"
	ActionReversePayment        = "reverse_payment"
	ActionClientReturn          = "client_return"
	ActionReceiveDelivery       = "receive_delivery"
	ActionRecordSupplierPayment = "record_supplier_payment"
	ActionReturnToSupplier      = "return_to_supplier"
	ActionAdjustInventory       = "adjust_inventory"
)

// Argument payloads. Quantities and money are exact decimal strings.

type OrderLineArgs struct {
	ProductID int    `json:"product_id"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price" jsonschema_description:"Empty string uses the product selling price"`
}

type CreateOrderArgs struct {
	ClientID  int             `json:"client_id"`
	AddressID int             `json:"address_id"`
	Lines     []OrderLineArgs `json:"lines"`
}

// OrderRefArgs identifies an order by id or invoice number (INV-YYYYMMDD-id).
type OrderRefArgs struct {
	OrderRef string `json:"order_ref"`
}

type FullPaymentArgs struct {
	OrderRef      string `json:"order_ref"`
	PaymentMethod string `json:"payment_method" jsonschema:"enum=cash,enum=transfer"`
}

type PartialPaymentArgs struct {
	OrderRef     string `json:"order_ref"`
	NewTotalPaid string `json:"new_total_paid" jsonschema_description:"Total amount received on the invoice after this payment"`
}

type ReversePaymentArgs struct {
	OrderRef string `json:"order_ref"`
	Note     string `json:"note"`
}

type ClientReturnArgs struct {
	ClientID  int    `json:"client_id"`
	OrderRef  string `json:"order_ref" jsonschema_description:"Empty string when the return is not tied to an invoice"`
	ProductID int    `json:"product_id"`
	Quantity  string `json:"quantity"`
}

type DeliveryLineArgs struct {
	ProductID int    `json:"product_id"`
	Quantity  string `json:"quantity"`
	UnitCost  string `json:"unit_cost"`
}

type ReceiveDeliveryArgs struct {
	SupplierID    int                `json:"supplier_id"`
	InvoiceNumber string             `json:"invoice_number"`
	Lines         []DeliveryLineArgs `json:"lines"`
}

type SupplierPaymentArgs struct {
	SupplierInvoiceID int `json:"supplier_invoice_id"`
}

type ReturnToSupplierArgs struct {
	SupplierID int    `json:"supplier_id"`
	DeliveryID int    `json:"delivery_id" jsonschema_description:"Incoming delivery line the goods came in on"`
	ProductID  int    `json:"product_id"`
	Quantity   string `json:"quantity"`
}

type AdjustInventoryArgs struct {
	ProductID int    `json:"product_id"`
	Quantity  string `json:"quantity"`
	Kind      string `json:"kind" jsonschema:"enum=adjustment_in,enum=adjustment_out"`
	Note      string `json:"note"`
}

// ToolDefinition describes a single action in the registry.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any // JSON Schema for the action's arguments
}

// ToolRegistry holds all actions available to the agent for a given call.
type ToolRegistry struct {
	tools []ToolDefinition
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{}
}

// Register adds a tool to the registry.
func (r *ToolRegistry) Register(t ToolDefinition) {
	r.tools = append(r.tools, t)
}

// Get returns the ToolDefinition for a given tool name, and whether it was found.
func (r *ToolRegistry) Get(name string) (ToolDefinition, bool) {
	for _, t := range r.tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDefinition{}, false
}

// All returns all registered tools.
func (r *ToolRegistry) All() []ToolDefinition {
	return r.tools
}

// Names returns the registered tool names in sorted order.
func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Describe renders every tool with its argument schema for the prompt.
func (r *ToolRegistry) Describe() (string, error) {
	var b strings.Builder
	for _, t := range r.tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return "", fmt.Errorf("failed to marshal schema for %s: %w", t.Name, err)
		}
		fmt.Fprintf(&b, "- %s: %s\n  arguments schema: %s\n", t.Name, t.Description, schema)
	}
	return b.String(), nil
}

// NewTool builds a ToolDefinition whose input schema is reflected from args.
func NewTool(name, description string, args any) ToolDefinition {
	return ToolDefinition{Name: name, Description: description, InputSchema: schemaMap(args)}
}

// EngineTools registers every action the engine accepts from the agent.
func EngineTools() *ToolRegistry {
	r := NewToolRegistry()
	r.Register(NewTool(ActionCreateOrder, "Create a draft order for a client delivery address.", CreateOrderArgs{}))
	r.Register(NewTool(ActionConfirmOrder, "Confirm a draft order: ships stock and issues the invoice.", OrderRefArgs{}))
	r.Register(NewTool(ActionRecordFullPayment, "Record payment of the whole outstanding balance of a client invoice.", FullPaymentArgs{}))
	r.Register(NewTool(ActionRecordPartialPayment, "Set the total received on a client invoice to a new amount.", PartialPaymentArgs{}))
	r.Register(NewTool(ActionReversePayment, "Cancel every payment received on a client invoice.", ReversePaymentArgs{}))
	r.Register(NewTool(ActionClientReturn, "Take goods back from a client and credit the invoice if one is given.", ClientReturnArgs{}))
	r.Register(NewTool(ActionReceiveDelivery, "Book a supplier invoice with its delivered lines.", ReceiveDeliveryArgs{}))
	r.Register(NewTool(ActionRecordSupplierPayment, "Pay the outstanding balance of a supplier invoice.", SupplierPaymentArgs{}))
	r.Register(NewTool(ActionReturnToSupplier, "Send delivered goods back to the supplier for credit.", ReturnToSupplierArgs{}))
	r.Register(NewTool(ActionAdjustInventory, "Correct stock after a physical count.", AdjustInventoryArgs{}))
	return r
}

// DecodeArguments unmarshals a proposal's arguments into dst, rejecting unknown fields.
func DecodeArguments(p *ActionProposal, dst any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(p.Arguments)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", p.Action, err)
	}
	return nil
}

func schemaMap(v any) map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("ai: marshal schema for %T: %v", v, err))
	}
	var out map[string]any
	if err := json.Unmarshal(schemaJSON, &out); err != nil {
		panic(fmt.Sprintf("ai: unmarshal schema for %T: %v", v, err))
	}
	return out
}
