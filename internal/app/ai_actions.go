package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

// ErrAgentUnavailable is returned by InterpretAction when no agent is wired.
var ErrAgentUnavailable = errors.New("AI agent not configured (set OPENAI_API_KEY)")

func (s *appService) InterpretAction(ctx context.Context, text string) (*ActionResult, error) {
	if s.agent == nil {
		return nil, ErrAgentUnavailable
	}
	catalog, err := s.buildCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	proposal, err := s.agent.ProposeAction(ctx, text, catalog, s.tools)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Proposal: proposal}, nil
}

// buildCatalog lists products, clients with addresses and suppliers for the prompt.
func (s *appService) buildCatalog(ctx context.Context) (string, error) {
	md := s.disp.MasterData()
	var b strings.Builder

	products, err := md.ListProducts(ctx)
	if err != nil {
		return "", err
	}
	b.WriteString("Products (id | name | selling price):\n")
	for _, p := range products {
		fmt.Fprintf(&b, "%d | %s | %s\n", p.ID, p.Name, p.SellingPrice.StringFixed(2))
	}

	clients, err := md.ListClients(ctx)
	if err != nil {
		return "", err
	}
	b.WriteString("Clients (id | name | addresses):\n")
	for _, c := range clients {
		addrs, err := md.ListAddresses(ctx, c.ID)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(addrs))
		for _, a := range addrs {
			parts = append(parts, fmt.Sprintf("#%d %s", a.ID, a.Address))
		}
		fmt.Fprintf(&b, "%d | %s | %s\n", c.ID, c.Name, strings.Join(parts, "; "))
	}

	suppliers, err := md.ListSuppliers(ctx)
	if err != nil {
		return "", err
	}
	b.WriteString("Suppliers (id | name):\n")
	for _, sp := range suppliers {
		fmt.Fprintf(&b, "%d | %s\n", sp.ID, sp.Name)
	}
	return b.String(), nil
}

func (s *appService) ExecuteProposal(ctx context.Context, p *ai.ActionProposal) (string, error) {
	if p == nil {
		return "", errors.New("no proposal to execute")
	}
	if _, ok := s.tools.Get(p.Action); !ok {
		return "", fmt.Errorf("unknown action %q", p.Action)
	}

	switch p.Action {
	case ai.ActionCreateOrder:
		var args ai.CreateOrderArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		req, err := createOrderFromArgs(args)
		if err != nil {
			return "", err
		}
		res, err := s.CreateOrder(ctx, req)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Draft order %d created, total %s", res.Order.ID, res.Order.TotalAmount.StringFixed(2)), nil

	case ai.ActionConfirmOrder:
		var args ai.OrderRefArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		res, err := s.ConfirmOrders(ctx, []string{args.OrderRef})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Order %d confirmed as %s", res.Invoices[0].OrderID, res.Invoices[0].InvoiceNumber), nil

	case ai.ActionRecordFullPayment:
		var args ai.FullPaymentArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		res, err := s.RecordFullPayment(ctx, PaymentRequest{OrderRef: args.OrderRef, Method: args.PaymentMethod})
		if err != nil {
			return "", err
		}
		return describeClientPayment(res), nil

	case ai.ActionRecordPartialPayment:
		var args ai.PartialPaymentArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		total, err := parseAmount("new_total_paid", args.NewTotalPaid)
		if err != nil {
			return "", err
		}
		res, err := s.RecordPartialPayment(ctx, PartialPaymentRequest{OrderRef: args.OrderRef, NewTotalPaid: total})
		if err != nil {
			return "", err
		}
		return describeClientPayment(res), nil

	case ai.ActionReversePayment:
		var args ai.ReversePaymentArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		res, err := s.ReversePayment(ctx, args.OrderRef, args.Note)
		if err != nil {
			return "", err
		}
		return describeClientPayment(res), nil

	case ai.ActionClientReturn:
		var args ai.ClientReturnArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		qty, err := parseAmount("quantity", args.Quantity)
		if err != nil {
			return "", err
		}
		res, err := s.ClientReturn(ctx, ClientReturnRequest{
			ClientID: args.ClientID, OrderRef: args.OrderRef, ProductID: args.ProductID, Quantity: qty,
		})
		if err != nil {
			return "", err
		}
		msg := fmt.Sprintf("Returned %s of product %d to stock", qty.String(), args.ProductID)
		if res.Credit != nil {
			msg += fmt.Sprintf(", credited %s", res.Credit.Amount.Neg().StringFixed(2))
		}
		return msg, nil

	case ai.ActionReceiveDelivery:
		var args ai.ReceiveDeliveryArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		req, err := deliveryFromArgs(args)
		if err != nil {
			return "", err
		}
		res, err := s.ReceiveDelivery(ctx, req)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Supplier invoice %d booked with %d lines", res.SupplierInvoiceID, len(res.DeliveryIDs)), nil

	case ai.ActionRecordSupplierPayment:
		var args ai.SupplierPaymentArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		res, err := s.RecordSupplierPayment(ctx, core.SupplierPaymentRequest{SupplierInvoiceID: args.SupplierInvoiceID})
		if err != nil {
			return "", err
		}
		if res.Payment == nil {
			return fmt.Sprintf("Supplier invoice %d already settled", args.SupplierInvoiceID), nil
		}
		return fmt.Sprintf("Paid %s on supplier invoice %d", res.Payment.Amount.StringFixed(2), args.SupplierInvoiceID), nil

	case ai.ActionReturnToSupplier:
		var args ai.ReturnToSupplierArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		qty, err := parseAmount("quantity", args.Quantity)
		if err != nil {
			return "", err
		}
		deliveryID := args.DeliveryID
		res, err := s.ReturnToSupplier(ctx, core.SupplierReturnRequest{
			SupplierID: args.SupplierID, DeliveryID: &deliveryID, ProductID: args.ProductID, Quantity: qty,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Returned %s of product %d, supplier credit %s",
			qty.String(), args.ProductID, res.Credit.Amount.Neg().StringFixed(2)), nil

	case ai.ActionAdjustInventory:
		var args ai.AdjustInventoryArgs
		if err := ai.DecodeArguments(p, &args); err != nil {
			return "", err
		}
		qty, err := parseAmount("quantity", args.Quantity)
		if err != nil {
			return "", err
		}
		m, err := s.AdjustInventory(ctx, core.AdjustmentRequest{
			ProductID: args.ProductID, Quantity: qty, Kind: core.MovementKind(args.Kind), Note: args.Note,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Stock of product %d changed by %s", m.ProductID, m.QuantityChange.String()), nil
	}
	return "", fmt.Errorf("action %q has no executor", p.Action)
}

func describeClientPayment(res *ClientPaymentResult) string {
	if res.Payment == nil {
		return fmt.Sprintf("Nothing to record, invoice is %s", res.State.Status)
	}
	return fmt.Sprintf("Recorded %s on %s, outstanding %s (%s)",
		res.Payment.Amount.StringFixed(2), res.State.InvoiceNumber, res.State.Outstanding.StringFixed(2), res.State.Status)
}

// parseAmount reads an exact decimal string.
func parseAmount(field, s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a decimal number", core.ErrInvalidAmount, field, s)
	}
	return v, nil
}

func createOrderFromArgs(args ai.CreateOrderArgs) (core.CreateOrderRequest, error) {
	req := core.CreateOrderRequest{ClientID: args.ClientID, AddressID: args.AddressID}
	for i, l := range args.Lines {
		qty, err := parseAmount(fmt.Sprintf("lines[%d].quantity", i), l.Quantity)
		if err != nil {
			return req, err
		}
		line := core.OrderLineInput{ProductID: l.ProductID, Quantity: qty}
		if strings.TrimSpace(l.UnitPrice) != "" {
			price, err := parseAmount(fmt.Sprintf("lines[%d].unit_price", i), l.UnitPrice)
			if err != nil {
				return req, err
			}
			line.UnitPrice = &price
		}
		req.Lines = append(req.Lines, line)
	}
	return req, nil
}

func deliveryFromArgs(args ai.ReceiveDeliveryArgs) (core.DeliveryRequest, error) {
	req := core.DeliveryRequest{SupplierID: args.SupplierID, InvoiceNumber: strings.TrimSpace(args.InvoiceNumber)}
	for i, l := range args.Lines {
		qty, err := parseAmount(fmt.Sprintf("lines[%d].quantity", i), l.Quantity)
		if err != nil {
			return req, err
		}
		cost, err := parseAmount(fmt.Sprintf("lines[%d].unit_cost", i), l.UnitCost)
		if err != nil {
			return req, err
		}
		req.Lines = append(req.Lines, core.DeliveryLineInput{ProductID: l.ProductID, Quantity: qty, UnitCost: cost})
	}
	return req, nil
}
