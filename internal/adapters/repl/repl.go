package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/app"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

var errExit = errors.New("exit")

// Run starts the interactive REPL loop.
// It reads commands from reader, dispatches slash commands deterministically,
// and routes free-text input through the AI agent.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader) {
	fmt.Println("Wholesale Inventory & Ledger")
	fmt.Printf("Business date: %s\n", svc.Today().Format("2006-01-02"))
	fmt.Println("Describe what happened to get a proposed action, or use /help for commands.")
	fmt.Println(strings.Repeat("-", 70))

	for {
		fmt.Print("\n> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				return
			}
			continue
		}

		// Slash prefix → deterministic command dispatcher, no AI invoked.
		if strings.HasPrefix(input, "/") {
			if err := dispatchSlash(ctx, svc, reader, input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Println("Goodbye!")
					return
				}
				printError(err)
			}
			continue
		}

		// No slash prefix → route to AI agent.
		fmt.Println("[AI] Processing...")
		runProposal(ctx, svc, reader, input)
	}
}

func runProposal(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, input string) {
	result, err := svc.InterpretAction(ctx, input)
	if err != nil {
		printError(err)
		return
	}
	proposal := result.Proposal
	printProposal(proposal)
	if proposal.Confidence < 0.6 {
		fmt.Println("\nWARNING: Low confidence proposal.")
	}

	fmt.Print("\nExecute this action? (y/n): ")
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(strings.ToLower(choice))
	if choice != "y" && choice != "yes" {
		fmt.Println("Action cancelled.")
		return
	}
	msg, err := svc.ExecuteProposal(ctx, proposal)
	if err != nil {
		fmt.Print("Action FAILED. ")
		printError(err)
		return
	}
	fmt.Println(msg)
}

func dispatchSlash(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "products":
		result, err := svc.ListProducts(ctx)
		if err != nil {
			return err
		}
		printProducts(result)

	case "clients":
		result, err := svc.ListClients(ctx)
		if err != nil {
			return err
		}
		printClients(result)

	case "addresses":
		if len(args) < 1 {
			fmt.Println("Usage: /addresses <client-id>")
			return nil
		}
		clientID, err := parseID("client id", args[0])
		if err != nil {
			return err
		}
		result, err := svc.ListAddresses(ctx, clientID)
		if err != nil {
			return err
		}
		printAddresses(result)

	case "suppliers":
		result, err := svc.ListSuppliers(ctx)
		if err != nil {
			return err
		}
		printSuppliers(result)

	case "orders":
		var filter core.OrderFilter
		if len(args) > 0 {
			filter.Status = core.OrderStatus(strings.ToLower(args[0]))
		}
		result, err := svc.ListOrders(ctx, filter)
		if err != nil {
			return err
		}
		printOrders("ORDERS", result)

	case "today":
		result, err := svc.TodaysOrders(ctx)
		if err != nil {
			return err
		}
		printOrders("TODAY'S ORDERS", result)

	case "order":
		if len(args) < 1 {
			fmt.Println("Usage: /order <order-ref>")
			return nil
		}
		result, err := svc.GetOrder(ctx, args[0])
		if err != nil {
			return err
		}
		printOrderDetail(result.Order)

	case "new-order":
		if len(args) < 2 {
			fmt.Println("Usage: /new-order <client-id> <address-id>")
			return nil
		}
		clientID, err := parseID("client id", args[0])
		if err != nil {
			return err
		}
		addressID, err := parseID("address id", args[1])
		if err != nil {
			return err
		}
		handleNewOrder(ctx, reader, svc, clientID, addressID)

	case "confirm":
		if len(args) < 1 {
			fmt.Println("Usage: /confirm <order-ref> [order-ref...]")
			return nil
		}
		result, err := svc.ConfirmOrders(ctx, args)
		if err != nil {
			return err
		}
		for _, inv := range result.Invoices {
			fmt.Printf("Order %d CONFIRMED. Invoice: %s\n", inv.OrderID, inv.InvoiceNumber)
		}

	case "cancel":
		if len(args) < 1 {
			fmt.Println("Usage: /cancel <order-ref> [order-ref...]")
			return nil
		}
		if err := svc.CancelOrders(ctx, args); err != nil {
			return err
		}
		fmt.Printf("Cancelled %d draft order(s).\n", len(args))

	case "pay":
		if len(args) < 1 {
			fmt.Println("Usage: /pay <order-ref> [cash|transfer]")
			return nil
		}
		req := app.PaymentRequest{OrderRef: args[0]}
		if len(args) >= 2 {
			req.Method = strings.ToLower(args[1])
		}
		result, err := svc.RecordFullPayment(ctx, req)
		if err != nil {
			return err
		}
		printClientPayment(result)

	case "partial":
		if len(args) < 2 {
			fmt.Println("Usage: /partial <order-ref> <new-total-paid>")
			return nil
		}
		total, err := parseDecimal("amount", args[1])
		if err != nil {
			return err
		}
		result, err := svc.RecordPartialPayment(ctx, app.PartialPaymentRequest{OrderRef: args[0], NewTotalPaid: total})
		if err != nil {
			return err
		}
		printClientPayment(result)

	case "reverse":
		if len(args) < 1 {
			fmt.Println("Usage: /reverse <order-ref> [note...]")
			return nil
		}
		result, err := svc.ReversePayment(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printClientPayment(result)

	case "state":
		if len(args) < 1 {
			fmt.Println("Usage: /state <order-ref>")
			return nil
		}
		st, err := svc.GetPaymentState(ctx, args[0])
		if err != nil {
			return err
		}
		printPaymentState(st)
		payments, err := svc.ListClientPayments(ctx, args[0])
		if err != nil {
			return err
		}
		printClientPayments(payments)

	case "unpaid":
		clientID := 0
		if len(args) > 0 {
			id, err := parseID("client id", args[0])
			if err != nil {
				return err
			}
			clientID = id
		}
		result, err := svc.UnpaidInvoices(ctx, clientID)
		if err != nil {
			return err
		}
		printOutstanding("UNPAID CLIENT INVOICES", result)

	case "return":
		if len(args) < 3 {
			fmt.Println("Usage: /return <client-id> <product-id> <qty> [order-ref]")
			return nil
		}
		clientID, err := parseID("client id", args[0])
		if err != nil {
			return err
		}
		productID, err := parseID("product id", args[1])
		if err != nil {
			return err
		}
		qty, err := parseDecimal("quantity", args[2])
		if err != nil {
			return err
		}
		req := app.ClientReturnRequest{ClientID: clientID, ProductID: productID, Quantity: qty}
		if len(args) >= 4 {
			req.OrderRef = args[3]
		}
		result, err := svc.ClientReturn(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Returned %s of product %d to stock.\n", qty.String(), productID)
		if result.Credit != nil {
			fmt.Printf("Invoice credited %s.\n", result.Credit.Amount.Neg().StringFixed(2))
		}

	case "stock":
		result, err := svc.GetStockLevels(ctx)
		if err != nil {
			return err
		}
		printStockLevels(result)

	case "movements":
		if len(args) < 1 {
			fmt.Println("Usage: /movements <product-id>")
			return nil
		}
		productID, err := parseID("product id", args[0])
		if err != nil {
			return err
		}
		moves, err := svc.GetMovements(ctx, productID, nil, nil)
		if err != nil {
			return err
		}
		printMovements(moves)

	case "adjust":
		if len(args) < 3 {
			fmt.Println("Usage: /adjust <product-id> <in|out> <qty> [note...]")
			return nil
		}
		productID, err := parseID("product id", args[0])
		if err != nil {
			return err
		}
		kind := core.MovementKind("adjustment_" + strings.ToLower(args[1]))
		qty, err := parseDecimal("quantity", args[2])
		if err != nil {
			return err
		}
		m, err := svc.AdjustInventory(ctx, core.AdjustmentRequest{
			ProductID: productID, Quantity: qty, Kind: kind, Note: strings.Join(args[3:], " "),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Stock of product %d changed by %s.\n", m.ProductID, m.QuantityChange.String())

	case "delivery":
		if len(args) < 2 {
			fmt.Println("Usage: /delivery <supplier-id> <invoice-number>")
			return nil
		}
		supplierID, err := parseID("supplier id", args[0])
		if err != nil {
			return err
		}
		handleDelivery(ctx, reader, svc, supplierID, args[1])

	case "supplier-invoice":
		if len(args) < 1 {
			fmt.Println("Usage: /supplier-invoice <invoice-id>")
			return nil
		}
		id, err := parseID("supplier invoice id", args[0])
		if err != nil {
			return err
		}
		result, err := svc.GetSupplierInvoice(ctx, id)
		if err != nil {
			return err
		}
		printSupplierInvoice(result)

	case "finalize":
		if len(args) < 1 {
			fmt.Println("Usage: /finalize <invoice-id>")
			return nil
		}
		id, err := parseID("supplier invoice id", args[0])
		if err != nil {
			return err
		}
		if err := svc.FinalizeSupplierInvoice(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Supplier invoice %d finalized.\n", id)

	case "supplier-pay":
		if len(args) < 1 {
			fmt.Println("Usage: /supplier-pay <invoice-id> [new-total-paid]")
			return nil
		}
		id, err := parseID("supplier invoice id", args[0])
		if err != nil {
			return err
		}
		var result *app.SupplierPaymentResult
		if len(args) >= 2 {
			total, err := parseDecimal("amount", args[1])
			if err != nil {
				return err
			}
			result, err = svc.RecordSupplierPartialPayment(ctx, core.SupplierPartialPaymentRequest{SupplierInvoiceID: id, NewTotalPaid: total})
			if err != nil {
				return err
			}
		} else {
			result, err = svc.RecordSupplierPayment(ctx, core.SupplierPaymentRequest{SupplierInvoiceID: id})
			if err != nil {
				return err
			}
		}
		printSupplierPayment(result)

	case "supplier-reverse":
		if len(args) < 1 {
			fmt.Println("Usage: /supplier-reverse <invoice-id>")
			return nil
		}
		id, err := parseID("supplier invoice id", args[0])
		if err != nil {
			return err
		}
		result, err := svc.ReverseSupplierPayment(ctx, id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printSupplierPayment(result)

	case "supplier-return":
		if len(args) < 4 {
			fmt.Println("Usage: /supplier-return <supplier-id> <delivery-id> <product-id> <qty>")
			return nil
		}
		supplierID, err := parseID("supplier id", args[0])
		if err != nil {
			return err
		}
		deliveryID, err := parseID("delivery id", args[1])
		if err != nil {
			return err
		}
		productID, err := parseID("product id", args[2])
		if err != nil {
			return err
		}
		qty, err := parseDecimal("quantity", args[3])
		if err != nil {
			return err
		}
		result, err := svc.ReturnToSupplier(ctx, core.SupplierReturnRequest{
			SupplierID: supplierID, DeliveryID: &deliveryID, ProductID: productID, Quantity: qty,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Returned %s of product %d. Supplier credit %s.\n",
			qty.String(), productID, result.Credit.Amount.Neg().StringFixed(2))

	case "payables":
		supplierID := 0
		if len(args) > 0 {
			id, err := parseID("supplier id", args[0])
			if err != nil {
				return err
			}
			supplierID = id
		}
		result, err := svc.SupplierOutstanding(ctx, supplierID)
		if err != nil {
			return err
		}
		printOutstanding("OPEN SUPPLIER INVOICES", result)

	case "check":
		report, err := svc.CheckIntegrity(ctx)
		if err != nil {
			return err
		}
		printIntegrity(report)

	case "help", "h":
		printHelp()

	case "exit", "quit", "e", "q":
		return errExit

	default:
		fmt.Printf("Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}

func parseID(what, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", what, s)
	}
	return id, nil
}

func parseDecimal(what, s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", what, s)
	}
	return v, nil
}

func printError(err error) {
	if kind := core.KindOf(err); kind != "INTERNAL" {
		fmt.Printf("Error [%s]: %v\n", kind, err)
		if core.IsRetryable(err) {
			fmt.Println("The database is busy. Try again in a moment.")
		}
		return
	}
	fmt.Printf("Error: %v\n", err)
}
