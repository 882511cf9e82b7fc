package repl

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/app"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

// handleNewOrder runs an interactive order creation session.
func handleNewOrder(ctx context.Context, reader *bufio.Reader, svc app.ApplicationService, clientID, addressID int) {
	fmt.Printf("Creating order for client %d, address %d\n", clientID, addressID)
	fmt.Println("Enter order lines. Type 'done' when finished, 'cancel' to abort.")
	fmt.Println("Format per line: <product-id> <quantity> [unit-price]")
	fmt.Println("  Example: 3 10")
	fmt.Println("  Example: 3 5 4.50   (overrides the selling price)")

	var lines []core.OrderLineInput
readLines:
	for lineNum := 1; ; {
		fmt.Printf("  Line %d: ", lineNum)
		raw, _ := reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		switch strings.ToLower(raw) {
		case "cancel":
			fmt.Println("Order creation cancelled.")
			return
		case "done":
			break readLines
		case "":
			continue
		}

		parts := strings.Fields(raw)
		if len(parts) < 2 {
			fmt.Println("  Invalid format. Use: <product-id> <quantity> [unit-price]")
			continue
		}
		productID, err := strconv.Atoi(parts[0])
		if err != nil || productID <= 0 {
			fmt.Println("  Invalid product id.")
			continue
		}
		qty, err := decimal.NewFromString(parts[1])
		if err != nil || !qty.IsPositive() {
			fmt.Println("  Invalid quantity.")
			continue
		}
		line := core.OrderLineInput{ProductID: productID, Quantity: qty}
		if len(parts) >= 3 {
			price, err := decimal.NewFromString(parts[2])
			if err != nil || price.IsNegative() {
				fmt.Println("  Invalid price.")
				continue
			}
			line.UnitPrice = &price
		}
		lines = append(lines, line)
		lineNum++
	}

	if len(lines) == 0 {
		fmt.Println("No lines entered. Order not created.")
		return
	}

	employeeID := 1
	fmt.Print("Employee id [1]: ")
	raw, _ := reader.ReadString('\n')
	if raw = strings.TrimSpace(raw); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			fmt.Println("Invalid employee id. Order not created.")
			return
		}
		employeeID = id
	}

	result, err := svc.CreateOrder(ctx, core.CreateOrderRequest{
		ClientID:   clientID,
		AddressID:  addressID,
		EmployeeID: employeeID,
		Lines:      lines,
	})
	if err != nil {
		fmt.Print("[REPL] Error creating order. ")
		printError(err)
		return
	}

	fmt.Printf("\nOrder created (ID: %d, Status: DRAFT)\n", result.Order.ID)
	printOrderDetail(result.Order)
	fmt.Println("Use '/confirm <id>' to ship it and issue the invoice.")
}

// handleDelivery collects delivered lines for one supplier invoice and books
// them in a single event.
func handleDelivery(ctx context.Context, reader *bufio.Reader, svc app.ApplicationService, supplierID int, invoiceNumber string) {
	fmt.Printf("Receiving supplier invoice %s from supplier %d\n", invoiceNumber, supplierID)
	fmt.Println("Format per line: <product-id> <quantity> <unit-cost>. Type 'done' or 'cancel'.")

	var lines []core.DeliveryLineInput
	for {
		fmt.Printf("  Line %d: ", len(lines)+1)
		raw, _ := reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if strings.EqualFold(raw, "cancel") {
			fmt.Println("Delivery cancelled.")
			return
		}
		if strings.EqualFold(raw, "done") {
			break
		}
		parts := strings.Fields(raw)
		if len(parts) != 3 {
			fmt.Println("  Invalid format. Use: <product-id> <quantity> <unit-cost>")
			continue
		}
		productID, err := strconv.Atoi(parts[0])
		if err != nil || productID <= 0 {
			fmt.Println("  Invalid product id.")
			continue
		}
		qty, err := decimal.NewFromString(parts[1])
		if err != nil || !qty.IsPositive() {
			fmt.Println("  Invalid quantity.")
			continue
		}
		cost, err := decimal.NewFromString(parts[2])
		if err != nil || !cost.IsPositive() {
			fmt.Println("  Invalid unit cost.")
			continue
		}
		lines = append(lines, core.DeliveryLineInput{ProductID: productID, Quantity: qty, UnitCost: cost})
	}
	if len(lines) == 0 {
		fmt.Println("No lines entered. Nothing booked.")
		return
	}

	fmt.Print("Finalize invoice now? (y/n): ")
	choice, _ := reader.ReadString('\n')
	finalize := strings.EqualFold(strings.TrimSpace(choice), "y")

	result, err := svc.ReceiveDelivery(ctx, core.DeliveryRequest{
		SupplierID:    supplierID,
		InvoiceNumber: invoiceNumber,
		Lines:         lines,
		Finalize:      finalize,
	})
	if err != nil {
		fmt.Print("[REPL] Error booking delivery. ")
		printError(err)
		return
	}
	fmt.Printf("Supplier invoice %d booked, delivery lines %v.\n", result.SupplierInvoiceID, result.DeliveryIDs)
}
