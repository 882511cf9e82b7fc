package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/app"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

func banner(width int, title string) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", width))
	fmt.Printf("  %s\n", title)
	fmt.Println(strings.Repeat("=", width))
}

func footer(width int) {
	fmt.Println(strings.Repeat("=", width))
}

func day(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func printProposal(p *ai.ActionProposal) {
	fmt.Printf("\nSUMMARY:    %s\n", p.Summary)
	fmt.Printf("ACTION:     %s\n", p.Action)
	fmt.Printf("ARGUMENTS:  %s\n", p.Arguments)
	fmt.Printf("REASONING:  %s\n", p.Reasoning)
	fmt.Printf("CONFIDENCE: %.2f\n", p.Confidence)
}

func printProducts(result *app.ProductListResult) {
	banner(72, "PRODUCTS")
	if len(result.Products) == 0 {
		fmt.Println("  No products found.")
		footer(72)
		return
	}
	fmt.Printf("  %-6s %-34s %12s %12s\n", "ID", "NAME", "BASE COST", "PRICE")
	fmt.Println(strings.Repeat("-", 72))
	for _, p := range result.Products {
		fmt.Printf("  %-6d %-34s %12s %12s\n", p.ID, p.Name, p.BaseCost.StringFixed(2), p.SellingPrice.StringFixed(2))
	}
	footer(72)
}

func printClients(result *app.ClientListResult) {
	banner(62, "CLIENTS")
	if len(result.Clients) == 0 {
		fmt.Println("  No clients found.")
		footer(62)
		return
	}
	fmt.Printf("  %-6s %-34s %s\n", "ID", "NAME", "PHONE")
	fmt.Println(strings.Repeat("-", 62))
	for _, c := range result.Clients {
		fmt.Printf("  %-6d %-34s %s\n", c.ID, c.Name, c.Phone)
	}
	footer(62)
}

func printAddresses(result *app.AddressListResult) {
	banner(62, fmt.Sprintf("ADDRESSES — Client %d", result.ClientID))
	for _, a := range result.Addresses {
		fmt.Printf("  %-6d %s\n", a.ID, a.Address)
	}
	if len(result.Addresses) == 0 {
		fmt.Println("  No addresses found.")
	}
	footer(62)
}

func printSuppliers(result *app.SupplierListResult) {
	banner(62, "SUPPLIERS")
	for _, s := range result.Suppliers {
		fmt.Printf("  %-6d %-34s %s\n", s.ID, s.Name, s.Phone)
	}
	if len(result.Suppliers) == 0 {
		fmt.Println("  No suppliers found.")
	}
	footer(62)
}

func printOrders(title string, result *app.OrderListResult) {
	banner(88, title)
	if len(result.Orders) == 0 {
		fmt.Println("  No orders found.")
		footer(88)
		return
	}
	fmt.Printf("  %-5s %-20s %-22s %-10s %12s  %s\n", "ID", "INVOICE", "CLIENT", "STATUS", "TOTAL", "DATE")
	fmt.Println(strings.Repeat("-", 88))
	for _, o := range result.Orders {
		invoice := "(draft)"
		if o.InvoiceNumber != nil {
			invoice = *o.InvoiceNumber
		}
		fmt.Printf("  %-5d %-20s %-22s %-10s %12s  %s\n",
			o.ID, invoice, o.ClientName, o.Status, o.TotalAmount.StringFixed(2), o.OrderDate.Format("2006-01-02"))
	}
	footer(88)
}

func printOrderDetail(o *core.Order) {
	invoice := fmt.Sprintf("(ID: %d, DRAFT)", o.ID)
	if o.InvoiceNumber != nil {
		invoice = *o.InvoiceNumber
	}
	fmt.Println()
	fmt.Println(strings.Repeat("-", 66))
	fmt.Printf("  Order:     %s\n", invoice)
	fmt.Printf("  Client:    %s (%d)\n", o.ClientName, o.ClientID)
	fmt.Printf("  Address:   %s\n", o.Address)
	fmt.Printf("  Status:    %s\n", o.Status)
	fmt.Printf("  Date:      %s\n", o.OrderDate.Format("2006-01-02"))
	if o.Status == core.OrderConfirmed {
		fmt.Printf("  Payment:   %s (paid %s, due %s)\n", o.PaymentStatus, o.AmountPaid.StringFixed(2), day(o.DueDate))
	}
	fmt.Println(strings.Repeat("-", 66))
	fmt.Printf("  %-28s %10s %12s %12s\n", "PRODUCT", "QTY", "UNIT PRICE", "TOTAL")
	fmt.Println(strings.Repeat("-", 66))
	for _, l := range o.Lines {
		fmt.Printf("  %-28s %10s %12s %12s\n",
			l.ProductName, l.Quantity.String(), l.UnitPrice.StringFixed(2), l.LineTotal.StringFixed(2))
	}
	fmt.Println(strings.Repeat("-", 66))
	fmt.Printf("  %-28s %36s\n", "TOTAL", o.TotalAmount.StringFixed(2))
}

func printPaymentState(st *core.PaymentState) {
	fmt.Println()
	fmt.Printf("  Invoice:     %s (%s)\n", st.InvoiceNumber, st.PartyName)
	fmt.Printf("  Total:       %s\n", st.TotalAmount.StringFixed(2))
	fmt.Printf("  Received:    %s\n", st.TotalReceived.StringFixed(2))
	fmt.Printf("  Credited:    %s\n", st.TotalCredited.StringFixed(2))
	fmt.Printf("  Outstanding: %s\n", st.Outstanding.StringFixed(2))
	fmt.Printf("  Status:      %s (due %s)\n", st.Status, day(st.DueDate))
}

func printClientPayment(result *app.ClientPaymentResult) {
	if result.Payment == nil {
		fmt.Println("Nothing to record.")
	} else {
		fmt.Printf("Recorded %s (%s).\n", result.Payment.Amount.StringFixed(2), result.Payment.Method)
	}
	printPaymentState(result.State)
}

func printSupplierPayment(result *app.SupplierPaymentResult) {
	if result.Payment == nil {
		fmt.Println("Nothing to record.")
	} else {
		fmt.Printf("Recorded %s (%s).\n", result.Payment.Amount.StringFixed(2), result.Payment.Method)
	}
	printPaymentState(result.State)
}

func printClientPayments(payments []core.ClientPayment) {
	if len(payments) == 0 {
		return
	}
	fmt.Printf("\n  %-12s %-14s %12s  %s\n", "DATE", "METHOD", "AMOUNT", "NOTE")
	for _, p := range payments {
		fmt.Printf("  %-12s %-14s %12s  %s\n", p.PaymentDate.Format("2006-01-02"), p.Method, p.Amount.StringFixed(2), p.Note)
	}
}

func printOutstanding(title string, result *app.OutstandingResult) {
	banner(88, title)
	if len(result.Invoices) == 0 {
		fmt.Println("  Nothing outstanding.")
		footer(88)
		return
	}
	fmt.Printf("  %-20s %-24s %12s %12s  %-14s %s\n", "INVOICE", "PARTY", "TOTAL", "OUTSTANDING", "STATUS", "DUE")
	fmt.Println(strings.Repeat("-", 88))
	for _, st := range result.Invoices {
		fmt.Printf("  %-20s %-24s %12s %12s  %-14s %s\n", st.InvoiceNumber, st.PartyName,
			st.TotalAmount.StringFixed(2), st.Outstanding.StringFixed(2), st.Status, day(st.DueDate))
	}
	footer(88)
}

func printStockLevels(result *app.StockResult) {
	banner(78, "STOCK LEVELS")
	if len(result.Levels) == 0 {
		fmt.Println("  No products found.")
		footer(78)
		return
	}
	fmt.Printf("  %-6s %-30s %12s %12s %12s\n", "ID", "PRODUCT", "ON HAND", "BASE COST", "VALUE")
	fmt.Println(strings.Repeat("-", 78))
	for _, l := range result.Levels {
		fmt.Printf("  %-6d %-30s %12s %12s %12s\n",
			l.ProductID, l.ProductName, l.OnHand.String(), l.BaseCost.StringFixed(2), l.StockValue.StringFixed(2))
	}
	footer(78)
}

func printMovements(moves []core.StockMovement) {
	banner(88, "MOVEMENTS")
	if len(moves) == 0 {
		fmt.Println("  No movements.")
		footer(88)
		return
	}
	fmt.Printf("  %-17s %-15s %10s %10s  %s\n", "WHEN", "KIND", "CHANGE", "UNIT COST", "SOURCE")
	fmt.Println(strings.Repeat("-", 88))
	for _, m := range moves {
		source := string(m.SourceDocKind)
		if m.SourceDocID != nil {
			source = fmt.Sprintf("%s #%d", source, *m.SourceDocID)
		}
		fmt.Printf("  %-17s %-15s %10s %10s  %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.Kind,
			m.QuantityChange.String(), m.UnitCost.StringFixed(2), source)
	}
	footer(88)
}

func printSupplierInvoice(result *app.SupplierInvoiceResult) {
	inv := result.Invoice
	state := "open"
	if inv.FinalizedAt != nil {
		state = "finalized"
	}
	banner(78, fmt.Sprintf("SUPPLIER INVOICE %s — %s (%s)", inv.InvoiceNumber, inv.SupplierName, state))
	fmt.Printf("  %-6s %-28s %10s %12s %12s\n", "LINE", "PRODUCT", "QTY", "UNIT COST", "TOTAL")
	fmt.Println(strings.Repeat("-", 78))
	for _, l := range inv.Lines {
		fmt.Printf("  %-6d %-28s %10s %12s %12s\n",
			l.ID, l.ProductName, l.Quantity.String(), l.UnitCost.StringFixed(2), l.LineTotal.StringFixed(2))
	}
	footer(78)
	printPaymentState(result.State)
}

func printIntegrity(report *core.IntegrityReport) {
	banner(78, "INTEGRITY CHECK "+report.CorrelationID)
	if report.OK() {
		fmt.Println("  All ledgers reconcile.")
	}
	for _, m := range report.Mismatches {
		fmt.Printf("  [%s] %s %d: %s\n", m.CheckType, m.EntityType, m.EntityID, m.Details)
	}
	footer(78)
}

func printHelp() {
	fmt.Println()
	fmt.Println("INVENTORY & LEDGER — COMMANDS")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println()
	fmt.Println("  MASTER DATA")
	fmt.Println("  /products                           List active products")
	fmt.Println("  /clients                            List clients")
	fmt.Println("  /addresses <client-id>              List a client's delivery addresses")
	fmt.Println("  /suppliers                          List suppliers")
	fmt.Println()
	fmt.Println("  ORDERS")
	fmt.Println("  /orders [status]                    List orders (draft|confirmed)")
	fmt.Println("  /today                              Today's orders")
	fmt.Println("  /order <ref>                        Show an order (id or invoice number)")
	fmt.Println("  /new-order <client-id> <address-id> Create a draft order interactively")
	fmt.Println("  /confirm <ref> [ref...]             Ship and invoice drafts (all or none)")
	fmt.Println("  /cancel <ref> [ref...]              Delete drafts")
	fmt.Println()
	fmt.Println("  RECEIVABLES")
	fmt.Println("  /pay <ref> [method]                 Record full payment")
	fmt.Println("  /partial <ref> <new-total>          Set total received")
	fmt.Println("  /reverse <ref> [note]               Cancel all payments")
	fmt.Println("  /state <ref>                        Payment state and history")
	fmt.Println("  /unpaid [client-id]                 Outstanding client invoices")
	fmt.Println("  /return <client> <product> <qty> [ref]  Client return")
	fmt.Println()
	fmt.Println("  SUPPLIERS")
	fmt.Println("  /delivery <supplier-id> <invoice-no>    Receive a delivery interactively")
	fmt.Println("  /supplier-invoice <id>                  Show a supplier invoice")
	fmt.Println("  /finalize <id>                          Close a supplier invoice")
	fmt.Println("  /supplier-pay <id> [new-total]          Pay a supplier invoice")
	fmt.Println("  /supplier-reverse <id>                  Cancel supplier payments")
	fmt.Println("  /supplier-return <sup> <delivery> <product> <qty>  Return goods")
	fmt.Println("  /payables [supplier-id]                 Open supplier invoices")
	fmt.Println()
	fmt.Println("  INVENTORY")
	fmt.Println("  /stock                              Stock levels")
	fmt.Println("  /movements <product-id>             Movement history")
	fmt.Println("  /adjust <product-id> <in|out> <qty> Stock count correction")
	fmt.Println("  /check                              Reconcile all ledgers")
	fmt.Println()
	fmt.Println("  SESSION")
	fmt.Println("  /help                               Show this help")
	fmt.Println("  /exit                               Exit")
	fmt.Println()
	fmt.Println("  AGENT MODE  (no / prefix)")
	fmt.Println("  Describe what happened in plain language.")
	fmt.Println("  Example: \"Acme paid invoice INV-20260315-7 in full by transfer\"")
	fmt.Println(strings.Repeat("=", 70))
}
