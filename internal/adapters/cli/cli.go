package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/app"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	switch args[0] {
	case "propose", "prop", "p":
		if len(args) < 2 {
			log.Fatal("Usage: app propose \"<what happened>\"")
		}
		result, err := svc.InterpretAction(ctx, args[1])
		if err != nil {
			log.Fatalf("Agent error: %v", err)
		}
		writeJSON(result.Proposal)

	case "execute", "exec", "x":
		var proposal ai.ActionProposal
		if err := json.NewDecoder(os.Stdin).Decode(&proposal); err != nil {
			log.Fatalf("Invalid JSON: %v", err)
		}
		msg, err := svc.ExecuteProposal(ctx, &proposal)
		if err != nil {
			log.Fatalf("Execution failed: %v", err)
		}
		fmt.Println(msg)

	case "stock":
		result, err := svc.GetStockLevels(ctx)
		if err != nil {
			log.Fatalf("Failed to get stock levels: %v", err)
		}
		writeJSON(result.Levels)

	case "today":
		result, err := svc.TodaysOrders(ctx)
		if err != nil {
			log.Fatalf("Failed to get today's orders: %v", err)
		}
		writeJSON(result.Orders)

	case "unpaid":
		result, err := svc.UnpaidInvoices(ctx, optionalID(args, 1))
		if err != nil {
			log.Fatalf("Failed to get unpaid invoices: %v", err)
		}
		writeJSON(result.Invoices)

	case "payables":
		result, err := svc.SupplierOutstanding(ctx, optionalID(args, 1))
		if err != nil {
			log.Fatalf("Failed to get supplier outstanding: %v", err)
		}
		writeJSON(result.Invoices)

	case "deliveries":
		from, to := dateRange(svc, args)
		lines, err := svc.IncomingDeliveries(ctx, from, to)
		if err != nil {
			log.Fatalf("Failed to get deliveries: %v", err)
		}
		writeJSON(lines)

	case "supplier-payments":
		from, to := dateRange(svc, args)
		payments, err := svc.SupplierPayments(ctx, from, to)
		if err != nil {
			log.Fatalf("Failed to get supplier payments: %v", err)
		}
		writeJSON(payments)

	case "movements":
		productID := optionalID(args, 1)
		if productID == 0 {
			log.Fatal("Usage: app movements <product-id>")
		}
		moves, err := svc.GetMovements(ctx, productID, nil, nil)
		if err != nil {
			log.Fatalf("Failed to get movements: %v", err)
		}
		writeJSON(moves)

	case "check":
		report, err := svc.CheckIntegrity(ctx)
		if err != nil {
			log.Fatalf("Integrity check failed to run: %v", err)
		}
		writeJSON(report)
		if !report.OK() {
			os.Exit(1)
		}

	default:
		log.Fatalf("Unknown command: %s\nAvailable: %s", args[0], strings.Join([]string{
			"propose", "execute", "stock", "today", "unpaid", "payables",
			"deliveries", "supplier-payments", "movements", "check",
		}, ", "))
	}
}

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}

func optionalID(args []string, i int) int {
	if len(args) <= i {
		return 0
	}
	id, err := strconv.Atoi(args[i])
	if err != nil || id < 0 {
		log.Fatalf("Invalid id: %s", args[i])
	}
	return id
}

// dateRange reads [from] [to] as YYYY-MM-DD; both default to today.
func dateRange(svc app.ApplicationService, args []string) (time.Time, time.Time) {
	from, to := svc.Today(), svc.Today()
	if len(args) > 1 {
		from = mustDate(args[1])
		to = from
	}
	if len(args) > 2 {
		to = mustDate(args[2])
	}
	return from, to
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatalf("Invalid date %q, expected YYYY-MM-DD", s)
	}
	return t
}
