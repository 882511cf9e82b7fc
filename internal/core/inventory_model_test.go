package core_test

import (
	"testing"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/core"
)

func TestMovementKind_Sign(t *testing.T) {
	want := map[core.MovementKind]int{
		core.MovementIncoming:      1,
		core.MovementReturnIn:      1,
		core.MovementAdjustmentIn:  1,
		core.MovementOutgoing:      -1,
		core.MovementReturnOut:     -1,
		core.MovementAdjustmentOut: -1,
	}
	if len(core.AllMovementKinds) != len(want) {
		t.Fatalf("AllMovementKinds has %d entries, want %d", len(core.AllMovementKinds), len(want))
	}
	for _, k := range core.AllMovementKinds {
		sign, err := k.Sign()
		if err != nil {
			t.Errorf("%s: unexpected error %v", k, err)
			continue
		}
		if sign != want[k] {
			t.Errorf("%s: sign %d, want %d", k, sign, want[k])
		}
		if k.IsInflow() != (want[k] > 0) {
			t.Errorf("%s: IsInflow = %v", k, k.IsInflow())
		}
	}
}

func TestParseMovementKind(t *testing.T) {
	if k, err := core.ParseMovementKind("return_in"); err != nil || k != core.MovementReturnIn {
		t.Errorf("ParseMovementKind(return_in) = %q, %v", k, err)
	}
	for _, bad := range []string{"", "INCOMING", "transfer"} {
		if _, err := core.ParseMovementKind(bad); err == nil {
			t.Errorf("ParseMovementKind(%q): expected error", bad)
		}
	}
}

func TestInvoiceNumber(t *testing.T) {
	if got := core.InvoiceNumber(date("2026-02-07"), 42); got != "INV-20260207-42" {
		t.Errorf("InvoiceNumber = %q", got)
	}
}
