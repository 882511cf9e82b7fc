package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind classifies a stock movement. The direction of each kind is
// fixed by Sign; AllMovementKinds must list every constant below.
type MovementKind string

const (
	MovementIncoming      MovementKind = "incoming"
	MovementOutgoing      MovementKind = "outgoing"
	MovementReturnIn      MovementKind = "return_in"
	MovementReturnOut     MovementKind = "return_out"
	MovementAdjustmentIn  MovementKind = "adjustment_in"
	MovementAdjustmentOut MovementKind = "adjustment_out"
)

var AllMovementKinds = []MovementKind{
	MovementIncoming, MovementOutgoing,
	MovementReturnIn, MovementReturnOut,
	MovementAdjustmentIn, MovementAdjustmentOut,
}

// Sign returns +1 for inflows and -1 for outflows.
func (k MovementKind) Sign() (int, error) {
	switch k {
	case MovementIncoming, MovementReturnIn, MovementAdjustmentIn:
		return 1, nil
	case MovementOutgoing, MovementReturnOut, MovementAdjustmentOut:
		return -1, nil
	default:
		return 0, fmt.Errorf("unknown movement kind %q", string(k))
	}
}

func (k MovementKind) IsInflow() bool {
	sign, err := k.Sign()
	return err == nil && sign > 0
}

func ParseMovementKind(s string) (MovementKind, error) {
	k := MovementKind(s)
	if _, err := k.Sign(); err != nil {
		return "", err
	}
	return k, nil
}

// SourceDocKind names the document a movement originates from.
// The empty value means the movement has no source document.
type SourceDocKind string

const (
	SourceNone             SourceDocKind = ""
	SourceOrder            SourceDocKind = "order"
	SourceIncomingDelivery SourceDocKind = "incoming_delivery"
	SourceReturn           SourceDocKind = "return"
	SourceReturnToSupplier SourceDocKind = "return_to_supplier"
	SourceAdjustment       SourceDocKind = "inventory_adjustment"
)

func (s SourceDocKind) Valid() bool {
	switch s {
	case SourceNone, SourceOrder, SourceIncomingDelivery, SourceReturn, SourceReturnToSupplier, SourceAdjustment:
		return true
	}
	return false
}

// MovementInput is what a caller hands to StockLedger.RecordMovementTx.
// Quantity is a positive magnitude; the kind decides the direction.
type MovementInput struct {
	ProductID     int
	Quantity      decimal.Decimal
	Kind          MovementKind
	UnitCost      *decimal.Decimal
	SourceDocKind SourceDocKind
	SourceDocID   *int
	Note          string
}

// StockMovement is one immutable row of the movement log.
// QuantityChange is signed.
type StockMovement struct {
	ID             int64           `json:"id"`
	ProductID      int             `json:"product_id"`
	ProductName    string          `json:"product_name,omitempty"`
	QuantityChange decimal.Decimal `json:"quantity_change"`
	Kind           MovementKind    `json:"movement_kind"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	SourceDocKind  SourceDocKind   `json:"source_doc_kind,omitempty"`
	SourceDocID    *int            `json:"source_doc_id,omitempty"`
	Note           string          `json:"note"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StockLevel is a read view of a product joined with its stock row.
// Products never touched by a movement report zero.
type StockLevel struct {
	ProductID    int             `json:"product_id"`
	ProductName  string          `json:"product_name"`
	OnHand       decimal.Decimal `json:"on_hand"`
	BaseCost     decimal.Decimal `json:"base_cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	StockValue   decimal.Decimal `json:"stock_value"` // OnHand × BaseCost
}
