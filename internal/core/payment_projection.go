package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoredStatus is the status persisted on the invoice row after every write.
//
//	net >= total        → paid
//	net == 0            → unpaid
//	anything else       → partially_paid (credits below zero included)
//
// A zero-total invoice with no payments is paid.
func StoredStatus(total, net decimal.Decimal) PaymentStatus {
	switch {
	case net.GreaterThanOrEqual(total):
		return PaymentPaid
	case net.IsZero():
		return PaymentUnpaid
	default:
		return PaymentPartiallyPaid
	}
}

// ProjectStatus adds the overdue rule to StoredStatus: an invoice past its
// due date that is not fully paid is overdue. A due date equal to today is not past.
func ProjectStatus(total, net decimal.Decimal, dueDate *time.Time, today time.Time) PaymentStatus {
	stored := StoredStatus(total, net)
	if stored != PaymentPaid && dueDate != nil && dateOnly(*dueDate).Before(dateOnly(today)) {
		return PaymentOverdue
	}
	return stored
}

// ClampPaid is the amount_paid column value: net limited to [0, total].
func ClampPaid(net, total decimal.Decimal) decimal.Decimal {
	if net.IsNegative() {
		return decimal.Zero
	}
	if net.GreaterThan(total) {
		return total
	}
	return net
}

// Project builds the full state from the invoice total and its signed amounts.
func Project(total decimal.Decimal, amounts []decimal.Decimal, dueDate *time.Time, today time.Time) PaymentState {
	received, credited := decimal.Zero, decimal.Zero
	for _, a := range amounts {
		if a.IsPositive() {
			received = received.Add(a)
		} else {
			credited = credited.Add(a.Abs())
		}
	}
	return projectTotals(total, received, credited, dueDate, today)
}

func projectTotals(total, received, credited decimal.Decimal, dueDate *time.Time, today time.Time) PaymentState {
	net := received.Sub(credited)
	return PaymentState{
		DueDate:       dueDate,
		TotalAmount:   total,
		TotalReceived: received,
		TotalCredited: credited,
		NetReceived:   net,
		AmountPaid:    ClampPaid(net, total),
		Outstanding:   total.Sub(net),
		Status:        ProjectStatus(total, net, dueDate, today),
	}
}

// FullPaymentAmount is the row a full payment writes. Zero means the invoice
// is already settled and nothing is written.
func FullPaymentAmount(total, net decimal.Decimal) decimal.Decimal {
	if net.GreaterThanOrEqual(total) {
		return decimal.Zero
	}
	return total.Sub(net)
}

// PartialPaymentAmount is the delta that moves the stored amount_paid to
// newTotalPaid. Targets above the invoice total clamp to it.
func PartialPaymentAmount(total, storedPaid, newTotalPaid decimal.Decimal) decimal.Decimal {
	target := newTotalPaid
	if target.GreaterThan(total) {
		target = total
	}
	return target.Sub(storedPaid)
}

// ReversalAmount cancels the whole net. Zero means there is nothing to reverse.
func ReversalAmount(net decimal.Decimal) decimal.Decimal {
	return net.Neg()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
