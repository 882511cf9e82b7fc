package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds. Every failure returned by a Dispatcher event matches exactly one
// of these through errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrIntegrityViolation = errors.New("integrity violation")
	ErrTransient          = errors.New("transient failure")

	// ErrMissingUnitCost refines ErrInvalidAmount: an inflow movement carried no cost.
	ErrMissingUnitCost = fmt.Errorf("%w: missing unit cost", ErrInvalidAmount)
)

// EngineError carries the kind, the operation that failed and a readable message.
type EngineError struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *EngineError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func (e *EngineError) Unwrap() error { return e.Err }

func newEngineError(kind error, op, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func notFound(op, format string, args ...any) error {
	return newEngineError(ErrNotFound, op, format, args...)
}

func invalidState(op, format string, args ...any) error {
	return newEngineError(ErrInvalidState, op, format, args...)
}

func insufficientStock(op, format string, args ...any) error {
	return newEngineError(ErrInsufficientStock, op, format, args...)
}

func invalidAmount(op, format string, args ...any) error {
	return newEngineError(ErrInvalidAmount, op, format, args...)
}

func missingUnitCost(op, format string, args ...any) error {
	return newEngineError(ErrMissingUnitCost, op, format, args...)
}

// Postgres SQLSTATE codes mapped by classify.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgNotNullViolation     = "23502"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// classify turns a raw failure into an *EngineError. Errors that already
// carry a kind pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &EngineError{Kind: ErrTransient, Op: op, Msg: "deadline exceeded", Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation, pgCheckViolation, pgNotNullViolation:
			return &EngineError{Kind: ErrIntegrityViolation, Op: op, Msg: pgErr.ConstraintName, Err: err}
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return &EngineError{Kind: ErrTransient, Op: op, Msg: "concurrent update, retry", Err: err}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// KindOf names the kind of err for adapters ("NOT_FOUND", "INVALID_STATE", ...).
// Unclassified errors report "INTERNAL".
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingUnitCost):
		return "MISSING_UNIT_COST"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrIntegrityViolation):
		return "INTEGRITY_VIOLATION"
	case errors.Is(err, ErrTransient):
		return "TRANSIENT"
	default:
		return "INTERNAL"
	}
}
