package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Fatal: the input table does not carry a required column
	ErrSchema = errors.New("schema error")

	// Recoverable: handled locally and surfaced as warnings
	ErrDegenerateColumn  = errors.New("degenerate column")
	ErrSolverConvergence = errors.New("least-squares solver did not converge")
	ErrUnmappedCategory  = errors.New("unmapped category")

	// Input shape errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrLengthMismatch   = errors.New("column length mismatch")
	ErrColumnNotFound   = errors.New("column not found")
	ErrColumnKind       = errors.New("column has wrong kind")
)

// NewSchemaError reports every required column absent from a table
func NewSchemaError(missing []string) error {
	return fmt.Errorf("%w: missing required columns [%s]", ErrSchema, strings.Join(missing, ", "))
}

func NewDegenerateColumnError(column string, reason string) error {
	return fmt.Errorf("%w %s: %s", ErrDegenerateColumn, column, reason)
}

func NewSolverConvergenceError(reason string) error {
	return fmt.Errorf("%w: %s", ErrSolverConvergence, reason)
}

func NewUnmappedCategoryError(column string, value string) error {
	return fmt.Errorf("%w %q in column %s", ErrUnmappedCategory, value, column)
}

func NewColumnNotFoundError(column string) error {
	return fmt.Errorf("%w: %s", ErrColumnNotFound, column)
}

func NewLengthMismatchError(column string, got, want int) error {
	return fmt.Errorf("%w: %s has %d rows, table has %d", ErrLengthMismatch, column, got, want)
}

// IsSchemaError reports whether err terminates the run
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

// IsRecoverable reports whether err is one of the locally recovered conditions
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDegenerateColumn) ||
		errors.Is(err, ErrSolverConvergence) ||
		errors.Is(err, ErrUnmappedCategory)
}
