package domain

import (
	"errors"
	"fmt"
)

// ErrPrecondition marks a malformed request from the caller layer.
// Errors of this class are never retried and never turned into a false
// transfer result.
var ErrPrecondition = errors.New("precondition violated")

var (
	ErrSourceAccountIDEmpty = preconditionError("expected source account ID not to be empty")
	ErrTargetAccountIDEmpty = preconditionError("expected target account ID not to be empty")
	ErrSameAccount          = preconditionError("expected source and target accounts to differ")
	ErrNonPositiveAmount    = preconditionError("transfer amount must be positive")
	ErrThresholdExceeded    = preconditionError("maximum transfer threshold exceeded")
	ErrMoneyOverflow        = preconditionError("money amount overflow")
)

// ErrAccountNotFound is returned by loading adapters for an unknown account
var ErrAccountNotFound = errors.New("account not found")

// precondition is a sentinel that belongs to the ErrPrecondition class
type precondition struct {
	msg string
}

func preconditionError(msg string) error {
	return &precondition{msg: msg}
}

func (e *precondition) Error() string {
	return e.msg
}

func (e *precondition) Is(target error) bool {
	return target == ErrPrecondition
}

// ThresholdExceededError is returned when a transfer amount is above the configured maximum
type ThresholdExceededError struct {
	Threshold Money
	Actual    Money
}

func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("Maximum threshold for transferring money exceeded: tried to transfer %s but threshold is %s!",
		e.Actual, e.Threshold)
}

func (e *ThresholdExceededError) Is(target error) bool {
	return target == ErrThresholdExceeded || target == ErrPrecondition
}

// IsPrecondition reports whether err is a fatal precondition violation
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}
