package game

import (
	"errors"
	"fmt"
)

// ErrorKind tags a rules violation so callers can dispatch on it without
// string matching.
type ErrorKind string

const (
	ErrNotYourPriority   ErrorKind = "NotYourPriority"
	ErrWrongStep         ErrorKind = "WrongStep"
	ErrStackNotEmpty     ErrorKind = "StackNotEmpty"
	ErrNotYourTurn       ErrorKind = "NotYourTurn"
	ErrCardNotFound      ErrorKind = "CardNotFound"
	ErrCardNotInZone     ErrorKind = "CardNotInZone"
	ErrInvalidTarget     ErrorKind = "InvalidTarget"
	ErrInsufficientMana  ErrorKind = "InsufficientMana"
	ErrInvalidManaCost   ErrorKind = "InvalidManaCostString"
	ErrMulliganNotActive ErrorKind = "MulliganNotActive"
	ErrAlreadyKept       ErrorKind = "AlreadyKept"
	ErrChoiceMismatch    ErrorKind = "ChoiceMismatch"
	ErrChoiceInvalid     ErrorKind = "ChoiceInvalid"
	ErrLockUnavailable   ErrorKind = "LockUnavailable"
	ErrUnknownAction     ErrorKind = "UnknownAction"
)

// RuleError is a rules-window or validation failure. Every engine failure
// path returns one and leaves the game state unchanged.
type RuleError struct {
	Kind    ErrorKind
	Message string
	// Color is set for InsufficientMana failures ("generic" when the
	// generic portion could not be covered).
	Color string
}

func (e *RuleError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewRuleError builds a RuleError with a formatted message.
func NewRuleError(kind ErrorKind, format string, args ...interface{}) *RuleError {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewManaError builds an InsufficientMana error for a color or "generic".
func NewManaError(color string) *RuleError {
	return &RuleError{
		Kind:    ErrInsufficientMana,
		Message: fmt.Sprintf("cannot pay %s requirement", color),
		Color:   color,
	}
}

// IsKind reports whether err is a RuleError with the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

// KindOf extracts the error kind, or UnknownAction when err is not a RuleError.
func KindOf(err error) ErrorKind {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ErrUnknownAction
}
