package cartitem

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity  = errors.New("cartitem: quantity must be positive")
	ErrInvalidUnitPrice = errors.New("cartitem: unit price cannot be negative")
)

// ErrUnknownState is returned when a raw value does not name a lifecycle state.
type ErrUnknownState struct {
	Value string
}

func (e *ErrUnknownState) Error() string {
	return fmt.Sprintf("cartitem: unknown state '%s'", e.Value)
}

func NewErrUnknownState(value string) *ErrUnknownState {
	return &ErrUnknownState{Value: value}
}

func IsUnknownStateError(err error) bool {
	var e *ErrUnknownState
	return errors.As(err, &e)
}
