package entitlement

import (
	"errors"
	"fmt"
)

// ErrSubscriberNotFound подписчик не найден в хранилище.
var ErrSubscriberNotFound = errors.New("subscriber not found")

// DeniedError отказ политики в доступе.
type DeniedError struct {
	Reason Reason
	Err    error
}

func (e *DeniedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("entitlement denied: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("entitlement denied: %s", e.Reason)
}

func (e *DeniedError) Unwrap() error { return e.Err }
