package types

import (
	"errors"
	"fmt"
)

var (
	ErrConnectivity     = errors.New("venue unreachable")
	ErrInsufficientData = errors.New("insufficient data")
	ErrOrderRejected    = errors.New("order rejected")
	ErrPersistence      = errors.New("persistence failure")
	ErrNotification     = errors.New("notification failure")
	ErrNoRemoteCopy     = errors.New("no remote copy")
	ErrConfig           = errors.New("invalid configuration")
)

// OrderRejectedError carries the venue's reject code.
type OrderRejectedError struct {
	Code string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Code)
}

func (e *OrderRejectedError) Is(target error) bool {
	return target == ErrOrderRejected
}
