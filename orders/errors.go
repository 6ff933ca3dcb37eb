package orders

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the backend has no order with the given id.
var ErrNotFound = errors.New("order not found")

// APIError is a non-2xx response from the order backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("order backend returned status %d: %s", e.StatusCode, e.Message)
}
