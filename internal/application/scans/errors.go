package scans

import (
	"errors"
	"fmt"
)

var (
	ErrScanInFlight    = errors.New("scan already in progress")
	ErrNoModality      = errors.New("no modality selected")
	ErrSessionNotFound = errors.New("session not found")
	ErrItemNotFound    = errors.New("history item not found")
	ErrGatewayPanic    = errors.New("analysis gateway crashed")
)

// ValidationError is a field-level input problem; no external call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
