package catalog

import (
	"errors"
	"fmt"
)

var ErrItemNotFound = errors.New("item not found")

// ValidationError rejects a creation payload. Reason names the offending field.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "Invalid item: " + e.Reason
}

// DataFormatError means the backing document exists but cannot be parsed.
type DataFormatError struct {
	Source string
	Err    error
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("invalid data format in %s: %v", e.Source, e.Err)
}

func (e *DataFormatError) Unwrap() error { return e.Err }

var (
	errNameRequired  = &ValidationError{Reason: "name is required"}
	errPriceNotFloat = &ValidationError{Reason: "price must be a number"}
)
