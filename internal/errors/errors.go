// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrFetchFailed       = errors.New("failed to fetch data from NSE")
	ErrMalformedResponse = errors.New("malformed option chain response")
	ErrNoUnderlyingData  = errors.New("no underlying data")
	ErrTimeout           = errors.New("operation timed out")
	ErrRateLimited       = errors.New("rate limited")
	ErrCircuitOpen       = errors.New("upstream circuit open")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrSymbolNotFound    = errors.New("symbol not found")
	ErrInputValidation   = errors.New("input validation failed")
)

// FetchError represents a failure talking to the upstream option chain endpoint.
type FetchError struct {
	Symbol     string
	Stage      string // bootstrap, chain, decode
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch error [%s] %s: status %d: %v", e.Symbol, e.Stage, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error [%s] %s: %v", e.Symbol, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(symbol, stage string, statusCode int, err error) *FetchError {
	return &FetchError{
		Symbol:     symbol,
		Stage:      stage,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// ErrorKind classifies a pipeline failure for the user-facing layer.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindFetchFailure     ErrorKind = "FetchFailure"
	KindMalformed        ErrorKind = "MalformedResponseFailure"
	KindNoUnderlyingData ErrorKind = "NoUnderlyingDataError"
	KindOther            ErrorKind = "Other"
)

// Kind maps err onto the pipeline error taxonomy.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	case errors.Is(err, ErrNoUnderlyingData):
		return KindNoUnderlyingData
	case errors.Is(err, ErrFetchFailed),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrCircuitOpen),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindFetchFailure
	default:
		return KindOther
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
