package models

import (
	"errors"
	"fmt"
)

type FetchErrorKind string

const (
	FetchErrorNetwork           FetchErrorKind = "network"
	FetchErrorRateLimited       FetchErrorKind = "rate limited"
	FetchErrorMalformedResponse FetchErrorKind = "malformed response"
	FetchErrorNotFound          FetchErrorKind = "not found"
)

type FetchError struct {
	Kind   FetchErrorKind
	Symbol string
	Err    error
}

func NewFetchError(kind FetchErrorKind, symbol string, err error) *FetchError {
	return &FetchError{Kind: kind, Symbol: symbol, Err: err}
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Symbol, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Symbol, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchErrorKindOf classifies err. Anything that is not a FetchError, timeouts included,
// counts as a network error.
func FetchErrorKindOf(err error) FetchErrorKind {
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		return fetchError.Kind
	}
	return FetchErrorNetwork
}

type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
