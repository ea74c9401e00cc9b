package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrForbidden        = errors.New("forbidden")
	ErrTemporary        = errors.New("temporary failure")
	ErrConcurrentUpdate = errors.New("concurrent update")
	ErrDataIntegrity    = errors.New("data integrity violation")
)

// Calculator kinds. Always recoverable by correcting the input.
var (
	ErrInvalidLineItem      = errors.New("invalid line item")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// State machine kinds. A failed transition never mutates the document.
var (
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrExpiredDocument      = errors.New("expired document")
	ErrMissingRequiredField = errors.New("missing required field")
)

// Signing protocol kinds.
var (
	ErrTokenNotFound        = errors.New("token not found")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenAlreadyConsumed = errors.New("token already consumed")
	ErrAlreadyAccepted      = errors.New("quote already signed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

func kindf(kind error, operation, format string, args ...any) error {
	return WrapError(kind, operation, fmt.Errorf(format, args...))
}
