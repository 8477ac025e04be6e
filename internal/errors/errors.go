package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for the install flow and the Admin API proxy
var (
	// Request errors
	ErrBadRequest       = errors.New("bad request")
	ErrInvalidShop      = errors.New("invalid shop domain")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrStateInvalid     = errors.New("install state invalid")
	ErrUnauthorized     = errors.New("unauthorized")

	// Upstream (Shopify) errors
	ErrUpstreamAuth        = errors.New("upstream rejected credentials")
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrUpstreamMalformed   = errors.New("upstream response malformed")

	// Store errors
	ErrNotConnected = errors.New("no store connected")
	ErrNotFound     = errors.New("not found")
)

// UpstreamError carries what Shopify said about a failed call. Message is safe to surface
// to the caller; it never contains the credential that was sent.
type UpstreamError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ErrUpstreamAuth.Error()
	}
	parts := []string{}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if code := strings.TrimSpace(e.ErrorCode); code != "" {
		parts = append(parts, code)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	out := strings.Join(parts, ": ")
	if e.StatusCode > 0 {
		out += fmt.Sprintf(" (status=%d)", e.StatusCode)
	}
	return out
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// InvalidShop marks a shop domain rejection as both a bad request and an invalid shop.
func InvalidShop(err error) error {
	return fmt.Errorf("%w: %w: %v", ErrBadRequest, ErrInvalidShop, err)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// New is errors.New, re-exported so callers only import this package
func New(text string) error {
	return errors.New(text)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
