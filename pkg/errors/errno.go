// Package errors provides the structured error code system for confcenter.
//
// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Service code - 00 common, 30 config service
//	BB  (00-99): Category code
//	CCC (000-999): Sequence number within the category
//
// Category Codes (BB):
//
//	01: Request/Validation errors (400)
//	02: Authentication errors (401)
//	03: Authorization errors (403)
//	04: Resource not found errors (404)
//	05: Conflict errors (409)
//	07: Internal errors (500)
//	08: Database errors (500)
//
// Usage:
//
//	return errors.ErrItemNotFound.WithMessagef("config item %q not found", id)
//	return errors.ErrDatabase.WithCause(err)
package errors

import (
	"fmt"
	"net/http"
	"sync"
)

// Service codes.
const (
	ServiceCommon = 0
	ServiceConfig = 30
)

// Category codes.
const (
	CategoryRequest  = 1
	CategoryAuth     = 2
	CategoryAuthz    = 3
	CategoryNotFound = 4
	CategoryConflict = 5
	CategoryInternal = 7
	CategoryDatabase = 8
)

// MakeCode builds an error code from service, category and sequence parts.
func MakeCode(service, category, seq int) int {
	return service*100000 + category*1000 + seq
}

// Errno represents a structured error with code and message.
type Errno struct {
	// Code is the unique error code.
	Code int `json:"code"`

	// HTTP is the HTTP status code to return.
	HTTP int `json:"-"`

	// Message is the human readable error message.
	Message string `json:"message"`

	// Details carries optional machine readable context, e.g. the list of
	// conflicting config item ids for a rejected publish batch.
	Details []string `json:"details,omitempty"`

	// cause is the underlying error.
	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target error code.
func (e *Errno) Is(target error) bool {
	if t, ok := target.(*Errno); ok {
		return e.Code == t.Code
	}
	return false
}

func (e *Errno) clone() *Errno {
	return &Errno{
		Code:    e.Code,
		HTTP:    e.HTTP,
		Message: e.Message,
		Details: e.Details,
		cause:   e.cause,
	}
}

// WithCause creates a new Errno with the given cause.
func (e *Errno) WithCause(cause error) *Errno {
	n := e.clone()
	n.cause = cause
	return n
}

// WithMessage creates a new Errno with a custom message.
func (e *Errno) WithMessage(msg string) *Errno {
	n := e.clone()
	n.Message = msg
	return n
}

// WithMessagef creates a new Errno with a formatted message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	n := e.clone()
	n.Message = fmt.Sprintf(format, args...)
	return n
}

// WithDetails creates a new Errno carrying machine readable detail strings.
func (e *Errno) WithDetails(details ...string) *Errno {
	n := e.clone()
	n.Details = details
	return n
}

// HTTPStatus returns the HTTP status code.
func (e *Errno) HTTPStatus() int {
	if e.HTTP != 0 {
		return e.HTTP
	}
	return http.StatusInternalServerError
}

var (
	errnoRegistry = make(map[int]*Errno)
	registryMu    sync.RWMutex
)

// Register registers an Errno and validates uniqueness.
// Panics if the code is already registered.
func Register(e *Errno) *Errno {
	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := errnoRegistry[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.Message))
	}
	errnoRegistry[e.Code] = e
	return e
}

// Lookup returns the registered Errno for the given code.
func Lookup(code int) (*Errno, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := errnoRegistry[code]
	return e, ok
}

// FromError converts any error to an Errno. If err is already an Errno it is
// returned directly, otherwise it is wrapped as ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Errno); ok {
		return e
	}
	return ErrInternal.WithCause(err)
}

// IsCode checks if the error has the given error code.
func IsCode(err error, code int) bool {
	if e, ok := err.(*Errno); ok {
		return e.Code == code
	}
	return false
}
