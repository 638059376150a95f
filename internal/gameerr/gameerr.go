// Package gameerr defines the uniform error record used across the game.
// Failures at a boundary (audio, storage, provider) are converted into an
// *Error there; consumers branch on Category instead of unwrapping
// driver-specific errors.
package gameerr

import (
	"errors"
	"fmt"
	"time"
)

type Category string

const (
	Audio      Category = "audio"
	Storage    Category = "storage"
	Network    Category = "network"
	Game       Category = "game"
	Validation Category = "validation"
	General    Category = "general"
)

// Error is the uniform error record. Retryable marks transient failures a
// caller may reasonably try again; validation and game errors never are.
type Error struct {
	Category  Category  `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error in the given category. Audio, storage, and network
// errors are considered retryable; the rest are not.
func New(cat Category, msg string) *Error {
	return &Error{
		Category:  cat,
		Message:   msg,
		Timestamp: time.Now(),
		Retryable: cat == Audio || cat == Storage || cat == Network,
	}
}

// Wrap is New with an underlying cause preserved for errors.Is/As.
func Wrap(cat Category, msg string, cause error) *Error {
	e := New(cat, msg)
	e.cause = cause
	return e
}

// CategoryOf reports the category of err, or General when err is not a
// game error.
func CategoryOf(err error) Category {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Category
	}
	return General
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, cat Category) bool {
	return CategoryOf(err) == cat
}
