// Package perr defines the error taxonomy shared across the extraction,
// parsing, and analysis packages, so callers can branch on failure class
// without string-matching messages.
package perr

import (
	"errors"
	"fmt"
)

// Class tags the category of failure described in spec.md §7.
type Class string

const (
	ClassIO         Class = "io"
	ClassParse      Class = "parse"
	ClassExtraction Class = "extraction"
	ClassDatabase   Class = "database"
	ClassValidation Class = "validation"
	ClassNotFound   Class = "not_found"
	ClassCancelled  Class = "cancelled"
)

// Error wraps an underlying error with a Class and a Path where the failure
// was observed, matching the per-item non-fatal error convention used by
// the scanner and dispatch layers (spec.md §4.1/§4.3: "an unreadable entry
// is reported as a per-item error; it does not abort the scan").
type Error struct {
	Class Class
	Path  string
	Err   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a class and optional path. Returns nil if err is nil.
func New(class Class, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: class, Path: path, Err: err}
}

// IO wraps err as a filesystem-layer failure.
func IO(path string, err error) error { return New(ClassIO, path, err) }

// Parse wraps err as a dialect-parser failure.
func Parse(path string, err error) error { return New(ClassParse, path, err) }

// Extraction wraps err as a PBO-extraction failure.
func Extraction(path string, err error) error { return New(ClassExtraction, path, err) }

// Database wraps err as a store-layer failure.
func Database(path string, err error) error { return New(ClassDatabase, path, err) }

// Validation wraps err as a configuration or input-validation failure.
func Validation(path string, err error) error { return New(ClassValidation, path, err) }

// NotFound wraps err as a missing-resource failure.
func NotFound(path string, err error) error { return New(ClassNotFound, path, err) }

// Cancelled wraps err as a context-cancellation failure.
func Cancelled(path string, err error) error { return New(ClassCancelled, path, err) }

// ClassOf returns the Class of err if it (or something it wraps) is an
// *Error, and false otherwise.
func ClassOf(err error) (Class, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Class, true
	}
	return "", false
}

// Is reports whether err's class matches class.
func Is(err error, class Class) bool {
	c, ok := ClassOf(err)
	return ok && c == class
}
