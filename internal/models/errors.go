package models

import (
	"fmt"
	"strings"
)

// FieldError describes a single violated rule on a named request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violated field rule for a request, so
// clients see the full list rather than only the first failure.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a violated rule. Returning the receiver keeps call sites
// chainable when building up a list of checks.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// HasErrors reports whether any rule was violated.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// ConflictError reports a uniqueness violation, e.g. a taken email.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// AuthError reports a credential or token failure. The message is kept
// generic so callers cannot distinguish an unknown email from a wrong
// password.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// UploadError reports a file upload constraint violation.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return e.Message
}
