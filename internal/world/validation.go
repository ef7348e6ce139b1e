// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package world

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength bounds object names.
const MaxNameLength = 100

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidName for name failures.
func (e *ValidationError) Unwrap() error {
	if e.Field == "name" {
		return ErrInvalidName
	}
	return nil
}

// ValidateName checks that a name is valid.
// Names must be non-blank, valid UTF-8, no control characters, and within length limit.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	if !utf8.ValidString(name) {
		return &ValidationError{Field: "name", Message: "must be valid UTF-8"}
	}
	if len(name) > MaxNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("exceeds maximum length of %d", MaxNameLength)}
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return &ValidationError{Field: "name", Message: "cannot contain control characters"}
		}
	}
	return nil
}
