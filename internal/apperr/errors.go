// Package apperr defines the error taxonomy shared across the core.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// NotFound wraps ErrNotFound with the identifier the caller asked for.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Validation wraps ErrValidation with a caller-fixable message.
func Validation(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrValidation)
}

// Conflict wraps ErrConflict with the offending detail (duplicate name etc).
func Conflict(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrConflict)
}

// CycleError reports a dependency cycle in a ticket batch. Path holds the
// ordered ticket titles from the repeated node onward.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// Is lets errors.Is(err, apperr.ErrConflict) match cycle errors.
func (e *CycleError) Is(target error) bool { return target == ErrConflict }

// SelfDependencyError reports a ticket that names itself as a dependency.
type SelfDependencyError struct {
	Title string
}

func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("ticket %q depends on itself", e.Title)
}

func (e *SelfDependencyError) Is(target error) bool { return target == ErrConflict }
