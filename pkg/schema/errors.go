package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyDocument    = errors.New("schema: document is empty")
	ErrInvalidDocument  = errors.New("schema: invalid JSON or YAML")
	ErrEmptyFormID      = errors.New("schema: empty form id")
	ErrDuplicateForm    = errors.New("schema: duplicate form id")
	ErrUnknownForm      = errors.New("schema: unknown form")
	ErrEmptyKey         = errors.New("schema: empty member key")
	ErrDuplicateKey     = errors.New("schema: duplicate member key")
	ErrUnknownType      = errors.New("schema: unknown field type")
	ErrUnknownValidator = errors.New("schema: unknown validator kind")
	ErrInvalidValidator = errors.New("schema: invalid validator")
	ErrUnknownPath      = errors.New("schema: unknown path")
	ErrInvalidCondition = errors.New("schema: invalid condition")
	ErrInvalidRule      = errors.New("schema: invalid rule")
)

// DefinitionError names the document, form and member path a definition
// problem was found at.
type DefinitionError struct {
	Source string
	Form   string
	Path   string
	Err    error
}

func (e *DefinitionError) Error() string {
	parts := make([]string, 0, 3)
	if e.Source != "" {
		parts = append(parts, "file "+e.Source)
	}
	if e.Form != "" {
		parts = append(parts, fmt.Sprintf("form %q", e.Form))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path %q", e.Path))
	}
	if len(parts) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (%s)", e.Err, strings.Join(parts, ", "))
}

func (e *DefinitionError) Unwrap() error { return e.Err }
