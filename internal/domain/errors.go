package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions.
var (
	ErrAlreadyRunning       = errors.New("a run is already in progress")
	ErrNotRunning           = errors.New("no run in progress")
	ErrNoFile               = errors.New("recipient file not loaded")
	ErrEmptyTemplate        = errors.New("message template is empty")
	ErrUnreadableFile       = errors.New("unreadable recipient file")
	ErrEmptyOrNoIdentifiers = errors.New("recipient file is empty or has no numero values")
	ErrTimeout              = errors.New("timed out waiting for element")
	ErrSessionClosed        = errors.New("browser session closed")
	ErrNotFound             = errors.New("not found")
)

// ConfigError represents a configuration problem detected before a run starts.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadError is returned by the recipient loader. Kind is one of
// ErrUnreadableFile or ErrEmptyOrNoIdentifiers; Err carries the cause.
type LoadError struct {
	Path     string
	Kind     error
	Expected string // expected column layout, e.g. "numero;nombre;"
	Err      error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s: %v", e.Path, e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Expected != "" {
		fmt.Fprintf(&b, " (formato esperado: %s)", e.Expected)
	}
	return b.String()
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// TemplateErrorKind classifies template failures.
type TemplateErrorKind int

const (
	TemplateMissingVariable TemplateErrorKind = iota + 1
	TemplateFormatError
)

// TemplateError represents an invalid message template or a failed render.
type TemplateError struct {
	Kind   TemplateErrorKind
	Names  []string // unresolved placeholders, for TemplateMissingVariable
	Detail string
}

func (e *TemplateError) Error() string {
	switch e.Kind {
	case TemplateMissingVariable:
		return fmt.Sprintf("variable(s) no definida(s): %s", strings.Join(e.Names, ", "))
	default:
		return fmt.Sprintf("error de formato en plantilla: %s", e.Detail)
	}
}

// IsFormatError reports whether err is a template format error.
func IsFormatError(err error) bool {
	var te *TemplateError
	return errors.As(err, &te) && te.Kind == TemplateFormatError
}

// RunError represents a run-level failure (configuration or initialization).
type RunError struct {
	RunID string
	Op    string // operation that failed
	Err   error  // underlying error
}

func (e *RunError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: run=%s: %v", e.Op, e.RunID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
