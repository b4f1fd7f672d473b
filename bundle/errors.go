package bundle

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when no type produced a section. No output is
// written.
var ErrEmptyResult = errors.New("bundle: no section produced, output not written")

// ConfigError is a fatal configuration problem found by Validate.
type ConfigError struct {
	Field  string
	Type   string // document type ID, if the problem belongs to one
	Reason string
	Cause  error
}

func (e *ConfigError) Error() string {
	msg := "bundle: config " + e.Field
	if e.Type != "" {
		msg += fmt.Sprintf(" (type %s)", e.Type)
	}
	msg += ": " + e.Reason
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// ConversionError is returned when one source file could not be turned into
// a PDF. The file is dropped from its section.
type ConversionError struct {
	Type  string
	Path  string
	Cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("bundle: convert %s (type %s): %v", e.Path, e.Type, e.Cause)
}

func (e *ConversionError) Unwrap() error { return e.Cause }

// CompositeError is returned when a type's watermark or branding step
// failed. The section falls back to its uncomposited content.
type CompositeError struct {
	Type  string
	Stage string // "watermark" or "branding"
	Cause error
}

func (e *CompositeError) Error() string {
	return fmt.Sprintf("bundle: %s for type %s: %v", e.Stage, e.Type, e.Cause)
}

func (e *CompositeError) Unwrap() error { return e.Cause }

// AssembleError is returned when a type's files could not be concatenated.
// The type produces no section.
type AssembleError struct {
	Type  string
	Cause error
}

func (e *AssembleError) Error() string {
	return fmt.Sprintf("bundle: assemble type %s: %v", e.Type, e.Cause)
}

func (e *AssembleError) Unwrap() error { return e.Cause }

// OutputError is a fatal failure writing the output document.
type OutputError struct {
	Path  string
	Cause error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("bundle: write output %s: %v", e.Path, e.Cause)
}

func (e *OutputError) Unwrap() error { return e.Cause }
