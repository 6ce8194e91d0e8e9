package analysis

import (
	"errors"
	"fmt"
)

// Standard error codes for analysis failures.
const (
	CodeFormat              = "FORMAT"
	CodeIdentityMismatch    = "IDENTITY_MISMATCH"
	CodeUnsupportedPlatform = "UNSUPPORTED_PLATFORM"
	CodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	CodeInternal            = "INTERNAL"
)

// AnalysisError is the interface implemented by all typed analysis failures.
// Display returns a message safe to show to the uploader; Error may carry
// additional diagnostic detail.
type AnalysisError interface {
	error
	Code() string
	Display() string
	Unwrap() error
}

// Error is the base typed failure carried across the analysis boundary.
type Error struct {
	code    string
	display string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.display, e.err)
	}
	return e.display
}

func (e *Error) Code() string { return e.code }

func (e *Error) Display() string { return e.display }

func (e *Error) Unwrap() error { return e.err }

// Code extracts the analysis error code from err, or CodeInternal if err
// carries none.
func Code(err error) string {
	var aerr AnalysisError
	if errors.As(err, &aerr) {
		return aerr.Code()
	}
	return CodeInternal
}

// Display extracts the user-facing message from err, falling back to a
// generic one for unexpected faults.
func Display(err error) string {
	var aerr AnalysisError
	if errors.As(err, &aerr) {
		return aerr.Display()
	}
	return "Couldn't process your file."
}

// FormatError reports an unparseable file, an undetectable datetime format,
// a missing required field, or a history that is too short to analyze.
type FormatError struct {
	base Error
}

func (e *FormatError) Error() string   { return e.base.Error() }
func (e *FormatError) Code() string    { return e.base.Code() }
func (e *FormatError) Display() string { return e.base.Display() }
func (e *FormatError) Unwrap() error   { return e.base.Unwrap() }

func NewFormatError(display string, cause error) error {
	return &FormatError{base: Error{code: CodeFormat, display: display, err: cause}}
}

// IdentityMismatchError reports an update file whose chat identity does not
// match the identity recorded for the analysis being updated.
type IdentityMismatchError struct {
	base Error
}

func (e *IdentityMismatchError) Error() string   { return e.base.Error() }
func (e *IdentityMismatchError) Code() string    { return e.base.Code() }
func (e *IdentityMismatchError) Display() string { return e.base.Display() }
func (e *IdentityMismatchError) Unwrap() error   { return e.base.Unwrap() }

func NewIdentityMismatchError() error {
	return &IdentityMismatchError{base: Error{
		code:    CodeIdentityMismatch,
		display: "You've uploaded a different chat history.",
	}}
}

// UnsupportedPlatformError reports a platform value the pipeline has no
// parser for.
type UnsupportedPlatformError struct {
	base Error
}

func (e *UnsupportedPlatformError) Error() string   { return e.base.Error() }
func (e *UnsupportedPlatformError) Code() string    { return e.base.Code() }
func (e *UnsupportedPlatformError) Display() string { return e.base.Display() }
func (e *UnsupportedPlatformError) Unwrap() error   { return e.base.Unwrap() }

func NewUnsupportedPlatformError(platform string) error {
	return &UnsupportedPlatformError{base: Error{
		code:    CodeUnsupportedPlatform,
		display: "Couldn't recognize message service.",
		err:     fmt.Errorf("unsupported platform %q", platform),
	}}
}

// UnsupportedLanguageError reports a language value outside the supported set.
type UnsupportedLanguageError struct {
	base Error
}

func (e *UnsupportedLanguageError) Error() string   { return e.base.Error() }
func (e *UnsupportedLanguageError) Code() string    { return e.base.Code() }
func (e *UnsupportedLanguageError) Display() string { return e.base.Display() }
func (e *UnsupportedLanguageError) Unwrap() error   { return e.base.Unwrap() }

func NewUnsupportedLanguageError(language string) error {
	return &UnsupportedLanguageError{base: Error{
		code:    CodeUnsupportedLanguage,
		display: "This language is not supported yet.",
		err:     fmt.Errorf("unsupported language %q", language),
	}}
}

// InternalAnalysisError reports an unexpected fault inside the aggregation
// or lexical stage.
type InternalAnalysisError struct {
	base Error
}

func (e *InternalAnalysisError) Error() string   { return e.base.Error() }
func (e *InternalAnalysisError) Code() string    { return e.base.Code() }
func (e *InternalAnalysisError) Display() string { return e.base.Display() }
func (e *InternalAnalysisError) Unwrap() error   { return e.base.Unwrap() }

func NewInternalAnalysisError(display string, cause error) error {
	return &InternalAnalysisError{base: Error{code: CodeInternal, display: display, err: cause}}
}
