// Package apperr defines the error taxonomy shared by the CLI, API, and MCP
// layers. Every externally visible failure maps to a stable Code so callers
// can render a precise remedy instead of a bare message.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies an error condition across process boundaries.
type Code string

// Stable error codes.
const (
	CodeArticleNotFound    Code = "ARTICLE_NOT_FOUND"
	CodeAmbiguousSlug      Code = "AMBIGUOUS_SLUG"
	CodeAlreadyExists      Code = "ARTICLE_ALREADY_EXISTS"
	CodeTemplateNotFound   Code = "TEMPLATE_NOT_FOUND"
	CodeScopeNotFound      Code = "SCOPE_NOT_FOUND"
	CodeInvalidFrontmatter Code = "INVALID_FRONTMATTER"
	CodeValidationError    Code = "VALIDATION_ERROR"
	CodeVaultNotFound      Code = "VAULT_NOT_FOUND"
	CodeIOError            Code = "IO_ERROR"
)

// Process exit codes for the CLI.
const (
	ExitSuccess   = 0
	ExitGeneral   = 1
	ExitNotFound  = 2
	ExitAmbiguous = 3
)

// Error is a coded application error. Candidates is populated for
// AMBIGUOUS_SLUG so the caller can offer a disambiguation list.
type Error struct {
	Code       Code
	Message    string
	Candidates []string
	err        error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// ExitCode maps the error code to a CLI exit status.
func (e *Error) ExitCode() int {
	switch e.Code {
	case CodeArticleNotFound, CodeVaultNotFound, CodeTemplateNotFound:
		return ExitNotFound
	case CodeAmbiguousSlug:
		return ExitAmbiguous
	default:
		return ExitGeneral
	}
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, err: err}
}

// Ambiguous creates an AMBIGUOUS_SLUG error carrying the candidate list.
func Ambiguous(message string, candidates []string) *Error {
	return &Error{Code: CodeAmbiguousSlug, Message: message, Candidates: candidates}
}

// CodeOf returns the code of err if it is (or wraps) an *Error, or IO_ERROR.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeIOError
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
