// Package errors defines the error taxonomy shared by the image, augmentation,
// resize and inference packages.
//
// Every failure is an *Error carrying a Code. Callers test for a category with
// the standard library:
//
//	if errors.Is(err, rerrors.ErrNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Code identifies the category of a failure.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeDecode            Code = "DECODE"
	CodeType              Code = "TYPE"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeInvalidColorSpace Code = "INVALID_COLOR_SPACE"
	CodeModelLoad         Code = "MODEL_LOAD"
)

// Error is a categorised failure with an optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrDecode            = &Error{Code: CodeDecode, Message: "decode failed"}
	ErrType              = &Error{Code: CodeType, Message: "unsupported type"}
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrInvalidColorSpace = &Error{Code: CodeInvalidColorSpace, Message: "invalid color space"}
	ErrModelLoad         = &Error{Code: CodeModelLoad, Message: "model load failed"}
)

// New creates an error with a formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error with a formatted message and an underlying cause.
func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(CodeNotFound, format, args...)
}

func Decode(format string, args ...interface{}) *Error {
	return New(CodeDecode, format, args...)
}

func Type(format string, args ...interface{}) *Error {
	return New(CodeType, format, args...)
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return New(CodeInvalidArgument, format, args...)
}

func InvalidColorSpace(format string, args ...interface{}) *Error {
	return New(CodeInvalidColorSpace, format, args...)
}

func ModelLoad(cause error, format string, args ...interface{}) *Error {
	return Wrap(CodeModelLoad, cause, format, args...)
}
