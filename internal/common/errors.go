package common

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/finextract/constants"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrStorage      = errors.New("storage error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

// StatusFromOutcome maps an extraction outcome onto a gRPC status for API
// callers; success maps to nil. "No engine succeeded" is Unavailable, unusable
// input is InvalidArgument, anything else is FailedPrecondition. Extraction
// failures never map to codes.Internal.
func StatusFromOutcome(success bool, engine, message string) error {
	if success {
		return nil
	}
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "extraction failed"
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "empty document"),
		strings.Contains(lower, "not a pdf"),
		strings.Contains(lower, "invalid input"):
		return status.Error(codes.InvalidArgument, msg)
	case engine == constants.EngineNone:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.FailedPrecondition, msg)
	}
}

// StatusFromError maps infrastructure errors (store, sources, config).
func StatusFromError(err error) error {
	if err == nil {
		return nil
	}
	var app *AppError
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &app) && app.Code == "CONFIG_ERROR":
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
