package common

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator collects field errors
type Validator struct {
	errors []ValidationError
}

func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// Add records a custom failure.
func (v *Validator) Add(fieldName string, value any, message string) *Validator {
	v.errors = append(v.errors, ValidationError{Field: fieldName, Value: value, Message: message})
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns the combined failures wrapped in ErrValidation, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage())
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}
	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value any) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value any) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// MaxLength builds a rune-length rule.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(s) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}

// ValidateAndReturnError validates and returns InvalidArgumentError if validation fails
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}
