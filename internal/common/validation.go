package common

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns a combined error wrapping ErrValidation.
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

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case entity.Optional[string]:
		s, ok := v.Get()
		if !ok || strings.TrimSpace(s) == "" {
			return &ValidationError{Field: fieldName, Value: "<unknown>", Message: "is required"}
		}
	}
	return nil
}

// Digits returns a rule requiring a known value of min..max ASCII digits.
// Unknown values are left to Required.
func Digits(min, max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := stringValue(value)
		if !ok {
			return nil
		}
		str = strings.TrimSpace(str)
		n := utf8.RuneCountInString(str)
		if n < min || n > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be %d-%d digits", min, max),
			}
		}
		for _, r := range str {
			if r < '0' || r > '9' {
				return &ValidationError{Field: fieldName, Value: value, Message: "must contain digits only"}
			}
		}
		return nil
	}
}

func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case entity.Optional[string]:
		return v.Get()
	}
	return "", false
}

// ValidateCandidate checks a candidate before persistence. Only the assessment
// number decides admission; the other fields may be unknown and are stored
// as empty text.
func ValidateCandidate(c entity.Candidate) *Validator {
	v := NewValidator()
	v.Field(constants.ColAssessmentNumber, c.AssessmentNumber, Required, Digits(13, 20))
	v.Field(constants.ColTIN, c.TIN, Digits(9, 15))
	return v
}

// ValidateAndReturnError validates and returns InvalidArgumentError if validation fails
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}
