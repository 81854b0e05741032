package entity

import (
	"strings"

	"github.com/joseph-ayodele/efris-reports/constants"
)

// Optional holds a parsed value or marks it unknown.
type Optional[T any] struct {
	value T
	known bool
}

// Some wraps a parsed value.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, known: true} }

// Unknown is the "not found in the document" marker.
func Unknown[T any]() Optional[T] { return Optional[T]{} }

// Get returns the value and whether it is known.
func (o Optional[T]) Get() (T, bool) { return o.value, o.known }

// Known reports whether a value was parsed.
func (o Optional[T]) Known() bool { return o.known }

// OrElse returns the value, or def when unknown.
func (o Optional[T]) OrElse(def T) T {
	if !o.known {
		return def
	}
	return o.value
}

// Candidate is the field set produced by parsing, before admission.
// AmountRaw is kept as text; conversion happens at admission time.
type Candidate struct {
	TIN              Optional[string]
	TaxpayerName     Optional[string]
	ActivityDate     Optional[string]
	AssessmentNumber Optional[string]
	AmountRaw        Optional[string]
}

// Identifier returns the trimmed assessment number, or "" when unknown.
func (c Candidate) Identifier() string {
	return strings.TrimSpace(c.AssessmentNumber.OrElse(""))
}

// Fields lists each candidate field by store column, for logging and validation.
func (c Candidate) Fields() map[string]Optional[string] {
	return map[string]Optional[string]{
		constants.ColTIN:              c.TIN,
		constants.ColTaxpayerName:     c.TaxpayerName,
		constants.ColActivityDate:     c.ActivityDate,
		constants.ColAssessmentNumber: c.AssessmentNumber,
		constants.ColAmountAssessed:   c.AmountRaw,
	}
}
