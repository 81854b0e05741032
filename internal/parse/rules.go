package parse

import (
	"regexp"

	"github.com/joseph-ayodele/efris-reports/constants"
)

// Rule matches one field. Group 1 of Pattern is the value.
type Rule struct {
	Label   string
	Pattern *regexp.Regexp
}

// FieldRules is the ordered rule list for one store column.
// The first rule producing a non-blank value wins.
type FieldRules struct {
	Column string
	Rules  []Rule
}

// Label matching is case-insensitive; an optional ':' or '-' and any
// whitespace may sit between label and value.
var (
	reTIN = regexp.MustCompile(`(?i)\bTIN\b\s*[:\-]?\s*(\d{9,15})\b`)

	// The name may start on the line after its label. Non-greedy; stops
	// before "Address" or at the end of the name's line.
	reTradeName = regexp.MustCompile(`(?im)Trade\s*Name\s*[:\-]?\s*(.*?)\s*(?:Address|$)`)

	// Raw d/m/y text; 99/99/9999 is accepted.
	reIssuedDate = regexp.MustCompile(`(?i)Issued\s*Date\s*[:\-]?\s*(\d{1,2}/\d{1,2}/(?:\d{4}|\d{2}))\b`)

	reFiscalDocument  = regexp.MustCompile(`(?i)Fiscal\s*Document\s*Number\s*[:\-]?\s*(\d{13,20})\b`)
	reAssessmentLabel = regexp.MustCompile(`(?i)Assessment\s*Number\s*[:\-]?\s*(\d{13,20})\b`)

	// Thousands groups are tried before plain digits.
	reTaxAmount = regexp.MustCompile(`(?i)Tax\s*Amount\s*[:\-]?\s*(\d{1,3}(?:,\d{3})+(?:\.\d{1,4})?|\d+(?:\.\d{1,4})?)`)
)

// DefaultRules is the rule table for EFRIS compliance reports.
func DefaultRules() []FieldRules {
	return []FieldRules{
		{Column: constants.ColTIN, Rules: []Rule{
			{Label: "TIN", Pattern: reTIN},
		}},
		{Column: constants.ColTaxpayerName, Rules: []Rule{
			{Label: "Trade Name", Pattern: reTradeName},
		}},
		{Column: constants.ColActivityDate, Rules: []Rule{
			{Label: "Issued Date", Pattern: reIssuedDate},
		}},
		{Column: constants.ColAssessmentNumber, Rules: []Rule{
			{Label: "Fiscal Document Number", Pattern: reFiscalDocument},
			{Label: "Assessment Number", Pattern: reAssessmentLabel},
		}},
		{Column: constants.ColAmountAssessed, Rules: []Rule{
			{Label: "Tax Amount", Pattern: reTaxAmount},
		}},
	}
}
