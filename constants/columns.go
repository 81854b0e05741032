package constants

// DefaultTableName is the table the viewer and the pipeline agree on.
const DefaultTableName = "EfrisPdfReport"

// Store column names, exactly as they appear in the table.
const (
	ColTIN              = "TIN"
	ColTaxpayerName     = "Taxpayer Name"
	ColRegion           = "Region"
	ColLocation         = "Location"
	ColRiskSource       = "Risk Source"
	ColRisk             = "Risk"
	ColActivity         = "Activity"
	ColActivityDate     = "Activity Date"
	ColTaxHead          = "Tax Head"
	ColAssessmentNumber = "Assessment Number"
	ColAmountAssessed   = "Amount Assessed"
)

var allColumns = []string{
	ColTIN,
	ColTaxpayerName,
	ColRegion,
	ColLocation,
	ColRiskSource,
	ColRisk,
	ColActivity,
	ColActivityDate,
	ColTaxHead,
	ColAssessmentNumber,
	ColAmountAssessed,
}

// Columns returns the store columns in schema order.
func Columns() []string {
	out := make([]string, len(allColumns))
	copy(out, allColumns)
	return out
}

// Fixed values stamped on every inserted record unless the ingestion
// context overrides them.
const (
	DefaultRegion     = "Central"
	DefaultRiskSource = "EFRIS"
	DefaultActivity   = "Assessment"
	DefaultTaxHead    = "VAT"
)
