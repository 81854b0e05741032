package entity

// Report is one committed row of the report table.
type Report struct {
	TIN              string   `json:"tin"`
	TaxpayerName     string   `json:"taxpayer_name"`
	Region           string   `json:"region"`
	Location         string   `json:"location"`
	RiskSource       string   `json:"risk_source"`
	Risk             string   `json:"risk"`
	Activity         string   `json:"activity"`
	ActivityDate     string   `json:"activity_date"`
	TaxHead          string   `json:"tax_head"`
	AssessmentNumber string   `json:"assessment_number"`
	AmountAssessed   *float64 `json:"amount_assessed,omitempty"`
}

// Defaults are the values stamped on a record that do not come from the document.
type Defaults struct {
	Region     string `json:"region"`
	RiskSource string `json:"risk_source"`
	Activity   string `json:"activity"`
	TaxHead    string `json:"tax_head"`
}
