package domain

// DutyQuote is the response for a single duty lookup.
// Rate fields are nil when the rate is unknown (fallback mode).
type DutyQuote struct {
	HTSCode      string   `json:"hts_code"`
	Country      string   `json:"country"`
	BaseRate     *float64 `json:"base_rate"`
	Surcharge301 *float64 `json:"surcharge_301"`
	TotalRate    *float64 `json:"total_rate"`
	Timestamp    string   `json:"timestamp"`
	Note         string   `json:"note,omitempty"`
}

// HTSRecord is a single row of the HTS export API response
type HTSRecord struct {
	HTSNumber         string  `json:"htsno,omitempty"`
	Description       string  `json:"description,omitempty"`
	GeneralRateOfDuty *string `json:"general_rate_of_duty"`
}

// FederalRegisterSearchResponse is the subset of the documents search payload we read
type FederalRegisterSearchResponse struct {
	Count int `json:"count"`
}

// SurchargeResult is the outcome of a Section 301 notice lookup.
// Any lookup failure is reported as Found=false.
type SurchargeResult struct {
	Found bool
}
