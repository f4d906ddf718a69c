package model

// Candidate is a raw, unvalidated company record coming out of the
// directory or web-search collection stage.
type Candidate struct {
	LegalName   string  `json:"legal_name"`
	TradeName   string  `json:"trade_name,omitempty"`
	TaxID       string  `json:"tax_id,omitempty"`
	Street      string  `json:"street,omitempty"`
	City        string  `json:"city,omitempty"`
	Region      string  `json:"region,omitempty"`
	PostalCode  string  `json:"postal_code,omitempty"`
	Website     string  `json:"website,omitempty"`
	SizeTier    string  `json:"size_tier,omitempty"`
	RevenueHint float64 `json:"revenue_hint,omitempty"`
	Status      string  `json:"status,omitempty"`
	Source      string  `json:"source"`
}

// Person is a decision-maker found for a company.
type Person struct {
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	Email      string `json:"email,omitempty"`
}

// EnrichedCompany is a candidate merged with registry, contact and
// presence data. Immutable once scored.
type EnrichedCompany struct {
	LegalName         string   `json:"legal_name"`
	TradeName         string   `json:"trade_name,omitempty"`
	TaxID             string   `json:"tax_id,omitempty"`
	Street            string   `json:"street,omitempty"`
	City              string   `json:"city,omitempty"`
	Region            string   `json:"region,omitempty"`
	PostalCode        string   `json:"postal_code,omitempty"`
	Website           string   `json:"website,omitempty"`
	LinkedInURL       string   `json:"linkedin_url,omitempty"`
	DecisionMakers    []Person `json:"decision_makers,omitempty"`
	Emails            []string `json:"emails,omitempty"`
	Phones            []string `json:"phones,omitempty"`
	RevenueEstimate   *float64 `json:"revenue_estimate,omitempty"`
	HeadcountEstimate *int     `json:"headcount_estimate,omitempty"`
	CapitalStock      *float64 `json:"capital_stock,omitempty"`
	Sector            string   `json:"sector,omitempty"`
	ActivityCode      string   `json:"activity_code,omitempty"`
	SizeTier          string   `json:"size_tier,omitempty"`
}

// FullAddress reports whether street, city and region are all present.
func (c *EnrichedCompany) FullAddress() bool {
	return c.Street != "" && c.City != "" && c.Region != ""
}

// ScoredCompany carries an enriched company plus its ICP-fit and
// completeness scores. TotalScore is always ICPScore + RelevanceScore
// and is never recomputed after ranking.
type ScoredCompany struct {
	EnrichedCompany
	ICPScore       int `json:"icp_score"`
	RelevanceScore int `json:"relevance_score"`
	TotalScore     int `json:"total_score"`
}
