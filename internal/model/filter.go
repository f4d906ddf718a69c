package model

// Filter bounds enforced by the normalizer.
const (
	MaxDesiredCount = 100
	MaxPageSize     = 50

	DefaultDesiredCount = 20
	DefaultPageSize     = 20
)

// Filter is the canonical, normalized search filter driving a discovery
// request. All fields besides the paging ones are optional.
type Filter struct {
	Sector       string   `json:"sector,omitempty"`
	SizeTier     string   `json:"size_tier,omitempty"`
	RevenueMin   *float64 `json:"revenue_min,omitempty"`
	RevenueMax   *float64 `json:"revenue_max,omitempty"`
	HeadcountMin *int     `json:"headcount_min,omitempty"`
	HeadcountMax *int     `json:"headcount_max,omitempty"`
	City         string   `json:"city,omitempty"`
	Region       string   `json:"region,omitempty"`
	DesiredCount int      `json:"desired_count"`
	Page         int      `json:"page"`
	PageSize     int      `json:"page_size"`
}

// ICPProfile is a tenant's ideal customer profile. Loaded read-only per
// request; the pipeline never mutates it.
type ICPProfile struct {
	ID            string   `json:"id"`
	TenantID      string   `json:"tenant_id"`
	Sectors       []string `json:"sectors,omitempty"`
	Niches        []string `json:"niches,omitempty"`
	ActivityCodes []string `json:"activity_codes,omitempty"`
	SizeTiers     []string `json:"size_tiers,omitempty"`
	Regions       []string `json:"regions,omitempty"`
	RevenueMin    *float64 `json:"revenue_min,omitempty"`
	RevenueMax    *float64 `json:"revenue_max,omitempty"`
	HeadcountMin  *int     `json:"headcount_min,omitempty"`
	HeadcountMax  *int     `json:"headcount_max,omitempty"`
}

// Diagnostics counts candidates through every pipeline stage. Scoped to a
// single request or job run, reset at run start, and mutated only by the
// coordinating goroutine.
type Diagnostics struct {
	Collected       int `json:"candidates_collected"`
	AfterFilter     int `json:"candidates_after_filter"`
	EnrichedOK      int `json:"enriched_ok"`
	EnrichedPartial int `json:"enriched_partial"`
	Dropped         int `json:"dropped"`
}
