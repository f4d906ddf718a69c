package model

import "time"

// JobStatus represents the lifecycle state of a qualification job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Grade is a discretized bucket of total score used for batch reporting.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
)

// GradeCounts tallies qualified items per grade tier.
type GradeCounts struct {
	APlus int `json:"a_plus"`
	A     int `json:"a"`
	B     int `json:"b"`
	C     int `json:"c"`
	D     int `json:"d"`
}

// Add increments the bucket for the given grade.
func (g *GradeCounts) Add(grade Grade) {
	switch grade {
	case GradeAPlus:
		g.APlus++
	case GradeA:
		g.A++
	case GradeB:
		g.B++
	case GradeC:
		g.C++
	case GradeD:
		g.D++
	}
}

// Total returns the sum of all grade buckets.
func (g *GradeCounts) Total() int {
	return g.APlus + g.A + g.B + g.C + g.D
}

// QualificationJob is a persisted batch-processing unit that runs the
// scoring pipeline over a fixed set of previously-imported companies.
// Mutated only by the job runner; deletion is an external administrative
// action, never performed by the pipeline.
type QualificationJob struct {
	ID             string      `json:"id"`
	TenantID       string      `json:"tenant_id"`
	ICPID          string      `json:"icp_id,omitempty"`
	Name           string      `json:"name,omitempty"`
	TotalItems     int         `json:"total_items"`
	ProcessedCount int         `json:"processed_count"`
	EnrichedCount  int         `json:"enriched_count"`
	FailedCount    int         `json:"failed_count"`
	Grades         GradeCounts `json:"grades"`
	Status         JobStatus   `json:"status"`
	ProgressPct    float64     `json:"progress_pct"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// JobItemStatus tracks an individual source item through a job run.
type JobItemStatus string

const (
	JobItemPending   JobItemStatus = "pending"
	JobItemProcessed JobItemStatus = "processed"
	JobItemFailed    JobItemStatus = "failed"
)

// JobItem is one imported company row belonging to a qualification job.
type JobItem struct {
	ID        int64         `json:"id"`
	JobID     string        `json:"job_id"`
	LegalName string        `json:"legal_name"`
	TaxID     string        `json:"tax_id,omitempty"`
	Website   string        `json:"website,omitempty"`
	City      string        `json:"city,omitempty"`
	Region    string        `json:"region,omitempty"`
	Status    JobItemStatus `json:"status"`
}

// QualifiedLead is a scored output row produced by a job run.
type QualifiedLead struct {
	ID             int64     `json:"id"`
	JobID          string    `json:"job_id"`
	TenantID       string    `json:"tenant_id"`
	LegalName      string    `json:"legal_name"`
	TaxID          string    `json:"tax_id,omitempty"`
	Website        string    `json:"website,omitempty"`
	City           string    `json:"city,omitempty"`
	Region         string    `json:"region,omitempty"`
	Emails         []string  `json:"emails,omitempty"`
	DecisionMakers []Person  `json:"decision_makers,omitempty"`
	ICPScore       int       `json:"icp_score"`
	RelevanceScore int       `json:"relevance_score"`
	TotalScore     int       `json:"total_score"`
	Grade          Grade     `json:"grade"`
	CreatedAt      time.Time `json:"created_at"`
}
