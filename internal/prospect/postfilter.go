package prospect

import (
	"github.com/leadgrid/prospect-cli/internal/model"
)

// PostFilter applies the revenue and headcount range constraints that
// could not be pushed into the directory queries. A company missing the
// estimate an active bound needs is dropped rather than guessed at.
// Every exclusion increments diag.Dropped.
func PostFilter(companies []model.EnrichedCompany, f model.Filter, diag *model.Diagnostics) []model.EnrichedCompany {
	kept := make([]model.EnrichedCompany, 0, len(companies))
	for _, c := range companies {
		if !withinRevenueBounds(c, f) || !withinHeadcountBounds(c, f) {
			diag.Dropped++
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func withinRevenueBounds(c model.EnrichedCompany, f model.Filter) bool {
	if f.RevenueMin == nil && f.RevenueMax == nil {
		return true
	}
	if c.RevenueEstimate == nil {
		return false
	}
	if f.RevenueMin != nil && *c.RevenueEstimate < *f.RevenueMin {
		return false
	}
	if f.RevenueMax != nil && *c.RevenueEstimate > *f.RevenueMax {
		return false
	}
	return true
}

func withinHeadcountBounds(c model.EnrichedCompany, f model.Filter) bool {
	if f.HeadcountMin == nil && f.HeadcountMax == nil {
		return true
	}
	if c.HeadcountEstimate == nil {
		return false
	}
	if f.HeadcountMin != nil && *c.HeadcountEstimate < *f.HeadcountMin {
		return false
	}
	if f.HeadcountMax != nil && *c.HeadcountEstimate > *f.HeadcountMax {
		return false
	}
	return true
}
