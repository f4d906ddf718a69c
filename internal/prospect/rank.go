package prospect

import (
	"sort"

	"github.com/leadgrid/prospect-cli/internal/model"
)

// Rank orders scored companies by total score descending; ties fall to
// ICP score, then relevance score. The sort is stable so equal-scored
// companies keep their collection order, which keeps pagination
// deterministic across identical runs.
func Rank(scored []model.ScoredCompany) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.ICPScore != b.ICPScore {
			return a.ICPScore > b.ICPScore
		}
		return a.RelevanceScore > b.RelevanceScore
	})
}

// Page is one window of a ranked result set.
type Page struct {
	Companies []model.ScoredCompany
	Total     int
	Page      int
	PageSize  int
	HasMore   bool
}

// Paginate slices a ranked result set into the requested 1-based page.
// A page beyond the end yields an empty (never nil-panicking) page with
// HasMore false.
func Paginate(ranked []model.ScoredCompany, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = model.DefaultPageSize
	}

	start := (page - 1) * pageSize
	end := start + pageSize

	p := Page{
		Companies: []model.ScoredCompany{},
		Total:     len(ranked),
		Page:      page,
		PageSize:  pageSize,
	}
	if start >= len(ranked) {
		return p
	}
	if end > len(ranked) {
		end = len(ranked)
	}
	p.Companies = ranked[start:end]
	p.HasMore = len(ranked) > end
	return p
}
