package prospect

import (
	"strings"

	"github.com/leadgrid/prospect-cli/internal/model"
)

// Point values of the fit rubric. ICP fit tops out at 100, data
// completeness at 65.
const (
	pointsSector       = 30
	pointsActivityCode = 30
	pointsSizeTier     = 10
	pointsRegion       = 10
	pointsRevenue      = 10
	pointsHeadcount    = 10

	pointsIdentity       = 20
	pointsWebsite        = 10
	pointsSocialProfile  = 10
	pointsDecisionMakers = 15
	pointsEmails         = 10
)

// cnaePrefixLen is how many leading digits of a CNAE code must agree
// for two codes to count as the same activity class.
const cnaePrefixLen = 4

// Scorer grades enriched companies against the effective filter and the
// tenant's ICP profile. Pure and deterministic: the same inputs always
// produce the same scores.
type Scorer struct {
	vocab *Vocab
}

// NewScorer creates a Scorer backed by the given vocabulary.
func NewScorer(vocab *Vocab) *Scorer {
	return &Scorer{vocab: vocab}
}

// Score computes both score components for every company and returns
// the scored slice in input order.
func (s *Scorer) Score(companies []model.EnrichedCompany, f model.Filter, icp *model.ICPProfile) []model.ScoredCompany {
	scored := make([]model.ScoredCompany, 0, len(companies))
	for _, c := range companies {
		icpScore := s.icpScore(c, f, icp)
		relScore := relevanceScore(c)
		scored = append(scored, model.ScoredCompany{
			EnrichedCompany: c,
			ICPScore:        icpScore,
			RelevanceScore:  relScore,
			TotalScore:      icpScore + relScore,
		})
	}
	return scored
}

// icpScore measures how well the company matches the target profile.
// Without a loaded profile there is no target to measure against, so
// the component is 0 regardless of caller filter fields; the filter
// only refines the profile's criteria.
func (s *Scorer) icpScore(c model.EnrichedCompany, f model.Filter, icp *model.ICPProfile) int {
	if icp == nil {
		return 0
	}

	score := 0

	if s.sectorMatches(c, f, icp) {
		score += pointsSector
	}
	if activityCodeMatches(c.ActivityCode, icp) {
		score += pointsActivityCode
	}
	if sizeTierMatches(c, f, icp, s.vocab) {
		score += pointsSizeTier
	}
	if regionMatches(c, f, icp) {
		score += pointsRegion
	}
	if (f.RevenueMin != nil || f.RevenueMax != nil) && c.RevenueEstimate != nil && withinRevenueBounds(c, f) {
		score += pointsRevenue
	}
	if (f.HeadcountMin != nil || f.HeadcountMax != nil) && c.HeadcountEstimate != nil && withinHeadcountBounds(c, f) {
		score += pointsHeadcount
	}

	return score
}

// relevanceScore measures how complete and actionable the record is.
func relevanceScore(c model.EnrichedCompany) int {
	score := 0

	if c.LegalName != "" && c.TaxID != "" && c.FullAddress() {
		score += pointsIdentity
	}
	if c.Website != "" {
		score += pointsWebsite
	}
	if c.LinkedInURL != "" {
		score += pointsSocialProfile
	}
	if len(c.DecisionMakers) > 0 {
		score += pointsDecisionMakers
	}
	if len(c.Emails) > 0 {
		score += pointsEmails
	}

	return score
}

// sectorMatches accepts a folded sector-name match or an activity code
// belonging to the desired sector's code family.
func (s *Scorer) sectorMatches(c model.EnrichedCompany, f model.Filter, icp *model.ICPProfile) bool {
	var wanted []string
	if f.Sector != "" {
		wanted = append(wanted, f.Sector)
	}
	if icp != nil {
		wanted = append(wanted, icp.Sectors...)
	}
	if len(wanted) == 0 {
		return false
	}

	companySector := Fold(c.Sector)
	for _, w := range wanted {
		fw := Fold(w)
		if companySector != "" && (companySector == fw || strings.Contains(companySector, fw) || strings.Contains(fw, companySector)) {
			return true
		}
		for _, code := range s.vocab.ActivityCodes(w) {
			if sameActivityClass(c.ActivityCode, code) {
				return true
			}
		}
	}
	return false
}

// activityCodeMatches compares the company's CNAE code against the
// ICP's explicit code list by activity-class prefix.
func activityCodeMatches(code string, icp *model.ICPProfile) bool {
	if icp == nil || code == "" {
		return false
	}
	for _, want := range icp.ActivityCodes {
		if sameActivityClass(code, want) {
			return true
		}
	}
	return false
}

// sameActivityClass reports whether two CNAE codes share the leading
// activity-class digits, tolerating punctuation differences.
func sameActivityClass(a, b string) bool {
	da, db := digitsOnly(a), digitsOnly(b)
	if len(da) < cnaePrefixLen || len(db) < cnaePrefixLen {
		return false
	}
	return da[:cnaePrefixLen] == db[:cnaePrefixLen]
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sizeTierMatches(c model.EnrichedCompany, f model.Filter, icp *model.ICPProfile, vocab *Vocab) bool {
	companyTier := vocab.CanonicalTier(c.SizeTier)
	if companyTier == "" {
		return false
	}
	if f.SizeTier != "" && vocab.CanonicalTier(f.SizeTier) == companyTier {
		return true
	}
	if icp != nil {
		for _, t := range icp.SizeTiers {
			if vocab.CanonicalTier(t) == companyTier {
				return true
			}
		}
	}
	return false
}

func regionMatches(c model.EnrichedCompany, f model.Filter, icp *model.ICPProfile) bool {
	if f.City != "" && Fold(c.City) == Fold(f.City) {
		return true
	}
	if f.Region != "" && Fold(c.Region) == Fold(f.Region) {
		return true
	}
	if icp != nil {
		for _, r := range icp.Regions {
			if Fold(c.Region) == Fold(r) || Fold(c.City) == Fold(r) {
				return true
			}
		}
	}
	return false
}

// Grade buckets a total score into the qualification ladder.
func Grade(total int) model.Grade {
	switch {
	case total >= 120:
		return model.GradeAPlus
	case total >= 95:
		return model.GradeA
	case total >= 70:
		return model.GradeB
	case total >= 45:
		return model.GradeC
	default:
		return model.GradeD
	}
}
