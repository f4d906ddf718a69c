package prospect

import (
	"strings"

	"github.com/leadgrid/prospect-cli/internal/model"
)

// taxIDLength is the digit count of a valid CNPJ.
const taxIDLength = 14

// NormalizeTaxID strips every non-digit character from a tax ID.
func NormalizeTaxID(raw string) string {
	var b strings.Builder
	b.Grow(taxIDLength)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCandidates rejects malformed candidate records: tax IDs that do
// not normalize to 14 digits, legal names shorter than 3 characters after
// trimming, and records whose status field is present and not active.
// Accepted candidates carry the normalized tax ID forward. Every
// rejection increments diag.Dropped. Pure and synchronous.
func ValidateCandidates(candidates []model.Candidate, diag *model.Diagnostics) []model.Candidate {
	valid := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.TaxID = NormalizeTaxID(c.TaxID)
		if len(c.TaxID) != taxIDLength {
			diag.Dropped++
			continue
		}

		if len(strings.TrimSpace(c.LegalName)) < 3 {
			diag.Dropped++
			continue
		}

		if c.Status != "" && !isActiveStatus(c.Status) {
			diag.Dropped++
			continue
		}

		valid = append(valid, c)
	}
	return valid
}

// isActiveStatus accepts the registry's active-status spellings.
func isActiveStatus(status string) bool {
	switch Fold(status) {
	case "ativa", "ativo", "active":
		return true
	}
	return false
}
