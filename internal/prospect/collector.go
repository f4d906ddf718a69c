package prospect

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/internal/resilience"
	"github.com/leadgrid/prospect-cli/pkg/directory"
	"github.com/leadgrid/prospect-cli/pkg/websearch"
)

// maxActivityCodes caps the number of CNAE queries per collection run.
const maxActivityCodes = 3

// cnpjPattern extracts a formatted or bare CNPJ from free text.
var cnpjPattern = regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`)

// statusPattern recovers the HTTP status from wrapped client errors.
var statusPattern = regexp.MustCompile(`unexpected status (\d{3})`)

// retryableSearchErr treats network failures and retryable HTTP statuses
// as transient.
func retryableSearchErr(err error) bool {
	if resilience.IsTransient(err) {
		return true
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); len(m) == 2 {
		code, convErr := strconv.Atoi(m[1])
		return convErr == nil && resilience.RetryableStatus(code)
	}
	return false
}

// Meta returns the target candidate count for a collection run: a
// multiple of the requested result count with a floor, absorbing later
// rejection and dedup loss.
func Meta(desired, multiplier, floor int) int {
	if multiplier <= 0 {
		multiplier = 3
	}
	if floor <= 0 {
		floor = 60
	}
	meta := desired * multiplier
	if meta < floor {
		meta = floor
	}
	return meta
}

// Collector gathers candidate companies from the directory source with a
// web-search fallback, deduplicating as results stream in.
type Collector struct {
	dir     directory.Client
	web     websearch.Client
	vocab   *Vocab
	limiter *rate.Limiter
}

// NewCollector creates a Collector. rateLimit bounds external calls per
// second across all strategies.
func NewCollector(dir directory.Client, web websearch.Client, vocab *Vocab, rateLimit float64) *Collector {
	if rateLimit <= 0 {
		rateLimit = 10
	}
	return &Collector{
		dir:     dir,
		web:     web,
		vocab:   vocab,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

// Collect runs the query strategies in order until meta candidates are
// gathered. A failing strategy is logged and skipped; collection
// continues with the remaining strategies. Candidates are deduplicated by
// normalized tax ID when present, else by website domain.
func (c *Collector) Collect(ctx context.Context, f model.Filter, icp *model.ICPProfile, meta int) []model.Candidate {
	log := zap.L().With(zap.String("stage", "collect"))

	seen := make(map[string]struct{}, meta)
	var out []model.Candidate

	add := func(cands []model.Candidate) {
		for _, cand := range cands {
			if len(out) >= meta {
				return
			}
			key := dedupKey(cand)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, cand)
		}
	}

	// Strategy 1: activity codes + location.
	for _, code := range c.activityCodes(f, icp) {
		if len(out) >= meta {
			return out
		}
		cands, err := c.searchDirectory(ctx, "activity", func(limit int) ([]directory.Company, error) {
			return c.dir.SearchByActivity(ctx, code, f.Region, limit)
		}, meta-len(out))
		if err != nil {
			log.Warn("activity search failed", zap.String("cnae", code), zap.Error(err))
			continue
		}
		add(cands)
	}

	// Strategy 2: location alone.
	if len(out) < meta && (f.City != "" || f.Region != "") {
		cands, err := c.searchDirectory(ctx, "location", func(limit int) ([]directory.Company, error) {
			return c.dir.SearchByLocation(ctx, f.City, f.Region, limit)
		}, meta-len(out))
		if err != nil {
			log.Warn("location search failed", zap.String("city", f.City), zap.Error(err))
		} else {
			add(cands)
		}
	}

	// Strategy 3: size tier + location.
	if len(out) < meta && f.SizeTier != "" {
		tier := c.vocab.CanonicalTier(f.SizeTier)
		cands, err := c.searchDirectory(ctx, "size", func(limit int) ([]directory.Company, error) {
			return c.dir.SearchBySize(ctx, tier, f.Region, limit)
		}, meta-len(out))
		if err != nil {
			log.Warn("size search failed", zap.String("tier", tier), zap.Error(err))
		} else {
			add(cands)
		}
	}

	// Strategy 4: web-search fallback, only when the structured sources
	// produced nothing at all.
	if len(out) == 0 {
		cands, err := c.webFallback(ctx, f)
		if err != nil {
			log.Warn("web fallback failed", zap.Error(err))
		} else {
			add(cands)
		}
	}

	log.Info("collection complete",
		zap.Int("candidates", len(out)),
		zap.Int("meta", meta),
	)
	return out
}

// activityCodes resolves up to maxActivityCodes CNAE codes from the ICP
// or from the sector name.
func (c *Collector) activityCodes(f model.Filter, icp *model.ICPProfile) []string {
	var codes []string
	if icp != nil {
		codes = icp.ActivityCodes
	}
	if len(codes) == 0 && f.Sector != "" {
		codes = c.vocab.ActivityCodes(f.Sector)
	}
	if len(codes) > maxActivityCodes {
		codes = codes[:maxActivityCodes]
	}
	return codes
}

// searchDirectory runs one rate-limited directory query and converts the
// typed records to candidates.
func (c *Collector) searchDirectory(ctx context.Context, source string, query func(limit int) ([]directory.Company, error), limit int) ([]model.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	records, err := query(limit)
	if err != nil {
		return nil, err
	}

	cands := make([]model.Candidate, 0, len(records))
	for _, r := range records {
		cands = append(cands, model.Candidate{
			LegalName:   r.RazaoSocial,
			TradeName:   r.NomeFantasia,
			TaxID:       r.CNPJ,
			Street:      r.Logradouro,
			City:        r.Municipio,
			Region:      r.UF,
			PostalCode:  r.CEP,
			Website:     r.Website,
			SizeTier:    r.Porte,
			RevenueHint: r.CapitalSocial,
			Status:      r.Situacao,
			Source:      "directory:" + source,
		})
	}
	return cands, nil
}

// webFallback searches the open web for organization pages matching the
// filter, keeping only home/about/contact style results.
func (c *Collector) webFallback(ctx context.Context, f model.Filter) ([]model.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := buildWebQuery(f)
	retryCfg := resilience.Defaults()
	retryCfg.Retryable = retryableSearchErr
	results, err := resilience.DoVal(ctx, retryCfg, "websearch", func(ctx context.Context) ([]websearch.Result, error) {
		return c.web.Search(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	var cands []model.Candidate
	for _, r := range results {
		if !isOrganizationPage(r, c.vocab) {
			continue
		}
		cands = append(cands, model.Candidate{
			LegalName: strings.TrimSpace(r.Title),
			TaxID:     extractTaxID(r.Title + " " + r.Snippet),
			Website:   r.Link,
			City:      f.City,
			Region:    f.Region,
			Source:    "websearch",
		})
	}
	return cands, nil
}

// buildWebQuery composes the fallback search query from sector and location.
func buildWebQuery(f model.Filter) string {
	parts := []string{"empresas"}
	if f.Sector != "" {
		parts = append(parts, f.Sector)
	}
	if f.City != "" {
		parts = append(parts, f.City)
	}
	if f.Region != "" {
		parts = append(parts, f.Region)
	}
	return fmt.Sprintf("%s sobre contato", strings.Join(parts, " "))
}

// isOrganizationPage keeps home/about/contact style pages, rejecting
// listing, forum, job and product pages via vocabulary heuristics.
func isOrganizationPage(r websearch.Result, vocab *Vocab) bool {
	u, err := url.Parse(r.Link)
	if err != nil || u.Host == "" {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, kw := range vocab.ExcludePathKeywords {
		if strings.Contains(path, kw) {
			return false
		}
	}

	text := Fold(r.Title + " " + r.Snippet)
	for _, kw := range vocab.ExcludeTextKeywords {
		if strings.Contains(text, Fold(kw)) {
			return false
		}
	}

	return true
}

// extractTaxID pulls a CNPJ out of free text, returning it raw
// (normalization happens in validation).
func extractTaxID(text string) string {
	return cnpjPattern.FindString(text)
}

// dedupKey is the streaming dedup key: normalized tax ID when present,
// else the normalized website domain.
func dedupKey(c model.Candidate) string {
	if id := NormalizeTaxID(c.TaxID); id != "" {
		return "cnpj:" + id
	}
	if d := ExtractDomain(c.Website); d != "" {
		return "domain:" + d
	}
	return ""
}

// ExtractDomain normalizes a website URL to its bare host.
func ExtractDomain(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
