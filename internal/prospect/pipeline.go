package prospect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leadgrid/prospect-cli/internal/config"
	"github.com/leadgrid/prospect-cli/internal/model"
)

// ICPSource loads the active ideal-customer profile for a tenant.
// Implemented by the store; kept narrow so tests can stub it.
type ICPSource interface {
	GetActiveICP(ctx context.Context, tenantID string) (*model.ICPProfile, error)
}

// Result is the outcome of one discovery run: the requested page of
// ranked companies plus run diagnostics and the effective filter.
type Result struct {
	Companies   []model.ScoredCompany `json:"companies"`
	Total       int                   `json:"total"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	HasMore     bool                  `json:"has_more"`
	Filter      model.Filter          `json:"filter"`
	Diagnostics model.Diagnostics     `json:"diagnostics"`
}

// Pipeline wires the discovery stages together: normalize, combine with
// the tenant ICP, collect, validate, enrich, post-filter, score, rank,
// paginate. Construction is cheap; a Pipeline is safe for concurrent
// Discover calls.
type Pipeline struct {
	collector *Collector
	enricher  *Enricher
	scorer    *Scorer
	icps      ICPSource
	vocab     *Vocab

	metaMultiplier int
	metaFloor      int
}

// NewPipeline assembles a Pipeline from its stages and pipeline config.
func NewPipeline(collector *Collector, enricher *Enricher, scorer *Scorer, icps ICPSource, vocab *Vocab, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		collector:      collector,
		enricher:       enricher,
		scorer:         scorer,
		icps:           icps,
		vocab:          vocab,
		metaMultiplier: cfg.MetaMultiplier,
		metaFloor:      cfg.MetaFloor,
	}
}

// Discover runs the full discovery pipeline for one request. The run
// itself never fails on empty results: thin sources produce a valid,
// possibly empty page with honest diagnostics.
func (p *Pipeline) Discover(ctx context.Context, tenantID string, raw RawFilter) (*Result, error) {
	started := time.Now()
	log := zap.L().With(zap.String("tenant_id", tenantID))

	f := NormalizeFilter(raw)

	var icp *model.ICPProfile
	if p.icps != nil && tenantID != "" {
		loaded, err := p.icps.GetActiveICP(ctx, tenantID)
		if err != nil {
			log.Warn("icp lookup failed, continuing without profile", zap.Error(err))
		} else {
			icp = loaded
		}
	}
	f = CombineWithICP(f, icp, p.vocab)

	var diag model.Diagnostics
	meta := Meta(f.DesiredCount, p.metaMultiplier, p.metaFloor)

	candidates := p.collector.Collect(ctx, f, icp, meta)
	diag.Collected = len(candidates)

	valid := ValidateCandidates(candidates, &diag)
	enriched := p.enricher.Enrich(ctx, valid, &diag)
	kept := PostFilter(enriched, f, &diag)
	diag.AfterFilter = len(kept)

	scored := p.scorer.Score(kept, f, icp)
	Rank(scored)

	if len(scored) > f.DesiredCount {
		scored = scored[:f.DesiredCount]
	}
	page := Paginate(scored, f.Page, f.PageSize)

	log.Info("discovery complete",
		zap.Int("collected", diag.Collected),
		zap.Int("returned", len(page.Companies)),
		zap.Duration("took", time.Since(started)),
	)

	return &Result{
		Companies:   page.Companies,
		Total:       page.Total,
		Page:        page.Page,
		PageSize:    page.PageSize,
		HasMore:     page.HasMore,
		Filter:      f,
		Diagnostics: diag,
	}, nil
}

// ScoreItem qualifies a single already-known company through the
// enrich-and-score path, used by the batch job runner. The company is
// enriched on its own (a batch of one) and scored against the given
// profile.
func (p *Pipeline) ScoreItem(ctx context.Context, item model.JobItem, icp *model.ICPProfile) (*model.ScoredCompany, model.Diagnostics, error) {
	var diag model.Diagnostics

	cand := model.Candidate{
		LegalName: item.LegalName,
		TaxID:     item.TaxID,
		Website:   item.Website,
		City:      item.City,
		Region:    item.Region,
		Source:    "import",
	}

	valid := ValidateCandidates([]model.Candidate{cand}, &diag)
	if len(valid) == 0 {
		return nil, diag, nil
	}

	enriched := p.enricher.Enrich(ctx, valid, &diag)
	if len(enriched) == 0 {
		return nil, diag, nil
	}

	f := model.Filter{DesiredCount: 1, Page: 1, PageSize: 1}
	f = CombineWithICP(f, icp, p.vocab)
	scored := p.scorer.Score(enriched, f, icp)
	return &scored[0], diag, nil
}
