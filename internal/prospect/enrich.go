package prospect

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/pkg/contacts"
	"github.com/leadgrid/prospect-cli/pkg/emailfinder"
	"github.com/leadgrid/prospect-cli/pkg/registry"
)

// Enrichment defaults per pipeline config.
const (
	DefaultConcurrency   = 5
	DefaultEnrichTimeout = 8 * time.Second
)

// tierHeadcount maps registry size tiers to a rough headcount estimate,
// used when no better figure is available.
var tierHeadcount = map[string]int{
	"MEI":    1,
	"ME":     5,
	"EPP":    30,
	"MEDIO":  150,
	"GRANDE": 500,
}

// Enricher fans each validated candidate out to the registry, contact
// and email collaborators with bounded concurrency and a per-item
// deadline. A failing collaborator degrades the record; it never fails
// the run.
type Enricher struct {
	registry registry.Client
	contacts contacts.Client
	emails   emailfinder.Client

	concurrency int
	timeout     time.Duration
}

// NewEnricher creates an Enricher. Zero concurrency/timeout values fall
// back to the defaults (5 workers, 8s per item).
func NewEnricher(reg registry.Client, con contacts.Client, em emailfinder.Client, concurrency int, timeout time.Duration) *Enricher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultEnrichTimeout
	}
	return &Enricher{
		registry:    reg,
		contacts:    con,
		emails:      em,
		concurrency: concurrency,
		timeout:     timeout,
	}
}

// enrichOutcome is the settled result of one enrichment task.
type enrichOutcome struct {
	company  *model.EnrichedCompany
	domain   string
	full     bool
	timedOut bool
	canceled bool
}

// expiredOutcome classifies an expired item context: hitting the
// per-item deadline drops the candidate, while cancellation of the run
// abandons it without counting it as a timeout.
func expiredOutcome(ctx context.Context) enrichOutcome {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return enrichOutcome{timedOut: true}
	}
	return enrichOutcome{canceled: true}
}

// Enrich processes candidates in sequential batches of the configured
// concurrency; batch N+1 does not start until every task of batch N has
// settled, bounding in-flight external calls strictly. Tasks carry a
// per-item deadline; a candidate whose task exceeds it is dropped. The
// domain dedup set is touched only by this coordinating goroutine,
// before launch and while funneling settled results back.
func (e *Enricher) Enrich(ctx context.Context, candidates []model.Candidate, diag *model.Diagnostics) []model.EnrichedCompany {
	log := zap.L().With(zap.String("stage", "enrich"))

	seenDomains := make(map[string]struct{})
	var enriched []model.EnrichedCompany

	for start := 0; start < len(candidates); start += e.concurrency {
		if ctx.Err() != nil {
			break
		}

		end := start + e.concurrency
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		// Pre-launch dedup on the domain already known from collection.
		launch := make([]model.Candidate, 0, len(batch))
		for _, cand := range batch {
			if d := ExtractDomain(cand.Website); d != "" {
				if _, dup := seenDomains[d]; dup {
					continue
				}
			}
			launch = append(launch, cand)
		}

		outcomes := make([]enrichOutcome, len(launch))
		g, gctx := errgroup.WithContext(ctx)
		for i, cand := range launch {
			g.Go(func() error {
				outcomes[i] = e.enrichOne(gctx, cand)
				return nil
			})
		}
		_ = g.Wait()

		// Funnel settled results back serially.
		for i := range outcomes {
			o := &outcomes[i]
			if o.canceled {
				continue
			}
			if o.timedOut {
				diag.Dropped++
				log.Debug("candidate timed out", zap.String("company", launch[i].LegalName))
				continue
			}
			if o.company == nil {
				diag.Dropped++
				continue
			}
			if o.domain != "" {
				if _, dup := seenDomains[o.domain]; dup {
					continue
				}
				seenDomains[o.domain] = struct{}{}
			}
			if o.full {
				diag.EnrichedOK++
			} else {
				diag.EnrichedPartial++
			}
			enriched = append(enriched, *o.company)
		}
	}

	log.Info("enrichment complete",
		zap.Int("enriched", len(enriched)),
		zap.Int("ok", diag.EnrichedOK),
		zap.Int("partial", diag.EnrichedPartial),
	)
	return enriched
}

// enrichOne runs the per-candidate enrichment under its own deadline so
// an abandoned item releases its in-flight collaborator calls.
func (e *Enricher) enrichOne(ctx context.Context, cand model.Candidate) enrichOutcome {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Canonical registry data; candidate fields are the fallback.
	var rec *registry.Record
	if cand.TaxID != "" {
		r, err := e.registry.Lookup(ctx, cand.TaxID)
		switch {
		case err == nil:
			rec = r
		case errors.Is(err, registry.ErrNotFound):
			// Fall through to candidate fields.
		case ctx.Err() != nil:
			return expiredOutcome(ctx)
		default:
			zap.L().Debug("registry lookup failed", zap.String("tax_id", cand.TaxID), zap.Error(err))
		}
	}

	company := mergeRegistry(cand, rec)
	domain := ExtractDomain(company.Website)

	// Decision-makers and emails come from independent collaborators and
	// are fetched concurrently.
	var people []contacts.Person
	var emails []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := e.contacts.FindPeople(gctx, company.LegalName, domain)
		if err != nil {
			zap.L().Debug("contacts lookup failed", zap.String("company", company.LegalName), zap.Error(err))
			return nil
		}
		people = p
		return nil
	})
	if domain != "" {
		g.Go(func() error {
			em, err := e.emails.DomainSearch(gctx, domain)
			if err != nil {
				zap.L().Debug("email discovery failed", zap.String("domain", domain), zap.Error(err))
				return nil
			}
			emails = em
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return expiredOutcome(ctx)
	}

	for _, p := range people {
		company.DecisionMakers = append(company.DecisionMakers, model.Person{
			Name:       p.Name,
			Title:      p.Title,
			ProfileURL: p.ProfileURL,
			Email:      p.Email,
		})
		if company.LinkedInURL == "" && strings.Contains(p.ProfileURL, "linkedin.com") {
			company.LinkedInURL = p.ProfileURL
		}
	}
	company.Emails = emails

	return enrichOutcome{
		company: &company,
		domain:  domain,
		full:    len(company.DecisionMakers) > 0 && len(company.Emails) > 0,
	}
}

// mergeRegistry assembles the enriched company from candidate and
// registry data; registry wins legal-name and address conflicts.
func mergeRegistry(cand model.Candidate, rec *registry.Record) model.EnrichedCompany {
	company := model.EnrichedCompany{
		LegalName:  cand.LegalName,
		TradeName:  cand.TradeName,
		TaxID:      cand.TaxID,
		Street:     cand.Street,
		City:       cand.City,
		Region:     cand.Region,
		PostalCode: cand.PostalCode,
		Website:    cand.Website,
		SizeTier:   cand.SizeTier,
	}
	if cand.RevenueHint > 0 {
		hint := cand.RevenueHint
		company.RevenueEstimate = &hint
	}

	if rec != nil {
		if rec.RazaoSocial != "" {
			company.LegalName = rec.RazaoSocial
		}
		if rec.NomeFantasia != "" {
			company.TradeName = rec.NomeFantasia
		}
		if rec.Logradouro != "" {
			company.Street = rec.Logradouro
		}
		if rec.Municipio != "" {
			company.City = rec.Municipio
		}
		if rec.UF != "" {
			company.Region = rec.UF
		}
		if rec.CEP != "" {
			company.PostalCode = rec.CEP
		}
		if rec.Porte != "" {
			company.SizeTier = rec.Porte
		}
		if rec.CNAEPrincipal != "" {
			company.ActivityCode = rec.CNAEPrincipal
		}
		if rec.CapitalSocial > 0 {
			capital := rec.CapitalSocial
			company.CapitalStock = &capital
		}
		if rec.Telefone != "" {
			company.Phones = append(company.Phones, rec.Telefone)
		}
	}

	if company.HeadcountEstimate == nil {
		if hc, ok := tierHeadcount[strings.ToUpper(company.SizeTier)]; ok {
			company.HeadcountEstimate = &hc
		}
	}

	return company
}
