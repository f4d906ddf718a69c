package prospect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/pkg/contacts"
	"github.com/leadgrid/prospect-cli/pkg/registry"
)

func registryRecord(taxID string) *registry.Record {
	return &registry.Record{
		RazaoSocial:   "Registro Oficial " + taxID + " LTDA",
		CNPJ:          taxID,
		Logradouro:    "Rua do Registro, 1",
		Municipio:     "São Paulo",
		UF:            "SP",
		CNAEPrincipal: "6201500",
		Porte:         "EPP",
		CapitalSocial: 250000,
		Situacao:      "ATIVA",
	}
}

func TestEnrichMergesRegistryOverCandidate(t *testing.T) {
	reg := &stubRegistry{
		lookup: func(ctx context.Context, taxID string) (*registry.Record, error) {
			return registryRecord(taxID), nil
		},
	}
	con := &stubContacts{
		find: func(ctx context.Context, company, domain string) ([]contacts.Person, error) {
			return []contacts.Person{{Name: "Maria Souza", Title: "Diretora", ProfileURL: "https://linkedin.com/in/maria"}}, nil
		},
	}
	em := &stubEmails{
		search: func(ctx context.Context, domain string) ([]string, error) {
			return []string{"contato@" + domain}, nil
		},
	}

	e := NewEnricher(reg, con, em, 5, time.Second)
	var diag model.Diagnostics
	out := e.Enrich(context.Background(), []model.Candidate{
		{
			LegalName: "Nome Antigo LTDA",
			TaxID:     "11222333000144",
			Website:   "https://www.acme.com.br",
			City:      "Campinas",
		},
	}, &diag)

	require.Len(t, out, 1)
	c := out[0]
	assert.Equal(t, "Registro Oficial 11222333000144 LTDA", c.LegalName)
	assert.Equal(t, "São Paulo", c.City)
	assert.Equal(t, "SP", c.Region)
	assert.Equal(t, "6201500", c.ActivityCode)
	assert.Equal(t, "EPP", c.SizeTier)
	require.NotNil(t, c.CapitalStock)
	assert.Equal(t, 250000.0, *c.CapitalStock)
	require.Len(t, c.DecisionMakers, 1)
	assert.Equal(t, "https://linkedin.com/in/maria", c.LinkedInURL)
	assert.Equal(t, []string{"contato@acme.com.br"}, c.Emails)

	assert.Equal(t, 1, diag.EnrichedOK)
	assert.Zero(t, diag.EnrichedPartial)
	assert.Zero(t, diag.Dropped)
}

func TestEnrichPartialWhenContactsMissing(t *testing.T) {
	e := NewEnricher(&stubRegistry{}, &stubContacts{}, &stubEmails{}, 5, time.Second)

	var diag model.Diagnostics
	out := e.Enrich(context.Background(), []model.Candidate{
		{LegalName: "Solo LTDA", TaxID: "11222333000144"},
	}, &diag)

	require.Len(t, out, 1)
	assert.Zero(t, diag.EnrichedOK)
	assert.Equal(t, 1, diag.EnrichedPartial)
}

func TestEnrichTimeoutDropsOnlySlowItem(t *testing.T) {
	const slowTaxID = "99888777000166"

	reg := &stubRegistry{
		lookup: func(ctx context.Context, taxID string) (*registry.Record, error) {
			if taxID == slowTaxID {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return registryRecord(taxID), nil
		},
	}

	e := NewEnricher(reg, &stubContacts{}, &stubEmails{}, 5, 50*time.Millisecond)

	candidates := make([]model.Candidate, 0, 5)
	for i := 0; i < 4; i++ {
		candidates = append(candidates, model.Candidate{
			LegalName: fmt.Sprintf("Rapida %d LTDA", i),
			TaxID:     fmt.Sprintf("1122233300014%d", i),
		})
	}
	candidates = append(candidates, model.Candidate{LegalName: "Lenta LTDA", TaxID: slowTaxID})

	var diag model.Diagnostics
	out := e.Enrich(context.Background(), candidates, &diag)

	assert.Len(t, out, 4)
	assert.Equal(t, 1, diag.Dropped)
	for _, c := range out {
		assert.NotEqual(t, slowTaxID, c.TaxID)
	}
}

func TestEnrichRunCancelNotCountedAsTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Aborts the whole run from inside the first collaborator call and
	// then blocks like a real in-flight request until cancellation lands.
	con := &stubContacts{
		find: func(ctx context.Context, company, domain string) ([]contacts.Person, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	e := NewEnricher(&stubRegistry{}, con, &stubEmails{}, 5, time.Minute)

	var diag model.Diagnostics
	out := e.Enrich(ctx, []model.Candidate{
		{LegalName: "Uma LTDA", TaxID: "11222333000144"},
		{LegalName: "Duas LTDA", TaxID: "11222333000225"},
		{LegalName: "Tres LTDA", TaxID: "11222333000306"},
	}, &diag)

	assert.Empty(t, out)
	assert.Zero(t, diag.Dropped, "an aborted run is not a per-item timeout")
}

func TestEnrichDeduplicatesByDomain(t *testing.T) {
	e := NewEnricher(&stubRegistry{}, &stubContacts{}, &stubEmails{}, 5, time.Second)

	var diag model.Diagnostics
	out := e.Enrich(context.Background(), []model.Candidate{
		{LegalName: "Matriz LTDA", TaxID: "11222333000144", Website: "https://acme.com.br"},
		{LegalName: "Filial LTDA", TaxID: "11222333000225", Website: "https://www.acme.com.br/filial"},
	}, &diag)

	require.Len(t, out, 1)
	assert.Equal(t, "Matriz LTDA", out[0].LegalName)
}

func TestEnrichDeduplicatesByDomainAcrossBatches(t *testing.T) {
	e := NewEnricher(&stubRegistry{}, &stubContacts{}, &stubEmails{}, 1, time.Second)

	var diag model.Diagnostics
	out := e.Enrich(context.Background(), []model.Candidate{
		{LegalName: "Matriz LTDA", TaxID: "11222333000144", Website: "acme.com.br"},
		{LegalName: "Filial LTDA", TaxID: "11222333000225", Website: "acme.com.br"},
	}, &diag)

	require.Len(t, out, 1)
}

func TestEnrichRegistryFailureDegradesToCandidate(t *testing.T) {
	reg := &stubRegistry{
		lookup: func(ctx context.Context, taxID string) (*registry.Record, error) {
			return nil, fmt.Errorf("registry: unexpected status 500")
		},
	}

	e := NewEnricher(reg, &stubContacts{}, &stubEmails{}, 5, time.Second)

	var diag model.Diagnostics
	out := e.Enrich(context.Background(), []model.Candidate{
		{LegalName: "Resiliente LTDA", TaxID: "11222333000144", City: "Recife", Region: "PE"},
	}, &diag)

	require.Len(t, out, 1)
	assert.Equal(t, "Resiliente LTDA", out[0].LegalName)
	assert.Equal(t, "Recife", out[0].City)
	assert.Zero(t, diag.Dropped)
}

func TestEnrichHeadcountEstimateFromTier(t *testing.T) {
	e := NewEnricher(&stubRegistry{}, &stubContacts{}, &stubEmails{}, 5, time.Second)

	var diag model.Diagnostics
	out := e.Enrich(context.Background(), []model.Candidate{
		{LegalName: "Porte LTDA", TaxID: "11222333000144", SizeTier: "EPP"},
	}, &diag)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].HeadcountEstimate)
	assert.Equal(t, 30, *out[0].HeadcountEstimate)
}
