package prospect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/prospect-cli/internal/config"
	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/pkg/contacts"
	"github.com/leadgrid/prospect-cli/pkg/directory"
	"github.com/leadgrid/prospect-cli/pkg/registry"
)

func testPipeline(dir directory.Client, icps ICPSource) *Pipeline {
	vocab := DefaultVocab()
	reg := &stubRegistry{
		lookup: func(ctx context.Context, taxID string) (*registry.Record, error) {
			return registryRecord(taxID), nil
		},
	}
	con := &stubContacts{
		find: func(ctx context.Context, company, domain string) ([]contacts.Person, error) {
			return []contacts.Person{{Name: "Ana Dias", Title: "Diretora"}}, nil
		},
	}
	collector := NewCollector(dir, &stubWeb{}, vocab, 1000)
	enricher := NewEnricher(reg, con, &stubEmails{}, 5, time.Second)
	scorer := NewScorer(vocab)
	return NewPipeline(collector, enricher, scorer, icps, vocab, config.PipelineConfig{
		Concurrency:       5,
		EnrichTimeoutSecs: 1,
		MetaMultiplier:    3,
		MetaFloor:         60,
	})
}

func manyCompaniesDirectory(n int) *stubDirectory {
	return &stubDirectory{
		byActivity: func(ctx context.Context, code, uf string, limit int) ([]directory.Company, error) {
			out := make([]directory.Company, 0, n)
			for i := 0; i < n; i++ {
				out = append(out, directoryCompany(
					fmt.Sprintf("Empresa %02d LTDA", i),
					fmt.Sprintf("112223330%05d", i),
				))
			}
			return out, nil
		},
	}
}

func TestDiscoverEndToEnd(t *testing.T) {
	icps := &stubICPs{icp: &model.ICPProfile{
		ID:            "icp-1",
		TenantID:      "t-1",
		Sectors:       []string{"tecnologia"},
		ActivityCodes: []string{"6201500"},
	}}
	p := testPipeline(manyCompaniesDirectory(30), icps)

	res, err := p.Discover(context.Background(), "t-1", RawFilter{
		Segmento:           "tecnologia",
		QuantidadeDesejada: 10,
		Localizacao:        "São Paulo, SP",
	})
	require.NoError(t, err)

	assert.Len(t, res.Companies, 10)
	assert.Equal(t, 10, res.Total)
	assert.False(t, res.HasMore)
	assert.Equal(t, 30, res.Diagnostics.Collected)
	assert.Equal(t, 30, res.Diagnostics.AfterFilter)
	assert.Zero(t, res.Diagnostics.Dropped)

	// Ranking holds across the page.
	for i := 1; i < len(res.Companies); i++ {
		assert.GreaterOrEqual(t, res.Companies[i-1].TotalScore, res.Companies[i].TotalScore)
	}
	// Registry data flowed through enrichment.
	assert.Contains(t, res.Companies[0].LegalName, "Registro Oficial")
}

func TestDiscoverEmptySourcesYieldEmptyPage(t *testing.T) {
	p := testPipeline(&stubDirectory{}, &stubICPs{})

	res, err := p.Discover(context.Background(), "t-1", RawFilter{Segmento: "tecnologia"})
	require.NoError(t, err)

	assert.Empty(t, res.Companies)
	assert.Zero(t, res.Total)
	assert.False(t, res.HasMore)
	assert.Zero(t, res.Diagnostics.Collected)
}

func TestDiscoverContinuesWhenICPLookupFails(t *testing.T) {
	p := testPipeline(manyCompaniesDirectory(5), &stubICPs{err: eris.New("store: connection refused")})

	res, err := p.Discover(context.Background(), "t-1", RawFilter{Segmento: "tecnologia", QuantidadeDesejada: 5})
	require.NoError(t, err)
	assert.Len(t, res.Companies, 5)
}

func TestDiscoverAppliesICPDefaults(t *testing.T) {
	icps := &stubICPs{icp: &model.ICPProfile{Sectors: []string{"saude"}}}

	var gotCodes []string
	dir := &stubDirectory{
		byActivity: func(ctx context.Context, code, uf string, limit int) ([]directory.Company, error) {
			gotCodes = append(gotCodes, code)
			return nil, nil
		},
	}
	p := testPipeline(dir, icps)

	_, err := p.Discover(context.Background(), "t-1", RawFilter{})
	require.NoError(t, err)

	// Sector came from the ICP, not the (empty) caller filter.
	assert.Equal(t, DefaultVocab().ActivityCodes("saude"), gotCodes)
}

func TestScoreItem(t *testing.T) {
	p := testPipeline(&stubDirectory{}, &stubICPs{})
	icp := &model.ICPProfile{ActivityCodes: []string{"6201500"}, SizeTiers: []string{"epp"}}

	scored, diag, err := p.ScoreItem(context.Background(), model.JobItem{
		LegalName: "Item Importado LTDA",
		TaxID:     "11.222.333/0001-44",
	}, icp)
	require.NoError(t, err)
	require.NotNil(t, scored)

	assert.Positive(t, scored.TotalScore)
	assert.Equal(t, scored.ICPScore+scored.RelevanceScore, scored.TotalScore)
	assert.Equal(t, 1, diag.EnrichedOK+diag.EnrichedPartial)
}

func TestScoreItemInvalidTaxID(t *testing.T) {
	p := testPipeline(&stubDirectory{}, &stubICPs{})

	scored, diag, err := p.ScoreItem(context.Background(), model.JobItem{
		LegalName: "Sem CNPJ LTDA",
		TaxID:     "123",
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, scored)
	assert.Equal(t, 1, diag.Dropped)
}
