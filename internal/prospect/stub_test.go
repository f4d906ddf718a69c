package prospect

import (
	"context"

	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/pkg/contacts"
	"github.com/leadgrid/prospect-cli/pkg/directory"
	"github.com/leadgrid/prospect-cli/pkg/registry"
	"github.com/leadgrid/prospect-cli/pkg/websearch"
)

// Test doubles for the external collaborators. Each stub delegates to an
// optional func so individual tests can script behavior per call.

type stubDirectory struct {
	byActivity func(ctx context.Context, code, uf string, limit int) ([]directory.Company, error)
	byLocation func(ctx context.Context, city, uf string, limit int) ([]directory.Company, error)
	bySize     func(ctx context.Context, tier, uf string, limit int) ([]directory.Company, error)
}

func (s *stubDirectory) SearchByActivity(ctx context.Context, code, uf string, limit int) ([]directory.Company, error) {
	if s.byActivity == nil {
		return nil, nil
	}
	return s.byActivity(ctx, code, uf, limit)
}

func (s *stubDirectory) SearchByLocation(ctx context.Context, city, uf string, limit int) ([]directory.Company, error) {
	if s.byLocation == nil {
		return nil, nil
	}
	return s.byLocation(ctx, city, uf, limit)
}

func (s *stubDirectory) SearchBySize(ctx context.Context, tier, uf string, limit int) ([]directory.Company, error) {
	if s.bySize == nil {
		return nil, nil
	}
	return s.bySize(ctx, tier, uf, limit)
}

type stubWeb struct {
	search func(ctx context.Context, query string) ([]websearch.Result, error)
}

func (s *stubWeb) Search(ctx context.Context, query string) ([]websearch.Result, error) {
	if s.search == nil {
		return nil, nil
	}
	return s.search(ctx, query)
}

type stubRegistry struct {
	lookup func(ctx context.Context, taxID string) (*registry.Record, error)
}

func (s *stubRegistry) Lookup(ctx context.Context, taxID string) (*registry.Record, error) {
	if s.lookup == nil {
		return nil, registry.ErrNotFound
	}
	return s.lookup(ctx, taxID)
}

type stubContacts struct {
	find func(ctx context.Context, company, domain string) ([]contacts.Person, error)
}

func (s *stubContacts) FindPeople(ctx context.Context, company, domain string) ([]contacts.Person, error) {
	if s.find == nil {
		return nil, nil
	}
	return s.find(ctx, company, domain)
}

type stubEmails struct {
	search func(ctx context.Context, domain string) ([]string, error)
}

func (s *stubEmails) DomainSearch(ctx context.Context, domain string) ([]string, error) {
	if s.search == nil {
		return nil, nil
	}
	return s.search(ctx, domain)
}

type stubICPs struct {
	icp *model.ICPProfile
	err error
}

func (s *stubICPs) GetActiveICP(ctx context.Context, tenantID string) (*model.ICPProfile, error) {
	return s.icp, s.err
}

// directoryCompany builds a minimal valid directory record for tests.
func directoryCompany(name, cnpj string) directory.Company {
	return directory.Company{
		RazaoSocial: name,
		CNPJ:        cnpj,
		Logradouro:  "Av. Paulista, 1000",
		Municipio:   "São Paulo",
		UF:          "SP",
		Situacao:    "ATIVA",
	}
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
