// Package registry provides lookup of canonical company registry data by
// tax ID (CNPJ).
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when the registry has no record for a tax ID.
var ErrNotFound = eris.New("registry: record not found")

// Client defines the registry lookup operation.
type Client interface {
	// Lookup fetches the canonical record for a 14-digit tax ID.
	// Returns ErrNotFound when the registry has no such company.
	Lookup(ctx context.Context, taxID string) (*Record, error)
}

// Record is the canonical registry data for a company.
type Record struct {
	RazaoSocial   string  `json:"razao_social"`
	NomeFantasia  string  `json:"nome_fantasia"`
	CNPJ          string  `json:"cnpj"`
	Logradouro    string  `json:"logradouro"`
	Municipio     string  `json:"municipio"`
	UF            string  `json:"uf"`
	CEP           string  `json:"cep"`
	CNAEPrincipal string  `json:"cnae_fiscal"`
	Porte         string  `json:"porte"`
	CapitalSocial float64 `json:"capital_social"`
	Situacao      string  `json:"situacao_cadastral"`
	Telefone      string  `json:"ddd_telefone_1"`
}

// Option configures the registry client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a registry lookup client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.cnpjregistro.com.br/v1",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, taxID string) (*Record, error) {
	reqURL := fmt.Sprintf("%s/cnpj/%s", c.baseURL, taxID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "registry: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "registry: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("registry: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal response")
	}

	return &rec, nil
}
