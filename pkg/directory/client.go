// Package directory provides a client for the company-directory search API.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the directory search operations used by the collector.
type Client interface {
	// SearchByActivity finds companies matching a CNAE activity code,
	// optionally restricted to a state (UF).
	SearchByActivity(ctx context.Context, activityCode, uf string, limit int) ([]Company, error)
	// SearchByLocation finds companies registered in a city/state.
	SearchByLocation(ctx context.Context, city, uf string, limit int) ([]Company, error)
	// SearchBySize finds companies of a given registered size tier.
	SearchBySize(ctx context.Context, sizeTier, uf string, limit int) ([]Company, error)
}

// Company is a single directory record. Fields mirror the Brazilian
// company registry vocabulary the API exposes.
type Company struct {
	RazaoSocial    string  `json:"razao_social"`
	NomeFantasia   string  `json:"nome_fantasia"`
	CNPJ           string  `json:"cnpj"`
	Logradouro     string  `json:"logradouro"`
	Municipio      string  `json:"municipio"`
	UF             string  `json:"uf"`
	CEP            string  `json:"cep"`
	Website        string  `json:"website"`
	Porte          string  `json:"porte"`
	CapitalSocial  float64 `json:"capital_social"`
	Situacao       string  `json:"situacao_cadastral"`
	CNAEPrincipal  string  `json:"cnae_principal"`
}

type searchResponse struct {
	Empresas []Company `json:"empresas"`
	Total    int       `json:"total"`
}

// Option configures the directory client.
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

// NewClient creates a directory API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.diretorioempresas.com.br/v1",
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchByActivity(ctx context.Context, activityCode, uf string, limit int) ([]Company, error) {
	q := url.Values{}
	q.Set("cnae", activityCode)
	if uf != "" {
		q.Set("uf", uf)
	}
	return c.search(ctx, q, limit)
}

func (c *httpClient) SearchByLocation(ctx context.Context, city, uf string, limit int) ([]Company, error) {
	q := url.Values{}
	if city != "" {
		q.Set("municipio", city)
	}
	if uf != "" {
		q.Set("uf", uf)
	}
	return c.search(ctx, q, limit)
}

func (c *httpClient) SearchBySize(ctx context.Context, sizeTier, uf string, limit int) ([]Company, error) {
	q := url.Values{}
	q.Set("porte", sizeTier)
	if uf != "" {
		q.Set("uf", uf)
	}
	return c.search(ctx, q, limit)
}

func (c *httpClient) search(ctx context.Context, q url.Values, limit int) ([]Company, error) {
	if limit > 0 {
		q.Set("limite", strconv.Itoa(limit))
	}
	q.Set("situacao", "ATIVA")

	reqURL := fmt.Sprintf("%s/empresas?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "directory: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	body, statusCode, err := retryDo(ctx, c.http, req, "directory")
	if err != nil {
		return nil, eris.Wrap(err, "directory: request failed")
	}

	// 404 means no records matched the filter set.
	if statusCode == http.StatusNotFound {
		return nil, nil
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("directory: unexpected status %d: %s", statusCode, string(body))
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "directory: unmarshal response")
	}

	return result.Empresas, nil
}
