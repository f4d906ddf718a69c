// Package contacts provides decision-maker search against a B2B contact
// database API.
package contacts

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the decision-maker search operation.
type Client interface {
	// FindPeople returns decision-makers for a company, matched by name
	// and, when available, website domain.
	FindPeople(ctx context.Context, companyName, domain string) ([]Person, error)
}

// Person is a single contact returned by the API.
type Person struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	ProfileURL string `json:"profile_url"`
	Email      string `json:"email"`
}

type findRequest struct {
	Company string `json:"company"`
	Domain  string `json:"domain,omitempty"`
	Titles  []string `json:"titles,omitempty"`
}

type findResponse struct {
	People []Person `json:"people"`
}

// defaultTitles biases results toward buying-committee roles.
var defaultTitles = []string{"CEO", "Diretor", "Sócio", "Gerente Comercial", "Head"}

// Option configures the contacts client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a contacts API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.contatosb2b.com/v1",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FindPeople(ctx context.Context, companyName, domain string) ([]Person, error) {
	payload, err := json.Marshal(findRequest{
		Company: companyName,
		Domain:  domain,
		Titles:  defaultTitles,
	})
	if err != nil {
		return nil, eris.Wrap(err, "contacts: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/people/search", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "contacts: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "contacts: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "contacts: read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("contacts: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result findResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "contacts: unmarshal response")
	}

	// Drop rows without a name; partially-typed contact data is useless
	// downstream.
	people := result.People[:0]
	for _, p := range result.People {
		if p.Name != "" {
			people = append(people, p)
		}
	}
	return people, nil
}
