// Package emailfinder provides domain-level email discovery.
package emailfinder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the email discovery operation.
type Client interface {
	// DomainSearch returns publicly discoverable email addresses for a
	// web domain.
	DomainSearch(ctx context.Context, domain string) ([]string, error)
}

type domainResponse struct {
	Data struct {
		Domain string `json:"domain"`
		Emails []struct {
			Value string `json:"value"`
			Type  string `json:"type"`
		} `json:"emails"`
	} `json:"data"`
}

// Option configures the email finder client.
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

// NewClient creates an email discovery client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.emailfinder.io/v2",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) DomainSearch(ctx context.Context, domain string) ([]string, error) {
	reqURL := fmt.Sprintf("%s/domain-search?domain=%s&api_key=%s",
		c.baseURL, url.QueryEscape(domain), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "emailfinder: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "emailfinder: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "emailfinder: read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("emailfinder: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result domainResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "emailfinder: unmarshal response")
	}

	var emails []string
	for _, e := range result.Data.Emails {
		v := strings.TrimSpace(strings.ToLower(e.Value))
		if v == "" || !strings.Contains(v, "@") {
			continue
		}
		emails = append(emails, v)
	}
	return emails, nil
}
