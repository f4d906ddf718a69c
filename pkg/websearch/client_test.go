package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "empresas de software Campinas", req["q"])
		assert.Equal(t, "br", req["gl"])

		w.Write([]byte(`{"organic":[{"title":"ACME Software","link":"https://acme.com.br/sobre","snippet":"Empresa de software"}]}`))
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURL(srv.URL))
	results, err := c.Search(context.Background(), "empresas de software Campinas")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.com.br/sobre", results[0].Link)
}

func TestSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "anything")
	assert.Error(t, err)
}
