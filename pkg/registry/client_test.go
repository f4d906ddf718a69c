package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cnpj/11222333000144", r.URL.Path)
		w.Write([]byte(`{"razao_social":"ACME LTDA","cnpj":"11222333000144","municipio":"Curitiba","uf":"PR","cnae_fiscal":"6201500","capital_social":500000,"situacao_cadastral":"ATIVA"}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	rec, err := c.Lookup(context.Background(), "11222333000144")
	require.NoError(t, err)
	assert.Equal(t, "ACME LTDA", rec.RazaoSocial)
	assert.Equal(t, "PR", rec.UF)
	assert.InDelta(t, 500000.0, rec.CapitalSocial, 0.01)
}

func TestLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Lookup(context.Background(), "00000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Lookup(context.Background(), "11222333000144")
	assert.Error(t, err)
}
