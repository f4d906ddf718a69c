package contacts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPeople(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ACME LTDA", req["company"])
		assert.Equal(t, "acme.com.br", req["domain"])

		w.Write([]byte(`{"people":[
			{"name":"Maria Silva","title":"CEO","profile_url":"https://linkedin.com/in/msilva"},
			{"name":"","title":"ghost row"},
			{"name":"Joao Souza","title":"Diretor Comercial","email":"joao@acme.com.br"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	people, err := c.FindPeople(context.Background(), "ACME LTDA", "acme.com.br")
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Maria Silva", people[0].Name)
	assert.Equal(t, "joao@acme.com.br", people[1].Email)
}

func TestFindPeopleNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	people, err := c.FindPeople(context.Background(), "Nobody Inc", "")
	require.NoError(t, err)
	assert.Empty(t, people)
}
