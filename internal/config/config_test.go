package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Pipeline.Concurrency)
	assert.Equal(t, 8, cfg.Pipeline.EnrichTimeoutSecs)
	assert.Equal(t, 3, cfg.Pipeline.MetaMultiplier)
	assert.Equal(t, 60, cfg.Pipeline.MetaFloor)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestValidateSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Directory.Key = "k"
	cfg.Registry.Key = "k"
	cfg.Contacts.Key = "k"
	cfg.EmailFinder.Key = "k"
	cfg.WebSearch.Key = "k"
	require.NoError(t, cfg.ValidateSecrets())

	cfg.Contacts.Key = ""
	err := cfg.ValidateSecrets()
	require.Error(t, err)

	var missing *MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "MISSING_CONTACTS_API_KEY", missing.Code())
}

func TestValidateSecretsOrder(t *testing.T) {
	// With nothing configured the first missing collaborator is reported.
	cfg := &Config{}
	err := cfg.ValidateSecrets()
	require.Error(t, err)

	var missing *MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "MISSING_DIRECTORY_API_KEY", missing.Code())
}
