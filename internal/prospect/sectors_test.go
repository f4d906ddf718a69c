package prospect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tecnologia", "tecnologia"},
		{"CONSTRUÇÃO", "construcao"},
		{"  Saúde ", "saude"},
		{"Indústria", "industria"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in))
	}
}

func TestActivityCodes(t *testing.T) {
	v := DefaultVocab()

	assert.NotEmpty(t, v.ActivityCodes("tecnologia"))
	assert.Equal(t, v.ActivityCodes("tecnologia"), v.ActivityCodes("TECNOLOGIA"))
	// Niche phrasing resolves via substring match.
	assert.Equal(t, v.ActivityCodes("software"), v.ActivityCodes("software house"))
	assert.Nil(t, v.ActivityCodes("setor inexistente"))
	assert.Nil(t, v.ActivityCodes(""))
}

func TestCanonicalTier(t *testing.T) {
	v := DefaultVocab()

	tests := []struct {
		in   string
		want string
	}{
		{"media", "MEDIO"},
		{"Média", "MEDIO"},
		{"pequena", "EPP"},
		{"micro", "ME"},
		{"grande", "GRANDE"},
		{"corporativo", "CORPORATIVO"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, v.CanonicalTier(tt.in))
	}
}

func TestLoadVocabPartialFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	content := "sectors:\n  fintech:\n    - \"6619302\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := LoadVocab(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"6619302"}, v.Sectors["fintech"])
	// Sections the file omits keep the built-in tables.
	assert.NotEmpty(t, v.Tiers)
	assert.NotEmpty(t, v.ExcludePathKeywords)
}

func TestLoadVocabMissingFile(t *testing.T) {
	_, err := LoadVocab(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
