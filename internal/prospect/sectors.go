package prospect

import (
	"os"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Vocab holds the heuristic vocabulary the pipeline depends on: the
// sector-to-activity-code table, the size-tier synonyms, and the
// web-search exclusion lists. It is configuration data so tests and
// deployments can swap vocabularies without touching pipeline code.
type Vocab struct {
	// Sectors maps a canonical sector name to its CNAE activity codes.
	Sectors map[string][]string `yaml:"sectors"`
	// Tiers maps size-tier synonyms to the directory's canonical tier names.
	Tiers map[string]string `yaml:"tiers"`
	// ExcludePathKeywords disqualify a search result when found in the URL path.
	ExcludePathKeywords []string `yaml:"exclude_path_keywords"`
	// ExcludeTextKeywords disqualify a search result when found in title or snippet.
	ExcludeTextKeywords []string `yaml:"exclude_text_keywords"`
}

// DefaultVocab returns the built-in vocabulary.
func DefaultVocab() *Vocab {
	return &Vocab{
		Sectors: map[string][]string{
			"tecnologia":   {"6201500", "6202300", "6311900"},
			"software":     {"6201500", "6202300"},
			"industria":    {"2511000", "2229300", "1091101"},
			"construcao":   {"4120400", "4211101", "4399103"},
			"saude":        {"8610101", "8630501", "8650001"},
			"educacao":     {"8513900", "8520100", "8599604"},
			"varejo":       {"4711302", "4781400", "4789099"},
			"atacado":      {"4691500", "4693100"},
			"logistica":    {"4930202", "5211701", "5250804"},
			"alimentacao":  {"5611201", "5620104", "1091102"},
			"agronegocio":  {"0111301", "0151201", "4623108"},
			"financeiro":   {"6422100", "6462000", "6619302"},
			"consultoria":  {"7020400", "6920601", "7112000"},
			"marketing":    {"7311400", "7319002", "6319400"},
			"energia":      {"3511501", "4221901", "7112000"},
			"imobiliario":  {"6810201", "6810202", "6821801"},
		},
		Tiers: map[string]string{
			"mei":      "MEI",
			"micro":    "ME",
			"me":       "ME",
			"pequena":  "EPP",
			"pequeno":  "EPP",
			"epp":      "EPP",
			"media":    "MEDIO",
			"medio":    "MEDIO",
			"grande":   "GRANDE",
		},
		ExcludePathKeywords: []string{
			"/vaga", "/vagas", "/emprego", "/job", "/jobs", "/careers",
			"/forum", "/lista", "/listas", "/diretorio", "/directory",
			"/produto", "/product", "/anuncio", "/classificados", "/marketplace",
		},
		ExcludeTextKeywords: []string{
			"vaga de emprego", "trabalhe conosco", "lista de empresas",
			"melhores empresas", "ranking", "classificados", "anuncie",
			"comprar", "frete gratis", "promocao", "cupom",
		},
	}
}

// LoadVocab reads a vocabulary from a YAML file, falling back to the
// built-in table for any section the file leaves empty.
func LoadVocab(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vocab: read %s", path)
	}

	var v Vocab
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrap(err, "vocab: parse config")
	}

	def := DefaultVocab()
	if len(v.Sectors) == 0 {
		v.Sectors = def.Sectors
	}
	if len(v.Tiers) == 0 {
		v.Tiers = def.Tiers
	}
	if len(v.ExcludePathKeywords) == 0 {
		v.ExcludePathKeywords = def.ExcludePathKeywords
	}
	if len(v.ExcludeTextKeywords) == 0 {
		v.ExcludeTextKeywords = def.ExcludeTextKeywords
	}

	return &v, nil
}

// ActivityCodes resolves a free-text sector name to CNAE codes,
// accent- and case-insensitively. Returns nil when the sector is unknown.
func (v *Vocab) ActivityCodes(sector string) []string {
	key := Fold(sector)
	if codes, ok := v.Sectors[key]; ok {
		return codes
	}
	// Substring match tolerates niche phrasing like "software house".
	for name, codes := range v.Sectors {
		if key != "" && (strings.Contains(key, name) || strings.Contains(name, key)) {
			return codes
		}
	}
	return nil
}

// CanonicalTier maps a size-tier synonym to the directory vocabulary.
// Unknown tiers pass through uppercased.
func (v *Vocab) CanonicalTier(tier string) string {
	if tier == "" {
		return ""
	}
	if canonical, ok := v.Tiers[Fold(tier)]; ok {
		return canonical
	}
	return strings.ToUpper(strings.TrimSpace(tier))
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and strips diacritics for pt-BR-tolerant matching.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}
