package prospect

import (
	"strings"

	"github.com/leadgrid/prospect-cli/internal/model"
)

// RawFilter is the caller-supplied filter shape from the discovery
// endpoint, prior to normalization. Field names follow the public API
// contract (pt-BR).
type RawFilter struct {
	Segmento           string   `json:"segmento,omitempty"`
	Porte              string   `json:"porte,omitempty"`
	FaturamentoMin     *float64 `json:"faturamentoMin,omitempty"`
	FaturamentoMax     *float64 `json:"faturamentoMax,omitempty"`
	FuncionariosMin    *int     `json:"funcionariosMin,omitempty"`
	FuncionariosMax    *int     `json:"funcionariosMax,omitempty"`
	Localizacao        string   `json:"localizacao,omitempty"`
	QuantidadeDesejada int      `json:"quantidadeDesejada,omitempty"`
	Page               int      `json:"page,omitempty"`
	PageSize           int      `json:"pageSize,omitempty"`
}

// NormalizeFilter clamps and defaults a raw filter into the canonical
// form. It never fails: any input produces a usable filter.
func NormalizeFilter(raw RawFilter) model.Filter {
	f := model.Filter{
		Sector:       strings.TrimSpace(raw.Segmento),
		SizeTier:     strings.TrimSpace(raw.Porte),
		RevenueMin:   raw.FaturamentoMin,
		RevenueMax:   raw.FaturamentoMax,
		HeadcountMin: raw.FuncionariosMin,
		HeadcountMax: raw.FuncionariosMax,
		DesiredCount: raw.QuantidadeDesejada,
		Page:         raw.Page,
		PageSize:     raw.PageSize,
	}

	if f.DesiredCount <= 0 {
		f.DesiredCount = model.DefaultDesiredCount
	}
	if f.DesiredCount > model.MaxDesiredCount {
		f.DesiredCount = model.MaxDesiredCount
	}
	if f.PageSize <= 0 {
		f.PageSize = model.DefaultPageSize
	}
	if f.PageSize > model.MaxPageSize {
		f.PageSize = model.MaxPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}

	f.City, f.Region = parseLocation(raw.Localizacao)

	return f
}

// parseLocation splits a free-text location on the first comma into
// city/region. A bare "Brasil" or empty value means no location
// constraint. A single segment that looks like a two-letter UF is
// treated as a region rather than a city.
func parseLocation(loc string) (city, region string) {
	loc = strings.TrimSpace(loc)
	if loc == "" || strings.EqualFold(loc, "brasil") {
		return "", ""
	}

	if i := strings.Index(loc, ","); i >= 0 {
		city = strings.TrimSpace(loc[:i])
		region = strings.TrimSpace(loc[i+1:])
		if strings.EqualFold(region, "brasil") {
			region = ""
		}
		return city, region
	}

	if len(loc) == 2 && loc == strings.ToUpper(loc) {
		return "", loc
	}
	return loc, ""
}
