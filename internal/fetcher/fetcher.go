// Package fetcher loads company rows for qualification jobs from CSV
// and XLSX sources, local or behind an ftp:// URL.
package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/leadgrid/prospect-cli/internal/model"
	"github.com/leadgrid/prospect-cli/internal/prospect"
)

// columnAliases maps normalized header names (pt-BR and English) to
// item fields.
var columnAliases = map[string]string{
	"razao_social": "legal_name",
	"empresa":      "legal_name",
	"nome":         "legal_name",
	"legal_name":   "legal_name",
	"name":         "legal_name",
	"cnpj":         "tax_id",
	"tax_id":       "tax_id",
	"site":         "website",
	"website":      "website",
	"url":          "website",
	"cidade":       "city",
	"municipio":    "city",
	"city":         "city",
	"uf":           "region",
	"estado":       "region",
	"region":       "region",
	"state":        "region",
}

// columnMap holds the resolved column index for each item field, -1
// when the source has no such column.
type columnMap struct {
	legalName int
	taxID     int
	website   int
	city      int
	region    int
}

// mapHeader resolves a header row against the known aliases. A
// legal-name column is required; everything else is optional.
func mapHeader(header []string) (columnMap, error) {
	cm := columnMap{legalName: -1, taxID: -1, website: -1, city: -1, region: -1}
	for i, cell := range header {
		key := strings.ReplaceAll(prospect.Fold(cell), "_", " ")
		key = strings.Join(strings.Fields(key), "_")
		field, ok := columnAliases[key]
		if !ok {
			continue
		}
		switch field {
		case "legal_name":
			cm.legalName = i
		case "tax_id":
			cm.taxID = i
		case "website":
			cm.website = i
		case "city":
			cm.city = i
		case "region":
			cm.region = i
		}
	}
	if cm.legalName == -1 {
		return cm, eris.Errorf("fetcher: no company name column in header %v", header)
	}
	return cm, nil
}

// itemFromRow builds a job item from one data row. Returns false when
// the row has no company name.
func itemFromRow(cm columnMap, row []string) (model.JobItem, bool) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	item := model.JobItem{
		LegalName: cell(cm.legalName),
		TaxID:     cell(cm.taxID),
		Website:   cell(cm.website),
		City:      cell(cm.city),
		Region:    cell(cm.region),
		Status:    model.JobItemPending,
	}
	if item.LegalName == "" {
		return model.JobItem{}, false
	}
	return item, true
}

// Load reads company rows from a source: a local .csv or .xlsx file,
// or an ftp:// URL pointing at one.
func Load(ctx context.Context, src string) ([]model.JobItem, error) {
	if strings.HasPrefix(strings.ToLower(src), "ftp://") {
		return loadFTP(ctx, src)
	}

	switch strings.ToLower(filepath.Ext(src)) {
	case ".csv":
		f, err := os.Open(src)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f)
	case ".xlsx":
		return ReadXLSX(src)
	default:
		return nil, eris.Errorf("fetcher: unsupported source %q (want .csv, .xlsx or ftp://)", src)
	}
}
