package fetcher

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/leadgrid/prospect-cli/internal/model"
)

// ReadCSV parses company rows from a CSV stream. The first row must be
// a header; the delimiter (comma or semicolon) is sniffed from it.
// Rows without a company name are skipped.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.JobItem, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "csv: read header")
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(string(peek))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	cm, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var items []model.JobItem
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		if item, ok := itemFromRow(cm, row); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// sniffDelimiter picks the delimiter from the first line: semicolon
// when it outnumbers commas, comma otherwise.
func sniffDelimiter(sample string) rune {
	if i := strings.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}
	if strings.Count(sample, ";") > strings.Count(sample, ",") {
		return ';'
	}
	return ','
}
