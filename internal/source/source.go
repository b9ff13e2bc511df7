// Package source yields raw survey exports as RecordSets, either from the
// ONA API or from a local export file.
package source

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/fetcher"
	"github.com/mzee2025/rdi-dashboard/internal/model"
	"github.com/mzee2025/rdi-dashboard/internal/normalize"
	"github.com/mzee2025/rdi-dashboard/pkg/ona"
)

// Source produces the raw, not yet normalized, RecordSet of one export.
type Source interface {
	Fetch(ctx context.Context) (*model.RecordSet, error)
	// Name identifies the source in logs and run history.
	Name() string
}

// ONASource reads submissions from the ONA data API.
type ONASource struct {
	client ona.Client
	formID string
	query  string
}

// NewONASource wraps an ONA client. query is the optional ONA filter.
func NewONASource(client ona.Client, formID, query string) *ONASource {
	return &ONASource{client: client, formID: formID, query: query}
}

// Fetch downloads the form and builds the raw RecordSet.
func (s *ONASource) Fetch(ctx context.Context) (*model.RecordSet, error) {
	records, err := s.client.Fetch(ctx, s.query)
	if err != nil {
		return nil, err
	}
	return normalize.FromRaw(records), nil
}

// Name returns "ona:<form id>".
func (s *ONASource) Name() string { return "ona:" + s.formID }

// FileSource reads a local export: a JSON array of records, a CSV file with
// a header row, or the first sheet of an XLSX workbook with a header row.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns "file:<base name>".
func (s *FileSource) Name() string { return "file:" + filepath.Base(s.path) }

// Fetch reads and parses the file according to its extension.
func (s *FileSource) Fetch(ctx context.Context) (*model.RecordSet, error) {
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".json":
		f, err := os.Open(s.path)
		if err != nil {
			return nil, eris.Wrap(err, "source: open json export")
		}
		defer f.Close() //nolint:errcheck
		records, err := fetcher.ReadJSONArray[map[string]any](ctx, f)
		if err != nil {
			return nil, eris.Wrapf(err, "source: read %s", s.path)
		}
		return normalize.FromRaw(records), nil

	case ".csv":
		f, err := os.Open(s.path)
		if err != nil {
			return nil, eris.Wrap(err, "source: open csv export")
		}
		defer f.Close() //nolint:errcheck
		table, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{LazyQuotes: true})
		if err != nil {
			return nil, eris.Wrapf(err, "source: read %s", s.path)
		}
		return FromTable(table), nil

	case ".xlsx":
		table, err := fetcher.ReadXLSX(s.path, fetcher.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "source: read %s", s.path)
		}
		return FromTable(table), nil

	default:
		return nil, eris.Errorf("source: unsupported export format %q", ext)
	}
}

// FromTable builds a RecordSet from text cells in header order. Blank cells
// are missing. A column whose non-blank cells all parse as finite numbers
// becomes numeric. Repeated header names keep the first column.
func FromTable(t *fetcher.Table) *model.RecordSet {
	var names []string
	var positions []int
	seen := make(map[string]bool, len(t.Header))
	for j, h := range t.Header {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			if h != "" {
				zap.L().Warn("source: duplicate column ignored", zap.String("column", h))
			}
			continue
		}
		seen[h] = true
		names = append(names, h)
		positions = append(positions, j)
	}

	numeric := make([]bool, len(names))
	for k, j := range positions {
		numeric[k] = numericColumn(t.Rows, j)
	}

	rs := model.NewRecordSet(names...)
	for _, row := range t.Rows {
		values := make([]model.Value, len(names))
		for k, j := range positions {
			cell := ""
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			switch {
			case cell == "":
				values[k] = model.Missing()
			case numeric[k]:
				f, _ := parseNumber(cell)
				values[k] = model.Number(f)
			default:
				values[k] = model.String(cell)
			}
		}
		// Row width matches names by construction.
		_ = rs.AppendRow(values)
	}
	rs.InferTypes()
	return rs
}

func numericColumn(rows [][]string, j int) bool {
	found := false
	for _, row := range rows {
		if j >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[j])
		if cell == "" {
			continue
		}
		if _, ok := parseNumber(cell); !ok {
			return false
		}
		found = true
	}
	return found
}

func parseNumber(s string) (float64, bool) {
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
