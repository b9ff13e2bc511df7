// Package fetcher downloads survey exports over HTTP and parses the tabular
// formats they arrive in: JSON arrays, CSV, and XLSX.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

var _ Fetcher = (*HTTPFetcher)(nil)

// Table is a header row plus data rows read from a tabular file. Rows may
// be shorter or longer than the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Records converts the table into one map per row keyed by header name.
// Cells beyond the header are dropped; missing trailing cells are absent
// from the map. Empty header names are skipped.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for j, name := range t.Header {
			if name == "" || j >= len(row) {
				continue
			}
			rec[name] = row[j]
		}
		out = append(out, rec)
	}
	return out
}
