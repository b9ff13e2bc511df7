// Package storage persists the normalized Record Set and the generated
// documents in a local directory. Every write lands in a temporary file in
// the same directory and is renamed over the target, so readers always see
// either the previous or the new version. Artifacts published together are
// replaced together.
package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/mzee2025/rdi-dashboard/internal/model"
)

// File names inside the storage directory.
const (
	RecordsFile   = "records.json"
	ExportFile    = "rdi_data_export.csv"
	DashboardFile = "rdi_dashboard.html"
	ReportFile    = "rdi_quality_report.xlsx"
)

// ErrNotFound is returned when a persisted artifact does not exist yet.
var ErrNotFound = errors.New("storage: not found")

// FileStore keeps artifacts under one directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "storage: create dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the location of name inside the store.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Artifact is one named file of a publish.
type Artifact struct {
	Name string
	Data []byte
}

// RecordSetArtifacts encodes rs as the typed snapshot and the CSV export.
func RecordSetArtifacts(rs *model.RecordSet) ([]Artifact, error) {
	data, err := json.Marshal(rs)
	if err != nil {
		return nil, eris.Wrap(err, "storage: marshal record set")
	}
	export, err := EncodeCSV(rs)
	if err != nil {
		return nil, err
	}
	return []Artifact{
		{Name: RecordsFile, Data: data},
		{Name: ExportFile, Data: export},
	}, nil
}

// SaveRecordSet writes the typed snapshot and the CSV export together.
func (s *FileStore) SaveRecordSet(rs *model.RecordSet) error {
	artifacts, err := RecordSetArtifacts(rs)
	if err != nil {
		return err
	}
	return s.Publish(artifacts...)
}

// LoadRecordSet reads the last saved snapshot. It returns ErrNotFound when
// nothing has been saved.
func (s *FileStore) LoadRecordSet() (*model.RecordSet, error) {
	data, err := os.ReadFile(s.Path(RecordsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "storage: read record set")
	}
	rs := &model.RecordSet{}
	if err := json.Unmarshal(data, rs); err != nil {
		return nil, eris.Wrap(err, "storage: decode record set")
	}
	return rs, nil
}

// RecordSetExists reports whether a snapshot has been saved.
func (s *FileStore) RecordSetExists() bool {
	return s.exists(RecordsFile)
}

// SaveDocument atomically replaces the document name with data.
func (s *FileStore) SaveDocument(name string, data []byte) error {
	return s.Publish(Artifact{Name: name, Data: data})
}

// DocumentExists reports whether the document name has been saved.
func (s *FileStore) DocumentExists(name string) bool {
	return s.exists(name)
}

// ReadDocument returns the saved document, or ErrNotFound.
func (s *FileStore) ReadDocument(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "storage: read %s", name)
	}
	return data, nil
}

func (s *FileStore) exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// Publish replaces every artifact or none of them. All artifacts are
// written and synced to temporary files first; the renames start only once
// every write has succeeded. If a rename fails, targets already replaced
// are restored from hard-link backups of their previous versions.
func (s *FileStore) Publish(artifacts ...Artifact) error {
	staged := make([]string, 0, len(artifacts))
	defer func() {
		for _, tmp := range staged {
			if tmp != "" {
				os.Remove(tmp) //nolint:errcheck
			}
		}
	}()
	for _, a := range artifacts {
		tmp, err := s.stage(a)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}

	backups := make([]string, len(artifacts))
	defer func() {
		for _, b := range backups {
			if b != "" {
				os.Remove(b) //nolint:errcheck
			}
		}
	}()
	for i, a := range artifacts {
		if !s.exists(a.Name) {
			continue
		}
		b := s.backupPath(a.Name)
		os.Remove(b) //nolint:errcheck
		if err := os.Link(s.Path(a.Name), b); err != nil {
			return eris.Wrapf(err, "storage: back up %s", a.Name)
		}
		backups[i] = b
	}

	for i, a := range artifacts {
		if err := os.Rename(staged[i], s.Path(a.Name)); err != nil {
			s.rollback(artifacts[:i], backups[:i])
			return eris.Wrapf(err, "storage: rename %s", a.Name)
		}
		staged[i] = ""
	}
	return nil
}

func (s *FileStore) stage(a Artifact) (string, error) {
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(a.Name)+".*.tmp")
	if err != nil {
		return "", eris.Wrapf(err, "storage: create temp for %s", a.Name)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpPath) //nolint:errcheck
		return "", eris.Wrapf(err, "storage: write %s", a.Name)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpPath) //nolint:errcheck
		return "", eris.Wrapf(err, "storage: sync %s", a.Name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return "", eris.Wrapf(err, "storage: close %s", a.Name)
	}
	return tmpPath, nil
}

// rollback restores replaced targets. A target that had no previous
// version is removed.
func (s *FileStore) rollback(replaced []Artifact, backups []string) {
	for i, a := range replaced {
		if backups[i] == "" {
			os.Remove(s.Path(a.Name)) //nolint:errcheck
			continue
		}
		if err := os.Rename(backups[i], s.Path(a.Name)); err == nil {
			backups[i] = ""
		}
	}
}

func (s *FileStore) backupPath(name string) string {
	return filepath.Join(s.dir, "."+filepath.Base(name)+".prev")
}

// EncodeCSV renders rs as CSV with a header row. Missing cells are empty.
func EncodeCSV(rs *model.RecordSet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rs.ColumnNames()); err != nil {
		return nil, eris.Wrap(err, "storage: write csv header")
	}
	row := make([]string, rs.NumColumns())
	for i := 0; i < rs.Len(); i++ {
		for j, v := range rs.Row(i) {
			row[j] = v.String()
		}
		if err := w.Write(row); err != nil {
			return nil, eris.Wrap(err, "storage: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "storage: flush csv")
	}
	return buf.Bytes(), nil
}
