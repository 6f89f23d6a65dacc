package outwriter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/internal/parquet"
	"github.com/qualitytrend/sonarscrape/schema"
)

// FileStore reads and writes tables as files under one directory.
// Every write goes to a temporary file that is renamed into place, so readers
// see either the previous file or the complete new one.
type FileStore struct {
	dir     string
	parquet bool
}

var _ contract.TableStore = &FileStore{} // Compile-time check

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithParquetSidecars also writes each table as <name>.parquet in long format.
func WithParquetSidecars(enabled bool) StoreOption {
	return func(s *FileStore) { s.parquet = enabled }
}

// NewFileStore creates a store rooted at dir. Absolute names bypass dir.
func NewFileStore(dir string, opts ...StoreOption) *FileStore {
	if dir == "" {
		dir = "."
	}
	s := &FileStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns where name is stored.
func (s *FileStore) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// WriteTable encodes table in full and then replaces the file atomically. With
// sidecars on, both files are staged before either is moved into place.
func (s *FileStore) WriteTable(name string, table schema.Table) (string, error) {
	data, err := EncodeTable(table)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}
	path := s.Path(name)
	if !s.parquet {
		if err := writeFileAtomic(path, data); err != nil {
			return "", err
		}
		return path, nil
	}

	var sidecar bytes.Buffer
	if err := parquet.WriteTableCells(&sidecar, table); err != nil {
		return "", fmt.Errorf("encoding parquet sidecar of %s: %w", name, err)
	}
	tmpTable, err := stageFile(path, data)
	if err != nil {
		return "", err
	}
	sidecarPath := SidecarPath(path)
	tmpSidecar, err := stageFile(sidecarPath, sidecar.Bytes())
	if err != nil {
		_ = os.Remove(tmpTable)
		return "", err
	}
	if err := os.Rename(tmpSidecar, sidecarPath); err != nil {
		_ = os.Remove(tmpTable)
		_ = os.Remove(tmpSidecar)
		return "", fmt.Errorf("failed to move %s into place: %w", sidecarPath, err)
	}
	if err := os.Rename(tmpTable, path); err != nil {
		_ = os.Remove(tmpTable)
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return path, nil
}

// WriteLines writes one value per line atomically.
func (s *FileStore) WriteLines(name string, lines []string) (string, error) {
	path := s.Path(name)
	if err := writeFileAtomic(path, EncodeLines(lines)); err != nil {
		return "", err
	}
	return path, nil
}

// ReadTable reads a table written by WriteTable.
func (s *FileStore) ReadTable(name string) (schema.Table, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return schema.Table{}, err
	}
	return DecodeTable(data)
}

// ReadLines reads a list written by WriteLines.
func (s *FileStore) ReadLines(name string) ([]string, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, err
	}
	return DecodeLines(data), nil
}

// SidecarPath returns the Parquet path that sits next to a table file.
func SidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".parquet"
}

// writeFileAtomic writes data to a temporary file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmpName, err := stageFile(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// stageFile writes data to a synced temporary file next to path and returns its name.
func stageFile(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return tmpName, nil
}
