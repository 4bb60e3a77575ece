package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// JSONFileDatabase keeps all records in a single JSON array file which is
// rewritten as a whole on every mutation.
type JSONFileDatabase struct {
	path       string
	maxRecords int

	// serializes read-modify-write cycles within this process
	mu sync.Mutex
}

// NewJSONFileDatabase creates a store backed by the file at path
func NewJSONFileDatabase(path string) (*JSONFileDatabase, error) {
	if path == "" {
		return nil, fmt.Errorf("json store path must not be empty")
	}
	return &JSONFileDatabase{
		path:       path,
		maxRecords: MaxRecords,
	}, nil
}

// Path returns the location of the backing file
func (s *JSONFileDatabase) Path() string {
	return s.path
}

func (s *JSONFileDatabase) CreateDatabase(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

func (s *JSONFileDatabase) DoesDatabaseExist(_ context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", s.path, err)
}

func (s *JSONFileDatabase) Close() error {
	return nil
}

func (s *JSONFileDatabase) AppendRecord(_ context.Context, record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		// a missing or corrupt file starts a fresh store
		if !errors.Is(err, ErrStoreNotFound) {
			slog.Warn("result store unreadable, starting empty", "path", s.path, "error", err)
		}
		records = nil
	}

	records = append(records, record)
	if len(records) > s.maxRecords {
		records = records[len(records)-s.maxRecords:]
	}

	if err := s.write(records); err != nil {
		return Record{}, err
	}
	return record, nil
}

func (s *JSONFileDatabase) GetRecords(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		if !errors.Is(err, ErrStoreNotFound) {
			slog.Warn("result store unreadable, returning no records", "path", s.path, "error", err)
		}
		return []Record{}, nil
	}
	return records, nil
}

// ReadRecords lists the store like GetRecords but reports ErrCorruptStore
// and ErrStoreNotFound instead of returning an empty slice
func (s *JSONFileDatabase) ReadRecords(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *JSONFileDatabase) UpdateAnalyzed(_ context.Context, timestamp string, analyzed Analyzed) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return false, err
	}

	found := false
	for i := range records {
		if records[i].Timestamp == timestamp {
			records[i].Analyzed = analyzed
			found = true
			break
		}
	}

	// rewritten even when nothing matched, same as every other mutation
	if err := s.write(records); err != nil {
		return false, err
	}
	return found, nil
}

func (s *JSONFileDatabase) DeleteRecords(_ context.Context, timestamp string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return 0, err
	}

	kept := records[:0]
	for _, record := range records {
		if record.Timestamp != timestamp {
			kept = append(kept, record)
		}
	}
	removed := len(records) - len(kept)

	if err := s.write(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// read loads the file. A missing file yields ErrStoreNotFound and
// unparsable content ErrCorruptStore.
func (s *JSONFileDatabase) read() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptStore, s.path, err)
	}
	return records, nil
}

// write replaces the file atomically via a temp file in the same directory
func (s *JSONFileDatabase) write(records []Record) error {
	if records == nil {
		records = []Record{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op once renamed
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
