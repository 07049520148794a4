// Package filestore reads and writes the mobile application's medicines.json
// export as a record store.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/logging"
	"github.com/giygas/medicament-rotations/storage"
)

var _ interfaces.RecordStore = (*Store)(nil)

// Store is a record store backed by one export file. Writes replace the
// file atomically and are always UTF-8.
type Store struct {
	path    string
	charset string
	loc     *time.Location

	mu sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithCharset declares the charset of non UTF-8 exports
func WithCharset(name string) Option {
	return func(s *Store) { s.charset = name }
}

// WithLocation sets the zone used to turn timestamps into days
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a store over the export at path
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// read loads every record of the export (caller must hold mu)
func (s *Store) read() ([]*record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", s.path, err)
	}
	data, err = toUTF8(data, s.charset)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", s.path, err)
	}
	return decodeExport(data)
}

// write replaces the export with records (caller must hold mu)
func (s *Store) write(records []*record) error {
	data, err := encodeExport(records)
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// LoadBatch returns the schedulable medicines of the export. Records with a
// recurrence pattern the engine does not handle are skipped.
func (s *Store) LoadBatch(ctx context.Context) ([]entities.Medicine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	records, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	batch := make([]entities.Medicine, 0, len(records))
	skipped := 0
	for _, r := range records {
		m, ok := r.toMedicine(s.loc)
		if !ok {
			skipped++
			continue
		}
		batch = append(batch, m)
	}
	if skipped > 0 {
		logging.Warn("Skipped medicines with unsupported frequency", "file", s.path, "count", skipped)
	}
	return batch, nil
}

// ApplyPatches rewrites the group fields of patched records. The file is
// left untouched when any patch is stale or targets an unknown medicine.
func (s *Store) ApplyPatches(ctx context.Context, patches []entities.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(patches) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	byID := make(map[string]*record, len(records))
	for _, r := range records {
		byID[r.medicineID()] = r
	}

	for _, p := range patches {
		r, ok := byID[p.MedicineID]
		if !ok {
			return fmt.Errorf("apply patch: %w: %s", storage.ErrNotFound, p.MedicineID)
		}
		current, _ := r.toMedicine(s.loc)
		if err := storage.CheckPatch(current, p); err != nil {
			return fmt.Errorf("apply patch: %w", err)
		}
	}

	for _, p := range patches {
		if err := byID[p.MedicineID].applyGroupFields(p.After, s.loc); err != nil {
			return fmt.Errorf("apply patch to %s: %w", p.MedicineID, err)
		}
	}
	return s.write(records)
}

// RecordIntake stores takenAt as the record's lastTakenTime unless a later
// intake is already recorded
func (s *Store) RecordIntake(ctx context.Context, medicineID string, takenAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.medicineID() != medicineID {
			continue
		}
		changed, err := r.recordIntake(takenAt)
		if err != nil {
			return fmt.Errorf("record intake for %s: %w", medicineID, err)
		}
		if !changed {
			return nil
		}
		return s.write(records)
	}
	return fmt.Errorf("record intake: %w: %s", storage.ErrNotFound, medicineID)
}

// WriteBatch copies the export at src to dst with the group fields of batch.
// Records whose group fields did not change are copied verbatim.
func WriteBatch(src, dst string, batch []entities.Medicine, opts ...Option) error {
	in := New(src, opts...)
	in.mu.Lock()
	records, err := in.read()
	in.mu.Unlock()
	if err != nil {
		return err
	}

	byID := make(map[string]entities.Medicine, len(batch))
	for _, m := range batch {
		byID[m.ID] = m
	}
	for _, r := range records {
		m, ok := byID[r.medicineID()]
		if !ok || !m.IsGrouped() {
			continue
		}
		if current, _ := r.toMedicine(in.loc); current.GroupFields() == m.GroupFields() {
			continue
		}
		if err := r.applyGroupFields(m.GroupFields(), in.loc); err != nil {
			return fmt.Errorf("write %s: %w", m.ID, err)
		}
	}

	out := New(dst, opts...)
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.write(records)
}
