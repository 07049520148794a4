// Package memory is an in-process record store, optionally seeded from a
// YAML file.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/storage"
	"gopkg.in/yaml.v3"
)

var _ interfaces.RecordStore = (*Store)(nil)

// Store keeps medicines in insertion order behind a RWMutex
type Store struct {
	mu      sync.RWMutex
	batch   []entities.Medicine
	byIndex map[string]int
}

// New creates a store holding batch
func New(batch ...entities.Medicine) *Store {
	s := &Store{byIndex: make(map[string]int)}
	for _, m := range batch {
		s.put(m)
	}
	return s
}

type seedFile struct {
	Medicines []entities.Medicine `yaml:"medicines"`
}

// LoadSeed creates a store from a YAML seed file:
//
//	medicines:
//	  - id: "1"
//	    name: Lipetor
//	    groupId: "1001"
//	    groupName: Tester
//	    groupOrder: 1
//	    groupStartDate: 2025-08-06
//	    frequency: EVERY_OTHER_DAY
//	    scheduleAnchor: 2025-08-06
func LoadSeed(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}

	for i, m := range seed.Medicines {
		if m.ID == "" {
			return nil, fmt.Errorf("seed %s: medicine #%d has no id", path, i+1)
		}
		freq, err := entities.ParseFrequency(string(m.Frequency))
		if err != nil {
			return nil, fmt.Errorf("seed %s: medicine %s: %w", path, m.ID, err)
		}
		seed.Medicines[i].Frequency = freq
	}

	return New(seed.Medicines...), nil
}

// put inserts or replaces m (caller must hold mu)
func (s *Store) put(m entities.Medicine) {
	if i, ok := s.byIndex[m.ID]; ok {
		s.batch[i] = m
		return
	}
	s.byIndex[m.ID] = len(s.batch)
	s.batch = append(s.batch, m)
}

// Put inserts or replaces a medicine
func (s *Store) Put(m entities.Medicine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(m)
}

func (s *Store) LoadBatch(ctx context.Context) ([]entities.Medicine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entities.CloneBatch(s.batch), nil
}

func (s *Store) ApplyPatches(ctx context.Context, patches []entities.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(patches) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patched, err := storage.ApplyPatches(s.batch, patches)
	if err != nil {
		return err
	}
	s.batch = patched
	return nil
}

func (s *Store) RecordIntake(ctx context.Context, medicineID string, takenAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byIndex[medicineID]
	if !ok {
		return fmt.Errorf("record intake: %w: %s", storage.ErrNotFound, medicineID)
	}
	if last := s.batch[i].LastTakenAt; last != nil && !takenAt.After(*last) {
		return nil
	}
	at := takenAt
	s.batch[i].LastTakenAt = &at
	return nil
}
