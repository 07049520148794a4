// Package storage holds what the record store backends share: sentinel
// errors and patch application over an in-memory batch.
package storage

import (
	"errors"
	"fmt"

	"github.com/giygas/medicament-rotations/entities"
)

var (
	ErrNotFound   = errors.New("medicine not found")
	ErrStalePatch = errors.New("stale patch")
)

// CheckPatch verifies that patch still applies to current. A record already
// carrying the patched fields is accepted so retries are harmless.
func CheckPatch(current entities.Medicine, patch entities.Patch) error {
	fields := current.GroupFields()
	if fields == patch.Before || fields == patch.After {
		return nil
	}
	return fmt.Errorf("%w: medicine %s has %+v, expected %+v", ErrStalePatch, patch.MedicineID, fields, patch.Before)
}

// ApplyPatches returns a copy of batch with patches applied. Either every
// patch applies or batch is returned unchanged with an error.
func ApplyPatches(batch []entities.Medicine, patches []entities.Patch) ([]entities.Medicine, error) {
	index := make(map[string]int, len(batch))
	for i, m := range batch {
		index[m.ID] = i
	}

	for _, p := range patches {
		i, ok := index[p.MedicineID]
		if !ok {
			return batch, fmt.Errorf("apply patch: %w: %s", ErrNotFound, p.MedicineID)
		}
		if err := CheckPatch(batch[i], p); err != nil {
			return batch, fmt.Errorf("apply patch: %w", err)
		}
	}

	out := entities.CloneBatch(batch)
	for _, p := range patches {
		i := index[p.MedicineID]
		out[i] = out[i].WithGroupFields(p.After)
	}
	return out, nil
}
