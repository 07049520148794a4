// Package normalizer repairs rotation groups whose identity fragmented across
// several group ids after out-of-order or partial edits. It is a pure
// transformation: it returns a corrected batch plus the patches the caller
// must persist, and never touches its input.
package normalizer

import (
	"sort"
	"strings"

	"github.com/giygas/medicament-rotations/entities"
)

// Result is the outcome of one normalization pass.
type Result struct {
	Batch   []entities.Medicine `json:"batch"`
	Patches []entities.Patch    `json:"patches"`
	Merges  []entities.Merge    `json:"merges"`
}

// Changed reports whether the pass rewrote any record.
func (r Result) Changed() bool {
	return len(r.Patches) > 0
}

// Normalize merges every fragmented group of batch into one canonical group.
//
// Only medicines carrying both a non-blank group name and a group id take part.
// A name that maps to more than one id is merged: the canonical id is the id
// of the earliest created member (lexicographic minimum when creation times
// are missing or tied), the canonical start is the earliest start date, and
// members are renumbered 1..N by their previous order, ties broken by id.
// Group names are never rewritten and distinct names are never merged.
func Normalize(batch []entities.Medicine) Result {
	out := entities.CloneBatch(batch)
	byName := namedMembers(out)

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	patched := make(map[int]entities.Patch)
	merges := make([]entities.Merge, 0)

	for _, name := range names {
		indices := byName[name]
		ids := distinctGroupIDs(out, indices)
		if len(ids) < 2 {
			continue
		}

		canonicalID := canonicalGroupID(out, indices, ids)
		canonicalStart := earliestStart(out, indices)

		ordered := make([]int, len(indices))
		copy(ordered, indices)
		sort.SliceStable(ordered, func(i, j int) bool {
			a, b := out[ordered[i]], out[ordered[j]]
			if a.GroupOrder != b.GroupOrder {
				return a.GroupOrder < b.GroupOrder
			}
			return a.ID < b.ID
		})

		memberIDs := make([]string, 0, len(ordered))
		for pos, idx := range ordered {
			before := out[idx].GroupFields()
			after := entities.GroupFields{
				GroupID:        canonicalID,
				GroupStartDate: canonicalStart,
				GroupOrder:     pos + 1,
			}
			memberIDs = append(memberIDs, out[idx].ID)
			if before == after {
				continue
			}
			out[idx] = out[idx].WithGroupFields(after)
			patched[idx] = entities.Patch{
				MedicineID: out[idx].ID,
				Before:     before,
				After:      after,
			}
		}

		merges = append(merges, entities.Merge{
			GroupName:      name,
			MergedIDs:      ids,
			CanonicalID:    canonicalID,
			CanonicalStart: canonicalStart,
			MemberIDs:      memberIDs,
		})
	}

	// Patches follow batch order so repeated runs emit identical lists.
	patches := make([]entities.Patch, 0, len(patched))
	for i := range out {
		if p, ok := patched[i]; ok {
			patches = append(patches, p)
		}
	}

	return Result{Batch: out, Patches: patches, Merges: merges}
}

// FragmentedNames returns every group name that maps to more than one group
// id, with the sorted ids in use.
func FragmentedNames(batch []entities.Medicine) map[string][]string {
	fragmented := make(map[string][]string)
	for name, indices := range namedMembers(batch) {
		if ids := distinctGroupIDs(batch, indices); len(ids) > 1 {
			fragmented[name] = ids
		}
	}
	return fragmented
}

// HasFragmentation reports whether any group name maps to several ids.
func HasFragmentation(batch []entities.Medicine) bool {
	return len(FragmentedNames(batch)) > 0
}

// namedMembers indexes batch positions by group name, skipping records
// without a name or without a group id.
func namedMembers(batch []entities.Medicine) map[string][]int {
	byName := make(map[string][]int)
	for i, m := range batch {
		if !m.IsGrouped() || !m.HasGroupName() {
			continue
		}
		byName[m.GroupName] = append(byName[m.GroupName], i)
	}
	return byName
}

func distinctGroupIDs(batch []entities.Medicine, indices []int) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, i := range indices {
		id := batch[i].GroupID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// canonicalGroupID picks the group id of the earliest created member. When
// any member lacks a creation time, or several ids share the earliest time,
// the lexicographic minimum wins so repeated runs agree.
func canonicalGroupID(batch []entities.Medicine, indices []int, ids []string) string {
	fallback := ids[0]

	earliest := batch[indices[0]].CreatedAt
	for _, i := range indices {
		created := batch[i].CreatedAt
		if created.IsZero() {
			return fallback
		}
		if created.Before(earliest) {
			earliest = created
		}
	}

	candidate := ""
	for _, i := range indices {
		if !batch[i].CreatedAt.Equal(earliest) {
			continue
		}
		id := batch[i].GroupID
		if candidate == "" || strings.Compare(id, candidate) < 0 {
			candidate = id
		}
	}
	return candidate
}

func earliestStart(batch []entities.Medicine, indices []int) entities.Day {
	start := batch[indices[0]].GroupStartDate
	for _, i := range indices[1:] {
		if batch[i].GroupStartDate.Before(start) {
			start = batch[i].GroupStartDate
		}
	}
	return start
}
