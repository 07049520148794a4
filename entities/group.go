package entities

import (
	"sort"
	"strings"
)

// Group is the logical rotation group formed by every medicine sharing a
// GroupID. It is derived from a batch and never stored on its own.
type Group struct {
	ID        string     `json:"groupId"`
	Name      string     `json:"groupName"`
	StartDate Day        `json:"groupStartDate"`
	Frequency Frequency  `json:"frequency"`
	Members   []Medicine `json:"members"`
}

// Size is the number of members, the cycle length of a rotating group.
func (g Group) Size() int {
	return len(g.Members)
}

// GroupsOf derives groups from a batch, keyed by GroupID. Ungrouped medicines
// are skipped. Groups are sorted by id and members by order, then id. The
// group's name is the first non-blank member name; its start date and
// frequency come from the first member.
func GroupsOf(batch []Medicine) []Group {
	byID := make(map[string][]Medicine)
	for _, m := range batch {
		if !m.IsGrouped() {
			continue
		}
		byID[m.GroupID] = append(byID[m.GroupID], m)
	}

	groups := make([]Group, 0, len(byID))
	for id, members := range byID {
		SortMembers(members)
		g := Group{
			ID:        id,
			StartDate: members[0].GroupStartDate,
			Frequency: members[0].Frequency,
			Members:   members,
		}
		for _, m := range members {
			if m.HasGroupName() {
				g.Name = m.GroupName
				break
			}
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].ID < groups[j].ID
	})
	return groups
}

// GroupIndex maps each GroupID to its derived group.
func GroupIndex(batch []Medicine) map[string]Group {
	groups := GroupsOf(batch)
	index := make(map[string]Group, len(groups))
	for _, g := range groups {
		index[g.ID] = g
	}
	return index
}

// SortMembers orders medicines by GroupOrder, breaking ties by ID.
func SortMembers(members []Medicine) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].GroupOrder != members[j].GroupOrder {
			return members[i].GroupOrder < members[j].GroupOrder
		}
		return strings.Compare(members[i].ID, members[j].ID) < 0
	})
}
