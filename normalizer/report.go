package normalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/giygas/medicament-rotations/entities"
)

// Report renders every named group of batch with the group ids in use and
// each member's order and start date. Fragmented names are flagged.
func Report(batch []entities.Medicine) string {
	byName := namedMembers(batch)

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Group consistency report\n")
	fmt.Fprintf(&b, "Named groups: %d\n", len(names))

	fragmented := 0
	for _, name := range names {
		indices := byName[name]
		ids := distinctGroupIDs(batch, indices)
		marker := ""
		if len(ids) > 1 {
			fragmented++
			marker = " [FRAGMENTED]"
		}

		fmt.Fprintf(&b, "\nGroup %q%s\n", name, marker)
		fmt.Fprintf(&b, "  ids: %s\n", strings.Join(ids, ", "))
		fmt.Fprintf(&b, "  members: %d\n", len(indices))

		members := make([]entities.Medicine, 0, len(indices))
		for _, i := range indices {
			members = append(members, batch[i])
		}
		entities.SortMembers(members)
		for _, m := range members {
			fmt.Fprintf(&b, "    %s (%s): groupId=%s order=%d start=%s\n",
				m.Name, m.ID, m.GroupID, m.GroupOrder, m.GroupStartDate)
		}
	}

	fmt.Fprintf(&b, "\nFragmented groups: %d\n", fragmented)
	return b.String()
}
