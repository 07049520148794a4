package entities

// ViolationKind names the structural invariant a group breaks.
type ViolationKind string

const (
	MalformedGroupOrder   ViolationKind = "MALFORMED_GROUP_ORDER"
	DuplicateGroupOrder   ViolationKind = "DUPLICATE_GROUP_ORDER"
	GroupOrderGap         ViolationKind = "GROUP_ORDER_GAP"
	InconsistentStartDate ViolationKind = "INCONSISTENT_START_DATE"
	InconsistentFrequency ViolationKind = "INCONSISTENT_FREQUENCY"
	MissingGroupName      ViolationKind = "MISSING_GROUP_NAME"
	FragmentedGroup       ViolationKind = "FRAGMENTED_GROUP"
)

// ViolationKinds lists every kind in reporting order.
var ViolationKinds = []ViolationKind{
	MalformedGroupOrder,
	DuplicateGroupOrder,
	GroupOrderGap,
	InconsistentStartDate,
	InconsistentFrequency,
	MissingGroupName,
	FragmentedGroup,
}

// Violation is a structured diagnostic about one group. It is data for the
// caller to surface, never an error.
type Violation struct {
	Kind        ViolationKind `json:"kind" yaml:"kind"`
	GroupID     string        `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	GroupName   string        `json:"groupName,omitempty" yaml:"groupName,omitempty"`
	MedicineIDs []string      `json:"medicineIds,omitempty" yaml:"medicineIds,omitempty"`
	Detail      string        `json:"detail" yaml:"detail"`
}
