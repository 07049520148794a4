package entities

// GroupFields are the medicine fields rewritten by group normalization.
type GroupFields struct {
	GroupID        string `json:"groupId" yaml:"groupId"`
	GroupStartDate Day    `json:"groupStartDate" yaml:"groupStartDate"`
	GroupOrder     int    `json:"groupOrder" yaml:"groupOrder"`
}

// Patch describes one medicine whose group fields must be persisted.
type Patch struct {
	MedicineID string      `json:"medicineId" yaml:"medicineId"`
	Before     GroupFields `json:"before" yaml:"before"`
	After      GroupFields `json:"after" yaml:"after"`
}

// Merge summarises one fragmented group that was collapsed into a canonical
// group.
type Merge struct {
	GroupName      string   `json:"groupName" yaml:"groupName"`
	MergedIDs      []string `json:"mergedIds" yaml:"mergedIds"`
	CanonicalID    string   `json:"canonicalId" yaml:"canonicalId"`
	CanonicalStart Day      `json:"canonicalStart" yaml:"canonicalStart"`
	MemberIDs      []string `json:"memberIds" yaml:"memberIds"`
}
