// Package validation provides structural validation of rotation groups and
// input validation for the rotation service.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/normalizer"
)

// Pre-compiled regex patterns, compiled once at package initialization
var (
	// Free text: letters of any script, digits, spaces and safe punctuation
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+']+$`)

	// Opaque identifiers as issued by the record stores
	idRegex = regexp.MustCompile(`^[A-Za-z0-9_\-.:]+$`)

	dayRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	// strings.Contains is faster than regex for these patterns
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "@import",
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(",
		"; ", "| ", "& ", "`", "$(", "${",
		"../", "..\\", "%2e%2e", "file://",
		"{$ne:", "{$gt:", "{$where:",
	}
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateBatch checks every group of the batch and reports names that still
// map to several group ids. Violations come out sorted by group id, then by
// kind; fragmentation violations come last, sorted by name.
func (v *DataValidatorImpl) ValidateBatch(batch []entities.Medicine) []entities.Violation {
	violations := make([]entities.Violation, 0)

	for _, group := range entities.GroupsOf(batch) {
		violations = append(violations, v.ValidateGroup(group)...)
	}

	fragmented := normalizer.FragmentedNames(batch)
	names := make([]string, 0, len(fragmented))
	for name := range fragmented {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ids := fragmented[name]
		var members []string
		for _, m := range batch {
			if m.IsGrouped() && m.GroupName == name {
				members = append(members, m.ID)
			}
		}
		violations = append(violations, entities.Violation{
			Kind:        entities.FragmentedGroup,
			GroupName:   name,
			MedicineIDs: members,
			Detail:      fmt.Sprintf("group name maps to %d group ids: %s", len(ids), strings.Join(ids, ", ")),
		})
	}

	return violations
}

// ValidateGroup checks that orders form exactly 1..N, that members share one
// start date and one frequency, and that a multi-member group is named.
func (v *DataValidatorImpl) ValidateGroup(group entities.Group) []entities.Violation {
	violations := make([]entities.Violation, 0)
	newViolation := func(kind entities.ViolationKind, ids []string, detail string) entities.Violation {
		return entities.Violation{
			Kind:        kind,
			GroupID:     group.ID,
			GroupName:   group.Name,
			MedicineIDs: ids,
			Detail:      detail,
		}
	}

	// Check 1: non-positive orders are reported, never guessed
	var malformed []string
	byOrder := make(map[int][]string)
	for _, m := range group.Members {
		if m.GroupOrder <= 0 {
			malformed = append(malformed, m.ID)
			continue
		}
		byOrder[m.GroupOrder] = append(byOrder[m.GroupOrder], m.ID)
	}
	if len(malformed) > 0 {
		violations = append(violations, newViolation(entities.MalformedGroupOrder, malformed,
			fmt.Sprintf("%d member(s) with non-positive group order", len(malformed))))
	}

	orders := make([]int, 0, len(byOrder))
	for order := range byOrder {
		orders = append(orders, order)
	}
	sort.Ints(orders)

	// Check 2: one violation per group for every shared order value
	var duplicated []string
	var duplicateOrders []int
	for _, order := range orders {
		if len(byOrder[order]) > 1 {
			duplicated = append(duplicated, byOrder[order]...)
			duplicateOrders = append(duplicateOrders, order)
		}
	}
	if len(duplicated) > 0 {
		violations = append(violations, newViolation(entities.DuplicateGroupOrder, duplicated,
			fmt.Sprintf("order value(s) %v shared by several members", duplicateOrders)))
	}

	// Check 3: distinct orders must be dense from 1
	for i, order := range orders {
		if order != i+1 {
			violations = append(violations, newViolation(entities.GroupOrderGap, nil,
				fmt.Sprintf("orders %v do not form 1..%d", orders, len(orders))))
			break
		}
	}

	// Check 4: one anchor for the whole rotation
	starts := make(map[entities.Day]bool)
	for _, m := range group.Members {
		starts[m.GroupStartDate] = true
	}
	if len(starts) > 1 {
		days := make([]string, 0, len(starts))
		for d := range starts {
			days = append(days, d.String())
		}
		sort.Strings(days)
		violations = append(violations, newViolation(entities.InconsistentStartDate, memberIDs(group),
			fmt.Sprintf("members disagree on start date: %s", strings.Join(days, ", "))))
	}

	// Check 5: one recurrence pattern for the whole rotation
	frequencies := make(map[entities.Frequency]bool)
	for _, m := range group.Members {
		frequencies[m.Frequency] = true
	}
	if len(frequencies) > 1 {
		names := make([]string, 0, len(frequencies))
		for f := range frequencies {
			names = append(names, string(f))
		}
		sort.Strings(names)
		violations = append(violations, newViolation(entities.InconsistentFrequency, memberIDs(group),
			fmt.Sprintf("members disagree on frequency: %s", strings.Join(names, ", "))))
	}

	// Check 6: a rotation of several members must be named
	if group.Size() > 1 {
		var unnamed []string
		for _, m := range group.Members {
			if !m.HasGroupName() {
				unnamed = append(unnamed, m.ID)
			}
		}
		if len(unnamed) > 0 {
			violations = append(violations, newViolation(entities.MissingGroupName, unnamed,
				fmt.Sprintf("%d member(s) of a %d-member group without a group name", len(unnamed), group.Size())))
		}
	}

	return violations
}

// ReportDataQuality summarises the batch and the violations found on it
func (v *DataValidatorImpl) ReportDataQuality(
	batch []entities.Medicine,
	violations []entities.Violation,
) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		TotalMedicines:       len(batch),
		FragmentedNames:      []string{},
		ViolationsByKind:     make(map[entities.ViolationKind]int),
		GroupsWithViolations: []string{},
	}

	for _, m := range batch {
		if m.IsGrouped() {
			report.GroupedMedicines++
		}
	}
	report.Groups = len(entities.GroupsOf(batch))

	for name := range normalizer.FragmentedNames(batch) {
		report.FragmentedNames = append(report.FragmentedNames, name)
	}
	sort.Strings(report.FragmentedNames)

	seen := make(map[string]bool)
	for _, violation := range violations {
		report.ViolationsByKind[violation.Kind]++
		if violation.GroupID != "" && !seen[violation.GroupID] {
			seen[violation.GroupID] = true
			report.GroupsWithViolations = append(report.GroupsWithViolations, violation.GroupID)
		}
	}
	sort.Strings(report.GroupsWithViolations)

	return report
}

// ValidateInput validates user input strings with enhanced security
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len([]rune(input)) > 50 {
		return fmt.Errorf("input too long: maximum 50 characters")
	}

	words := strings.Fields(input)
	if len(words) > 6 {
		return fmt.Errorf("search query too complex: maximum 6 words allowed")
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces, hyphens, apostrophes, periods and plus sign are allowed")
	}

	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateMedicineID validates opaque record identifiers
func (v *DataValidatorImpl) ValidateMedicineID(input string) error {
	if input == "" {
		return fmt.Errorf("id cannot be empty")
	}

	if len(input) > 64 {
		return fmt.Errorf("id too long: maximum 64 characters")
	}

	if !idRegex.MatchString(input) {
		return fmt.Errorf("id contains invalid characters. Only letters, digits, '_', '-', '.' and ':' are allowed")
	}

	return nil
}

// ValidateDay validates a YYYY-MM-DD day
// The regex rejects surrounding whitespace before time.Parse runs
func (v *DataValidatorImpl) ValidateDay(input string) (entities.Day, error) {
	if input == "" {
		return 0, fmt.Errorf("day cannot be empty")
	}

	if !dayRegex.MatchString(input) {
		return 0, fmt.Errorf("day must use the YYYY-MM-DD format")
	}

	day, err := entities.ParseDay(input)
	if err != nil {
		return 0, fmt.Errorf("day is not a valid calendar date")
	}

	return day, nil
}

// hasExcessiveRepetition checks for the same character repeated more than 10 times
func (v *DataValidatorImpl) hasExcessiveRepetition(input string) bool {
	runes := []rune(input)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run > 10 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

func memberIDs(group entities.Group) []string {
	ids := make([]string, 0, group.Size())
	for _, m := range group.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
