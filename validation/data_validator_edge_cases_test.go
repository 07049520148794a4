package validation

import (
	"strings"
	"testing"

	"github.com/giygas/medicament-rotations/entities"
)

func TestValidateInput(t *testing.T) {
	validator := NewDataValidator()

	testCases := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{"simple name", "Tester", false},
		{"with digits and spaces", "Morning 2", false},
		{"cyrillic", "Утро", false},
		{"apostrophe", "Kid's vitamins", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("a", 51), true},
		{"too many words", "a b c d e f g", true},
		{"script tag", "<script>alert(1)</script>", true},
		{"sql comment", "x -- y", true},
		{"path traversal", "../etc", true},
		{"invalid characters", "group#1", true},
		{"excessive repetition", "aaaaaaaaaaaa", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.ValidateInput(tc.input)
			if tc.shouldErr && err == nil {
				t.Errorf("Expected error for %q", tc.input)
			}
			if !tc.shouldErr && err != nil {
				t.Errorf("Unexpected error for %q: %v", tc.input, err)
			}
		})
	}
}

func TestValidateMedicineID(t *testing.T) {
	validator := NewDataValidator()

	testCases := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{"numeric", "1001", false},
		{"uuid", "5f0c3b0e-9a6e-4c1b-8f0e-2d6f1e0a9b7c", false},
		{"prefixed", "med:42", false},
		{"empty", "", true},
		{"space", "10 01", true},
		{"slash", "10/01", true},
		{"too long", strings.Repeat("1", 65), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.ValidateMedicineID(tc.input)
			if tc.shouldErr && err == nil {
				t.Errorf("Expected error for %q", tc.input)
			}
			if !tc.shouldErr && err != nil {
				t.Errorf("Unexpected error for %q: %v", tc.input, err)
			}
		})
	}
}

func TestValidateDay(t *testing.T) {
	validator := NewDataValidator()

	testCases := []struct {
		name      string
		input     string
		want      entities.Day
		shouldErr bool
	}{
		{"valid", "2025-08-06", entities.NewDay(2025, 8, 6), false},
		{"leap day", "2024-02-29", entities.NewDay(2024, 2, 29), false},
		{"empty", "", 0, true},
		{"surrounding space", " 2025-08-06", 0, true},
		{"wrong layout", "06/08/2025", 0, true},
		{"impossible date", "2025-02-30", 0, true},
		{"not a leap year", "2025-02-29", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := validator.ValidateDay(tc.input)
			if tc.shouldErr {
				if err == nil {
					t.Errorf("Expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}
