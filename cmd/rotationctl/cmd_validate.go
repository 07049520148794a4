package main

import (
	"fmt"
	"strings"

	"github.com/giygas/medicament-rotations/validation"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check group invariants and exit 1 on violations",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	batch, err := loadBatch(cmd)
	if err != nil {
		return err
	}

	validator := validation.NewDataValidator()
	violations := validator.ValidateBatch(batch)
	report := validator.ReportDataQuality(batch, violations)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Medicines: %d (%d grouped in %d groups)\n",
		report.TotalMedicines, report.GroupedMedicines, report.Groups)

	if len(violations) == 0 {
		fmt.Fprintln(out, "No violations")
		return nil
	}

	fmt.Fprintf(out, "Violations: %d\n", len(violations))
	for _, v := range violations {
		group := v.GroupID
		if group == "" {
			group = fmt.Sprintf("%q", v.GroupName)
		}
		fmt.Fprintf(out, "  %-24s %-10s %s", v.Kind, group, v.Detail)
		if len(v.MedicineIDs) > 0 {
			fmt.Fprintf(out, " [%s]", strings.Join(v.MedicineIDs, ", "))
		}
		fmt.Fprintln(out)
	}
	return errViolations
}
