package main

import (
	"fmt"
	"io"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/normalizer"
	"github.com/giygas/medicament-rotations/storage/filestore"
	"github.com/spf13/cobra"
)

var outputPath string

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Merge fragmented groups and print the patches",
	Long: `Collapses every group name that maps to several group ids into one
canonical group and prints the resulting merges and patches. With --out the
repaired export is written to a new file; the input is never modified.`,
	Args: cobra.NoArgs,
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&outputPath, "out", "", "write the repaired export here")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	batch, err := loadBatch(cmd)
	if err != nil {
		return err
	}

	result := normalizer.Normalize(batch)
	out := cmd.OutOrStdout()

	if !result.Changed() {
		fmt.Fprintln(out, "No fragmented groups found")
		return nil
	}
	printMerges(out, result.Merges)
	printPatches(out, result.Patches)

	if outputPath == "" {
		return nil
	}
	opts, err := storeOptions()
	if err != nil {
		return err
	}
	if err := filestore.WriteBatch(inputPath, outputPath, result.Batch, opts...); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nRepaired export written to %s\n", outputPath)
	return nil
}

func printMerges(out io.Writer, merges []entities.Merge) {
	fmt.Fprintf(out, "Merged groups: %d\n", len(merges))
	for _, m := range merges {
		fmt.Fprintf(out, "  %q: %v -> %s (start %s, %d members)\n",
			m.GroupName, m.MergedIDs, m.CanonicalID, m.CanonicalStart, len(m.MemberIDs))
	}
}

func printPatches(out io.Writer, patches []entities.Patch) {
	fmt.Fprintf(out, "Patches: %d\n", len(patches))
	for _, p := range patches {
		fmt.Fprintf(out, "  %s: group %s -> %s, order %d -> %d, start %s -> %s\n",
			p.MedicineID,
			p.Before.GroupID, p.After.GroupID,
			p.Before.GroupOrder, p.After.GroupOrder,
			p.Before.GroupStartDate, p.After.GroupStartDate)
	}
}
