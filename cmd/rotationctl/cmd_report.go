package main

import (
	"fmt"

	"github.com/giygas/medicament-rotations/normalizer"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print every named group with its ids, orders and start dates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := loadBatch(cmd)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), normalizer.Report(batch))
		return nil
	},
}
