// Package main implements rotationctl, the operator CLI for medicine exports.
// It runs the normalizer, the validator and the day resolver against a
// medicines.json export without starting the service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/logging"
	"github.com/giygas/medicament-rotations/storage/filestore"
	"github.com/spf13/cobra"
)

var (
	inputPath string
	charset   string
	timezone  string
	logLevel  string
)

// errViolations makes validate exit with status 1 without a usage dump
var errViolations = errors.New("violations found")

var rootCmd = &cobra.Command{
	Use:   "rotationctl",
	Short: "Inspect and repair grouped medicine rotations",
	Long: `rotationctl reads a medicines.json export, detects fragmented rotation
groups, validates group invariants and resolves per-day statuses.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Init(logging.Options{Level: logLevel, Console: cmd.ErrOrStderr()})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&inputPath, "in", "", "medicines.json export to read")
	rootCmd.PersistentFlags().StringVar(&charset, "charset", "", "charset of a non UTF-8 export (default: detect)")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "Local", "timezone that days roll over in")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	_ = rootCmd.MarkPersistentFlagRequired("in")

	rootCmd.AddCommand(normalizeCmd, validateCmd, reportCmd, dayCmd)
}

func location() (*time.Location, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

func storeOptions() ([]filestore.Option, error) {
	loc, err := location()
	if err != nil {
		return nil, err
	}
	return []filestore.Option{filestore.WithLocation(loc), filestore.WithCharset(charset)}, nil
}

// loadBatch reads the schedulable medicines of the export
func loadBatch(cmd *cobra.Command) ([]entities.Medicine, error) {
	opts, err := storeOptions()
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return filestore.New(inputPath, opts...).LoadBatch(ctx)
}

func main() {
	err := rootCmd.Execute()
	_ = logging.Close()

	switch {
	case err == nil:
	case errors.Is(err, errViolations):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
