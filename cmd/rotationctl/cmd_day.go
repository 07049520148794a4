package main

import (
	"fmt"
	"time"

	"github.com/giygas/medicament-rotations/entities"
	"github.com/giygas/medicament-rotations/normalizer"
	"github.com/giygas/medicament-rotations/status"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	dayDate   string
	dayFormat string
)

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Resolve the status of every medicine on a day",
	Long: `Normalizes the export in memory, then prints PENDING, TAKEN_TODAY or
NOT_SCHEDULED for every medicine on --date (default: today in --tz).`,
	Args: cobra.NoArgs,
	RunE: runDay,
}

func init() {
	dayCmd.Flags().StringVar(&dayDate, "date", "", "day to resolve as YYYY-MM-DD")
	dayCmd.Flags().StringVar(&dayFormat, "format", "text", "output format: text or yaml")
}

type dayEntry struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	GroupName  string          `yaml:"groupName,omitempty"`
	GroupOrder int             `yaml:"groupOrder,omitempty"`
	Status     entities.Status `yaml:"status"`
}

type dayView struct {
	Day     entities.Day            `yaml:"day"`
	Entries []dayEntry              `yaml:"entries"`
	Summary map[entities.Status]int `yaml:"summary"`
}

func runDay(cmd *cobra.Command, args []string) error {
	if dayFormat != "text" && dayFormat != "yaml" {
		return fmt.Errorf("unknown format %q (want text or yaml)", dayFormat)
	}
	loc, err := location()
	if err != nil {
		return err
	}

	day := entities.DayOf(time.Now().In(loc))
	if dayDate != "" {
		if day, err = entities.ParseDay(dayDate); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	batch, err := loadBatch(cmd)
	if err != nil {
		return err
	}
	// Statuses are only meaningful on a consistent batch
	batch = normalizer.Normalize(batch).Batch

	statuses := status.ResolveDay(batch, day, status.IntakesFromLastTaken(batch, loc))
	view := dayView{Day: day, Summary: status.Summarize(statuses)}
	for _, m := range batch {
		view.Entries = append(view.Entries, dayEntry{
			ID:         m.ID,
			Name:       m.Name,
			GroupName:  m.GroupName,
			GroupOrder: m.GroupOrder,
			Status:     statuses[m.ID],
		})
	}

	out := cmd.OutOrStdout()
	if dayFormat == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	fmt.Fprintf(out, "Day %s\n", view.Day)
	for _, e := range view.Entries {
		group := "-"
		if e.GroupName != "" {
			group = fmt.Sprintf("%s #%d", e.GroupName, e.GroupOrder)
		}
		fmt.Fprintf(out, "  %-14s %-20s %-16s %s\n", e.Status, e.Name, group, e.ID)
	}

	fmt.Fprint(out, "Summary:")
	for _, s := range entities.Statuses {
		fmt.Fprintf(out, " %s=%d", s, view.Summary[s])
	}
	fmt.Fprintln(out)
	return nil
}
