package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldlens/arv/internal/aggregate"
	"github.com/fieldlens/arv/internal/models"
	"github.com/fieldlens/arv/internal/output"
)

var (
	aggregateOut    string
	aggregateSource string
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Consolidate all verdict records into one CSV",
	Long: `Scan the verdict directory, stitch every valid record into a single
CSV sorted by image path, and print a summary.

Malformed records are skipped with a warning. The run fails only when
no valid record is found at all.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source := aggregateSource
		if source == "" {
			source = viper.GetString("output_dir")
		}
		return aggregateRun(source, aggregateOut)
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateOut, "out", "final_annotations.csv", "Consolidated CSV destination")
	aggregateCmd.Flags().StringVar(&aggregateSource, "source", "", "Verdict directory (default: configured output_dir)")
	rootCmd.AddCommand(aggregateCmd)
}

func aggregateRun(sourceDir, outPath string) error {
	rows, err := aggregate.Aggregate(sourceDir)
	if err != nil {
		if errors.Is(err, aggregate.ErrNoVerdicts) {
			return fmt.Errorf("nothing to aggregate in %s", sourceDir)
		}
		return err
	}

	if ui.Verbose {
		printRows(rows)
	}

	if dryRun {
		ui.DryRunMsg("Would write %d rows to %s", len(rows), outPath)
		return nil
	}

	if err := aggregate.WriteCSV(rows, outPath); err != nil {
		return err
	}
	ui.Success("Wrote %d reviews to %s", len(rows), outPath)

	summary, err := aggregate.Summarize(sourceDir)
	if err != nil {
		return err
	}
	printSummary(summary)
	return nil
}

func printRows(rows []models.ConsolidatedRow) {
	table := ui.Table([]string{"Image", "Reviewer", "Selected"})
	for _, row := range rows {
		_ = table.Append([]string{row.ImagePath, row.Reviewer, output.SourceColor(row.Selected)})
	}
	_ = table.Render()
}

func printSummary(summary *aggregate.Summary) {
	ui.Info("Total reviews: %d", summary.Count)
	if len(summary.Reviewers) > 0 {
		table := ui.Table([]string{"Reviewer"})
		for _, name := range summary.Reviewers {
			_ = table.Append([]string{name})
		}
		_ = table.Render()
	}
	if summary.Latest != nil {
		ui.Info("Latest review: %s by %s at %s",
			summary.Latest.ImagePath,
			summary.Latest.Reviewer,
			summary.Latest.Timestamp.Format(time.RFC3339))
	}
}
