package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldlens/arv/internal/aggregate"
	"github.com/fieldlens/arv/internal/output"
)

var statusSource string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a summary of the verdict directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		source := statusSource
		if source == "" {
			source = viper.GetString("output_dir")
		}
		return statusRun(source)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusSource, "source", "", "Verdict directory (default: configured output_dir)")
	rootCmd.AddCommand(statusCmd)
}

func statusRun(sourceDir string) error {
	summary, err := aggregate.Summarize(sourceDir)
	if err != nil {
		return err
	}

	if summary.Count == 0 {
		ui.Info("No reviews recorded in %s", sourceDir)
		return nil
	}

	table := ui.Table([]string{"", ""})
	_ = table.Append([]string{"Reviews", output.Green(strconv.Itoa(summary.Count))})
	_ = table.Append([]string{"Reviewers", strconv.Itoa(len(summary.Reviewers))})
	if summary.Latest != nil {
		_ = table.Append([]string{"Latest image", summary.Latest.ImagePath})
		_ = table.Append([]string{"Latest reviewer", output.Cyan(summary.Latest.Reviewer)})
		_ = table.Append([]string{"Latest at", summary.Latest.Timestamp.Format(time.RFC3339)})
	}
	_ = table.Render()
	return nil
}
