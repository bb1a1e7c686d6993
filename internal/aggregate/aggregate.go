// Package aggregate consolidates persisted verdict records into one
// table for downstream analysis.
package aggregate

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fieldlens/arv/internal/models"
)

// ErrNoVerdicts reports that a scan found zero valid verdict records.
// An empty directory and a directory of only malformed records both
// surface this way.
var ErrNoVerdicts = errors.New("no verdict records to aggregate")

// csvHeader is the column order of the consolidated table.
var csvHeader = []string{
	"image_path",
	"original_crop1",
	"original_label1",
	"original_crop2",
	"original_label2",
	"reviewer_crop",
	"reviewer_labels",
	"comments",
	"reviewer_username",
	"review_timestamp",
	"selected_annotation",
	"source_record_name",
}

// Aggregate scans dir (non-recursive) for verdict records and returns
// the consolidated rows sorted by image path. A malformed record is
// logged and skipped; the run fails only when no valid record remains.
// Rebuilt fully each run, so the result is independent of filesystem
// enumeration order and of prior runs.
func Aggregate(dir string) ([]models.ConsolidatedRow, error) {
	files, err := listRecords(dir)
	if err != nil {
		return nil, err
	}

	var rows []models.ConsolidatedRow
	for _, path := range files {
		v, err := readRecord(path)
		if err != nil {
			slog.Warn("skipping malformed verdict record", "file", path, "error", err)
			continue
		}
		rows = append(rows, models.ConsolidatedRow{
			ImagePath:        v.ImagePath,
			OriginalCrop1:    v.Crop1,
			OriginalLabel1:   v.Label1,
			OriginalCrop2:    v.Crop2,
			OriginalLabel2:   v.Label2,
			ReviewerCrop:     v.ReviewerCrop,
			ReviewerLabels:   v.ReviewerLabels,
			Comments:         v.Comments,
			Reviewer:         v.Reviewer,
			ReviewTimestamp:  v.ReviewedAt.Format(time.RFC3339Nano),
			Selected:         string(v.Selected),
			SourceRecordName: filepath.Base(path),
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoVerdicts
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ImagePath < rows[j].ImagePath
	})
	return rows, nil
}

// WriteCSV writes the consolidated table to path, replacing any
// existing file.
func WriteCSV(rows []models.ConsolidatedRow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create consolidated output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.ImagePath,
			row.OriginalCrop1,
			row.OriginalLabel1,
			row.OriginalCrop2,
			row.OriginalLabel2,
			row.ReviewerCrop,
			row.ReviewerLabels,
			row.Comments,
			row.Reviewer,
			row.ReviewTimestamp,
			row.Selected,
			row.SourceRecordName,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row for %s: %w", row.ImagePath, err)
		}
	}
	w.Flush()
	return w.Error()
}

// LatestVerdict identifies the most recent verdict in a summary.
type LatestVerdict struct {
	ImagePath string
	Reviewer  string
	Timestamp time.Time
}

// Summary is a read-only diagnostic view over a verdict directory.
type Summary struct {
	Count     int
	Reviewers []string
	Latest    *LatestVerdict
}

// Summarize scans dir and reports the verdict count, the distinct
// reviewer identities (sorted), and the most recent verdict. Equal
// timestamps break ties lexicographically on image path so the result
// is deterministic. Independent of Aggregate: it tolerates an empty
// directory and returns a zero-count summary.
func Summarize(dir string) (*Summary, error) {
	files, err := listRecords(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	reviewers := make(map[string]bool)
	for _, path := range files {
		v, err := readRecord(path)
		if err != nil {
			slog.Warn("skipping malformed verdict record", "file", path, "error", err)
			continue
		}
		summary.Count++
		if v.Reviewer != "" {
			reviewers[v.Reviewer] = true
		}
		if isLater(v, summary.Latest) {
			summary.Latest = &LatestVerdict{
				ImagePath: v.ImagePath,
				Reviewer:  v.Reviewer,
				Timestamp: v.ReviewedAt.Time,
			}
		}
	}

	for name := range reviewers {
		summary.Reviewers = append(summary.Reviewers, name)
	}
	sort.Strings(summary.Reviewers)
	return summary, nil
}

func isLater(v *models.Verdict, current *LatestVerdict) bool {
	if current == nil {
		return true
	}
	if !v.ReviewedAt.Equal(current.Timestamp) {
		return v.ReviewedAt.After(current.Timestamp)
	}
	return v.ImagePath < current.ImagePath
}

func listRecords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read verdict directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

func readRecord(path string) (*models.Verdict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v models.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if v.ImagePath == "" {
		return nil, errors.New("missing image_path")
	}
	return &v, nil
}
