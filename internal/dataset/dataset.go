// Package dataset reads the fixed table of paired crop-disease
// annotations that reviewers page through.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/fieldlens/arv/internal/models"
)

// Column layout of the dataset CSV.
const (
	colImagePath = iota
	colCrop1
	colLabel1
	colCrop2
	colLabel2
	numColumns
)

// Reader loads annotation pairs from a CSV file. It re-reads the file
// on every call so that external updates to the dataset are visible
// without a restart. The dataset itself is never written.
type Reader struct {
	Path string
}

// NewReader returns a Reader for the given CSV file.
func NewReader(path string) *Reader {
	return &Reader{Path: path}
}

// Load reads all annotation pairs from the backing file. The header row
// is skipped. Rows with too few columns are skipped rather than failing
// the whole load.
func (r *Reader) Load() ([]models.AnnotationPair, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1 // validated per row below

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", r.Path, err)
	}

	var pairs []models.AnnotationPair
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) < numColumns {
			continue
		}
		pairs = append(pairs, models.AnnotationPair{
			Index:     len(pairs),
			ImagePath: rec[colImagePath],
			A: models.Candidate{
				Crop:   rec[colCrop1],
				Labels: ParseLabels(rec[colLabel1]),
			},
			B: models.Candidate{
				Crop:   rec[colCrop2],
				Labels: ParseLabels(rec[colLabel2]),
			},
		})
	}
	return pairs, nil
}

// Len returns the number of annotation pairs currently in the backing
// file.
func (r *Reader) Len() (int, error) {
	pairs, err := r.Load()
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// ParseLabels decodes a label cell into an ordered, deduplicated label
// set. It accepts both plain comma-joined values ("rust, blight") and
// the legacy stringified-list form written by older exports
// ("['rust', 'blight']" or '["rust","blight"]'). Malformed input never
// fails: anything that cannot be decoded yields an empty set.
func ParseLabels(raw string) []string {
	cleaned := strings.Trim(strings.TrimSpace(raw), "[]'\"")
	if cleaned == "" {
		return nil
	}

	seen := make(map[string]bool)
	var labels []string
	for _, part := range strings.Split(cleaned, ",") {
		label := strings.Trim(strings.TrimSpace(part), "'\"")
		if label == "" || strings.Trim(label, "[]") == "" {
			continue
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}
