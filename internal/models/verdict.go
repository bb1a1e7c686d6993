package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SelectedSource identifies which candidate annotation the reviewer
// started from. The wire values match the legacy record format.
type SelectedSource string

const (
	SourceA SelectedSource = "label1"
	SourceB SelectedSource = "label2"
)

// Valid reports whether s is one of the two known sources.
func (s SelectedSource) Valid() bool {
	return s == SourceA || s == SourceB
}

// ReviewTime is a verdict timestamp. It marshals as RFC 3339 and
// additionally accepts the zone-less ISO 8601 form found in records
// written by earlier versions of the tool, which carried no UTC offset.
type ReviewTime struct {
	time.Time
}

var reviewTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *ReviewTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range reviewTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized review timestamp %q", s)
}

// Verdict is the reconciled outcome of reviewing one annotation pair.
// Exactly one verdict exists per image; a resubmission replaces the
// prior record wholesale.
//
// The JSON field names are a compatibility surface shared with the
// aggregator and with records produced by earlier versions of the
// tool. Do not rename them.
type Verdict struct {
	ImagePath      string         `json:"image_path"`
	Crop1          string         `json:"crop1"`
	Label1         string         `json:"label1"`
	Crop2          string         `json:"crop2"`
	Label2         string         `json:"label2"`
	ReviewerCrop   string         `json:"reviewer_crop"`
	ReviewerLabels string         `json:"reviewer_labels"`
	Comments       string         `json:"comments"`
	Reviewer       string         `json:"reviewer_username"`
	ReviewedAt     ReviewTime     `json:"review_timestamp"`
	Selected       SelectedSource `json:"selected_annotation"`
}

// ConsolidatedRow is one row of the aggregated output table.
type ConsolidatedRow struct {
	ImagePath        string
	OriginalCrop1    string
	OriginalLabel1   string
	OriginalCrop2    string
	OriginalLabel2   string
	ReviewerCrop     string
	ReviewerLabels   string
	Comments         string
	Reviewer         string
	ReviewTimestamp  string
	Selected         string
	SourceRecordName string
}
