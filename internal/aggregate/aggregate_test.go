package aggregate

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlens/arv/internal/models"
	"github.com/fieldlens/arv/internal/review"
)

func writeVerdict(t *testing.T, dir string, v *models.Verdict) string {
	t.Helper()
	store := review.NewVerdictStore(dir)
	name, err := store.Save(v)
	require.NoError(t, err)
	return name
}

func verdict(imagePath, reviewer string, at time.Time) *models.Verdict {
	return &models.Verdict{
		ImagePath:      imagePath,
		Crop1:          "maize",
		Label1:         "rust",
		Crop2:          "maize",
		Label2:         "blight",
		ReviewerCrop:   "maize",
		ReviewerLabels: "rust, blight",
		Comments:       "ok",
		Reviewer:       reviewer,
		ReviewedAt:     models.ReviewTime{Time: at},
		Selected:       models.SourceB,
	}
}

func TestAggregate_SortedByImagePath(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()
	writeVerdict(t, dir, verdict("imgs/z.png", "alice", now))
	writeVerdict(t, dir, verdict("imgs/a.png", "bob", now))
	writeVerdict(t, dir, verdict("imgs/m.png", "alice", now))

	rows, err := Aggregate(dir)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "imgs/a.png", rows[0].ImagePath)
	assert.Equal(t, "imgs/m.png", rows[1].ImagePath)
	assert.Equal(t, "imgs/z.png", rows[2].ImagePath)

	assert.Equal(t, "maize", rows[0].OriginalCrop1)
	assert.Equal(t, "rust, blight", rows[0].ReviewerLabels)
	assert.Equal(t, "label2", rows[0].Selected)
	assert.Equal(t, "imgs_a.json", rows[0].SourceRecordName)
}

func TestAggregate_SkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()
	writeVerdict(t, dir, verdict("imgs/a.png", "alice", now))
	writeVerdict(t, dir, verdict("imgs/b.png", "bob", now))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{{{"), 0644))

	rows, err := Aggregate(dir)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestAggregate_AcceptsZonelessTimestamps(t *testing.T) {
	dir := t.TempDir()
	record := `{
		"image_path": "imgs/legacy.png",
		"crop1": "maize",
		"label1": "rust",
		"crop2": "maize",
		"label2": "blight",
		"reviewer_crop": "maize",
		"reviewer_labels": "rust",
		"comments": "",
		"reviewer_username": "alice",
		"review_timestamp": "2025-01-02T03:04:05.123456",
		"selected_annotation": "label1"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "imgs_legacy.json"), []byte(record), 0644))

	rows, err := Aggregate(dir)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "imgs/legacy.png", rows[0].ImagePath)
	assert.Equal(t, "2025-01-02T03:04:05.123456Z", rows[0].ReviewTimestamp)
}

func TestAggregate_EmptyDirectory(t *testing.T) {
	_, err := Aggregate(t.TempDir())
	require.ErrorIs(t, err, ErrNoVerdicts)
}

func TestAggregate_AllRecordsMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("not json"), 0644))

	// Indistinguishable from an empty directory: zero valid records.
	_, err := Aggregate(dir)
	require.ErrorIs(t, err, ErrNoVerdicts)
}

func TestAggregate_MissingDirectory(t *testing.T) {
	_, err := Aggregate(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoVerdicts)
}

func TestAggregate_IgnoresNonJSON(t *testing.T) {
	dir := t.TempDir()
	writeVerdict(t, dir, verdict("imgs/a.png", "alice", time.Now().UTC()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	rows, err := Aggregate(dir)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAggregate_Idempotent(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()
	writeVerdict(t, dir, verdict("imgs/b.png", "bob", now))
	writeVerdict(t, dir, verdict("imgs/a.png", "alice", now))

	first, err := Aggregate(dir)
	require.NoError(t, err)
	second, err := Aggregate(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	writeVerdict(t, dir, verdict("imgs/a.png", "alice", now))

	rows, err := Aggregate(dir)
	require.NoError(t, err)

	outPath := filepath.Join(dir, "final.csv")
	require.NoError(t, WriteCSV(rows, outPath))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{
		"image_path", "original_crop1", "original_label1", "original_crop2",
		"original_label2", "reviewer_crop", "reviewer_labels", "comments",
		"reviewer_username", "review_timestamp", "selected_annotation",
		"source_record_name",
	}, records[0])

	assert.Equal(t, "imgs/a.png", records[1][0])
	assert.Equal(t, "label2", records[1][10])
	assert.Equal(t, "imgs_a.json", records[1][11])
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	writeVerdict(t, dir, verdict("imgs/a.png", "alice", base))
	writeVerdict(t, dir, verdict("imgs/b.png", "bob", base.Add(time.Hour)))
	writeVerdict(t, dir, verdict("imgs/c.png", "alice", base.Add(2*time.Hour)))

	summary, err := Summarize(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, []string{"alice", "bob"}, summary.Reviewers)
	require.NotNil(t, summary.Latest)
	assert.Equal(t, "imgs/c.png", summary.Latest.ImagePath)
	assert.Equal(t, "alice", summary.Latest.Reviewer)
}

func TestSummarize_TimestampTieBreaksOnImagePath(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	writeVerdict(t, dir, verdict("imgs/z.png", "bob", at))
	writeVerdict(t, dir, verdict("imgs/a.png", "alice", at))

	summary, err := Summarize(dir)
	require.NoError(t, err)
	require.NotNil(t, summary.Latest)
	assert.Equal(t, "imgs/a.png", summary.Latest.ImagePath)
}

func TestSummarize_EmptyDirectory(t *testing.T) {
	summary, err := Summarize(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)
	assert.Empty(t, summary.Reviewers)
	assert.Nil(t, summary.Latest)
}
