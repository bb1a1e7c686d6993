// Package review implements the reconciliation workflow: resolving an
// annotation pair for a session, seeding edits from a selected
// candidate, and persisting the reviewer's verdict.
package review

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldlens/arv/internal/catalog"
	"github.com/fieldlens/arv/internal/dataset"
	"github.com/fieldlens/arv/internal/models"
)

// NoLabels is the display rendering of an empty label set. An explicit
// marker keeps "genuinely empty" distinct from a field that was never
// filled in.
const NoLabels = "No labels"

var (
	// ErrIndexOutOfRange reports a view request outside the dataset.
	ErrIndexOutOfRange = errors.New("annotation index out of range")

	// ErrValidation reports a submit rejected before anything was
	// persisted.
	ErrValidation = errors.New("validation failed")
)

// Engine coordinates the dataset, catalog, and verdict store for one
// process. Engine itself is stateless; per-session state lives in the
// session, per-image write exclusion in the verdict store.
type Engine struct {
	dataset  *dataset.Reader
	catalog  *catalog.Catalog
	verdicts *VerdictStore
}

// NewEngine wires a review engine.
func NewEngine(ds *dataset.Reader, cat *catalog.Catalog, vs *VerdictStore) *Engine {
	return &Engine{dataset: ds, catalog: cat, verdicts: vs}
}

// Catalog exposes the label catalog for edit-mode choice lists.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// ViewResult is the resolved annotation pair plus its display strings.
type ViewResult struct {
	Pair     models.AnnotationPair
	Position string // e.g. "Annotation 3 of 120"
	LabelsA  string
	LabelsB  string
	Total    int
}

// View resolves the pair at index against a fresh dataset load. On
// success the session cursor moves to index; an out-of-range index
// returns ErrIndexOutOfRange and leaves the cursor unchanged.
func (e *Engine) View(session *models.ReviewSession, index int) (*ViewResult, error) {
	pairs, err := e.dataset.Load()
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if index < 0 || index >= len(pairs) {
		return nil, fmt.Errorf("%w: %d (dataset has %d annotations)", ErrIndexOutOfRange, index, len(pairs))
	}

	session.Cursor = index
	pair := pairs[index]
	return &ViewResult{
		Pair:     pair,
		Position: fmt.Sprintf("Annotation %d of %d", index+1, len(pairs)),
		LabelsA:  FormatLabels(pair.A.Labels),
		LabelsB:  FormatLabels(pair.B.Labels),
		Total:    len(pairs),
	}, nil
}

// Pair resolves the annotation pair at index against a fresh dataset
// load without touching any session state. Backs the read-only
// candidate preview, which must not reposition the session.
func (e *Engine) Pair(index int) (models.AnnotationPair, error) {
	pairs, err := e.dataset.Load()
	if err != nil {
		return models.AnnotationPair{}, fmt.Errorf("load dataset: %w", err)
	}
	if index < 0 || index >= len(pairs) {
		return models.AnnotationPair{}, fmt.Errorf("%w: %d (dataset has %d annotations)", ErrIndexOutOfRange, index, len(pairs))
	}
	return pairs[index], nil
}

// Select returns the chosen candidate of a pair. Pure: no session or
// store interaction, used both for read-only preview and to seed edits.
func Select(pair models.AnnotationPair, source models.SelectedSource) models.Candidate {
	if source == models.SourceB {
		return pair.B
	}
	return pair.A
}

// Draft is an in-progress reconciled annotation. Choice lists come from
// the catalog; with an empty catalog both lists are empty and the
// caller falls back to free-text entry.
type Draft struct {
	Crop         string
	Labels       []string
	CropChoices  []string
	IssueChoices []string

	catalog *catalog.Catalog
}

// BeginEdit seeds a draft from the currently selected candidate.
func (e *Engine) BeginEdit(crop string, labels []string) *Draft {
	return &Draft{
		Crop:         crop,
		Labels:       labels,
		CropChoices:  e.catalog.Crops(),
		IssueChoices: e.catalog.Issues(crop),
		catalog:      e.catalog,
	}
}

// SetCrop changes the draft's crop. The issue choices refresh for the
// new crop and the selected labels reset to empty: issues from a
// different crop must never survive a crop change.
func (d *Draft) SetCrop(crop string) {
	d.Crop = crop
	d.Labels = nil
	d.IssueChoices = d.catalog.Issues(crop)
}

// SubmitResult acknowledges a persisted verdict.
type SubmitResult struct {
	Reviewer   string
	RecordName string
}

// Submit validates the reconciled annotation, snapshots the pair at the
// session cursor, and persists the verdict keyed by image path. A
// verdict already on disk for that image is overwritten.
func (e *Engine) Submit(session *models.ReviewSession, source models.SelectedSource, crop string, labels []string, comments string) (*SubmitResult, error) {
	if strings.TrimSpace(crop) == "" {
		return nil, fmt.Errorf("%w: crop name is required", ErrValidation)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: at least one issue label is required", ErrValidation)
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown annotation selection %q", ErrValidation, source)
	}

	pairs, err := e.dataset.Load()
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if session.Cursor < 0 || session.Cursor >= len(pairs) {
		return nil, fmt.Errorf("%w: %d (dataset has %d annotations)", ErrIndexOutOfRange, session.Cursor, len(pairs))
	}
	pair := pairs[session.Cursor]

	verdict := &models.Verdict{
		ImagePath:      pair.ImagePath,
		Crop1:          pair.A.Crop,
		Label1:         strings.Join(pair.A.Labels, ", "),
		Crop2:          pair.B.Crop,
		Label2:         strings.Join(pair.B.Labels, ", "),
		ReviewerCrop:   strings.TrimSpace(crop),
		ReviewerLabels: strings.Join(labels, ", "),
		Comments:       comments,
		Reviewer:       session.Username,
		ReviewedAt:     models.ReviewTime{Time: time.Now().UTC()},
		Selected:       source,
	}

	name, err := e.verdicts.Save(verdict)
	if err != nil {
		return nil, fmt.Errorf("save verdict: %w", err)
	}
	return &SubmitResult{Reviewer: session.Username, RecordName: name}, nil
}

// Advance moves the session cursor by delta, clamped to the dataset
// bounds. There is no wraparound. Returns the new cursor.
func (e *Engine) Advance(session *models.ReviewSession, delta int) (int, error) {
	length, err := e.dataset.Len()
	if err != nil {
		return session.Cursor, fmt.Errorf("load dataset: %w", err)
	}
	if length == 0 {
		session.Cursor = 0
		return 0, nil
	}

	cursor := session.Cursor + delta
	if cursor < 0 {
		cursor = 0
	}
	if cursor > length-1 {
		cursor = length - 1
	}
	session.Cursor = cursor
	return cursor, nil
}

// FormatLabels renders a label set for display: comma-joined, with an
// explicit marker for the empty set.
func FormatLabels(labels []string) string {
	if len(labels) == 0 {
		return NoLabels
	}
	return strings.Join(labels, ", ")
}
