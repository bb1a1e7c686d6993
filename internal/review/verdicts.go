package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fieldlens/arv/internal/models"
)

// imageExtensions are stripped from the derived record name. Matching is
// case-insensitive.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tiff"}

// RecordName derives the verdict filename for an image path: path
// separators become underscores, a known image extension is dropped,
// and ".json" is appended. The aggregator relies on the same mapping
// to relate records back to images.
//
// The mapping is not guaranteed collision-free (distinct paths can
// collapse to the same name); a collision silently overwrites, matching
// the overwrite semantics for resubmission of the same image.
func RecordName(imagePath string) string {
	name := strings.ReplaceAll(imagePath, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	return name + ".json"
}

// VerdictStore persists one JSON record per reviewed image. A record is
// replaced wholesale on resubmission; writes for the same image
// serialize through a per-record lock, and each write lands via a
// temp-file rename so a record is never observed half-written.
type VerdictStore struct {
	Dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewVerdictStore creates a store writing into dir. The directory is
// created on first write.
func NewVerdictStore(dir string) *VerdictStore {
	return &VerdictStore{Dir: dir, locks: make(map[string]*sync.Mutex)}
}

// Save writes (or overwrites) the verdict record for v.ImagePath and
// returns the record's base filename.
func (s *VerdictStore) Save(v *models.Verdict) (string, error) {
	name := RecordName(v.ImagePath)

	lock := s.recordLock(name)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode verdict: %w", err)
	}

	target := filepath.Join(s.Dir, name)
	tmp, err := os.CreateTemp(s.Dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp record: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write verdict record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("replace verdict record: %w", err)
	}
	return name, nil
}

func (s *VerdictStore) recordLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}
