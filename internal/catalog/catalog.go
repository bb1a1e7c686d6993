// Package catalog provides the static crop -> issue reference data used
// to populate edit-mode choice lists.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Catalog maps crop names to their known issues (issue id -> issue name).
// It is loaded once at startup and safe for unsynchronized concurrent
// reads. An empty catalog is valid: callers degrade to free-text editing.
type Catalog struct {
	crops map[string]map[string]string
}

// Load reads the catalog from a JSON file of the form
// {"maize": {"1": "rust", "2": "blight"}, ...}.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label catalog: %w", err)
	}

	var crops map[string]map[string]string
	if err := json.Unmarshal(data, &crops); err != nil {
		return nil, fmt.Errorf("parse label catalog %s: %w", path, err)
	}

	return &Catalog{crops: crops}, nil
}

// Empty returns a catalog with no crops. Used when the catalog source is
// missing or corrupt, which degrades editing rather than failing startup.
func Empty() *Catalog {
	return &Catalog{crops: map[string]map[string]string{}}
}

// Len returns the number of known crops.
func (c *Catalog) Len() int {
	return len(c.crops)
}

// Crops returns all crop names. The source file is a JSON object, so the
// names are sorted to give callers a stable order.
func (c *Catalog) Crops() []string {
	names := make([]string, 0, len(c.crops))
	for name := range c.crops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Issues returns the issue names for a crop, ordered by issue id.
// Unknown crops yield an empty slice.
func (c *Catalog) Issues(crop string) []string {
	issues, ok := c.crops[crop]
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(issues))
	for id := range issues {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, issues[id])
	}
	return names
}

// IssueName looks up a single issue name by crop and issue id.
// Returns "" if either is unknown.
func (c *Catalog) IssueName(crop, id string) string {
	issues, ok := c.crops[crop]
	if !ok {
		return ""
	}
	return issues[id]
}
