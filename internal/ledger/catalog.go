// Package ledger catalogs every distinct screen seen per tracked area and
// records which variant appeared in each attempt.
package ledger

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"jordanella.com/seed-finder-go/internal/cv"
	"jordanella.com/seed-finder-go/internal/logging"
	"jordanella.com/seed-finder-go/pkg/templates"
)

// MistakeToken marks history images that indicate a failed macro
const MistakeToken = "macro_mistake"

// indexPattern recovers the entry index from "<area>-<index>.<ext>"
var indexPattern = regexp.MustCompile(`-(\d+)\.`)

// Entry is one catalogued screen
type Entry struct {
	Area  string
	Index int
	Path  string
	Image *image.RGBA
}

// Catalog holds the known screens per area. Indices per area only grow:
// the next index is one past the largest ever loaded or written.
type Catalog struct {
	dir      string
	areas    []string
	entries  map[string][]*Entry
	next     map[string]int
	mistakes []*templates.Template
	logger   *logging.Logger
}

// NewCatalog creates an empty catalog writing into dir
func NewCatalog(dir string, areas []string) *Catalog {
	c := &Catalog{
		dir:     dir,
		areas:   append([]string(nil), areas...),
		entries: make(map[string][]*Entry),
		next:    make(map[string]int),
		logger:  logging.NewLogger("Catalog"),
	}
	for _, a := range areas {
		c.next[a] = 0
	}
	return c
}

// LoadCatalog reads every history image in dir
func LoadCatalog(ctx context.Context, dir string, areas []string) (*Catalog, error) {
	c := NewCatalog(dir, areas)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	role := templates.RoleCatalogEntry
	store, err := templates.Load(ctx, dir, templates.Options{Role: &role})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	for _, id := range store.IDs() {
		t, _ := store.Get(id)
		lower := strings.ToLower(id)

		if strings.Contains(lower, MistakeToken) {
			c.mistakes = append(c.mistakes, t)
			continue
		}

		area := c.areaOf(lower)
		if area == "" {
			continue
		}

		m := indexPattern.FindStringSubmatch(id)
		if m == nil {
			c.logger.WarnWithContext("Skipping history image without index", map[string]interface{}{"file": id})
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			c.logger.WarnWithContext("Skipping history image with bad index", map[string]interface{}{"file": id})
			continue
		}

		c.insert(&Entry{Area: area, Index: idx, Path: t.Path, Image: t.Image})
	}

	c.logger.InfoWithContext("Catalog loaded", map[string]interface{}{
		"dir":      dir,
		"entries":  c.Len(),
		"mistakes": len(c.mistakes),
	})
	return c, nil
}

func (c *Catalog) areaOf(lowerID string) string {
	for _, a := range c.areas {
		if strings.Contains(lowerID, a) {
			return a
		}
	}
	return ""
}

func (c *Catalog) insert(e *Entry) {
	list := append(c.entries[e.Area], e)
	sort.Slice(list, func(i, j int) bool { return list[i].Index < list[j].Index })
	c.entries[e.Area] = list
	if e.Index+1 > c.next[e.Area] {
		c.next[e.Area] = e.Index + 1
	}
}

// Add persists frame as the next entry for area and registers it
func (c *Catalog) Add(area string, frame *image.RGBA) (*Entry, error) {
	if !c.Tracks(area) {
		return nil, fmt.Errorf("area %q is not tracked", area)
	}

	idx := c.next[area]
	path := filepath.Join(c.dir, fmt.Sprintf("%s-%d.bmp", area, idx))
	if err := cv.WriteBMP(path, frame); err != nil {
		return nil, fmt.Errorf("failed to save catalog entry: %w", err)
	}

	e := &Entry{Area: area, Index: idx, Path: path, Image: frame}
	c.insert(e)
	return e, nil
}

// Entries returns the entries for area in index order
func (c *Catalog) Entries(area string) []*Entry {
	return c.entries[area]
}

// Mistakes returns the mistake templates found in the history directory
func (c *Catalog) Mistakes() []*templates.Template {
	return c.mistakes
}

// NextIndex returns the index the next new entry for area will get
func (c *Catalog) NextIndex(area string) int {
	return c.next[area]
}

// Tracks reports whether area is a tracked area key
func (c *Catalog) Tracks(area string) bool {
	_, ok := c.next[area]
	return ok
}

// Areas returns the tracked area keys in column order
func (c *Catalog) Areas() []string {
	return append([]string(nil), c.areas...)
}

// Len returns the number of entries across all areas
func (c *Catalog) Len() int {
	n := 0
	for _, list := range c.entries {
		n += len(list)
	}
	return n
}
