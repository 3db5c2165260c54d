package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"jordanella.com/seed-finder-go/internal/cv"
)

// Store indexes the reference images of an asset directory by file name
type Store struct {
	templates map[string]*Template
}

// Options control how a directory is scanned
type Options struct {
	// StateTokens is the closed state vocabulary used to associate files with states
	StateTokens []string
	// Role, when set, overrides file name role derivation (used for catalogs and markers)
	Role *Role
	// Workers bounds concurrent decoding; 0 means GOMAXPROCS
	Workers int
}

// NewStore creates an empty template store
func NewStore() *Store {
	return &Store{templates: make(map[string]*Template)}
}

// Load scans dir (non-recursive) and decodes every image file in it.
// Any file that fails to decode aborts the load with a *LoadError.
func Load(ctx context.Context, dir string, opts Options) (*Store, error) {
	store := NewStore()
	if err := store.LoadDirectory(ctx, dir, opts); err != nil {
		return nil, err
	}
	return store, nil
}

// LoadDirectory adds all images in dir to the store
func (s *Store) LoadDirectory(ctx context.Context, dir string, opts Options) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &LoadError{Path: dir, Err: err}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !cv.IsImageFile(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}

	loaded := make([]*Template, len(files))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			img, err := cv.DecodeFile(path)
			if err != nil {
				return &LoadError{Path: path, Err: err}
			}

			c := Classify(name, opts.StateTokens)
			if opts.Role != nil {
				c.Role = *opts.Role
			}
			loaded[i] = &Template{
				ID:    name,
				Path:  path,
				Role:  c.Role,
				State: c.State,
				Group: c.Group,
				Image: img,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, t := range loaded {
		if err := s.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Register adds a template to the store programmatically
func (s *Store) Register(t *Template) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	if t.Image == nil {
		return &LoadError{Path: t.ID, Err: cv.ErrInvalidImage}
	}
	if _, exists := s.templates[t.ID]; exists {
		return fmt.Errorf("template %q registered twice", t.ID)
	}
	s.templates[t.ID] = t
	return nil
}

// Get retrieves a template by id
func (s *Store) Get(id string) (*Template, bool) {
	t, ok := s.templates[id]
	return t, ok
}

// IDs returns all template ids in lexicographic order
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of templates in the store
func (s *Store) Count() int {
	return len(s.templates)
}

// ByRole returns templates with the given role, sorted by id
func (s *Store) ByRole(role Role) []*Template {
	return s.filter(func(t *Template) bool { return t.Role == role })
}

// Indicators returns every state indicator, sorted by id
func (s *Store) Indicators() []*Template {
	return s.ByRole(RoleIndicator)
}

// ForState returns the non-indicator templates associated with a state token
func (s *Store) ForState(token string) []*Template {
	return s.filter(func(t *Template) bool {
		return t.State == token && t.Role != RoleIndicator
	})
}

func (s *Store) filter(keep func(*Template) bool) []*Template {
	var out []*Template
	for _, id := range s.IDs() {
		if t := s.templates[id]; keep(t) {
			out = append(out, t)
		}
	}
	return out
}
