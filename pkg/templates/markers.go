package templates

import (
	"context"
	"path/filepath"
	"strings"
)

// MarkerPrefix prefixes verification templates: marker-<macro name>.<ext>
const MarkerPrefix = "marker-"

// LoadMarkers loads the expected-outcome templates of dir keyed by the
// lower-cased macro name they verify. Files without the marker prefix are
// ignored.
func LoadMarkers(ctx context.Context, dir string) (map[string]*Template, error) {
	role := RoleMarker
	store, err := Load(ctx, dir, Options{Role: &role})
	if err != nil {
		return nil, err
	}

	markers := make(map[string]*Template)
	for _, id := range store.IDs() {
		name := strings.ToLower(id)
		if !strings.HasPrefix(name, MarkerPrefix) {
			continue
		}
		macro := strings.TrimSuffix(strings.TrimPrefix(name, MarkerPrefix), filepath.Ext(name))
		t, _ := store.Get(id)
		markers[macro] = t
	}
	return markers, nil
}
