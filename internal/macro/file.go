package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// On-disk layout:
//
//	macros:
//	  enter_briefing:
//	    hz: 60
//	    entries:
//	      - {offset_us: 0, buttons: 4096, axes: {x: 16384, y: 16384, z: 0, rx: 16384, ry: 16384, rz: 0}}
//
// Raw recordings use source_entries instead of entries.

type macroFile struct {
	Macros map[string]*macroDoc `yaml:"macros"`
}

type macroDoc struct {
	Hz            int              `yaml:"hz"`
	Entries       []entryDoc       `yaml:"entries,omitempty"`
	SourceEntries []sourceEntryDoc `yaml:"source_entries,omitempty"`
}

type entryDoc struct {
	OffsetUS int64  `yaml:"offset_us"`
	Buttons  uint32 `yaml:"buttons"`
	Axes     Axes   `yaml:"axes"`
}

type sourceEntryDoc struct {
	OffsetUS    int64 `yaml:"offset_us"`
	SourceFrame `yaml:",inline"`
}

// Library holds the named macros available to the engine
type Library struct {
	recordings map[string]*Recording
	sources    map[string]*SourceRecording
}

// NewLibrary creates an empty library
func NewLibrary() *Library {
	return &Library{
		recordings: make(map[string]*Recording),
		sources:    make(map[string]*SourceRecording),
	}
}

// LoadLibrary reads a macro file. Macros stored only as source entries are
// translated on load.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read macro file: %w", err)
	}

	var file macroFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse macro file %s: %w", path, err)
	}

	lib := NewLibrary()
	for name, doc := range file.Macros {
		if doc == nil {
			return nil, fmt.Errorf("macro %q: empty definition", name)
		}
		if doc.Hz <= 0 {
			return nil, fmt.Errorf("macro %q: hz must be positive, got %d", name, doc.Hz)
		}

		if len(doc.SourceEntries) > 0 {
			src := &SourceRecording{Name: name, SampleRateHz: doc.Hz}
			for _, e := range doc.SourceEntries {
				src.Entries = append(src.Entries, SourceEntry{Offset: fromMicros(e.OffsetUS), Frame: e.SourceFrame})
			}
			if err := validateOffsets(name, sourceOffsets(src.Entries)); err != nil {
				return nil, err
			}
			lib.sources[name] = src
		}

		rec := &Recording{Name: name, SampleRateHz: doc.Hz}
		for _, e := range doc.Entries {
			rec.Entries = append(rec.Entries, Entry{
				Offset: fromMicros(e.OffsetUS),
				Frame:  Frame{Buttons: e.Buttons, Axes: e.Axes},
			})
		}
		if len(rec.Entries) == 0 && lib.sources[name] != nil {
			rec = TranslateRecording(lib.sources[name])
		}
		if err := validateOffsets(name, offsets(rec.Entries)); err != nil {
			return nil, err
		}
		lib.recordings[name] = rec
	}

	return lib, nil
}

// Add registers a translated recording
func (l *Library) Add(rec *Recording) error {
	if err := validateOffsets(rec.Name, offsets(rec.Entries)); err != nil {
		return err
	}
	l.recordings[rec.Name] = rec
	return nil
}

// AddSource registers a raw recording and its translation
func (l *Library) AddSource(src *SourceRecording) error {
	if err := validateOffsets(src.Name, sourceOffsets(src.Entries)); err != nil {
		return err
	}
	l.sources[src.Name] = src
	l.recordings[src.Name] = TranslateRecording(src)
	return nil
}

// DropSources forgets raw recordings so Save writes translated entries only
func (l *Library) DropSources() {
	l.sources = make(map[string]*SourceRecording)
}

// HasSource reports whether a raw recording is kept for name
func (l *Library) HasSource(name string) bool {
	_, ok := l.sources[name]
	return ok
}

// Get returns the recording for name
func (l *Library) Get(name string) (*Recording, bool) {
	rec, ok := l.recordings[name]
	return rec, ok
}

// Names returns macro names in sorted order
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.recordings))
	for name := range l.recordings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the library to path. Raw source entries are kept alongside
// translated entries when present.
func (l *Library) Save(path string) error {
	file := macroFile{Macros: make(map[string]*macroDoc, len(l.recordings))}
	for name, rec := range l.recordings {
		doc := &macroDoc{Hz: rec.SampleRateHz}
		for _, e := range rec.Entries {
			doc.Entries = append(doc.Entries, entryDoc{
				OffsetUS: e.Offset.Microseconds(),
				Buttons:  e.Frame.Buttons,
				Axes:     e.Frame.Axes,
			})
		}
		if src, ok := l.sources[name]; ok {
			for _, e := range src.Entries {
				doc.SourceEntries = append(doc.SourceEntries, sourceEntryDoc{
					OffsetUS:    e.Offset.Microseconds(),
					SourceFrame: e.Frame,
				})
			}
		}
		file.Macros[name] = doc
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to encode macros: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create macro directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write macro file: %w", err)
	}
	return nil
}

func fromMicros(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

func offsets(entries []Entry) []time.Duration {
	out := make([]time.Duration, len(entries))
	for i, e := range entries {
		out[i] = e.Offset
	}
	return out
}

func sourceOffsets(entries []SourceEntry) []time.Duration {
	out := make([]time.Duration, len(entries))
	for i, e := range entries {
		out[i] = e.Offset
	}
	return out
}

func validateOffsets(name string, offs []time.Duration) error {
	var prev time.Duration
	for i, off := range offs {
		if off < 0 {
			return fmt.Errorf("macro %q: entry %d has negative offset %s", name, i, off)
		}
		if off < prev {
			return fmt.Errorf("macro %q: entry %d offset %s precedes %s", name, i, off, prev)
		}
		prev = off
	}
	return nil
}
