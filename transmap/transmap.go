// Package transmap implements the strings file: the persisted mapping from
// fingerprint to original text, source location and per-language
// translations that connects extraction, the translator's spreadsheet and
// patching.
//
// The on-disk format is a JSON object:
//
//	{
//	  "3f9a0c1d2e4b5a67": {
//	    "original": "Hello",
//	    "context": {
//	      "file": "data/Map001.json",
//	      "path": "events.1.pages.0.list.1.parameters.0",
//	      "event_id": "1",
//	      "map_id": "001"
//	    },
//	    "translations": {"fr": "Bonjour"}
//	  }
//	}
//
// "event_id" and "map_id" are null when absent; "translations" is omitted
// until a language has been merged in.
package transmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rmmvlt/rmmvlt/fingerprint"
)

// ErrUnknownFingerprint is returned when merging into an entry that does not
// exist.
var ErrUnknownFingerprint = errors.New("fingerprint not found in map")

// Context locates an extracted string.
type Context struct {
	File    string  `json:"file"`
	Path    string  `json:"path"`
	EventID *string `json:"event_id"`
	MapID   *string `json:"map_id"`
}

// Entry is one extracted string.
type Entry struct {
	Original     string            `json:"original"`
	Context      Context           `json:"context"`
	Translations map[string]string `json:"translations,omitempty"`
}

// Patch is one write the patcher has to perform. Original is the text the
// entry was extracted from.
type Patch struct {
	File     string
	Path     string
	Text     string
	Original string
}

// FileGroup holds every patch for one document.
type FileGroup struct {
	File    string
	Patches []Patch
}

// Map is a strings file held in memory. It is owned by a single run and is
// not safe for concurrent mutation.
type Map struct {
	entries map[string]*Entry
}

// New returns an empty map.
func New() *Map {
	return &Map{entries: make(map[string]*Entry)}
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// ParseFile reads and parses a strings file.
func ParseFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse parses strings file data.
func Parse(data []byte) (*Map, error) {
	var raw map[string]*Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing strings file: %w", err)
	}

	m := New()
	for fp, e := range raw {
		if e == nil {
			return nil, fmt.Errorf("entry %s: null entry", fp)
		}
		if e.Context.File == "" || e.Context.Path == "" {
			return nil, fmt.Errorf("entry %s: missing context file or path", fp)
		}
		m.entries[fp] = e
	}
	return m, nil
}

// Marshal serializes the map with sorted keys and two-space indentation.
// Equal maps always produce identical bytes.
func (m *Map) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.entries); err != nil {
		return nil, fmt.Errorf("marshaling strings file: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes the map to path.
func (m *Map) WriteFile(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Recording and merging
// ---------------------------------------------------------------------------

// Record stores text found at ctx and returns its fingerprint. Recording
// the same text at the same context again overwrites the entry in place and
// keeps the translations already merged into it.
func (m *Map) Record(text string, ctx Context) string {
	fp := fingerprint.Of(text, ctx.File, ctx.Path, ctx.EventID, ctx.MapID)

	e := &Entry{
		Original: text,
		Context: Context{
			File:    ctx.File,
			Path:    ctx.Path,
			EventID: clone(ctx.EventID),
			MapID:   clone(ctx.MapID),
		},
	}
	if old, ok := m.entries[fp]; ok {
		e.Translations = old.Translations
	}
	m.entries[fp] = e
	return fp
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// MergeTranslation sets the lang translation of an entry. A later merge for
// the same language replaces the earlier one.
func (m *Map) MergeTranslation(fp, lang, text string) error {
	e, ok := m.entries[fp]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFingerprint, fp)
	}
	if e.Translations == nil {
		e.Translations = make(map[string]string)
	}
	e.Translations[lang] = text
	return nil
}

// Retain removes every entry whose fingerprint is not in keep and returns
// the number removed.
func (m *Map) Retain(keep map[string]bool) int {
	removed := 0
	for fp := range m.entries {
		if !keep[fp] {
			delete(m.entries, fp)
			removed++
		}
	}
	return removed
}

// ---------------------------------------------------------------------------
// Querying
// ---------------------------------------------------------------------------

// Get returns the entry for fp.
func (m *Map) Get(fp string) (*Entry, bool) {
	e, ok := m.entries[fp]
	return e, ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Fingerprints returns all fingerprints in sorted order.
func (m *Map) Fingerprints() []string {
	fps := make([]string, 0, len(m.entries))
	for fp := range m.entries {
		fps = append(fps, fp)
	}
	sort.Strings(fps)
	return fps
}

// Languages returns the sorted set of languages with at least one
// translation.
func (m *Map) Languages() []string {
	seen := make(map[string]bool)
	for _, e := range m.entries {
		for lang := range e.Translations {
			seen[lang] = true
		}
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Files returns the sorted set of source files referenced by the map.
func (m *Map) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, e := range m.entries {
		if !seen[e.Context.File] {
			seen[e.Context.File] = true
			files = append(files, e.Context.File)
		}
	}
	sort.Strings(files)
	return files
}

// Stats returns the number of entries and how many of them have a lang
// translation.
func (m *Map) Stats(lang string) (total, translated int) {
	total = len(m.entries)
	for _, e := range m.entries {
		if _, ok := e.Translations[lang]; ok {
			translated++
		}
	}
	return
}

// EntriesForLanguage returns one patch per entry translated into lang,
// ordered by file and then path.
func (m *Map) EntriesForLanguage(lang string) []Patch {
	var out []Patch
	for _, e := range m.entries {
		text, ok := e.Translations[lang]
		if !ok {
			continue
		}
		out = append(out, Patch{File: e.Context.File, Path: e.Context.Path, Text: text, Original: e.Original})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// GroupByFile returns the lang patches grouped per source file so each
// document can be loaded, patched and saved once.
func (m *Map) GroupByFile(lang string) []FileGroup {
	var groups []FileGroup
	for _, p := range m.EntriesForLanguage(lang) {
		if n := len(groups); n > 0 && groups[n-1].File == p.File {
			groups[n-1].Patches = append(groups[n-1].Patches, p)
			continue
		}
		groups = append(groups, FileGroup{File: p.File, Patches: []Patch{p}})
	}
	return groups
}
