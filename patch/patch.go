// Package patch writes translations from a strings file back into the game
// data files they were extracted from.
//
// Patches are grouped by file: every document is loaded once, receives all
// of its writes in memory and is saved once. A write that fails to resolve
// aborts that document before anything is saved, and the run moves on to
// the next file.
//
// A write only lands on a value that still holds the entry's original text
// (or its translation, from an earlier run). Any other value means the
// entry no longer describes the document; the write is skipped and
// reported.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rmmvlt/rmmvlt/jsontree"
	"github.com/rmmvlt/rmmvlt/lockfile"
	"github.com/rmmvlt/rmmvlt/transmap"
	"github.com/rmmvlt/rmmvlt/treepath"
)

// ErrChangedSinceExtract is returned by a strict FileStore for a document
// that was modified after the strings were extracted from it.
var ErrChangedSinceExtract = errors.New("document changed since extraction")

// ErrNotRecorded is returned by a strict FileStore for a document that has
// no checksum in the lock file.
var ErrNotRecorded = errors.New("document has no recorded checksum")

// Store loads and saves documents by their project-relative path.
type Store interface {
	Load(file string) (*jsontree.Value, error)
	Save(file string, doc *jsontree.Value) error
}

// Applier writes text at path inside doc.
type Applier func(doc *jsontree.Value, path, text string) error

// Reader returns the text at path inside doc.
type Reader func(doc *jsontree.Value, path string) (string, error)

// Patcher applies the translations of one language to a project.
type Patcher struct {
	Store Store
	// ApplierFor picks the applier for a file. Nil means treepath.SetString
	// for every file.
	ApplierFor func(file string) Applier
	// ReaderFor picks the reader used to check a value before it is
	// overwritten. Nil means treepath.GetString for every file.
	ReaderFor func(file string) Reader
}

// FileResult is the outcome for one document.
type FileResult struct {
	File string
	// Patches is the number of writes applied.
	Patches int
	// Skipped holds the writes whose target no longer holds the original
	// text.
	Skipped []transmap.Patch
	Err     error
}

// Result summarizes a patch run.
type Result struct {
	Files []FileResult
}

// Patched returns the number of documents saved.
func (r *Result) Patched() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the documents that could not be patched.
func (r *Result) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Skipped returns every write skipped because its target changed.
func (r *Result) Skipped() []transmap.Patch {
	var out []transmap.Patch
	for _, f := range r.Files {
		out = append(out, f.Skipped...)
	}
	return out
}

// OK reports whether every document was patched.
func (r *Result) OK() bool {
	return len(r.Failed()) == 0
}

// Run patches every document that has a lang translation in m.
func (p *Patcher) Run(m *transmap.Map, lang string) *Result {
	r := &Result{}
	for _, g := range m.GroupByFile(lang) {
		r.Files = append(r.Files, p.file(g))
	}
	return r
}

func (p *Patcher) file(g transmap.FileGroup) FileResult {
	fr := FileResult{File: g.File}

	apply := Applier(treepath.SetString)
	if p.ApplierFor != nil {
		if a := p.ApplierFor(g.File); a != nil {
			apply = a
		}
	}
	read := Reader(treepath.GetString)
	if p.ReaderFor != nil {
		if rd := p.ReaderFor(g.File); rd != nil {
			read = rd
		}
	}

	doc, err := p.Store.Load(g.File)
	if err != nil {
		fr.Err = err
		return fr
	}
	for _, patch := range g.Patches {
		cur, err := read(doc, patch.Path)
		if err != nil {
			fr.Err = err
			return fr
		}
		if cur != patch.Original && cur != patch.Text {
			fr.Skipped = append(fr.Skipped, patch)
			continue
		}
		if err := apply(doc, patch.Path, patch.Text); err != nil {
			fr.Err = err
			return fr
		}
		fr.Patches++
	}
	fr.Err = p.Store.Save(g.File, doc)
	return fr
}

// ---------------------------------------------------------------------------
// File store
// ---------------------------------------------------------------------------

// FileStore reads and writes documents under a project root.
type FileStore struct {
	Root string
	// Indent is used when re-serializing; empty writes compact JSON.
	Indent string
	// Lock, if set, makes the store strict: a document whose checksum
	// differs from the recorded one, or that has none, is refused, and
	// saved documents have their checksum updated.
	Lock *lockfile.LockFile
}

func (s *FileStore) path(file string) string {
	return filepath.Join(s.Root, filepath.FromSlash(file))
}

// Load reads and parses a document.
func (s *FileStore) Load(file string) (*jsontree.Value, error) {
	data, err := os.ReadFile(s.path(file))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	if s.Lock != nil {
		known, ok := s.Lock.Verify(file, data)
		if !known {
			return nil, fmt.Errorf("%s: %w", file, ErrNotRecorded)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", file, ErrChangedSinceExtract)
		}
	}
	doc, err := jsontree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return doc, nil
}

// Save serializes and writes a document.
func (s *FileStore) Save(file string, doc *jsontree.Value) error {
	data, err := jsontree.Marshal(doc, s.Indent)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", file, err)
	}
	path := s.path(file)
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, data) {
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	if s.Lock != nil {
		s.Lock.Record(file, data)
	}
	return nil
}
