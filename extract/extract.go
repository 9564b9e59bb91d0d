// Package extract discovers the translatable strings of an RPG Maker MV
// project and records them into a strings file.
//
// The project's data directory is walked in a fixed order: map files
// (MapNNN.json), then the database files listed in DatabaseFiles, then the
// optional rmmvlt_misc.json. Each document is parsed once into a jsontree
// and handed to its Rule, which returns (text, context path) pairs.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rmmvlt/rmmvlt/jsontree"
	"github.com/rmmvlt/rmmvlt/lockfile"
	"github.com/rmmvlt/rmmvlt/transmap"
)

// Extractor records the strings of one project into a map.
type Extractor struct {
	// Root is the project root. Recorded file paths are relative to it.
	Root string
	// DataDir is the directory holding the game data files.
	DataDir string
	// Map receives the recorded strings.
	Map *transmap.Map
	// Lock, if set, receives the checksum of every document read.
	Lock *lockfile.LockFile
}

// FileReport is the outcome for one document.
type FileReport struct {
	File    string
	Strings int
}

// Failure is a document that could not be read or parsed.
type Failure struct {
	File string
	Err  error
}

// Report summarizes an extraction run.
type Report struct {
	Files   []FileReport
	Skipped []string
	Failed  []Failure
	// Seen holds every fingerprint recorded during the run, plus the
	// existing entries of documents that failed, so a broken document
	// never makes its strings look stale.
	Seen map[string]bool
}

// Strings returns the number of strings recorded.
func (r *Report) Strings() int {
	n := 0
	for _, f := range r.Files {
		n += f.Strings
	}
	return n
}

// OK reports whether every document present could be processed.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// FindMapFiles returns the MapNNN.json files of a data directory, sorted.
func FindMapFiles(dataDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "Map???.json"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		if _, ok := MapID(m); ok {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// MapID returns the three-digit id of a MapNNN.json file.
func MapID(path string) (string, bool) {
	name := filepath.Base(path)
	if len(name) != len("Map000.json") || !strings.HasPrefix(name, "Map") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	id := name[3:6]
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return "", false
		}
	}
	return id, true
}

// Run extracts every document of the project. A document that cannot be
// read or parsed is reported and skipped; the run continues with the rest.
func (x *Extractor) Run() *Report {
	r := &Report{Seen: make(map[string]bool)}

	maps, err := FindMapFiles(x.DataDir)
	if err != nil {
		r.Failed = append(r.Failed, Failure{File: x.DataDir, Err: err})
		x.keep(r, func(file string) bool {
			_, ok := MapID(file)
			return ok
		})
	}
	for _, path := range maps {
		id, _ := MapID(path)
		x.file(r, path, MapRule, &id)
	}

	for _, df := range DatabaseFiles {
		path := filepath.Join(x.DataDir, df.Name)
		if !fileExists(path) {
			r.Skipped = append(r.Skipped, x.rel(path))
			continue
		}
		x.file(r, path, df.Rule, nil)
	}

	if path := x.findMisc(); path != "" {
		x.file(r, path, MiscRule, nil)
	}

	failed := make(map[string]bool, len(r.Failed))
	for _, f := range r.Failed {
		failed[f.File] = true
	}
	x.keep(r, func(file string) bool { return failed[file] })

	return r
}

// keep marks the existing entries of the files matching failed as seen.
func (x *Extractor) keep(r *Report, failed func(file string) bool) {
	for _, fp := range x.Map.Fingerprints() {
		if e, _ := x.Map.Get(fp); failed(e.Context.File) {
			r.Seen[fp] = true
		}
	}
}

// findMisc looks for the misc file in the data directory, then the root.
func (x *Extractor) findMisc() string {
	for _, dir := range []string{x.DataDir, x.Root} {
		path := filepath.Join(dir, MiscFileName)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func (x *Extractor) file(r *Report, path string, rule Rule, mapID *string) {
	rel := x.rel(path)

	data, err := os.ReadFile(path)
	if err != nil {
		r.Failed = append(r.Failed, Failure{File: rel, Err: err})
		return
	}
	doc, err := jsontree.Parse(data)
	if err != nil {
		r.Failed = append(r.Failed, Failure{File: rel, Err: err})
		return
	}
	if x.Lock != nil {
		x.Lock.Record(rel, data)
	}

	found := rule(doc)
	for _, f := range found {
		fp := x.Map.Record(f.Text, transmap.Context{
			File:    rel,
			Path:    f.Path,
			EventID: f.EventID,
			MapID:   mapID,
		})
		r.Seen[fp] = true
	}
	r.Files = append(r.Files, FileReport{File: rel, Strings: len(found)})
}

// rel returns path relative to the project root with forward slashes.
func (x *Extractor) rel(path string) string {
	if rel, err := filepath.Rel(x.Root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// Errors joins the failures of a report into one error, or nil.
func (r *Report) Errors() error {
	var errs []error
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.File, f.Err))
	}
	return errors.Join(errs...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
