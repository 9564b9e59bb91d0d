// Package merge folds translations collected outside the strings file back
// into a translation map, and reports entries that a fresh extraction no
// longer produces.
package merge

import (
	"errors"
	"strings"

	"github.com/rmmvlt/rmmvlt/transmap"
)

// Translation is one translated text addressed by fingerprint.
type Translation struct {
	Fingerprint string
	Language    string
	Text        string
}

// Report summarizes an Apply call.
type Report struct {
	Applied int
	Empty   int
	// Unknown lists fingerprints with no entry in the map, in input order.
	Unknown []string
}

// Apply merges translations into m.
// - Empty (or whitespace-only) texts are skipped and counted.
// - Unknown fingerprints are listed and never create entries.
// - Later translations for the same fingerprint and language win.
func Apply(m *transmap.Map, ts []Translation) *Report {
	r := &Report{}
	for _, t := range ts {
		if strings.TrimSpace(t.Text) == "" {
			r.Empty++
			continue
		}
		err := m.MergeTranslation(strings.TrimSpace(t.Fingerprint), t.Language, t.Text)
		switch {
		case errors.Is(err, transmap.ErrUnknownFingerprint):
			r.Unknown = append(r.Unknown, t.Fingerprint)
		case err == nil:
			r.Applied++
		}
	}
	return r
}

// Stale returns, in sorted order, the fingerprints of m that are not in seen. An entry
// becomes stale when its source text was edited or removed from the game.
func Stale(m *transmap.Map, seen map[string]bool) []string {
	var out []string
	for _, fp := range m.Fingerprints() {
		if !seen[fp] {
			out = append(out, fp)
		}
	}
	return out
}
