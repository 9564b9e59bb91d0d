package pofile

import (
	"fmt"
	"strings"
	"time"

	"github.com/rmmvlt/rmmvlt/merge"
	"github.com/rmmvlt/rmmvlt/sheet"
	"github.com/rmmvlt/rmmvlt/transmap"
)

// fingerprintSep joins the fingerprints of a message in its msgctxt.
const fingerprintSep = ";"

// Export builds a lang catalog of m. Entries sharing an original text
// become one message whose msgctxt lists their fingerprints; the context
// labels go to an extracted comment and the source files to references.
func Export(m *transmap.Map, lang string) *File {
	f := NewFile()
	f.Header.MsgStr = "Project-Id-Version: rmmvlt\n" +
		"PO-Revision-Date: " + time.Now().UTC().Format("2006-01-02 15:04+0000") + "\n" +
		"Language: " + lang + "\n" +
		"MIME-Version: 1.0\n" +
		"Content-Type: text/plain; charset=UTF-8\n" +
		"Content-Transfer-Encoding: 8bit\n"

	for _, row := range sheet.Rows(m, lang) {
		e := &Entry{
			ExtractedComments: []string{row.ContextSummary()},
			MsgCtxt:           strings.Join(row.Fingerprints, fingerprintSep),
			MsgID:             row.Original,
			MsgStr:            row.Translation,
		}
		seen := make(map[string]bool)
		for _, fp := range row.Fingerprints {
			entry, _ := m.Get(fp)
			if !seen[entry.Context.File] {
				seen[entry.Context.File] = true
				e.References = append(e.References, entry.Context.File)
			}
		}
		f.Entries = append(f.Entries, e)
	}
	return f
}

// ExportFile writes the lang catalog of m to path and returns the number
// of messages.
func ExportFile(m *transmap.Map, lang, path string) (int, error) {
	f := Export(m, lang)
	if err := f.WriteFile(path); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return len(f.Entries), nil
}

// Translations returns the translated messages of f as lang translations,
// one per fingerprint. Fuzzy and obsolete messages are skipped.
func (f *File) Translations(lang string) []merge.Translation {
	var out []merge.Translation
	for _, e := range f.Entries {
		if e.Obsolete || e.IsFuzzy() || strings.TrimSpace(e.MsgStr) == "" {
			continue
		}
		for _, fp := range strings.Split(e.MsgCtxt, fingerprintSep) {
			if fp = strings.TrimSpace(fp); fp != "" {
				out = append(out, merge.Translation{Fingerprint: fp, Language: lang, Text: e.MsgStr})
			}
		}
	}
	return out
}

// Import reads lang translations from the catalog at path. When lang is
// empty the catalog's Language header is used.
func Import(path, lang string) ([]merge.Translation, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = f.HeaderField("Language")
	}
	if lang == "" {
		return nil, fmt.Errorf("%s: no language given and no Language header", path)
	}
	return f.Translations(lang), nil
}
