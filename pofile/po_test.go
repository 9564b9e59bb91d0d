package pofile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmmvlt/rmmvlt/merge"
	"github.com/rmmvlt/rmmvlt/transmap"
)

func TestParseWriteRoundTripAndHeaderFields(t *testing.T) {
	input := `msgid ""
msgstr ""
"Project-Id-Version: rmmvlt\n"
"Language: fr\n"

# translator note
#. Map 001 Event 3
#: data/Map001.json
msgctxt "0123456789abcdef"
msgid "\\C[2]Hero\\C[0]: \"Hi\"\n"
"Ready?"
msgstr "\\C[2]Héros\\C[0] : « Salut »\n"
"Prêt ?"

#, fuzzy
msgctxt "fedcba9876543210"
msgid "count"
msgid_plural "counts"
msgstr[0] "un"
msgstr[1] "plusieurs"

#~ msgctxt "aaaaaaaaaaaaaaaa"
#~ msgid "gone"
#~ msgstr "parti"
`

	f, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if got := f.HeaderField("language"); got != "fr" {
		t.Fatalf("HeaderField(language) = %q, want fr", got)
	}
	f.SetHeaderField("Language", "de")
	f.SetHeaderField("X-Generator", "rmmvlt")
	if got := f.HeaderField("Language"); got != "de" {
		t.Fatalf("Language header after SetHeaderField = %q, want de", got)
	}

	if len(f.Entries) != 3 {
		t.Fatalf("entries len = %d, want 3", len(f.Entries))
	}
	first := f.Entries[0]
	if first.MsgID != "\\C[2]Hero\\C[0]: \"Hi\"\nReady?" {
		t.Fatalf("msgid = %q", first.MsgID)
	}
	if first.MsgStr != "\\C[2]Héros\\C[0] : « Salut »\nPrêt ?" {
		t.Fatalf("msgstr = %q", first.MsgStr)
	}
	if len(first.TranslatorComments) != 1 || first.TranslatorComments[0] != "translator note" {
		t.Fatalf("translator comments = %v", first.TranslatorComments)
	}
	if plural := f.Entries[1]; !plural.IsFuzzy() || plural.MsgStr != "un" {
		t.Fatalf("plural entry = %#v", plural)
	}
	if !f.Entries[2].Obsolete || f.Entries[2].MsgStr != "parti" {
		t.Fatalf("obsolete entry = %#v", f.Entries[2])
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	round, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Parse roundtrip error: %v", err)
	}
	if round.HeaderField("Language") != "de" || round.HeaderField("X-Generator") != "rmmvlt" {
		t.Fatalf("roundtrip header = %q", round.Header.MsgStr)
	}
	if len(round.Entries) != 3 {
		t.Fatalf("roundtrip entries len = %d, want 3", len(round.Entries))
	}
	if got := round.Entries[0]; got.MsgID != first.MsgID || got.MsgStr != first.MsgStr || got.MsgCtxt != first.MsgCtxt {
		t.Fatalf("roundtrip entry mismatch: %#v", got)
	}
	if !round.Entries[2].Obsolete {
		t.Fatal("roundtrip lost the obsolete marker")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(strings.NewReader("msgid \"x\"\nnonsense\n")); err == nil {
		t.Fatal("expected error for unknown keyword")
	}
}

func TestTranslationsSkipsFuzzyAndObsolete(t *testing.T) {
	f := NewFile()
	f.Entries = []*Entry{
		{MsgCtxt: "aaaaaaaaaaaaaaaa;bbbbbbbbbbbbbbbb", MsgID: "Hello", MsgStr: "Bonjour"},
		{MsgCtxt: "cccccccccccccccc", MsgID: "Bye", MsgStr: "Salut", Flags: []string{"fuzzy"}},
		{MsgCtxt: "dddddddddddddddd", MsgID: "Old", MsgStr: "Vieux", Obsolete: true},
		{MsgCtxt: "eeeeeeeeeeeeeeee", MsgID: "Todo", MsgStr: ""},
	}

	got := f.Translations("fr")
	want := []merge.Translation{
		{Fingerprint: "aaaaaaaaaaaaaaaa", Language: "fr", Text: "Bonjour"},
		{Fingerprint: "bbbbbbbbbbbbbbbb", Language: "fr", Text: "Bonjour"},
	}
	if len(got) != len(want) {
		t.Fatalf("Translations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Translations[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	m := transmap.New()
	ev := "3"
	id := "001"
	a := m.Record("Hello", transmap.Context{File: "data/Map001.json", Path: "events.3.pages.0.list.0.parameters.0", EventID: &ev, MapID: &id})
	b := m.Record("Hello", transmap.Context{File: "data/Map001.json", Path: "events.3.pages.1.list.0.parameters.0", EventID: &ev, MapID: &id})
	c := m.Record("Potion", transmap.Context{File: "data/Items.json", Path: "1.name"})
	if err := m.MergeTranslation(c, "fr", "Fiole"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "fr.po")
	n, err := ExportFile(m, "fr", path)
	if err != nil {
		t.Fatalf("ExportFile: %v", err)
	}
	if n != 2 {
		t.Fatalf("exported %d messages, want 2", n)
	}

	f, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if f.HeaderField("Language") != "fr" {
		t.Fatalf("Language header = %q", f.HeaderField("Language"))
	}
	hello := f.Entries[0]
	if hello.MsgID != "Hello" || hello.ExtractedComments[0] != "Map 001 Event 3 (×2)" {
		t.Fatalf("hello entry = %#v", hello)
	}
	if len(hello.References) != 1 || hello.References[0] != "data/Map001.json" {
		t.Fatalf("references = %v", hello.References)
	}

	// A translator fills in the first message.
	hello.MsgStr = "Bonjour"
	if err := f.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ts, err := Import(path, "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	r := merge.Apply(m, ts)
	if r.Applied != 3 || len(r.Unknown) != 0 {
		t.Fatalf("Apply report = %+v", r)
	}
	for _, fp := range []string{a, b} {
		e, _ := m.Get(fp)
		if e.Translations["fr"] != "Bonjour" {
			t.Fatalf("%s fr = %q, want Bonjour", fp, e.Translations["fr"])
		}
	}
}

func TestImportWithoutLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.po")
	f := NewFile()
	if err := f.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	if _, err := Import(path, ""); err == nil {
		t.Fatal("expected error without language")
	}
}
