package extract

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rmmvlt/rmmvlt/fingerprint"
	"github.com/rmmvlt/rmmvlt/jsontree"
	"github.com/rmmvlt/rmmvlt/lockfile"
	"github.com/rmmvlt/rmmvlt/transmap"
	"github.com/rmmvlt/rmmvlt/treepath"
)

const map001 = `{
  "displayName": "Harbor Town",
  "width":       17,
  "events": [
    null,
    {"id": 1, "name": "EV001", "pages": [
      {"list": [
        {"code": 101, "indent": 0, "parameters": ["Actor1", 0, 0, 2]},
        {"code": 401, "indent": 0, "parameters": ["Hello"]},
        {"code": 102, "indent": 0, "parameters": [["Yes", "No"], 1, 0, 2, 0]},
        {"code": 405, "indent": 0, "parameters": ["The end."]},
        {"code": 0, "indent": 0, "parameters": []}
      ]}
    ]}
  ]
}`

const items = `[
  null,
  {"id": 1, "name": "Potion", "description": "Heals 50 HP.", "price": 50},
  {"id": 2, "name": "", "description": "Unnamed"},
  {}
]`

const system = `{
  "gameTitle":    "Quest",
  "currencyUnit": "G",
  "terms": {
    "basic":    ["Level", "", null, "HP"],
    "commands": ["Fight", null],
    "params":   ["Max HP"],
    "messages": {"actionFailure": "There was no effect on %1!", "alwaysDash": ""}
  }
}`

const commonEvents = `[
  null,
  {"id": 1, "name": "Tutorial", "list": [
    {"code": 401, "parameters": ["Press Z to talk."]},
    {"code": 102, "parameters": [["OK"], 0]}
  ]},
  {"id": 2, "name": "", "list": []}
]`

const troops = `[
  null,
  {"id": 1, "name": "Slime*2", "pages": [
    {"list": [{"code": 401, "parameters": ["Slimes appear!"]}]}
  ]}
]`

const misc = `{"misc_strings": [
  {"id": "title_hint", "text": "Press any key"},
  {"id": 7, "text": "Loading..."},
  {"text": "no id"}
]}`

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func defaultProject(t *testing.T) string {
	return writeProject(t, map[string]string{
		"data/Map001.json":       map001,
		"data/MapInfos.json":     `[null,{"id":1,"name":"Town"}]`,
		"data/Items.json":        items,
		"data/System.json":       system,
		"data/CommonEvents.json": commonEvents,
		"data/Troops.json":       troops,
		"data/rmmvlt_misc.json":  misc,
	})
}

func run(t *testing.T, root string, lock *lockfile.LockFile) (*transmap.Map, *Report) {
	t.Helper()
	m := transmap.New()
	x := &Extractor{Root: root, DataDir: filepath.Join(root, "data"), Map: m, Lock: lock}
	return m, x.Run()
}

func originals(m *transmap.Map) map[string]string {
	out := make(map[string]string)
	for _, fp := range m.Fingerprints() {
		e, _ := m.Get(fp)
		out[e.Context.File+"#"+e.Context.Path] = e.Original
	}
	return out
}

func TestRunRecordsEveryRule(t *testing.T) {
	root := defaultProject(t)
	m, r := run(t, root, nil)

	if !r.OK() {
		t.Fatalf("unexpected failures: %v", r.Errors())
	}

	want := map[string]string{
		"data/Map001.json#displayName":                            "Harbor Town",
		"data/Map001.json#events.1.pages.0.list.1.parameters.0":   "Hello",
		"data/Map001.json#events.1.pages.0.list.2.parameters.0.0": "Yes",
		"data/Map001.json#events.1.pages.0.list.2.parameters.0.1": "No",
		"data/Map001.json#events.1.pages.0.list.3.parameters.0":   "The end.",
		"data/Items.json#1.name":                                  "Potion",
		"data/Items.json#1.description":                           "Heals 50 HP.",
		"data/Items.json#2.name":                                  "",
		"data/Items.json#2.description":                           "Unnamed",
		"data/System.json#terms.basic.0":                          "Level",
		"data/System.json#terms.basic.3":                          "HP",
		"data/System.json#terms.commands.0":                       "Fight",
		"data/System.json#terms.params.0":                         "Max HP",
		"data/System.json#terms.messages.actionFailure":           "There was no effect on %1!",
		"data/System.json#gameTitle":                              "Quest",
		"data/System.json#currencyUnit":                           "G",
		"data/CommonEvents.json#1.name":                           "Tutorial",
		"data/CommonEvents.json#1.list.0.parameters.0":            "Press Z to talk.",
		"data/CommonEvents.json#1.list.1.parameters.0.0":          "OK",
		"data/Troops.json#1.name":                                 "Slime*2",
		"data/Troops.json#1.pages.0.list.0.parameters.0":          "Slimes appear!",
		"data/rmmvlt_misc.json#misc.title_hint":                   "Press any key",
		"data/rmmvlt_misc.json#misc.7":                            "Loading...",
	}

	got := originals(m)
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	if len(got) != len(want) {
		var extra []string
		for k := range got {
			if _, ok := want[k]; !ok {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		t.Errorf("recorded %d strings, want %d; unexpected: %v", len(got), len(want), extra)
	}
	if r.Strings() != len(want) {
		t.Errorf("Report.Strings() = %d, want %d", r.Strings(), len(want))
	}
	if len(r.Seen) != len(want) {
		t.Errorf("len(Seen) = %d, want %d", len(r.Seen), len(want))
	}

	for _, name := range []string{"data/Actors.json", "data/Classes.json", "data/Skills.json"} {
		found := false
		for _, s := range r.Skipped {
			if s == name {
				found = true
			}
		}
		if !found {
			t.Errorf("%s should be reported as skipped, got %v", name, r.Skipped)
		}
	}
}

func TestRunMapContext(t *testing.T) {
	root := defaultProject(t)
	m, _ := run(t, root, nil)

	id, mapID := "1", "001"
	fp := fingerprint.Of("Hello", "data/Map001.json", "events.1.pages.0.list.1.parameters.0", &id, &mapID)
	e, ok := m.Get(fp)
	if !ok {
		t.Fatalf("fingerprint %s not recorded", fp)
	}
	if *e.Context.EventID != "1" || *e.Context.MapID != "001" {
		t.Fatalf("context = %+v", e.Context)
	}

	fp = fingerprint.Of("Harbor Town", "data/Map001.json", "displayName", nil, &mapID)
	e, ok = m.Get(fp)
	if !ok {
		t.Fatal("display name not recorded with map id only")
	}
	if e.Context.EventID != nil {
		t.Fatalf("display name event id = %v, want nil", *e.Context.EventID)
	}
}

func TestRunPathsResolveInSourceDocuments(t *testing.T) {
	root := defaultProject(t)
	m, _ := run(t, root, nil)

	for _, fp := range m.Fingerprints() {
		e, _ := m.Get(fp)
		if strings.HasSuffix(e.Context.File, MiscFileName) {
			continue
		}
		doc, err := jsontree.ParseFile(filepath.Join(root, filepath.FromSlash(e.Context.File)))
		if err != nil {
			t.Fatalf("parse %s: %v", e.Context.File, err)
		}
		got, err := treepath.GetString(doc, e.Context.Path)
		if err != nil {
			t.Fatalf("%s#%s does not resolve: %v", e.Context.File, e.Context.Path, err)
		}
		if got != e.Original {
			t.Errorf("%s#%s = %q, want %q", e.Context.File, e.Context.Path, got, e.Original)
		}
	}
}

func TestRunIdempotent(t *testing.T) {
	root := defaultProject(t)

	m1, _ := run(t, root, nil)
	m2, _ := run(t, root, nil)

	a, err := m1.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	b, err := m2.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatal("two extractions of the same project differ")
	}

	// Extracting again into the same map changes nothing.
	x := &Extractor{Root: root, DataDir: filepath.Join(root, "data"), Map: m1}
	x.Run()
	c, _ := m1.Marshal()
	if string(a) != string(c) {
		t.Fatal("re-extraction into an existing map changed it")
	}
}

func TestRunContinuesAfterBrokenDocument(t *testing.T) {
	root := writeProject(t, map[string]string{
		"data/Map001.json":  map001,
		"data/Map002.json":  `{"events": [`,
		"data/Items.json":   items,
		"data/Weapons.json": `not json`,
	})

	m, r := run(t, root, nil)
	if r.OK() {
		t.Fatal("expected failures")
	}
	if len(r.Failed) != 2 {
		t.Fatalf("failures = %v, want Map002 and Weapons", r.Failed)
	}
	if r.Failed[0].File != "data/Map002.json" || r.Failed[1].File != "data/Weapons.json" {
		t.Fatalf("failed files = %v", r.Failed)
	}
	if m.Len() == 0 {
		t.Fatal("other documents were not extracted")
	}
	if err := r.Errors(); err == nil || !strings.Contains(err.Error(), "data/Weapons.json") {
		t.Fatalf("Errors() = %v", err)
	}
}

func TestRunRecordsChecksums(t *testing.T) {
	root := defaultProject(t)
	lock, err := lockfile.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	run(t, root, lock)

	data, err := os.ReadFile(filepath.Join(root, "data", "Map001.json"))
	if err != nil {
		t.Fatal(err)
	}
	if known, ok := lock.Verify("data/Map001.json", data); !known || !ok {
		t.Fatalf("Map001 checksum: known=%v ok=%v", known, ok)
	}
}

func TestMapID(t *testing.T) {
	tests := map[string]string{
		"data/Map001.json": "001",
		"Map120.json":      "120",
		"MapInfos.json":    "",
		"MapABC.json":      "",
		"Map0001.json":     "",
	}
	for in, want := range tests {
		got, ok := MapID(in)
		if got != want || ok != (want != "") {
			t.Errorf("MapID(%q) = %q, %v", in, got, ok)
		}
	}
}

func TestApplyMisc(t *testing.T) {
	doc, err := jsontree.Parse([]byte(misc))
	if err != nil {
		t.Fatal(err)
	}

	if err := ApplyMisc(doc, "misc.title_hint", "Appuyez sur une touche"); err != nil {
		t.Fatalf("ApplyMisc: %v", err)
	}
	if err := ApplyMisc(doc, "misc.7", "Chargement..."); err != nil {
		t.Fatalf("ApplyMisc numeric id: %v", err)
	}

	got := MiscRule(doc)
	if got[0].Text != "Appuyez sur une touche" || got[1].Text != "Chargement..." {
		t.Fatalf("misc after apply = %+v", got)
	}

	for _, bad := range []string{"misc.nope", "title_hint", "other.title_hint"} {
		if err := ApplyMisc(doc, bad, "x"); err == nil {
			t.Errorf("ApplyMisc(%q) should fail", bad)
		}
	}
}

func TestApplierFor(t *testing.T) {
	doc, _ := jsontree.Parse([]byte(misc))
	if err := ApplierFor("data/rmmvlt_misc.json")(doc, "misc.7", "x"); err != nil {
		t.Fatalf("misc applier: %v", err)
	}

	doc, _ = jsontree.Parse([]byte(items))
	if err := ApplierFor("data/Items.json")(doc, "1.name", "Potion+"); err != nil {
		t.Fatalf("path applier: %v", err)
	}
	if s, _ := treepath.GetString(doc, "1.name"); s != "Potion+" {
		t.Fatalf("1.name = %q", s)
	}
}

func TestRunKeepsEntriesOfFailedDocuments(t *testing.T) {
	root := defaultProject(t)
	m, _ := run(t, root, nil)
	stale := m.Record("Old line", transmap.Context{File: "data/Map001.json", Path: "events.9.pages.0.list.0.parameters.0"})

	var itemFPs []string
	for _, fp := range m.Fingerprints() {
		if e, _ := m.Get(fp); e.Context.File == "data/Items.json" {
			itemFPs = append(itemFPs, fp)
		}
	}
	if len(itemFPs) == 0 {
		t.Fatal("no Items.json entries recorded")
	}

	items := filepath.Join(root, "data", "Items.json")
	if err := os.WriteFile(items, []byte(`[null, {"id": 1, "na`), 0644); err != nil {
		t.Fatal(err)
	}

	x := &Extractor{Root: root, DataDir: filepath.Join(root, "data"), Map: m}
	r := x.Run()
	if len(r.Failed) != 1 || r.Failed[0].File != "data/Items.json" {
		t.Fatalf("failures = %v, want Items.json", r.Failed)
	}
	for _, fp := range itemFPs {
		if !r.Seen[fp] {
			t.Errorf("entry %s of the unreadable document is treated as stale", fp)
		}
	}
	if r.Seen[stale] {
		t.Error("entry no longer in Map001.json should be stale")
	}

	before := m.Len()
	if n := m.Retain(r.Seen); n != 1 {
		t.Fatalf("Retain removed %d entries, want only the stale one", n)
	}
	if m.Len() != before-1 {
		t.Fatalf("Len = %d, want %d", m.Len(), before-1)
	}
}
