package extract

import (
	"strconv"
	"strings"

	"github.com/rmmvlt/rmmvlt/jsontree"
	"github.com/rmmvlt/rmmvlt/treepath"
)

// Found is one translatable string discovered in a document.
type Found struct {
	Text    string
	Path    string
	EventID *string
}

// Rule lists the translatable strings of one kind of document.
type Rule func(doc *jsontree.Value) []Found

// Event command codes that carry player-visible text.
const (
	codeShowText     = 401
	codeShowChoices  = 102
	codeScrollText   = 405
	miscStringsField = "misc_strings"
)

// MiscFileName is the optional hand-maintained file of extra strings.
const MiscFileName = "rmmvlt_misc.json"

// DatabaseFile pairs a database file name with its rule.
type DatabaseFile struct {
	Name string
	Rule Rule
}

// DatabaseFiles lists the database files read from the data directory, in
// processing order.
var DatabaseFiles = []DatabaseFile{
	{"Items.json", RecordFields("name", "description")},
	{"Actors.json", RecordFields("name", "profile")},
	{"Classes.json", RecordFields("name")},
	{"Skills.json", RecordFields("name", "description", "message1", "message2")},
	{"States.json", RecordFields("name", "message1", "message2", "message3", "message4")},
	{"System.json", SystemRule},
	{"Weapons.json", RecordFields("name", "description")},
	{"Armors.json", RecordFields("name", "description")},
	{"Enemies.json", RecordFields("name")},
	{"CommonEvents.json", CommonEventsRule},
	{"Troops.json", TroopsRule},
}

// RecordFields returns a rule for database files shaped as a list of records
// (the first slot is null), extracting the named string fields of each.
func RecordFields(fields ...string) Rule {
	return func(doc *jsontree.Value) []Found {
		var out []Found
		for idx, rec := range doc.Items() {
			if rec.Kind() != jsontree.KindMapping || rec.Len() == 0 {
				continue
			}
			for _, field := range fields {
				if s, ok := stringField(rec, field); ok {
					out = append(out, Found{Text: s, Path: join(strconv.Itoa(idx), field)})
				}
			}
		}
		return out
	}
}

// SystemRule extracts the terms, game title and currency unit of System.json.
func SystemRule(doc *jsontree.Value) []Found {
	var out []Found

	if terms, ok := doc.Field("terms"); ok {
		for _, group := range []string{"basic", "commands", "params"} {
			list, ok := terms.Field(group)
			if !ok {
				continue
			}
			for idx, term := range list.Items() {
				if s, ok := term.Str(); ok && s != "" {
					out = append(out, Found{Text: s, Path: join("terms", group, strconv.Itoa(idx))})
				}
			}
		}
		if messages, ok := terms.Field("messages"); ok {
			for _, key := range messages.Keys() {
				if s, ok := stringField(messages, key); ok && s != "" {
					out = append(out, Found{Text: s, Path: join("terms", "messages", key)})
				}
			}
		}
	}

	for _, field := range []string{"gameTitle", "currencyUnit"} {
		if s, ok := stringField(doc, field); ok {
			out = append(out, Found{Text: s, Path: field})
		}
	}
	return out
}

// CommonEventsRule extracts common event names and their message commands.
func CommonEventsRule(doc *jsontree.Value) []Found {
	var out []Found
	for idx, ev := range doc.Items() {
		if ev.Kind() != jsontree.KindMapping {
			continue
		}
		prefix := strconv.Itoa(idx)
		if s, ok := stringField(ev, "name"); ok && s != "" {
			out = append(out, Found{Text: s, Path: join(prefix, "name")})
		}
		if list, ok := ev.Field("list"); ok {
			out = append(out, commands(list, join(prefix, "list"), nil)...)
		}
	}
	return out
}

// TroopsRule extracts troop names and the messages of their battle events.
func TroopsRule(doc *jsontree.Value) []Found {
	var out []Found
	for idx, troop := range doc.Items() {
		if troop.Kind() != jsontree.KindMapping {
			continue
		}
		prefix := strconv.Itoa(idx)
		if s, ok := stringField(troop, "name"); ok {
			out = append(out, Found{Text: s, Path: join(prefix, "name")})
		}
		out = append(out, pages(troop, prefix, nil)...)
	}
	return out
}

// MapRule extracts the display name and event messages of a MapNNN.json
// file. Event messages carry the event's index as their event id.
func MapRule(doc *jsontree.Value) []Found {
	var out []Found
	if s, ok := stringField(doc, "displayName"); ok {
		out = append(out, Found{Text: s, Path: "displayName"})
	}

	events, ok := doc.Field("events")
	if !ok {
		return out
	}
	for idx, ev := range events.Items() {
		if ev.Kind() != jsontree.KindMapping {
			continue
		}
		id := strconv.Itoa(idx)
		out = append(out, pages(ev, join("events", id), &id)...)
	}
	return out
}

// MiscRule extracts misc_strings entries, addressed by their id.
func MiscRule(doc *jsontree.Value) []Found {
	var out []Found
	list, _ := doc.Field(miscStringsField)
	for _, item := range list.Items() {
		text, ok := stringField(item, "text")
		if !ok {
			continue
		}
		id, ok := miscID(item)
		if !ok {
			continue
		}
		out = append(out, Found{Text: text, Path: join("misc", id)})
	}
	return out
}

func pages(owner *jsontree.Value, prefix string, eventID *string) []Found {
	var out []Found
	list, _ := owner.Field("pages")
	for pageIdx, page := range list.Items() {
		cmds, ok := page.Field("list")
		if !ok {
			continue
		}
		out = append(out, commands(cmds, join(prefix, "pages", strconv.Itoa(pageIdx), "list"), eventID)...)
	}
	return out
}

func commands(list *jsontree.Value, prefix string, eventID *string) []Found {
	var out []Found
	for idx, cmd := range list.Items() {
		codeVal, _ := cmd.Field("code")
		code, ok := codeVal.Int()
		if !ok {
			continue
		}
		params, _ := cmd.Field("parameters")
		first, err := params.Index(0)
		if err != nil {
			continue
		}
		base := join(prefix, strconv.Itoa(idx), "parameters", "0")

		switch code {
		case codeShowText, codeScrollText:
			if s, ok := first.Str(); ok {
				out = append(out, Found{Text: s, Path: base, EventID: eventID})
			}
		case codeShowChoices:
			for choiceIdx, choice := range first.Items() {
				if s, ok := choice.Str(); ok {
					out = append(out, Found{Text: s, Path: join(base, strconv.Itoa(choiceIdx)), EventID: eventID})
				}
			}
		}
	}
	return out
}

func stringField(v *jsontree.Value, key string) (string, bool) {
	f, ok := v.Field(key)
	if !ok {
		return "", false
	}
	return f.Str()
}

func miscID(item *jsontree.Value) (string, bool) {
	v, ok := item.Field("id")
	if !ok {
		return "", false
	}
	if s, ok := v.Str(); ok {
		return s, true
	}
	if n, ok := v.Num(); ok {
		return n.String(), true
	}
	return "", false
}

func join(parts ...string) string {
	return strings.Join(parts, ".")
}

// ---------------------------------------------------------------------------
// Appliers
// ---------------------------------------------------------------------------

// ApplierFor returns the function that writes a translation into a
// document of the given file. The misc file addresses entries by id; every
// other file is addressed by context path.
func ApplierFor(file string) func(doc *jsontree.Value, path, text string) error {
	if isMiscFile(file) {
		return ApplyMisc
	}
	return treepath.SetString
}

func isMiscFile(file string) bool {
	return strings.HasSuffix(strings.ReplaceAll(file, "\\", "/"), "/"+MiscFileName) || file == MiscFileName
}

// ReaderFor returns the function reading the current text at a context
// path of file.
func ReaderFor(file string) func(doc *jsontree.Value, path string) (string, error) {
	if isMiscFile(file) {
		return ReadMisc
	}
	return treepath.GetString
}

// ApplyMisc writes text into the misc_strings entry named by a "misc.<id>"
// path.
func ApplyMisc(doc *jsontree.Value, path, text string) error {
	item, err := miscItem(doc, path)
	if err != nil {
		return err
	}
	return item.SetField("text", jsontree.String(text))
}

// ReadMisc returns the text of the misc_strings entry named by path.
func ReadMisc(doc *jsontree.Value, path string) (string, error) {
	item, err := miscItem(doc, path)
	if err != nil {
		return "", err
	}
	return treepath.GetString(item, "text")
}

func miscItem(doc *jsontree.Value, path string) (*jsontree.Value, error) {
	id, ok := strings.CutPrefix(path, "misc.")
	if !ok {
		return nil, &treepath.PathError{Path: path, Segment: 0, Reason: "misc paths start with \"misc.\""}
	}
	list, ok := doc.Field(miscStringsField)
	if !ok {
		return nil, &treepath.PathError{Path: path, Segment: 0, Reason: "no " + miscStringsField + " list"}
	}
	for _, item := range list.Items() {
		if itemID, ok := miscID(item); ok && itemID == id {
			if _, ok := item.Field("text"); !ok {
				break
			}
			return item, nil
		}
	}
	return nil, &treepath.PathError{Path: path, Segment: 1, Reason: "no misc string with id " + strconv.Quote(id)}
}
