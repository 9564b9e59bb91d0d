// Package sheet exports a translation map to an .xlsx workbook for
// translators and reads their translations back.
//
// Entries sharing the same original text collapse into one row, so a line
// repeated across events is translated once. The Fingerprint column lists
// every entry the row stands for.
package sheet

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/rmmvlt/rmmvlt/merge"
	"github.com/rmmvlt/rmmvlt/transmap"
)

// Column headers.
const (
	ColFingerprint = "Fingerprint"
	ColContext     = "Context"
	ColOriginal    = "Original Text"
	ColComment     = "Comment"

	sheetName = "Translations"
)

// TranslationColumn returns the header of the translation column for lang.
func TranslationColumn(lang string) string {
	return lang + " Translation"
}

// ExportReport summarizes an export.
type ExportReport struct {
	Rows       int
	Entries    int
	Translated int
}

// Row is one line of the workbook.
type Row struct {
	Fingerprints []string
	Contexts     []string
	Original     string
	Translation  string

	mapKey int
	isMap  bool
}

// Rows groups the entries of m by trimmed original text. Rows anchored in
// a map come first, ordered by map and event id; the others follow in the
// order their first entry appears.
func Rows(m *transmap.Map, lang string) []*Row {
	type item struct {
		fp string
		e  *transmap.Entry
	}
	var items []item
	for _, fp := range m.Fingerprints() {
		e, _ := m.Get(fp)
		items = append(items, item{fp, e})
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].e.Context, items[j].e.Context
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Path < b.Path
	})

	byText := make(map[string]*Row)
	var order []*Row
	for _, it := range items {
		text := strings.TrimSpace(it.e.Original)
		if text == "" {
			continue
		}
		row, ok := byText[text]
		if !ok {
			row = &Row{Original: text}
			byText[text] = row
			order = append(order, row)
		}
		row.Fingerprints = append(row.Fingerprints, it.fp)
		row.Contexts = append(row.Contexts, contextLabel(it.e.Context))
		if row.Translation == "" {
			row.Translation = it.e.Translations[lang]
		}
		if it.e.Context.MapID != nil && !isMapInfos(it.e.Context.File) && !row.isMap {
			row.isMap = true
			row.mapKey = atoi(it.e.Context.MapID)*10000 + atoi(it.e.Context.EventID)
		}
	}

	var maps, others []*Row
	for _, row := range order {
		if row.isMap {
			maps = append(maps, row)
		} else {
			others = append(others, row)
		}
	}
	sort.SliceStable(maps, func(i, j int) bool { return maps[i].mapKey < maps[j].mapKey })
	return append(maps, others...)
}

// Split breaks r into continuation rows whose joined fingerprints and
// context summary each fit in limit bytes. Every part keeps the original
// text and translation. A row that already fits comes back as one part.
func (r *Row) Split(limit int) []*Row {
	var parts []*Row
	cur := &Row{Original: r.Original, Translation: r.Translation, mapKey: r.mapKey, isMap: r.isMap}
	fpLen, ctxLen := 0, 0
	counts := make(map[string]int)

	for i, fp := range r.Fingerprints {
		label := r.Contexts[i]
		addFP := len(fp)
		if len(cur.Fingerprints) > 0 {
			addFP += len(fingerprintSep)
		}
		addCtx := 0
		if c := counts[label]; c == 0 {
			addCtx = len(label)
			if len(counts) > 0 {
				addCtx += len(contextSep)
			}
		} else {
			addCtx = len(countSuffix(c+1)) - len(countSuffix(c))
		}

		if len(cur.Fingerprints) > 0 && (fpLen+addFP > limit || ctxLen+addCtx > limit) {
			parts = append(parts, cur)
			cur = &Row{Original: r.Original, Translation: r.Translation, mapKey: r.mapKey, isMap: r.isMap}
			fpLen, ctxLen = 0, 0
			counts = make(map[string]int)
			addFP, addCtx = len(fp), len(label)
		}

		cur.Fingerprints = append(cur.Fingerprints, fp)
		cur.Contexts = append(cur.Contexts, label)
		counts[label]++
		fpLen += addFP
		ctxLen += addCtx
	}
	return append(parts, cur)
}

// ContextSummary joins the row's context labels, counting repeats.
func (r *Row) ContextSummary() string {
	counts := make(map[string]int)
	var labels []string
	for _, c := range r.Contexts {
		if counts[c] == 0 {
			labels = append(labels, c)
		}
		counts[c]++
	}
	for i, l := range labels {
		labels[i] = l + countSuffix(counts[l])
	}
	return strings.Join(labels, contextSep)
}

const (
	fingerprintSep = "; "
	contextSep     = " | "
)

func countSuffix(n int) string {
	if n < 2 {
		return ""
	}
	return fmt.Sprintf(" (×%d)", n)
}

func contextLabel(ctx transmap.Context) string {
	switch {
	case isMapInfos(ctx.File):
		id, _, _ := strings.Cut(ctx.Path, ".")
		return "Map Name: " + id
	case ctx.MapID != nil:
		if ctx.EventID == nil {
			return fmt.Sprintf("Map %s Display Name", *ctx.MapID)
		}
		return fmt.Sprintf("Map %s Event %s", *ctx.MapID, *ctx.EventID)
	default:
		return ctx.File + ": " + ctx.Path
	}
}

func isMapInfos(file string) bool {
	return strings.HasPrefix(path.Base(file), "MapInfos")
}

func atoi(s *string) int {
	if s == nil {
		return 0
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return 0
	}
	return n
}

// Export writes the lang view of m to an .xlsx file at filename.
func Export(m *transmap.Map, lang, filename string) (*ExportReport, error) {
	rows := Rows(m, lang)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	header := []interface{}{ColFingerprint, ColContext, ColOriginal, TranslationColumn(lang), ColComment}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "E1", bold); err != nil {
		return nil, fmt.Errorf("styling header: %w", err)
	}

	report := &ExportReport{}
	line := 2
	for _, row := range rows {
		if utf8.RuneCountInString(row.Original) > excelize.TotalCellChars || utf8.RuneCountInString(row.Translation) > excelize.TotalCellChars {
			return nil, fmt.Errorf("%s: text of %s is longer than a cell can hold", filename, row.Fingerprints[0])
		}
		parts := row.Split(excelize.TotalCellChars)
		for n, part := range parts {
			cell, err := excelize.CoordinatesToCellName(1, line)
			if err != nil {
				return nil, err
			}
			comment := ""
			if len(parts) > 1 {
				comment = fmt.Sprintf("part %d of %d", n+1, len(parts))
			}
			values := []interface{}{
				strings.Join(part.Fingerprints, fingerprintSep),
				part.ContextSummary(),
				part.Original,
				part.Translation,
				comment,
			}
			if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", line, err)
			}
			line++
		}
		report.Rows += len(parts)
		report.Entries += len(row.Fingerprints)
		if row.Translation != "" {
			report.Translated++
		}
	}

	widths := map[string]float64{"A": 20, "B": 40, "C": 60, "D": 60, "E": 30}
	for col, w := range widths {
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("setting column width: %w", err)
		}
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freezing header: %w", err)
	}

	if err := f.SaveAs(filename); err != nil {
		return nil, fmt.Errorf("saving %s: %w", filename, err)
	}
	return report, nil
}

// Import reads lang translations from the first sheet of an .xlsx file.
// Every fingerprint of a row receives the row's translation; rows with an
// empty translation cell are skipped.
func Import(filename, lang string) ([]merge.Translation, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", filename)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty sheet", filename)
	}

	fpCol, trCol, origCol := -1, -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case ColFingerprint:
			fpCol = i
		case ColOriginal:
			origCol = i
		case TranslationColumn(lang):
			trCol = i
		}
	}
	if fpCol < 0 {
		return nil, fmt.Errorf("%s: no %q column", filename, ColFingerprint)
	}
	if trCol < 0 {
		return nil, fmt.Errorf("%s: no %q column", filename, TranslationColumn(lang))
	}

	// Continuation rows of a split row share the original text; a
	// translation typed on any of them applies to all.
	byOriginal := make(map[string]string)
	if origCol >= 0 {
		for _, row := range rows[1:] {
			orig, text := field(row, origCol), field(row, trCol)
			if orig != "" && strings.TrimSpace(text) != "" {
				if _, ok := byOriginal[orig]; !ok {
					byOriginal[orig] = text
				}
			}
		}
	}

	var out []merge.Translation
	for _, row := range rows[1:] {
		text := field(row, trCol)
		if strings.TrimSpace(text) == "" && origCol >= 0 {
			text = byOriginal[field(row, origCol)]
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, fp := range strings.Split(field(row, fpCol), ";") {
			fp = strings.TrimSpace(fp)
			if fp == "" {
				continue
			}
			out = append(out, merge.Translation{Fingerprint: fp, Language: lang, Text: text})
		}
	}
	return out, nil
}

func field(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
