// rmmvlt is the RPG Maker MV/MZ Localization Tool: it extracts translatable strings
// from game data files and patches translations back in.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rmmvlt/rmmvlt/config"
	"github.com/rmmvlt/rmmvlt/extract"
	"github.com/rmmvlt/rmmvlt/i18n"
	"github.com/rmmvlt/rmmvlt/langmeta"
	"github.com/rmmvlt/rmmvlt/lockfile"
	"github.com/rmmvlt/rmmvlt/merge"
	"github.com/rmmvlt/rmmvlt/patch"
	"github.com/rmmvlt/rmmvlt/pofile"
	"github.com/rmmvlt/rmmvlt/sheet"
	"github.com/rmmvlt/rmmvlt/transmap"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, color.BlueString("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, color.GreenString("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, color.YellowString("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, color.RedString("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	noColor bool
)

// errPatchFailed makes main exit non-zero after the per-file errors have
// already been printed.
var errPatchFailed = errors.New("some files could not be patched")

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rmmvlt",
		Short: "RPG Maker MV/MZ localization tool",
		Long: `rmmvlt: RPG Maker MV/MZ Localization Tool.

Extracts every translatable string of a game (map events, database entries,
system terms) into a single strings file keyed by a content fingerprint,
round-trips it through a spreadsheet for translators, and patches the
translations back into the game data files.

Commands:
  init      Extract strings into the strings file
  export    Write a language to an .xlsx spreadsheet or a PO catalog
  import    Read translations back from a spreadsheet or a PO catalog
  patch     Write a language into the game data files
  status    Show project info and translation progress`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVarP(&rootDir, "project", "p", ".", i18n.T("Game project directory"))
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, i18n.T("Disable colored output"))

	root.AddCommand(
		newInitCmd(),
		newExportCmd(),
		newImportCmd(),
		newPatchCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errPatchFailed) {
			logError("%v", err)
		}
		os.Exit(1)
	}
}

// loadProject detects the project and applies .rmmvlt.yaml.
func loadProject() (*config.Project, error) {
	proj, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	return proj, nil
}

// addStringsFlag registers the strings file override shared by commands.
func addStringsFlag(fs *pflag.FlagSet, target *string, name, short string) {
	fs.StringVarP(target, name, short, "", i18n.T("Strings file (default: rmmvlt.json in the project)"))
}

// addLangFlag registers the required target language flag.
func addLangFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "lang", "l", "", i18n.T("Target language code (e.g. fr, pt-BR)"))
	_ = cmd.MarkFlagRequired("lang")
}

func resolvePath(proj *config.Project, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(proj.Root, path)
}

func loadStrings(path string) (*transmap.Map, error) {
	if !fileExists(path) {
		return nil, fmt.Errorf(i18n.T("strings file %s not found; run 'rmmvlt init' first"), path)
	}
	return transmap.ParseFile(path)
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rmmvlt version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
			fmt.Printf("  messages:  en %s\n", strings.Join(i18n.Languages(), " "))
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// init (extract strings into the strings file)
// ---------------------------------------------------------------------------

type initArgs struct {
	output string
	prune  bool
	strict bool
}

func newInitCmd() *cobra.Command {
	var a initArgs

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Extract translatable strings into the strings file",
		Long: `Extract translatable strings from the game data into the strings file.

Scans MapNNN.json event messages and display names, the database files
(Items, Actors, Classes, Skills, States, System, Weapons, Armors, Enemies,
CommonEvents, Troops) and rmmvlt_misc.json when present.

This command is idempotent and safe to run multiple times. Existing
translations are preserved. Entries whose source text disappeared are kept
unless --prune is given.

With --strict, the checksum of every data file is recorded in rmmvlt.lock
so that 'rmmvlt patch --strict' can refuse files edited after extraction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			return runInit(proj, a)
		},
	}

	addStringsFlag(cmd.Flags(), &a.output, "output", "o")
	cmd.Flags().BoolVar(&a.prune, "prune", false, i18n.T("Remove entries no longer found in the game data"))
	cmd.Flags().BoolVar(&a.strict, "strict", false, i18n.T("Record data file checksums in rmmvlt.lock"))

	return cmd
}

func runInit(proj *config.Project, a initArgs) error {
	if a.output != "" {
		proj.StringsFile = resolvePath(proj, a.output)
	}
	if !proj.HasData() {
		return fmt.Errorf(i18n.T("no data directory found in %s (looked for data/ and www/data/)"), proj.Root)
	}

	logInfo(i18n.T("Extracting strings from %s..."), proj.Name)

	m := transmap.New()
	if fileExists(proj.StringsFile) {
		existing, err := transmap.ParseFile(proj.StringsFile)
		if err != nil {
			return err
		}
		m = existing
		logInfo(i18n.T("Updating %s (%s entries)"), proj.StringsFile, humanize.Comma(int64(m.Len())))
	}

	var lock *lockfile.LockFile
	if a.strict || proj.Strict {
		l, err := lockfile.Load(proj.Root)
		if err != nil {
			return err
		}
		lock = l
	}

	x := &extract.Extractor{Root: proj.Root, DataDir: proj.DataDir, Map: m, Lock: lock}
	r := x.Run()

	for _, f := range r.Files {
		if f.Strings > 0 {
			fmt.Fprintf(os.Stderr, "  %-28s %s\n", f.File, humanize.Comma(int64(f.Strings)))
		}
	}
	for _, s := range r.Skipped {
		logInfo(i18n.T("Skipped %s (not present)"), s)
	}
	for _, f := range r.Failed {
		logWarning("%s: %v", f.File, f.Err)
	}

	stale := merge.Stale(m, r.Seen)
	if a.prune {
		if n := m.Retain(r.Seen); n > 0 {
			logInfo(i18n.N("Pruned %d stale entry", "Pruned %d stale entries", n), n)
		}
	} else if len(stale) > 0 {
		logWarning(i18n.N("%d entry no longer matches the game data (use --prune to remove it)",
			"%d entries no longer match the game data (use --prune to remove them)", len(stale)), len(stale))
	}

	if err := m.WriteFile(proj.StringsFile); err != nil {
		return err
	}

	if lock != nil {
		var files []string
		for _, f := range r.Files {
			files = append(files, f.File)
		}
		lock.Clean(files)
		if err := lock.Save(); err != nil {
			return err
		}
		logInfo(i18n.T("Lock file: %s"), lock.Summary())
	}

	logSuccess(i18n.T("Extracted %s strings from %d files into %s"),
		humanize.Comma(int64(r.Strings())), len(r.Files), proj.StringsFile)
	if !r.OK() {
		logWarning(i18n.N("%d file could not be read", "%d files could not be read", len(r.Failed)), len(r.Failed))
	}
	return nil
}

// ---------------------------------------------------------------------------
// export (strings file -> .xlsx)
// ---------------------------------------------------------------------------

func newExportCmd() *cobra.Command {
	var lang, output, format string

	cmd := &cobra.Command{
		Use:   "export [strings-file]",
		Short: "Export a language to an .xlsx spreadsheet or a PO catalog",
		Long: `Write the strings of a language to an .xlsx spreadsheet or a gettext PO
catalog for translators.

Entries sharing the same original text are merged into one row (or one PO
message) that lists every fingerprint it stands for. Map dialogue comes
first, ordered by map and event. The translated file is read back with
'rmmvlt import'.

The format is taken from --format, then from the extension of --output,
and defaults to xlsx.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				proj.StringsFile = resolvePath(proj, args[0])
			}
			return runExport(proj, lang, resolvePath(proj, output), format)
		},
	}

	addLangFlag(cmd, &lang)
	cmd.Flags().StringVarP(&output, "output", "o", "", i18n.T("Output file (default: <strings>_<lang>.<format>)"))
	cmd.Flags().StringVarP(&format, "format", "f", "", i18n.T("Output format: xlsx or po"))

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"xlsx\tExcel spreadsheet",
			"po\tgettext PO catalog",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runExport(proj *config.Project, lang, output, format string) error {
	m, err := loadStrings(proj.StringsFile)
	if err != nil {
		return err
	}
	format, err = exportFormat(format, output)
	if err != nil {
		return err
	}
	if output == "" {
		output = defaultExportPath(proj.StringsFile, lang, format)
	}

	if format == formatPO {
		n, err := pofile.ExportFile(m, lang, output)
		if err != nil {
			return err
		}
		logSuccess(i18n.T("Exported %s messages for %s to %s"), humanize.Comma(int64(n)), langmeta.Label(lang), output)
		return nil
	}

	r, err := sheet.Export(m, lang, output)
	if err != nil {
		return err
	}
	logSuccess(i18n.T("Exported %s rows (%s entries, %d translated) for %s to %s"),
		humanize.Comma(int64(r.Rows)), humanize.Comma(int64(r.Entries)), r.Translated, langmeta.Label(lang), output)
	return nil
}

const (
	formatXLSX = "xlsx"
	formatPO   = "po"
)

// exportFormat resolves the --format flag, falling back to the output
// file extension.
func exportFormat(format, output string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	}
	switch format {
	case "", formatXLSX:
		return formatXLSX, nil
	case formatPO:
		return formatPO, nil
	}
	return "", fmt.Errorf(i18n.T("unknown format %q (valid: xlsx, po)"), format)
}

// defaultExportPath returns <dir>/<strings base>_<lang>.<format>.
func defaultExportPath(stringsFile, lang, format string) string {
	base := strings.TrimSuffix(filepath.Base(stringsFile), filepath.Ext(stringsFile))
	return filepath.Join(filepath.Dir(stringsFile), base+"_"+lang+"."+format)
}

// ---------------------------------------------------------------------------
// import (.xlsx -> strings file)
// ---------------------------------------------------------------------------

func newImportCmd() *cobra.Command {
	var lang, stringsFile, output string

	cmd := &cobra.Command{
		Use:   "import <file.xlsx|file.po>",
		Short: "Import translations from a spreadsheet or a PO catalog",
		Long: `Read translations from a file produced by 'rmmvlt export' and merge
them into the strings file.

Spreadsheets are read from their "<lang> Translation" column. PO catalogs
are read from their msgstr lines; fuzzy and obsolete messages are ignored.
Fingerprints unknown to the strings file are reported and skipped; they
never create entries. Empty translations are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			if stringsFile != "" {
				proj.StringsFile = resolvePath(proj, stringsFile)
			}
			out := proj.StringsFile
			if output != "" {
				out = resolvePath(proj, output)
			}
			return runImport(proj, args[0], lang, out)
		},
	}

	addLangFlag(cmd, &lang)
	addStringsFlag(cmd.Flags(), &stringsFile, "strings", "s")
	cmd.Flags().StringVarP(&output, "output", "o", "", i18n.T("Write the merged strings file here instead of in place"))

	return cmd
}

func runImport(proj *config.Project, input, lang, output string) error {
	m, err := loadStrings(proj.StringsFile)
	if err != nil {
		return err
	}

	var ts []merge.Translation
	if strings.EqualFold(filepath.Ext(input), ".po") {
		ts, err = pofile.Import(input, lang)
	} else {
		ts, err = sheet.Import(input, lang)
	}
	if err != nil {
		return err
	}

	r := merge.Apply(m, ts)
	for _, fp := range r.Unknown {
		logWarning(i18n.T("Fingerprint not found in strings file: %s"), fp)
	}
	if err := m.WriteFile(output); err != nil {
		return err
	}

	logSuccess(i18n.T("Processed %s translations for %s"), humanize.Comma(int64(r.Applied)), langmeta.Label(lang))
	if len(r.Unknown) > 0 {
		logWarning(i18n.N("Skipped %d unknown fingerprint", "Skipped %d unknown fingerprints", len(r.Unknown)), len(r.Unknown))
	}
	logInfo(i18n.T("Strings file written: %s"), output)
	return nil
}

// ---------------------------------------------------------------------------
// patch (strings file -> game data)
// ---------------------------------------------------------------------------

type patchArgs struct {
	lang        string
	stringsFile string
	strict      bool
	indent      string
}

func newPatchCmd() *cobra.Command {
	var a patchArgs

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Write a language into the game data files",
		Long: `Write the translations of a language into the game data files.

Each data file is loaded once, receives all of its translations and is
saved once. A translation whose path no longer resolves aborts that file
(it is left untouched) and the remaining files are still patched. The
command exits with status 1 if any file failed.

A translation is only written over its original text (or over itself,
from an earlier patch). When the game text at its path was edited since
extraction, the translation is skipped and reported; run 'rmmvlt init'
again to pick up the new text.

With --strict, files modified since 'rmmvlt init --strict', or never
recorded by it, are refused as a whole.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			if a.stringsFile != "" {
				proj.StringsFile = resolvePath(proj, a.stringsFile)
			}
			if a.indent != "" {
				indent, err := config.ParseIndent(a.indent)
				if err != nil {
					return err
				}
				proj.Indent = indent
			}
			if a.strict {
				proj.Strict = true
			}
			return runPatch(proj, a.lang)
		},
	}

	addLangFlag(cmd, &a.lang)
	addStringsFlag(cmd.Flags(), &a.stringsFile, "strings", "s")
	cmd.Flags().BoolVar(&a.strict, "strict", false, i18n.T("Refuse files changed since extraction or never recorded"))
	cmd.Flags().StringVar(&a.indent, "indent", "", i18n.T("Indentation of patched files: 0-8, tab or none"))

	return cmd
}

func runPatch(proj *config.Project, lang string) error {
	m, err := loadStrings(proj.StringsFile)
	if err != nil {
		return err
	}
	if len(intersectLanguages(m.Languages(), []string{lang})) == 0 {
		logWarning(i18n.T("No translations for %s in %s"), langmeta.Label(lang), proj.StringsFile)
		return nil
	}

	store := &patch.FileStore{Root: proj.Root, Indent: proj.Indent}
	if proj.Strict {
		lock, err := lockfile.Load(proj.Root)
		if err != nil {
			return err
		}
		if len(lock.Files()) == 0 {
			return fmt.Errorf(i18n.T("%s has no checksums; run 'rmmvlt init --strict' first"), lockfile.LockFileName)
		}
		store.Lock = lock
	}

	logInfo(i18n.T("Patching %s into %s..."), langmeta.Label(lang), proj.Name)

	p := &patch.Patcher{
		Store:      store,
		ApplierFor: func(file string) patch.Applier { return extract.ApplierFor(file) },
		ReaderFor:  func(file string) patch.Reader { return extract.ReaderFor(file) },
	}
	r := p.Run(m, lang)

	for _, f := range r.Files {
		if f.Err != nil {
			logError("%s: %v", f.File, f.Err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-28s %s\n", f.File, humanize.Comma(int64(f.Patches)))
		for _, sk := range f.Skipped {
			logWarning(i18n.T("%s: %s no longer holds %q, skipped"), f.File, sk.Path, sk.Original)
		}
	}
	if skipped := len(r.Skipped()); skipped > 0 {
		logWarning(i18n.N("%d translation was skipped because the game text changed (run 'rmmvlt init' to update)",
			"%d translations were skipped because the game text changed (run 'rmmvlt init' to update)", skipped), skipped)
	}

	if store.Lock != nil {
		if err := store.Lock.Save(); err != nil {
			return err
		}
	}

	if !r.OK() {
		logError(i18n.N("%d file could not be patched", "%d files could not be patched", len(r.Failed())), len(r.Failed()))
		return errPatchFailed
	}
	logSuccess(i18n.N("Patched %d file", "Patched %d files", r.Patched()), r.Patched())
	return nil
}

// ---------------------------------------------------------------------------
// status (read-only: project info + translation stats)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project info and translation statistics",
		Long: `Show the detected project layout and per-language translation progress.
Does not modify any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			runStatus(proj)
			return nil
		},
	}

	return cmd
}

func runStatus(proj *config.Project) {
	heading := color.New(color.FgBlue, color.Bold)

	fmt.Fprintf(os.Stderr, "\n%s\n", heading.Sprint(i18n.T("Project")))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Name:       %s\n", proj.Name)
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", proj.Root)
	fmt.Fprintf(os.Stderr, "  Engine:     %s\n", proj.Engine)
	if proj.HasData() {
		fmt.Fprintf(os.Stderr, "  Data:       %s\n", proj.DataDir)
	} else {
		fmt.Fprintf(os.Stderr, "  Data:       %s\n", color.RedString(i18n.T("not found")))
	}
	fmt.Fprintf(os.Stderr, "  Strings:    %s\n", proj.StringsFile)
	fmt.Fprintln(os.Stderr)

	m, err := transmap.ParseFile(proj.StringsFile)
	if err != nil {
		if fileExists(proj.StringsFile) {
			logError("%v", err)
		} else {
			logInfo(i18n.T("No strings file yet. Run 'rmmvlt init' to extract strings."))
		}
		return
	}

	if info, err := os.Stat(proj.StringsFile); err == nil {
		fmt.Fprintf(os.Stderr, "  Entries:    %s in %d files (%s, updated %s)\n",
			humanize.Comma(int64(m.Len())), len(m.Files()),
			humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
	}
	if lock, err := lockfile.Load(proj.Root); err == nil {
		fmt.Fprintf(os.Stderr, "  Lock:       %s\n", lock.Summary())
	}
	fmt.Fprintln(os.Stderr)

	langs := proj.Languages
	if len(langs) == 0 {
		langs = m.Languages()
	}
	if len(langs) == 0 {
		logInfo(i18n.T("No translations yet. Export a language with 'rmmvlt export -l <lang>'."))
		return
	}

	fmt.Fprintf(os.Stderr, "%s\n", heading.Sprint(i18n.T("Translation Statistics")))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	width := langColumnWidth(langs)
	for _, lang := range langs {
		total, translated := m.Stats(lang)
		percent := 0
		if total > 0 {
			percent = translated * 100 / total
		}
		fmt.Fprintf(os.Stderr, "  %-*s %s  %s/%s  %s\n", width, lang, progressBar(percent, 20),
			humanize.Comma(int64(translated)), humanize.Comma(int64(total)), langmeta.Resolve(lang).Name)
	}
	fmt.Fprintln(os.Stderr)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// progressBar renders a fixed-width bar followed by the percentage.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	c := color.New(color.FgRed)
	switch {
	case percent >= 100:
		c = color.New(color.FgGreen)
	case percent >= 50:
		c = color.New(color.FgYellow)
	}
	return c.Sprint(bar) + fmt.Sprintf(" %3d%%", percent)
}

func langColumnWidth(langs []string) int {
	width := 0
	for _, l := range langs {
		if len(l) > width {
			width = len(l)
		}
	}
	return width
}

// intersectLanguages returns the languages of filter present in available,
// in filter order.
func intersectLanguages(available, filter []string) []string {
	set := make(map[string]bool, len(available))
	for _, l := range available {
		set[l] = true
	}
	var out []string
	for _, l := range filter {
		l = strings.TrimSpace(l)
		if set[l] {
			out = append(out, l)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
