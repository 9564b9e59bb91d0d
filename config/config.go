// Package config implements auto-detection of RPG Maker MV/MZ project
// settings: the data directory, the game title and the engine.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rmmvlt/rmmvlt/transmap"
)

// Engine identifies the RPG Maker runtime a project ships with.
type Engine string

const (
	EngineMV      Engine = "MV"
	EngineMZ      Engine = "MZ"
	EngineUnknown Engine = "unknown"
)

// DefaultStringsFile is the strings file name used when none is configured.
const DefaultStringsFile = "rmmvlt.json"

// DefaultIndent is the indentation used when re-serializing patched files.
const DefaultIndent = "  "

// Project holds auto-detected project configuration.
type Project struct {
	// Name is the game title from System.json, or the directory name.
	Name string
	// Root is the absolute project directory.
	Root string
	// DataDir is the directory holding MapNNN.json and the database files.
	DataDir string
	// Engine is detected from the core scripts under js/.
	Engine Engine
	// StringsFile is the translation map path.
	StringsFile string
	// Languages present in the strings file, or configured.
	Languages []string
	// Indent used when writing patched data files; empty writes compact JSON.
	Indent string
	// Strict refuses to patch documents changed since extraction.
	Strict bool
}

// HasData reports whether a data directory was found.
func (p *Project) HasData() bool {
	info, err := os.Stat(p.DataDir)
	return err == nil && info.IsDir()
}

// Detect auto-detects project settings from rootDir.
func Detect(rootDir string) *Project {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	p := &Project{
		Root:        absRoot,
		DataDir:     detectDataDir(absRoot),
		Engine:      detectEngine(absRoot),
		StringsFile: filepath.Join(absRoot, DefaultStringsFile),
		Indent:      DefaultIndent,
	}

	p.Name = gameTitle(p.DataDir)
	if p.Name == "" {
		p.Name = filepath.Base(absRoot)
	}
	p.Languages = detectLanguages(p.StringsFile)

	return p
}

// Load detects the project in rootDir and applies .rmmvlt.yaml on top.
func Load(rootDir string) (*Project, error) {
	p := Detect(rootDir)
	rc, err := LoadConfigFile(p.Root)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		if err := p.Apply(rc); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// detectDataDir returns data/ for desktop deployments, www/data/ for
// MV web deployments, and data/ when neither exists.
func detectDataDir(root string) string {
	for _, candidate := range []string{"data", filepath.Join("www", "data")} {
		dir := filepath.Join(root, candidate)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return filepath.Join(root, "data")
}

func detectEngine(root string) Engine {
	checks := []struct {
		file   string
		engine Engine
	}{
		{filepath.Join("js", "rmmz_core.js"), EngineMZ},
		{filepath.Join("js", "rpg_core.js"), EngineMV},
		{filepath.Join("www", "js", "rpg_core.js"), EngineMV},
	}
	for _, c := range checks {
		if _, err := os.Stat(filepath.Join(root, c.file)); err == nil {
			return c.engine
		}
	}
	return EngineUnknown
}

// gameTitle reads gameTitle from System.json.
func gameTitle(dataDir string) string {
	data, err := os.ReadFile(filepath.Join(dataDir, "System.json"))
	if err != nil {
		return ""
	}
	data = []byte(strings.TrimPrefix(string(data), "\ufeff"))

	var sys struct {
		GameTitle string `json:"gameTitle"`
	}
	if err := json.Unmarshal(data, &sys); err != nil {
		return ""
	}
	return strings.TrimSpace(sys.GameTitle)
}

func detectLanguages(stringsFile string) []string {
	m, err := transmap.ParseFile(stringsFile)
	if err != nil {
		return nil
	}
	return m.Languages()
}
