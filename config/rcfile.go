package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the optional per-project settings file.
const ConfigFileName = ".rmmvlt.yaml"

// ConfigFile is the .rmmvlt.yaml structure. Every field is optional; an
// unset field keeps the detected value.
type ConfigFile struct {
	// DataDir overrides the data directory, relative to the project root.
	DataDir string `yaml:"data_dir,omitempty"`
	// StringsFile overrides the strings file, relative to the project root.
	StringsFile string `yaml:"strings_file,omitempty"`
	// Languages is the list of target languages.
	Languages []string `yaml:"languages,omitempty"`
	// Indent: a number of spaces (0-8), "tab", or "none" for compact output.
	Indent string `yaml:"indent,omitempty"`
	// Strict enables checksum verification before patching.
	Strict bool `yaml:"strict,omitempty"`
}

// LoadConfigFile loads .rmmvlt.yaml from rootDir.
// Returns nil if no .rmmvlt.yaml exists.
func LoadConfigFile(rootDir string) (*ConfigFile, error) {
	path := filepath.Join(rootDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cf ConfigFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cf.Indent != "" {
		if _, err := ParseIndent(cf.Indent); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	for i, lang := range cf.Languages {
		if strings.TrimSpace(lang) == "" {
			return nil, fmt.Errorf("%s: language #%d is empty", path, i+1)
		}
	}

	return &cf, nil
}

// Apply overrides detected settings with the values set in cf.
func (p *Project) Apply(cf *ConfigFile) error {
	if cf.DataDir != "" {
		p.DataDir = p.resolve(cf.DataDir)
	}
	if cf.StringsFile != "" {
		p.StringsFile = p.resolve(cf.StringsFile)
		p.Languages = detectLanguages(p.StringsFile)
	}
	if len(cf.Languages) > 0 {
		p.Languages = cf.Languages
	}
	if cf.Indent != "" {
		indent, err := ParseIndent(cf.Indent)
		if err != nil {
			return err
		}
		p.Indent = indent
	}
	if cf.Strict {
		p.Strict = true
	}
	return nil
}

func (p *Project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Root, path)
}

// ParseIndent converts an indent setting into the indentation string.
func ParseIndent(s string) (string, error) {
	switch s = strings.TrimSpace(s); s {
	case "none":
		return "", nil
	case "tab":
		return "\t", nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 8 {
		return "", fmt.Errorf("invalid indent %q (valid: 0-8, tab, none)", s)
	}
	return strings.Repeat(" ", n), nil
}
