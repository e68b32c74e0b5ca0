package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// MacroFile is the per-project macro definition file under .cgraph/.
// Macros declared here are passed to the parser as -D arguments on every
// file, on top of whatever the compilation database supplies.
const MacroFile = "macros.toml"

// Macros maps macro names to their values. An empty value means the macro
// is defined without a body (#define FLAG).
type Macros map[string]string

// macroDocument is the on-disk shape of macros.toml:
//
//	[macros]
//	DEBUG = "1"
//	USE_FEATURE_X = ""
type macroDocument struct {
	Macros map[string]string `toml:"macros"`
}

// LoadMacros reads .cgraph/macros.toml for a project root. A missing file
// yields an empty map; a malformed file is an error.
func LoadMacros(projectRoot string) (Macros, error) {
	path := filepath.Join(projectRoot, ConfigDirName, MacroFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Macros{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", MacroFile, err)
	}

	var doc macroDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", MacroFile, err)
	}
	if doc.Macros == nil {
		return Macros{}, nil
	}
	return doc.Macros, nil
}

// SaveMacros writes the macro set back to .cgraph/macros.toml.
func SaveMacros(projectRoot string, m Macros) error {
	dir := filepath.Join(projectRoot, ConfigDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(macroDocument{Macros: m})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", MacroFile, err)
	}

	path := filepath.Join(dir, MacroFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", MacroFile, err)
	}
	return nil
}

// CompilerArgs renders the macro set as deterministic -D arguments.
func (m Macros) CompilerArgs() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]string, 0, len(names))
	for _, name := range names {
		if m[name] == "" {
			args = append(args, "-D"+name)
		} else {
			args = append(args, "-D"+name+"="+m[name])
		}
	}
	return args
}
