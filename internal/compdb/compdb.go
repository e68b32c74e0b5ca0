// Package compdb reads clang-style compilation databases
// (compile_commands.json) and answers per-file compiler argument lookups.
package compdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cgraph/internal/paths"
)

// Entry is one record of compile_commands.json. Either Arguments or Command
// is populated depending on the generator.
type Entry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
}

// Database is a loaded compilation database keyed by absolute file path.
type Database struct {
	path    string
	entries map[string]Entry
}

// Discover locates compile_commands.json for a project root: an explicit
// override wins, then <root>/compile_commands.json, then
// <root>/build/compile_commands.json. Returns "" when none exists.
func Discover(rootPath, override string) string {
	candidates := []string{}
	if override != "" {
		candidates = append(candidates, override)
	}
	candidates = append(candidates,
		filepath.Join(rootPath, "compile_commands.json"),
		filepath.Join(rootPath, "build", "compile_commands.json"),
	)

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// Load parses a compilation database file.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compilation database: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse compilation database: %w", err)
	}

	db := &Database{
		path:    path,
		entries: make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		file := e.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(e.Directory, file)
		}
		abs, err := paths.Absolutize(file)
		if err != nil {
			continue
		}
		// First entry per file wins, like the original lookup
		if _, exists := db.entries[abs]; !exists {
			db.entries[abs] = e
		}
	}

	return db, nil
}

// Path returns the location the database was loaded from.
func (db *Database) Path() string {
	return db.path
}

// ArgsFor returns the compiler arguments recorded for a file, with the
// leading compiler executable token stripped. A file without an entry gets
// no extra flags (nil, false).
func (db *Database) ArgsFor(file string) ([]string, bool) {
	abs, err := paths.Absolutize(file)
	if err != nil {
		return nil, false
	}

	entry, ok := db.entries[abs]
	if !ok {
		return nil, false
	}

	args := entry.Arguments
	if len(args) == 0 && entry.Command != "" {
		args = splitCommand(entry.Command)
	}
	if len(args) == 0 {
		return nil, false
	}

	// Strip the compiler executable; some generators emit flag-only lists
	if !strings.HasPrefix(args[0], "-") {
		args = args[1:]
	}
	return args, true
}

// splitCommand splits a shell command string into tokens, honoring single
// and double quotes. No expansion is performed; this only has to undo the
// quoting compile_commands.json generators produce.
func splitCommand(cmd string) []string {
	var tokens []string
	var current strings.Builder
	var quote byte
	inToken := false

	for i := 0; i < len(cmd); i++ {
		ch := cmd[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				current.WriteByte(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inToken = true
		case ch == ' ' || ch == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		case ch == '\\' && i+1 < len(cmd):
			i++
			current.WriteByte(cmd[i])
			inToken = true
		default:
			current.WriteByte(ch)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens
}
