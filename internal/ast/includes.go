package ast

import (
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Inclusion is one #include directive of the translation unit.
type Inclusion struct {
	// SourcePath is the including file (always the parsed file; tree-sitter
	// does not follow includes transitively).
	SourcePath string

	// Spelling is the directive's path text with quotes/brackets stripped.
	Spelling string

	// System is true for <...> includes.
	System bool

	// ResolvedPath is the absolute path of the included file when it could
	// be located on disk, "" otherwise.
	ResolvedPath string

	// Line is the 1-based line of the directive.
	Line int
}

// Includes returns the translation unit's direct inclusion edges. Quoted
// includes resolve against the including file's directory first, then the
// -I directories from the compile arguments; system includes only against
// the -I directories. Unresolvable targets are returned with an empty
// resolved path, never as an error.
func (tu *TranslationUnit) Includes() []Inclusion {
	var result []Inclusion
	collectIncludes(tu.root, tu, &result)
	return result
}

func collectIncludes(n *sitter.Node, tu *TranslationUnit, out *[]Inclusion) {
	if n.Type() == "preproc_include" {
		if inc, ok := tu.inclusionFrom(n); ok {
			*out = append(*out, inc)
		}
		// No includes nest inside an include directive
		return
	}

	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		collectIncludes(child, tu, out)
	}
}

func (tu *TranslationUnit) inclusionFrom(n *sitter.Node) (Inclusion, bool) {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return Inclusion{}, false
	}

	raw := pathNode.Content(tu.source)
	system := pathNode.Type() == "system_lib_string"
	spelling := strings.Trim(raw, `"<>`)
	if spelling == "" {
		return Inclusion{}, false
	}

	return Inclusion{
		SourcePath:   tu.path,
		Spelling:     spelling,
		System:       system,
		ResolvedPath: tu.resolveInclude(spelling, system),
		Line:         int(n.StartPoint().Row) + 1,
	}, true
}

// resolveInclude performs the header search the preprocessor would do,
// limited to directories cgraph knows about.
func (tu *TranslationUnit) resolveInclude(spelling string, system bool) string {
	var searchDirs []string
	if !system {
		searchDirs = append(searchDirs, filepath.Dir(tu.path))
	}
	searchDirs = append(searchDirs, tu.includeDirs...)

	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, filepath.FromSlash(spelling))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				continue
			}
			if resolved, err := filepath.EvalSymlinks(abs); err == nil {
				return resolved
			}
			return filepath.Clean(abs)
		}
	}
	return ""
}
