// Package ast wraps the tree-sitter C/C++ grammars behind the narrow
// front-end interface the indexer consumes: a traversable tree of typed
// nodes with source locations, token spellings, canonical identifiers for
// declared entities, and the translation unit's inclusion edges.
package ast

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"cgraph/internal/paths"
)

// Parser parses C/C++ source files into translation units.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new parser.
func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// TranslationUnit is one parsed source file.
type TranslationUnit struct {
	path        string // absolute
	source      []byte
	root        *sitter.Node
	tree        *sitter.Tree
	includeDirs []string
	macros      map[string]string

	decls        map[string][]*Decl
	fieldDecls   map[string][]*Decl
	synthesized  map[string]*Decl
	declByExtent map[uint64]*Decl
}

// Parse parses the file at path with the given compiler arguments. Only -I
// (include search dirs) and -D (predefined macros) are interpreted; the
// parser does not preprocess, so remaining flags are accepted and ignored.
func (p *Parser) Parse(ctx context.Context, path string, args []string) (*TranslationUnit, error) {
	abs, err := paths.Absolutize(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	lang, err := languageForFile(abs)
	if err != nil {
		return nil, err
	}
	p.parser.SetLanguage(lang)

	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", abs, err)
	}

	includeDirs, macros := interpretArgs(abs, args)

	tu := &TranslationUnit{
		path:        abs,
		source:      source,
		root:        tree.RootNode(),
		tree:        tree,
		includeDirs: includeDirs,
		macros:      macros,
		decls:       make(map[string][]*Decl),
		fieldDecls:  make(map[string][]*Decl),
		synthesized: make(map[string]*Decl),
	}
	tu.buildDeclIndex()

	return tu, nil
}

// Path returns the absolute path of the parsed file.
func (tu *TranslationUnit) Path() string {
	return tu.path
}

// Root returns the translation-unit root node.
func (tu *TranslationUnit) Root() *Node {
	return &Node{tu: tu, n: tu.root}
}

// Close releases the underlying parse tree.
func (tu *TranslationUnit) Close() {
	if tu.tree != nil {
		tu.tree.Close()
	}
}

// languageForFile picks the grammar from the file extension. Headers parse
// with the C grammar unless they use a C++-only extension.
func languageForFile(path string) (*sitter.Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".h":
		return c.GetLanguage(), nil
	case ".cpp", ".cc", ".cxx", ".hpp":
		return cpp.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
}

// interpretArgs extracts -I directories and -D macros from compiler flags.
// Relative include dirs resolve against the source file's directory, which
// is how compile_commands.json entries are meant to be interpreted when the
// build directory equals the file's working directory.
func interpretArgs(sourcePath string, args []string) ([]string, map[string]string) {
	baseDir := filepath.Dir(sourcePath)
	var dirs []string
	macros := make(map[string]string)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-I" && i+1 < len(args):
			i++
			dirs = append(dirs, resolveDir(args[i], baseDir))
		case strings.HasPrefix(arg, "-I"):
			dirs = append(dirs, resolveDir(arg[2:], baseDir))
		case arg == "-D" && i+1 < len(args):
			i++
			name, value := splitMacro(args[i])
			macros[name] = value
		case strings.HasPrefix(arg, "-D"):
			name, value := splitMacro(arg[2:])
			macros[name] = value
		}
	}

	return dirs, macros
}

func resolveDir(dir, baseDir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(baseDir, dir)
}

func splitMacro(s string) (string, string) {
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}
