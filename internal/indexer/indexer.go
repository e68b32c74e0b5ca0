// Package indexer turns parsed translation units into rows in the symbol
// store. Each source file is indexed as a unit: its previous symbols and
// includes are removed, the file is reparsed, and the fresh facts are
// written in a single transaction.
package indexer

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"cgraph/internal/ast"
	"cgraph/internal/logging"
	"cgraph/internal/paths"
	"cgraph/internal/storage"

	"github.com/minio/highwayhash"
)

var fingerprintKey = []byte("cgraph-file-fingerprint-key-0001")

// Fingerprint returns a short content hash used to detect unchanged files
// between scans.
func Fingerprint(data []byte) (string, error) {
	h, err := highwayhash.New(fingerprintKey)
	if err != nil {
		return "", fmt.Errorf("failed to init fingerprint: %w", err)
	}
	if _, err := h.Write(data); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Indexer extracts symbols, references and includes from C/C++ sources.
type Indexer struct {
	db     *storage.DB
	parser *ast.Parser
	logger *logging.Logger
}

func New(db *storage.DB, logger *logging.Logger) *Indexer {
	return &Indexer{
		db:     db,
		parser: ast.NewParser(),
		logger: logger,
	}
}

// IndexFile reindexes a single source file. Existing symbols and includes
// for the file are deleted and committed before the reparse; the new facts
// are then written in one transaction, so a parse failure leaves the file
// registered but empty rather than half-written. References held by other
// files that pointed at the deleted symbols are left in place.
func (ix *Indexer) IndexFile(ctx context.Context, path string, projectID int64, args []string) error {
	abs, err := paths.Absolutize(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	hash, err := Fingerprint(content)
	if err != nil {
		return err
	}

	var file *storage.File
	err = ix.db.WithTx(func(tx *sql.Tx) error {
		files := storage.NewFileRepository(tx)
		file, err = files.GetOrCreate(abs, projectID)
		if err != nil {
			return err
		}
		if err := storage.NewSymbolRepository(tx).DeleteByFileID(file.ID); err != nil {
			return err
		}
		return storage.NewIncludeRepository(tx).DeleteBySourceFileID(file.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to clear file %s: %w", abs, err)
	}

	tu, err := ix.parser.Parse(ctx, abs, args)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", abs, err)
	}
	defer tu.Close()

	err = ix.db.WithTx(func(tx *sql.Tx) error {
		w := &fileWriter{
			tu:       tu,
			file:     file,
			files:    storage.NewFileRepository(tx),
			symbols:  storage.NewSymbolRepository(tx),
			refs:     storage.NewReferenceRepository(tx),
			includes: storage.NewIncludeRepository(tx),
			cache:    make(map[string]*storage.Symbol),
			logger:   ix.logger,
		}
		if err := w.writeIncludes(); err != nil {
			return err
		}
		if err := w.visit(tu.Root(), 0, false); err != nil {
			return err
		}
		return w.files.UpdateStamp(file.ID, info.ModTime().Unix(), hash)
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", abs, err)
	}
	return nil
}

// fileWriter carries the per-file state of one indexing transaction.
type fileWriter struct {
	tu       *ast.TranslationUnit
	file     *storage.File
	files    *storage.FileRepository
	symbols  *storage.SymbolRepository
	refs     *storage.ReferenceRepository
	includes *storage.IncludeRepository
	cache    map[string]*storage.Symbol
	logger   *logging.Logger
}

func (w *fileWriter) writeIncludes() error {
	for _, inc := range w.tu.Includes() {
		targetPath := inc.ResolvedPath
		if targetPath == "" {
			targetPath = inc.Spelling
		}
		var targetID *int64
		if inc.ResolvedPath != "" {
			target, err := w.files.GetByPath(inc.ResolvedPath)
			if err != nil {
				return err
			}
			if target != nil {
				targetID = &target.ID
			}
		}
		err := w.includes.Create(&storage.Include{
			SourceFileID: w.file.ID,
			TargetPath:   targetPath,
			TargetFileID: targetID,
			Line:         inc.Line,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true,
	"%=": true, "&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

// visit walks the tree depth-first. scopeID is the id of the innermost
// enclosing declaration's symbol, or 0 at the top level. written marks a
// node sitting on the left side of an assignment.
func (w *fileWriter) visit(node *ast.Node, scopeID int64, written bool) error {
	kind := node.Kind()

	childScope := scopeID
	switch kind {
	case ast.KindFunctionDecl, ast.KindStructDecl, ast.KindTypedefDecl, ast.KindVarDecl:
		// Declarations count as much as definitions; a prototype or an
		// extern declaration gets a row with IsDefinition false, and the
		// USR lookup folds a later definition into the same row.
		if node.File() == w.tu.Path() {
			sym, err := w.getOrCreateSymbol(w.tu.DeclFor(node))
			if err != nil {
				return err
			}
			if sym != nil {
				childScope = sym.ID
			}
		}
	}

	if scopeID != 0 {
		switch kind {
		case ast.KindCallExpr:
			if err := w.recordRef(scopeID, node, w.tu.ResolveCall(node), storage.RefCall); err != nil {
				return err
			}
		case ast.KindDeclRef, ast.KindMemberRef:
			if node.IsDeclarationName() {
				break
			}
			refKind := storage.RefRead
			if written {
				refKind = storage.RefWrite
			}
			if err := w.recordRef(scopeID, node, w.tu.Resolve(node), refKind); err != nil {
				return err
			}
		}
	}

	// Assignments mark only their leftmost operand as written; everything
	// to the right of the operator is a read.
	if kind == ast.KindAssignmentOperator || kind == ast.KindBinaryOperator {
		if hasAssignToken(node.OperatorTokens()) {
			children := node.Children()
			if len(children) > 0 {
				if err := w.visit(children[0], childScope, true); err != nil {
					return err
				}
				for _, child := range children[1:] {
					if err := w.visit(child, childScope, false); err != nil {
						return err
					}
				}
			}
			return nil
		}
	}

	for _, child := range node.Children() {
		if err := w.visit(child, childScope, false); err != nil {
			return err
		}
	}
	return nil
}

func hasAssignToken(tokens []string) bool {
	for _, tok := range tokens {
		if assignOps[tok] {
			return true
		}
	}
	return false
}

func (w *fileWriter) recordRef(sourceID int64, site *ast.Node, target *ast.Decl, kind storage.RefKind) error {
	if target == nil {
		return nil
	}
	sym, err := w.getOrCreateSymbol(target)
	if err != nil {
		return err
	}
	if sym == nil {
		return nil
	}
	return w.refs.Create(&storage.Reference{
		SourceID: sourceID,
		TargetID: sym.ID,
		Kind:     kind,
		FileID:   w.file.ID,
		Line:     site.Line(),
		Column:   site.Column(),
	})
}

// getOrCreateSymbol returns the stored symbol for a declaration, creating
// it on first encounter. The USR is the identity: a later encounter under
// the same USR returns the original row untouched.
func (w *fileWriter) getOrCreateSymbol(decl *ast.Decl) (*storage.Symbol, error) {
	if decl == nil || decl.USR == "" {
		return nil, nil
	}
	if sym, ok := w.cache[decl.USR]; ok {
		return sym, nil
	}
	sym, err := w.symbols.GetByUSR(decl.USR)
	if err != nil {
		return nil, err
	}
	if sym != nil {
		w.cache[decl.USR] = sym
		return sym, nil
	}

	endLine := decl.EndLine
	sym = &storage.Symbol{
		Name:         decl.Name,
		USR:          decl.USR,
		Kind:         symbolKind(decl.Kind),
		Signature:    declSignature(decl),
		FileID:       w.file.ID,
		Line:         decl.Line,
		Column:       decl.Column,
		EndLine:      &endLine,
		IsStatic:     decl.IsStatic,
		IsExtern:     decl.IsExtern,
		IsDefinition: decl.IsDefinition,
	}
	if decl.Kind == ast.KindFunctionDecl && decl.IsDefinition && decl.Node != nil {
		sym.CyclomaticComplexity = CyclomaticComplexity(decl.Node)
	}
	if err := w.symbols.Create(sym); err != nil {
		return nil, err
	}
	w.cache[decl.USR] = sym
	return sym, nil
}

func symbolKind(kind ast.NodeKind) storage.SymbolKind {
	switch kind {
	case ast.KindFunctionDecl:
		return storage.SymbolFunction
	case ast.KindStructDecl:
		return storage.SymbolStruct
	case ast.KindTypedefDecl:
		return storage.SymbolTypedef
	case ast.KindMacroDefinition:
		return storage.SymbolMacro
	case ast.KindFieldDecl:
		return storage.SymbolField
	case ast.KindEnumDecl:
		return storage.SymbolEnum
	case ast.KindUnionDecl:
		return storage.SymbolUnion
	default:
		return storage.SymbolVariable
	}
}

const maxSignatureLen = 500

// declSignature builds a one-line signature from the declaration's source
// extent, falling back to the display name when no extent is available.
func declSignature(decl *ast.Decl) string {
	if decl.Node == nil {
		return decl.Name
	}
	text := strings.Join(strings.Fields(decl.Node.ExtentText()), " ")
	if text == "" {
		return decl.Node.DisplayName()
	}
	if len(text) > maxSignatureLen {
		text = text[:maxSignatureLen] + "..."
	}
	return text
}
