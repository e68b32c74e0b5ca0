// Package export serializes an indexed project to external formats: a
// SCIP index consumable by code-intelligence tooling, and a compressed
// JSON dump of the full graph.
package export

import (
	"fmt"
	"os"
	"sort"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"cgraph/internal/paths"
	"cgraph/internal/storage"
	"cgraph/internal/version"
)

// Exporter reads a project back out of the store.
type Exporter struct {
	db      *storage.DB
	project *storage.Project
}

func NewExporter(db *storage.DB, project *storage.Project) *Exporter {
	return &Exporter{db: db, project: project}
}

// WriteSCIP writes the project as a SCIP index. Each project file becomes
// a document; symbol definitions and references become occurrences with
// the matching roles.
func (e *Exporter) WriteSCIP(outPath string) error {
	files := storage.NewFileRepository(e.db)
	symbols := storage.NewSymbolRepository(e.db)
	refs := storage.NewReferenceRepository(e.db)

	rows, err := files.ListUnderRoot(e.project.RootPath)
	if err != nil {
		return fmt.Errorf("failed to load project files: %w", err)
	}

	index := &scippb.Index{
		Metadata: &scippb.Metadata{
			Version: scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scippb.ToolInfo{
				Name:    "cgraph",
				Version: version.Version,
			},
			ProjectRoot:          "file://" + e.project.RootPath,
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
		},
	}

	symbolNames := make(map[int64]string)
	for _, f := range rows {
		doc, err := e.buildDocument(f, symbols, refs, symbolNames)
		if err != nil {
			return err
		}
		index.Documents = append(index.Documents, doc)
	}

	data, err := proto.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

func (e *Exporter) buildDocument(f *storage.File, symbols *storage.SymbolRepository,
	refs *storage.ReferenceRepository, names map[int64]string) (*scippb.Document, error) {

	doc := &scippb.Document{
		RelativePath: paths.RelativeTo(f.Path, e.project.RootPath),
		Language:     languageForPath(f.Path),
	}

	syms, err := symbols.ListByFileID(f.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range syms {
		name := scipSymbol(s)
		names[s.ID] = name
		doc.Symbols = append(doc.Symbols, &scippb.SymbolInformation{
			Symbol:      name,
			DisplayName: s.Name,
			Kind:        scipKind(s.Kind),
		})
		if s.IsDefinition {
			doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
				Range:       occurrenceRange(s.Line, s.Column, len(s.Name)),
				Symbol:      name,
				SymbolRoles: int32(scippb.SymbolRole_Definition),
			})
		}
	}

	fileRefs, err := refs.ListByFileIDs([]int64{f.ID})
	if err != nil {
		return nil, err
	}
	for _, r := range fileRefs {
		name, ok := names[r.TargetID]
		if !ok {
			target, err := symbols.GetByID(r.TargetID)
			if err != nil {
				return nil, err
			}
			if target == nil {
				continue
			}
			name = scipSymbol(target)
			names[r.TargetID] = name
		}
		role := scippb.SymbolRole_ReadAccess
		if r.Kind == storage.RefWrite {
			role = scippb.SymbolRole_WriteAccess
		}
		doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
			Range:       occurrenceRange(r.Line, r.Column, 1),
			Symbol:      name,
			SymbolRoles: int32(role),
		})
	}

	sort.Slice(doc.Occurrences, func(i, j int) bool {
		a, b := doc.Occurrences[i].Range, doc.Occurrences[j].Range
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	return doc, nil
}

// scipSymbol derives a SCIP symbol string from the stored identity. The
// descriptor is the escaped USR, which is already unique per symbol.
func scipSymbol(s *storage.Symbol) string {
	descriptor := "`" + strings.ReplaceAll(s.USR, "`", "``") + "`"
	switch s.Kind {
	case storage.SymbolFunction, storage.SymbolMacro:
		descriptor += "()."
	case storage.SymbolStruct, storage.SymbolUnion, storage.SymbolEnum, storage.SymbolTypedef:
		descriptor += "#"
	default:
		descriptor += "."
	}
	return "cgraph . . . " + descriptor
}

func scipKind(kind storage.SymbolKind) scippb.SymbolInformation_Kind {
	switch kind {
	case storage.SymbolFunction:
		return scippb.SymbolInformation_Function
	case storage.SymbolStruct:
		return scippb.SymbolInformation_Struct
	case storage.SymbolTypedef:
		return scippb.SymbolInformation_TypeAlias
	case storage.SymbolMacro:
		return scippb.SymbolInformation_Macro
	case storage.SymbolField:
		return scippb.SymbolInformation_Field
	case storage.SymbolEnum:
		return scippb.SymbolInformation_Enum
	case storage.SymbolUnion:
		return scippb.SymbolInformation_Union
	default:
		return scippb.SymbolInformation_Variable
	}
}

// occurrenceRange converts 1-based line/column to a SCIP half-open range.
func occurrenceRange(line, column, length int) []int32 {
	start := int32(line - 1)
	startChar := int32(column - 1)
	if startChar < 0 {
		startChar = 0
	}
	return []int32{start, startChar, start, startChar + int32(length)}
}

func languageForPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".c") || strings.HasSuffix(path, ".h"):
		return "c"
	default:
		return "cpp"
	}
}
