package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"cgraph/internal/storage"
	"cgraph/internal/version"
)

// GraphDump is the schema of the compressed JSON export: the complete
// indexed graph of one project.
type GraphDump struct {
	Tool       string               `json:"tool"`
	Version    string               `json:"version"`
	ExportedAt time.Time            `json:"exportedAt"`
	Project    *storage.Project     `json:"project"`
	Files      []*storage.File      `json:"files"`
	Symbols    []*storage.Symbol    `json:"symbols"`
	References []*storage.Reference `json:"references"`
	Includes   []*storage.Include   `json:"includes"`
	Modules    []*storage.Module    `json:"modules"`
	Rules      []*storage.Rule      `json:"rules"`
}

// WriteJSON writes the whole project graph as zstd-compressed JSON.
func (e *Exporter) WriteJSON(outPath string) error {
	dump, err := e.collect()
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer out.Close()

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("failed to init compressor: %w", err)
	}

	enc := json.NewEncoder(zw)
	if err := enc.Encode(dump); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return nil
}

// ReadJSON loads a graph dump written by WriteJSON.
func ReadJSON(path string) (*GraphDump, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer in.Close()

	zr, err := zstd.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to init decompressor: %w", err)
	}
	defer zr.Close()

	var dump GraphDump
	if err := json.NewDecoder(zr).Decode(&dump); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &dump, nil
}

func (e *Exporter) collect() (*GraphDump, error) {
	files := storage.NewFileRepository(e.db)
	symbols := storage.NewSymbolRepository(e.db)
	refs := storage.NewReferenceRepository(e.db)
	includes := storage.NewIncludeRepository(e.db)
	modules := storage.NewModuleRepository(e.db)
	rules := storage.NewRuleRepository(e.db)

	dump := &GraphDump{
		Tool:       "cgraph",
		Version:    version.Version,
		ExportedAt: time.Now().UTC(),
		Project:    e.project,
	}

	fileRows, err := files.ListUnderRoot(e.project.RootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load project files: %w", err)
	}
	dump.Files = fileRows

	ids := make([]int64, 0, len(fileRows))
	for _, f := range fileRows {
		ids = append(ids, f.ID)
	}

	if dump.Symbols, err = symbols.ListByFileIDs(ids); err != nil {
		return nil, err
	}
	if dump.References, err = refs.ListByFileIDs(ids); err != nil {
		return nil, err
	}
	if dump.Includes, err = includes.ListBySourceFiles(ids); err != nil {
		return nil, err
	}
	if dump.Modules, err = modules.ListByProject(e.project.ID); err != nil {
		return nil, err
	}
	if dump.Rules, err = rules.ListByProject(e.project.ID); err != nil {
		return nil, err
	}
	return dump, nil
}
