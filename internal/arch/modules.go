package arch

import (
	"fmt"
	"path/filepath"
	"sort"

	"cgraph/internal/paths"
	"cgraph/internal/storage"
)

// AutoDetectModules derives a module per top-level directory of the
// project and assigns every file to the module of its first path segment.
// Segments are numbered alphabetically, so the layers are stable across
// runs; files sitting directly in the root stay unassigned. Existing
// modules with the same name are updated, not duplicated.
func (a *Analyzer) AutoDetectModules() ([]*storage.Module, error) {
	files := storage.NewFileRepository(a.db)
	modules := storage.NewModuleRepository(a.db)

	rows, err := files.ListUnderRoot(a.project.RootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load project files: %w", err)
	}

	grouped := make(map[string][]*storage.File)
	var order []string
	for _, f := range rows {
		rel := paths.RelativeTo(f.Path, a.project.RootPath)
		seg := paths.FirstSegment(rel)
		if seg == "" {
			continue
		}
		if _, seen := grouped[seg]; !seen {
			order = append(order, seg)
		}
		grouped[seg] = append(grouped[seg], f)
	}
	sort.Strings(order)

	var detected []*storage.Module
	for layer, name := range order {
		m := &storage.Module{
			ProjectID:   a.project.ID,
			Name:        name,
			PathPattern: name + "/*",
			Layer:       layer,
			Description: "Auto-detected module: " + name,
		}
		if err := modules.Upsert(m); err != nil {
			return nil, err
		}
		for _, f := range grouped[name] {
			if err := files.AssignModule(f.ID, &m.ID); err != nil {
				return nil, err
			}
		}
		detected = append(detected, m)
	}

	a.logger.Info("auto-detected modules", map[string]interface{}{
		"count": len(detected),
	})
	return detected, nil
}

// StructureNode is a file or directory in the project structure graph.
type StructureNode struct {
	ID   string
	Kind string
	Path string
}

// StructureEdge links an including file to an included one.
type StructureEdge struct {
	From string
	To   string
}

// StructureGraph is a browsable view of the project: directory and file
// nodes plus the resolved include edges between files.
type StructureGraph struct {
	Nodes []StructureNode
	Edges []StructureEdge
}

// GetStructureGraph builds the structure view from the include graph.
// Directories are synthesized from the file paths; edge endpoints use the
// root-relative path as the node id.
func (a *Analyzer) GetStructureGraph() (*StructureGraph, error) {
	ig, err := a.BuildIncludeGraph()
	if err != nil {
		return nil, err
	}

	sg := &StructureGraph{}
	seenDirs := make(map[string]bool)
	relByID := make(map[int64]string, len(ig.Files))

	fileIDs := ig.Graph.Nodes()
	for _, id := range fileIDs {
		rel := paths.RelativeTo(ig.Files[id].Path, a.project.RootPath)
		relByID[id] = rel
		for dir := filepath.Dir(rel); dir != "." && dir != "/"; dir = filepath.Dir(dir) {
			if seenDirs[dir] {
				break
			}
			seenDirs[dir] = true
		}
	}

	dirs := make([]string, 0, len(seenDirs))
	for dir := range seenDirs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		sg.Nodes = append(sg.Nodes, StructureNode{ID: dir, Kind: "directory", Path: dir})
	}
	for _, id := range fileIDs {
		sg.Nodes = append(sg.Nodes, StructureNode{ID: relByID[id], Kind: "file", Path: relByID[id]})
	}
	for _, edge := range ig.Graph.Edges() {
		sg.Edges = append(sg.Edges, StructureEdge{From: relByID[edge[0]], To: relByID[edge[1]]})
	}
	return sg, nil
}
