// Package arch derives architecture-level views from the symbol store:
// the include graph, dependency cycles, levelization, module dependency
// matrices, rule violations and complexity hotspots.
package arch

import (
	"fmt"
	"sort"

	"cgraph/internal/graph"
	"cgraph/internal/logging"
	"cgraph/internal/storage"
)

// Analyzer answers architecture queries for a single project.
type Analyzer struct {
	db      *storage.DB
	project *storage.Project
	logger  *logging.Logger
}

func NewAnalyzer(db *storage.DB, project *storage.Project, logger *logging.Logger) *Analyzer {
	return &Analyzer{db: db, project: project, logger: logger}
}

// IncludeGraph is the file-level dependency graph, with a lookup from
// node id back to the file row.
type IncludeGraph struct {
	Graph *graph.Directed
	Files map[int64]*storage.File
}

// BuildIncludeGraph loads every file under the project root as a node and
// adds an edge for each include whose target resolved to a project file.
// Unresolved includes (system headers, missing files) contribute no edge.
func (a *Analyzer) BuildIncludeGraph() (*IncludeGraph, error) {
	files := storage.NewFileRepository(a.db)
	includes := storage.NewIncludeRepository(a.db)

	rows, err := files.ListUnderRoot(a.project.RootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load project files: %w", err)
	}

	g := graph.NewDirected()
	byID := make(map[int64]*storage.File, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, f := range rows {
		g.AddNode(f.ID)
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}

	incs, err := includes.ListBySourceFiles(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load includes: %w", err)
	}
	for _, inc := range incs {
		if inc.TargetFileID == nil {
			continue
		}
		if _, ok := byID[*inc.TargetFileID]; !ok {
			continue
		}
		g.AddEdge(inc.SourceFileID, *inc.TargetFileID)
	}

	return &IncludeGraph{Graph: g, Files: byID}, nil
}

// Cycle is a strongly connected group of files that include each other,
// directly or transitively.
type Cycle struct {
	FileIDs []int64
	Paths   []string
}

// DetectCircularDependencies returns the include cycles of the project.
// Single files are never reported, even when they include themselves.
func (a *Analyzer) DetectCircularDependencies() ([]*Cycle, error) {
	ig, err := a.BuildIncludeGraph()
	if err != nil {
		return nil, err
	}

	var cycles []*Cycle
	for _, comp := range ig.Graph.StronglyConnectedComponents() {
		if len(comp) < 2 {
			continue
		}
		c := &Cycle{FileIDs: comp}
		for _, id := range comp {
			c.Paths = append(c.Paths, ig.Files[id].Path)
		}
		cycles = append(cycles, c)
	}
	return cycles, nil
}

// ComputeLevelization assigns a level to every file in the include graph.
//
// When the graph is acyclic a file's level is the length of the longest
// include chain leading to it: files nothing includes sit at level 0.
// When cycles exist the graph is condensed to its strongly connected
// components first, and every file inherits the topological position of
// its component, so members of one cycle share a level. Any failure to
// order the graph yields an empty map rather than an error.
func (a *Analyzer) ComputeLevelization() (map[int64]int, error) {
	ig, err := a.BuildIncludeGraph()
	if err != nil {
		return nil, err
	}
	g := ig.Graph

	levels := make(map[int64]int, g.Len())

	order, err := g.TopologicalSort()
	if err == nil {
		for _, id := range order {
			level := 0
			for _, pred := range g.Predecessors(id) {
				if l := levels[pred] + 1; l > level {
					level = l
				}
			}
			levels[id] = level
		}
		return levels, nil
	}

	cond := g.Condense()
	compOrder, err := cond.DAG.TopologicalSort()
	if err != nil {
		a.logger.Warn("failed to order condensed include graph", map[string]interface{}{
			"error": err.Error(),
		})
		return map[int64]int{}, nil
	}
	position := make(map[int64]int, len(compOrder))
	for i, comp := range compOrder {
		position[comp] = i
	}
	for id, comp := range cond.ComponentOf {
		levels[id] = position[int64(comp)]
	}
	return levels, nil
}

// ModuleMatrix is the module-level dependency matrix. Cell [i][j] counts
// the include edges from files of Modules[i] into files of Modules[j];
// the diagonal is always zero.
type ModuleMatrix struct {
	Modules []*storage.Module
	Counts  [][]int
}

// GetModuleDependencyMatrix counts include edges between every ordered
// pair of the project's modules.
func (a *Analyzer) GetModuleDependencyMatrix() (*ModuleMatrix, error) {
	modules := storage.NewModuleRepository(a.db)
	files := storage.NewFileRepository(a.db)
	includes := storage.NewIncludeRepository(a.db)

	mods, err := modules.ListByProject(a.project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}

	fileIDs := make([][]int64, len(mods))
	for i, m := range mods {
		moduleFiles, err := files.ListByModule(m.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range moduleFiles {
			fileIDs[i] = append(fileIDs[i], f.ID)
		}
	}

	counts := make([][]int, len(mods))
	for i := range mods {
		counts[i] = make([]int, len(mods))
		for j := range mods {
			if i == j {
				continue
			}
			n, err := includes.CountBetween(fileIDs[i], fileIDs[j])
			if err != nil {
				return nil, err
			}
			counts[i][j] = n
		}
	}

	return &ModuleMatrix{Modules: mods, Counts: counts}, nil
}

// Hotspot ranks a file by the summed cyclomatic complexity of the
// functions defined in it.
type Hotspot struct {
	File            *storage.File
	TotalComplexity int
	SymbolCount     int
	FunctionCount   int
	AvgComplexity   float64
}

// GetHotspotFiles returns the topN most complex files of the project,
// most complex first. Every project file gets an entry; symbol-free
// files rank at the bottom with zero counts.
func (a *Analyzer) GetHotspotFiles(topN int) ([]*Hotspot, error) {
	files := storage.NewFileRepository(a.db)
	symbols := storage.NewSymbolRepository(a.db)

	rows, err := files.ListUnderRoot(a.project.RootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load project files: %w", err)
	}
	ids := make([]int64, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, f.ID)
	}

	agg, err := symbols.AggregateComplexityByFile(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate complexity: %w", err)
	}

	hotspots := make([]*Hotspot, 0, len(rows))
	for _, f := range rows {
		h := &Hotspot{File: f}
		if fc, ok := agg[f.ID]; ok {
			h.TotalComplexity = fc.TotalComplexity
			h.SymbolCount = fc.SymbolCount
			h.FunctionCount = fc.FunctionCount
			if fc.FunctionCount > 0 {
				h.AvgComplexity = float64(fc.TotalComplexity) / float64(fc.FunctionCount)
			}
		}
		hotspots = append(hotspots, h)
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].TotalComplexity != hotspots[j].TotalComplexity {
			return hotspots[i].TotalComplexity > hotspots[j].TotalComplexity
		}
		return hotspots[i].File.Path < hotspots[j].File.Path
	})
	if topN > 0 && len(hotspots) > topN {
		hotspots = hotspots[:topN]
	}
	return hotspots, nil
}
