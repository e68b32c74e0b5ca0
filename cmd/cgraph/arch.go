package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"cgraph/internal/arch"
	"cgraph/internal/paths"
)

var hotspotTop int

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Detect circular include dependencies",
	Args:  cobra.NoArgs,
	Run:   runCycles,
}

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Compute the levelization of the include graph",
	Long: `Assign a level to every file in the include graph. In an acyclic
graph a file's level is the longest include chain leading to it; when
cycles exist levels come from the condensed graph, so cycle members
share a level.`,
	Args: cobra.NoArgs,
	Run:  runLayers,
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Show the module dependency matrix",
	Args:  cobra.NoArgs,
	Run:   runMatrix,
}

var violationsCmd = &cobra.Command{
	Use:   "violations",
	Short: "Check architecture rules against the indexed graph",
	Args:  cobra.NoArgs,
	Run:   runViolations,
}

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Rank files by total cyclomatic complexity",
	Args:  cobra.NoArgs,
	Run:   runHotspots,
}

func init() {
	hotspotsCmd.Flags().IntVar(&hotspotTop, "top", 0, "Number of files to show (default: from config)")
	rootCmd.AddCommand(cyclesCmd)
	rootCmd.AddCommand(layersCmd)
	rootCmd.AddCommand(matrixCmd)
	rootCmd.AddCommand(violationsCmd)
	rootCmd.AddCommand(hotspotsCmd)
}

func newAnalyzer() (*appContext, *arch.Analyzer) {
	app, err := openProject()
	if err != nil {
		fatal("%v", err)
	}
	return app, arch.NewAnalyzer(app.db, app.project, app.logger)
}

func runCycles(cmd *cobra.Command, args []string) {
	app, analyzer := newAnalyzer()
	defer app.close()

	cycles, err := analyzer.DetectCircularDependencies()
	if err != nil {
		fatal("%v", err)
	}

	if jsonOutput() {
		printJSON(cycles)
		return
	}
	if len(cycles) == 0 {
		fmt.Println("No circular include dependencies found")
		return
	}
	for i, c := range cycles {
		fmt.Printf("Cycle %d (%d files):\n", i+1, len(c.Paths))
		for _, p := range c.Paths {
			fmt.Printf("  %s\n", paths.RelativeTo(p, app.project.RootPath))
		}
	}
}

func runLayers(cmd *cobra.Command, args []string) {
	app, analyzer := newAnalyzer()
	defer app.close()

	levels, err := analyzer.ComputeLevelization()
	if err != nil {
		fatal("%v", err)
	}
	ig, err := analyzer.BuildIncludeGraph()
	if err != nil {
		fatal("%v", err)
	}

	type entry struct {
		Path  string `json:"path"`
		Level int    `json:"level"`
	}
	entries := make([]entry, 0, len(levels))
	for id, level := range levels {
		entries = append(entries, entry{
			Path:  paths.RelativeTo(ig.Files[id].Path, app.project.RootPath),
			Level: level,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level < entries[j].Level
		}
		return entries[i].Path < entries[j].Path
	})

	if jsonOutput() {
		printJSON(entries)
		return
	}
	for _, e := range entries {
		fmt.Printf("%3d  %s\n", e.Level, e.Path)
	}
}

func runMatrix(cmd *cobra.Command, args []string) {
	app, analyzer := newAnalyzer()
	defer app.close()

	matrix, err := analyzer.GetModuleDependencyMatrix()
	if err != nil {
		fatal("%v", err)
	}

	if jsonOutput() {
		type jsonMatrix struct {
			Modules []string `json:"modules"`
			Counts  [][]int  `json:"counts"`
		}
		names := make([]string, len(matrix.Modules))
		for i, m := range matrix.Modules {
			names[i] = m.Name
		}
		printJSON(jsonMatrix{Modules: names, Counts: matrix.Counts})
		return
	}

	if len(matrix.Modules) == 0 {
		fmt.Println("No modules defined, run 'cgraph modules --auto-detect' or 'cgraph rules apply'")
		return
	}
	width := 0
	for _, m := range matrix.Modules {
		if len(m.Name) > width {
			width = len(m.Name)
		}
	}
	fmt.Printf("%*s", width+2, "")
	for _, m := range matrix.Modules {
		fmt.Printf("%*s", width+2, m.Name)
	}
	fmt.Println()
	for i, m := range matrix.Modules {
		fmt.Printf("%*s", width+2, m.Name)
		for j := range matrix.Modules {
			fmt.Printf("%*d", width+2, matrix.Counts[i][j])
		}
		fmt.Println()
	}
}

func runViolations(cmd *cobra.Command, args []string) {
	app, analyzer := newAnalyzer()
	defer app.close()

	violations, err := analyzer.CheckArchitectureViolations()
	if err != nil {
		fatal("%v", err)
	}

	if jsonOutput() {
		printJSON(violations)
		return
	}
	if len(violations) == 0 {
		fmt.Println("No architecture violations found")
		return
	}
	for _, v := range violations {
		fmt.Printf("[%s] %s: %s (line %d, target %s)\n",
			v.RuleType, v.RuleName, v.Message, v.Line, v.TargetSymbol)
	}
}

func runHotspots(cmd *cobra.Command, args []string) {
	app, analyzer := newAnalyzer()
	defer app.close()

	top := hotspotTop
	if top == 0 {
		top = app.cfg.Analysis.HotspotTopN
	}

	hotspots, err := analyzer.GetHotspotFiles(top)
	if err != nil {
		fatal("%v", err)
	}

	if jsonOutput() {
		printJSON(hotspots)
		return
	}
	if len(hotspots) == 0 {
		fmt.Println("No complexity data, run 'cgraph scan' first")
		return
	}
	fmt.Printf("%-8s %-6s %-6s %-6s %s\n", "TOTAL", "SYMS", "FUNCS", "AVG", "FILE")
	for _, h := range hotspots {
		fmt.Printf("%-8d %-6d %-6d %-6.1f %s\n", h.TotalComplexity, h.SymbolCount,
			h.FunctionCount, h.AvgComplexity, paths.RelativeTo(h.File.Path, app.project.RootPath))
	}
}
