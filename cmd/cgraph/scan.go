package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cgraph/internal/indexer"
	"cgraph/internal/storage"
)

var scanForce bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Index the project's source files",
	Long: `Scan the project root for C/C++ sources and (re)index them into
the symbol store. Unchanged files are skipped unless --force is given.

Examples:
  cgraph scan
  cgraph scan --force
  cgraph scan --project ~/src/fw`,
	Args: cobra.NoArgs,
	Run:  runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "Reindex all files, even unchanged ones")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	app, err := openProject()
	if err != nil {
		fatal("%v", err)
	}
	defer app.close()

	start := time.Now()
	scanner := indexer.NewScanner(app.db, app.cfg, app.logger)
	if err := scanner.ScanProject(context.Background(), app.project.ID, scanForce); err != nil {
		fatal("scan failed: %v", err)
	}

	project, err := storage.NewProjectRepository(app.db).GetByID(app.project.ID)
	if err != nil {
		fatal("failed to reload project: %v", err)
	}

	if jsonOutput() {
		printJSON(project)
		return
	}
	fmt.Printf("%s (%.1fs)\n", project.ScanMessage, time.Since(start).Seconds())
}
