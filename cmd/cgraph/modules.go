package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cgraph/internal/storage"
)

var modulesAutoDetect bool

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List or auto-detect project modules",
	Long: `List the project's module definitions. With --auto-detect, derive
a module per top-level directory first and assign files to them.

Examples:
  cgraph modules
  cgraph modules --auto-detect`,
	Args: cobra.NoArgs,
	Run:  runModules,
}

func init() {
	modulesCmd.Flags().BoolVar(&modulesAutoDetect, "auto-detect", false,
		"Derive modules from top-level directories before listing")
	rootCmd.AddCommand(modulesCmd)
}

func runModules(cmd *cobra.Command, args []string) {
	app, analyzer := newAnalyzer()
	defer app.close()

	if modulesAutoDetect {
		if _, err := analyzer.AutoDetectModules(); err != nil {
			fatal("%v", err)
		}
	}

	modules, err := storage.NewModuleRepository(app.db).ListByProject(app.project.ID)
	if err != nil {
		fatal("%v", err)
	}

	if jsonOutput() {
		printJSON(modules)
		return
	}
	if len(modules) == 0 {
		fmt.Println("No modules defined")
		return
	}
	for _, m := range modules {
		locked := ""
		if m.IsLocked {
			locked = " [locked]"
		}
		fmt.Printf("layer %d  %-20s %s%s\n", m.Layer, m.Name, m.PathPattern, locked)
	}
}
