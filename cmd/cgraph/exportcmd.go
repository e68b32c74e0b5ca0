package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cgraph/internal/export"
)

var (
	exportSCIPPath string
	exportJSONPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the indexed graph",
	Long: `Export the project's symbol and reference graph. --scip writes a
SCIP protobuf index; --json writes a zstd-compressed JSON dump of the
full graph. At least one output must be chosen.

Examples:
  cgraph export --scip index.scip
  cgraph export --json graph.json.zst
  cgraph export --scip index.scip --json graph.json.zst`,
	Args: cobra.NoArgs,
	Run:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSCIPPath, "scip", "", "Write a SCIP index to this path")
	exportCmd.Flags().StringVar(&exportJSONPath, "json", "", "Write a compressed JSON dump to this path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	if exportSCIPPath == "" && exportJSONPath == "" {
		fatal("nothing to do, pass --scip and/or --json")
	}

	app, err := openProject()
	if err != nil {
		fatal("%v", err)
	}
	defer app.close()

	exporter := export.NewExporter(app.db, app.project)
	if exportSCIPPath != "" {
		if err := exporter.WriteSCIP(exportSCIPPath); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Wrote SCIP index to %s\n", exportSCIPPath)
	}
	if exportJSONPath != "" {
		if err := exporter.WriteJSON(exportJSONPath); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Wrote graph dump to %s\n", exportJSONPath)
	}
}
