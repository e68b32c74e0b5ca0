package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project scan status",
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	app, err := openProject()
	if err != nil {
		fatal("%v", err)
	}
	defer app.close()

	if jsonOutput() {
		printJSON(app.project)
		return
	}
	p := app.project
	fmt.Printf("Project:  %s\n", p.Name)
	fmt.Printf("Root:     %s\n", p.RootPath)
	fmt.Printf("Status:   %s (%.0f%%)\n", p.ScanStatus, p.ScanProgress*100)
	if p.ScanMessage != "" {
		fmt.Printf("Message:  %s\n", p.ScanMessage)
	}
	if p.CompileCommandsPath != "" {
		fmt.Printf("Compdb:   %s\n", p.CompileCommandsPath)
	}
}
