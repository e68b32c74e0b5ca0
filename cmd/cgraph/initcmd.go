package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cgraph/internal/config"
	"cgraph/internal/paths"
	"cgraph/internal/storage"
)

var initName string

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a cgraph project",
	Long: `Initialize a cgraph project at the given path (default: current
directory). Creates the .cgraph directory with a default config.json and
an empty database, and registers the project.

Examples:
  cgraph init
  cgraph init ~/src/my-c-project
  cgraph init --name firmware ~/src/fw`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (default: directory name)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	root := projectFlag
	if len(args) == 1 {
		root = args[0]
	}
	if root == "" {
		root = "."
	}
	root, err := paths.Absolutize(root)
	if err != nil {
		fatal("failed to resolve path: %v", err)
	}

	cfg := config.DefaultConfig(root)
	if err := cfg.Save(); err != nil {
		fatal("failed to write config: %v", err)
	}

	logger := newLogger(cfg)
	db, err := storage.Open(root, logger)
	if err != nil {
		fatal("failed to open database: %v", err)
	}
	defer db.Close()

	projects := storage.NewProjectRepository(db)
	project, err := projects.GetByRootPath(root)
	if err != nil {
		fatal("failed to look up project: %v", err)
	}
	if project == nil {
		name := initName
		if name == "" {
			name = filepath.Base(root)
		}
		project, err = projects.Create(name, root)
		if err != nil {
			fatal("failed to create project: %v", err)
		}
	}

	fmt.Printf("Initialized project %q at %s\n", project.Name, root)
}
