package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cgraph/internal/config"
	"cgraph/internal/logging"
	"cgraph/internal/paths"
	"cgraph/internal/storage"
	"cgraph/internal/version"
)

var (
	// projectFlag is the CLI --project flag value
	projectFlag string
	logLevel    string
	formatFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "cgraph",
	Short: "cgraph - C/C++ dependency and architecture analyzer",
	Long: `cgraph indexes C/C++ codebases into a symbol and reference graph and
answers architecture questions about them: include cycles, levelization,
module dependency matrices, layering violations and complexity hotspots.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("cgraph version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "",
		"Project root directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, or error (default: from config)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human",
		"Output format (json, human)")
}

func jsonOutput() bool {
	return formatFlag == "json"
}

// appContext bundles everything a command needs for one invocation.
type appContext struct {
	cfg     *config.Config
	db      *storage.DB
	project *storage.Project
	logger  *logging.Logger
}

func (a *appContext) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// resolveRoot determines the project root from the flag or the working
// directory.
func resolveRoot() (string, error) {
	root := projectFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	return paths.Absolutize(root)
}

// openProject loads config, opens the store and resolves the project row
// for the chosen root. The project must have been initialized first.
func openProject() (*appContext, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	db, err := storage.Open(root, logger)
	if err != nil {
		return nil, err
	}

	project, err := storage.NewProjectRepository(db).GetByRootPath(root)
	if err != nil {
		db.Close()
		return nil, err
	}
	if project == nil {
		db.Close()
		return nil, fmt.Errorf("no project at %s, run 'cgraph init' first", root)
	}

	return &appContext{cfg: cfg, db: db, project: project, logger: logger}, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(level),
	})
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
