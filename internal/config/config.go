// Package config loads cgraph project configuration.
//
// Configuration lives under <projectRoot>/.cgraph/config.json and can be
// overridden through CGRAPH_* environment variables. Predefined macros for
// the parser are kept in a separate macros.toml next to it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigDirName is the per-project directory holding config and the database.
const ConfigDirName = ".cgraph"

// Config represents the complete cgraph configuration
type Config struct {
	Version     int            `json:"version" mapstructure:"version"`
	ProjectRoot string         `json:"projectRoot" mapstructure:"projectRoot"`
	Scan        ScanConfig     `json:"scan" mapstructure:"scan"`
	Analysis    AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Logging     LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// ScanConfig controls the project scan loop
type ScanConfig struct {
	// Extensions lists the source file suffixes to index
	Extensions []string `json:"extensions" mapstructure:"extensions"`

	// IgnoreDirs are directory names pruned during the walk
	IgnoreDirs []string `json:"ignoreDirs" mapstructure:"ignoreDirs"`

	// CompileCommandsPath overrides compile_commands.json discovery
	CompileCommandsPath string `json:"compileCommandsPath" mapstructure:"compileCommandsPath"`

	// SkipUnchanged skips files whose mtime and content hash match the store
	SkipUnchanged bool `json:"skipUnchanged" mapstructure:"skipUnchanged"`
}

// AnalysisConfig controls the architecture analyzer defaults
type AnalysisConfig struct {
	// HotspotTopN is the default number of hotspot files reported
	HotspotTopN int `json:"hotspotTopN" mapstructure:"hotspotTopN"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultConfig returns a config with sensible defaults for a C/C++ project
func DefaultConfig(projectRoot string) *Config {
	return &Config{
		Version:     1,
		ProjectRoot: projectRoot,
		Scan: ScanConfig{
			Extensions:    []string{".c", ".h", ".cpp", ".hpp", ".cc", ".cxx"},
			IgnoreDirs:    []string{".git", "build", "venv", "node_modules"},
			SkipUnchanged: true,
		},
		Analysis: AnalysisConfig{
			HotspotTopN: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "human",
		},
	}
}

// Load reads configuration for a project root. A missing config file is not
// an error; defaults apply and environment variables may still override.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, ConfigDirName))

	v.SetEnvPrefix("CGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig(projectRoot)
	v.SetDefault("version", defaults.Version)
	v.SetDefault("projectRoot", defaults.ProjectRoot)
	v.SetDefault("scan.extensions", defaults.Scan.Extensions)
	v.SetDefault("scan.ignoreDirs", defaults.Scan.IgnoreDirs)
	v.SetDefault("scan.skipUnchanged", defaults.Scan.SkipUnchanged)
	v.SetDefault("analysis.hotspotTopN", defaults.Analysis.HotspotTopN)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	return &cfg, nil
}

// Save writes the configuration to .cgraph/config.json
func (c *Config) Save() error {
	dir := filepath.Join(c.ProjectRoot, ConfigDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
