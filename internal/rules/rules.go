// Package rules loads architecture definitions from a YAML file and
// applies them to a project: module boundaries, layering and the rules
// checked against the indexed reference graph.
package rules

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cgraph/internal/config"
	"cgraph/internal/logging"
	"cgraph/internal/paths"
	"cgraph/internal/storage"
)

// DefinitionFileName is looked up inside the project's config directory.
const DefinitionFileName = "architecture.yaml"

// Definition is the parsed architecture file.
type Definition struct {
	Modules []ModuleDef `yaml:"modules"`
	Rules   []RuleDef   `yaml:"rules"`
}

// ModuleDef declares a module: a name, a glob matched against
// root-relative file paths, and a layer number (lower = closer to the
// foundation).
type ModuleDef struct {
	Name        string `yaml:"name"`
	PathPattern string `yaml:"pathPattern"`
	Layer       int    `yaml:"layer"`
	Locked      bool   `yaml:"locked"`
	Description string `yaml:"description"`
}

// RuleDef declares a rule over module pairs. Type is one of
// layer_violation, locked_module or forbidden_call.
type RuleDef struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	SourceModule string `yaml:"sourceModule"`
	TargetModule string `yaml:"targetModule"`
	Pattern      string `yaml:"pattern"`
	Message      string `yaml:"message"`
	Active       *bool  `yaml:"active"`
}

// DefinitionPath returns where the architecture file lives for a project
// root.
func DefinitionPath(projectRoot string) string {
	return filepath.Join(projectRoot, config.ConfigDirName, DefinitionFileName)
}

// Load reads and validates an architecture definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read architecture file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse architecture file: %w", err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) validate() error {
	names := make(map[string]bool, len(d.Modules))
	for _, m := range d.Modules {
		if m.Name == "" {
			return fmt.Errorf("module without a name")
		}
		if names[m.Name] {
			return fmt.Errorf("duplicate module %q", m.Name)
		}
		if m.PathPattern == "" {
			return fmt.Errorf("module %q has no pathPattern", m.Name)
		}
		names[m.Name] = true
	}
	for _, r := range d.Rules {
		switch storage.RuleType(r.Type) {
		case storage.RuleLayerViolation, storage.RuleLockedModule, storage.RuleForbiddenCall:
		default:
			return fmt.Errorf("rule %q has unknown type %q", r.Name, r.Type)
		}
		if r.SourceModule != "" && !names[r.SourceModule] {
			return fmt.Errorf("rule %q references unknown module %q", r.Name, r.SourceModule)
		}
		if r.TargetModule != "" && !names[r.TargetModule] {
			return fmt.Errorf("rule %q references unknown module %q", r.Name, r.TargetModule)
		}
	}
	return nil
}

// Applier writes an architecture definition into the store and assigns
// files to modules by pattern.
type Applier struct {
	db     *storage.DB
	logger *logging.Logger
}

func NewApplier(db *storage.DB, logger *logging.Logger) *Applier {
	return &Applier{db: db, logger: logger}
}

// Apply upserts the definition's modules and rules for the project and
// reassigns every file to the first module whose pattern matches its
// root-relative path. Previous assignments are cleared first, so modules
// removed from the file release their files.
func (ap *Applier) Apply(project *storage.Project, def *Definition) error {
	modules := storage.NewModuleRepository(ap.db)
	ruleRepo := storage.NewRuleRepository(ap.db)
	files := storage.NewFileRepository(ap.db)

	moduleIDs := make(map[string]int64, len(def.Modules))
	ordered := make([]*storage.Module, 0, len(def.Modules))
	for _, md := range def.Modules {
		m := &storage.Module{
			ProjectID:   project.ID,
			Name:        md.Name,
			PathPattern: md.PathPattern,
			Layer:       md.Layer,
			IsLocked:    md.Locked,
			Description: md.Description,
		}
		if err := modules.Upsert(m); err != nil {
			return err
		}
		moduleIDs[m.Name] = m.ID
		ordered = append(ordered, m)
	}

	for _, rd := range def.Rules {
		rule := &storage.Rule{
			ProjectID:        project.ID,
			Name:             rd.Name,
			RuleType:         storage.RuleType(rd.Type),
			Pattern:          rd.Pattern,
			IsActive:         rd.Active == nil || *rd.Active,
			ViolationMessage: rd.Message,
		}
		if id, ok := moduleIDs[rd.SourceModule]; ok {
			rule.SourceModuleID = &id
		}
		if id, ok := moduleIDs[rd.TargetModule]; ok {
			rule.TargetModuleID = &id
		}
		if err := ruleRepo.Upsert(rule); err != nil {
			return err
		}
	}

	if err := files.ClearModuleAssignments(project.ID); err != nil {
		return err
	}

	rows, err := files.ListUnderRoot(project.RootPath)
	if err != nil {
		return err
	}
	assigned := 0
	for _, f := range rows {
		rel := paths.RelativeTo(f.Path, project.RootPath)
		for _, m := range ordered {
			if matchesPattern(m.PathPattern, rel) {
				id := m.ID
				if err := files.AssignModule(f.ID, &id); err != nil {
					return err
				}
				assigned++
				break
			}
		}
	}

	ap.logger.Info("architecture definition applied", map[string]interface{}{
		"modules":        len(def.Modules),
		"rules":          len(def.Rules),
		"files_assigned": assigned,
	})
	return nil
}

// matchesPattern matches a root-relative path against a module pattern.
// A pattern like "core/*" covers the whole subtree, not just the first
// level, so nested files still land in the module.
func matchesPattern(pattern, rel string) bool {
	rel = filepath.ToSlash(rel)
	if ok, err := path.Match(pattern, rel); err == nil && ok {
		return true
	}
	if prefix, found := trimSuffix(pattern, "/*"); found {
		if rel == prefix {
			return true
		}
		if len(rel) > len(prefix) && rel[:len(prefix)] == prefix && rel[len(prefix)] == '/' {
			return true
		}
	}
	return false
}

func trimSuffix(s, suffix string) (string, bool) {
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)], true
	}
	return s, false
}
