package storage

import (
	"database/sql"
	"fmt"
)

// ModuleRepository provides operations for the modules table
type ModuleRepository struct {
	q Querier
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(q Querier) *ModuleRepository {
	return &ModuleRepository{q: q}
}

// Create inserts a new module definition
func (r *ModuleRepository) Create(m *Module) error {
	res, err := r.q.Exec(`
		INSERT INTO modules (project_id, name, path_pattern, layer, is_locked, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ProjectID, m.Name, m.PathPattern, m.Layer, boolToInt(m.IsLocked), m.Description)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}

	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get module id: %w", err)
	}
	return nil
}

// Upsert creates a module or updates the existing one with the same name
// within the project. Used when applying an architecture definition file.
func (r *ModuleRepository) Upsert(m *Module) error {
	existing, err := r.GetByName(m.ProjectID, m.Name)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.Create(m)
	}

	_, err = r.q.Exec(`
		UPDATE modules SET path_pattern = ?, layer = ?, is_locked = ?, description = ?
		WHERE id = ?
	`, m.PathPattern, m.Layer, boolToInt(m.IsLocked), m.Description, existing.ID)
	if err != nil {
		return fmt.Errorf("failed to update module: %w", err)
	}
	m.ID = existing.ID
	return nil
}

// GetByID retrieves a module by id; nil when absent
func (r *ModuleRepository) GetByID(id int64) (*Module, error) {
	return scanModule(r.q.QueryRow(moduleSelect+" WHERE id = ?", id))
}

// GetByName retrieves a module by name within a project; nil when absent
func (r *ModuleRepository) GetByName(projectID int64, name string) (*Module, error) {
	return scanModule(r.q.QueryRow(moduleSelect+" WHERE project_id = ? AND name = ?", projectID, name))
}

// ListByProject returns all modules of a project in insertion order
func (r *ModuleRepository) ListByProject(projectID int64) ([]*Module, error) {
	rows, err := r.q.Query(moduleSelect+" WHERE project_id = ? ORDER BY id", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []*Module
	for rows.Next() {
		var m Module
		var description sql.NullString
		var isLocked int
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name, &m.PathPattern,
			&m.Layer, &isLocked, &description); err != nil {
			return nil, fmt.Errorf("failed to scan module row: %w", err)
		}
		m.IsLocked = isLocked != 0
		m.Description = description.String
		modules = append(modules, &m)
	}
	return modules, rows.Err()
}

// DeleteByProject removes all module definitions of a project
func (r *ModuleRepository) DeleteByProject(projectID int64) error {
	_, err := r.q.Exec("DELETE FROM modules WHERE project_id = ?", projectID)
	if err != nil {
		return fmt.Errorf("failed to delete modules: %w", err)
	}
	return nil
}

const moduleSelect = `
	SELECT id, project_id, name, path_pattern, layer, is_locked, description
	FROM modules
`

func scanModule(row *sql.Row) (*Module, error) {
	var m Module
	var description sql.NullString
	var isLocked int

	err := row.Scan(&m.ID, &m.ProjectID, &m.Name, &m.PathPattern, &m.Layer, &isLocked, &description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	m.IsLocked = isLocked != 0
	m.Description = description.String
	return &m, nil
}

// RuleRepository provides operations for the architecture_rules table
type RuleRepository struct {
	q Querier
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(q Querier) *RuleRepository {
	return &RuleRepository{q: q}
}

// Create inserts a new architecture rule
func (r *RuleRepository) Create(rule *Rule) error {
	res, err := r.q.Exec(`
		INSERT INTO architecture_rules (
			project_id, name, rule_type, source_module_id, target_module_id,
			pattern, is_active, violation_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ProjectID, rule.Name, string(rule.RuleType),
		nullableInt64(rule.SourceModuleID), nullableInt64(rule.TargetModuleID),
		rule.Pattern, boolToInt(rule.IsActive), rule.ViolationMessage)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	rule.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule id: %w", err)
	}
	return nil
}

// Upsert creates a rule or updates the existing one with the same name
// within the project.
func (r *RuleRepository) Upsert(rule *Rule) error {
	var existingID int64
	err := r.q.QueryRow(`
		SELECT id FROM architecture_rules WHERE project_id = ? AND name = ?
	`, rule.ProjectID, rule.Name).Scan(&existingID)
	if err == sql.ErrNoRows {
		return r.Create(rule)
	}
	if err != nil {
		return fmt.Errorf("failed to look up rule: %w", err)
	}

	_, err = r.q.Exec(`
		UPDATE architecture_rules
		SET rule_type = ?, source_module_id = ?, target_module_id = ?,
		    pattern = ?, is_active = ?, violation_message = ?
		WHERE id = ?
	`, string(rule.RuleType),
		nullableInt64(rule.SourceModuleID), nullableInt64(rule.TargetModuleID),
		rule.Pattern, boolToInt(rule.IsActive), rule.ViolationMessage, existingID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	rule.ID = existingID
	return nil
}

// ListByProject returns all rules of a project
func (r *RuleRepository) ListByProject(projectID int64) ([]*Rule, error) {
	return r.list("WHERE project_id = ?", projectID)
}

// ListActiveByProject returns only rules with is_active set
func (r *RuleRepository) ListActiveByProject(projectID int64) ([]*Rule, error) {
	return r.list("WHERE project_id = ? AND is_active = 1", projectID)
}

func (r *RuleRepository) list(where string, args ...interface{}) ([]*Rule, error) {
	rows, err := r.q.Query(`
		SELECT id, project_id, name, rule_type, source_module_id, target_module_id,
		       pattern, is_active, violation_message
		FROM architecture_rules `+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		var rule Rule
		var ruleType string
		var sourceID, targetID sql.NullInt64
		var pattern, message sql.NullString
		var isActive int

		err := rows.Scan(&rule.ID, &rule.ProjectID, &rule.Name, &ruleType,
			&sourceID, &targetID, &pattern, &isActive, &message)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}

		rule.RuleType = RuleType(ruleType)
		if sourceID.Valid {
			rule.SourceModuleID = &sourceID.Int64
		}
		if targetID.Valid {
			rule.TargetModuleID = &targetID.Int64
		}
		rule.Pattern = pattern.String
		rule.IsActive = isActive != 0
		rule.ViolationMessage = message.String
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}
