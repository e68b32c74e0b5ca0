package arch

import (
	"fmt"

	"cgraph/internal/storage"
)

// Violation is one architecture rule breach, reported per offending
// reference.
type Violation struct {
	RuleID       int64
	RuleName     string
	RuleType     storage.RuleType
	Message      string
	FileID       int64
	Line         int
	TargetSymbol string
}

// CheckArchitectureViolations evaluates the project's active rules.
// Layer rules flag every cross-module reference that goes from a lower
// layer into a higher one. Locked-module rules reserve the mechanism for
// enforcing frozen modules; they currently produce no findings, as do
// forbidden-call rules, whose patterns are stored but not yet matched.
func (a *Analyzer) CheckArchitectureViolations() ([]*Violation, error) {
	rules := storage.NewRuleRepository(a.db)

	active, err := rules.ListActiveByProject(a.project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	var violations []*Violation
	for _, rule := range active {
		switch rule.RuleType {
		case storage.RuleLayerViolation:
			found, err := a.checkLayerRule(rule)
			if err != nil {
				return nil, err
			}
			violations = append(violations, found...)
		case storage.RuleLockedModule, storage.RuleForbiddenCall:
			// Recognized but not evaluated yet.
		}
	}
	return violations, nil
}

func (a *Analyzer) checkLayerRule(rule *storage.Rule) ([]*Violation, error) {
	if rule.SourceModuleID == nil || rule.TargetModuleID == nil {
		return nil, nil
	}

	modules := storage.NewModuleRepository(a.db)
	source, err := modules.GetByID(*rule.SourceModuleID)
	if err != nil {
		return nil, err
	}
	target, err := modules.GetByID(*rule.TargetModuleID)
	if err != nil {
		return nil, err
	}
	if source == nil || target == nil {
		return nil, nil
	}

	// Only upward references are breaches: a lower layer reaching into a
	// higher one. Downward references are the intended direction.
	if source.Layer >= target.Layer {
		return nil, nil
	}

	sourceFiles, err := a.moduleFileIDs(source.ID)
	if err != nil {
		return nil, err
	}
	targetFiles, err := a.moduleFileIDs(target.ID)
	if err != nil {
		return nil, err
	}

	refs := storage.NewReferenceRepository(a.db)
	crossing, err := refs.ListCrossModule(sourceFiles, targetFiles)
	if err != nil {
		return nil, err
	}

	var violations []*Violation
	for _, cr := range crossing {
		message := rule.ViolationMessage
		if message == "" {
			message = fmt.Sprintf("Lower layer '%s' (layer %d) calls upper layer '%s' (layer %d)",
				source.Name, source.Layer, target.Name, target.Layer)
		}
		violations = append(violations, &Violation{
			RuleID:       rule.ID,
			RuleName:     rule.Name,
			RuleType:     rule.RuleType,
			Message:      message,
			FileID:       cr.Ref.FileID,
			Line:         cr.Ref.Line,
			TargetSymbol: cr.TargetName,
		})
	}
	return violations, nil
}

func (a *Analyzer) moduleFileIDs(moduleID int64) ([]int64, error) {
	files, err := storage.NewFileRepository(a.db).ListByModule(moduleID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids, nil
}
