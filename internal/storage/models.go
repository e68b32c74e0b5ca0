package storage

import "time"

// SymbolKind classifies a declared entity.
type SymbolKind string

const (
	SymbolFunction SymbolKind = "function"
	SymbolVariable SymbolKind = "variable"
	SymbolStruct   SymbolKind = "struct"
	SymbolTypedef  SymbolKind = "typedef"
	SymbolMacro    SymbolKind = "macro"
	SymbolField    SymbolKind = "field"
	SymbolEnum     SymbolKind = "enum"
	SymbolUnion    SymbolKind = "union"
)

// RefKind classifies a reference between symbols.
type RefKind string

const (
	RefCall  RefKind = "call"
	RefRead  RefKind = "read"
	RefWrite RefKind = "write"
)

// RuleType identifies the kind of architecture rule.
type RuleType string

const (
	RuleLayerViolation RuleType = "layer_violation"
	RuleLockedModule   RuleType = "locked_module"
	RuleForbiddenCall  RuleType = "forbidden_call"
)

// ScanStatus represents the lifecycle state of a project scan.
// Transitions only pending → scanning → {completed, failed}.
type ScanStatus string

const (
	ScanPending   ScanStatus = "pending"
	ScanScanning  ScanStatus = "scanning"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)

// Project is one indexed codebase rooted at RootPath.
type Project struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	RootPath            string     `json:"rootPath"`
	CreatedAt           time.Time  `json:"createdAt"`
	ScanStatus          ScanStatus `json:"scanStatus"`
	ScanProgress        float64    `json:"scanProgress"`
	ScanMessage         string     `json:"scanMessage"`
	CompileCommandsPath string     `json:"compileCommandsPath"`
}

// File is one source file row. Path is absolute and unique; LastModified is
// the mtime recorded at index time and ContentHash a fingerprint of the file
// body, both used for unchanged-file detection on re-scan.
type File struct {
	ID           int64  `json:"id"`
	Path         string `json:"path"`
	LastModified int64  `json:"lastModified"`
	ContentHash  string `json:"contentHash"`
	ProjectID    int64  `json:"projectId"`
	ModuleID     *int64 `json:"moduleId"`
}

// Symbol is one declared entity. Identity is the USR: the first encounter of
// a USR creates the row, all later encounters resolve to it.
type Symbol struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	USR                  string     `json:"usr"`
	Kind                 SymbolKind `json:"kind"`
	Signature            string     `json:"signature"`
	FileID               int64      `json:"fileId"`
	Line                 int        `json:"line"`
	Column               int        `json:"column"`
	EndLine              *int       `json:"endLine"`
	CyclomaticComplexity int        `json:"cyclomaticComplexity"`
	IsStatic             bool       `json:"isStatic"`
	IsExtern             bool       `json:"isExtern"`
	IsDefinition         bool       `json:"isDefinition"`
}

// Reference records one use of a symbol from inside an enclosing scope.
// SourceID is always non-null at creation time; references occurring outside
// any tracked scope are never recorded.
type Reference struct {
	ID       int64   `json:"id"`
	SourceID int64   `json:"sourceId"`
	TargetID int64   `json:"targetId"`
	Kind     RefKind `json:"kind"`
	FileID   int64   `json:"fileId"`
	Line     int     `json:"line"`
	Column   int     `json:"column"`
}

// Include is one #include edge. TargetFileID is nil when the header is not
// part of the indexed project; such edges are excluded from graph algorithms
// that require both endpoints.
type Include struct {
	ID           int64  `json:"id"`
	SourceFileID int64  `json:"sourceFileId"`
	TargetPath   string `json:"targetPath"`
	TargetFileID *int64 `json:"targetFileId"`
	Line         int    `json:"line"`
}

// Module maps a path pattern to an architectural layer. Layer 0 is the
// lowest; lower layers must not depend on higher ones.
type Module struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"projectId"`
	Name        string `json:"name"`
	PathPattern string `json:"pathPattern"`
	Layer       int    `json:"layer"`
	IsLocked    bool   `json:"isLocked"`
	Description string `json:"description"`
}

// Rule is one architecture governance rule.
type Rule struct {
	ID               int64    `json:"id"`
	ProjectID        int64    `json:"projectId"`
	Name             string   `json:"name"`
	RuleType         RuleType `json:"ruleType"`
	SourceModuleID   *int64   `json:"sourceModuleId"`
	TargetModuleID   *int64   `json:"targetModuleId"`
	Pattern          string   `json:"pattern"`
	IsActive         bool     `json:"isActive"`
	ViolationMessage string   `json:"violationMessage"`
}
