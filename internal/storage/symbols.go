package storage

import (
	"database/sql"
	"fmt"
)

// SymbolRepository provides CRUD operations for the symbols table
type SymbolRepository struct {
	q Querier
}

// NewSymbolRepository creates a new symbol repository
func NewSymbolRepository(q Querier) *SymbolRepository {
	return &SymbolRepository{q: q}
}

// GetByUSR retrieves a symbol by its canonical identifier; nil when absent
func (r *SymbolRepository) GetByUSR(usr string) (*Symbol, error) {
	return scanSymbol(r.q.QueryRow(symbolSelect+" WHERE usr = ?", usr))
}

// GetByID retrieves a symbol by id; nil when absent
func (r *SymbolRepository) GetByID(id int64) (*Symbol, error) {
	return scanSymbol(r.q.QueryRow(symbolSelect+" WHERE id = ?", id))
}

// Create inserts a new symbol row. The unique constraint on usr enforces the
// identity invariant; callers look up by USR first (see GetOrCreate on the
// indexer side) so a constraint failure here indicates a concurrent writer.
func (r *SymbolRepository) Create(s *Symbol) error {
	res, err := r.q.Exec(`
		INSERT INTO symbols (
			name, usr, kind, signature, file_id, line, column, end_line,
			cyclomatic_complexity, is_static, is_extern, is_definition
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.Name, s.USR, string(s.Kind), s.Signature, s.FileID, s.Line, s.Column,
		nullableInt(s.EndLine), s.CyclomaticComplexity,
		boolToInt(s.IsStatic), boolToInt(s.IsExtern), boolToInt(s.IsDefinition),
	)
	if err != nil {
		return fmt.Errorf("failed to create symbol: %w", err)
	}

	s.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get symbol id: %w", err)
	}
	return nil
}

// DeleteByFileID removes all symbols declared in a file. This is the
// incremental-update reset before a reparse; references pointing at the
// deleted ids are intentionally left in place.
func (r *SymbolRepository) DeleteByFileID(fileID int64) error {
	_, err := r.q.Exec("DELETE FROM symbols WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete symbols for file: %w", err)
	}
	return nil
}

// ListByFileID returns all symbols declared in a file
func (r *SymbolRepository) ListByFileID(fileID int64) ([]*Symbol, error) {
	rows, err := r.q.Query(symbolSelect+" WHERE file_id = ? ORDER BY line, column", fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	return scanSymbols(rows)
}

// ListByFileIDs returns all symbols declared in any of the given files
func (r *SymbolRepository) ListByFileIDs(fileIDs []int64) ([]*Symbol, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(
		symbolSelect+" WHERE file_id IN ("+inPlaceholders(len(fileIDs))+")",
		int64Args(fileIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	return scanSymbols(rows)
}

// FileComplexity aggregates symbol metrics for one file: total cyclomatic
// complexity across its symbols, total symbol count, and function count.
type FileComplexity struct {
	FileID          int64
	TotalComplexity int
	SymbolCount     int
	FunctionCount   int
}

// AggregateComplexityByFile computes per-file complexity rollups for the
// given files in one pass. Files with no symbols are omitted.
func (r *SymbolRepository) AggregateComplexityByFile(fileIDs []int64) (map[int64]*FileComplexity, error) {
	result := make(map[int64]*FileComplexity)
	if len(fileIDs) == 0 {
		return result, nil
	}

	rows, err := r.q.Query(`
		SELECT file_id,
		       COALESCE(SUM(cyclomatic_complexity), 0),
		       COUNT(*),
		       SUM(CASE WHEN kind = 'function' THEN 1 ELSE 0 END)
		FROM symbols
		WHERE file_id IN (`+inPlaceholders(len(fileIDs))+`)
		GROUP BY file_id
	`, int64Args(fileIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate complexity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fc FileComplexity
		if err := rows.Scan(&fc.FileID, &fc.TotalComplexity, &fc.SymbolCount, &fc.FunctionCount); err != nil {
			return nil, fmt.Errorf("failed to scan complexity row: %w", err)
		}
		result[fc.FileID] = &fc
	}
	return result, rows.Err()
}

const symbolSelect = `
	SELECT id, name, usr, kind, signature, file_id, line, column, end_line,
	       cyclomatic_complexity, is_static, is_extern, is_definition
	FROM symbols
`

func scanSymbol(row *sql.Row) (*Symbol, error) {
	var s Symbol
	var signature sql.NullString
	var endLine sql.NullInt64
	var kind string
	var isStatic, isExtern, isDefinition int

	err := row.Scan(&s.ID, &s.Name, &s.USR, &kind, &signature, &s.FileID,
		&s.Line, &s.Column, &endLine, &s.CyclomaticComplexity,
		&isStatic, &isExtern, &isDefinition)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}

	s.Kind = SymbolKind(kind)
	s.Signature = signature.String
	if endLine.Valid {
		v := int(endLine.Int64)
		s.EndLine = &v
	}
	s.IsStatic = isStatic != 0
	s.IsExtern = isExtern != 0
	s.IsDefinition = isDefinition != 0
	return &s, nil
}

func scanSymbols(rows *sql.Rows) ([]*Symbol, error) {
	var symbols []*Symbol
	for rows.Next() {
		var s Symbol
		var signature sql.NullString
		var endLine sql.NullInt64
		var kind string
		var isStatic, isExtern, isDefinition int

		err := rows.Scan(&s.ID, &s.Name, &s.USR, &kind, &signature, &s.FileID,
			&s.Line, &s.Column, &endLine, &s.CyclomaticComplexity,
			&isStatic, &isExtern, &isDefinition)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol row: %w", err)
		}

		s.Kind = SymbolKind(kind)
		s.Signature = signature.String
		if endLine.Valid {
			v := int(endLine.Int64)
			s.EndLine = &v
		}
		s.IsStatic = isStatic != 0
		s.IsExtern = isExtern != 0
		s.IsDefinition = isDefinition != 0
		symbols = append(symbols, &s)
	}
	return symbols, rows.Err()
}

// ReferenceRepository provides operations for the refs table
type ReferenceRepository struct {
	q Querier
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(q Querier) *ReferenceRepository {
	return &ReferenceRepository{q: q}
}

// Create inserts a new reference. SourceID must be a valid symbol id; the
// indexer never records references outside a tracked scope.
func (r *ReferenceRepository) Create(ref *Reference) error {
	res, err := r.q.Exec(`
		INSERT INTO refs (source_id, target_id, kind, file_id, line, column)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ref.SourceID, ref.TargetID, string(ref.Kind), ref.FileID, ref.Line, ref.Column)
	if err != nil {
		return fmt.Errorf("failed to create reference: %w", err)
	}

	ref.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get reference id: %w", err)
	}
	return nil
}

// ListBySourceSymbol returns all references made from inside a scope symbol
func (r *ReferenceRepository) ListBySourceSymbol(sourceID int64) ([]*Reference, error) {
	rows, err := r.q.Query(`
		SELECT id, source_id, target_id, kind, file_id, line, column
		FROM refs WHERE source_id = ? ORDER BY line, column
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer rows.Close()

	return scanReferences(rows)
}

// ListByFileIDs returns all references recorded in the given files
func (r *ReferenceRepository) ListByFileIDs(fileIDs []int64) ([]*Reference, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(`
		SELECT id, source_id, target_id, kind, file_id, line, column
		FROM refs WHERE file_id IN (`+inPlaceholders(len(fileIDs))+`)
	`, int64Args(fileIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer rows.Close()

	return scanReferences(rows)
}

// CrossModuleRef is a reference joined with its target symbol, produced when
// hunting for references that cross a module boundary.
type CrossModuleRef struct {
	Ref        Reference
	TargetName string
}

// ListCrossModule returns references recorded in any of sourceFileIDs whose
// target symbol is declared in any of targetFileIDs. The join through the
// symbols table means references to deleted symbol ids never surface here.
func (r *ReferenceRepository) ListCrossModule(sourceFileIDs, targetFileIDs []int64) ([]*CrossModuleRef, error) {
	if len(sourceFileIDs) == 0 || len(targetFileIDs) == 0 {
		return nil, nil
	}

	args := append(int64Args(sourceFileIDs), int64Args(targetFileIDs)...)
	rows, err := r.q.Query(`
		SELECT r.id, r.source_id, r.target_id, r.kind, r.file_id, r.line, r.column, s.name
		FROM refs r
		JOIN symbols s ON r.target_id = s.id
		WHERE r.file_id IN (`+inPlaceholders(len(sourceFileIDs))+`)
		  AND s.file_id IN (`+inPlaceholders(len(targetFileIDs))+`)
		ORDER BY r.file_id, r.line
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cross-module references: %w", err)
	}
	defer rows.Close()

	var result []*CrossModuleRef
	for rows.Next() {
		var cr CrossModuleRef
		var kind string
		err := rows.Scan(&cr.Ref.ID, &cr.Ref.SourceID, &cr.Ref.TargetID, &kind,
			&cr.Ref.FileID, &cr.Ref.Line, &cr.Ref.Column, &cr.TargetName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cross-module row: %w", err)
		}
		cr.Ref.Kind = RefKind(kind)
		result = append(result, &cr)
	}
	return result, rows.Err()
}

func scanReferences(rows *sql.Rows) ([]*Reference, error) {
	var refs []*Reference
	for rows.Next() {
		var ref Reference
		var kind string
		if err := rows.Scan(&ref.ID, &ref.SourceID, &ref.TargetID, &kind,
			&ref.FileID, &ref.Line, &ref.Column); err != nil {
			return nil, fmt.Errorf("failed to scan reference row: %w", err)
		}
		ref.Kind = RefKind(kind)
		refs = append(refs, &ref)
	}
	return refs, rows.Err()
}

// IncludeRepository provides operations for the includes table
type IncludeRepository struct {
	q Querier
}

// NewIncludeRepository creates a new include repository
func NewIncludeRepository(q Querier) *IncludeRepository {
	return &IncludeRepository{q: q}
}

// Create inserts one #include edge
func (r *IncludeRepository) Create(inc *Include) error {
	res, err := r.q.Exec(`
		INSERT INTO includes (source_file_id, target_path, target_file_id, line)
		VALUES (?, ?, ?, ?)
	`, inc.SourceFileID, inc.TargetPath, nullableInt64(inc.TargetFileID), inc.Line)
	if err != nil {
		return fmt.Errorf("failed to create include: %w", err)
	}

	inc.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get include id: %w", err)
	}
	return nil
}

// DeleteBySourceFileID removes all include edges recorded for a file
func (r *IncludeRepository) DeleteBySourceFileID(fileID int64) error {
	_, err := r.q.Exec("DELETE FROM includes WHERE source_file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete includes for file: %w", err)
	}
	return nil
}

// ListBySourceFiles returns every include edge originating in the given files
func (r *IncludeRepository) ListBySourceFiles(fileIDs []int64) ([]*Include, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(`
		SELECT id, source_file_id, target_path, target_file_id, line
		FROM includes WHERE source_file_id IN (`+inPlaceholders(len(fileIDs))+`)
	`, int64Args(fileIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list includes: %w", err)
	}
	defer rows.Close()

	var includes []*Include
	for rows.Next() {
		var inc Include
		var target sql.NullInt64
		if err := rows.Scan(&inc.ID, &inc.SourceFileID, &inc.TargetPath, &target, &inc.Line); err != nil {
			return nil, fmt.Errorf("failed to scan include row: %w", err)
		}
		if target.Valid {
			inc.TargetFileID = &target.Int64
		}
		includes = append(includes, &inc)
	}
	return includes, rows.Err()
}

// CountBetween counts resolved include edges from any source file to any
// target file. Used to fill one cell of the module dependency matrix.
func (r *IncludeRepository) CountBetween(sourceFileIDs, targetFileIDs []int64) (int, error) {
	if len(sourceFileIDs) == 0 || len(targetFileIDs) == 0 {
		return 0, nil
	}

	args := append(int64Args(sourceFileIDs), int64Args(targetFileIDs)...)
	var count int
	err := r.q.QueryRow(`
		SELECT COUNT(*)
		FROM includes
		WHERE source_file_id IN (`+inPlaceholders(len(sourceFileIDs))+`)
		  AND target_file_id IN (`+inPlaceholders(len(targetFileIDs))+`)
	`, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count includes: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
