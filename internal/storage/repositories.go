package storage

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"
)

// ProjectRepository provides CRUD operations for the projects table
type ProjectRepository struct {
	q Querier
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(q Querier) *ProjectRepository {
	return &ProjectRepository{q: q}
}

// Create inserts a new project in pending scan state
func (r *ProjectRepository) Create(name, rootPath string) (*Project, error) {
	now := time.Now().UTC()
	res, err := r.q.Exec(`
		INSERT INTO projects (name, root_path, created_at, scan_status, scan_progress)
		VALUES (?, ?, ?, ?, 0.0)
	`, name, rootPath, now.Format(time.RFC3339), string(ScanPending))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get project id: %w", err)
	}

	return &Project{
		ID:         id,
		Name:       name,
		RootPath:   rootPath,
		CreatedAt:  now,
		ScanStatus: ScanPending,
	}, nil
}

// GetByID retrieves a project by id; returns nil when absent
func (r *ProjectRepository) GetByID(id int64) (*Project, error) {
	return r.scanOne(r.q.QueryRow(`
		SELECT id, name, root_path, created_at, scan_status, scan_progress,
		       scan_message, compile_commands_path
		FROM projects WHERE id = ?
	`, id))
}

// GetByRootPath retrieves a project by its root path; returns nil when absent
func (r *ProjectRepository) GetByRootPath(rootPath string) (*Project, error) {
	return r.scanOne(r.q.QueryRow(`
		SELECT id, name, root_path, created_at, scan_status, scan_progress,
		       scan_message, compile_commands_path
		FROM projects WHERE root_path = ?
	`, rootPath))
}

// List returns all projects
func (r *ProjectRepository) List() ([]*Project, error) {
	rows, err := r.q.Query(`
		SELECT id, name, root_path, created_at, scan_status, scan_progress,
		       scan_message, compile_commands_path
		FROM projects ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateScanStatus persists a scan state transition together with progress
// and a free-text message. Observers poll this row during a scan.
func (r *ProjectRepository) UpdateScanStatus(id int64, status ScanStatus, progress float64, message string) error {
	_, err := r.q.Exec(`
		UPDATE projects SET scan_status = ?, scan_progress = ?, scan_message = ?
		WHERE id = ?
	`, string(status), progress, message, id)
	if err != nil {
		return fmt.Errorf("failed to update scan status: %w", err)
	}
	return nil
}

// SetCompileCommandsPath records where the compilation database was found
func (r *ProjectRepository) SetCompileCommandsPath(id int64, path string) error {
	_, err := r.q.Exec("UPDATE projects SET compile_commands_path = ? WHERE id = ?", path, id)
	if err != nil {
		return fmt.Errorf("failed to set compile commands path: %w", err)
	}
	return nil
}

func (r *ProjectRepository) scanOne(row *sql.Row) (*Project, error) {
	var p Project
	var createdAt string
	var message, compPath sql.NullString
	var status string

	err := row.Scan(&p.ID, &p.Name, &p.RootPath, &createdAt, &status,
		&p.ScanProgress, &message, &compPath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p.ScanStatus = ScanStatus(status)
	p.ScanMessage = message.String
	p.CompileCommandsPath = compPath.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (r *ProjectRepository) scanRow(rows *sql.Rows) (*Project, error) {
	var p Project
	var createdAt string
	var message, compPath sql.NullString
	var status string

	err := rows.Scan(&p.ID, &p.Name, &p.RootPath, &createdAt, &status,
		&p.ScanProgress, &message, &compPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan project row: %w", err)
	}

	p.ScanStatus = ScanStatus(status)
	p.ScanMessage = message.String
	p.CompileCommandsPath = compPath.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// FileRepository provides CRUD operations for the files table
type FileRepository struct {
	q Querier
}

// NewFileRepository creates a new file repository
func NewFileRepository(q Querier) *FileRepository {
	return &FileRepository{q: q}
}

// GetByPath retrieves a file by its absolute path; returns nil when absent
func (r *FileRepository) GetByPath(path string) (*File, error) {
	var f File
	var moduleID sql.NullInt64
	err := r.q.QueryRow(`
		SELECT id, path, last_modified, content_hash, project_id, module_id
		FROM files WHERE path = ?
	`, path).Scan(&f.ID, &f.Path, &f.LastModified, &f.ContentHash, &f.ProjectID, &moduleID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if moduleID.Valid {
		f.ModuleID = &moduleID.Int64
	}
	return &f, nil
}

// GetOrCreate resolves the row for an absolute path, creating it with empty
// stamps on first encounter. Stamps are written separately (UpdateStamp)
// once a reparse succeeds, so a crashed scan can never make a stale file
// look up to date.
func (r *FileRepository) GetOrCreate(path string, projectID int64) (*File, error) {
	existing, err := r.GetByPath(path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	res, err := r.q.Exec(`
		INSERT INTO files (path, last_modified, content_hash, project_id)
		VALUES (?, 0, '', ?)
	`, path, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get file id: %w", err)
	}

	return &File{
		ID:        id,
		Path:      path,
		ProjectID: projectID,
	}, nil
}

// UpdateStamp records the mtime and content fingerprint observed at the
// moment a file was (re)indexed.
func (r *FileRepository) UpdateStamp(fileID, lastModified int64, contentHash string) error {
	_, err := r.q.Exec(`
		UPDATE files SET last_modified = ?, content_hash = ? WHERE id = ?
	`, lastModified, contentHash, fileID)
	if err != nil {
		return fmt.Errorf("failed to update file stamp: %w", err)
	}
	return nil
}

// ListUnderRoot returns every file whose path equals the root or lies below
// it. Membership is decided by path prefix, not by the stored project_id, so
// nested sub-project views work without duplicating rows.
func (r *FileRepository) ListUnderRoot(root string) ([]*File, error) {
	rows, err := r.q.Query(`
		SELECT id, path, last_modified, content_hash, project_id, module_id
		FROM files
		WHERE path = ? OR path LIKE ? ESCAPE '\'
		ORDER BY path
	`, root, likePrefix(root+string(os.PathSeparator)))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	return scanFiles(rows)
}

// ListByModule returns files assigned to a module
func (r *FileRepository) ListByModule(moduleID int64) ([]*File, error) {
	rows, err := r.q.Query(`
		SELECT id, path, last_modified, content_hash, project_id, module_id
		FROM files WHERE module_id = ? ORDER BY path
	`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list module files: %w", err)
	}
	defer rows.Close()

	return scanFiles(rows)
}

// AssignModule sets the module a file belongs to (nil clears it)
func (r *FileRepository) AssignModule(fileID int64, moduleID *int64) error {
	var val interface{}
	if moduleID != nil {
		val = *moduleID
	}
	_, err := r.q.Exec("UPDATE files SET module_id = ? WHERE id = ?", val, fileID)
	if err != nil {
		return fmt.Errorf("failed to assign module: %w", err)
	}
	return nil
}

// ClearModuleAssignments detaches all files of a project from their modules
func (r *FileRepository) ClearModuleAssignments(projectID int64) error {
	_, err := r.q.Exec("UPDATE files SET module_id = NULL WHERE project_id = ?", projectID)
	if err != nil {
		return fmt.Errorf("failed to clear module assignments: %w", err)
	}
	return nil
}

func scanFiles(rows *sql.Rows) ([]*File, error) {
	var files []*File
	for rows.Next() {
		var f File
		var moduleID sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Path, &f.LastModified, &f.ContentHash, &f.ProjectID, &moduleID); err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		if moduleID.Valid {
			f.ModuleID = &moduleID.Int64
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}

// likePrefix escapes LIKE metacharacters so a path prefix match cannot be
// widened by _ or % in directory names.
func likePrefix(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return escaped + "%"
}

// inPlaceholders renders "?, ?, ?" for n values
func inPlaceholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// int64Args converts ids to driver arguments
func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
