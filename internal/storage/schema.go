package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		if err := createProjectsTable(tx); err != nil {
			return err
		}
		if err := createFilesTable(tx); err != nil {
			return err
		}
		if err := createSymbolsTable(tx); err != nil {
			return err
		}
		if err := createReferencesTable(tx); err != nil {
			return err
		}
		if err := createIncludesTable(tx); err != nil {
			return err
		}
		if err := createModulesTable(tx); err != nil {
			return err
		}
		if err := createArchitectureRulesTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Run migrations sequentially as the schema evolves

	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createProjectsTable creates the projects table. The scan status columns
// are the externally observable state of an in-flight scan; readers poll
// them and the indexer commits transitions together with the scan data.
func createProjectsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			root_path TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			scan_status TEXT NOT NULL DEFAULT 'pending'
				CHECK(scan_status IN ('pending', 'scanning', 'completed', 'failed')),
			scan_progress REAL NOT NULL DEFAULT 0.0,
			scan_message TEXT,
			compile_commands_path TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create projects table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name)",
	}
	return createIndexes(tx, indexes)
}

// createFilesTable creates the files table
func createFilesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			last_modified INTEGER NOT NULL DEFAULT 0,
			content_hash TEXT NOT NULL DEFAULT '',
			project_id INTEGER,
			module_id INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create files table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_files_project_id ON files(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_files_module_id ON files(module_id)",
	}
	return createIndexes(tx, indexes)
}

// createSymbolsTable creates the symbols table. The unique constraint on usr
// is the identity invariant: one row per canonical entity at all times.
func createSymbolsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS symbols (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			usr TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			signature TEXT,
			file_id INTEGER NOT NULL,
			line INTEGER NOT NULL,
			column INTEGER NOT NULL,
			end_line INTEGER,
			cyclomatic_complexity INTEGER NOT NULL DEFAULT 0,
			is_static INTEGER NOT NULL DEFAULT 0,
			is_extern INTEGER NOT NULL DEFAULT 0,
			is_definition INTEGER NOT NULL DEFAULT 1
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create symbols table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_file_id ON symbols(file_id)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind)",
	}
	return createIndexes(tx, indexes)
}

// createReferencesTable creates the refs table. There is deliberately no
// foreign-key cascade from symbols: re-indexing a file deletes its symbols
// by file_id and leaves refs pointing at the old ids (analysis queries join
// through symbols, so dangling rows stay invisible).
func createReferencesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS refs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id INTEGER NOT NULL,
			target_id INTEGER NOT NULL,
			kind TEXT NOT NULL CHECK(kind IN ('call', 'read', 'write')),
			file_id INTEGER NOT NULL,
			line INTEGER NOT NULL,
			column INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create refs table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_refs_source_id ON refs(source_id)",
		"CREATE INDEX IF NOT EXISTS idx_refs_target_id ON refs(target_id)",
		"CREATE INDEX IF NOT EXISTS idx_refs_file_id ON refs(file_id)",
	}
	return createIndexes(tx, indexes)
}

// createIncludesTable creates the includes table
func createIncludesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS includes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_file_id INTEGER NOT NULL,
			target_path TEXT NOT NULL,
			target_file_id INTEGER,
			line INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create includes table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_includes_source_file_id ON includes(source_file_id)",
		"CREATE INDEX IF NOT EXISTS idx_includes_target_file_id ON includes(target_file_id)",
	}
	return createIndexes(tx, indexes)
}

// createModulesTable creates the modules table
func createModulesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS modules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			path_pattern TEXT NOT NULL,
			layer INTEGER NOT NULL DEFAULT 0,
			is_locked INTEGER NOT NULL DEFAULT 0,
			description TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create modules table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_modules_project_id ON modules(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_modules_name ON modules(name)",
	}
	return createIndexes(tx, indexes)
}

// createArchitectureRulesTable creates the architecture_rules table
func createArchitectureRulesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS architecture_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			rule_type TEXT NOT NULL
				CHECK(rule_type IN ('layer_violation', 'locked_module', 'forbidden_call')),
			source_module_id INTEGER,
			target_module_id INTEGER,
			pattern TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			violation_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create architecture_rules table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_architecture_rules_project_id ON architecture_rules(project_id)",
	}
	return createIndexes(tx, indexes)
}

func createIndexes(tx *sql.Tx, indexes []string) error {
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
