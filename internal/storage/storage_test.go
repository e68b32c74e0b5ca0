package storage

import (
	"os"
	"path/filepath"
	"testing"

	"cgraph/internal/logging"
)

func setupTestDB(t *testing.T) (*DB, string) {
	tmpDir, err := os.MkdirTemp("", "cgraph-storage-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := Open(tmpDir, logging.NewNopLogger())
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open database: %v", err)
	}

	return db, tmpDir
}

func teardownTestDB(t *testing.T, db *DB, tmpDir string) {
	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		t.Errorf("Failed to remove temp dir: %v", err)
	}
}

func TestDatabaseInitialization(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	dbPath := filepath.Join(tmpDir, ".cgraph", "cgraph.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", dbPath)
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestProjectScanStatusLifecycle(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	repo := NewProjectRepository(db)
	project, err := repo.Create("demo", "/src/demo")
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	if project.ScanStatus != ScanPending {
		t.Errorf("Expected new project to be pending, got %s", project.ScanStatus)
	}

	if err := repo.UpdateScanStatus(project.ID, ScanScanning, 0.5, "Indexed 5/10 files"); err != nil {
		t.Fatalf("Failed to update scan status: %v", err)
	}
	reloaded, err := repo.GetByID(project.ID)
	if err != nil {
		t.Fatalf("Failed to reload project: %v", err)
	}
	if reloaded.ScanStatus != ScanScanning {
		t.Errorf("Expected scanning, got %s", reloaded.ScanStatus)
	}
	if reloaded.ScanProgress != 0.5 {
		t.Errorf("Expected progress 0.5, got %f", reloaded.ScanProgress)
	}

	if err := repo.UpdateScanStatus(project.ID, ScanCompleted, 1, "done"); err != nil {
		t.Fatalf("Failed to complete scan: %v", err)
	}
	reloaded, _ = repo.GetByID(project.ID)
	if reloaded.ScanStatus != ScanCompleted {
		t.Errorf("Expected completed, got %s", reloaded.ScanStatus)
	}
}

func TestFileGetOrCreateAndStamp(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	projects := NewProjectRepository(db)
	project, _ := projects.Create("demo", "/src/demo")

	files := NewFileRepository(db)
	file, err := files.GetOrCreate("/src/demo/main.c", project.ID)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if file.ContentHash != "" || file.LastModified != 0 {
		t.Error("Expected fresh file to have empty stamps")
	}

	again, err := files.GetOrCreate("/src/demo/main.c", project.ID)
	if err != nil {
		t.Fatalf("Failed to get file: %v", err)
	}
	if again.ID != file.ID {
		t.Errorf("Expected same file row, got %d and %d", file.ID, again.ID)
	}

	if err := files.UpdateStamp(file.ID, 1234, "abcd"); err != nil {
		t.Fatalf("Failed to update stamp: %v", err)
	}
	stamped, _ := files.GetByPath("/src/demo/main.c")
	if stamped.LastModified != 1234 || stamped.ContentHash != "abcd" {
		t.Errorf("Stamp not persisted: %+v", stamped)
	}
}

func TestListUnderRootEscapesLikeWildcards(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	projects := NewProjectRepository(db)
	project, _ := projects.Create("demo", "/src/demo")

	files := NewFileRepository(db)
	inRoot, _ := files.GetOrCreate("/src/demo/a.c", project.ID)
	if _, err := files.GetOrCreate("/src/demo_other/b.c", project.ID); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	listed, err := files.ListUnderRoot("/src/demo")
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != inRoot.ID {
		t.Errorf("Expected only /src/demo/a.c, got %d rows", len(listed))
	}
}

func TestSymbolUSRUniqueness(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	projects := NewProjectRepository(db)
	project, _ := projects.Create("demo", "/src/demo")
	files := NewFileRepository(db)
	file, _ := files.GetOrCreate("/src/demo/a.c", project.ID)

	symbols := NewSymbolRepository(db)
	sym := &Symbol{Name: "f", USR: "c:@F@f", Kind: SymbolFunction, FileID: file.ID, Line: 1, Column: 1}
	if err := symbols.Create(sym); err != nil {
		t.Fatalf("Failed to create symbol: %v", err)
	}

	dup := &Symbol{Name: "f", USR: "c:@F@f", Kind: SymbolFunction, FileID: file.ID, Line: 9, Column: 1}
	if err := symbols.Create(dup); err == nil {
		t.Error("Expected duplicate USR insert to fail")
	}

	found, err := symbols.GetByUSR("c:@F@f")
	if err != nil {
		t.Fatalf("Failed to get by USR: %v", err)
	}
	if found == nil || found.ID != sym.ID {
		t.Error("Expected lookup to return the original row")
	}
}

func TestDanglingReferencesSurviveSymbolDeletion(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	projects := NewProjectRepository(db)
	project, _ := projects.Create("demo", "/src/demo")
	files := NewFileRepository(db)
	fileA, _ := files.GetOrCreate("/src/demo/a.c", project.ID)
	fileB, _ := files.GetOrCreate("/src/demo/b.c", project.ID)

	symbols := NewSymbolRepository(db)
	caller := &Symbol{Name: "caller", USR: "c:@F@caller", Kind: SymbolFunction, FileID: fileA.ID, Line: 1, Column: 1}
	callee := &Symbol{Name: "callee", USR: "c:@F@callee", Kind: SymbolFunction, FileID: fileB.ID, Line: 1, Column: 1}
	if err := symbols.Create(caller); err != nil {
		t.Fatalf("Failed to create caller: %v", err)
	}
	if err := symbols.Create(callee); err != nil {
		t.Fatalf("Failed to create callee: %v", err)
	}

	refs := NewReferenceRepository(db)
	err := refs.Create(&Reference{SourceID: caller.ID, TargetID: callee.ID, Kind: RefCall, FileID: fileA.ID, Line: 3, Column: 5})
	if err != nil {
		t.Fatalf("Failed to create reference: %v", err)
	}

	// Reindexing b.c starts by deleting its symbols. The reference row in
	// a.c must survive, pointing at the now-gone id.
	if err := symbols.DeleteByFileID(fileB.ID); err != nil {
		t.Fatalf("Failed to delete symbols: %v", err)
	}

	remaining, err := refs.ListByFileIDs([]int64{fileA.ID})
	if err != nil {
		t.Fatalf("Failed to list references: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("Expected dangling reference to remain, got %d rows", len(remaining))
	}
	if remaining[0].TargetID != callee.ID {
		t.Errorf("Expected target id %d, got %d", callee.ID, remaining[0].TargetID)
	}

	// The join-based cross-module query must no longer see it.
	crossing, err := refs.ListCrossModule([]int64{fileA.ID}, []int64{fileB.ID})
	if err != nil {
		t.Fatalf("Failed to query cross-module refs: %v", err)
	}
	if len(crossing) != 0 {
		t.Errorf("Expected dangling reference to be invisible to joins, got %d", len(crossing))
	}
}

func TestIncludeCountBetween(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	projects := NewProjectRepository(db)
	project, _ := projects.Create("demo", "/src/demo")
	files := NewFileRepository(db)
	src, _ := files.GetOrCreate("/src/demo/drivers/io.c", project.ID)
	hdr, _ := files.GetOrCreate("/src/demo/core/core.h", project.ID)

	includes := NewIncludeRepository(db)
	for line := 1; line <= 2; line++ {
		err := includes.Create(&Include{SourceFileID: src.ID, TargetPath: hdr.Path, TargetFileID: &hdr.ID, Line: line})
		if err != nil {
			t.Fatalf("Failed to create include: %v", err)
		}
	}
	// Unresolved include, must not count anywhere.
	err := includes.Create(&Include{SourceFileID: src.ID, TargetPath: "stdio.h", Line: 3})
	if err != nil {
		t.Fatalf("Failed to create unresolved include: %v", err)
	}

	n, err := includes.CountBetween([]int64{src.ID}, []int64{hdr.ID})
	if err != nil {
		t.Fatalf("Failed to count includes: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 include edges, got %d", n)
	}

	reverse, _ := includes.CountBetween([]int64{hdr.ID}, []int64{src.ID})
	if reverse != 0 {
		t.Errorf("Expected 0 reverse edges, got %d", reverse)
	}
}

func TestModuleUpsert(t *testing.T) {
	db, tmpDir := setupTestDB(t)
	defer teardownTestDB(t, db, tmpDir)

	projects := NewProjectRepository(db)
	project, _ := projects.Create("demo", "/src/demo")

	modules := NewModuleRepository(db)
	m := &Module{ProjectID: project.ID, Name: "core", PathPattern: "core/*", Layer: 0}
	if err := modules.Upsert(m); err != nil {
		t.Fatalf("Failed to upsert module: %v", err)
	}
	firstID := m.ID

	m2 := &Module{ProjectID: project.ID, Name: "core", PathPattern: "core/*", Layer: 2, IsLocked: true}
	if err := modules.Upsert(m2); err != nil {
		t.Fatalf("Failed to re-upsert module: %v", err)
	}
	if m2.ID != firstID {
		t.Errorf("Expected upsert to reuse id %d, got %d", firstID, m2.ID)
	}

	listed, err := modules.ListByProject(project.ID)
	if err != nil {
		t.Fatalf("Failed to list modules: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("Expected 1 module, got %d", len(listed))
	}
	if listed[0].Layer != 2 || !listed[0].IsLocked {
		t.Errorf("Expected updated fields, got %+v", listed[0])
	}
}
