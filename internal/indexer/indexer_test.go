package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cgraph/internal/config"
	"cgraph/internal/logging"
	"cgraph/internal/paths"
	"cgraph/internal/storage"
)

func setupIndexTest(t *testing.T) (*storage.DB, *storage.Project, string) {
	tmpDir, err := os.MkdirTemp("", "cgraph-indexer-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	root, err := paths.Absolutize(tmpDir)
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}

	db, err := storage.Open(root, logging.NewNopLogger())
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open database: %v", err)
	}

	project, err := storage.NewProjectRepository(db).Create("test", root)
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.RemoveAll(tmpDir)
	})
	return db, project, root
}

func writeSource(t *testing.T, root, name, content string) string {
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create source dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}
	return path
}

func TestIndexFileSymbolsAndReferences(t *testing.T) {
	db, project, root := setupIndexTest(t)

	src := writeSource(t, root, "main.c", `
int counter;

static int helper(int n) {
    return n + 1;
}

int work(int x) {
    counter = helper(x) + 1;
    return counter;
}
`)

	ix := New(db, logging.NewNopLogger())
	if err := ix.IndexFile(context.Background(), src, project.ID, nil); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}

	symbols := storage.NewSymbolRepository(db)
	work, err := symbols.GetByUSR("c:@F@work")
	if err != nil || work == nil {
		t.Fatalf("Expected extern function 'work' (err=%v)", err)
	}
	if work.Kind != storage.SymbolFunction || !work.IsDefinition {
		t.Errorf("Unexpected work symbol: %+v", work)
	}

	counter, err := symbols.GetByUSR("c:@counter")
	if err != nil || counter == nil {
		t.Fatalf("Expected global variable 'counter' (err=%v)", err)
	}
	if counter.Kind != storage.SymbolVariable {
		t.Errorf("Expected counter to be a variable, got %s", counter.Kind)
	}

	refs := storage.NewReferenceRepository(db)
	fromWork, err := refs.ListBySourceSymbol(work.ID)
	if err != nil {
		t.Fatalf("Failed to list references: %v", err)
	}

	var sawCall, sawWrite, sawRead bool
	for _, r := range fromWork {
		target, _ := symbols.GetByID(r.TargetID)
		if target == nil {
			continue
		}
		switch {
		case target.Name == "helper" && r.Kind == storage.RefCall:
			sawCall = true
		case target.Name == "counter" && r.Kind == storage.RefWrite:
			sawWrite = true
		case target.Name == "counter" && r.Kind == storage.RefRead:
			sawRead = true
		}
	}
	if !sawCall {
		t.Error("Expected a call reference work -> helper")
	}
	if !sawWrite {
		t.Error("Expected a write reference work -> counter (left of assignment)")
	}
	if !sawRead {
		t.Error("Expected a read reference work -> counter (return statement)")
	}
}

func TestIndexFileStaticUSRIsFileQualified(t *testing.T) {
	db, project, root := setupIndexTest(t)

	src := writeSource(t, root, "impl.c", `
static int local_helper(void) {
    return 7;
}

int api(void) {
    return local_helper();
}
`)

	ix := New(db, logging.NewNopLogger())
	if err := ix.IndexFile(context.Background(), src, project.ID, nil); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}

	syms, err := storage.NewSymbolRepository(db).ListByFileID(mustFileID(t, db, src))
	if err != nil {
		t.Fatalf("Failed to list symbols: %v", err)
	}

	var static *storage.Symbol
	for _, s := range syms {
		if s.Name == "local_helper" {
			static = s
		}
	}
	if static == nil {
		t.Fatal("Expected static function symbol")
	}
	if !static.IsStatic {
		t.Error("Expected IsStatic to be set")
	}
	if static.USR == "c:@F@local_helper" {
		t.Error("Static function must not share the extern USR namespace")
	}
	if !strings.Contains(static.USR, "impl.c") {
		t.Errorf("Static USR should carry the file base, got %s", static.USR)
	}
}

func TestIndexFileHeaderDeclarations(t *testing.T) {
	db, project, root := setupIndexTest(t)

	hdr := writeSource(t, root, "api.h", `
int util(void);
extern int shared_counter;
`)

	ix := New(db, logging.NewNopLogger())
	if err := ix.IndexFile(context.Background(), hdr, project.ID, nil); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}

	symbols := storage.NewSymbolRepository(db)
	syms, err := symbols.ListByFileID(mustFileID(t, db, hdr))
	if err != nil {
		t.Fatalf("Failed to list symbols: %v", err)
	}
	if len(syms) == 0 {
		t.Fatal("Expected header declarations to produce symbol rows")
	}

	byName := make(map[string]*storage.Symbol, len(syms))
	for _, s := range syms {
		byName[s.Name] = s
	}

	util := byName["util"]
	if util == nil {
		t.Fatal("Expected a symbol row for the prototype 'util'")
	}
	if util.Kind != storage.SymbolFunction {
		t.Errorf("Expected util to be a function, got %s", util.Kind)
	}
	if util.IsDefinition {
		t.Error("A prototype must not be marked as a definition")
	}
	if util.USR != "c:@F@util" {
		t.Errorf("Prototype USR = %s, want c:@F@util", util.USR)
	}

	shared := byName["shared_counter"]
	if shared == nil {
		t.Fatal("Expected a symbol row for the extern variable")
	}
	if shared.Kind != storage.SymbolVariable || shared.IsDefinition {
		t.Errorf("Unexpected extern variable row: %+v", shared)
	}

	// The defining file resolves to the same rows through the USR.
	src := writeSource(t, root, "api.c", `
int shared_counter;

int util(void) {
    return shared_counter;
}
`)
	if err := ix.IndexFile(context.Background(), src, project.ID, nil); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}
	again, err := symbols.GetByUSR("c:@F@util")
	if err != nil {
		t.Fatalf("Failed to look up util: %v", err)
	}
	if again.ID != util.ID {
		t.Error("Definition must reuse the prototype's symbol row")
	}
}

func TestIndexFileIdempotent(t *testing.T) {
	db, project, root := setupIndexTest(t)

	src := writeSource(t, root, "main.c", `
int twice(int v) {
    return v * 2;
}
`)

	ix := New(db, logging.NewNopLogger())
	ctx := context.Background()
	if err := ix.IndexFile(ctx, src, project.ID, nil); err != nil {
		t.Fatalf("First index failed: %v", err)
	}

	symbols := storage.NewSymbolRepository(db)
	first, _ := symbols.GetByUSR("c:@F@twice")
	if first == nil {
		t.Fatal("Expected symbol after first index")
	}

	if err := ix.IndexFile(ctx, src, project.ID, nil); err != nil {
		t.Fatalf("Second index failed: %v", err)
	}
	second, _ := symbols.GetByUSR("c:@F@twice")
	if second == nil {
		t.Fatal("Expected symbol after second index")
	}

	fileID := mustFileID(t, db, src)
	syms, _ := symbols.ListByFileID(fileID)
	for _, s := range syms {
		if s.Name == "twice" && s.ID != second.ID {
			t.Error("Reindex must not leave duplicate symbols behind")
		}
	}
}

func TestIndexFileParseFailureLeavesFileEmpty(t *testing.T) {
	db, project, root := setupIndexTest(t)

	src := writeSource(t, root, "missing_ext", "int x;")
	// No recognized extension: the parser rejects the file.
	ix := New(db, logging.NewNopLogger())
	if err := ix.IndexFile(context.Background(), src, project.ID, nil); err == nil {
		t.Fatal("Expected error for unparseable file")
	}

	file, err := storage.NewFileRepository(db).GetByPath(mustAbs(t, src))
	if err != nil {
		t.Fatalf("Failed to look up file: %v", err)
	}
	if file == nil {
		t.Fatal("File row should exist even when parsing failed")
	}
	syms, _ := storage.NewSymbolRepository(db).ListByFileID(file.ID)
	if len(syms) != 0 {
		t.Errorf("Expected no symbols for failed parse, got %d", len(syms))
	}
	if file.ContentHash != "" {
		t.Error("Failed parse must not stamp the file as indexed")
	}
}

func TestCyclomaticComplexity(t *testing.T) {
	db, project, root := setupIndexTest(t)

	// 1 (base) + if + for + && = 4
	src := writeSource(t, root, "cc.c", `
int classify(int a, int b) {
    if (a > 0 && b > 0) {
        for (int i = 0; i < a; i++) {
            b += i;
        }
    }
    return b;
}
`)

	ix := New(db, logging.NewNopLogger())
	if err := ix.IndexFile(context.Background(), src, project.ID, nil); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}

	sym, err := storage.NewSymbolRepository(db).GetByUSR("c:@F@classify")
	if err != nil || sym == nil {
		t.Fatalf("Expected classify symbol (err=%v)", err)
	}
	if sym.CyclomaticComplexity != 4 {
		t.Errorf("Expected complexity 4, got %d", sym.CyclomaticComplexity)
	}
}

func TestIndexFileIncludes(t *testing.T) {
	db, project, root := setupIndexTest(t)

	header := writeSource(t, root, "util.h", "int util(void);\n")
	src := writeSource(t, root, "main.c", `
#include "util.h"
#include <stdio.h>

int run(void) {
    return util();
}
`)

	files := storage.NewFileRepository(db)
	if _, err := files.GetOrCreate(mustAbs(t, header), project.ID); err != nil {
		t.Fatalf("Failed to register header: %v", err)
	}

	ix := New(db, logging.NewNopLogger())
	if err := ix.IndexFile(context.Background(), src, project.ID, nil); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}

	incs, err := storage.NewIncludeRepository(db).ListBySourceFiles([]int64{mustFileID(t, db, src)})
	if err != nil {
		t.Fatalf("Failed to list includes: %v", err)
	}
	if len(incs) != 2 {
		t.Fatalf("Expected 2 include rows, got %d", len(incs))
	}

	var resolved, unresolved *storage.Include
	for _, inc := range incs {
		if inc.TargetFileID != nil {
			resolved = inc
		} else {
			unresolved = inc
		}
	}
	if resolved == nil {
		t.Fatal("Expected util.h include to resolve to a project file")
	}
	if !strings.HasSuffix(resolved.TargetPath, "util.h") {
		t.Errorf("Unexpected resolved target path %s", resolved.TargetPath)
	}
	if unresolved == nil || unresolved.TargetPath != "stdio.h" {
		t.Error("Expected stdio.h include to stay unresolved with its spelling")
	}
}

func mustFileID(t *testing.T, db *storage.DB, path string) int64 {
	t.Helper()
	file, err := storage.NewFileRepository(db).GetByPath(mustAbs(t, path))
	if err != nil || file == nil {
		t.Fatalf("Failed to resolve file row for %s (err=%v)", path, err)
	}
	return file.ID
}

func mustAbs(t *testing.T, path string) string {
	t.Helper()
	abs, err := paths.Absolutize(path)
	if err != nil {
		t.Fatalf("Failed to absolutize %s: %v", path, err)
	}
	return abs
}

func TestScanProject(t *testing.T) {
	db, project, root := setupIndexTest(t)

	writeSource(t, root, "core/core.h", "int core_init(void);\n")
	writeSource(t, root, "core/core.c", `
#include "core.h"

int core_init(void) {
    return 0;
}
`)
	writeSource(t, root, "drivers/io.c", `
#include "../core/core.h"

int io_setup(void) {
    return core_init();
}
`)
	writeSource(t, root, "vendor/skip_me.c", "int vendor_sym;\n")
	if err := os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("vendor/\n"), 0644); err != nil {
		t.Fatalf("Failed to write ignore file: %v", err)
	}

	cfg := config.DefaultConfig(root)
	scanner := NewScanner(db, cfg, logging.NewNopLogger())
	if err := scanner.ScanProject(context.Background(), project.ID, false); err != nil {
		t.Fatalf("ScanProject failed: %v", err)
	}

	projects := storage.NewProjectRepository(db)
	reloaded, _ := projects.GetByID(project.ID)
	if reloaded.ScanStatus != storage.ScanCompleted {
		t.Fatalf("Expected completed scan, got %s (%s)", reloaded.ScanStatus, reloaded.ScanMessage)
	}
	if reloaded.ScanProgress != 1 {
		t.Errorf("Expected progress 1.0, got %f", reloaded.ScanProgress)
	}

	files, err := storage.NewFileRepository(db).ListUnderRoot(root)
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Expected 3 indexed files (vendor ignored), got %d", len(files))
	}
	for _, f := range files {
		if strings.Contains(f.Path, "vendor") {
			t.Errorf("Ignored file was indexed: %s", f.Path)
		}
	}

	// The include edges between project files must have resolved.
	ids := make([]int64, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	incs, _ := storage.NewIncludeRepository(db).ListBySourceFiles(ids)
	resolvedCount := 0
	for _, inc := range incs {
		if inc.TargetFileID != nil {
			resolvedCount++
		}
	}
	if resolvedCount != 2 {
		t.Errorf("Expected 2 resolved include edges, got %d", resolvedCount)
	}
}

func TestScanProjectSkipsUnchanged(t *testing.T) {
	db, project, root := setupIndexTest(t)

	writeSource(t, root, "a.c", "int a;\n")
	writeSource(t, root, "b.c", "int b;\n")

	cfg := config.DefaultConfig(root)
	scanner := NewScanner(db, cfg, logging.NewNopLogger())
	ctx := context.Background()

	if err := scanner.ScanProject(ctx, project.ID, false); err != nil {
		t.Fatalf("First scan failed: %v", err)
	}
	if err := scanner.ScanProject(ctx, project.ID, false); err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}

	reloaded, _ := storage.NewProjectRepository(db).GetByID(project.ID)
	if !strings.Contains(reloaded.ScanMessage, "2 unchanged") {
		t.Errorf("Expected both files skipped on rescan, got message %q", reloaded.ScanMessage)
	}

	if err := scanner.ScanProject(ctx, project.ID, true); err != nil {
		t.Fatalf("Forced scan failed: %v", err)
	}
	reloaded, _ = storage.NewProjectRepository(db).GetByID(project.ID)
	if !strings.Contains(reloaded.ScanMessage, "Indexed 2 files") {
		t.Errorf("Expected forced rescan to reindex, got message %q", reloaded.ScanMessage)
	}
}

func TestScanProjectUnknownProject(t *testing.T) {
	db, _, root := setupIndexTest(t)

	cfg := config.DefaultConfig(root)
	scanner := NewScanner(db, cfg, logging.NewNopLogger())
	if err := scanner.ScanProject(context.Background(), 9999, false); err == nil {
		t.Fatal("Expected error for unknown project")
	}
}
