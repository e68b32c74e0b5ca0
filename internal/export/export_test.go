package export_test

import (
	"os"
	"path/filepath"
	"testing"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"cgraph/internal/export"
	"cgraph/internal/logging"
	"cgraph/internal/storage"
)

type seeded struct {
	db      *storage.DB
	project *storage.Project
	main    *storage.File
	lib     *storage.File
	workFn  *storage.Symbol
	helper  *storage.Symbol
	counter *storage.Symbol
}

func seedProject(t *testing.T) *seeded {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "cgraph-export-test-*")
	require.NoError(t, err)

	db, err := storage.Open(tmpDir, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
		_ = os.RemoveAll(tmpDir)
	})

	project, err := storage.NewProjectRepository(db).Create("demo", tmpDir)
	require.NoError(t, err)

	files := storage.NewFileRepository(db)
	main, err := files.GetOrCreate(filepath.Join(tmpDir, "main.c"), project.ID)
	require.NoError(t, err)
	lib, err := files.GetOrCreate(filepath.Join(tmpDir, "lib", "util.cpp"), project.ID)
	require.NoError(t, err)

	symbols := storage.NewSymbolRepository(db)
	mkSymbol := func(file *storage.File, name, usr string, kind storage.SymbolKind, line int) *storage.Symbol {
		s := &storage.Symbol{
			Name: name, USR: usr, Kind: kind,
			FileID: file.ID, Line: line, Column: 5,
			IsDefinition: true,
		}
		require.NoError(t, symbols.Create(s))
		return s
	}
	workFn := mkSymbol(main, "work", "c:@F@work", storage.SymbolFunction, 3)
	helper := mkSymbol(lib, "helper", "c:@F@helper", storage.SymbolFunction, 1)
	counter := mkSymbol(main, "counter", "c:@counter", storage.SymbolVariable, 1)

	refs := storage.NewReferenceRepository(db)
	require.NoError(t, refs.Create(&storage.Reference{
		SourceID: workFn.ID, TargetID: helper.ID, Kind: storage.RefCall,
		FileID: main.ID, Line: 4, Column: 12,
	}))
	require.NoError(t, refs.Create(&storage.Reference{
		SourceID: workFn.ID, TargetID: counter.ID, Kind: storage.RefWrite,
		FileID: main.ID, Line: 5, Column: 5,
	}))

	includes := storage.NewIncludeRepository(db)
	require.NoError(t, includes.Create(&storage.Include{
		SourceFileID: main.ID, TargetPath: lib.Path, TargetFileID: &lib.ID, Line: 1,
	}))

	return &seeded{db: db, project: project, main: main, lib: lib,
		workFn: workFn, helper: helper, counter: counter}
}

func TestWriteSCIP(t *testing.T) {
	s := seedProject(t)
	out := filepath.Join(t.TempDir(), "index.scip")

	exporter := export.NewExporter(s.db, s.project)
	require.NoError(t, exporter.WriteSCIP(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var index scippb.Index
	require.NoError(t, proto.Unmarshal(data, &index))

	assert.Equal(t, "cgraph", index.Metadata.ToolInfo.Name)
	assert.Equal(t, "file://"+s.project.RootPath, index.Metadata.ProjectRoot)
	require.Len(t, index.Documents, 2)

	docs := map[string]*scippb.Document{}
	for _, d := range index.Documents {
		docs[d.RelativePath] = d
	}

	mainDoc := docs["main.c"]
	require.NotNil(t, mainDoc)
	assert.Equal(t, "c", mainDoc.Language)
	require.Len(t, mainDoc.Symbols, 2)

	libDoc := docs[filepath.Join("lib", "util.cpp")]
	require.NotNil(t, libDoc)
	assert.Equal(t, "cpp", libDoc.Language)

	bySymbol := map[string]*scippb.SymbolInformation{}
	for _, info := range mainDoc.Symbols {
		bySymbol[info.DisplayName] = info
	}
	work := bySymbol["work"]
	require.NotNil(t, work)
	assert.Equal(t, "cgraph . . . `c:@F@work`().", work.Symbol)
	assert.Equal(t, scippb.SymbolInformation_Function, work.Kind)
	counter := bySymbol["counter"]
	require.NotNil(t, counter)
	assert.Equal(t, "cgraph . . . `c:@counter`.", counter.Symbol)

	var defs, writes, reads int
	for _, occ := range mainDoc.Occurrences {
		switch {
		case occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0:
			defs++
		case occ.SymbolRoles&int32(scippb.SymbolRole_WriteAccess) != 0:
			writes++
			assert.Equal(t, []int32{4, 4, 4, 5}, occ.Range)
		default:
			reads++
		}
	}
	assert.Equal(t, 2, defs)
	assert.Equal(t, 1, writes)
	assert.Equal(t, 1, reads, "call occurrences carry read access")

	// work is defined at line 3 column 5 with a 4 character name.
	var workDef *scippb.Occurrence
	for _, occ := range mainDoc.Occurrences {
		if occ.Symbol == work.Symbol && occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
			workDef = occ
		}
	}
	require.NotNil(t, workDef)
	assert.Equal(t, []int32{2, 4, 2, 8}, workDef.Range)
}

func TestJSONRoundTrip(t *testing.T) {
	s := seedProject(t)
	out := filepath.Join(t.TempDir(), "graph.json.zst")

	exporter := export.NewExporter(s.db, s.project)
	require.NoError(t, exporter.WriteJSON(out))

	dump, err := export.ReadJSON(out)
	require.NoError(t, err)

	assert.Equal(t, "cgraph", dump.Tool)
	assert.NotEmpty(t, dump.Version)
	require.NotNil(t, dump.Project)
	assert.Equal(t, s.project.ID, dump.Project.ID)

	assert.Len(t, dump.Files, 2)
	assert.Len(t, dump.Symbols, 3)
	assert.Len(t, dump.References, 2)
	require.Len(t, dump.Includes, 1)
	require.NotNil(t, dump.Includes[0].TargetFileID)
	assert.Equal(t, s.lib.ID, *dump.Includes[0].TargetFileID)

	usrs := make(map[string]bool)
	for _, sym := range dump.Symbols {
		usrs[sym.USR] = true
	}
	assert.True(t, usrs["c:@F@work"])
	assert.True(t, usrs["c:@F@helper"])
	assert.True(t, usrs["c:@counter"])
}
