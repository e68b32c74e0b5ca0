package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cgraph/internal/compdb"
	"cgraph/internal/config"
	"cgraph/internal/logging"
	"cgraph/internal/paths"
	"cgraph/internal/storage"

	"github.com/google/uuid"
	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is looked up at the project root; it uses gitignore
// syntax and excludes matching paths from scans.
const IgnoreFileName = ".cgraphignore"

// Scanner drives full-project scans: it discovers source files, feeds
// them through the Indexer one by one, and keeps the project's scan
// status current while doing so.
type Scanner struct {
	db      *storage.DB
	cfg     *config.Config
	indexer *Indexer
	logger  *logging.Logger
}

func NewScanner(db *storage.DB, cfg *config.Config, logger *logging.Logger) *Scanner {
	return &Scanner{
		db:      db,
		cfg:     cfg,
		indexer: New(db, logger),
		logger:  logger,
	}
}

// ScanProject indexes every matching source file under the project root.
// Per-file parse failures are logged and skipped; only missing
// preconditions (unknown project, vanished root) fail the scan outright.
// Files whose mtime and content fingerprint are unchanged since the last
// scan are skipped unless force is set.
func (s *Scanner) ScanProject(ctx context.Context, projectID int64, force bool) error {
	projects := storage.NewProjectRepository(s.db)

	project, err := projects.GetByID(projectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return fmt.Errorf("project %d not found", projectID)
	}
	if _, err := os.Stat(project.RootPath); err != nil {
		return fmt.Errorf("project root %s does not exist: %w", project.RootPath, err)
	}

	log := s.logger.With(map[string]interface{}{
		"scan_id": uuid.NewString(),
		"project": project.Name,
	})

	if err := projects.UpdateScanStatus(projectID, storage.ScanScanning, 0, "Initializing scan..."); err != nil {
		return err
	}

	if err := s.scan(ctx, project, force, log); err != nil {
		if stErr := projects.UpdateScanStatus(projectID, storage.ScanFailed, 0, err.Error()); stErr != nil {
			log.Error("failed to record scan failure", map[string]interface{}{"error": stErr.Error()})
		}
		return err
	}
	return nil
}

func (s *Scanner) scan(ctx context.Context, project *storage.Project, force bool, log *logging.Logger) error {
	projects := storage.NewProjectRepository(s.db)
	files := storage.NewFileRepository(s.db)

	cdbPath := compdb.Discover(project.RootPath, s.cfg.Scan.CompileCommandsPath)
	var cdb *compdb.Database
	if cdbPath != "" {
		var err error
		cdb, err = compdb.Load(cdbPath)
		if err != nil {
			log.Warn("failed to load compilation database", map[string]interface{}{
				"path":  cdbPath,
				"error": err.Error(),
			})
		} else {
			if err := projects.SetCompileCommandsPath(project.ID, cdbPath); err != nil {
				return err
			}
			log.Info("using compilation database", map[string]interface{}{"path": cdbPath})
		}
	}

	macros, err := config.LoadMacros(project.RootPath)
	if err != nil {
		log.Warn("failed to load macro overrides", map[string]interface{}{"error": err.Error()})
		macros = config.Macros{}
	}
	macroArgs := macros.CompilerArgs()

	sources, err := s.collectFiles(project.RootPath)
	if err != nil {
		return fmt.Errorf("failed to enumerate sources: %w", err)
	}
	log.Info("scan started", map[string]interface{}{"files": len(sources)})

	// Register every file up front so include edges between files can be
	// resolved regardless of indexing order.
	known := make(map[string]*storage.File, len(sources))
	for _, src := range sources {
		f, err := files.GetOrCreate(src, project.ID)
		if err != nil {
			return err
		}
		known[src] = f
	}

	indexed, skipped, failed := 0, 0, 0
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !force && s.cfg.Scan.SkipUnchanged && s.unchanged(known[src], src) {
			skipped++
			continue
		}

		args := macroArgs
		if cdb != nil {
			if fileArgs, ok := cdb.ArgsFor(src); ok {
				args = append(append([]string{}, fileArgs...), macroArgs...)
			}
		}

		if err := s.indexer.IndexFile(ctx, src, project.ID, args); err != nil {
			failed++
			log.Warn("failed to index file", map[string]interface{}{
				"file":  src,
				"error": err.Error(),
			})
		} else {
			indexed++
		}

		if (i+1)%10 == 0 {
			progress := float64(i+1) / float64(len(sources))
			msg := fmt.Sprintf("Indexed %d/%d files", i+1, len(sources))
			if err := projects.UpdateScanStatus(project.ID, storage.ScanScanning, progress, msg); err != nil {
				return err
			}
		}
	}

	msg := fmt.Sprintf("Indexed %d files (%d unchanged, %d failed)", indexed, skipped, failed)
	if err := projects.UpdateScanStatus(project.ID, storage.ScanCompleted, 1, msg); err != nil {
		return err
	}
	log.Info("scan completed", map[string]interface{}{
		"indexed": indexed,
		"skipped": skipped,
		"failed":  failed,
	})
	return nil
}

// unchanged reports whether the stored stamp still matches the file on
// disk. A mismatch on either mtime or fingerprint forces a reindex.
func (s *Scanner) unchanged(stored *storage.File, path string) bool {
	if stored == nil || stored.ContentHash == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.ModTime().Unix() != stored.LastModified {
		return false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	hash, err := Fingerprint(content)
	if err != nil {
		return false
	}
	return hash == stored.ContentHash
}

// collectFiles walks the project root collecting files with a configured
// source extension, pruning ignored directories and anything matched by
// the project's ignore file.
func (s *Scanner) collectFiles(root string) ([]string, error) {
	exts := make(map[string]bool, len(s.cfg.Scan.Extensions))
	for _, ext := range s.cfg.Scan.Extensions {
		exts[ext] = true
	}
	ignoreDirs := make(map[string]bool, len(s.cfg.Scan.IgnoreDirs))
	for _, dir := range s.cfg.Scan.IgnoreDirs {
		ignoreDirs[dir] = true
	}

	var gi *ignore.GitIgnore
	if matcher, err := ignore.CompileIgnoreFile(filepath.Join(root, IgnoreFileName)); err == nil {
		gi = matcher
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := paths.RelativeTo(path, root)
		if d.IsDir() {
			if path != root && (ignoreDirs[d.Name()] || (gi != nil && gi.MatchesPath(rel))) {
				return filepath.SkipDir
			}
			return nil
		}
		if !exts[filepath.Ext(path)] {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		abs, err := paths.Absolutize(path)
		if err != nil {
			return err
		}
		out = append(out, abs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
