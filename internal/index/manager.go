// Package index coordinates extraction, storage, and search over one
// repository's code index.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codescout/internal/config"
	"codescout/internal/extractor"
	"codescout/internal/search"
	"codescout/internal/store"
)

// Meta keys recorded by build and rebuild.
const (
	metaRevision  = "revision"
	metaBuildTime = "build_time"
)

// Update actions reported by UpdateFile.
const (
	ActionIndexed = "indexed"
	ActionSkipped = "skipped"
	ActionRenamed = "renamed"
	ActionDeleted = "deleted"
)

// BuildReport summarizes one build or rebuild pass. Per-file failures
// land in Errors and never abort the pass.
type BuildReport struct {
	Revision       string        `json:"revision,omitempty"`
	FilesScanned   int           `json:"files_scanned"`
	FilesIndexed   int           `json:"files_indexed"`
	FilesSkipped   int           `json:"files_skipped"`
	FilesRemoved   int           `json:"files_removed"`
	SymbolsIndexed int           `json:"symbols_indexed"`
	Errors         []string      `json:"errors,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// UpdateReport describes what UpdateFile did for one path.
type UpdateReport struct {
	FilePath    string `json:"file_path"`
	Action      string `json:"action"`
	RenamedFrom string `json:"renamed_from,omitempty"`
	SymbolCount int    `json:"symbol_count"`
}

// Manager owns the index lifecycle for a single repository.
type Manager struct {
	store     *store.Store
	extractor *extractor.Extractor
	engine    *search.Engine
	cfg       config.Config
	repoPath  string
	logger    *slog.Logger
}

// Open opens or creates the repository's index and returns a manager
// over it.
func Open(repoPath string, cfg config.Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := store.Open(cfg.ResolveDBPath(repoPath))
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:     st,
		extractor: extractor.New(),
		engine:    search.New(st, repoPath, logger),
		cfg:       cfg,
		repoPath:  repoPath,
		logger:    logger,
	}, nil
}

// Close releases the underlying database.
func (m *Manager) Close() error {
	return m.store.Close()
}

// Store exposes the underlying store for read-only consumers.
func (m *Manager) Store() *store.Store {
	return m.store
}

// BuildIndex walks the repository and indexes every eligible file.
// Unchanged files (same content hash) are skipped; files that vanished
// since the last build are dropped from the index.
func (m *Manager) BuildIndex(ctx context.Context, revision string) (*BuildReport, error) {
	start := time.Now()
	report := &BuildReport{Revision: revision}

	files, err := scanRepo(m.repoPath, m.cfg)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", m.repoPath, err)
	}
	report.FilesScanned = len(files)

	scanned := make(map[string]bool, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scanned[rel] = true

		indexed, count, err := m.indexFile(ctx, rel)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", rel, err))
			m.logger.Warn("indexing failed", "file", rel, "error", err)
			continue
		}
		if indexed {
			report.FilesIndexed++
			report.SymbolsIndexed += count
		} else {
			report.FilesSkipped++
		}
	}

	removed, err := m.removeMissingFiles(scanned)
	if err != nil {
		return nil, err
	}
	report.FilesRemoved = removed

	if err := m.writeBuildMeta(revision); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	m.logger.Info("index built",
		"files", report.FilesIndexed, "skipped", report.FilesSkipped,
		"symbols", report.SymbolsIndexed, "errors", len(report.Errors),
		"duration", report.Duration)
	return report, nil
}

// RebuildIndex drops all index data and builds from scratch.
func (m *Manager) RebuildIndex(ctx context.Context, revision string) (*BuildReport, error) {
	if err := m.store.Drop(); err != nil {
		return nil, err
	}
	return m.BuildIndex(ctx, revision)
}

// UpdateFile brings one file's index entries up to date. Unchanged
// content is a no-op; content that moved from another tracked path is
// handled as a rename without re-extraction; a missing file is removed
// from the index.
func (m *Manager) UpdateFile(ctx context.Context, filePath, revision string) (*UpdateReport, error) {
	rel, err := m.relPath(filePath)
	if err != nil {
		return nil, err
	}
	report := &UpdateReport{FilePath: rel}

	content, err := os.ReadFile(filepath.Join(m.repoPath, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		if derr := m.store.DeleteSymbolsByFile(rel); derr != nil {
			return nil, derr
		}
		report.Action = ActionDeleted
		return report, m.writeRevision(revision)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	if isBinary(content) || !extractor.IsSupported(rel) {
		report.Action = ActionSkipped
		return report, nil
	}

	hash := extractor.HashContent(content)

	current, tracked, err := m.store.FileHash(rel)
	if err != nil {
		return nil, err
	}
	if tracked && current == hash {
		report.Action = ActionSkipped
		count, err := m.store.CountSymbolsByFile(rel)
		if err != nil {
			return nil, err
		}
		report.SymbolCount = count
		return report, nil
	}

	// Same content under a different tracked path whose file is gone
	// from disk: a rename. Symbol rows move without re-extraction.
	if !tracked {
		if oldPath, ok, err := m.store.PathForHash(hash, rel); err != nil {
			return nil, err
		} else if ok && !m.fileOnDisk(oldPath) {
			if err := m.store.RenameFile(oldPath, rel); err != nil {
				return nil, err
			}
			count, err := m.store.CountSymbolsByFile(rel)
			if err != nil {
				return nil, err
			}
			report.Action = ActionRenamed
			report.RenamedFrom = oldPath
			report.SymbolCount = count
			return report, m.writeRevision(revision)
		}
	}

	symbols, err := m.extractor.Extract(ctx, rel, content)
	if err != nil {
		return nil, err
	}
	if err := m.store.ReplaceFileSymbols(rel, hash, symbols); err != nil {
		return nil, err
	}
	report.Action = ActionIndexed
	report.SymbolCount = len(symbols)
	return report, m.writeRevision(revision)
}

// SearchSymbols runs a ranked symbol search. The hint is non-empty when
// the query named a symbol type the index does not contain.
func (m *Manager) SearchSymbols(q search.Query) ([]search.Result, string, error) {
	return m.engine.Search(q)
}

// SymbolTypes returns the symbol types present in the index.
func (m *Manager) SymbolTypes() ([]string, error) {
	return m.store.DistinctSymbolTypes()
}

// Stats returns index statistics.
func (m *Manager) Stats() (*store.Stats, error) {
	return m.store.GetStats()
}

// IndexExists reports whether a build has been completed for this
// repository. An opened but never built database does not count.
func (m *Manager) IndexExists() bool {
	built, err := m.store.GetMeta(metaBuildTime)
	return err == nil && built != ""
}

// ValidateSchema reports whether the database matches the expected
// schema.
func (m *Manager) ValidateSchema() bool {
	return m.store.ValidateSchema()
}

// Revision returns the revision recorded by the last build or update.
func (m *Manager) Revision() (string, error) {
	return m.store.GetMeta(metaRevision)
}

func (m *Manager) indexFile(ctx context.Context, rel string) (indexed bool, count int, err error) {
	content, err := os.ReadFile(filepath.Join(m.repoPath, filepath.FromSlash(rel)))
	if err != nil {
		return false, 0, err
	}
	if isBinary(content) {
		return false, 0, nil
	}

	hash := extractor.HashContent(content)
	current, tracked, err := m.store.FileHash(rel)
	if err != nil {
		return false, 0, err
	}
	if tracked && current == hash {
		return false, 0, nil
	}

	symbols, err := m.extractor.Extract(ctx, rel, content)
	if err != nil {
		return false, 0, err
	}
	if err := m.store.ReplaceFileSymbols(rel, hash, symbols); err != nil {
		return false, 0, err
	}
	return true, len(symbols), nil
}

// removeMissingFiles drops tracked files that the scan no longer sees.
func (m *Manager) removeMissingFiles(scanned map[string]bool) (int, error) {
	tracked, err := m.store.TrackedPaths()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range tracked {
		if scanned[path] {
			continue
		}
		if err := m.store.DeleteSymbolsByFile(path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) writeBuildMeta(revision string) error {
	if err := m.store.SetMeta(metaBuildTime, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := m.store.SetMeta("schema_version", store.SchemaVersion); err != nil {
		return err
	}
	return m.writeRevision(revision)
}

func (m *Manager) writeRevision(revision string) error {
	if revision == "" {
		return nil
	}
	return m.store.SetMeta(metaRevision, revision)
}

// relPath normalizes a possibly absolute file path to a slash-separated
// path relative to the repository root.
func (m *Manager) relPath(filePath string) (string, error) {
	if !filepath.IsAbs(filePath) {
		return filepath.ToSlash(filepath.Clean(filePath)), nil
	}
	rel, err := filepath.Rel(m.repoPath, filePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside repository %s", filePath, m.repoPath)
	}
	return filepath.ToSlash(rel), nil
}

func (m *Manager) fileOnDisk(rel string) bool {
	_, err := os.Stat(filepath.Join(m.repoPath, filepath.FromSlash(rel)))
	return err == nil
}
