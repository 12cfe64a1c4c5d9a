// Package config carries the settings for building and querying a code
// index. Defaults work for a repository checkout with no setup; every
// field can be overridden by flags or CODESCOUT_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultDBDir is the per-repository index directory.
	DefaultDBDir = ".codescout"
	// DefaultDBFile is the index database file name.
	DefaultDBFile = "code_index.db"

	defaultMaxFileSize = 2 << 20 // 2 MiB
)

// defaultSkipDirs are never indexed regardless of gitignore rules.
var defaultSkipDirs = []string{".git", "node_modules", "vendor", DefaultDBDir}

// Config controls indexing behavior.
type Config struct {
	// DBPath is the SQLite database location. Empty means
	// <repo>/.codescout/code_index.db.
	DBPath string

	// FileExtensions restricts indexing to these extensions (without
	// the leading dot). Empty means every supported language.
	FileExtensions []string

	// MaxFileSize in bytes; larger files are skipped.
	MaxFileSize int64

	// SkipDirs are directory names excluded from the walk.
	SkipDirs []string
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		MaxFileSize: defaultMaxFileSize,
		SkipDirs:    append([]string(nil), defaultSkipDirs...),
	}
}

// FromEnv layers CODESCOUT_* environment variables over the defaults.
func FromEnv() Config {
	cfg := Default()
	if v := os.Getenv("CODESCOUT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CODESCOUT_FILE_EXTENSIONS"); v != "" {
		cfg.FileExtensions = splitExtensions(v)
	}
	if v := os.Getenv("CODESCOUT_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxFileSize = n
		}
	}
	return cfg
}

// ResolveDBPath returns the database path for a repository, applying the
// default location when none is configured.
func (c Config) ResolveDBPath(repoPath string) string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(repoPath, DefaultDBDir, DefaultDBFile)
}

// AllowsExtension reports whether a file extension (with or without the
// leading dot) passes the extension filter.
func (c Config) AllowsExtension(ext string) bool {
	if len(c.FileExtensions) == 0 {
		return true
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, allowed := range c.FileExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory name is excluded from indexing.
func (c Config) SkipDir(name string) bool {
	for _, skip := range c.SkipDirs {
		if name == skip {
			return true
		}
	}
	return false
}

func splitExtensions(raw string) []string {
	var exts []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), ".")
		if part != "" {
			exts = append(exts, strings.ToLower(part))
		}
	}
	return exts
}
