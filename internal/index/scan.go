package index

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"

	"codescout/internal/config"
	"codescout/internal/extractor"
)

// sniffLen bounds the binary check: a NUL byte in the first 8 KiB marks
// a file as binary.
const sniffLen = 8 * 1024

// scanRepo walks a repository and returns the slash-separated relative
// paths of files eligible for indexing. Gitignore rules apply on top of
// the configured skip list; only size and extension checks happen here,
// content checks happen at read time.
func scanRepo(repoPath string, cfg config.Config) ([]string, error) {
	matcher := loadGitignore(repoPath)

	var files []string
	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(repoPath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if cfg.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			// Gitignore directory rules match with a trailing slash.
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		if !extractor.IsSupported(rel) || !cfg.AllowsExtension(filepath.Ext(rel)) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if cfg.MaxFileSize > 0 && info.Size() > cfg.MaxFileSize {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func loadGitignore(repoPath string) *ignore.GitIgnore {
	path := filepath.Join(repoPath, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return matcher
}

// isBinary reports whether content looks like binary data.
func isBinary(content []byte) bool {
	n := len(content)
	if n > sniffLen {
		n = sniffLen
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}
