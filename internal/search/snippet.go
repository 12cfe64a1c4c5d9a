package search

import (
	"os"
	"path/filepath"
	"strings"

	"codescout/internal/extractor"
)

// Snippet bounds: a symbol body longer than maxSnippetLines is cut off,
// and a symbol with no known end line gets a window centered on its
// start line.
const (
	maxSnippetLines = 50
	contextWindow   = 5
)

// snippet reads the symbol's source lines from disk. Snippets are best
// effort: a missing or changed file yields an empty snippet, never an
// error, since the index may be slightly behind the working tree.
func (e *Engine) snippet(sym *extractor.Symbol) string {
	if e.repoRoot == "" {
		return ""
	}

	content, err := os.ReadFile(filepath.Join(e.repoRoot, filepath.FromSlash(sym.FilePath)))
	if err != nil {
		e.logger.Debug("snippet read failed", "file", sym.FilePath, "error", err)
		return ""
	}
	lines := strings.Split(string(content), "\n")

	start, end := snippetRange(sym.StartLine, sym.EndLine, len(lines))
	if start < 1 || start > len(lines) {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// snippetRange returns the 1-indexed inclusive line range to show.
func snippetRange(startLine, endLine, total int) (int, int) {
	start := startLine
	end := endLine

	if end < start {
		// No recorded extent: center a window on the start line.
		start = startLine - contextWindow
		end = startLine + contextWindow
	}
	if end-start+1 > maxSnippetLines {
		end = start + maxSnippetLines - 1
	}
	if start < 1 {
		start = 1
	}
	if end > total {
		end = total
	}
	return start, end
}
