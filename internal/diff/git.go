// Package diff derives the set of changed files from a git working
// tree. The paths feed search relevance boosting; any git failure
// degrades to an empty set rather than blocking a search.
package diff

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
)

// ChangedFiles returns the repository-relative paths changed against
// baseRef (default HEAD). Errors are logged and yield nil: boosting is
// an enhancement, never a requirement.
func ChangedFiles(ctx context.Context, repoPath, baseRef string, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	if baseRef == "" {
		baseRef = "HEAD"
	}

	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "diff", "--name-only", baseRef)
	out, err := cmd.Output()
	if err != nil {
		logger.Debug("git diff failed, no boost paths", "repo", repoPath, "base", baseRef, "error", err)
		return nil
	}

	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files
}
