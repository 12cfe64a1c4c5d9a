// Package tool adapts the code index to a review-agent tool surface:
// a request/response wrapper producing a compact text report an LLM can
// consume.
package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"codescout/internal/index"
	"codescout/internal/search"
)

const (
	// maxDocstringLen truncates docstrings in the report.
	maxDocstringLen = 100
	// maxReportBytes caps the whole report.
	maxReportBytes = 16 * 1024
)

// Request is one tool invocation.
type Request struct {
	Query       string `json:"query"`
	SymbolType  string `json:"symbol_type,omitempty"`
	FilePattern string `json:"file_pattern,omitempty"`
	Language    string `json:"language,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// SearchTool exposes ranked symbol search over a built index. Results
// for files in the current change set rank higher via the boost paths
// fixed at construction time.
type SearchTool struct {
	manager    *index.Manager
	boostPaths []string
	logger     *slog.Logger
}

// New gates tool availability on the index: without a completed build
// and a valid schema the tool is absent (nil, false), and the caller
// simply does not offer it.
func New(manager *index.Manager, boostPaths []string, logger *slog.Logger) (*SearchTool, bool) {
	if logger == nil {
		logger = slog.Default()
	}
	if !manager.IndexExists() || !manager.ValidateSchema() {
		logger.Debug("code index unavailable, search tool disabled")
		return nil, false
	}
	return &SearchTool{manager: manager, boostPaths: boostPaths, logger: logger}, true
}

// Name returns the tool identifier presented to the agent.
func (t *SearchTool) Name() string { return "search_code_index" }

// Description returns the usage text presented to the agent.
func (t *SearchTool) Description() string {
	return "Search the code index for symbols (functions, classes, methods, variables, imports). " +
		"Use descriptive search terms; filter by symbol_type or file_pattern to narrow results. " +
		"Results are ranked by relevance, with files from the current diff boosted."
}

// Run executes a search and formats the results. Failures are reported
// in-band as text so the agent can react; the error return is reserved
// for context cancellation.
func (t *SearchTool) Run(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	results, hint, err := t.manager.SearchSymbols(search.Query{
		Text:        req.Query,
		SymbolType:  req.SymbolType,
		FilePattern: req.FilePattern,
		Language:    req.Language,
		Limit:       req.Limit,
		BoostPaths:  t.boostPaths,
	})
	if err != nil {
		t.logger.Warn("code index search failed", "query", req.Query, "error", err)
		return fmt.Sprintf("Error searching code index: %v", err), nil
	}
	if hint != "" {
		return hint, nil
	}
	return formatResults(results), nil
}

func formatResults(results []search.Result) string {
	if len(results) == 0 {
		return "No symbols found matching the search criteria."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d symbol(s):\n\n", len(results))

	for i, res := range results {
		sym := res.Symbol

		entry := fmt.Sprintf("%d. %s (%s)", i+1, sym.Name, sym.Type)
		if sym.Parent != "" {
			entry += " in " + sym.Parent
		}

		var section strings.Builder
		section.WriteString("   " + entry + "\n")
		section.WriteString("   Location: " + sym.Location() + "\n")
		if sym.Signature != "" {
			section.WriteString("   Signature: " + sym.Signature + "\n")
		}
		if doc := truncateDoc(sym.Docstring); doc != "" {
			section.WriteString("   Doc: " + doc + "\n")
		}
		if sym.Scope != "" {
			section.WriteString("   Scope: " + sym.Scope + "\n")
		}
		fmt.Fprintf(&section, "   Score: %.2f\n", res.Score)
		if res.Snippet != "" {
			section.WriteString("   Snippet:\n" + indent(res.Snippet, "      ") + "\n")
		}
		section.WriteString("\n")

		if b.Len()+section.Len() > maxReportBytes {
			fmt.Fprintf(&b, "... %d more result(s) omitted\n", len(results)-i)
			break
		}
		b.WriteString(section.String())
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// truncateDoc shortens a docstring to maxDocstringLen runes. Cutting on
// rune boundaries keeps the report valid UTF-8.
func truncateDoc(doc string) string {
	doc = strings.TrimSpace(doc)
	if utf8.RuneCountInString(doc) <= maxDocstringLen {
		return doc
	}
	runes := []rune(doc)
	return string(runes[:maxDocstringLen-3]) + "..."
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
