package search

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"codescout/internal/extractor"
	"codescout/internal/store"
)

// Relevance weights. Any change must preserve the orderings the engine
// tests assert: exact name beats prefix, and file > directory > language
// among the proximity boosts.
const (
	exactNameBoost  = 5.0
	prefixNameBoost = 2.0
	boostSameFile   = 3.0
	boostSameDir    = 1.5
	boostSameLang   = 0.5
)

// candidateFactor oversamples the storage retrieval so that post-filters
// and reranking still have enough rows to fill the requested limit.
const candidateFactor = 5

// Result is one ranked search hit.
type Result struct {
	Symbol  extractor.Symbol `json:"symbol"`
	Score   float64          `json:"score"`
	Snippet string           `json:"snippet,omitempty"`
}

// Engine ranks full-text candidates from the store. It holds no state
// beyond its dependencies and is safe for concurrent use.
type Engine struct {
	store    *store.Store
	repoRoot string
	logger   *slog.Logger
}

// New returns an engine over st. repoRoot anchors snippet reads; pass ""
// to disable snippets.
func New(st *store.Store, repoRoot string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, repoRoot: repoRoot, logger: logger}
}

// Search runs the full pipeline: sanitize, retrieve, filter, score, rank.
// An unknown symbol type yields no results plus a hint listing the types
// the index actually contains; it is not an error.
func (e *Engine) Search(q Query) ([]Result, string, error) {
	expr := matchExpression(q.Text)
	if expr == "" {
		return nil, "", nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	if q.SymbolType != "" {
		known, hint, err := e.checkSymbolType(q.SymbolType)
		if err != nil {
			return nil, "", err
		}
		if !known {
			return nil, hint, nil
		}
	}

	matches, err := e.store.SearchFTS(expr, store.Filters{
		SymbolType: q.SymbolType,
		Language:   q.Language,
		Limit:      limit * candidateFactor,
	})
	if err != nil {
		return nil, "", err
	}

	term := nameTerm(q.Text)
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if q.FilePattern != "" && !matchFilePattern(q.FilePattern, m.Symbol.FilePath) {
			continue
		}
		results = append(results, Result{
			Symbol: m.Symbol,
			Score:  e.score(&m.Symbol, m.Rank, term, q.BoostPaths),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Symbol.FilePath != results[j].Symbol.FilePath {
			return results[i].Symbol.FilePath < results[j].Symbol.FilePath
		}
		return results[i].Symbol.StartLine < results[j].Symbol.StartLine
	})

	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Snippet = e.snippet(&results[i].Symbol)
	}
	return results, "", nil
}

func (e *Engine) checkSymbolType(symbolType string) (bool, string, error) {
	types, err := e.store.DistinctSymbolTypes()
	if err != nil {
		return false, "", err
	}
	for _, t := range types {
		if t == symbolType {
			return true, "", nil
		}
	}
	hint := fmt.Sprintf("no symbols of type %q in the index", symbolType)
	if len(types) > 0 {
		hint += "; available types: " + strings.Join(types, ", ")
	}
	return false, hint, nil
}

// score combines the full-text base relevance with name and proximity
// boosts. bm25 ranks are negative-is-better, so the base term is negated.
func (e *Engine) score(sym *extractor.Symbol, rank float64, term string, boostPaths []string) float64 {
	score := -rank

	if term != "" {
		name := strings.ToLower(sym.Name)
		switch {
		case name == term:
			score += exactNameBoost
		case strings.HasPrefix(name, term):
			score += prefixNameBoost
		}
	}

	// Take the single best proximity boost rather than summing, so a
	// long diff cannot drown out textual relevance.
	var best float64
	for _, bp := range boostPaths {
		b := proximityBoost(sym, bp)
		if b > best {
			best = b
		}
	}
	return score + best
}

func proximityBoost(sym *extractor.Symbol, boostPath string) float64 {
	boostPath = filepath.ToSlash(boostPath)
	switch {
	case sym.FilePath == boostPath:
		return boostSameFile
	case path.Dir(sym.FilePath) == path.Dir(boostPath):
		return boostSameDir
	case sym.Language != "" && sym.Language == extractor.DetectLanguage(boostPath):
		return boostSameLang
	}
	return 0
}

// matchFilePattern applies the file filter: glob semantics when the
// pattern contains metacharacters, substring match otherwise. A bare
// glob with no separator matches against the base name.
func matchFilePattern(pattern, filePath string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return strings.Contains(filePath, pattern)
	}
	if ok, err := path.Match(pattern, filePath); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if ok, err := path.Match(pattern, path.Base(filePath)); err == nil && ok {
			return true
		}
	}
	return false
}
