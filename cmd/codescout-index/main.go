package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codescout/internal/config"
	"codescout/internal/diff"
	"codescout/internal/extractor"
	"codescout/internal/index"
	"codescout/internal/logging"
	"codescout/internal/search"
	"codescout/internal/store"
)

var logger *slog.Logger

const version = "0.1.0"

func main() {
	logger = logging.Default("codescout-index")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "build":
		runBuild(os.Args[2:], false)

	case "rebuild":
		runBuild(os.Args[2:], true)

	case "update":
		runUpdate(os.Args[2:])

	case "search":
		runSearch(os.Args[2:])

	case "stats":
		runStats(os.Args[2:])

	case "types":
		runTypes(os.Args[2:])

	case "version":
		fmt.Printf("codescout-index v%s\n", version)

	case "help", "-h", "--help":
		printUsage()

	default:
		logger.Error("unknown command", "command", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// openManager resolves the repository path and database location and
// opens the index. When mustExist is set, read-only commands refuse to
// create a fresh empty database on the side.
func openManager(repoPath, dbPath string, mustExist bool) (*index.Manager, string) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		logger.Error("invalid path", "path", repoPath, "error", err)
		os.Exit(1)
	}

	cfg := config.FromEnv()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	if mustExist && !store.Exists(cfg.ResolveDBPath(absPath)) {
		logger.Error("no index found, run 'build' first", "db", cfg.ResolveDBPath(absPath))
		os.Exit(1)
	}

	m, err := index.Open(absPath, cfg, logger)
	if err != nil {
		logger.Error("opening index failed", "db", cfg.ResolveDBPath(absPath), "error", err)
		os.Exit(1)
	}
	return m, absPath
}

func runBuild(args []string, rebuild bool) {
	name := "build"
	if rebuild {
		name = "rebuild"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	dbPath := fs.String("db", "", "Database path override")
	revision := fs.String("revision", "", "Revision identifier to record")
	jsonOutput := fs.Bool("json", false, "Output the report as JSON")
	fs.Parse(args)

	path := "."
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	m, absPath := openManager(path, *dbPath, false)
	defer m.Close()

	logger.Info("indexing", "path", absPath, "rebuild", rebuild)

	var report *index.BuildReport
	var err error
	if rebuild {
		report, err = m.RebuildIndex(context.Background(), *revision)
	} else {
		report, err = m.BuildIndex(context.Background(), *revision)
	}
	if err != nil {
		logger.Error("indexing failed", "error", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(report)
		return
	}
	fmt.Printf("Indexed %d file(s), %d symbol(s) (%d skipped, %d removed) in %s\n",
		report.FilesIndexed, report.SymbolsIndexed, report.FilesSkipped,
		report.FilesRemoved, report.Duration.Round(time.Millisecond))
	for _, e := range report.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	if len(report.Errors) > 0 {
		fmt.Printf("%d file(s) failed\n", len(report.Errors))
	}
}

func runUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	repoPath := fs.String("repo", ".", "Repository root")
	dbPath := fs.String("db", "", "Database path override")
	revision := fs.String("revision", "", "Revision identifier to record")
	jsonOutput := fs.Bool("json", false, "Output the report as JSON")
	fs.Parse(args)

	if fs.NArg() < 1 {
		logger.Error("update requires a file path")
		os.Exit(1)
	}

	m, _ := openManager(*repoPath, *dbPath, false)
	defer m.Close()

	report, err := m.UpdateFile(context.Background(), fs.Arg(0), *revision)
	if err != nil {
		logger.Error("update failed", "file", fs.Arg(0), "error", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(report)
		return
	}
	switch report.Action {
	case index.ActionRenamed:
		fmt.Printf("%s: renamed from %s (%d symbols preserved)\n",
			report.FilePath, report.RenamedFrom, report.SymbolCount)
	default:
		fmt.Printf("%s: %s (%d symbols)\n", report.FilePath, report.Action, report.SymbolCount)
	}
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	repoPath := fs.String("repo", ".", "Repository root")
	dbPath := fs.String("db", "", "Database path override")
	symbolType := fs.String("type", "", "Filter by symbol type (function, class, method, ...)")
	filePattern := fs.String("file", "", "Filter by file pattern (e.g. '*.py', 'src/*')")
	language := fs.String("lang", "", "Filter by language")
	limit := fs.Int("limit", search.DefaultLimit, "Maximum number of results")
	boost := fs.String("boost", "", "Comma-separated file paths to boost")
	boostFromDiff := fs.Bool("boost-from-diff", false, "Boost files changed in the working tree")
	jsonOutput := fs.Bool("json", false, "Output results as JSON")
	fs.Parse(args)

	if fs.NArg() < 1 {
		logger.Error("search requires a query")
		os.Exit(1)
	}
	query := strings.Join(fs.Args(), " ")

	m, absPath := openManager(*repoPath, *dbPath, true)
	defer m.Close()

	var boostPaths []string
	if *boost != "" {
		for _, p := range strings.Split(*boost, ",") {
			if p = strings.TrimSpace(p); p != "" {
				boostPaths = append(boostPaths, p)
			}
		}
	}
	if *boostFromDiff {
		boostPaths = append(boostPaths, diff.ChangedFiles(context.Background(), absPath, "", logger)...)
	}

	results, hint, err := m.SearchSymbols(search.Query{
		Text:        query,
		SymbolType:  *symbolType,
		FilePattern: *filePattern,
		Language:    *language,
		Limit:       *limit,
		BoostPaths:  boostPaths,
	})
	if err != nil {
		logger.Error("search failed", "query", query, "error", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(struct {
			Results []search.Result `json:"results"`
			Hint    string          `json:"hint,omitempty"`
		}{Results: results, Hint: hint})
		return
	}

	if hint != "" {
		fmt.Println(hint)
		return
	}
	if len(results) == 0 {
		fmt.Println("No symbols found.")
		return
	}
	for i, res := range results {
		sym := res.Symbol
		line := fmt.Sprintf("%2d. %s (%s)", i+1, sym.Name, sym.Type)
		if sym.Parent != "" {
			line += " in " + sym.Parent
		}
		fmt.Printf("%s  [%.2f]\n    %s\n", line, res.Score, sym.Location())
		if sym.Signature != "" {
			fmt.Printf("    %s\n", sym.Signature)
		}
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	repoPath := fs.String("repo", ".", "Repository root")
	dbPath := fs.String("db", "", "Database path override")
	listFiles := fs.Bool("files", false, "List every indexed file")
	jsonOutput := fs.Bool("json", false, "Output stats as JSON")
	fs.Parse(args)

	m, _ := openManager(*repoPath, *dbPath, true)
	defer m.Close()

	stats, err := m.Stats()
	if err != nil {
		logger.Error("getting stats failed", "error", err)
		os.Exit(1)
	}

	var files []store.FileRecord
	if *listFiles {
		files, err = m.Store().IndexedFiles()
		if err != nil {
			logger.Error("listing files failed", "error", err)
			os.Exit(1)
		}
	}

	if *jsonOutput {
		if *listFiles {
			printJSON(struct {
				*store.Stats
				Files []store.FileRecord `json:"files"`
			}{stats, files})
			return
		}
		printJSON(stats)
		return
	}

	fmt.Printf("Symbols: %d\n", stats.TotalSymbols)
	fmt.Printf("Files:   %d\n", stats.TotalFiles)
	if !stats.LastUpdated.IsZero() {
		fmt.Printf("Updated: %s\n", stats.LastUpdated.Format(time.RFC3339))
	}
	if len(stats.SymbolsByType) > 0 {
		fmt.Printf("\nBy Type:\n")
		for typ, count := range stats.SymbolsByType {
			fmt.Printf("  %-12s %d\n", typ+":", count)
		}
	}
	if len(stats.SymbolsByLanguage) > 0 {
		fmt.Printf("\nBy Language:\n")
		for lang, count := range stats.SymbolsByLanguage {
			fmt.Printf("  %-12s %d\n", lang+":", count)
		}
	}
	if *listFiles {
		fmt.Printf("\nFiles:\n")
		for _, f := range files {
			fmt.Printf("  %s (%d symbols, indexed %s)\n",
				f.FilePath, f.SymbolCount, f.LastIndexed.Format(time.RFC3339))
		}
	}
}

func runTypes(args []string) {
	fs := flag.NewFlagSet("types", flag.ExitOnError)
	repoPath := fs.String("repo", ".", "Repository root")
	dbPath := fs.String("db", "", "Database path override")
	jsonOutput := fs.Bool("json", false, "Output types as JSON")
	fs.Parse(args)

	m, _ := openManager(*repoPath, *dbPath, true)
	defer m.Close()

	types, err := m.SymbolTypes()
	if err != nil {
		logger.Error("getting types failed", "error", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(types)
		return
	}
	for _, t := range types {
		fmt.Println(t)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Error("encoding JSON failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`codescout-index - Code symbol indexer for codescout reviews

Usage:
  codescout-index build [options] [path]      Build or refresh the index
  codescout-index rebuild [options] [path]    Drop everything and rebuild
  codescout-index update [options] <file>     Re-index a single file
  codescout-index search [options] <query>    Search indexed symbols
  codescout-index stats [options]             Show index statistics
  codescout-index types [options]             List symbol types in the index
  codescout-index version                     Print version
  codescout-index help                        Show this help

Build/Rebuild Options:
  --db         Database path override
  --revision   Revision identifier to record in index metadata
  --json       Output the report as JSON

Update Options:
  --repo       Repository root (default: .)
  --db         Database path override
  --revision   Revision identifier to record
  --json       Output the report as JSON

Search Options:
  --repo             Repository root (default: .)
  --db               Database path override
  --type             Filter by symbol type (function, class, method, ...)
  --file             Filter by file pattern (e.g. '*.py', 'src/*')
  --lang             Filter by language
  --limit            Maximum results (default: 20)
  --boost            Comma-separated file paths to boost
  --boost-from-diff  Boost files changed in the git working tree
  --json             Output results as JSON

Stats Options:
  --repo       Repository root (default: .)
  --db         Database path override
  --files      List every indexed file
  --json       Output stats as JSON

Environment Variables:
  CODESCOUT_DB_PATH          SQLite database path override
  CODESCOUT_FILE_EXTENSIONS  Comma-separated extension allowlist
  CODESCOUT_MAX_FILE_SIZE    Per-file size limit in bytes [default: 2 MiB]
  CODESCOUT_LOG_LEVEL        Log level (debug, info, warn, error) [default: info]
  CODESCOUT_LOG_FORMAT       Output format (text, json) [default: text]

Database:
  Default: SQLite stored in .codescout/ relative to the repository root.
  Queries use the FTS5 full-text shadow with prefix search on 2-4
  character tokens; append * to a term for explicit prefix matching.

Examples:
  codescout-index build .
  codescout-index update --repo . src/app/config.py
  codescout-index search --type function "auth*"
  codescout-index search --boost-from-diff "parse config"
  codescout-index stats --files`)

	fmt.Printf("\nSupported Languages:\n  %s\n", strings.Join(extractor.SupportedLanguages(), ", "))
}
