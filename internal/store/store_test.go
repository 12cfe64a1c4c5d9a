package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"codescout/internal/extractor"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "code_index.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSymbols() []extractor.Symbol {
	return []extractor.Symbol{
		{
			Name: "parse_config", Type: "function", FilePath: "app/config.py",
			StartLine: 10, EndLine: 25, Language: "python",
			Signature: "def parse_config(path)", Docstring: "Load configuration from disk.",
			Parameters: "path", FileHash: "hash-config",
		},
		{
			Name: "ConfigLoader", Type: "class", FilePath: "app/config.py",
			StartLine: 30, EndLine: 80, Language: "python",
			Signature: "class ConfigLoader", FileHash: "hash-config",
		},
		{
			Name: "load", Type: "method", FilePath: "app/config.py",
			StartLine: 35, EndLine: 50, Language: "python",
			Parent: "ConfigLoader", FileHash: "hash-config",
		},
		{
			Name: "ParseArgs", Type: "function", FilePath: "cmd/main.go",
			StartLine: 12, EndLine: 40, Language: "go",
			Signature: "func ParseArgs(args []string) (*Options, error)",
			FileHash:  "hash-main",
		},
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	s := newTestStore(t)

	if !s.ValidateSchema() {
		t.Fatal("ValidateSchema() = false on a freshly created database")
	}
	version, err := s.GetMeta("schema_version")
	if err != nil {
		t.Fatalf("GetMeta(schema_version) error: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema_version = %q, want %q", version, SchemaVersion)
	}
}

func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code_index.db")
	if Exists(path) {
		t.Error("Exists() = true before the database is created")
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	if !Exists(path) {
		t.Error("Exists() = false after Open")
	}
	if Exists(filepath.Dir(path)) {
		t.Error("Exists() = true for a directory")
	}
}

func TestOpenRejectsForeignDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code_index.db")

	raw, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	if _, err := raw.Exec(`CREATE TABLE other_app (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("creating foreign table: %v", err)
	}
	raw.Close()

	_, err = Open(path)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Open() error = %v, want *SchemaError", err)
	}
}

func TestInsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertFileSymbols("app/config.py", "hash-config", testSymbols()[:3]); err != nil {
		t.Fatalf("InsertFileSymbols() error: %v", err)
	}
	if err := s.InsertFileSymbols("cmd/main.go", "hash-main", testSymbols()[3:]); err != nil {
		t.Fatalf("InsertFileSymbols() error: %v", err)
	}

	matches, err := s.SearchFTS(`"parse_config"`, Filters{Limit: 10})
	if err != nil {
		t.Fatalf("SearchFTS() error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("SearchFTS() returned %d matches, want 1", len(matches))
	}
	got := matches[0].Symbol
	if got.Name != "parse_config" || got.Type != "function" || got.StartLine != 10 {
		t.Errorf("unexpected match: %+v", got)
	}
	if got.Docstring != "Load configuration from disk." {
		t.Errorf("Docstring = %q", got.Docstring)
	}
}

func TestSearchFTSPrefix(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSymbols(testSymbols()); err != nil {
		t.Fatalf("InsertSymbols() error: %v", err)
	}

	matches, err := s.SearchFTS(`"Parse"*`, Filters{Limit: 10})
	if err != nil {
		t.Fatalf("SearchFTS() error: %v", err)
	}
	names := make(map[string]bool)
	for _, m := range matches {
		names[m.Symbol.Name] = true
	}
	if !names["parse_config"] || !names["ParseArgs"] {
		t.Errorf("prefix search missed expected symbols, got %v", names)
	}
}

func TestSearchFTSKeepsIdentifiersWhole(t *testing.T) {
	s := newTestStore(t)
	symbols := []extractor.Symbol{
		{
			Name: "authenticate_user", Type: "function", FilePath: "auth/login.py",
			StartLine: 4, EndLine: 20, Language: "python", FileHash: "h1",
		},
		{
			Name: "renamed_foo", Type: "function", FilePath: "app/util.py",
			StartLine: 1, EndLine: 3, Language: "python", FileHash: "h2",
		},
	}
	if err := s.InsertSymbols(symbols); err != nil {
		t.Fatalf("InsertSymbols() error: %v", err)
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"prefix matches underscored name", `"auth"*`, 1},
		{"underscore is not a token break", `"foo"`, 0},
		{"full identifier matches", `"renamed_foo"`, 1},
		{"no such prefix", `"zzz"*`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := s.SearchFTS(tt.query, Filters{Limit: 10})
			if err != nil {
				t.Fatalf("SearchFTS(%q) error: %v", tt.query, err)
			}
			if len(matches) != tt.want {
				t.Errorf("SearchFTS(%q) = %d matches, want %d", tt.query, len(matches), tt.want)
			}
		})
	}
}

func TestSearchFTSFilters(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSymbols(testSymbols()); err != nil {
		t.Fatalf("InsertSymbols() error: %v", err)
	}

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"by type", Filters{SymbolType: "class", Limit: 10}, []string{"ConfigLoader"}},
		{"by language", Filters{Language: "go", Limit: 10}, []string{"ParseArgs"}},
		{"type excludes all", Filters{SymbolType: "interface", Limit: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := s.SearchFTS(`"Config"* OR "ParseArgs"`, tt.filters)
			if err != nil {
				t.Fatalf("SearchFTS() error: %v", err)
			}
			if len(matches) != len(tt.want) {
				t.Fatalf("got %d matches, want %d", len(matches), len(tt.want))
			}
			for i, want := range tt.want {
				if matches[i].Symbol.Name != want {
					t.Errorf("match[%d] = %q, want %q", i, matches[i].Symbol.Name, want)
				}
			}
		})
	}
}

func TestReplaceFileSymbols(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertFileSymbols("app/config.py", "hash-old", testSymbols()[:3]); err != nil {
		t.Fatalf("InsertFileSymbols() error: %v", err)
	}

	replacement := []extractor.Symbol{{
		Name: "read_settings", Type: "function", FilePath: "app/config.py",
		StartLine: 5, EndLine: 20, Language: "python", FileHash: "hash-new",
	}}
	if err := s.ReplaceFileSymbols("app/config.py", "hash-new", replacement); err != nil {
		t.Fatalf("ReplaceFileSymbols() error: %v", err)
	}

	count, err := s.CountSymbolsByFile("app/config.py")
	if err != nil {
		t.Fatalf("CountSymbolsByFile() error: %v", err)
	}
	if count != 1 {
		t.Errorf("symbol count after replace = %d, want 1", count)
	}

	// Shadow must track the base table: old rows gone, new row findable.
	if matches, _ := s.SearchFTS(`"parse_config"`, Filters{Limit: 10}); len(matches) != 0 {
		t.Errorf("stale shadow entry survived replace: %d matches", len(matches))
	}
	matches, err := s.SearchFTS(`"read_settings"`, Filters{Limit: 10})
	if err != nil {
		t.Fatalf("SearchFTS() error: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("new symbol not searchable after replace: %d matches", len(matches))
	}

	hash, ok, err := s.FileHash("app/config.py")
	if err != nil || !ok {
		t.Fatalf("FileHash() = %v, %v, %v", hash, ok, err)
	}
	if hash != "hash-new" {
		t.Errorf("tracked hash = %q, want hash-new", hash)
	}
}

func TestDeleteSymbolsByFile(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertFileSymbols("app/config.py", "hash-config", testSymbols()[:3]); err != nil {
		t.Fatalf("InsertFileSymbols() error: %v", err)
	}
	if err := s.DeleteSymbolsByFile("app/config.py"); err != nil {
		t.Fatalf("DeleteSymbolsByFile() error: %v", err)
	}

	count, _ := s.CountSymbolsByFile("app/config.py")
	if count != 0 {
		t.Errorf("symbols remain after delete: %d", count)
	}
	if _, ok, _ := s.FileHash("app/config.py"); ok {
		t.Error("tracking row remains after delete")
	}
	if matches, _ := s.SearchFTS(`"ConfigLoader"`, Filters{Limit: 10}); len(matches) != 0 {
		t.Errorf("shadow rows remain after delete: %d", len(matches))
	}
}

func TestRenameFile(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertFileSymbols("app/config.py", "hash-config", testSymbols()[:3]); err != nil {
		t.Fatalf("InsertFileSymbols() error: %v", err)
	}

	if err := s.RenameFile("app/config.py", "app/settings.py"); err != nil {
		t.Fatalf("RenameFile() error: %v", err)
	}

	oldCount, _ := s.CountSymbolsByFile("app/config.py")
	newCount, _ := s.CountSymbolsByFile("app/settings.py")
	if oldCount != 0 || newCount != 3 {
		t.Errorf("counts after rename: old=%d new=%d, want 0 and 3", oldCount, newCount)
	}

	// Both the class and its method match: the name column for one, the
	// parent_symbol column for the other. Every hit must carry the new path.
	matches, err := s.SearchFTS(`"ConfigLoader"`, Filters{Limit: 10})
	if err != nil {
		t.Fatalf("SearchFTS() error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("search after rename returned %d matches, want class and method", len(matches))
	}
	for _, m := range matches {
		if m.Symbol.FilePath != "app/settings.py" {
			t.Errorf("%s still at %s, want app/settings.py", m.Symbol.Name, m.Symbol.FilePath)
		}
	}

	moved, err := s.SymbolsByFile("app/settings.py")
	if err != nil {
		t.Fatalf("SymbolsByFile() error: %v", err)
	}
	if len(moved) != 3 {
		t.Errorf("SymbolsByFile(app/settings.py) = %d symbols, want 3", len(moved))
	}

	if _, ok, _ := s.FileHash("app/config.py"); ok {
		t.Error("old path still tracked after rename")
	}
	hash, ok, _ := s.FileHash("app/settings.py")
	if !ok || hash != "hash-config" {
		t.Errorf("new path tracking = (%q, %v), want (hash-config, true)", hash, ok)
	}
}

func TestPathForHash(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateFileTracking("app/config.py", "hash-config", 3); err != nil {
		t.Fatalf("UpdateFileTracking() error: %v", err)
	}

	path, ok, err := s.PathForHash("hash-config", "app/settings.py")
	if err != nil {
		t.Fatalf("PathForHash() error: %v", err)
	}
	if !ok || path != "app/config.py" {
		t.Errorf("PathForHash() = (%q, %v), want (app/config.py, true)", path, ok)
	}

	// The path being probed must not match itself.
	if _, ok, _ := s.PathForHash("hash-config", "app/config.py"); ok {
		t.Error("PathForHash() matched the excluded path")
	}
	if _, ok, _ := s.PathForHash("no-such-hash", ""); ok {
		t.Error("PathForHash() matched a hash that is not tracked")
	}
}

func TestIndexedFiles(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateFileTracking("src/b.py", "hash-b", 2); err != nil {
		t.Fatalf("UpdateFileTracking() error: %v", err)
	}
	if err := s.UpdateFileTracking("src/a.py", "hash-a", 5); err != nil {
		t.Fatalf("UpdateFileTracking() error: %v", err)
	}

	files, err := s.IndexedFiles()
	if err != nil {
		t.Fatalf("IndexedFiles() error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("IndexedFiles() returned %d records, want 2", len(files))
	}
	if files[0].FilePath != "src/a.py" || files[1].FilePath != "src/b.py" {
		t.Errorf("files not ordered by path: %q, %q", files[0].FilePath, files[1].FilePath)
	}
	if files[0].SymbolCount != 5 || files[0].FileHash != "hash-a" {
		t.Errorf("record = %+v, want 5 symbols with hash-a", files[0])
	}
	if files[0].LastIndexed.IsZero() {
		t.Error("LastIndexed not recorded")
	}
}

func TestDistinctSymbolTypes(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSymbols(testSymbols()); err != nil {
		t.Fatalf("InsertSymbols() error: %v", err)
	}

	types, err := s.DistinctSymbolTypes()
	if err != nil {
		t.Fatalf("DistinctSymbolTypes() error: %v", err)
	}
	want := []string{"class", "function", "method"}
	if len(types) != len(want) {
		t.Fatalf("DistinctSymbolTypes() = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("types[%d] = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertFileSymbols("app/config.py", "hash-config", testSymbols()[:3]); err != nil {
		t.Fatalf("InsertFileSymbols() error: %v", err)
	}
	if err := s.InsertFileSymbols("cmd/main.go", "hash-main", testSymbols()[3:]); err != nil {
		t.Fatalf("InsertFileSymbols() error: %v", err)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.TotalSymbols != 4 || stats.TotalFiles != 2 {
		t.Errorf("totals = (%d symbols, %d files), want (4, 2)", stats.TotalSymbols, stats.TotalFiles)
	}
	if stats.SymbolsByType["function"] != 2 {
		t.Errorf("functions = %d, want 2", stats.SymbolsByType["function"])
	}
	if stats.SymbolsByLanguage["python"] != 3 {
		t.Errorf("python symbols = %d, want 3", stats.SymbolsByLanguage["python"])
	}
	if stats.LastUpdated.IsZero() {
		t.Error("LastUpdated is zero after indexing")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertFileSymbols("app/config.py", "hash-config", testSymbols()[:3]); err != nil {
		t.Fatalf("InsertFileSymbols() error: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.TotalSymbols != 0 || stats.TotalFiles != 0 {
		t.Errorf("stats after Clear = %+v, want empty", stats)
	}
	if !s.ValidateSchema() {
		t.Error("ValidateSchema() = false after Clear")
	}
}
