package config

import (
	"path/filepath"
	"testing"
)

func TestResolveDBPath(t *testing.T) {
	cfg := Default()
	want := filepath.Join("/repo", DefaultDBDir, DefaultDBFile)
	if got := cfg.ResolveDBPath("/repo"); got != want {
		t.Errorf("ResolveDBPath() = %q, want %q", got, want)
	}

	cfg.DBPath = "/tmp/custom.db"
	if got := cfg.ResolveDBPath("/repo"); got != "/tmp/custom.db" {
		t.Errorf("override ignored: %q", got)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CODESCOUT_DB_PATH", "/srv/index.db")
	t.Setenv("CODESCOUT_FILE_EXTENSIONS", ".py, go ,TS")
	t.Setenv("CODESCOUT_MAX_FILE_SIZE", "4096")

	cfg := FromEnv()
	if cfg.DBPath != "/srv/index.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if len(cfg.FileExtensions) != 3 || cfg.FileExtensions[0] != "py" || cfg.FileExtensions[2] != "ts" {
		t.Errorf("FileExtensions = %v", cfg.FileExtensions)
	}
	if cfg.MaxFileSize != 4096 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
}

func TestFromEnvBadSize(t *testing.T) {
	t.Setenv("CODESCOUT_MAX_FILE_SIZE", "not-a-number")
	if cfg := FromEnv(); cfg.MaxFileSize != Default().MaxFileSize {
		t.Errorf("invalid size not ignored: %d", cfg.MaxFileSize)
	}
}

func TestAllowsExtension(t *testing.T) {
	open := Default()
	if !open.AllowsExtension(".rb") {
		t.Error("empty filter rejected an extension")
	}

	cfg := Default()
	cfg.FileExtensions = []string{"py", "go"}
	tests := []struct {
		ext  string
		want bool
	}{
		{".py", true},
		{"py", true},
		{".PY", true},
		{".go", true},
		{".rs", false},
	}
	for _, tt := range tests {
		if got := cfg.AllowsExtension(tt.ext); got != tt.want {
			t.Errorf("AllowsExtension(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestSkipDir(t *testing.T) {
	cfg := Default()
	for _, dir := range []string{".git", "node_modules", "vendor", DefaultDBDir} {
		if !cfg.SkipDir(dir) {
			t.Errorf("SkipDir(%q) = false", dir)
		}
	}
	if cfg.SkipDir("src") {
		t.Error("SkipDir(src) = true")
	}
}
