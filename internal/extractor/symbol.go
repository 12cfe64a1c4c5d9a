package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Symbol is one named code construct extracted from a source file.
// The tuple (FilePath, Type, Name, StartLine, EndLine) identifies a symbol;
// re-extracting identical content yields the identical symbol set.
type Symbol struct {
	ID         int64  `json:"id,omitempty"`
	Name       string `json:"name"`
	Type       string `json:"symbol_type"` // function, class, method, variable, import, ...
	FilePath   string `json:"file_path"`   // repository-relative
	StartLine  int    `json:"line_number"` // 1-indexed
	StartCol   int    `json:"column_number"`
	EndLine    int    `json:"end_line_number"`
	EndCol     int    `json:"end_column_number"`
	Language   string `json:"language"`
	Signature  string `json:"signature,omitempty"`
	Docstring  string `json:"docstring,omitempty"`
	Parent     string `json:"parent_symbol,omitempty"` // enclosing scope name
	Scope      string `json:"scope,omitempty"`         // public, private, protected
	Parameters string `json:"parameters,omitempty"`    // declared parameter list text
	ReturnType string `json:"return_type,omitempty"`
	FileHash   string `json:"file_hash"` // hash of the owning file at extraction time

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Location returns the symbol position as "path:start" or "path:start-end".
func (s *Symbol) Location() string {
	if s.EndLine > s.StartLine {
		return fmt.Sprintf("%s:%d-%d", s.FilePath, s.StartLine, s.EndLine)
	}
	return fmt.Sprintf("%s:%d", s.FilePath, s.StartLine)
}

// HashContent computes the SHA-256 hex digest used for change detection.
// The same function hashes both extracted content and files on disk so the
// manager's comparisons are consistent.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ExtractionError reports a per-file extraction failure. Extraction errors
// never abort indexing of other files; they are collected and reported.
type ExtractionError struct {
	FilePath string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.FilePath, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
