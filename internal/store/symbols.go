package store

import (
	"database/sql"
	"fmt"
	"time"

	"codescout/internal/extractor"
)

// symbolColumns is the scan order used by all symbol queries.
const symbolColumns = `ci.id, ci.name, ci.symbol_type, ci.file_path, ci.line_number,
	ci.column_number, ci.end_line_number, ci.end_column_number, ci.language,
	ci.signature, ci.docstring, ci.parent_symbol, ci.scope, ci.parameters,
	ci.return_type, ci.file_hash, ci.created_at, ci.updated_at`

// Upsert on the symbol identity tuple. A plain upsert, not INSERT OR
// REPLACE: REPLACE deletes the conflicting row without firing the FTS
// delete trigger, which would orphan shadow entries.
const insertSymbolSQL = `
	INSERT INTO code_index (
		name, symbol_type, file_path, line_number, column_number,
		end_line_number, end_column_number, language, signature,
		docstring, parent_symbol, scope, parameters, return_type,
		file_hash, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (file_path, symbol_type, name, line_number, end_line_number) DO UPDATE SET
		column_number = excluded.column_number,
		end_column_number = excluded.end_column_number,
		language = excluded.language,
		signature = excluded.signature,
		docstring = excluded.docstring,
		parent_symbol = excluded.parent_symbol,
		scope = excluded.scope,
		parameters = excluded.parameters,
		return_type = excluded.return_type,
		file_hash = excluded.file_hash,
		updated_at = excluded.updated_at`

// Match couples a symbol row with the raw full-text rank produced by the
// storage engine. Smaller rank means a better textual match; final scoring
// belongs to the search engine.
type Match struct {
	Symbol extractor.Symbol
	Rank   float64
}

// Filters narrows a full-text retrieval. SymbolType and Language are pushed
// into the SQL predicate; file-path globbing is a caller-side post-filter.
type Filters struct {
	SymbolType string
	Language   string
	Limit      int
}

// FileRecord is one tracking row from indexed_files.
type FileRecord struct {
	FilePath    string    `json:"file_path"`
	FileHash    string    `json:"file_hash"`
	SymbolCount int       `json:"symbol_count"`
	LastIndexed time.Time `json:"last_indexed"`
}

// Stats summarizes the index contents.
type Stats struct {
	TotalSymbols      int            `json:"total_symbols"`
	TotalFiles        int            `json:"total_files"`
	SymbolsByType     map[string]int `json:"symbols_by_type"`
	SymbolsByLanguage map[string]int `json:"symbols_by_language"`
	LastUpdated       time.Time      `json:"last_updated,omitzero"`
}

// InsertSymbols writes a batch of symbols in one transaction.
func (s *Store) InsertSymbols(symbols []extractor.Symbol) error {
	if len(symbols) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertSymbolsTx(tx, symbols); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return tx.Commit()
}

// InsertFileSymbols writes one file's symbols and its tracking row in a
// single transaction.
func (s *Store) InsertFileSymbols(filePath, fileHash string, symbols []extractor.Symbol) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertSymbolsTx(tx, symbols); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	if err := trackFileTx(tx, filePath, fileHash, len(symbols)); err != nil {
		return &StorageError{Path: s.path, Op: "track file in", Err: err}
	}
	return tx.Commit()
}

// ReplaceFileSymbols atomically swaps one file's symbol set: delete old
// rows, insert the new set, update tracking. A crash mid-update leaves
// either the old or the new state, never a mix.
func (s *Store) ReplaceFileSymbols(filePath, fileHash string, symbols []extractor.Symbol) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM code_index WHERE file_path = ?`, filePath); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	if err := insertSymbolsTx(tx, symbols); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	if err := trackFileTx(tx, filePath, fileHash, len(symbols)); err != nil {
		return &StorageError{Path: s.path, Op: "track file in", Err: err}
	}
	return tx.Commit()
}

func insertSymbolsTx(tx *sql.Tx, symbols []extractor.Symbol) error {
	if len(symbols) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(insertSymbolSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i := range symbols {
		sym := &symbols[i]
		_, err := stmt.Exec(
			sym.Name, sym.Type, sym.FilePath, sym.StartLine, sym.StartCol,
			sym.EndLine, sym.EndCol, sym.Language, nullable(sym.Signature),
			nullable(sym.Docstring), nullable(sym.Parent), nullable(sym.Scope),
			nullable(sym.Parameters), nullable(sym.ReturnType),
			sym.FileHash, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert %s %s: %w", sym.Type, sym.Name, err)
		}
	}
	return nil
}

// DeleteSymbolsByFile removes one file's symbols and tracking row in a
// single transaction. The FTS triggers clean the shadow.
func (s *Store) DeleteSymbolsByFile(filePath string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM code_index WHERE file_path = ?`, filePath); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	if _, err := tx.Exec(`DELETE FROM indexed_files WHERE file_path = ?`, filePath); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return tx.Commit()
}

// RenameFile moves a tracked file to a new path without re-extraction.
// Symbol rows and the tracking record move together in one transaction;
// the update trigger keeps the search shadow on the new path.
func (s *Store) RenameFile(oldPath, newPath string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().Unix()
	if _, err := tx.Exec(
		`UPDATE code_index SET file_path = ?, updated_at = ? WHERE file_path = ?`,
		newPath, now, oldPath,
	); err != nil {
		return &StorageError{Path: s.path, Op: "rename in", Err: err}
	}
	if _, err := tx.Exec(
		`UPDATE indexed_files SET file_path = ?, last_indexed = ? WHERE file_path = ?`,
		newPath, now, oldPath,
	); err != nil {
		return &StorageError{Path: s.path, Op: "rename in", Err: err}
	}
	return tx.Commit()
}

// SearchFTS runs the full-text primitive over the search shadow and
// returns candidate symbols with their raw bm25 rank. matchExpr must be a
// sanitized FTS5 match expression; it is bound as a parameter, never
// concatenated. No final ranking is applied here.
func (s *Store) SearchFTS(matchExpr string, filters Filters) ([]Match, error) {
	// The FTS table keeps its real name: MATCH and bm25() resolve the
	// fts5 table by name, not through an alias.
	query := `SELECT ` + symbolColumns + `, bm25(code_index_fts) AS rank
		FROM code_index ci
		JOIN code_index_fts ON ci.id = code_index_fts.rowid
		WHERE code_index_fts MATCH ?`
	args := []any{matchExpr}

	if filters.SymbolType != "" {
		query += ` AND ci.symbol_type = ?`
		args = append(args, filters.SymbolType)
	}
	if filters.Language != "" {
		query += ` AND ci.language = ?`
		args = append(args, filters.Language)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "search", Err: err}
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := scanSymbol(rows, &m.Symbol, &m.Rank); err != nil {
			return nil, &StorageError{Path: s.path, Op: "search", Err: err}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SymbolsByFile returns all symbols for one file, ordered by position.
func (s *Store) SymbolsByFile(filePath string) ([]extractor.Symbol, error) {
	rows, err := s.db.Query(
		`SELECT `+symbolColumns+`, 0 FROM code_index ci WHERE ci.file_path = ? ORDER BY ci.line_number, ci.column_number`,
		filePath,
	)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	defer rows.Close()

	var symbols []extractor.Symbol
	for rows.Next() {
		var sym extractor.Symbol
		var rank float64
		if err := scanSymbol(rows, &sym, &rank); err != nil {
			return nil, &StorageError{Path: s.path, Op: "read", Err: err}
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// CountSymbolsByFile returns the number of symbols stored for a file.
func (s *Store) CountSymbolsByFile(filePath string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM code_index WHERE file_path = ?`, filePath).Scan(&count)
	return count, err
}

// FileHash returns the recorded content hash for a tracked file, or
// ("", false) when the file is unknown.
func (s *Store) FileHash(filePath string) (string, bool, error) {
	var hash string
	err := s.db.QueryRow(`SELECT file_hash FROM indexed_files WHERE file_path = ?`, filePath).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// PathForHash finds a tracked file whose content hash equals hash,
// excluding excludePath. Supports rename detection: an unchanged file at
// a new path shows up as a known hash under a different path.
func (s *Store) PathForHash(hash, excludePath string) (string, bool, error) {
	var path string
	err := s.db.QueryRow(
		`SELECT file_path FROM indexed_files WHERE file_hash = ? AND file_path != ? LIMIT 1`,
		hash, excludePath,
	).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// UpdateFileTracking upserts one file's tracking record.
func (s *Store) UpdateFileTracking(filePath, fileHash string, symbolCount int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Path: s.path, Op: "track file in", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if err := trackFileTx(tx, filePath, fileHash, symbolCount); err != nil {
		return &StorageError{Path: s.path, Op: "track file in", Err: err}
	}
	return tx.Commit()
}

func trackFileTx(tx *sql.Tx, filePath, fileHash string, symbolCount int) error {
	_, err := tx.Exec(
		`INSERT INTO indexed_files (file_path, file_hash, symbol_count, last_indexed)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (file_path) DO UPDATE SET
			file_hash = excluded.file_hash,
			symbol_count = excluded.symbol_count,
			last_indexed = excluded.last_indexed`,
		filePath, fileHash, symbolCount, time.Now().Unix(),
	)
	return err
}

// TrackedPaths returns every tracked file path.
func (s *Store) TrackedPaths() ([]string, error) {
	rows, err := s.db.Query(`SELECT file_path FROM indexed_files ORDER BY file_path`)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// IndexedFiles returns all tracking rows ordered by path.
func (s *Store) IndexedFiles() ([]FileRecord, error) {
	rows, err := s.db.Query(
		`SELECT file_path, file_hash, symbol_count, last_indexed FROM indexed_files ORDER BY file_path`,
	)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var rec FileRecord
		var lastIndexed int64
		if err := rows.Scan(&rec.FilePath, &rec.FileHash, &rec.SymbolCount, &lastIndexed); err != nil {
			return nil, err
		}
		rec.LastIndexed = time.Unix(lastIndexed, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DistinctSymbolTypes returns the symbol types actually present, sorted.
// The valid-type set is index-specific and evolves with the data; it is
// never a fixed enumeration.
func (s *Store) DistinctSymbolTypes() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT symbol_type FROM code_index ORDER BY symbol_type`)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// GetStats aggregates index statistics.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{
		SymbolsByType:     make(map[string]int),
		SymbolsByLanguage: make(map[string]int),
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM code_index`).Scan(&stats.TotalSymbols); err != nil {
		return nil, &StorageError{Path: s.path, Op: "read stats from", Err: err}
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM indexed_files`).Scan(&stats.TotalFiles); err != nil {
		return nil, &StorageError{Path: s.path, Op: "read stats from", Err: err}
	}

	if err := s.countBy(`symbol_type`, stats.SymbolsByType); err != nil {
		return nil, err
	}
	if err := s.countBy(`language`, stats.SymbolsByLanguage); err != nil {
		return nil, err
	}

	var last sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(last_indexed) FROM indexed_files`).Scan(&last); err != nil {
		return nil, &StorageError{Path: s.path, Op: "read stats from", Err: err}
	}
	if last.Valid {
		stats.LastUpdated = time.Unix(last.Int64, 0)
	}
	return stats, nil
}

func (s *Store) countBy(column string, into map[string]int) error {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT %s, COUNT(*) FROM code_index GROUP BY %s`, column, column,
	))
	if err != nil {
		return &StorageError{Path: s.path, Op: "read stats from", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

// scanner abstracts *sql.Rows and *sql.Row for scanSymbol.
type scanner interface {
	Scan(dest ...any) error
}

func scanSymbol(row scanner, sym *extractor.Symbol, rank *float64) error {
	var (
		col, endLine, endCol                sql.NullInt64
		signature, docstring, parent, scope sql.NullString
		parameters, returnType              sql.NullString
		createdAt, updatedAt                int64
	)

	err := row.Scan(
		&sym.ID, &sym.Name, &sym.Type, &sym.FilePath, &sym.StartLine,
		&col, &endLine, &endCol, &sym.Language,
		&signature, &docstring, &parent, &scope, &parameters,
		&returnType, &sym.FileHash, &createdAt, &updatedAt, rank,
	)
	if err != nil {
		return err
	}

	sym.StartCol = int(col.Int64)
	sym.EndLine = int(endLine.Int64)
	sym.EndCol = int(endCol.Int64)
	sym.Signature = signature.String
	sym.Docstring = docstring.String
	sym.Parent = parent.String
	sym.Scope = scope.String
	sym.Parameters = parameters.String
	sym.ReturnType = returnType.String
	sym.CreatedAt = time.Unix(createdAt, 0)
	sym.UpdatedAt = time.Unix(updatedAt, 0)
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
