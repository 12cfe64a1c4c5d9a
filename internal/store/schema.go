package store

// SchemaVersion is written to code_index_meta on creation and checked on
// reopen. Bump when the schema changes incompatibly; readers of an older
// version get a SchemaError advising a rebuild.
const SchemaVersion = "1"

// schemaDDL creates every table, trigger, and index. All statements are
// idempotent so initialization can run on every open.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS code_index_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS code_index (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    name              TEXT NOT NULL,
    symbol_type       TEXT NOT NULL,
    file_path         TEXT NOT NULL,
    line_number       INTEGER NOT NULL,
    column_number     INTEGER,
    end_line_number   INTEGER,
    end_column_number INTEGER,
    language          TEXT NOT NULL,
    signature         TEXT,
    docstring         TEXT,
    parent_symbol     TEXT,
    scope             TEXT,
    parameters        TEXT,
    return_type       TEXT,
    file_hash         TEXT NOT NULL,
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL,

    UNIQUE(file_path, symbol_type, name, line_number, end_line_number)
);

CREATE VIRTUAL TABLE IF NOT EXISTS code_index_fts USING fts5(
    name,
    signature,
    docstring,
    parent_symbol,
    file_path,
    language,
    content='code_index',
    content_rowid='id',
    prefix='2 3 4',
    tokenize="unicode61 tokenchars '_'"
);

CREATE TRIGGER IF NOT EXISTS code_index_after_insert
AFTER INSERT ON code_index BEGIN
    INSERT INTO code_index_fts(rowid, name, signature, docstring, parent_symbol, file_path, language)
    VALUES (new.id, new.name, new.signature, new.docstring, new.parent_symbol, new.file_path, new.language);
END;

CREATE TRIGGER IF NOT EXISTS code_index_after_update
AFTER UPDATE ON code_index BEGIN
    INSERT INTO code_index_fts(code_index_fts, rowid, name, signature, docstring, parent_symbol, file_path, language)
    VALUES ('delete', old.id, old.name, old.signature, old.docstring, old.parent_symbol, old.file_path, old.language);
    INSERT INTO code_index_fts(rowid, name, signature, docstring, parent_symbol, file_path, language)
    VALUES (new.id, new.name, new.signature, new.docstring, new.parent_symbol, new.file_path, new.language);
END;

CREATE TRIGGER IF NOT EXISTS code_index_after_delete
AFTER DELETE ON code_index BEGIN
    INSERT INTO code_index_fts(code_index_fts, rowid, name, signature, docstring, parent_symbol, file_path, language)
    VALUES ('delete', old.id, old.name, old.signature, old.docstring, old.parent_symbol, old.file_path, old.language);
END;

CREATE INDEX IF NOT EXISTS idx_code_index_name      ON code_index(name);
CREATE INDEX IF NOT EXISTS idx_code_index_type      ON code_index(symbol_type);
CREATE INDEX IF NOT EXISTS idx_code_index_file_path ON code_index(file_path);
CREATE INDEX IF NOT EXISTS idx_code_index_language  ON code_index(language);
CREATE INDEX IF NOT EXISTS idx_code_index_parent    ON code_index(parent_symbol);
CREATE INDEX IF NOT EXISTS idx_code_index_file_hash ON code_index(file_hash);
CREATE INDEX IF NOT EXISTS idx_code_index_file_line ON code_index(file_path, line_number);
CREATE INDEX IF NOT EXISTS idx_code_index_composite ON code_index(name, symbol_type, file_path);

CREATE TABLE IF NOT EXISTS indexed_files (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path    TEXT UNIQUE NOT NULL,
    file_hash    TEXT NOT NULL,
    symbol_count INTEGER NOT NULL DEFAULT 0,
    last_indexed INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_indexed_files_path ON indexed_files(file_path);
CREATE INDEX IF NOT EXISTS idx_indexed_files_hash ON indexed_files(file_hash);
`

// dropDDL removes everything schemaDDL creates, for rebuilds.
const dropDDL = `
DROP TRIGGER IF EXISTS code_index_after_insert;
DROP TRIGGER IF EXISTS code_index_after_update;
DROP TRIGGER IF EXISTS code_index_after_delete;
DROP TABLE IF EXISTS code_index_fts;
DROP TABLE IF EXISTS code_index;
DROP TABLE IF EXISTS indexed_files;
DROP TABLE IF EXISTS code_index_meta;
`
