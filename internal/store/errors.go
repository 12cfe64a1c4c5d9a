package store

import "fmt"

// SchemaError reports an existing database whose schema is missing,
// incompatible, or corrupt. The operation in progress is aborted; the
// advised recovery is a rebuild.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid index schema at %s: %s (run rebuild to recover)", e.Path, e.Reason)
}

// StorageError reports an I/O failure opening or writing the database.
type StorageError struct {
	Path string
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("index storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
