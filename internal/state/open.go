package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store kinds accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// Open returns the backend named by kind. path is the file, database or
// directory location; it is ignored for memory. Parent directories of a
// sqlite path are created.
func Open(kind, path string, maxVersions int) (Backend, error) {
	switch kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindFile:
		return NewFileStore(path)
	case KindSQLite, "":
		if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
		return NewSQLiteStore(path, maxVersions)
	case KindBadger:
		return NewBadgerStore(path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
