package storage

import "github.com/pkg/errors"

// DefaultStoreKind is sqlite when the binary is built with the sqlite tag and
// memory otherwise.
func DefaultStoreKind() string {
	return defaultStoreKind
}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, errors.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
