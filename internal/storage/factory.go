package storage

import (
	"fmt"
	"os"
)

// StoreEnv overrides the default store backend.
const StoreEnv = "MONOCRACK_STORE"

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// DefaultStoreKind returns the backend named by MONOCRACK_STORE, or the
// build's default.
func DefaultStoreKind() string {
	if kind := os.Getenv(StoreEnv); kind != "" {
		return kind
	}
	return defaultStoreKind
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
