package prefs

import (
	"context"
	"errors"
	"fmt"

	"clipdeck/internal/config"
)

// Known keys.
const (
	KeyCredential = "credential"
	KeyTheme      = "theme"
)

// ErrUnknownKey is returned for keys outside the persisted set.
var ErrUnknownKey = errors.New("unknown preference key")

// Store is durable key/value storage for client preferences.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open selects the backend named by cfg.State.Backend.
func Open(cfg *config.Config) (Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	switch cfg.State.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.StatePath()), nil
	case config.BackendSQLite, "":
		return OpenSQLite(cfg.StatePath())
	default:
		return nil, fmt.Errorf("unsupported state backend %q", cfg.State.Backend)
	}
}

func checkKey(key string) error {
	switch key {
	case KeyCredential, KeyTheme:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}
