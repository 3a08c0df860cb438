package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore writes preferences to a JSON file on disk. Reads take a shared
// lock and writes an exclusive lock on a sibling .lock file.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore builds a FileStore rooted at the provided path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the JSON document location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	if err := s.ensureDir(); err != nil {
		return "", false, err
	}
	if _, err := s.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return "", false, fmt.Errorf("lock preferences: %w", err)
	}
	defer s.lock.Unlock()

	state, err := s.read()
	if err != nil {
		return "", false, err
	}
	value, ok := state[key]
	return value, ok, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.update(ctx, func(state map[string]string) {
		state[key] = value
	})
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.update(ctx, func(state map[string]string) {
		delete(state, key)
	})
}

// Close releases nothing; locks are held only for the duration of a call.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) update(ctx context.Context, mutate func(map[string]string)) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	if _, err := s.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("lock preferences: %w", err)
	}
	defer s.lock.Unlock()

	state, err := s.read()
	if err != nil {
		return err
	}
	mutate(state)
	return s.write(state)
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	state := map[string]string{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return state, nil
}

func (s *FileStore) write(state map[string]string) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}

func (s *FileStore) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure preference directory: %w", err)
	}
	return nil
}
