package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"cbir/internal/fileutil"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore writes the session slot to a JSON file on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewFileStore builds a FileStore rooted at the provided path. The lock file
// lives next to it with a ".lock" suffix.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// Get reads the session from disk. A missing or empty file resolves to an
// anonymous session.
func (s *FileStore) Get(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquire(ctx, false); err != nil {
		return Session{}, err
	}
	defer s.release()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Session{}, nil
	}

	var state Session
	if err := json.Unmarshal(data, &state); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	state.Token = strings.TrimSpace(state.Token)
	return state, nil
}

// Set persists token with restricted permissions. A blank token clears the
// session.
func (s *FileStore) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear(ctx)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquire(ctx, true); err != nil {
		return err
	}
	defer s.release()

	data, err := json.MarshalIndent(Session{Token: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := fileutil.WriteAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent session is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := s.acquire(ctx, true); err != nil {
		return err
	}
	defer s.release()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *FileStore) acquire(ctx context.Context, exclusive bool) error {
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, os.ErrNotExist) {
		// Nothing to guard yet; readers see an anonymous session.
		return nil
	}
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock session: %s is held by another process", s.lock.Path())
	}
	return nil
}

func (s *FileStore) release() {
	if s.lock.Locked() || s.lock.RLocked() {
		_ = s.lock.Unlock()
	}
}
