package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TokenKey is the fixed storage key for the persisted access token. The file
// token store uses it as the file name.
const TokenKey = "liho.accessToken"

// TokenStore persists one opaque token string. Implementations must treat
// "no token stored" as ("", nil), not as an error.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single file. It is the default store.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store at path. Empty path places the token
// under the user config directory.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "liho", TokenKey)
	}
	return &FileTokenStore{path: path}, nil
}

// Load returns the stored token, or "" when none is stored.
func (s *FileTokenStore) Load() (string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Save writes the token, creating parent directories as needed.
func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0o600)
}

// Clear removes the stored token. Removing an absent token is not an error.
func (s *FileTokenStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryTokenStore is an in-process store for tests and embedded use.
type MemoryTokenStore struct {
	token string
}

// NewMemoryTokenStore creates a store pre-seeded with token ("" for none).
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Load() (string, error) { return s.token, nil }

func (s *MemoryTokenStore) Save(t string) error { s.token = t; return nil }

func (s *MemoryTokenStore) Clear() error { s.token = ""; return nil }
