package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/router-for-me/gitpress/sdk/credential"
)

const (
	fileBackend = "file"
	// CredentialsFileName is the file the file backend keeps the record in.
	CredentialsFileName = "credentials.json"
)

// FileTokenStore keeps the credential as a 0600 JSON file. Writes go through a temp
// file and a rename so a reader never observes a partial record.
type FileTokenStore struct {
	mu      sync.Mutex
	dirLock sync.RWMutex
	baseDir string
}

// NewFileTokenStore creates a file store rooted at dir.
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{baseDir: strings.TrimSpace(dir)}
}

// SetBaseDir updates the directory holding credentials.json.
func (s *FileTokenStore) SetBaseDir(dir string) {
	s.dirLock.Lock()
	s.baseDir = strings.TrimSpace(dir)
	s.dirLock.Unlock()
}

// Path returns the resolved credentials file path.
func (s *FileTokenStore) Path() string {
	s.dirLock.RLock()
	defer s.dirLock.RUnlock()
	if s.baseDir == "" {
		return ""
	}
	return filepath.Join(s.baseDir, CredentialsFileName)
}

// Backend implements credential.Store.
func (s *FileTokenStore) Backend() string { return fileBackend }

// Save implements credential.Store.
func (s *FileTokenStore) Save(ctx context.Context, c *credential.Credential) error {
	if err := ctx.Err(); err != nil {
		return credential.Wrap("save", fileBackend, err)
	}
	path := s.Path()
	if path == "" {
		return credential.Errorf("save", fileBackend, "directory not configured")
	}
	raw, err := c.Marshal()
	if err != nil {
		return credential.Wrap("save", fileBackend, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return credential.Wrap("save", fileBackend, classifyFileError(fmt.Errorf("create dir failed: %w", err)))
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return credential.Wrap("save", fileBackend, classifyFileError(fmt.Errorf("create temp file failed: %w", err)))
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err = tmp.Chmod(0o600); err != nil && !errors.Is(err, errors.ErrUnsupported) {
		_ = tmp.Close()
		cleanup()
		return credential.Wrap("save", fileBackend, fmt.Errorf("chmod temp file failed: %w", err))
	}
	if _, err = tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return credential.Wrap("save", fileBackend, fmt.Errorf("write temp file failed: %w", err))
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return credential.Wrap("save", fileBackend, fmt.Errorf("sync temp file failed: %w", err))
	}
	if err = tmp.Close(); err != nil {
		cleanup()
		return credential.Wrap("save", fileBackend, fmt.Errorf("close temp file failed: %w", err))
	}
	if err = os.Rename(tmpName, path); err != nil {
		cleanup()
		return credential.Wrap("save", fileBackend, classifyFileError(fmt.Errorf("replace credentials file failed: %w", err)))
	}
	return nil
}

// Retrieve implements credential.Store.
func (s *FileTokenStore) Retrieve(ctx context.Context) (*credential.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, credential.Wrap("retrieve", fileBackend, err)
	}
	path := s.Path()
	if path == "" {
		return nil, credential.Errorf("retrieve", fileBackend, "directory not configured")
	}

	s.mu.Lock()
	data, err := os.ReadFile(path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, credential.Wrap("retrieve", fileBackend, credential.ErrNotFound)
		}
		return nil, credential.Wrap("retrieve", fileBackend, classifyFileError(err))
	}
	c, err := credential.Unmarshal(data)
	if err != nil {
		return nil, credential.Wrap("retrieve", fileBackend, err)
	}
	return c, nil
}

// Delete implements credential.Store.
func (s *FileTokenStore) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return credential.Wrap("delete", fileBackend, err)
	}
	path := s.Path()
	if path == "" {
		return credential.Errorf("delete", fileBackend, "directory not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return credential.Wrap("delete", fileBackend, classifyFileError(fmt.Errorf("delete failed: %w", err)))
	}
	return nil
}

func classifyFileError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", credential.ErrAccessDenied, err)
	}
	return err
}
