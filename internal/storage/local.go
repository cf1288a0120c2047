package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage stores uploaded artifacts on the local filesystem, one
// directory per entity. Private uploads are encrypted at rest; public ones
// are written verbatim.
type LocalStorage struct {
	basePath string
	cipher   *Cipher
}

// NewLocalStorage builds a store rooted at basePath. cipher may be nil, in
// which case private writes are rejected.
func NewLocalStorage(basePath string, cipher *Cipher) *LocalStorage {
	return &LocalStorage{basePath: basePath, cipher: cipher}
}

// StoredName derives a fresh unique on-disk name for an upload. Callers
// record the name on the row before writing the artifact, so a failed write
// leaves a traceable reference rather than an orphaned file.
func StoredName(filename string) string {
	return uuid.New().String() + "_" + filepath.Base(filename)
}

// Save persists content under the given stored name.
func (s *LocalStorage) Save(_ context.Context, entity, stored string, content []byte, public bool) error {
	dir := filepath.Join(s.basePath, entity)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	if !public {
		if s.cipher == nil {
			return fmt.Errorf("private storage requires a cipher key")
		}
		sealed, err := s.cipher.Seal(content)
		if err != nil {
			return fmt.Errorf("encrypt file: %w", err)
		}
		content = sealed
	}

	if err := os.WriteFile(filepath.Join(dir, filepath.Base(stored)), content, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Read returns the decoded content of a stored artifact.
func (s *LocalStorage) Read(_ context.Context, entity, stored string, public bool) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.basePath, entity, filepath.Base(stored)))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if public {
		return content, nil
	}
	if s.cipher == nil {
		return nil, fmt.Errorf("private storage requires a cipher key")
	}
	opened, err := s.cipher.Open(content)
	if err != nil {
		return nil, fmt.Errorf("decrypt file: %w", err)
	}
	return opened, nil
}

// Delete removes a stored artifact. A missing file is not an error: purges
// must succeed even when the artifact is already gone.
func (s *LocalStorage) Delete(_ context.Context, entity, stored string) error {
	path := filepath.Join(s.basePath, entity, filepath.Base(stored))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
