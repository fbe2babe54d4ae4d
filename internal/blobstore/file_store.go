// Package blobstore keeps evidence file contents on local disk.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/filelock"
)

var ErrInvalidKey = errors.New("blobstore: invalid key")

// FileStore stores each blob as a file under Root. Keys are slash separated
// relative paths; writes are locked and atomic.
type FileStore struct {
	Root string
}

func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blobstore: root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &FileStore{Root: root}, nil
}

func (s *FileStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.Root, clean), nil
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	return filelock.LockAndWrite(p, data)
}

func (s *FileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}
