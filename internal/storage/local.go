// Package storage persists uploaded files and returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore saves an uploaded file and returns the URL it is served from.
type FileStore interface {
	Save(ctx context.Context, filename string, content io.Reader) (string, error)
}

// LocalStore writes files into a directory served statically under URLPrefix.
type LocalStore struct {
	dir       string
	urlPrefix string
}

var _ FileStore = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir, urlPrefix string) *LocalStore {
	return &LocalStore{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}
}

// Dir returns the directory files are written to.
func (s *LocalStore) Dir() string { return s.dir }

// URLPrefix returns the URL path files are served under.
func (s *LocalStore) URLPrefix() string { return s.urlPrefix }

// Save stores content under a random name keeping the original extension.
func (s *LocalStore) Save(ctx context.Context, filename string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	full := filepath.Join(s.dir, name)
	dst, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(dst, content); err != nil {
		_ = dst.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write file: %w", err)
	}
	// Close flushes the last write; a failure here leaves a truncated file.
	if err := dst.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("close file: %w", err)
	}
	return path.Join(s.urlPrefix, name), nil
}
