package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by Read for keys that were never written.
var ErrNotFound = errors.New("storage: asset not found")

// FileStore keeps generated images on the local filesystem under one root.
type FileStore struct {
	root string
}

// NewFileStore creates root if needed.
func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Write stores data at key and returns the cleaned key.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	fullPath, cleanKey, err := s.resolve(ctx, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", cleanKey, err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("storage: commit %s: %w", cleanKey, err)
	}
	return cleanKey, nil
}

// Read returns the bytes stored at key.
func (s *FileStore) Read(ctx context.Context, key string) ([]byte, error) {
	fullPath, cleanKey, err := s.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cleanKey)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", cleanKey, err)
	}
	return data, nil
}

// List returns the sorted keys stored below prefix.
func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	dir, cleanPrefix, err := s.resolve(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var keys []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", cleanPrefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FileStore) resolve(ctx context.Context, key string) (string, string, error) {
	if s == nil {
		return "", "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleanKey)), cleanKey, nil
}

// sanitizeKey normalizes a key and refuses anything escaping the root.
func sanitizeKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	key = strings.TrimLeft(strings.TrimPrefix(key, "./"), "/")
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return cleaned, nil
}
