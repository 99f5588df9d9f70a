package uploads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes media to a directory on disk. Development fallback for
// environments without a storage bucket; the returned URL is a file path.
type LocalStore struct {
	Dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "propdesk-media")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media dir: %w", err)
	}
	return &LocalStore{Dir: dir}, nil
}

func (s *LocalStore) Upload(ctx context.Context, data []byte, contentType, path string) (string, error) {
	_ = contentType
	dest := filepath.Join(s.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	return "file://" + dest, nil
}
