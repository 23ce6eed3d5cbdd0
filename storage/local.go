package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes uploads below a directory on disk.
type LocalStore struct {
	root string
	now  func() time.Time
}

// NewLocalStore 创建本地存储并确保各子目录存在
func NewLocalStore(root string) (*LocalStore, error) {
	for _, dir := range []string{FolderTracks, FolderCovers, FolderAvatars} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
		}
	}
	return &LocalStore{root: root, now: time.Now}, nil
}

func (s *LocalStore) Save(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error) {
	name, err := objectName(folder, filename, s.now())
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(name))
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	return PublicPrefix + name, nil
}

func (s *LocalStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.root))
}
