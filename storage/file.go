package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"time"
)

// Upload folders under /uploads.
const (
	FolderTracks  = "tracks"
	FolderCovers  = "covers"
	FolderAvatars = "avatars"
)

// PublicPrefix is the URL prefix every stored file is served under.
const PublicPrefix = "/uploads/"

// FileStore 上传文件的存储后端
type FileStore interface {
	// Save stores the content and returns its public path, e.g. /uploads/tracks/1700000000000-song.mp3.
	Save(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error)
	// Handler serves stored files; it expects the /uploads/ prefix already stripped.
	Handler() http.Handler
}

// Upload is a file received from a client, not yet stored.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SaveUpload stores u and returns its public path, or nil when u is nil.
func SaveUpload(ctx context.Context, fs FileStore, folder string, u *Upload) (*string, error) {
	if u == nil {
		return nil, nil
	}
	p, err := fs.Save(ctx, folder, u.Filename, u.Body, u.Size, u.ContentType)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// objectName 生成带时间戳的安全文件名
func objectName(folder, filename string, now time.Time) (string, error) {
	switch folder {
	case FolderTracks, FolderCovers, FolderAvatars:
	default:
		return "", fmt.Errorf("unknown upload folder %q", folder)
	}
	base := unsafeChars.ReplaceAllString(path.Base(filename), "_")
	if base == "" || base == "." || base == "/" {
		base = "file"
	}
	return path.Join(folder, fmt.Sprintf("%d-%s", now.UnixMilli(), base)), nil
}
