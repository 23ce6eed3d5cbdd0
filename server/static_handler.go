package server

import (
	"net/http"
	"strings"

	"Soundbay/storage"
)

// uploadsHandler 提供 /uploads/ 下的文件，本地磁盘或 MinIO 代理
func uploadsHandler(files storage.FileStore) http.Handler {
	inner := http.StripPrefix(strings.TrimSuffix(storage.PublicPrefix, "/"), files.Handler())
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000")
		inner.ServeHTTP(w, r)
	})
}
