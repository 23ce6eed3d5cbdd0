package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLocalStoreSaveAndServe(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	p, err := s.Save(context.Background(), FolderTracks, "../my song (live).mp3", strings.NewReader("audio"), 5, "audio/mpeg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if p != "/uploads/tracks/1700000000000-my_song__live_.mp3" {
		t.Fatalf("unexpected path %q", p)
	}

	srv := httptest.NewServer(http.StripPrefix("/uploads", s.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + p)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "audio" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
}

func TestLocalStoreRejectsUnknownFolder(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := s.Save(context.Background(), "../etc", "x", strings.NewReader(""), 0, ""); err == nil {
		t.Fatalf("expected error for unknown folder")
	}
}
