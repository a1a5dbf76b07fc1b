package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileFetcher(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "p1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "p1", "timeline.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := FileFetcher{Root: root}
	data, err := f.Fetch(context.Background(), "p1/timeline.json")
	if err != nil || string(data) != "{}" {
		t.Fatalf("unexpected fetch result: %q %v", data, err)
	}
	if _, err := f.Fetch(context.Background(), "p1/script.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/projects/p1/timeline.json":
			w.Write([]byte(`{"name":"x"}`))
		case "/projects/p1/broken.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL + "/projects/")
	data, err := f.Fetch(context.Background(), "p1/timeline.json")
	if err != nil || string(data) != `{"name":"x"}` {
		t.Fatalf("unexpected fetch result: %q %v", data, err)
	}
	if _, err := f.Fetch(context.Background(), "p1/script.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), "p1/broken.json"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected server error, got %v", err)
	}
}

type countingRefresher chan struct{}

func (c countingRefresher) Refresh() {
	select {
	case c <- struct{}{}:
	default:
	}
}

func TestFileWatcher_TriggersRefreshOnWrite(t *testing.T) {
	root := t.TempDir()
	hits := make(countingRefresher, 1)

	fw, err := NewFileWatcher(root, hits, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	fw.Start(context.Background())
	defer fw.Stop()

	// 非文档文件不触发
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-hits:
		t.Fatalf("non-document change should not trigger refresh")
	case <-time.After(100 * time.Millisecond):
	}

	if err := os.WriteFile(filepath.Join(root, "timeline.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-hits:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected refresh after document write")
	}
}
