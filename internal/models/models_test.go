package models

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestStorePath(t *testing.T) {
	s := Store{Dir: "/data/models"}
	tests := []struct {
		id   string
		want string
	}{
		{"base.en", "/data/models/ggml-base.en.bin"},
		{"large-v3", "/data/models/ggml-large-v3.bin"},
		{"qwen2.5-0.5b", "/data/models/qwen2.5-0.5b-instruct-q4_k_m.gguf"},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := s.Path(tt.id)
			if tt.want == "" {
				if err == nil {
					t.Errorf("Path(%q) = %s, want error", tt.id, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Path(%q) = %s, want %s", tt.id, got, tt.want)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	if got := DefaultStore("/data").Dir; got != "/data/models" {
		t.Errorf("DefaultStore dir = %s", got)
	}

	info, ok := Get("tiny.en")
	if !ok {
		t.Fatal("tiny.en missing from catalog")
	}
	if info.URL != "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.en.bin" {
		t.Errorf("URL = %s", info.URL)
	}
	if info.Multilingual {
		t.Error(".en models are english only")
	}

	for _, m := range List("") {
		if m.ID == "" || m.Name == "" || m.Filename == "" || m.Size == "" || m.URL == "" {
			t.Errorf("incomplete catalog entry: %+v", m)
		}
		if m.SizeBytes <= 0 {
			t.Errorf("Model %s has invalid SizeBytes: %d", m.ID, m.SizeBytes)
		}
	}

	for _, m := range List(PostProcessing) {
		if m.Kind != PostProcessing {
			t.Errorf("List(PostProcessing) returned %s", m.ID)
		}
		if !strings.HasSuffix(m.Filename, ".gguf") {
			t.Errorf("post-processing model %s is not gguf", m.ID)
		}
	}
	if len(List(Transcription))+len(List(PostProcessing)) != len(List("")) {
		t.Error("every model has exactly one kind")
	}
}

func TestStoreInstalled(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	if s.IsInstalled("base.en") {
		t.Fatal("empty store reports base.en installed")
	}

	path, _ := s.Path("base.en")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if s.IsInstalled("base.en") {
		t.Error("empty file must not count as installed")
	}

	if err := os.WriteFile(path, []byte("ggml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !s.IsInstalled("base.en") {
		t.Error("IsInstalled(base.en) = false after writing the file")
	}
	if got := s.Installed(Transcription); len(got) != 1 || got[0].ID != "base.en" {
		t.Errorf("Installed() = %+v", got)
	}
	if got, err := s.InstalledPath("base.en"); err != nil || got != path {
		t.Errorf("InstalledPath() = %s, %v", got, err)
	}

	if err := s.Remove("base.en"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := s.Remove("base.en"); err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Errorf("second Remove() error = %v, want not installed", err)
	}
	if err := s.Remove("unknown-model"); err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("Remove(unknown) error = %v", err)
	}
}

func testDownloader(t *testing.T, h http.Handler) *Downloader {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	d := NewDownloader(Store{Dir: filepath.Join(t.TempDir(), "models")})
	d.Client = srv.Client()
	d.BaseURL = srv.URL
	d.Backoff = 10 * time.Millisecond
	return d
}

func TestDownload(t *testing.T) {
	body := strings.Repeat("x", 100_000)
	d := testDownloader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ggml-tiny.en.bin" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))

	var last int64
	err := d.Download(context.Background(), "tiny.en", func(downloaded, total int64) {
		last = downloaded
	})
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if last != int64(len(body)) {
		t.Errorf("last progress = %d, want %d", last, len(body))
	}

	path, err := d.Store.InstalledPath("tiny.en")
	if err != nil {
		t.Fatalf("model not installed after download: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != body {
		t.Error("downloaded content mismatch")
	}
	if _, err := os.Stat(path + ".downloading"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestDownload_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	d := testDownloader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("model"))
	}))

	if err := d.Download(context.Background(), "base", nil); err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

func TestDownload_NoRetryOnNotFound(t *testing.T) {
	var calls atomic.Int32
	d := testDownloader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))

	err := d.Download(context.Background(), "base", nil)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Download() error = %v, want 404", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
	if d.Store.IsInstalled("base") {
		t.Error("failed download must not install")
	}
}

func TestDownload_GivesUp(t *testing.T) {
	var calls atomic.Int32
	d := testDownloader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	d.Retries = 2

	err := d.Download(context.Background(), "base", nil)
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Download() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

func TestDownload_UnknownModel(t *testing.T) {
	d := NewDownloader(Store{Dir: t.TempDir()})
	err := d.Download(context.Background(), "unknown-model", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("Download error = %v, want error containing 'unknown model'", err)
	}
}

func TestDownload_Cancelled(t *testing.T) {
	d := testDownloader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	d.Backoff = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := d.Download(ctx, "tiny.en", nil); err == nil {
		t.Error("Download with cancelled context = nil, want error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation should interrupt the backoff wait")
	}
}
