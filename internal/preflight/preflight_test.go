package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ghoststation/internal/config"
	"ghoststation/internal/source"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass with a 1 byte minimum, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, 1<<62); result.Passed {
		t.Fatal("expected failure with an impossible minimum")
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "Classifier LLM", config.Classifier{})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "Classifier LLM", config.Classifier{APIKey: "good-key", BaseURL: srv.URL})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckCamera(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("\xff\xd8\xff\xe0frame"))
	}))
	defer srv.Close()

	if result := CheckCamera(context.Background(), source.NewHTTPCamera(srv.URL, 0)); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckCamera(context.Background(), source.NewReplay(t.TempDir())); result.Passed {
		t.Fatal("expected failure for empty replay dir")
	}
}

func TestRunAllSkipsUnconfiguredServices(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.MediaDir = t.TempDir()
	cfg.Classifier.APIKey = ""

	results := RunAll(context.Background(), &cfg, source.Offline{})
	if len(results) != 3 {
		t.Fatalf("expected directory and space checks only, got %+v", results)
	}
	for _, r := range results {
		if strings.Contains(r.Name, "Camera") || strings.Contains(r.Name, "LLM") {
			t.Fatalf("unexpected check %q", r.Name)
		}
	}
}

func TestFailed(t *testing.T) {
	results := []Result{{Name: "a", Passed: true}, {Name: "b"}, {Name: "c", Passed: true}}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("unexpected failed results %+v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatalf("expected nil results, got %+v", results)
	}
}
