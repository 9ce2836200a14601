package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/config"
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
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
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

func TestCheckPrompts(t *testing.T) {
	result := CheckPrompts("")
	if !result.Passed {
		t.Fatalf("expected embedded catalog to pass, got: %s", result.Detail)
	}
	if !strings.HasPrefix(result.Detail, "embedded") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}

	broken := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(broken, []byte("outline: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckPrompts(broken); result.Passed {
		t.Fatal("expected malformed override to fail")
	}
}

func healthServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "denied"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": `{"ok":true}`}},
			},
		})
	}))
}

func TestCheckLLM_OK(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM provider", config.LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "demo"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "demo") {
		t.Fatalf("expected model in detail, got %s", result.Detail)
	}
}

func TestCheckLLM_Unauthorized(t *testing.T) {
	srv := healthServer(t, http.StatusUnauthorized)
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM provider", config.LLMConfig{APIKey: "bad", BaseURL: srv.URL, Model: "demo"})
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM provider", config.LLMConfig{})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckNtfy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/private") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckNtfy(context.Background(), srv.URL+"/loom"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	result := CheckNtfy(context.Background(), srv.URL+"/private")
	if result.Passed || !strings.Contains(result.Detail, "authentication") {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLocalAndRunAllRespectConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.RunsDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "missing")
	cfg.LLM.Provider = config.ProviderMock
	cfg.Notifications.Enabled = false

	local := Local(&cfg)
	if len(local) != 3 {
		t.Fatalf("expected 3 local checks, got %d", len(local))
	}
	failed := Failed(local)
	if len(failed) != 1 || failed[0].Name != "Log directory" {
		t.Fatalf("expected only log directory to fail, got %+v", failed)
	}

	all := RunAll(context.Background(), &cfg)
	if len(all) != len(local) {
		t.Fatalf("mock provider without notifications should add no network checks, got %d", len(all))
	}

	if Local(nil) != nil || RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
