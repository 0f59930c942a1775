package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func useTempStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	return dir
}

func TestSetGetRemoveAPIKey(t *testing.T) {
	useTempStore(t)

	if got := GetAPIKey("openai"); got != "" {
		t.Fatalf("GetAPIKey on empty store = %q, want empty", got)
	}

	if err := SetAPIKey("openai", "sk-test-123456"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if got := GetAPIKey("openai"); got != "sk-test-123456" {
		t.Fatalf("GetAPIKey = %q", got)
	}

	if err := Remove("openai"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := GetAPIKey("openai"); got != "" {
		t.Fatalf("GetAPIKey after Remove = %q, want empty", got)
	}
}

func TestSetAPIKeyWithBaseURL(t *testing.T) {
	useTempStore(t)

	if err := SetAPIKeyWithBaseURL("custom-openai", "key", "http://localhost:8080/v1"); err != nil {
		t.Fatalf("SetAPIKeyWithBaseURL: %v", err)
	}
	if got := GetBaseURL("custom-openai"); got != "http://localhost:8080/v1" {
		t.Fatalf("GetBaseURL = %q", got)
	}
	// Updating the key keeps the base URL.
	if err := SetAPIKey("custom-openai", "key2"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if got := GetBaseURL("custom-openai"); got != "http://localhost:8080/v1" {
		t.Fatalf("GetBaseURL after key update = %q", got)
	}
}

func TestFilePermissions(t *testing.T) {
	dir := useTempStore(t)

	if err := SetAPIKey("openai", "secret"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	path := filepath.Join(dir, "tsloc", "auth.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat auth file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("auth.json permissions = %o, want 0600", perm)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	dir := useTempStore(t)
	path := filepath.Join(dir, "tsloc", "auth.json")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := Load()
	if len(store) != 0 {
		t.Fatalf("Load of invalid file = %v, want empty store", store)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("short"); got != "****" {
		t.Fatalf("MaskKey(short) = %q", got)
	}
	got := MaskKey("sk-abcdefghijklmnop")
	if !strings.HasPrefix(got, "sk-a") || !strings.HasSuffix(got, "mnop") || strings.Contains(got, "efgh") {
		t.Fatalf("MaskKey = %q", got)
	}
}
