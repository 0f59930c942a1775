package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openlocalize/tsloc/config"
	"github.com/openlocalize/tsloc/lockfile"
	"github.com/openlocalize/tsloc/translate"
	"github.com/openlocalize/tsloc/tsfile"
	"github.com/openlocalize/tsloc/validate"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(filePath, []byte("ok"), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	if !fileExists(filePath) {
		t.Fatalf("fileExists(file) = false, want true")
	}
	if fileExists(dir) {
		t.Fatalf("fileExists(directory) = true, want false")
	}
	if fileExists(filepath.Join(dir, "missing.txt")) {
		t.Fatalf("fileExists(missing) = true, want false")
	}
}

func TestResolveProvider(t *testing.T) {
	prov := resolveProvider("openai", "", "sk-key", "gpt-4o", "", 30*time.Second)
	if prov.ID != translate.ProviderOpenAI {
		t.Fatalf("ID = %q, want openai", prov.ID)
	}
	if prov.Model != "gpt-4o" {
		t.Fatalf("Model = %q, want gpt-4o", prov.Model)
	}
	if prov.APIKey != "sk-key" {
		t.Fatalf("APIKey = %q", prov.APIKey)
	}
	if prov.Timeout != 30*time.Second {
		t.Fatalf("Timeout = %v, want 30s", prov.Timeout)
	}

	// Unknown name becomes a custom endpoint.
	prov = resolveProvider("https://llm.internal/v1", "", "", "local-model", "", 0)
	if prov.ID != translate.ProviderCustomOpenAI {
		t.Fatalf("custom ID = %q, want custom-openai", prov.ID)
	}
	if prov.BaseURL != "https://llm.internal/v1" {
		t.Fatalf("custom BaseURL = %q", prov.BaseURL)
	}
}

func TestValidateProvider(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	prov := resolveProvider("openai", "", "", "", "", 0)
	prov.Model = ""
	if err := validateProvider(prov, ""); err == nil || !strings.Contains(err.Error(), "--model is required") {
		t.Fatalf("missing model error = %v", err)
	}

	prov = resolveProvider("anthropic", "", "", "claude-3-5-haiku-latest", "", 0)
	if err := validateProvider(prov, ""); err == nil || !strings.Contains(err.Error(), "requires an API key") {
		t.Fatalf("missing key error = %v", err)
	}
	if err := validateProvider(prov, "sk-ant"); err != nil {
		t.Fatalf("validateProvider with key: %v", err)
	}
}

func TestResolveThresholds(t *testing.T) {
	th := resolveThresholds(config.ThresholdConfig{})
	if th != validate.DefaultThresholds() {
		t.Fatalf("zero config = %+v, want defaults", th)
	}

	th = resolveThresholds(config.ThresholdConfig{MaxLengthRatio: 5, SimilarityCutoff: 0.5})
	if th.MaxLengthRatio != 5 {
		t.Fatalf("MaxLengthRatio = %v, want 5", th.MaxLengthRatio)
	}
	if th.SimilarityCutoff != 0.5 {
		t.Fatalf("SimilarityCutoff = %v, want 0.5", th.SimilarityCutoff)
	}
	if th.MaxRepeatRun != validate.DefaultThresholds().MaxRepeatRun {
		t.Fatalf("MaxRepeatRun = %v, want default", th.MaxRepeatRun)
	}
}

const lockTestCatalog = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE TS>
<TS version="2.1" language="de_DE">
<context>
    <name>MainWindow</name>
    <message>
        <source>Open</source>
        <translation>Öffnen</translation>
    </message>
    <message>
        <source>Close</source>
        <translation>Schließen</translation>
    </message>
</context>
</TS>
`

func TestLockRoundTripAndStaleDemotion(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "translations", "app_de.ts")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(lockTestCatalog), 0644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}

	lf, err := lockfile.Load(root)
	if err != nil {
		t.Fatalf("lockfile.Load: %v", err)
	}

	// Nothing recorded yet: existing translations must not be demoted.
	if n := demoteStale(lf, root, path); n != 0 {
		t.Fatalf("demoteStale on empty lock = %d, want 0", n)
	}

	updateLock(lf, root, path)
	catalog := lockfile.CatalogKey("translations/app_de.ts")
	if !lf.Has(catalog, lockfile.MessageKey("MainWindow", "Open")) {
		t.Fatal("lock entry for Open missing after updateLock")
	}

	// Simulate a source text change by poking the recorded checksum.
	lf.Update(catalog, lockfile.MessageKey("MainWindow", "Open"), "something else")

	if n := demoteStale(lf, root, path); n != 1 {
		t.Fatalf("demoteStale after change = %d, want 1", n)
	}

	doc, err := tsfile.ParseFile(path)
	if err != nil {
		t.Fatalf("reparsing catalog: %v", err)
	}
	if got := len(doc.PendingMessages()); got != 1 {
		t.Fatalf("pending after demotion = %d, want 1", got)
	}
	if msg := doc.MessageBySource("MainWindow", "Close"); msg == nil || !msg.Finished() {
		t.Fatal("unchanged message lost its translation")
	}
}

func TestDownloadResourcesIntoProjectTree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<TS version=\"2.1\"></TS>")
	}))
	defer srv.Close()

	root := t.TempDir()
	resources := []config.ResourceConfig{
		{URL: srv.URL + "/app_de.ts", Path: "translations/app_de.ts"},
	}
	n, err := downloadResources(context.Background(), resources, root)
	if err != nil {
		t.Fatalf("downloadResources() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("downloaded %d resources, want 1", n)
	}
	data, err := os.ReadFile(filepath.Join(root, "translations", "app_de.ts"))
	if err != nil {
		t.Fatalf("reading mirrored file: %v", err)
	}
	if !strings.Contains(string(data), "<TS") {
		t.Fatalf("mirrored content = %q", data)
	}
}

func TestUploadResourcesSendsLocalFiles(t *testing.T) {
	var gotMethod string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	root := t.TempDir()
	local := filepath.Join(root, "translations", "app_de.ts")
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(local, []byte("<TS></TS>"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	resources := []config.ResourceConfig{
		{URL: srv.URL + "/app_de.ts", Path: "translations/app_de.ts"},
	}
	n, err := uploadResources(context.Background(), resources, root)
	if err != nil {
		t.Fatalf("uploadResources() error: %v", err)
	}
	if n != 1 || gotMethod != http.MethodPut || string(gotBody) != "<TS></TS>" {
		t.Fatalf("n=%d method=%q body=%q", n, gotMethod, gotBody)
	}

	// A declared resource with no local file fails before any transfer.
	missing := []config.ResourceConfig{{URL: srv.URL + "/x.ts", Path: "translations/missing.ts"}}
	if _, err := uploadResources(context.Background(), missing, root); err == nil {
		t.Fatalf("expected error for missing local file")
	}
}

func TestPruneLockDropsRemovedCatalogs(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "translations", "app_de.ts")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(lockTestCatalog), 0644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}

	lf, err := lockfile.Load(root)
	if err != nil {
		t.Fatalf("lockfile.Load: %v", err)
	}
	updateLock(lf, root, path)
	if catalogs, _ := lf.Stats(); catalogs != 1 {
		t.Fatalf("catalogs = %d, want 1", catalogs)
	}

	// Catalog still on disk: nothing is pruned.
	pruneLock(lf, root)
	if catalogs, _ := lf.Stats(); catalogs != 1 {
		t.Fatalf("catalogs after no-op prune = %d, want 1", catalogs)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("removing catalog: %v", err)
	}
	pruneLock(lf, root)
	if catalogs, _ := lf.Stats(); catalogs != 0 {
		t.Fatalf("catalogs after prune = %d, want 0", catalogs)
	}
}
