package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("<TS></TS>"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestDetectCatalogs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"translations/app.ts",
		"translations/app_de.ts",
		"translations/app_pt_BR.ts",
		"translations/readme.txt",
	)

	p := Detect(root)
	if p.CatalogDir != filepath.Join(root, "translations") {
		t.Fatalf("CatalogDir = %q", p.CatalogDir)
	}
	if p.Template != filepath.Join(root, "translations", "app.ts") {
		t.Fatalf("Template = %q", p.Template)
	}
	if len(p.Languages) != 2 || p.Languages[0] != "de" || p.Languages[1] != "pt_BR" {
		t.Fatalf("Languages = %v, want [de pt_BR]", p.Languages)
	}
	if got := p.Catalogs["pt_BR"]; got != filepath.Join(root, "translations", "app_pt_BR.ts") {
		t.Fatalf("Catalogs[pt_BR] = %q", got)
	}
}

func TestDetectEmptyProject(t *testing.T) {
	root := t.TempDir()
	p := Detect(root)
	if len(p.Languages) != 0 {
		t.Fatalf("Languages = %v, want none", p.Languages)
	}
	if p.SourceLang != "en" {
		t.Fatalf("SourceLang = %q, want en", p.SourceLang)
	}
	// CatalogPath still yields a usable conventional path.
	want := filepath.Join(root, "translations", p.Name+"_fr.ts")
	if got := p.CatalogPath("fr"); got != want {
		t.Fatalf("CatalogPath(fr) = %q, want %q", got, want)
	}
}

func TestLangFromFileName(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"app_de.ts", "de"},
		{"app_pt_BR.ts", "pt_BR"},
		{"my_tool_ru.ts", "ru"},
		{"app.ts", ""},
		{"app_v2.ts", ""},
	}
	for _, tc := range cases {
		if got := langFromFileName(tc.name); got != tc.want {
			t.Fatalf("langFromFileName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLoadTSLocFile(t *testing.T) {
	root := t.TempDir()
	content := `languages: [de, fr]
source_lang: en
catalog_dir: i18n
template: i18n/app.ts
pipeline:
  provider: openai
  model: gpt-4o-mini
  batch_size: 10
  rate_limit_count: 30
  rate_limit_window_ms: 60000
thresholds:
  max_length_ratio: 8
`
	if err := os.WriteFile(filepath.Join(root, TSLocFileName), []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	tf, err := LoadTSLocFile(root)
	if err != nil {
		t.Fatalf("LoadTSLocFile() error: %v", err)
	}
	if tf == nil {
		t.Fatalf("LoadTSLocFile() = nil for existing file")
	}
	if len(tf.Languages) != 2 || tf.Pipeline.BatchSize != 10 {
		t.Fatalf("parsed config = %+v", tf)
	}
	if tf.Thresholds.MaxLengthRatio != 8 {
		t.Fatalf("MaxLengthRatio = %v, want 8", tf.Thresholds.MaxLengthRatio)
	}

	writeFiles(t, root, "i18n/app_de.ts")
	p, err := tf.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if p.Catalogs["de"] != filepath.Join(root, "i18n", "app_de.ts") {
		t.Fatalf("Catalogs[de] = %q", p.Catalogs["de"])
	}
	// Declared but missing catalogs resolve to their conventional path.
	if p.Catalogs["fr"] != filepath.Join(root, "i18n", "app_fr.ts") {
		t.Fatalf("Catalogs[fr] = %q", p.Catalogs["fr"])
	}
}

func TestLoadTSLocFileReposAndResources(t *testing.T) {
	root := t.TempDir()
	content := `languages: [de]
repos:
  - name: upstream
    url: https://example.com/upstream.git
    branch: main
resources:
  - url: https://example.com/app_de.ts
    path: translations/app_de.ts
`
	if err := os.WriteFile(filepath.Join(root, TSLocFileName), []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	tf, err := LoadTSLocFile(root)
	if err != nil {
		t.Fatalf("LoadTSLocFile() error: %v", err)
	}
	if len(tf.Repos) != 1 || tf.Repos[0].Name != "upstream" || tf.Repos[0].Branch != "main" {
		t.Fatalf("Repos = %+v", tf.Repos)
	}
	if len(tf.Resources) != 1 || tf.Resources[0].Path != "translations/app_de.ts" {
		t.Fatalf("Resources = %+v", tf.Resources)
	}
}

func TestLoadTSLocFileRejectsIncompleteEntries(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"repo without url", "languages: [de]\nrepos:\n  - name: upstream\n"},
		{"resource without path", "languages: [de]\nresources:\n  - url: https://example.com/a.ts\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			if err := os.WriteFile(filepath.Join(root, TSLocFileName), []byte(tc.content), 0644); err != nil {
				t.Fatalf("writing config: %v", err)
			}
			if _, err := LoadTSLocFile(root); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadTSLocFileMissing(t *testing.T) {
	tf, err := LoadTSLocFile(t.TempDir())
	if err != nil {
		t.Fatalf("LoadTSLocFile() error: %v", err)
	}
	if tf != nil {
		t.Fatalf("LoadTSLocFile() = %+v, want nil for missing file", tf)
	}
}

func TestEnvOverridesApply(t *testing.T) {
	t.Setenv("TSLOC_PROVIDER", "groq")
	t.Setenv("TSLOC_BATCH_SIZE", "7")

	ov, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv() error: %v", err)
	}

	pc := PipelineConfig{Provider: "openai", Model: "gpt-4o-mini", BatchSize: 25}
	ov.Apply(&pc)
	if pc.Provider != "groq" {
		t.Fatalf("Provider = %q, want groq", pc.Provider)
	}
	if pc.BatchSize != 7 {
		t.Fatalf("BatchSize = %d, want 7", pc.BatchSize)
	}
	if pc.Model != "gpt-4o-mini" {
		t.Fatalf("Model overridden without an env var: %q", pc.Model)
	}
}
