package config

// This file implements the .tsloc.yaml configuration file. When it exists
// in the project root it is the sole source of truth for catalogs and
// pipeline settings: no auto-detection, every language explicitly declared.

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// TSLocFile is the top-level .tsloc.yaml structure.
type TSLocFile struct {
	// Languages is the list of target language codes.
	Languages []string `yaml:"languages"`
	// SourceLang is the source language code (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// CatalogDir is the directory containing .ts files, relative to the
	// project root (default "translations").
	CatalogDir string `yaml:"catalog_dir,omitempty"`
	// Template is the language-less template catalog, relative to the
	// project root.
	Template string `yaml:"template,omitempty"`
	// Pipeline tunes the translation run.
	Pipeline PipelineConfig `yaml:"pipeline,omitempty"`
	// Thresholds tunes the quality heuristics.
	Thresholds ThresholdConfig `yaml:"thresholds,omitempty"`
	// Repos are upstream repositories mirrored locally by `tsloc sync`.
	Repos []RepoConfig `yaml:"repos,omitempty"`
	// Resources are remote catalog files mirrored into the project tree.
	Resources []ResourceConfig `yaml:"resources,omitempty"`
}

// RepoConfig declares a git repository holding translation resources.
type RepoConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
}

// ResourceConfig maps a remote file to a path relative to the project root.
type ResourceConfig struct {
	URL  string `yaml:"url"`
	Path string `yaml:"path"`
}

// PipelineConfig holds the batch/concurrency/rate settings.
type PipelineConfig struct {
	Provider           string `yaml:"provider,omitempty"`
	Model              string `yaml:"model,omitempty"`
	BaseURL            string `yaml:"base_url,omitempty"`
	BatchSize          int    `yaml:"batch_size,omitempty"`
	MaxConcurrentFiles int    `yaml:"max_concurrent_files,omitempty"`
	ForceSerial        bool   `yaml:"force_serial,omitempty"`
	RateLimitCount     int    `yaml:"rate_limit_count,omitempty"`
	RateLimitWindowMs  int    `yaml:"rate_limit_window_ms,omitempty"`
	BatchDelayMs       int    `yaml:"batch_delay_ms,omitempty"`
	MaxRetries         int    `yaml:"max_retries,omitempty"`
	KeepUnfinished     bool   `yaml:"keep_unfinished,omitempty"`
	Semantic           bool   `yaml:"semantic,omitempty"`
	SkipLanguageCheck  bool   `yaml:"skip_language_check,omitempty"`
}

// ThresholdConfig mirrors validate.Thresholds in YAML form. Zero fields fall
// back to the built-in defaults.
type ThresholdConfig struct {
	MaxLengthRatio      float64 `yaml:"max_length_ratio,omitempty"`
	MaxRepeatRun        int     `yaml:"max_repeat_run,omitempty"`
	MaxSingleCharLen    int     `yaml:"max_single_char_len,omitempty"`
	LongSourceLen       int     `yaml:"long_source_len,omitempty"`
	ShortTranslationLen int     `yaml:"short_translation_len,omitempty"`
	EchoMinLen          int     `yaml:"echo_min_len,omitempty"`
	SimilarityCutoff    float64 `yaml:"similarity_cutoff,omitempty"`
}

// TSLocFileName is the default config file name.
const TSLocFileName = ".tsloc.yaml"

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadTSLocFile loads and validates .tsloc.yaml from the given directory.
// Returns nil if no .tsloc.yaml exists.
func LoadTSLocFile(rootDir string) (*TSLocFile, error) {
	path := filepath.Join(rootDir, TSLocFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var tf TSLocFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if tf.SourceLang == "" {
		tf.SourceLang = "en"
	}
	if tf.CatalogDir == "" {
		tf.CatalogDir = "translations"
	}
	if len(tf.Languages) == 0 {
		return nil, fmt.Errorf("%s: no languages declared", path)
	}
	for _, r := range tf.Repos {
		if r.Name == "" || r.URL == "" {
			return nil, fmt.Errorf("%s: repo entries need both name and url", path)
		}
	}
	for _, r := range tf.Resources {
		if r.URL == "" || r.Path == "" {
			return nil, fmt.Errorf("%s: resource entries need both url and path", path)
		}
	}

	return &tf, nil
}

// Resolve converts a TSLocFile into a Project with absolute paths. Declared
// languages whose catalog file is missing keep their conventional path so
// the merge command can create them.
func (tf *TSLocFile) Resolve(projectRoot string) (*Project, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Name:       filepath.Base(absRoot),
		RootDir:    absRoot,
		CatalogDir: filepath.Join(absRoot, filepath.FromSlash(tf.CatalogDir)),
		SourceLang: tf.SourceLang,
		Catalogs:   make(map[string]string),
	}
	if tf.Template != "" {
		p.Template = filepath.Join(absRoot, filepath.FromSlash(tf.Template))
	}

	// Pick up whatever is on disk, then pin the declared language list.
	scanCatalogDir(p, p.CatalogDir)
	p.Languages = append([]string(nil), tf.Languages...)
	for _, lang := range tf.Languages {
		if _, ok := p.Catalogs[lang]; !ok {
			p.Catalogs[lang] = p.CatalogPath(lang)
		}
	}

	return p, nil
}
