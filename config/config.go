// Package config implements auto-detection of TS catalogs in a project
// tree and the .tsloc.yaml project file. When .tsloc.yaml exists it is the
// sole source of truth; otherwise common catalog locations are scanned.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Project holds the resolved translation project: where the catalogs live
// and which languages they cover. It is threaded explicitly through the CLI;
// there is no process-wide project state.
type Project struct {
	// Name is the project name (directory basename).
	Name string
	// RootDir is the absolute project root.
	RootDir string
	// CatalogDir is the directory containing .ts files.
	CatalogDir string
	// Template is the path to the language-less template catalog, if any
	// (e.g. app.ts next to app_de.ts, app_fr.ts).
	Template string
	// Catalogs maps language code to catalog path.
	Catalogs map[string]string
	// Languages is the sorted language list.
	Languages []string
	// SourceLang is the source language code (default "en").
	SourceLang string
}

// CatalogPath returns the catalog path for a language, or the conventional
// path inside CatalogDir when none exists yet.
func (p *Project) CatalogPath(lang string) string {
	if path, ok := p.Catalogs[lang]; ok {
		return path
	}
	base := p.Name
	if p.Template != "" {
		base = strings.TrimSuffix(filepath.Base(p.Template), ".ts")
	}
	return filepath.Join(p.CatalogDir, base+"_"+lang+".ts")
}

// CatalogPaths returns all catalog paths in language order.
func (p *Project) CatalogPaths() []string {
	paths := make([]string, 0, len(p.Languages))
	for _, lang := range p.Languages {
		paths = append(paths, p.Catalogs[lang])
	}
	return paths
}

// Detect auto-detects the translation project under rootDir. Scans the
// conventional catalog directories for .ts files named <base>_<lang>.ts.
func Detect(rootDir string) *Project {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	p := &Project{
		Name:       filepath.Base(absRoot),
		RootDir:    absRoot,
		SourceLang: "en",
		Catalogs:   make(map[string]string),
	}

	for _, candidate := range []string{"translations", "ts", "i18n", "resources/translations", "."} {
		dir := filepath.Join(absRoot, filepath.FromSlash(candidate))
		if scanCatalogDir(p, dir) {
			p.CatalogDir = dir
			break
		}
	}
	if p.CatalogDir == "" {
		p.CatalogDir = filepath.Join(absRoot, "translations")
	}

	sort.Strings(p.Languages)
	return p
}

// scanCatalogDir fills p from .ts files in dir, reporting whether any were found.
func scanCatalogDir(p *Project, dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	found := false
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".ts") {
			continue
		}
		path := filepath.Join(dir, name)
		lang := langFromFileName(name)
		if lang == "" {
			// A language-less catalog is the template.
			if p.Template == "" {
				p.Template = path
			}
			found = true
			continue
		}
		if _, dup := p.Catalogs[lang]; !dup {
			p.Catalogs[lang] = path
			p.Languages = append(p.Languages, lang)
		}
		found = true
	}
	return found
}

// langFromFileName extracts a language code from a catalog file name like
// app_de.ts or app_pt_BR.ts. Returns "" when the name carries no code.
func langFromFileName(name string) string {
	base := strings.TrimSuffix(name, ".ts")
	parts := strings.Split(base, "_")
	if len(parts) >= 3 {
		// base_pt_BR
		code := parts[len(parts)-2] + "_" + parts[len(parts)-1]
		if isLangCode(code) {
			return code
		}
	}
	if len(parts) >= 2 {
		code := parts[len(parts)-1]
		if isLangCode(code) {
			return code
		}
	}
	return ""
}

// isLangCode checks if a string looks like a language code (en, ru, pt_BR, zh_CN).
func isLangCode(s string) bool {
	if len(s) == 2 {
		return s[0] >= 'a' && s[0] <= 'z' && s[1] >= 'a' && s[1] <= 'z'
	}
	if len(s) == 5 && s[2] == '_' {
		return s[0] >= 'a' && s[0] <= 'z' && s[1] >= 'a' && s[1] <= 'z' &&
			s[3] >= 'A' && s[3] <= 'Z' && s[4] >= 'A' && s[4] <= 'Z'
	}
	return false
}
