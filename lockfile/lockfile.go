// Package lockfile implements tsloc.lock, a lock file that tracks MD5
// checksums of source strings per catalog. This enables incremental
// translation: only new or changed strings are sent to the AI provider,
// saving tokens and time.
//
// The lock file is stored alongside .tsloc.yaml as tsloc.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "tsloc.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the tsloc.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // catalog -> key -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// CatalogKey builds a unique key for a catalog entry, e.g. "translations/app_de.ts".
func CatalogKey(filePath string) string {
	return filepath.ToSlash(filePath)
}

// IsChanged checks if a source string has changed since last translation.
// Returns true if the string is new or its content has changed.
func (lf *LockFile) IsChanged(catalog, key, sourceContent string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys, ok := lf.Checksums[catalog]
	if !ok {
		return true
	}
	oldHash, ok := keys[key]
	if !ok {
		return true
	}
	return oldHash != Hash(sourceContent)
}

// Has reports whether a checksum is recorded for the key. Distinguishes a
// never-translated string (no entry) from a changed one (stale entry).
func (lf *LockFile) Has(catalog, key string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys, ok := lf.Checksums[catalog]
	if !ok {
		return false
	}
	_, ok = keys[key]
	return ok
}

// Update records the checksum of a source string after successful translation.
func (lf *LockFile) Update(catalog, key, sourceContent string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[catalog] == nil {
		lf.Checksums[catalog] = make(map[string]string)
	}
	lf.Checksums[catalog][key] = Hash(sourceContent)
}

// UpdateBatch records checksums for multiple keys at once.
func (lf *LockFile) UpdateBatch(catalog string, entries map[string]string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[catalog] == nil {
		lf.Checksums[catalog] = make(map[string]string)
	}
	for key, sourceContent := range entries {
		lf.Checksums[catalog][key] = Hash(sourceContent)
	}
}

// Clean removes entries from the lock file that are no longer present in
// the current set of keys. This prevents stale entries from accumulating.
func (lf *LockFile) Clean(catalog string, currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[catalog]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// RemoveCatalog removes all checksums for a catalog.
func (lf *LockFile) RemoveCatalog(catalog string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, catalog)
}

// ---------------------------------------------------------------------------
// TS-specific helpers
// ---------------------------------------------------------------------------

// MessageKey builds a lock file key from a TS context name and source string.
// Format: "context|source" or just "source" if no context.
func MessageKey(contextName, source string) string {
	if contextName != "" {
		return contextName + "|" + source
	}
	return source
}

// MessageContent builds the source content string for hashing. The
// disambiguation comment is included so a changed comment triggers
// re-translation.
func MessageContent(source, comment string) string {
	if comment != "" {
		return source + "\x00" + comment
	}
	return source
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of catalogs and total keys in the lock file.
func (lf *LockFile) Stats() (catalogs, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	catalogs = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Catalogs returns the sorted list of catalog keys.
func (lf *LockFile) Catalogs() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	catalogs := make([]string, 0, len(lf.Checksums))
	for c := range lf.Checksums {
		catalogs = append(catalogs, c)
	}
	sort.Strings(catalogs)
	return catalogs
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	catalogs, keys := lf.Stats()
	if catalogs == 0 {
		return "empty"
	}

	var parts []string
	for _, c := range lf.Catalogs() {
		n := len(lf.Checksums[c])
		parts = append(parts, fmt.Sprintf("%s: %d keys", c, n))
	}
	return fmt.Sprintf("%d catalogs, %d keys (%s)", catalogs, keys, strings.Join(parts, ", "))
}
