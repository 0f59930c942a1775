// Package lconvert wraps the Qt Linguist command-line tools lconvert and
// lrelease for catalog file conversion: creating a target-language catalog
// from a template, converting between catalog formats, and compiling .ts
// catalogs into binary .qm files.
//
// The tools are invoked as black boxes: the package reports success or
// failure plus the output path and size, nothing more. When lconvert is not
// installed, template-based catalog creation falls back to the pure-Go merge
// package so the pipeline keeps working without Qt on the machine.
package lconvert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/openlocalize/tsloc/merge"
)

// Result holds the outcome of a conversion or release run.
type Result struct {
	// OutputPath is the file the tool produced.
	OutputPath string
	// Bytes is the size of the produced file.
	Bytes int64
}

// LconvertAvailable reports whether the lconvert binary is on PATH.
func LconvertAvailable() bool {
	_, err := exec.LookPath("lconvert")
	return err == nil
}

// LreleaseAvailable reports whether the lrelease binary is on PATH.
func LreleaseAvailable() bool {
	_, err := exec.LookPath("lrelease")
	return err == nil
}

// run executes a tool with stderr captured, surfacing it only on failure.
func run(ctx context.Context, tool string, args ...string) error {
	path, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found; install Qt Linguist tools: sudo apt install qttools5-dev-tools", tool)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stderrBuf strings.Builder
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		if stderrBuf.Len() > 0 {
			fmt.Fprint(os.Stderr, stderrBuf.String())
		}
		return fmt.Errorf("%s failed: %w", tool, err)
	}
	return nil
}

// stat fills a Result for an output file the tool claims to have written.
func stat(outPath string) (*Result, error) {
	info, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("output file missing after conversion: %w", err)
	}
	return &Result{OutputPath: outPath, Bytes: info.Size()}, nil
}

// CreateLanguageFile creates a target-language .ts catalog from a template
// catalog. All messages start unfinished and the language attribute is set
// to lang.
//
// Uses lconvert when available; otherwise falls back to the merge package,
// which produces an equivalent catalog without external tools.
func CreateLanguageFile(ctx context.Context, templatePath, targetPath, lang string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	if !LconvertAvailable() {
		if err := merge.CreateFromTemplate(templatePath, targetPath, lang); err != nil {
			return nil, err
		}
		return stat(targetPath)
	}

	err := run(ctx, "lconvert",
		"-i", templatePath,
		"-o", targetPath,
		"-target-language", lang,
		"-no-obsolete",
	)
	if err != nil {
		return nil, err
	}
	return stat(targetPath)
}

// Convert converts a catalog between formats that lconvert understands
// (.ts, .po, .xlf, .qm). The formats are inferred from the file extensions.
// Unlike CreateLanguageFile there is no pure-Go fallback.
func Convert(ctx context.Context, inPath, outPath string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := run(ctx, "lconvert", "-i", inPath, "-o", outPath); err != nil {
		return nil, err
	}
	return stat(outPath)
}

// Release compiles a .ts catalog into a binary .qm file with lrelease.
// Unfinished messages are omitted from the compiled catalog, matching
// Qt's runtime fallback-to-source behavior.
func Release(ctx context.Context, tsPath, qmPath string) (*Result, error) {
	if qmPath == "" {
		qmPath = strings.TrimSuffix(tsPath, filepath.Ext(tsPath)) + ".qm"
	}
	if err := os.MkdirAll(filepath.Dir(qmPath), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := run(ctx, "lrelease", "-silent", tsPath, "-qm", qmPath); err != nil {
		return nil, err
	}
	return stat(qmPath)
}

// ReleaseAll compiles every .ts catalog in paths, collecting results.
// Stops at the first failure.
func ReleaseAll(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, 0, len(paths))
	for _, p := range paths {
		res, err := Release(ctx, p, "")
		if err != nil {
			return results, fmt.Errorf("releasing %s: %w", p, err)
		}
		results = append(results, res)
	}
	return results, nil
}
