// Package remote handles the project's external resources: materializing
// translation repositories locally via git and moving catalog files to and from an
// HTTP resource endpoint.
//
// Every operation is a black box returning success or failure plus the
// local path and byte count involved. No state is kept between calls.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Repo identifies a git repository holding translation resources.
type Repo struct {
	// Name is the directory name the repository is cloned into.
	Name string
	// URL is the clone URL.
	URL string
	// Branch selects a branch; empty means the remote default.
	Branch string
}

// TransferResult reports what a download or upload moved.
type TransferResult struct {
	// Path is the local file involved in the transfer.
	Path string
	// Bytes is the number of payload bytes transferred.
	Bytes int64
}

// httpClient is shared by Download and Upload. Transfers are bounded so a
// stalled endpoint cannot hang a run.
var httpClient = &http.Client{Timeout: 5 * time.Minute}

// ---------------------------------------------------------------------------
// Repository materialization
// ---------------------------------------------------------------------------

// LocalPath returns where a repository lives under baseDir.
func (r Repo) LocalPath(baseDir string) string {
	return filepath.Join(baseDir, r.Name)
}

// EnsureLocal makes sure every repository exists under baseDir, cloning the
// ones that are missing and pulling the ones already present. Stops at the
// first failure.
func EnsureLocal(ctx context.Context, repos []Repo, baseDir string) error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git not found; install git: sudo apt install git")
	}

	for _, repo := range repos {
		local := repo.LocalPath(baseDir)
		if _, err := os.Stat(filepath.Join(local, ".git")); err == nil {
			if err := runGit(ctx, local, "pull", "--ff-only"); err != nil {
				return fmt.Errorf("updating %s: %w", repo.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", baseDir, err)
		}
		args := []string{"clone", "--depth", "1"}
		if repo.Branch != "" {
			args = append(args, "--branch", repo.Branch)
		}
		args = append(args, repo.URL, local)
		if err := runGit(ctx, "", args...); err != nil {
			return fmt.Errorf("cloning %s: %w", repo.Name, err)
		}
	}
	return nil
}

// runGit executes git with stderr captured, surfacing it only on failure.
func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderrBuf strings.Builder
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		if stderrBuf.Len() > 0 {
			fmt.Fprint(os.Stderr, stderrBuf.String())
		}
		return fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resource transfer
// ---------------------------------------------------------------------------

// Download fetches url into destPath. The write is atomic: the payload goes
// to a temp file first and is renamed into place only on success.
func Download(ctx context.Context, url, destPath string) (*TransferResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: HTTP %d", url, resp.StatusCode)
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("writing %s: %w", destPath, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("writing %s: %w", destPath, err)
	}

	return &TransferResult{Path: destPath, Bytes: n}, nil
}

// Upload sends the file at srcPath to url with an HTTP PUT.
func Upload(ctx context.Context, url, srcPath string) (*TransferResult, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", srcPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", srcPath, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("uploading %s: HTTP %d", srcPath, resp.StatusCode)
	}

	return &TransferResult{Path: srcPath, Bytes: info.Size()}, nil
}
