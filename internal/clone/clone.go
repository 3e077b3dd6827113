// Package clone shallow-clones repositories into per-job working
// directories and cleans them up afterwards.
package clone

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// Options configures cloning.
type Options struct {
	TempDir string
	Depth   int
	Timeout time.Duration
}

// DefaultOptions matches a batch-mining workload: shallow history, five
// minutes before a hung clone is abandoned.
func DefaultOptions(tempDir string) Options {
	return Options{TempDir: tempDir, Depth: 1, Timeout: 5 * time.Minute}
}

// Clone fetches url into a directory named after id under the temp dir.
// A previous attempt's directory is removed first. The returned path is
// valid even on error so callers can clean up a partial clone.
func Clone(ctx context.Context, opts Options, url string, id int64) (string, error) {
	if err := os.MkdirAll(opts.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	target := filepath.Join(opts.TempDir, fmt.Sprintf("repo_%d", id))

	if _, err := os.Stat(target); err == nil {
		if err := Cleanup(target); err != nil {
			return target, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", strconv.Itoa(opts.Depth), url, target)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return target, fmt.Errorf("clone timed out after %s", opts.Timeout)
		}
		msg := string(out)
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return target, fmt.Errorf("clone failed: %w: %s", err, msg)
	}

	return target, nil
}

// Cleanup removes a working directory, retrying with a permissions fix
// for read-only files some repositories check in.
func Cleanup(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = os.RemoveAll(path)
		if err == nil {
			return nil
		}
		fixPermissions(path)
		time.Sleep(time.Second)
	}
	return fmt.Errorf("removing %s after %d attempts: %w", path, maxAttempts, err)
}

// fixPermissions makes everything writable, best effort.
func fixPermissions(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		mode := os.FileMode(0o644)
		if d.IsDir() {
			mode = 0o755
		}
		_ = os.Chmod(path, mode)
		return nil
	})
}
