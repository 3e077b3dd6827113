package clone

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func TestCloneFailsOnBadURL(t *testing.T) {
	t.Parallel()
	requireGit(t)

	opts := Options{TempDir: t.TempDir(), Depth: 1, Timeout: time.Minute}
	_, err := Clone(context.Background(), opts, filepath.Join(t.TempDir(), "no-such-repo"), 1)
	if err == nil {
		t.Error("expected error for nonexistent repository")
	}
}

func TestCloneLocalRepo(t *testing.T) {
	t.Parallel()
	requireGit(t)

	src := t.TempDir()
	runGit := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = src
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	runGit("init")
	if err := os.WriteFile(filepath.Join(src, "app.js"), []byte("const x = 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit("add", ".")
	runGit("commit", "-m", "initial")

	opts := Options{TempDir: t.TempDir(), Depth: 1, Timeout: time.Minute}
	path, err := Clone(context.Background(), opts, src, 42)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	defer Cleanup(path)

	if filepath.Base(path) != "repo_42" {
		t.Errorf("clone dir = %q, want repo_42", filepath.Base(path))
	}
	if _, err := os.Stat(filepath.Join(path, "app.js")); err != nil {
		t.Errorf("cloned file missing: %v", err)
	}
}

func TestCleanupRemovesReadOnly(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "workdir")
	sub := filepath.Join(dir, "objects")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(sub, "pack")
	if err := os.WriteFile(file, []byte("data"), 0o400); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(sub, 0o555); err != nil {
		t.Fatal(err)
	}

	if err := Cleanup(dir); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("directory still present: %v", err)
	}
}

func TestCleanupMissingDir(t *testing.T) {
	t.Parallel()
	if err := Cleanup(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Errorf("Cleanup of missing dir: %v", err)
	}
}
