// Package discover finds parseable JavaScript-family source files in a
// repository.
package discover

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/patternminer/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path    string // Relative to repo root
	Dialect string
}

var skipDirs = map[string]struct{}{
	"node_modules":     {},
	"dist":             {},
	"build":            {},
	".git":             {},
	".hg":              {},
	".svn":             {},
	"coverage":         {},
	"vendor":           {},
	".next":            {},
	".nuxt":            {},
	"out":              {},
	"public":           {},
	"__pycache__":      {},
	".cache":           {},
	"tmp":              {},
	"temp":             {},
	"venv":             {},
	".venv":            {},
	"bower_components": {},
}

// minified first lines run long; anything past this is not hand-written.
const minifiedLineLen = 500

// Options tunes discovery.
type Options struct {
	// Dialects restricts results to the named dialects when non-empty.
	Dialects []string
	// MaxFileSize skips files larger than this many bytes when > 0.
	MaxFileSize int64
}

// Files discovers parseable source files under root, sorted by path.
// The skips map counts files rejected for content reasons (minified,
// too large) so callers can report them; structural skips (ignored
// dirs, foreign extensions) are not counted.
func Files(root string, opts Options) (files []FileEntry, skips map[string]int, err error) {
	dialectSet := make(map[string]struct{}, len(opts.Dialects))
	for _, d := range opts.Dialects {
		dialectSet[d] = struct{}{}
	}
	skips = make(map[string]int)

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		dialect := lang.ForExtension(filepath.Ext(name))
		if dialect == "" {
			return nil
		}

		if len(dialectSet) > 0 {
			if _, ok := dialectSet[dialect]; !ok {
				return nil
			}
		}

		if strings.Contains(name, ".min.") || strings.Contains(name, "-min.") {
			skips["minified"]++
			return nil
		}

		if opts.MaxFileSize > 0 {
			info, err := d.Info()
			if err == nil && info.Size() > opts.MaxFileSize {
				skips["too_large"]++
				return nil
			}
		}

		if likelyMinified(path) {
			skips["minified_content"]++
			return nil
		}

		files = append(files, FileEntry{Path: rel, Dialect: dialect})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, skips, nil
}

// likelyMinified checks the first line only; a full scan is not worth
// the I/O for a heuristic.
func likelyMinified(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, minifiedLineLen+1)
	line, err := r.ReadString('\n')
	if err != nil && len(line) == 0 {
		return false
	}
	return len(strings.TrimRight(line, "\n")) > minifiedLineLen
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
