package discover

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func paths(files []FileEntry) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestFilesFindsSupportedExtensions(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "src/app.js", "const x = 1;\n")
	writeFile(t, root, "src/util.ts", "export const y = 2;\n")
	writeFile(t, root, "src/view.tsx", "export const V = () => null;\n")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "main.py", "print('no')\n")

	files, _, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	got := paths(files)
	want := []string{
		filepath.Join("src", "app.js"),
		filepath.Join("src", "util.ts"),
		filepath.Join("src", "view.tsx"),
	}
	if len(got) != len(want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	byPath := make(map[string]string)
	for _, f := range files {
		byPath[f.Path] = f.Dialect
	}
	if byPath[filepath.Join("src", "app.js")] != "javascript" {
		t.Errorf("app.js dialect = %q", byPath[filepath.Join("src", "app.js")])
	}
	if byPath[filepath.Join("src", "view.tsx")] != "tsx" {
		t.Errorf("view.tsx dialect = %q", byPath[filepath.Join("src", "view.tsx")])
	}
}

func TestFilesSkipsVendoredDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "app.js", "const x = 1;\n")
	writeFile(t, root, "node_modules/lib/index.js", "module.exports = {};\n")
	writeFile(t, root, "dist/bundle.js", "var a = 1;\n")
	writeFile(t, root, ".hidden/secret.js", "var b = 2;\n")

	files, _, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "app.js" {
		t.Errorf("files = %v, want [app.js]", paths(files))
	}
}

func TestFilesSkipsMinified(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "app.js", "const x = 1;\n")
	writeFile(t, root, "vendor.min.js", "var a=1;\n")
	writeFile(t, root, "packed.js", strings.Repeat("a", 600)+"\n")

	files, skips, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "app.js" {
		t.Errorf("files = %v, want [app.js]", paths(files))
	}
	if skips["minified"] != 1 {
		t.Errorf("minified skips = %d, want 1", skips["minified"])
	}
	if skips["minified_content"] != 1 {
		t.Errorf("minified_content skips = %d, want 1", skips["minified_content"])
	}
}

func TestFilesSizeLimit(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "small.js", "const x = 1;\n")
	writeFile(t, root, "big.js", "const y = 2;\n"+strings.Repeat("// pad\n", 50))

	files, skips, err := Files(root, Options{MaxFileSize: 50})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "small.js" {
		t.Errorf("files = %v, want [small.js]", paths(files))
	}
	if skips["too_large"] != 1 {
		t.Errorf("too_large skips = %d, want 1", skips["too_large"])
	}
}

func TestFilesDialectFilter(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "app.js", "const x = 1;\n")
	writeFile(t, root, "util.ts", "export const y = 2;\n")

	files, _, err := Files(root, Options{Dialects: []string{"typescript"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "util.ts" {
		t.Errorf("files = %v, want [util.ts]", paths(files))
	}
}

func TestFilesGitignoreFallback(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n")
	writeFile(t, root, "app.js", "const x = 1;\n")
	writeFile(t, root, "generated/out.js", "var g = 1;\n")

	files, _, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "app.js" {
		t.Errorf("files = %v, want [app.js]", paths(files))
	}
}
