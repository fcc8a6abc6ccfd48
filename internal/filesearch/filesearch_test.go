package filesearch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSearchFilenameMode(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"internal/agent/loop.go":       "",
		"internal/agent/loop_test.go":  "",
		"internal/provider/client.go":  "",
		"README.md":                    "",
	})
	searcher, err := NewSearcher(root)
	if err != nil {
		t.Fatal(err)
	}

	results, err := searcher.Search(context.Background(), Options{
		Pattern: `_test\.go$`,
		RootDir: root,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != filepath.Join("internal", "agent", "loop_test.go") {
		t.Fatalf("results = %+v, want only loop_test.go", results)
	}
}

func TestSearchContentModeReportsLineAndPath(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go": "package a\n\nfunc Foo() {}\n",
		"b.go": "package b\n\n// no match here\n",
	})
	searcher, err := NewSearcher(root)
	if err != nil {
		t.Fatal(err)
	}

	results, err := searcher.Search(context.Background(), Options{
		Pattern:       `func Foo`,
		ContentSearch: true,
		RootDir:       root,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v, want exactly one match", results)
	}
	if results[0].Path != "a.go" || results[0].Line != 3 {
		t.Fatalf("result = %+v, want a.go:3", results[0])
	}
}

func TestSearchRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":             "*.log\nvendor/\n",
		"main.go":                "",
		"debug.log":              "",
		"vendor/dep/mod.go":      "",
		"keep/vendor-like.go":    "",
	})
	searcher, err := NewSearcher(root)
	if err != nil {
		t.Fatal(err)
	}

	results, err := searcher.Search(context.Background(), Options{Pattern: `.*`, RootDir: root})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	seen := make(map[string]bool)
	for _, r := range results {
		seen[r.Path] = true
	}
	if seen["debug.log"] || seen[filepath.Join("vendor", "dep", "mod.go")] {
		t.Fatalf("results = %+v, want ignored paths excluded", results)
	}
	if !seen["main.go"] {
		t.Fatalf("results = %+v, want main.go present", results)
	}
}

func TestSearchSkipsDotGitDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".git/HEAD": "ref: refs/heads/main\n",
		"main.go":   "",
	})
	searcher, err := NewSearcher(root)
	if err != nil {
		t.Fatal(err)
	}

	results, err := searcher.Search(context.Background(), Options{Pattern: `.*`, RootDir: root})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if filepath.Dir(r.Path) == ".git" {
			t.Fatalf("results = %+v, .git must never be walked", results)
		}
	}
}

func TestSearchMaxResultsCapsOutput(t *testing.T) {
	root := t.TempDir()
	files := make(map[string]string, 20)
	for i := 0; i < 20; i++ {
		files[filepath.Join("f", string(rune('a'+i))+".txt")] = "x"
	}
	writeTree(t, root, files)

	searcher, err := NewSearcher(root)
	if err != nil {
		t.Fatal(err)
	}
	results, err := searcher.Search(context.Background(), Options{
		Pattern:    `\.txt$`,
		MaxResults: 4,
		RootDir:    root,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results count = %d, want 4 (capped)", len(results))
	}
}

func TestSearchInvalidPatternErrors(t *testing.T) {
	root := t.TempDir()
	searcher, err := NewSearcher(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := searcher.Search(context.Background(), Options{Pattern: `(unclosed`, RootDir: root}); err == nil {
		t.Fatal("Search with invalid regex: want error, got nil")
	}
}

func TestSearchCancelledContextStopsWalk(t *testing.T) {
	root := t.TempDir()
	files := make(map[string]string, 50)
	for i := 0; i < 50; i++ {
		files[filepath.Join("d", string(rune('a'+i%26))+string(rune('0'+i/26))+".txt")] = "x"
	}
	writeTree(t, root, files)

	searcher, err := NewSearcher(root)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := searcher.Search(ctx, Options{Pattern: `.*`, RootDir: root}); err == nil {
		t.Fatal("Search with a pre-cancelled context: want error, got nil")
	}
}
