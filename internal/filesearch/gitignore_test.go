package filesearch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGitignorePatternMatching(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		isDir   bool
		ignored bool
	}{
		{"*.log", "debug.log", false, true},
		{"*.log", "debug.txt", false, false},
		{"*.log", "nested/deep/debug.log", false, true},

		{"vendor/", "vendor", true, true},
		{"vendor/", "vendor/pkg/mod.go", false, true},
		{"vendor/", "src/vendor", true, true},

		{"dist/*", "dist/bundle.js", false, true},
		{"dist/*", "dist", true, false},

		{"!keep.log", "keep.log", false, false},

		{"**/cache", "cache", false, true},
		{"**/cache", "a/b/cache", false, true},

		{"/only-root.txt", "only-root.txt", false, true},
		{"/only-root.txt", "sub/only-root.txt", false, false},
	}

	for _, tc := range cases {
		p := parseGitignorePattern(tc.pattern)
		if p == nil {
			t.Fatalf("parseGitignorePattern(%q) = nil", tc.pattern)
		}
		m := &GitignoreMatcher{patterns: []*gitignorePattern{p}}
		if got := m.Matches(tc.path, tc.isDir); got != tc.ignored {
			t.Errorf("pattern %q vs path %q (isDir=%v) = %v, want %v", tc.pattern, tc.path, tc.isDir, got, tc.ignored)
		}
	}
}

func TestGitignoreLaterNegationWinsOverEarlierIgnore(t *testing.T) {
	m := &GitignoreMatcher{}
	for _, raw := range []string{"*.log", "!keep.log"} {
		if p := parseGitignorePattern(raw); p != nil {
			m.patterns = append(m.patterns, p)
		}
	}

	if !m.Matches("debug.log", false) {
		t.Error("debug.log should be ignored by *.log")
	}
	if m.Matches("keep.log", false) {
		t.Error("keep.log should be un-ignored by the later !keep.log negation")
	}
	if m.Matches("notes.txt", false) {
		t.Error("notes.txt matches no pattern and should not be ignored")
	}
}

func TestNewGitignoreMatcherFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("# comment\n\n*.tmp\nbuild/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewGitignoreMatcher(path)
	if err != nil {
		t.Fatalf("NewGitignoreMatcher: %v", err)
	}
	if !m.Matches("scratch.tmp", false) {
		t.Error("scratch.tmp should be ignored")
	}
	if !m.Matches("build", true) {
		t.Error("build/ directory should be ignored")
	}
	if m.Matches("keep.go", false) {
		t.Error("keep.go should not be ignored")
	}
}

func TestNewGitignoreMatcherMissingFileIsEmpty(t *testing.T) {
	m, err := NewGitignoreMatcher(filepath.Join(t.TempDir(), "no-such-file"))
	if err != nil {
		t.Fatalf("NewGitignoreMatcher on a missing file: %v", err)
	}
	if m.Matches("anything.go", false) {
		t.Error("a matcher with no patterns should never report a match")
	}
}

func TestNewGitignoreMatcherEmptyPathIsNoOp(t *testing.T) {
	m, err := NewGitignoreMatcher("")
	if err != nil {
		t.Fatalf("NewGitignoreMatcher(\"\"): %v", err)
	}
	if m.Matches("anything.go", false) {
		t.Error("an empty-path matcher should never report a match")
	}
}
