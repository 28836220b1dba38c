package walker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = "0,1,0.5,0,0,0,0,10,1\n"

// makeTree creates files (relative path -> content) under a temp dir.
func makeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestWalk_DefaultInclude(t *testing.T) {
	root := makeTree(t, map[string]string{
		"time_sliced_data.txt":     sample,
		"sessions/2024/day1.txt":   sample + "0,2,0.1,0,0,0,0,10,1\n",
		"brain-config/layout.json": "{}",
		"notes.md":                 "# notes",
	})

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	got := strings.Join(relPaths(files), ",")
	if got != "sessions/2024/day1.txt,time_sliced_data.txt" {
		t.Errorf("unexpected files: %s", got)
	}
}

func TestWalk_FileInfoFields(t *testing.T) {
	root := makeTree(t, map[string]string{"a.txt": sample})

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	f := files[0]
	if !filepath.IsAbs(f.Path) {
		t.Errorf("Path should be absolute, got %q", f.Path)
	}
	if f.Size != int64(len(sample)) {
		t.Errorf("Size = %d, want %d", f.Size, len(sample))
	}
	if len(f.ContentHash) != 64 {
		t.Errorf("ContentHash should be 64 hex chars, got %d", len(f.ContentHash))
	}
}

func TestWalk_IncludeExclude(t *testing.T) {
	root := makeTree(t, map[string]string{
		"raw/a.dat":     sample,
		"raw/b.dat":     sample + "\n",
		"raw/old/c.dat": sample + "\n\n",
	})

	files, err := Walk(WalkerConfig{
		RootDir: root,
		Include: []string{"**/*.dat"},
		Exclude: []string{"raw/old/**"},
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := strings.Join(relPaths(files), ","); got != "raw/a.dat,raw/b.dat" {
		t.Errorf("unexpected files: %s", got)
	}
}

func TestWalk_SkipsBinaryAndLargeFiles(t *testing.T) {
	root := makeTree(t, map[string]string{
		"ok.txt":     sample,
		"binary.txt": "0,1\x00\x01",
		"big.txt":    strings.Repeat(sample, 100),
	})

	files, err := Walk(WalkerConfig{RootDir: root, MaxFileSize: 1024})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := strings.Join(relPaths(files), ","); got != "ok.txt" {
		t.Errorf("unexpected files: %s", got)
	}
}

func TestWalk_DefaultExcludeDirs(t *testing.T) {
	root := makeTree(t, map[string]string{
		".git/objects.txt":       sample,
		"node_modules/x/y.txt":   sample,
		"data/readings.txt":      sample,
		"brain-config/notes.txt": sample,
	})

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if got := strings.Join(relPaths(files), ","); got != "data/readings.txt" {
		t.Errorf("unexpected files: %s", got)
	}
}

func TestWalk_MissingRoot(t *testing.T) {
	if _, err := Walk(WalkerConfig{RootDir: filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestUnique(t *testing.T) {
	root := makeTree(t, map[string]string{
		"a.txt":      sample,
		"copy/a.txt": sample,
		"b.txt":      sample + "0,2,0,0,0,0,0,1,1\n",
	})

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	if got := strings.Join(relPaths(Unique(files)), ","); got != "a.txt,b.txt" {
		t.Errorf("Unique() = %s", got)
	}
}

func TestMatchesInclude_Empty(t *testing.T) {
	if !MatchesInclude("anything.txt", nil) {
		t.Error("empty include patterns should include everything")
	}
}

func TestMatchesInclude_Pattern(t *testing.T) {
	if !MatchesInclude("data.txt", []string{"*.txt"}) {
		t.Error("*.txt should match data.txt")
	}
	if MatchesInclude("data.csv", []string{"*.txt"}) {
		t.Error("*.txt should not match data.csv")
	}
}

func TestMatchesExclude_Empty(t *testing.T) {
	if MatchesExclude("anything.txt", nil) {
		t.Error("empty exclude patterns should exclude nothing")
	}
}

func TestMatchesInclude_DoubleStarPattern(t *testing.T) {
	if !MatchesInclude("sessions/2024/day1.txt", []string{"**/*.txt"}) {
		t.Error("**/*.txt should match sessions/2024/day1.txt")
	}
}
