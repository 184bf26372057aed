package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseTargets(t *testing.T) {
	input := "\uFEFF# watched profiles\n" +
		"https://site/u/1\n" +
		"\n" +
		"  https://site/u/2   Bob the Builder \n" +
		"https://site/u/3\tCarol\n" +
		"ftp://site/u/4\n" +
		"not a url\n" +
		"https://site/u/1\n"

	targets, err := ParseTargets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTargets failed: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d: %+v", len(targets), targets)
	}

	cases := []struct{ url, name string }{
		{"https://site/u/1", ""},
		{"https://site/u/2", "Bob the Builder"},
		{"https://site/u/3", "Carol"},
	}
	for i, c := range cases {
		if targets[i].URL != c.url || targets[i].Name != c.name {
			t.Errorf("target %d = %+v, want %+v", i, targets[i], c)
		}
	}
}

func TestLoadTargetsMissingFile(t *testing.T) {
	_, err := LoadTargets(filepath.Join(t.TempDir(), "links.txt"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadTargetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	if err := os.WriteFile(path, []byte("https://site/u/9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	targets, err := LoadTargets(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 || targets[0].URL != "https://site/u/9" {
		t.Errorf("unexpected targets %+v", targets)
	}
}
