package convert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hbc/toc"
)

func TestManifest_Format(t *testing.T) {
	name := filepath.Join(t.TempDir(), "manifest.yaml")
	entries := []toc.Entry{
		{Title: "Facets of Prolog", URL: "prolog/facets.html"},
		{Title: `Quotes: "yes" & 'no'`, URL: "prolog/data/data.html"},
	}
	if err := WriteManifest(name, entries); err != nil {
		t.Fatalf("WriteManifest() error = %v", err)
	}

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "- title: Facets of Prolog\n  url: prolog/facets.html\n") {
		t.Errorf("unexpected manifest layout:\n%s", data)
	}

	got, err := ReadManifest(name)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(got) != 2 || got[1] != entries[1] {
		t.Errorf("ReadManifest() = %+v", got)
	}
}

func TestManifest_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadManifest(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("expected error for missing manifest")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("- title: a\n  link: b\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadManifest(bad); err == nil {
		t.Error("expected error for unknown field")
	}
	if err := WriteManifest(filepath.Join(dir, "no", "such", "dir.yaml"), nil); err == nil {
		t.Error("expected error for unwritable manifest")
	}
}

func TestWriteTOCPage(t *testing.T) {
	name := filepath.Join(t.TempDir(), "toc.html")
	err := writeTOCPage(name, "Book & Co", []toc.Entry{{Title: "A < B", URL: "prolog/a.html"}})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(name)
	for _, s := range []string{"<h1>Book &amp; Co</h1>", `<a href="prolog/a.html">A &lt; B</a>`, "<title>Table of Contents</title>"} {
		if !strings.Contains(string(data), s) {
			t.Errorf("toc page missing %q:\n%s", s, data)
		}
	}
}
