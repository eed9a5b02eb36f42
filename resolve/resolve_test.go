package resolve

import (
	"errors"
	"slices"
	"testing"
	"testing/fstest"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"hbc/toc"
)

func file() *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("<html></html>")}
}

func TestResolve_FallbackOrder(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{
			name: "direct file wins",
			fsys: fstest.MapFS{"ch1.html": file(), "ch1/ch1.html": file(), "prolog/ch1.html": file()},
			want: "ch1.html",
		},
		{
			name: "directory layout",
			fsys: fstest.MapFS{"ch1/ch1.html": file(), "prolog/ch1.html": file()},
			want: "ch1/ch1.html",
		},
		{
			name: "fallback directory",
			fsys: fstest.MapFS{"prolog/ch1.html": file()},
			want: "prolog/ch1.html",
		},
		{
			name: "directory named like candidate is skipped",
			fsys: fstest.MapFS{"ch1.html/keep": file(), "prolog/ch1.html": file()},
			want: "prolog/ch1.html",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.fsys, "prolog").Resolve(toc.Entry{Title: "Chapter", URL: "ch1"})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.URL != tt.want || got.Title != "Chapter" {
				t.Errorf("Resolve() = %+v, want url %q", got, tt.want)
			}
		})
	}
}

func TestResolve_NestedURL(t *testing.T) {
	fsys := fstest.MapFS{
		"prolog/facets/facets.html": file(),
		"prolog/sorting.html":       file(),
	}
	r := New(fsys, "prolog")

	got, err := r.Resolve(toc.Entry{URL: "/prolog/facets/"})
	if err != nil || got.URL != "prolog/facets/facets.html" {
		t.Errorf("Resolve(facets) = %+v, %v", got, err)
	}
	got, err = r.Resolve(toc.Entry{URL: "misc/sorting"})
	if err != nil || got.URL != "prolog/sorting.html" {
		t.Errorf("Resolve(sorting) = %+v, %v", got, err)
	}
}

func TestResolve_Unresolved(t *testing.T) {
	r := New(fstest.MapFS{"prolog/other.html": file()}, "prolog")

	_, err := r.Resolve(toc.Entry{Title: "Missing", URL: "ch9"})
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Resolve() error = %v, want ErrUnresolved", err)
	}
	var ue *UnresolvedError
	if !errors.As(err, &ue) {
		t.Fatalf("Resolve() error is not *UnresolvedError: %T", err)
	}
	want := []string{"ch9.html", "ch9/ch9.html", "prolog/ch9.html"}
	if !slices.Equal(ue.Tried, want) {
		t.Errorf("Tried = %v, want %v", ue.Tried, want)
	}

	for _, url := range []string{"", "/", "../secret", "a/../..", "a/.."} {
		_, err := r.Resolve(toc.Entry{URL: url})
		if !errors.As(err, &ue) || len(ue.Tried) != 0 {
			t.Errorf("Resolve(%q) should fail without probing, got %v", url, err)
		}
	}
}

func TestResolveAll(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	fsys := fstest.MapFS{
		"a.html":        file(),
		"prolog/c.html": file(),
	}
	entries := []toc.Entry{
		{Title: "A", URL: "a"},
		{Title: "B", URL: "b"},
		{Title: "C", URL: "c"},
		{Title: "A again", URL: "a/"},
	}

	got, dropped := New(fsys, "prolog").ResolveAll(entries, log)

	want := []toc.Entry{{Title: "A", URL: "a.html"}, {Title: "C", URL: "prolog/c.html"}}
	if !slices.Equal(got, want) {
		t.Errorf("ResolveAll() = %+v, want %+v", got, want)
	}
	if len(dropped) != 2 {
		t.Fatalf("dropped = %v, want 2 errors", dropped)
	}
	if !errors.Is(dropped[0], ErrUnresolved) {
		t.Errorf("first drop should be unresolved, got %v", dropped[0])
	}

	if n := logs.FilterMessage("File not found, dropping entry").Len(); n != 1 {
		t.Errorf("expected 1 not found diagnostic, got %d", n)
	}
	if n := logs.FilterMessage("Duplicate entry, dropping").Len(); n != 1 {
		t.Errorf("expected 1 duplicate diagnostic, got %d", n)
	}
	entry := logs.FilterField(zap.String("title", "B")).All()
	if len(entry) != 1 {
		t.Fatalf("diagnostic for dropped entry not found")
	}
	if tried, ok := entry[0].ContextMap()["tried"]; !ok || tried == nil {
		t.Error("diagnostic should list tried paths")
	}
}

func TestResolveAll_Empty(t *testing.T) {
	got, dropped := New(fstest.MapFS{}, "prolog").ResolveAll(nil, zaptest.NewLogger(t))
	if len(got) != 0 || len(dropped) != 0 {
		t.Errorf("ResolveAll(nil) = %v, %v", got, dropped)
	}
}
