package debug

import "testing"

func TestTreeWriter(t *testing.T) {
	tw := NewTreeWriter()
	if tw.String() != "" {
		t.Fatal("expected empty output from new TreeWriter")
	}

	tw.Line(0, "Manifest: %d", 2)
	tw.Line(1, "Entry[%d]", 0)
	tw.TextBlock(2, "title", "Facets of \"Prolog\"")
	tw.TextBlock(2, "note", "")

	want := "Manifest: 2\n" +
		"  Entry[0]\n" +
		"    title: \"Facets of \\\"Prolog\\\"\"\n" +
		"    note: \n"
	if got := tw.String(); got != want {
		t.Errorf("String() =\n%q\nwant\n%q", got, want)
	}
}
