package epub

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap/zaptest"

	"hbc/common"
)

func testBook() *Book {
	return &Book{
		Title:       "The Power of Prolog",
		Author:      "Markus Triska",
		Description: "Prolog programs and their explanations.",
		Language:    "en",
		Chapters: []Chapter{
			{Title: "Introduction", Body: `<center><h1>Introduction</h1></center><p>Prolog is a <b>programming</b> language.<br>Really.</p><script>alert(1)</script>`},
			{Title: "Facets of Prolog", Body: `<p onclick="x()">Declarative <font color="red">reading</font></p><pre>mortal(X) :-
    human(X).</pre>`},
		},
		Stylesheet: []byte("body { margin: 0; }"),
	}
}

func readZip(t *testing.T, name string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("open book: %v", err)
	}
	defer r.Close()

	files := make(map[string]string)
	for i, f := range r.File {
		if i == 0 && (f.Name != "mimetype" || f.Method != zip.Store) {
			t.Errorf("first entry = %s (method %d), want stored mimetype", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		files[f.Name] = string(data)
	}
	return files
}

func parseXML(t *testing.T, data string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		t.Fatalf("produced invalid XML: %v\n%s", err, data)
	}
	return doc
}

func TestGenerate_Epub3(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out", "book.epub")
	b := testBook()
	b.Cover = &Image{Data: []byte("png"), MimeType: "image/png", Ext: ".png", Width: 500, Height: 800}

	if err := Generate(context.Background(), b, out, Options{Format: common.OutputFmtEpub3, WorkDir: t.TempDir()}, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	files := readZip(t, out)

	if files["mimetype"] != mimetypeContent {
		t.Errorf("mimetype = %q", files["mimetype"])
	}
	for _, name := range []string{"META-INF/container.xml", "OEBPS/content.opf", "OEBPS/nav.xhtml", "OEBPS/stylesheet.css", "OEBPS/cover.xhtml", "OEBPS/images/cover.png"} {
		if _, ok := files[name]; !ok {
			t.Errorf("book is missing %s", name)
		}
	}
	if _, ok := files["OEBPS/toc.ncx"]; ok {
		t.Error("epub3 book should not have NCX")
	}

	opf := parseXML(t, files["OEBPS/content.opf"])
	if v := opf.Root().SelectAttrValue("version", ""); v != "3.0" {
		t.Errorf("package version = %s", v)
	}
	if id := opf.FindElement("//dc:identifier").Text(); id != NewID(b.Title, b.Author) {
		t.Errorf("identifier = %s", id)
	}
	if lang := opf.FindElement("//dc:language").Text(); lang != "en" {
		t.Errorf("language = %s", lang)
	}
	if opf.FindElement("//meta[@property='dcterms:modified']") == nil {
		t.Error("dcterms:modified is missing")
	}
	if opf.FindElement("//item[@properties='cover-image']") == nil {
		t.Error("cover image item is missing")
	}

	var spine []string
	for _, ref := range opf.FindElements("//spine/itemref") {
		spine = append(spine, ref.SelectAttrValue("idref", ""))
	}
	want := []string{"cover-page", "ch001-introduction", "ch002-facets-of-prolog"}
	if strings.Join(spine, ",") != strings.Join(want, ",") {
		t.Errorf("spine = %v, want %v", spine, want)
	}

	nav := parseXML(t, files["OEBPS/nav.xhtml"])
	links := nav.FindElements("//nav[@id='toc']//a")
	if len(links) != 2 || links[0].Text() != "Introduction" || links[1].SelectAttrValue("href", "") != "ch002-facets-of-prolog.xhtml" {
		t.Errorf("unexpected nav links: %d", len(links))
	}

	ch1 := files["OEBPS/ch001-introduction.xhtml"]
	parseXML(t, ch1)
	if strings.Contains(ch1, "<script") || strings.Contains(ch1, "alert") {
		t.Errorf("script survived:\n%s", ch1)
	}
	if strings.Contains(ch1, "<center") || !strings.Contains(ch1, `<div class="center">`) {
		t.Errorf("center was not converted:\n%s", ch1)
	}
	if strings.Count(ch1, "<h1") != 1 {
		t.Errorf("chapter with own heading should not get another one:\n%s", ch1)
	}
	if !strings.Contains(ch1, "<br/>") {
		t.Errorf("void element not closed:\n%s", ch1)
	}

	ch2 := files["OEBPS/ch002-facets-of-prolog.xhtml"]
	parseXML(t, ch2)
	if strings.Contains(ch2, "onclick") || strings.Contains(ch2, "<font") {
		t.Errorf("unsafe or obsolete markup survived:\n%s", ch2)
	}
	if !strings.Contains(ch2, `<h1 class="chapter-title">Facets of Prolog</h1>`) {
		t.Errorf("chapter title heading missing:\n%s", ch2)
	}
	if !strings.Contains(ch2, "mortal(X) :-\n    human(X).") {
		t.Errorf("preformatted text changed:\n%s", ch2)
	}
}

func TestGenerate_Epub2FixZip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "book.epub")
	b := testBook()
	b.Language = "not a language"

	if err := Generate(context.Background(), b, out, Options{Format: common.OutputFmtEpub2, FixZip: true}, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	r, err := zip.OpenReader(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range r.File {
		if f.Flags&0x8 != 0 {
			t.Errorf("%s still has data descriptor flag", f.Name)
		}
	}
	r.Close()

	files := readZip(t, out)
	if _, ok := files["OEBPS/nav.xhtml"]; ok {
		t.Error("epub2 book should not have nav document")
	}
	ncx := parseXML(t, files["OEBPS/toc.ncx"])
	points := ncx.FindElements("//navPoint")
	if len(points) != 2 || points[1].SelectAttrValue("playOrder", "") != "2" {
		t.Errorf("unexpected navPoints: %d", len(points))
	}

	opf := parseXML(t, files["OEBPS/content.opf"])
	if v := opf.Root().SelectAttrValue("version", ""); v != "2.0" {
		t.Errorf("package version = %s", v)
	}
	if lang := opf.FindElement("//dc:language").Text(); lang != "en" {
		t.Errorf("invalid language should fall back to en, got %s", lang)
	}
	if opf.FindElement("//guide/reference[@type='text']") == nil {
		t.Error("guide start reference is missing")
	}
	if opf.FindElement("//spine").SelectAttrValue("toc", "") != "ncx" {
		t.Error("spine should reference ncx")
	}
}

func TestGenerate_Errors(t *testing.T) {
	log := zaptest.NewLogger(t)
	out := filepath.Join(t.TempDir(), "book.epub")

	err := Generate(context.Background(), &Book{Title: "Empty"}, out, Options{Format: common.OutputFmtEpub3}, log)
	if !errors.Is(err, ErrEmptyBook) {
		t.Errorf("Generate(empty) error = %v, want ErrEmptyBook", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Generate(ctx, testBook(), out, Options{Format: common.OutputFmtEpub3}, log); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate(canceled) error = %v", err)
	}

	if err := Generate(context.Background(), testBook(), out, Options{Format: common.OutputFmt(42)}, log); err == nil {
		t.Error("Generate() with invalid format should fail")
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID("Title", "Author"), NewID("Title", "Author")
	if a != b {
		t.Errorf("NewID is not stable: %s != %s", a, b)
	}
	if !strings.HasPrefix(a, "urn:uuid:") {
		t.Errorf("NewID() = %s", a)
	}
	if a == NewID("Title", "Other") {
		t.Error("different authors must produce different ids")
	}
}

func TestChapterID(t *testing.T) {
	tests := []struct {
		idx   int
		title string
		want  string
	}{
		{0, "Introduction", "ch001-introduction"},
		{9, "Sorting and Searching", "ch010-sorting-and-searching"},
		{1, "", "ch002"},
		{2, "!!!", "ch003"},
		{3, strings.Repeat("very long title ", 10), "ch004-very-long-title-very-long-title-very-lon"},
	}
	for _, tt := range tests {
		if got := chapterID(tt.idx, tt.title); got != tt.want {
			t.Errorf("chapterID(%d, %q) = %q, want %q", tt.idx, tt.title, got, tt.want)
		}
	}
}

func TestValidName(t *testing.T) {
	for name, want := range map[string]bool{
		"div": true, "h1": true, "data-x": true, "xml:lang": false, "1a": false, "": false, `a"b`: false,
	} {
		if got := validName(name); got != want {
			t.Errorf("validName(%q) = %v, want %v", name, got, want)
		}
	}
}
