package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/beevik/etree"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"hbc/common"
)

const (
	mimetypeContent = "application/epub+zip"
	oebpsDir        = "OEBPS"
	imagesDir       = "images"
	coverPage       = "cover.xhtml"
	coverImageID    = "book-cover-image"
)

// Options control container layout.
type Options struct {
	Format common.OutputFmt
	// FixZip rewrites archive without data descriptors, some readers do not
	// like them.
	FixZip bool
	// WorkDir is where temporary archive is built, system temporary
	// directory when empty.
	WorkDir string
}

type chapterData struct {
	ID       string
	Filename string
	Title    string
	Body     string
}

// Generate writes book to outputPath and checks resulting archive.
func Generate(ctx context.Context, b *Book, outputPath string, opts Options, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(b.Chapters) == 0 {
		return ErrEmptyBook
	}
	if !opts.Format.IsValid() {
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}

	log.Info("Generating EPUB", zap.Stringer("format", opts.Format), zap.String("output", outputPath), zap.Int("chapters", len(b.Chapters)))

	lang := normalizeLanguage(b.Language, log)
	id := b.ID
	if len(id) == 0 {
		id = NewID(b.Title, b.Author)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	f, err := os.CreateTemp(opts.WorkDir, "book-*.epub")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	if err := writeMimetype(zw); err != nil {
		return fmt.Errorf("unable to write mimetype: %w", err)
	}
	if err := writeContainer(zw); err != nil {
		return fmt.Errorf("unable to write container: %w", err)
	}

	chapters := make([]chapterData, 0, len(b.Chapters))
	for i, ch := range b.Chapters {
		cid := chapterID(i, ch.Title)
		chapters = append(chapters, chapterData{ID: cid, Filename: cid + ".xhtml", Title: ch.Title, Body: ch.Body})
	}

	for i := range chapters {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := chapterDocument(&chapters[i], lang, opts.Format, log)
		if err != nil {
			return err
		}
		if err := writeXMLToZip(zw, path.Join(oebpsDir, chapters[i].Filename), doc); err != nil {
			return fmt.Errorf("unable to write chapter %s: %w", chapters[i].ID, err)
		}
	}

	if err := writeDataToZip(zw, path.Join(oebpsDir, "stylesheet.css"), b.Stylesheet); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}

	if b.Cover != nil {
		if err := writeDataToZip(zw, path.Join(oebpsDir, imagesDir, "cover"+b.Cover.Ext), b.Cover.Data); err != nil {
			return fmt.Errorf("unable to write cover image: %w", err)
		}
		if err := writeCoverPage(zw, b, lang, opts.Format); err != nil {
			return fmt.Errorf("unable to write cover page: %w", err)
		}
	}

	if err := writeOPF(zw, b, id, lang, opts.Format, chapters); err != nil {
		return fmt.Errorf("unable to write OPF: %w", err)
	}

	switch opts.Format {
	case common.OutputFmtEpub3:
		if err := writeNav(zw, b, lang, chapters); err != nil {
			return fmt.Errorf("unable to write NAV: %w", err)
		}
	default:
		if err := writeNCX(zw, b, id, chapters); err != nil {
			return fmt.Errorf("unable to write NCX: %w", err)
		}
	}

	// make sure buffers are flushed before continuing
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}

	if opts.FixZip {
		err = copyZipWithoutDataDescriptors(tmpName, outputPath)
	} else {
		err = copyFile(tmpName, outputPath)
	}
	if err != nil {
		return err
	}
	return verify(outputPath, chapters, b.Cover != nil, log)
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mimetypeContent)
	return err
}

func writeContainer(zw *zip.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")

	rootfile := container.CreateElement("rootfiles").CreateElement("rootfile")
	rootfile.CreateAttr("full-path", path.Join(oebpsDir, "content.opf"))
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")

	return writeXMLToZip(zw, "META-INF/container.xml", doc)
}

func writeCoverPage(zw *zip.Writer, b *Book, lang string, format common.OutputFmt) error {
	doc, body := createXHTMLDocument(b.Title, lang, format)

	head := doc.FindElement("//head")
	style := head.CreateElement("style")
	style.CreateAttr("type", "text/css")
	style.SetText("html, body { margin: 0; padding: 0; width: 100%; height: 100%; } svg { display: block; width: auto; height: 100%; margin: 0 auto; }")

	w, h := b.Cover.Width, b.Cover.Height
	svg := body.CreateElement("svg")
	svg.CreateAttr("version", "1.1")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("xmlns:xlink", "http://www.w3.org/1999/xlink")
	svg.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", w, h))
	svg.CreateAttr("preserveAspectRatio", "xMidYMid meet")

	img := svg.CreateElement("image")
	img.CreateAttr("x", "0")
	img.CreateAttr("y", "0")
	img.CreateAttr("width", strconv.Itoa(w))
	img.CreateAttr("height", strconv.Itoa(h))
	img.CreateAttr("xlink:href", path.Join(imagesDir, "cover"+b.Cover.Ext))

	return writeXMLToZip(zw, path.Join(oebpsDir, coverPage), doc)
}

func writeOPF(zw *zip.Writer, b *Book, id, lang string, format common.OutputFmt, chapters []chapterData) error {
	epub3 := format == common.OutputFmtEpub3

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", "http://www.idpf.org/2007/opf")
	pkg.CreateAttr("unique-identifier", "BookId")
	if epub3 {
		pkg.CreateAttr("version", "3.0")
	} else {
		pkg.CreateAttr("version", "2.0")
	}

	metadata := pkg.CreateElement("metadata")
	metadata.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	metadata.CreateAttr("xmlns:opf", "http://www.idpf.org/2007/opf")

	metadata.CreateElement("dc:title").SetText(b.Title)

	ident := metadata.CreateElement("dc:identifier")
	ident.CreateAttr("id", "BookId")
	ident.SetText(id)

	metadata.CreateElement("dc:language").SetText(lang)

	creator := metadata.CreateElement("dc:creator")
	creator.SetText(b.Author)
	// EPUB3 uses <meta property="role"> with refines, EPUB2 uses opf:role attribute
	if epub3 {
		creator.CreateAttr("id", "creator0")
		role := metadata.CreateElement("meta")
		role.CreateAttr("refines", "#creator0")
		role.CreateAttr("property", "role")
		role.CreateAttr("scheme", "marc:relators")
		role.SetText("aut")
	} else {
		creator.CreateAttr("opf:role", "aut")
	}

	if len(b.Description) > 0 {
		metadata.CreateElement("dc:description").SetText(b.Description)
	}

	if b.Cover != nil && !epub3 {
		meta := metadata.CreateElement("meta")
		meta.CreateAttr("name", "cover")
		meta.CreateAttr("content", coverImageID)
	}
	if epub3 {
		modified := metadata.CreateElement("meta")
		modified.CreateAttr("property", "dcterms:modified")
		modified.SetText(time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	}

	manifest := pkg.CreateElement("manifest")
	addItem := func(id, href, mediaType, properties string) {
		item := manifest.CreateElement("item")
		item.CreateAttr("id", id)
		item.CreateAttr("href", href)
		item.CreateAttr("media-type", mediaType)
		if len(properties) > 0 {
			item.CreateAttr("properties", properties)
		}
	}

	if epub3 {
		addItem("nav", "nav.xhtml", "application/xhtml+xml", "nav")
	} else {
		addItem("ncx", "toc.ncx", "application/x-dtbncx+xml", "")
	}
	addItem("stylesheet", "stylesheet.css", "text/css", "")
	if b.Cover != nil {
		props := ""
		if epub3 {
			props = "svg"
		}
		addItem("cover-page", coverPage, "application/xhtml+xml", props)
		if epub3 {
			props = "cover-image"
		}
		addItem(coverImageID, path.Join(imagesDir, "cover"+b.Cover.Ext), b.Cover.MimeType, props)
	}
	for _, ch := range chapters {
		addItem(ch.ID, ch.Filename, "application/xhtml+xml", "")
	}

	spine := pkg.CreateElement("spine")
	if !epub3 {
		spine.CreateAttr("toc", "ncx")
	}
	if b.Cover != nil {
		spine.CreateElement("itemref").CreateAttr("idref", "cover-page")
	}
	for _, ch := range chapters {
		spine.CreateElement("itemref").CreateAttr("idref", ch.ID)
	}

	// EPUB2: guide section, EPUB3 has landmarks in nav instead
	if !epub3 {
		guide := pkg.CreateElement("guide")
		if b.Cover != nil {
			ref := guide.CreateElement("reference")
			ref.CreateAttr("type", "cover")
			ref.CreateAttr("title", "Cover")
			ref.CreateAttr("href", coverPage)
		}
		ref := guide.CreateElement("reference")
		ref.CreateAttr("type", "text")
		ref.CreateAttr("title", "Start")
		ref.CreateAttr("href", chapters[0].Filename)
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "content.opf"), doc)
}

func writeNav(zw *zip.Writer, b *Book, lang string, chapters []chapterData) error {
	doc, body := createXHTMLDocument("Table of Contents", lang, common.OutputFmtEpub3)

	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateAttr("id", "toc")
	nav.CreateAttr("role", "doc-toc")

	h1 := nav.CreateElement("h1")
	h1.CreateAttr("class", "toc-title")
	h1.SetText(b.Title)

	ol := nav.CreateElement("ol")
	ol.CreateAttr("class", "toc-list")
	for _, ch := range chapters {
		li := ol.CreateElement("li")
		li.CreateAttr("class", "toc-item")
		a := li.CreateElement("a")
		a.CreateAttr("href", ch.Filename)
		a.SetText(ch.Title)
	}

	landmarks := body.CreateElement("nav")
	landmarks.CreateAttr("epub:type", "landmarks")
	landmarks.CreateAttr("id", "landmarks")
	landmarks.CreateAttr("hidden", "")
	landmarks.CreateElement("h2").SetText("Landmarks")

	lol := landmarks.CreateElement("ol")
	if b.Cover != nil {
		a := lol.CreateElement("li").CreateElement("a")
		a.CreateAttr("epub:type", "cover")
		a.CreateAttr("href", coverPage)
		a.SetText("Cover")
	}
	a := lol.CreateElement("li").CreateElement("a")
	a.CreateAttr("epub:type", "bodymatter")
	a.CreateAttr("href", chapters[0].Filename)
	a.SetText("Start")

	return writeXMLToZip(zw, path.Join(oebpsDir, "nav.xhtml"), doc)
}

func writeNCX(zw *zip.Writer, b *Book, id string, chapters []chapterData) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	ncx := doc.CreateElement("ncx")
	ncx.CreateAttr("xmlns", "http://www.daisy.org/z3986/2005/ncx/")
	ncx.CreateAttr("version", "2005-1")

	head := ncx.CreateElement("head")
	for _, m := range [][2]string{{"dtb:uid", id}, {"dtb:depth", "1"}, {"dtb:totalPageCount", "0"}, {"dtb:maxPageNumber", "0"}} {
		meta := head.CreateElement("meta")
		meta.CreateAttr("name", m[0])
		meta.CreateAttr("content", m[1])
	}

	ncx.CreateElement("docTitle").CreateElement("text").SetText(b.Title)
	ncx.CreateElement("docAuthor").CreateElement("text").SetText(b.Author)

	navMap := ncx.CreateElement("navMap")
	for i, ch := range chapters {
		navPoint := navMap.CreateElement("navPoint")
		navPoint.CreateAttr("id", "nav-"+ch.ID)
		navPoint.CreateAttr("playOrder", strconv.Itoa(i+1))
		navPoint.CreateElement("navLabel").CreateElement("text").SetText(ch.Title)
		navPoint.CreateElement("content").CreateAttr("src", ch.Filename)
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "toc.ncx"), doc)
}

func copyZipWithoutDataDescriptors(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("unable to finalize target file (%s): %w", to, err)
	}
	return out.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}
