// Package epub writes EPUB 2 and EPUB 3 containers from ordered HTML body
// fragments.
package epub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// ErrEmptyBook is returned when there is nothing to package.
var ErrEmptyBook = errors.New("book has no chapters")

// Chapter is a single spine item, Body is HTML fragment (inner body markup).
type Chapter struct {
	Title string
	Body  string
}

// Image is an already encoded raster image.
type Image struct {
	Data     []byte
	MimeType string
	Ext      string
	Width    int
	Height   int
}

// Book is everything packager needs.
type Book struct {
	ID          string
	Title       string
	Author      string
	Description string
	Language    string
	Chapters    []Chapter
	Cover       *Image
	Stylesheet  []byte
}

// NewID returns stable book identifier: the same title and author always
// produce the same id, so rebuilding book does not create a "new" book on
// the reader.
func NewID(title, author string) string {
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(title+"\x00"+author)).String()
}

// normalizeLanguage returns canonical BCP 47 form of lang or "en".
func normalizeLanguage(lang string, log *zap.Logger) string {
	tag, err := language.Parse(lang)
	if err != nil || tag == language.Und {
		log.Warn("Unable to parse book language, using default", zap.String("language", lang), zap.Error(err))
		return language.English.String()
	}
	return tag.String()
}

const maxSlugLen = 40

// chapterID builds XML id (and file name) for chapter at position idx.
func chapterID(idx int, title string) string {
	s := slug.Make(title)
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if len(s) == 0 {
		return fmt.Sprintf("ch%03d", idx+1)
	}
	return fmt.Sprintf("ch%03d-%s", idx+1, s)
}
