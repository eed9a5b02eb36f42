package convert

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"hbc/common"
	"hbc/config"
	"hbc/convert/epub"
)

// buildOutputPath returns name of the book file. Destination naming a file
// (with extension and not an existing directory) is used as is. Otherwise it
// is a directory and file name comes from name template or from book title.
// Template expansion may produce subdirectories, every segment is cleaned
// and, if requested, transliterated.
func buildOutputPath(b *epub.Book, dst string, format common.OutputFmt, cfg *config.OutputConfig, log *zap.Logger) string {
	if isFileDestination(dst) {
		return dst
	}

	defaultName := filepath.Join(dst, cleanPathSegment(b.Title, cfg.Transliterate)+format.Ext())
	if cfg.NameTemplate == "" {
		return defaultName
	}

	expanded, err := expandTemplate(b, config.OutputNameTemplateFieldName, cfg.NameTemplate, format)
	if err != nil {
		log.Warn("Unable to prepare output filename, using default", zap.Error(err))
		return defaultName
	}
	segments := splitPath(filepath.FromSlash(expanded))
	if len(segments) == 0 {
		return defaultName
	}

	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, dst)
	for _, s := range segments[:len(segments)-1] {
		parts = append(parts, cleanPathSegment(s, cfg.Transliterate))
	}
	parts = append(parts, cleanPathSegment(segments[len(segments)-1], cfg.Transliterate)+format.Ext())
	return filepath.Join(parts...)
}

func isFileDestination(dst string) bool {
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		return false
	}
	return len(filepath.Ext(dst)) > 0
}

// splitPath returns non-empty path segments, "." and ".." are dropped so
// template cannot escape destination.
func splitPath(p string) []string {
	var segments []string
	for s := range strings.SplitSeq(p, string(os.PathSeparator)) {
		s = strings.TrimSpace(s)
		if s == "" || s == "." || s == ".." {
			continue
		}
		segments = append(segments, s)
	}
	return segments
}

func cleanPathSegment(segment string, transliterate bool) string {
	if transliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
