package epub

import (
	"fmt"
	"path"

	"go.uber.org/zap"

	"hbc/archive"
)

// verify reads produced container back and makes sure nothing got lost on
// the way: mimetype goes first and is not compressed, every chapter is
// present.
func verify(name string, chapters []chapterData, cover bool, log *zap.Logger) error {
	entries, err := archive.List(name, "")
	if err != nil {
		return fmt.Errorf("unable to read produced book: %w", err)
	}
	if len(entries) == 0 || entries[0].Name != "mimetype" || !entries[0].Stored {
		return fmt.Errorf("produced book %s: mimetype must be first stored entry", name)
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name] = true
	}

	required := []string{"META-INF/container.xml", path.Join(oebpsDir, "content.opf")}
	if cover {
		required = append(required, path.Join(oebpsDir, coverPage))
	}
	for _, ch := range chapters {
		required = append(required, path.Join(oebpsDir, ch.Filename))
	}
	for _, r := range required {
		if !present[r] {
			return fmt.Errorf("produced book %s is missing %s", name, r)
		}
	}
	log.Debug("Book verified", zap.String("file", name), zap.Int("entries", len(entries)))
	return nil
}
