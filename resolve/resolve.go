// Package resolve maps logical chapter identifiers to source files.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"

	"hbc/toc"
)

// ErrUnresolved is wrapped by all resolution failures.
var ErrUnresolved = errors.New("unable to resolve toc entry")

// UnresolvedError describes entry which was not found under any of the
// candidate paths.
type UnresolvedError struct {
	Entry toc.Entry
	Tried []string
}

func (e *UnresolvedError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("%s: %q (%s): not a valid location", ErrUnresolved, e.Entry.Title, e.Entry.URL)
	}
	return fmt.Sprintf("%s: %q (%s): tried %s", ErrUnresolved, e.Entry.Title, e.Entry.URL, strings.Join(e.Tried, ", "))
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolved
}

// Resolver looks for chapter files under source root. Source corpus mixes
// three URL conventions, candidates are probed in fixed order:
//
//	<url>.html
//	<url>/<last>.html
//	<fallback>/<last>.html
type Resolver struct {
	fsys     fs.FS
	fallback string
}

// New returns resolver over fsys, fallback is the directory used for last
// candidate.
func New(fsys fs.FS, fallback string) *Resolver {
	return &Resolver{fsys: fsys, fallback: strings.Trim(path.Clean("/"+fallback), "/")}
}

// Candidates lists paths probed for url in order. Empty result means url is
// not a valid location.
func (r *Resolver) Candidates(url string) []string {
	u := strings.Trim(url, "/")
	if len(u) == 0 {
		return nil
	}
	u = path.Clean(u)
	if !fs.ValidPath(u) || u == "." {
		return nil
	}
	last := path.Base(u)
	return []string{
		u + ".html",
		path.Join(u, last+".html"),
		path.Join(r.fallback, last+".html"),
	}
}

// Resolve returns entry with URL replaced by slash separated path of the
// first existing regular file relative to the root.
func (r *Resolver) Resolve(entry toc.Entry) (toc.Entry, error) {
	candidates := r.Candidates(entry.URL)
	for _, c := range candidates {
		fi, err := fs.Stat(r.fsys, c)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		return toc.Entry{Title: entry.Title, URL: c}, nil
	}
	return toc.Entry{}, &UnresolvedError{Entry: entry, Tried: candidates}
}

// ResolveAll resolves entries preserving their order. Unresolvable entries
// and entries pointing to already used files are dropped and reported,
// which is never fatal.
func (r *Resolver) ResolveAll(entries []toc.Entry, log *zap.Logger) ([]toc.Entry, []error) {
	var (
		resolved = make([]toc.Entry, 0, len(entries))
		dropped  []error
		seen     = make(map[string]toc.Entry, len(entries))
	)
	for _, e := range entries {
		re, err := r.Resolve(e)
		if err != nil {
			var ue *UnresolvedError
			if errors.As(err, &ue) {
				log.Warn("File not found, dropping entry", zap.String("title", e.Title), zap.String("url", e.URL), zap.Strings("tried", ue.Tried))
			}
			dropped = append(dropped, err)
			continue
		}
		if prev, ok := seen[re.URL]; ok {
			log.Warn("Duplicate entry, dropping", zap.String("title", e.Title), zap.String("url", e.URL), zap.String("path", re.URL), zap.String("first", prev.Title))
			dropped = append(dropped, fmt.Errorf("duplicate toc entry %q (%s): %s already used by %q", e.Title, e.URL, re.URL, prev.Title))
			continue
		}
		seen[re.URL] = e
		log.Debug("Entry resolved", zap.String("title", e.Title), zap.String("url", e.URL), zap.String("path", re.URL))
		resolved = append(resolved, re)
	}
	return resolved, dropped
}
