package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"hbc/clean"
	"hbc/config"
	"hbc/resolve"
	"hbc/toc"
)

// Stage names, used to annotate errors.
const (
	StageParseToc = "parse toc"
	StageResolve  = "resolve paths"
	StageStage    = "stage files"
	StageClean    = "clean staged files"
	StageManifest = "emit manifest"
	StagePackage  = "package"
)

const defaultDirPerms = 0755

// ErrStagingIsSource is returned when staging would overwrite source pages.
var ErrStagingIsSource = errors.New("staging directory is the source tree")

// Pipeline turns source tree and its table of contents into staging
// directory of cleaned body fragments plus manifest. All locations are
// explicit, nothing depends on working directory.
type Pipeline struct {
	Root         string // source tree
	TOC          string // table of contents script
	Stylesheet   string // optional, copied verbatim when present
	StagingRoot  string
	FallbackDir  string
	IndexURLs    []string
	ManifestName string
	TOCPageName  string
	Title        string // for toc page

	Cleaner *clean.Cleaner
	Log     *zap.Logger

	// names in staging root written by packaging, not stale
	Extra []string
}

// Result describes what pipeline produced.
type Result struct {
	Manifest     []toc.Entry
	Dropped      []error
	Index        map[string]bool // staged urls of index pages
	Stale        []string
	StagingRoot  string
	ManifestPath string
	TOCPagePath  string
	Stylesheet   string // staged stylesheet path, empty if source has none
}

// NewPipeline prepares pipeline from configuration. Relative toc and
// stylesheet locations are relative to source root.
func NewPipeline(cfg *config.Config, root, staging string, log *zap.Logger) *Pipeline {
	p := &Pipeline{
		Root:         root,
		TOC:          underRoot(root, cfg.Source.TOC),
		StagingRoot:  staging,
		FallbackDir:  cfg.Source.FallbackDir,
		IndexURLs:    cfg.Source.IndexURLs,
		ManifestName: cfg.Staging.ManifestName,
		TOCPageName:  cfg.Staging.TOCPageName,
		Title:        cfg.Book.Title,
		Cleaner:      clean.New(clean.WithOrigin(cfg.Site.Origin), clean.WithFooterLink(cfg.Site.FooterLink)),
		Log:          log,
	}
	if len(cfg.Source.Stylesheet) > 0 {
		p.Stylesheet = underRoot(root, cfg.Source.Stylesheet)
	}
	return p
}

func underRoot(root, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(root, filepath.FromSlash(name))
}

func stageError(stage string, err error) error {
	return fmt.Errorf("%s: %w", stage, err)
}

// Run executes stages in order. Any returned error is fatal, entries which
// could not be resolved are only reported in Result.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	res := &Result{StagingRoot: p.StagingRoot}

	entries, err := p.parseTOC(log)
	if err != nil {
		return nil, stageError(StageParseToc, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, stageError(StageParseToc, err)
	}

	resolver := resolve.New(os.DirFS(p.Root), p.FallbackDir)
	manifest, dropped := resolver.ResolveAll(entries, log.Named("resolve"))
	res.Dropped = dropped
	res.Index = p.indexPages(resolver, manifest)
	log.Info("Table of contents resolved", zap.Int("entries", len(entries)), zap.Int("resolved", len(manifest)), zap.Int("dropped", len(dropped)))
	if err := ctx.Err(); err != nil {
		return nil, stageError(StageResolve, err)
	}

	if err := p.stageFiles(ctx, manifest, res, log); err != nil {
		return nil, stageError(StageStage, err)
	}
	if err := p.cleanStagedFiles(ctx, manifest, res.Index, log); err != nil {
		return nil, stageError(StageClean, err)
	}
	if err := p.emitManifest(manifest, res); err != nil {
		return nil, stageError(StageManifest, err)
	}
	res.Manifest = manifest
	return res, nil
}

func (p *Pipeline) parseTOC(log *zap.Logger) ([]toc.Entry, error) {
	src, err := os.ReadFile(p.TOC)
	if err != nil {
		return nil, fmt.Errorf("unable to read table of contents: %w", err)
	}
	entries, err := toc.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.TOC, err)
	}
	if len(entries) == 0 {
		log.Warn("Table of contents has no entries", zap.String("file", p.TOC))
	} else {
		log.Debug("Table of contents parsed", zap.String("file", p.TOC), zap.Int("entries", len(entries)))
	}
	return entries, nil
}

// indexPages marks staged files which get index page trimming: files named
// index.html and files configured index urls resolve to.
func (p *Pipeline) indexPages(r *resolve.Resolver, manifest []toc.Entry) map[string]bool {
	index := make(map[string]bool)
	for _, u := range p.IndexURLs {
		if e, err := r.Resolve(toc.Entry{URL: u}); err == nil {
			index[e.URL] = true
		}
	}
	for _, e := range manifest {
		if path.Base(e.URL) == "index.html" {
			index[e.URL] = true
		}
	}
	return index
}

func (p *Pipeline) stageFiles(ctx context.Context, manifest []toc.Entry, res *Result, log *zap.Logger) error {
	if sameDir(p.Root, p.StagingRoot) {
		return fmt.Errorf("%w: %s", ErrStagingIsSource, p.StagingRoot)
	}
	if err := os.MkdirAll(p.StagingRoot, defaultDirPerms); err != nil {
		return fmt.Errorf("unable to create staging directory: %w", err)
	}
	existing, err := listFiles(p.StagingRoot)
	if err != nil {
		return err
	}

	produced := make(map[string]bool, len(manifest)+len(p.Extra)+3)
	for _, e := range manifest {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(filepath.Join(p.Root, filepath.FromSlash(e.URL)), filepath.Join(p.StagingRoot, filepath.FromSlash(e.URL))); err != nil {
			return err
		}
		produced[e.URL] = true
		log.Debug("File staged", zap.String("path", e.URL))
	}

	if len(p.Stylesheet) > 0 {
		switch fi, err := os.Stat(p.Stylesheet); {
		case err == nil && fi.Mode().IsRegular():
			rel, err := filepath.Rel(p.Root, p.Stylesheet)
			if err != nil || !filepath.IsLocal(rel) {
				rel = filepath.Base(p.Stylesheet)
			}
			dst := filepath.Join(p.StagingRoot, rel)
			if err := copyFile(p.Stylesheet, dst); err != nil {
				return err
			}
			res.Stylesheet = dst
			produced[filepath.ToSlash(rel)] = true
		case err != nil && !os.IsNotExist(err):
			return fmt.Errorf("unable to access stylesheet: %w", err)
		default:
			log.Debug("No stylesheet in source tree", zap.String("file", p.Stylesheet))
		}
	}

	for _, n := range append([]string{p.ManifestName, p.TOCPageName}, p.Extra...) {
		produced[n] = true
	}
	for _, n := range existing {
		if !produced[n] {
			res.Stale = append(res.Stale, n)
		}
	}
	if len(res.Stale) > 0 {
		sort.Sort(natural.StringSlice(res.Stale))
		log.Debug("Staging directory has files not produced by this run", zap.Strings("stale", res.Stale))
	}
	return nil
}

func (p *Pipeline) cleanStagedFiles(ctx context.Context, manifest []toc.Entry, index map[string]bool, log *zap.Logger) error {
	for _, e := range manifest {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Join(p.StagingRoot, filepath.FromSlash(e.URL))
		raw, err := readDecoded(name)
		if err != nil {
			return err
		}
		body := p.Cleaner.Clean(raw, index[e.URL])
		if err := os.WriteFile(name, []byte(body), 0644); err != nil {
			return fmt.Errorf("unable to write cleaned file: %w", err)
		}
		if len(body) == 0 {
			log.Warn("Page has no body content", zap.String("path", e.URL))
		}
		log.Debug("File cleaned", zap.String("path", e.URL), zap.Bool("index", index[e.URL]), zap.Int("before", len(raw)), zap.Int("after", len(body)))
	}
	return nil
}

func (p *Pipeline) emitManifest(manifest []toc.Entry, res *Result) error {
	res.ManifestPath = filepath.Join(p.StagingRoot, p.ManifestName)
	if err := WriteManifest(res.ManifestPath, manifest); err != nil {
		return err
	}
	res.TOCPagePath = filepath.Join(p.StagingRoot, p.TOCPageName)
	return writeTOCPage(res.TOCPagePath, p.Title, manifest)
}

// readDecoded returns file content converted to utf-8, encoding is detected
// from BOM or meta tags.
func readDecoded(name string) (string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("unable to read staged file: %w", err)
	}
	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return "", fmt.Errorf("unable to detect encoding of %s: %w", name, err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("unable to decode %s: %w", name, err)
	}
	return string(decoded), nil
}

// listFiles returns slash separated names of regular files under dir.
func listFiles(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list staging directory: %w", err)
	}
	return names, nil
}

// sameDir reports whether both names refer to the same directory, either by
// path or, when both exist, by identity.
func sameDir(a, b string) bool {
	if aa, err := filepath.Abs(a); err == nil {
		a = aa
	}
	if bb, err := filepath.Abs(b); err == nil {
		b = bb
	}
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open source file: %w", err)
	}
	defer in.Close()

	if si, err := in.Stat(); err == nil {
		if di, err := os.Stat(dst); err == nil && os.SameFile(si, di) {
			return fmt.Errorf("%w: refusing to copy %s onto itself", ErrStagingIsSource, src)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), defaultDirPerms); err != nil {
		return fmt.Errorf("unable to create staging directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("unable to create staged file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("unable to copy %s: %w", src, err)
	}
	return out.Close()
}
