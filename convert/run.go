package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"hbc/common"
	"hbc/config"
	"hbc/convert/epub"
	"hbc/cover"
	"hbc/css"
	"hbc/state"
)

// Prepare runs pipeline producing staging directory and manifest without
// packaging.
func Prepare(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("prepare")

	p, _, err := setup(env, cmd, log)
	if err != nil {
		return err
	}

	log.Info("Preparation starting", zap.String("source", p.Root), zap.String("staging", p.StagingRoot))
	defer func(start time.Time) {
		log.Info("Preparation completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res, err := p.Run(ctx)
	storeResult(env, res)
	if err != nil {
		return err
	}
	log.Info("Manifest written", zap.String("file", res.ManifestPath), zap.Int("entries", len(res.Manifest)))
	return nil
}

// Build runs pipeline and packages the book.
func Build(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	p, dst, err := setup(env, cmd, log)
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", p.Root), zap.String("destination", dst), zap.Stringer("format", env.Format()))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res, err := p.Run(ctx)
	storeResult(env, res)
	if err != nil {
		return err
	}

	out, err := Package(ctx, env, res, dst)
	if err != nil {
		return stageError(StagePackage, err)
	}
	log.Info("Book written", zap.String("file", out), zap.Int("chapters", len(res.Manifest)))
	return nil
}

// setup applies command line to the environment and builds pipeline.
// Returns output destination as well.
func setup(env *state.LocalEnv, cmd *cli.Command, log *zap.Logger) (*Pipeline, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("unable to get working directory: %w", err)
	}

	src := firstOf(cmd.Args().Get(0), env.Cfg.Source.Root, cwd)
	if src, err = filepath.Abs(src); err != nil {
		return nil, "", err
	}
	if fi, err := os.Stat(src); err != nil || !fi.IsDir() {
		return nil, "", fmt.Errorf("source root is not a directory: %s", src)
	}

	// command line locations are relative to working directory, configured
	// ones to source root
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = underRoot(src, env.Cfg.Output.Path)
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return nil, "", err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if t := cmd.String("toc"); len(t) > 0 {
		env.Cfg.Source.TOC = t
	}
	staging := cmd.String("staging")
	if len(staging) == 0 {
		staging = underRoot(src, env.Cfg.Staging.Dir)
	}
	if staging, err = filepath.Abs(staging); err != nil {
		return nil, "", err
	}

	if to := cmd.String("to"); len(to) > 0 {
		format, err := common.ParseOutputFmt(to)
		if err != nil {
			return nil, "", fmt.Errorf("unable to use requested output format: %w", err)
		}
		env.OutputFormat = &format
	}
	env.NoCover = cmd.Bool("no-cover")
	env.Overwrite = cmd.Bool("overwrite") || env.Cfg.Output.Overwrite

	p := NewPipeline(env.Cfg, src, staging, log)
	p.Extra = []string{coverFileName(common.CoverFmtPng), coverFileName(common.CoverFmtJpeg)}
	return p, dst, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return ""
}

func coverFileName(f common.CoverFmt) string {
	return "cover" + f.Ext()
}

// Package builds book from pipeline result and writes it under dst,
// returning actual file name.
func Package(ctx context.Context, env *state.LocalEnv, res *Result, dst string) (string, error) {
	log := env.Log.Named("package")
	format := env.Format()

	b, err := BuildBook(env.Cfg, res, env.DefaultStyle, log)
	if err != nil {
		return "", err
	}
	if len(b.Chapters) == 0 {
		return "", epub.ErrEmptyBook
	}

	if env.Cfg.Cover.Generate && !env.NoCover {
		if b.Cover, err = prepareCover(env, res.StagingRoot); err != nil {
			return "", err
		}
	}

	out := buildOutputPath(b, dst, format, &env.Cfg.Output, log)
	if _, err := os.Stat(out); err == nil {
		if !env.Overwrite {
			return "", fmt.Errorf("output file already exists: %s", out)
		}
		log.Warn("Overwriting existing file", zap.String("file", out))
		if err = os.Remove(out); err != nil {
			return "", err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := epub.Generate(ctx, b, out, epub.Options{Format: format, FixZip: env.Cfg.Output.FixZip}, log); err != nil {
		return "", fmt.Errorf("unable to generate output: %w", err)
	}
	env.Rpt.Store("result"+filepath.Ext(out), out)
	return out, nil
}

// BuildBook assembles book from manifest and staged cleaned files.
// Stylesheet staged from source tree is sanitized, defaultStyle is used when
// there is none.
func BuildBook(cfg *config.Config, res *Result, defaultStyle []byte, log *zap.Logger) (*epub.Book, error) {
	b := &epub.Book{
		ID:          epub.NewID(cfg.Book.Title, cfg.Book.Author),
		Title:       cfg.Book.Title,
		Author:      cfg.Book.Author,
		Description: cfg.Book.Description,
		Language:    cfg.Book.Language,
		Stylesheet:  defaultStyle,
		Chapters:    make([]epub.Chapter, 0, len(res.Manifest)),
	}

	for _, e := range res.Manifest {
		data, err := os.ReadFile(filepath.Join(res.StagingRoot, filepath.FromSlash(e.URL)))
		if err != nil {
			return nil, fmt.Errorf("unable to read staged file: %w", err)
		}
		title := e.Title
		if len(title) == 0 {
			title = strings.TrimSuffix(path.Base(e.URL), path.Ext(e.URL))
		}
		b.Chapters = append(b.Chapters, epub.Chapter{Title: title, Body: string(data)})
	}

	if len(res.Stylesheet) > 0 {
		data, err := os.ReadFile(res.Stylesheet)
		if err != nil {
			return nil, fmt.Errorf("unable to read stylesheet: %w", err)
		}
		b.Stylesheet = css.Sanitize(data, log)
	}
	return b, nil
}

// prepareCover renders (or loads) cover image and keeps a copy in staging
// directory.
func prepareCover(env *state.LocalEnv, staging string) (*epub.Image, error) {
	var (
		img *cover.Image
		err error
	)
	if p := env.Cfg.Cover.ImagePath; len(p) > 0 {
		img, err = cover.Load(p)
	} else {
		img, err = cover.Generate(env.Cfg.Cover.Format, env.Cfg.Cover.Quality)
	}
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(staging, "cover"+img.Ext), img.Data, 0644); err != nil {
		return nil, fmt.Errorf("unable to store cover image: %w", err)
	}
	return &epub.Image{Data: img.Data, MimeType: img.MimeType, Ext: img.Ext, Width: img.Width, Height: img.Height}, nil
}

// storeResult puts pipeline outcome into debug report.
func storeResult(env *state.LocalEnv, res *Result) {
	if env.Rpt == nil || res == nil {
		return
	}
	env.Rpt.StoreData("pipeline.txt", []byte(res.String()))
	if len(res.StagingRoot) == 0 {
		return
	}
	if err := env.Rpt.StoreCopy("staging", res.StagingRoot); err != nil {
		env.Log.Warn("Unable to store staging directory in report", zap.Error(err))
	}
}
