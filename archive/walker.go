// Package archive provides simple read access to produced zip containers.
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"
)

// WalkFunc is called for every regular file in archive under requested
// prefix. Returning error stops the walk.
type WalkFunc func(archive string, file *zip.File) error

// Walk visits files of archive in stored order. Entries with absolute paths
// or ".." components make the whole archive invalid.
func Walk(archive, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// Entry describes a single stored file.
type Entry struct {
	Name   string
	Size   uint64
	Stored bool
}

// List returns archive content under prefix in stored order.
func List(archive, prefix string) ([]Entry, error) {
	var entries []Entry
	err := Walk(archive, prefix, func(_ string, f *zip.File) error {
		entries = append(entries, Entry{Name: f.Name, Size: f.UncompressedSize64, Stored: f.Method == zip.Store})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
