package convert

import (
	"bytes"
	"fmt"
	"os"

	"github.com/beevik/etree"
	yaml "gopkg.in/yaml.v3"

	"hbc/toc"
)

// WriteManifest stores ordered entries as yaml sequence of {title, url}.
func WriteManifest(name string, entries []toc.Entry) error {
	if entries == nil {
		entries = []toc.Entry{}
	}
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("unable to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to encode manifest: %w", err)
	}
	if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads manifest written by WriteManifest.
func ReadManifest(name string) ([]toc.Entry, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unable to read manifest: %w", err)
	}
	var entries []toc.Entry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("unable to decode manifest %s: %w", name, err)
	}
	return entries, nil
}

// writeTOCPage produces simple html page listing staged documents in order.
func writeTOCPage(name, title string, entries []toc.Entry) error {
	doc := etree.NewDocument()
	doc.CreateDirective("DOCTYPE html")

	html := doc.CreateElement("html")
	head := html.CreateElement("head")
	head.CreateElement("meta").CreateAttr("charset", "utf-8")
	head.CreateElement("title").SetText("Table of Contents")

	body := html.CreateElement("body")
	if len(title) > 0 {
		body.CreateElement("h1").SetText(title)
	}
	body.CreateElement("h2").SetText("Table of Contents")
	ol := body.CreateElement("ol")
	for _, e := range entries {
		a := ol.CreateElement("li").CreateElement("a")
		a.CreateAttr("href", e.URL)
		a.SetText(e.Title)
	}

	doc.Indent(2)
	if err := doc.WriteToFile(name); err != nil {
		return fmt.Errorf("unable to write toc page: %w", err)
	}
	return nil
}
