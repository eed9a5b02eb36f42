package epub

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"hbc/common"
)

// elements which never make it into the book
var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Link:     true,
	atom.Meta:     true,
	atom.Base:     true,
	atom.Form:     true,
	atom.Input:    true,
	atom.Button:   true,
	atom.Select:   true,
	atom.Textarea: true,
}

// presentational elements absent from XHTML 1.1 are replaced
var renamedElements = map[atom.Atom]struct{ name, class string }{
	atom.Center: {"div", "center"},
	atom.Font:   {"span", ""},
	atom.Tt:     {"code", ""},
	atom.U:      {"span", "underline"},
	atom.S:      {"del", ""},
	atom.Strike: {"del", ""},
	atom.Big:    {"span", "big"},
}

func createXHTMLDocument(title, lang string, format common.OutputFmt) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	if format == common.OutputFmtEpub3 {
		doc.CreateDirective("DOCTYPE html")
	} else {
		doc.CreateDirective(`DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd"`)
	}

	root := doc.CreateElement("html")
	root.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	if format == common.OutputFmtEpub3 {
		root.CreateAttr("xmlns:epub", "http://www.idpf.org/2007/ops")
		root.CreateAttr("lang", lang)
	}
	root.CreateAttr("xml:lang", lang)

	head := root.CreateElement("head")
	if format == common.OutputFmtEpub3 {
		head.CreateElement("meta").CreateAttr("charset", "utf-8")
	} else {
		meta := head.CreateElement("meta")
		meta.CreateAttr("http-equiv", "Content-Type")
		meta.CreateAttr("content", "text/html; charset=utf-8")
	}
	head.CreateElement("title").SetText(title)

	link := head.CreateElement("link")
	link.CreateAttr("rel", "stylesheet")
	link.CreateAttr("type", "text/css")
	link.CreateAttr("href", "stylesheet.css")

	return doc, root.CreateElement("body")
}

// chapterDocument turns cleaned HTML fragment into XHTML document. When
// fragment has no top level heading chapter title is added.
func chapterDocument(ch *chapterData, lang string, format common.OutputFmt, log *zap.Logger) (*etree.Document, error) {
	doc, body := createXHTMLDocument(ch.Title, lang, format)

	div := body.CreateElement("div")
	div.CreateAttr("class", "chapter")
	div.CreateAttr("id", ch.ID)

	nodes, err := parseFragment(ch.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to parse chapter %q: %w", ch.Title, err)
	}
	if !hasHeading(nodes) && len(ch.Title) > 0 {
		h1 := div.CreateElement("h1")
		h1.CreateAttr("class", "chapter-title")
		h1.SetText(ch.Title)
	}

	var dropped int
	for _, n := range nodes {
		dropped += appendNode(div, n)
	}
	if dropped > 0 {
		log.Debug("Dropped unsupported elements", zap.String("chapter", ch.ID), zap.Int("count", dropped))
	}
	return doc, nil
}

func parseFragment(fragment string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
}

func hasHeading(nodes []*html.Node) bool {
	var found bool
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.H1 {
			found = true
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return found
}

// appendNode converts HTML node into etree element under parent and returns
// number of dropped elements.
func appendNode(parent *etree.Element, n *html.Node) int {
	switch n.Type {
	case html.TextNode:
		parent.CreateText(n.Data)
		return 0
	case html.ElementNode:
	default:
		// comments and doctype
		return 0
	}

	if droppedElements[n.DataAtom] {
		return 1
	}

	name, class := n.Data, ""
	if r, ok := renamedElements[n.DataAtom]; ok {
		name, class = r.name, r.class
	}
	if n.Namespace != "" || !validName(name) {
		// foreign content (svg, math) and garbage tags are flattened
		var dropped int
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			dropped += appendNode(parent, c)
		}
		return dropped + 1
	}

	el := parent.CreateElement(name)
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if a.Namespace != "" || strings.HasPrefix(key, "on") || !validName(key) || el.SelectAttr(key) != nil {
			continue
		}
		if key == "class" && len(class) > 0 {
			a.Val = strings.TrimSpace(class + " " + a.Val)
			class = ""
		}
		el.CreateAttr(key, a.Val)
	}
	if len(class) > 0 {
		el.CreateAttr("class", class)
	}

	var dropped int
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dropped += appendNode(el, c)
	}
	return dropped
}

// validName reports whether s can be used as XML element or attribute name
// without namespace prefix.
func validName(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
