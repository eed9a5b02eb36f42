// Package toc extracts table of contents from JavaScript source which
// declares it. Source is parsed, never evaluated.
package toc

import (
	"errors"
	"fmt"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// ErrSyntax is returned when TOC source cannot be parsed.
var ErrSyntax = errors.New("toc source syntax error")

const (
	declName  = "toc"
	linkProp  = "link"
	titleProp = "title"
)

// Entry is a single chapter reference in book order. URL is logical
// slash-separated identifier until it is resolved.
type Entry struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// Parse returns entries of the first top-level "toc" declaration in source
// order. Source without such declaration produces empty result and no error.
func Parse(src []byte) ([]Entry, error) {
	ast, err := js.Parse(parse.NewInputBytes(src), js.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	init := findDecl(ast.List)
	if init == nil {
		return []Entry{}, nil
	}

	entries := []Entry{}
	for _, item := range items(init) {
		obj, ok := unparen(item).(*js.ObjectExpr)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Title: stringProperty(obj, titleProp),
			URL:   stringProperty(obj, linkProp),
		})
	}
	return entries, nil
}

// findDecl looks for initializer of the first "toc" variable, either
// declared or simply assigned at the top level.
func findDecl(list []js.IStmt) js.IExpr {
	for _, stmt := range list {
		switch s := stmt.(type) {
		case *js.VarDecl:
			for _, be := range s.List {
				if v, ok := be.Binding.(*js.Var); ok && string(v.Data) == declName && be.Default != nil {
					return be.Default
				}
			}
		case *js.ExprStmt:
			if be, ok := s.Value.(*js.BinaryExpr); ok && be.Op == js.EqToken {
				if v, ok := be.X.(*js.Var); ok && string(v.Data) == declName {
					return be.Y
				}
			}
		}
	}
	return nil
}

// items flattens constructor or call arguments. Array arguments contribute
// their elements, so `new X([{...}, {...}])` and `new X({...}, {...})` are
// the same.
func items(init js.IExpr) []js.IExpr {
	var args []js.IExpr
	switch e := unparen(init).(type) {
	case *js.NewExpr:
		if e.Args != nil {
			for _, a := range e.Args.List {
				args = append(args, a.Value)
			}
		}
	case *js.CallExpr:
		for _, a := range e.Args.List {
			args = append(args, a.Value)
		}
	case *js.ArrayExpr:
		args = append(args, e)
	}

	var res []js.IExpr
	for _, a := range args {
		if arr, ok := unparen(a).(*js.ArrayExpr); ok {
			for _, el := range arr.List {
				if el.Value != nil && !el.Spread {
					res = append(res, el.Value)
				}
			}
			continue
		}
		res = append(res, a)
	}
	return res
}

func unparen(e js.IExpr) js.IExpr {
	for {
		g, ok := e.(*js.GroupExpr)
		if !ok {
			return e
		}
		e = g.X
	}
}

// stringProperty returns value of the named property when it is a string
// literal and empty string otherwise.
func stringProperty(obj *js.ObjectExpr, name string) string {
	for _, p := range obj.List {
		if p.Spread || p.Name == nil || p.Name.Computed != nil {
			continue
		}
		key := p.Name.Literal.Data
		if p.Name.Literal.TokenType == js.StringToken {
			k, err := unquote(key)
			if err != nil {
				continue
			}
			key = []byte(k)
		}
		if string(key) != name {
			continue
		}
		return literal(p.Value)
	}
	return ""
}

func literal(e js.IExpr) string {
	switch v := unparen(e).(type) {
	case *js.LiteralExpr:
		if v.TokenType != js.StringToken {
			return ""
		}
		if s, err := unquote(v.Data); err == nil {
			return s
		}
	case *js.TemplateExpr:
		if v.Tag != nil || len(v.List) != 0 {
			return ""
		}
		if s, err := unquote(v.Tail); err == nil {
			return s
		}
	}
	return ""
}
