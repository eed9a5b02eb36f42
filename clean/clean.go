// Package clean reduces legacy hand-written HTML pages to portable body
// fragments.
//
// Rules are regular expressions applied in fixed order, each one assumes
// previous ones already narrowed the input. Boundaries are detected by
// patterns rather than by HTML parser, source pages come from a fixed corpus
// with well known boilerplate.
package clean

import (
	"regexp"
	"strings"
)

const (
	DefaultOrigin     = "https://www.metalevel.at"
	DefaultFooterLink = "/prolog"
)

var (
	reBody       = regexp.MustCompile(`(?is)<body\b[^>]*>(.*?)</body>`)
	reLeadingBr  = regexp.MustCompile(`(?i)^\s*(?:<br\s*/?>\s*)+`)
	reLink       = regexp.MustCompile(`(?i)<link\b[^>]*>`)
	reImg        = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	reAttr       = regexp.MustCompile(`(?i)(\s)(href|src)\s*=\s*("[^"]*"|'[^']*'|[^\s"'>]+)`)
	reScheme     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
	reMarginLeft = regexp.MustCompile(`(?i)margin-left:\s*\d+(?:\.\d+)?%;?`)
	reFloatStyle = regexp.MustCompile(`(?i)\s*style\s*=\s*("[^"]*float:[^"]*"|'[^']*float:[^']*')`)
	reIndexNav   = regexp.MustCompile(`(?is)<div\b.*?</ol>\s*(?:<br\s*/?>\s*){2}`)
	reIndexTail  = regexp.MustCompile(`(?is)(?:<br\s*/?>\s*){4}.*$`)
	reTrailingBr = regexp.MustCompile(`(?i)(?:<br\s*/?>\s*)+$`)
)

// Rule is a single named transformation step.
type Rule struct {
	Name  string
	Apply func(string) string
}

// Cleaner holds ordered list of rules built for a particular site.
type Cleaner struct {
	origin string
	rules  []Rule
	index  []Rule
}

// Option customizes Cleaner.
type Option func(*options)

type options struct {
	origin     string
	footerLink string
}

// WithOrigin sets canonical site origin relative links are resolved against.
func WithOrigin(origin string) Option {
	return func(o *options) {
		o.origin = strings.TrimRight(origin, "/")
	}
}

// WithFooterLink sets self-referential link which starts site footer.
func WithFooterLink(link string) Option {
	return func(o *options) {
		o.footerLink = link
	}
}

// New builds Cleaner.
func New(opts ...Option) *Cleaner {
	o := options{origin: DefaultOrigin, footerLink: DefaultFooterLink}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cleaner{origin: o.origin}

	footer := footerPattern(o.footerLink)
	c.rules = []Rule{
		{"body", extractBody},
		{"leading breaks", func(s string) string { return reLeadingBr.ReplaceAllString(s, "") }},
		{"footer", func(s string) string { return stripFooter(footer, s) }},
		{"stylesheet links", func(s string) string { return reLink.ReplaceAllString(s, "") }},
		{"images", func(s string) string { return reImg.ReplaceAllString(s, "") }},
		{"absolute links", c.absLinks},
		{"margin-left", func(s string) string { return reMarginLeft.ReplaceAllString(s, "") }},
		{"float styles", func(s string) string { return reFloatStyle.ReplaceAllString(s, "") }},
	}
	c.index = []Rule{
		{"index navigation", stripIndexNav},
		{"index tail", func(s string) string { return reIndexTail.ReplaceAllString(s, "") }},
	}
	return c
}

// Rules returns rules in order of application.
func (c *Cleaner) Rules(isIndex bool) []Rule {
	rules := make([]Rule, 0, len(c.rules)+len(c.index)+2)
	rules = append(rules, c.rules...)
	if isIndex {
		rules = append(rules, c.index...)
	}
	return append(rules,
		Rule{"trailing breaks", func(s string) string { return reTrailingBr.ReplaceAllString(s, "") }},
		Rule{"trim", strings.TrimSpace},
	)
}

// Clean returns inner body markup of raw page without site boilerplate. It
// never fails: page without body produces empty string.
func (c *Cleaner) Clean(raw string, isIndex bool) string {
	s := raw
	for _, r := range c.Rules(isIndex) {
		s = r.Apply(s)
	}
	return s
}

var defaultCleaner = New()

// Clean uses default site settings.
func Clean(raw string, isIndex bool) string {
	return defaultCleaner.Clean(raw, isIndex)
}

func footerPattern(link string) *regexp.Regexp {
	link = regexp.QuoteMeta(strings.TrimRight(link, "/"))
	return regexp.MustCompile(`(?is)(?:<br\s*/?>\s*){3}<b>\s*<a\s+href\s*=\s*["']` + link + `/?["'][^>]*>.*$`)
}

func extractBody(s string) string {
	m := reBody.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

func stripFooter(re *regexp.Regexp, s string) string {
	return re.ReplaceAllString(s, "")
}

func stripIndexNav(s string) string {
	loc := reIndexNav.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

// absLinks rewrites relative href and src values into absolute URLs under
// origin. Values may be quoted or bare. Absolute http(s) URLs, other schemes
// and fragment-only references are kept.
func (c *Cleaner) absLinks(s string) string {
	return reAttr.ReplaceAllStringFunc(s, func(m string) string {
		sub := reAttr.FindStringSubmatch(m)
		lead, name, val := sub[1], sub[2], sub[3]
		var q string
		if val[0] == '"' || val[0] == '\'' {
			q, val = val[:1], val[1:len(val)-1]
		}
		v := strings.TrimSpace(val)
		switch {
		case len(v) == 0, strings.HasPrefix(v, "#"), reScheme.MatchString(v):
			return m
		case strings.HasPrefix(v, "//"):
			v = "https:" + v
		case strings.HasPrefix(v, "/"):
			v = c.origin + v
		default:
			v = c.origin + "/" + v
		}
		return lead + name + "=" + q + v + q
	})
}
