// Package css prepares source stylesheet for inclusion into the book.
package css

import (
	"bytes"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Stats counts constructs removed from stylesheet.
type Stats struct {
	Imports      int
	FontFaces    int
	RemoteURLs   int
	OtherAtRules int
}

// Dropped returns total number of removed constructs.
func (s Stats) Dropped() int {
	return s.Imports + s.FontFaces + s.RemoteURLs + s.OtherAtRules
}

type sanitizer struct {
	log   *zap.Logger
	p     *css.Parser
	out   bytes.Buffer
	stats Stats
}

// Sanitize re-emits stylesheet dropping everything book readers cannot
// resolve: @import and @font-face rules and declarations referencing remote
// resources. Comments are not preserved.
func Sanitize(data []byte, log *zap.Logger) []byte {
	out, _ := SanitizeWithStats(data, log)
	return out
}

// SanitizeWithStats is Sanitize which also reports what was removed.
func SanitizeWithStats(data []byte, log *zap.Logger) ([]byte, Stats) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &sanitizer{
		log: log.Named("css"),
		p:   css.NewParser(parse.NewInput(bytes.NewReader(data)), false),
	}
	s.run()

	if err := s.p.Err(); err != nil && err.Error() != "EOF" {
		s.log.Debug("CSS parse error", zap.Error(err))
	}
	if n := s.stats.Dropped(); n > 0 {
		s.log.Info("Stylesheet sanitized",
			zap.Int("imports", s.stats.Imports),
			zap.Int("font-faces", s.stats.FontFaces),
			zap.Int("remote urls", s.stats.RemoteURLs),
			zap.Int("at-rules", s.stats.OtherAtRules))
	}
	return s.out.Bytes(), s.stats
}

func (s *sanitizer) run() {
	for {
		gt, _, data := s.p.Next()
		switch gt {
		case css.ErrorGrammar:
			return

		case css.AtRuleGrammar:
			rule := strings.ToLower(string(data))
			switch rule {
			case "@import":
				s.stats.Imports++
				s.log.Debug("Dropping @import", zap.String("target", importTarget(s.p.Values())))
			case "@charset":
				// book content is always utf-8
			default:
				s.out.Write(data)
				s.writeValues(s.p.Values())
				s.out.WriteString(";\n")
			}

		case css.BeginAtRuleGrammar:
			rule := strings.ToLower(string(data))
			switch rule {
			case "@font-face":
				s.stats.FontFaces++
				s.log.Debug("Dropping @font-face")
				s.skipBlock()
			case "@media", "@page", "@supports":
				s.out.Write(data)
				s.writeValues(s.p.Values())
				s.out.WriteString(" {\n")
			default:
				s.stats.OtherAtRules++
				s.log.Debug("Dropping @-rule", zap.String("rule", rule))
				s.skipBlock()
			}

		case css.EndAtRuleGrammar:
			s.out.WriteString("}\n")

		case css.BeginRulesetGrammar:
			s.out.Write(data)
			for _, v := range s.p.Values() {
				s.out.Write(v.Data)
			}
			s.out.WriteString(" {\n")

		case css.EndRulesetGrammar:
			s.out.WriteString("}\n")

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			values := s.p.Values()
			if remoteURL(values) {
				s.stats.RemoteURLs++
				s.log.Debug("Dropping declaration with remote resource", zap.ByteString("property", data))
				continue
			}
			s.out.WriteString("  ")
			s.out.Write(data)
			s.out.WriteString(":")
			s.writeValues(values)
			s.out.WriteString(";\n")

		case css.CommentGrammar:
			// skip
		}
	}
}

func (s *sanitizer) writeValues(values []css.Token) {
	for i, v := range values {
		if v.TokenType == css.WhitespaceToken {
			// collapse, drop leading
			if i > 0 && i < len(values)-1 {
				s.out.WriteByte(' ')
			}
			continue
		}
		if i == 0 {
			s.out.WriteByte(' ')
		}
		s.out.Write(v.Data)
	}
}

// skipBlock consumes tokens up to the end of the current @-rule block.
func (s *sanitizer) skipBlock() {
	depth := 1
	for depth > 0 {
		gt, _, _ := s.p.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// remoteURL reports whether value references http(s) resource either as
// url(...) token or url() function with string argument.
func remoteURL(values []css.Token) bool {
	for i, t := range values {
		switch t.TokenType {
		case css.URLToken:
			if isRemote(urlTarget(string(t.Data))) {
				return true
			}
		case css.FunctionToken:
			if !strings.EqualFold(string(t.Data), "url(") {
				continue
			}
			for _, a := range values[i+1:] {
				if a.TokenType == css.StringToken {
					if isRemote(unquote(string(a.Data))) {
						return true
					}
					break
				}
				if a.TokenType != css.WhitespaceToken {
					break
				}
			}
		}
	}
	return false
}

func importTarget(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			return urlTarget(string(t.Data))
		}
	}
	return ""
}

func urlTarget(s string) string {
	s = strings.TrimSuffix(s[min(len(s), len("url(")):], ")")
	return unquote(strings.TrimSpace(s))
}

func isRemote(u string) bool {
	u = strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "//")
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
