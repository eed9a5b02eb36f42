package toc

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

var errBadLiteral = errors.New("malformed string literal")

// unquote decodes JavaScript string literal including quotes: single,
// double or backtick.
func unquote(lit []byte) (string, error) {
	if len(lit) < 2 {
		return "", errBadLiteral
	}
	q := lit[0]
	if (q != '"' && q != '\'' && q != '`') || lit[len(lit)-1] != q {
		return "", errBadLiteral
	}
	s := string(lit[1 : len(lit)-1])
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errBadLiteral
		}
		switch c = s[i]; c {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\r':
			// line continuation
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			if i+2 >= len(s) {
				return "", errBadLiteral
			}
			r, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", errBadLiteral
			}
			b.WriteRune(rune(r))
			i += 2
		case 'u':
			r, n, err := unicodeEscape(s[i+1:])
			if err != nil {
				return "", err
			}
			i += n
			// surrogate pair
			if r >= 0xD800 && r < 0xDC00 && strings.HasPrefix(s[i+1:], `\u`) {
				if lo, m, err := unicodeEscape(s[i+3:]); err == nil && lo >= 0xDC00 && lo < 0xE000 {
					r = (r-0xD800)<<10 + (lo - 0xDC00) + 0x10000
					i += 2 + m
				}
			}
			if !utf8.ValidRune(r) {
				r = utf8.RuneError
			}
			b.WriteRune(r)
		default:
			// any other escaped character stands for itself
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String(), nil
}

// unicodeEscape decodes XXXX or {X...} following \u and returns number of
// consumed bytes.
func unicodeEscape(s string) (rune, int, error) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0, errBadLiteral
		}
		r, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil || r > utf8.MaxRune {
			return 0, 0, errBadLiteral
		}
		return rune(r), end + 1, nil
	}
	if len(s) < 4 {
		return 0, 0, errBadLiteral
	}
	r, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, 0, errBadLiteral
	}
	return rune(r), 4, nil
}
