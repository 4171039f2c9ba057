package navigation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// PatternSource translates a path glob into an anchored regular expression
// source that both Go and browser engines accept. The dialect is the one
// Router matches with: '*', '**', '?', '[...]', '[!...]', '{a,b}' and '\'
// escapes, with '/' as the separator.
func PatternSource(pattern string) (string, error) {
	if _, err := glob.Compile(pattern, '/'); err != nil {
		return "", fmt.Errorf("%q: %w", pattern, err)
	}
	t := &translator{src: []rune(pattern)}
	body, err := t.sequence(false)
	if err != nil {
		return "", fmt.Errorf("%q: %w", pattern, err)
	}
	if t.pos != len(t.src) {
		return "", fmt.Errorf("%q: unexpected %q at %d", pattern, t.src[t.pos], t.pos)
	}
	return "^" + body + "$", nil
}

// PatternSources translates every pattern with PatternSource.
func PatternSources(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		src, err := PatternSource(p)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

type translator struct {
	src []rune
	pos int
}

func (t *translator) peek(offset int) (rune, bool) {
	i := t.pos + offset
	if i >= len(t.src) {
		return 0, false
	}
	return t.src[i], true
}

// sequence consumes until the end of input or, inside braces, until an
// unescaped ',' or '}' which is left for the caller.
func (t *translator) sequence(inBraces bool) (string, error) {
	var b strings.Builder
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case inBraces && (c == ',' || c == '}'):
			return b.String(), nil
		case c == '\\':
			next, ok := t.peek(1)
			if !ok {
				return "", fmt.Errorf("dangling escape")
			}
			b.WriteString(regexp.QuoteMeta(string(next)))
			t.pos += 2
		case c == '*':
			if next, ok := t.peek(1); ok && next == '*' {
				b.WriteString(".*")
				t.pos += 2
			} else {
				b.WriteString("[^/]*")
				t.pos++
			}
		case c == '?':
			b.WriteString("[^/]")
			t.pos++
		case c == '[':
			class, err := t.class()
			if err != nil {
				return "", err
			}
			b.WriteString(class)
		case c == '{':
			alt, err := t.alternatives()
			if err != nil {
				return "", err
			}
			b.WriteString(alt)
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			t.pos++
		}
	}
	if inBraces {
		return "", fmt.Errorf("unclosed '{'")
	}
	return b.String(), nil
}

func (t *translator) class() (string, error) {
	t.pos++
	var b strings.Builder
	b.WriteByte('[')
	if c, ok := t.peek(0); ok && c == '!' {
		b.WriteByte('^')
		t.pos++
	}
	for {
		c, ok := t.peek(0)
		if !ok {
			return "", fmt.Errorf("unclosed '['")
		}
		if c == ']' {
			t.pos++
			b.WriteByte(']')
			return b.String(), nil
		}
		b.WriteString(classChar(c))
		if dash, ok := t.peek(1); ok && dash == '-' {
			if hi, ok := t.peek(2); ok && hi != ']' {
				b.WriteByte('-')
				b.WriteString(classChar(hi))
				t.pos += 3
				continue
			}
		}
		t.pos++
	}
}

func (t *translator) alternatives() (string, error) {
	t.pos++
	var alts []string
	for {
		alt, err := t.sequence(true)
		if err != nil {
			return "", err
		}
		alts = append(alts, alt)
		c, _ := t.peek(0)
		t.pos++
		if c == '}' {
			return "(?:" + strings.Join(alts, "|") + ")", nil
		}
	}
}

func classChar(c rune) string {
	switch c {
	case '\\', ']', '[', '^', '-':
		return `\` + string(c)
	}
	return string(c)
}
