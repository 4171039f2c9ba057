// Package hover qualifies entity text read from embedded contexts and merges
// per-context readings into one authoritative state.
package hover

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMinTextLength is the minimum trimmed length of publishable hover text.
const DefaultMinTextLength = 5

// Qualify trims text and reports whether it meets the minimum length,
// counted in characters rather than bytes.
func Qualify(text string, minLength int) (string, bool) {
	if minLength <= 0 {
		minLength = DefaultMinTextLength
	}
	trimmed := strings.TrimSpace(text)
	return trimmed, utf8.RuneCountInString(trimmed) >= minLength
}

// ExtractText returns the visible text of an entity's text element markup.
//
// Emoji rendered as <img alt="..."> contribute their alt text, <br> becomes a
// newline, and hidden or non-content subtrees are skipped.
func ExtractText(fragment string) (string, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return "", fmt.Errorf("failed to parse entity markup: %w", err)
	}

	var b strings.Builder
	for _, n := range nodes {
		writeVisible(n, &b)
	}
	return normalizeWhitespace(b.String()), nil
}

func writeVisible(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if isSkipped(n) {
			return
		}
		switch n.DataAtom {
		case atom.Br:
			b.WriteString("\n")
			return
		case atom.Img:
			b.WriteString(attr(n, "alt"))
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeVisible(c, b)
	}

	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		b.WriteString("\n")
	}
}

func isSkipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg:
		return true
	}
	if _, ok := lookupAttr(n, "hidden"); ok {
		return true
	}
	return attr(n, "aria-hidden") == "true"
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Div, atom.P, atom.Li, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// normalizeWhitespace collapses runs of spaces inside lines and drops blank lines.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
