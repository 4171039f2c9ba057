// Package parser separates reasoning blocks from the answer in backend
// replies.
package parser

import "strings"

// reasoningTags are the block names reasoning models wrap their chain of
// thought in.
var reasoningTags = []string{"thinking", "think"}

// StripReasoning removes <thinking> and <think> blocks from reply and returns
// the remaining answer along with the removed content. An unclosed block
// swallows the rest of the reply. Angle brackets that do not form one of the
// tags are left alone.
func StripReasoning(reply string) (answer, reasoning string) {
	var out, thought strings.Builder

	rest := reply
	for {
		start, tag := nextOpenTag(rest)
		if start < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])
		rest = rest[start+len(tag)+2:]

		closing := "</" + tag + ">"
		end := strings.Index(rest, closing)
		if end < 0 {
			appendBlock(&thought, rest)
			break
		}
		appendBlock(&thought, rest[:end])
		rest = rest[end+len(closing):]
	}

	return strings.TrimSpace(out.String()), thought.String()
}

// nextOpenTag finds the earliest opening reasoning tag in s.
func nextOpenTag(s string) (int, string) {
	best, bestTag := -1, ""
	for _, tag := range reasoningTags {
		i := strings.Index(s, "<"+tag+">")
		if i >= 0 && (best < 0 || i < best) {
			best, bestTag = i, tag
		}
	}
	return best, bestTag
}

func appendBlock(b *strings.Builder, block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(block)
}
