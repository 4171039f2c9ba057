package generate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/hoverpilot/pkg/types"
)

func (g *Generator) buildMessages(text, styleRules, extra string, n int) []*types.Message {
	text, cut := g.tokenizer.Truncate(strings.TrimSpace(text), g.opts.MaxPromptTokens)
	if cut {
		text += " …"
	}

	var system strings.Builder
	system.WriteString("You write replies to posts the user is reading.\n\n")
	if styleRules = strings.TrimSpace(styleRules); styleRules != "" {
		system.WriteString("Style rules:\n")
		system.WriteString(styleRules)
		system.WriteString("\n\n")
	}
	if n > 1 {
		fmt.Fprintf(&system, "Return exactly %d distinct replies as a JSON array of strings and nothing else.", n)
	} else {
		system.WriteString("Return only the reply text.")
	}

	var user strings.Builder
	user.WriteString("Post:\n")
	user.WriteString(text)
	if extra = strings.TrimSpace(extra); extra != "" {
		user.WriteString("\n\nAdditional instruction: ")
		user.WriteString(extra)
	}

	return []*types.Message{
		types.NewSystemMessage(system.String()),
		types.NewUserMessage(user.String()),
	}
}

var (
	fencePattern  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	bulletPattern = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
)

// ParseSuggestions extracts up to max replies from a model answer. A JSON
// array is preferred; otherwise each non-empty line is a reply with any
// list marker and surrounding quotes removed.
func ParseSuggestions(reply string, max int) []string {
	reply = strings.TrimSpace(reply)
	if m := fencePattern.FindStringSubmatch(reply); m != nil {
		reply = m[1]
	}

	var items []string
	if err := json.Unmarshal([]byte(reply), &items); err != nil {
		items = strings.Split(reply, "\n")
	}

	out := make([]string, 0, max)
	seen := make(map[string]bool)
	for _, item := range items {
		item = bulletPattern.ReplaceAllString(item, "")
		item = strings.TrimSpace(strings.Trim(strings.TrimSpace(item), `"“”`))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
