package panel

import (
	"fmt"
	"strings"
)

const maxHoverLines = 6

// View implements tea.Model.
func (m *Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	if m.text == "" {
		b.WriteString(mutedStyle.Render("Hold the modifier over a post to get reply suggestions."))
		b.WriteString("\n")
	} else {
		b.WriteString(hoverStyle.Width(width - 2).Render(clampLines(m.text, maxHoverLines)))
		b.WriteString("\n")
		b.WriteString(m.suggestionsView(width))
	}

	if m.input.Focused() || m.input.Value() != "" {
		b.WriteString("\n")
		b.WriteString(inputBoxStyle.Width(width - 2).Render(m.input.View()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) headerView() string {
	parts := []string{headerStyle.Render("hoverpilot")}
	if m.profile != "" {
		parts = append(parts, mutedStyle.Render(m.profile))
	}
	if m.held {
		parts = append(parts, okStyle.Render("● held"))
	} else {
		parts = append(parts, mutedStyle.Render("○ idle"))
	}
	if m.state.Pinned() {
		parts = append(parts, okStyle.Render("pinned"))
	}
	if m.secondaryURL != "" {
		parts = append(parts, mutedStyle.Render("split: "+m.secondaryURL))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) suggestionsView(width int) string {
	var b strings.Builder
	switch {
	case m.loading:
		b.WriteString(m.spinner.View())
		b.WriteString(mutedStyle.Render(" generating…"))
		b.WriteString("\n")
	case m.genErr != nil:
		b.WriteString(errorStyle.Render("✗ " + m.genErr.Error()))
		b.WriteString("\n")
	case len(m.suggestions) == 0:
		b.WriteString(mutedStyle.Render("no suggestions yet"))
		b.WriteString("\n")
	}

	for i, s := range m.suggestions {
		line := fmt.Sprintf("%d. %s", i+1, s)
		if i == m.selected {
			b.WriteString(selectedStyle.Width(width - 2).Render(line))
		} else {
			b.WriteString(suggestionStyle.Width(width - 2).Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) statusView() string {
	flags := []string{}
	if m.pasteImage {
		flags = append(flags, "attach clipboard")
	}
	if m.autoSubmit {
		flags = append(flags, "auto-submit")
	}

	line := strings.Join(flags, " · ")
	if m.status != "" {
		style := okStyle
		if m.statusErr {
			style = errorStyle
		}
		if line != "" {
			line += "  "
		}
		line += style.Render(m.status)
	}
	return statusBarStyle.Render(line)
}

func clampLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + "\n…"
}
