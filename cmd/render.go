package cmd

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	modeBadgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")).Padding(0, 1)
	gateStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	logStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Italic(true)
)

// renderContent formats assistant output for the terminal, syntax
// highlighting fenced code blocks and leaving prose untouched.
func renderContent(content string) string {
	if !strings.Contains(content, "```") {
		return assistantStyle.Render(content)
	}

	var out strings.Builder
	rest := content
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			out.WriteString(assistantStyle.Render(rest))
			break
		}
		out.WriteString(assistantStyle.Render(rest[:start]))
		rest = rest[start+3:]

		newline := strings.Index(rest, "\n")
		end := strings.Index(rest, "```")
		if newline < 0 || end < 0 || end < newline {
			// Unterminated or empty fence, emit as-is
			out.WriteString("```")
			out.WriteString(assistantStyle.Render(rest))
			break
		}

		lang := strings.TrimSpace(rest[:newline])
		code := rest[newline+1 : end]
		out.WriteString(highlight(code, lang))
		rest = rest[end+3:]
	}
	return out.String()
}

func highlight(code, lang string) string {
	if lang == "" {
		lang = "text"
	}
	var buf strings.Builder
	if err := quick.Highlight(&buf, code, lang, "terminal256", "monokai"); err != nil {
		return code
	}
	return buf.String()
}
