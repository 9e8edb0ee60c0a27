package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pbaille/thoughtboard/internal/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	latestStyle  = lipgloss.NewStyle().Bold(true).PaddingLeft(2)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	historyStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("4")).
			PaddingLeft(1).
			MarginBottom(1)
)

// TerminalView is what the show command prints. HistoryEmpty is set when the
// API returned no thoughts at all; a single thought leaves History empty
// without the placeholder.
type TerminalView struct {
	Latest       *domain.Thought
	LatestErr    error
	History      []domain.Thought
	HistoryEmpty bool
	HistoryErr   error
}

// Terminal renders a view for a terminal. History is expected newest first.
func Terminal(v TerminalView) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Latest Thought"))
	sb.WriteString("\n")
	switch {
	case v.LatestErr != nil:
		sb.WriteString(errorStyle.Render("Failed to fetch latest thought: " + v.LatestErr.Error()))
		sb.WriteString("\n")
	case v.Latest == nil:
		sb.WriteString(mutedStyle.Render(emptyMessage))
		sb.WriteString("\n")
	default:
		sb.WriteString(latestStyle.Render(v.Latest.Thought))
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render("Previous Thought: " + v.Latest.Input))
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render(UpdatedAt(*v.Latest)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("Thought History"))
	sb.WriteString("\n")
	switch {
	case v.HistoryErr != nil:
		sb.WriteString(errorStyle.Render("Failed to fetch thought history: " + v.HistoryErr.Error()))
		sb.WriteString("\n")
	case v.HistoryEmpty:
		sb.WriteString(mutedStyle.Render(emptyMessage))
		sb.WriteString("\n")
	default:
		for _, t := range v.History {
			entry := mutedStyle.Render(FormatTimestamp(t.Timestamp)) + "\n" + t.Thought
			sb.WriteString(historyStyle.Render(entry))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
