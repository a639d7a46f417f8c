package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI interface.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.panel != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.panel.View(),
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	sections := []string{
		m.buildHeader(),
		m.buildTips(),
		m.buildTopStatus(),
		m.viewport.View(),
	}
	if loading := m.buildLoadingIndicator(); loading != "" {
		sections = append(sections, loading)
	}
	if palette := m.palette.render(m.width); palette != "" {
		sections = append(sections, palette)
	}
	sections = append(sections, m.buildInputBox(), m.buildBottomBar())

	return m.applyToast(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// buildHeader renders the title line
func (m *model) buildHeader() string {
	title := m.header
	if title == "" {
		title = "beacon"
	}
	return headerStyle.Render("  ◉ " + title)
}

// buildTips renders usage tips
func (m *model) buildTips() string {
	return tipsStyle.Render("  Ask about the page • /summarize • /guide • Esc to clear • Ctrl+Y to copy • /help • Ctrl+C to exit")
}

// buildTopStatus renders the current page and feature indicators
func (m *model) buildTopStatus() string {
	url := m.controls.URL()
	if url == "" {
		url = "no page open (use /open <url>)"
	}
	f := m.controls.Flags()
	var flags []string
	if f.VoiceInput {
		flags = append(flags, "mic")
	}
	if f.VoiceOutput {
		flags = append(flags, "voice")
	}
	if f.VisualArrows {
		flags = append(flags, "arrows")
	}
	if f.AutoSummarize {
		flags = append(flags, "auto")
	}
	status := " Page: " + url
	if len(flags) > 0 {
		status += " • " + strings.Join(flags, " ")
	}
	if m.speaking {
		status += " • speaking"
	}
	return statusBarStyle.Render(status)
}

// buildLoadingIndicator renders the spinner while a command runs
func (m *model) buildLoadingIndicator() string {
	if !m.busy {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(salmonPink).
		Width(m.width-4).
		Padding(0, 2).
		Render(fmt.Sprintf("%s %s", m.spinner.View(), m.loadingMsg))
}

// buildInputBox renders the text input area
func (m *model) buildInputBox() string {
	return inputBoxStyle.Width(m.width - 4).Render(m.textarea.View())
}

// buildBottomBar renders the bottom status bar with token usage
func (m *model) buildBottomBar() string {
	left := "Enter to send"
	if m.lastCommand != "" {
		left = "Last: " + m.lastCommand
	}
	right := "Beacon"
	if m.totalTokens > 0 {
		right = fmt.Sprintf("Tokens: %s in • %s out • %s total",
			formatTokenCount(m.totalPromptTokens),
			formatTokenCount(m.totalCompletionTokens),
			formatTokenCount(m.totalTokens))
	}
	padding := m.width - len(left) - len(right) - 2
	if padding < 2 {
		padding = 2
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

// applyToast overlays the toast above the input box until it expires
func (m *model) applyToast(base string) string {
	if m.toast == nil {
		return base
	}
	if time.Now().After(m.toast.showUntil) {
		m.toast = nil
		return base
	}

	text := m.toast.message
	if m.toast.details != "" {
		text += "\n" + m.toast.details
	}
	style := toastStyle
	if m.toast.isError {
		style = toastErrorStyle
	}
	toastLines := strings.Split(style.Render(text), "\n")

	lines := strings.Split(base, "\n")
	start := len(lines) - 5 - len(toastLines)
	if start < 0 {
		start = 0
	}
	for i, line := range toastLines {
		if start+i < len(lines) {
			lines[start+i] = "  " + line
		}
	}
	return strings.Join(lines, "\n")
}
