package tui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/beacon/pkg/types"
)

// loadingMessage returns the spinner text for a command kind.
func loadingMessage(kind types.InputType) string {
	switch kind {
	case types.InputTypeSummarize:
		return "Reading the page..."
	case types.InputTypeGuide:
		return "Looking for the next step..."
	case types.InputTypeNavigate:
		return "Searching the page..."
	case types.InputTypeClear:
		return "Clearing..."
	}
	return "Working..."
}

// formatTokenCount formats a token count with K/M suffixes for readability
func formatTokenCount(count int) string {
	if count >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(count)/1000000)
	}
	if count >= 1000 {
		return fmt.Sprintf("%.1fK", float64(count)/1000)
	}
	return fmt.Sprintf("%d", count)
}

// highlightJSON colors JSON for a 256-color terminal. The source is returned
// unchanged when highlighting fails.
func highlightJSON(src string) string {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, src, "json", "terminal256", "monokai"); err != nil {
		debugLog.Debugf("JSON highlighting failed: %v", err)
		return src
	}
	return buf.String()
}

// formatEntry word-wraps icon+text to width and styles it.
func formatEntry(icon string, text string, style lipgloss.Style, width int) string {
	wrapWidth := width - 4
	if wrapWidth <= 0 {
		wrapWidth = 80
	}
	return style.Render(wordWrap(icon+text, wrapWidth))
}

// wordWrap wraps text to fit within width while preserving paragraph breaks.
// Words longer than width are split.
func wordWrap(text string, width int) string {
	if width <= 0 {
		width = 80
	}

	var result strings.Builder
	first := true
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		if !first {
			result.WriteString("\n")
		}
		first = false

		line := ""
		for _, word := range words {
			for len([]rune(word)) > width {
				if line != "" {
					result.WriteString(line)
					result.WriteString("\n")
					line = ""
				}
				r := []rune(word)
				result.WriteString(string(r[:width]))
				result.WriteString("\n")
				word = string(r[width:])
			}
			switch {
			case line == "":
				line = word
			case len([]rune(line))+1+len([]rune(word)) > width:
				result.WriteString(line)
				result.WriteString("\n")
				line = word
			default:
				line += " " + word
			}
		}
		result.WriteString(line)
	}
	return result.String()
}
