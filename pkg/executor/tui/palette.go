package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// paletteItem is a command offered in the palette.
type paletteItem struct {
	Name        string
	Description string
}

// commandPalette filters slash commands while the user types.
type commandPalette struct {
	items         []paletteItem
	filtered      []paletteItem
	selectedIndex int
	filter        string
	active        bool
}

func newCommandPalette(items []paletteItem) *commandPalette {
	return &commandPalette{items: items, filtered: items}
}

func (cp *commandPalette) activate() {
	cp.active = true
	cp.filter = ""
	cp.selectedIndex = 0
	cp.updateFiltered()
}

func (cp *commandPalette) deactivate() {
	cp.active = false
	cp.filter = ""
	cp.selectedIndex = 0
}

func (cp *commandPalette) isActive() bool {
	return cp.active
}

// updateFilter refreshes the list. The selection resets only when the filter
// actually changed.
func (cp *commandPalette) updateFilter(filter string) {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f != cp.filter {
		cp.filter = f
		cp.selectedIndex = 0
		cp.updateFiltered()
	}
}

// updateFiltered ranks name matches before description-only matches so a
// command prefix always surfaces the intended command first.
func (cp *commandPalette) updateFiltered() {
	if cp.filter == "" {
		cp.filtered = cp.items
		return
	}

	var nameMatches, descMatches []paletteItem
	for _, item := range cp.items {
		switch {
		case strings.HasPrefix(strings.ToLower(item.Name), cp.filter):
			nameMatches = append(nameMatches, item)
		case strings.Contains(strings.ToLower(item.Description), cp.filter):
			descMatches = append(descMatches, item)
		}
	}
	cp.filtered = append(nameMatches, descMatches...)
	if cp.selectedIndex >= len(cp.filtered) {
		cp.selectedIndex = 0
	}
}

func (cp *commandPalette) selectNext() {
	if len(cp.filtered) == 0 {
		return
	}
	cp.selectedIndex = (cp.selectedIndex + 1) % len(cp.filtered)
}

func (cp *commandPalette) selectPrev() {
	if len(cp.filtered) == 0 {
		return
	}
	cp.selectedIndex--
	if cp.selectedIndex < 0 {
		cp.selectedIndex = len(cp.filtered) - 1
	}
}

func (cp *commandPalette) selected() *paletteItem {
	if cp.selectedIndex < 0 || cp.selectedIndex >= len(cp.filtered) {
		return nil
	}
	return &cp.filtered[cp.selectedIndex]
}

// render draws up to five matches in a bordered box.
func (cp *commandPalette) render(width int) string {
	if !cp.active || len(cp.filtered) == 0 {
		return ""
	}

	paletteWidth := width * 80 / 100
	if paletteWidth > 80 {
		paletteWidth = 80
	}
	if paletteWidth < 40 {
		paletteWidth = 40
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.PaddingLeft(1).Render("Commands:"))
	sb.WriteString("\n")

	maxVisible := 5
	if len(cp.filtered) < maxVisible {
		maxVisible = len(cp.filtered)
	}
	descStyle := lipgloss.NewStyle().Foreground(mutedGray)
	for i := 0; i < maxVisible; i++ {
		item := cp.filtered[i]
		current := i == cp.selectedIndex
		prefix := "  "
		if current {
			prefix = "> "
		}
		name := lipgloss.NewStyle().Foreground(salmonPink).Bold(current).Render("/" + item.Name)
		line := prefix + name + "  " + descStyle.Render(item.Description)
		if current {
			line = lipgloss.NewStyle().
				Background(paletteBg).
				Width(paletteWidth - 2).
				PaddingLeft(1).
				Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if len(cp.filtered) > maxVisible {
		sb.WriteString(panelHelpStyle.PaddingLeft(1).Render("... and more. Keep typing to filter."))
		sb.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(salmonPink).
		Width(paletteWidth).
		Padding(0, 1).
		Render(sb.String())
}
