package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// panel is a scrollable modal used for help text and the page snapshot.
type panel struct {
	title    string
	viewport viewport.Model
}

// newPanel sizes the panel to most of the window.
func newPanel(title, content string, width, height int) *panel {
	w, h := panelSize(width, height)
	vp := viewport.New(w, h)
	vp.Style = lipgloss.NewStyle()
	vp.SetContent(content)
	return &panel{title: title, viewport: vp}
}

func panelSize(width, height int) (int, int) {
	w := width - 10
	if w > 100 {
		w = 100
	}
	if w < 40 {
		w = 40
	}
	h := height - 10
	if h < 5 {
		h = 5
	}
	return w, h
}

// Update scrolls the panel. closed is true when the user dismissed it.
func (p *panel) Update(msg tea.Msg) (closed bool, cmd tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "enter", "q", "ctrl+c":
			return true, nil
		}
		switch msg.Type {
		case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
			p.viewport, cmd = p.viewport.Update(msg)
		}
	case tea.WindowSizeMsg:
		p.viewport.Width, p.viewport.Height = panelSize(msg.Width, msg.Height)
	case tea.MouseMsg:
		p.viewport, cmd = p.viewport.Update(msg)
	}
	return false, cmd
}

// View renders the panel with its header and footer.
func (p *panel) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		panelTitleStyle.Render(p.title),
		"",
		p.viewport.View(),
		"",
		panelHelpStyle.Render("↑/↓ to scroll • ESC or Enter to close"),
	)
	return panelStyle.Render(content)
}
