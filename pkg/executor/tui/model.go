package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/beacon/pkg/orchestrator"
)

// toastDuration is how long a toast stays on screen.
const toastDuration = 3 * time.Second

// model represents the state of the TUI application.
type model struct {
	// Bubble Tea components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	palette  *commandPalette

	// Narrator integration
	ctx      context.Context
	runner   Runner
	controls Controls

	// Customization
	header string

	// Content buffer
	content *strings.Builder

	// UI state
	panel *panel
	toast *toastNotification

	// Command state
	busy        bool
	speaking    bool
	loadingMsg  string
	lastMessage string
	lastCommand string

	// Token usage for this run
	totalPromptTokens     int
	totalCompletionTokens int
	totalTokens           int

	// Window dimensions
	width  int
	height int
	ready  bool
}

// commandDoneMsg carries the result of a finished orchestrator command.
type commandDoneMsg struct {
	outcome *orchestrator.Outcome
	err     error
}

// openDoneMsg carries the result of loading a page.
type openDoneMsg struct {
	url string
	err error
}

// toastNotification represents a temporary notification message
type toastNotification struct {
	message   string
	details   string
	isError   bool
	showUntil time.Time
}

// initialModel creates the starting model.
func initialModel(ctx context.Context, runner Runner, controls Controls) *model {
	ta := textarea.New()
	ta.Placeholder = "Ask about this page, or type / for commands..."
	ta.Focus()
	ta.Prompt = "> "
	ta.CharLimit = 2000
	ta.SetWidth(80)
	ta.SetHeight(1)
	ta.MaxHeight = 5
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(salmonPink)

	return &model{
		viewport: vp,
		textarea: ta,
		spinner:  s,
		palette:  newCommandPalette(paletteItems()),
		ctx:      ctx,
		runner:   runner,
		controls: controls,
		content:  &strings.Builder{},
	}
}

// Init starts the spinner.
func (m *model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// appendEntry adds a rendered entry to the transcript and scrolls to it.
func (m *model) appendEntry(entry string) {
	m.content.WriteString(entry)
	m.content.WriteString("\n\n")
	m.viewport.SetContent(m.content.String())
	m.viewport.GotoBottom()
}

// showToast displays a transient notification.
func (m *model) showToast(message, details string, isError bool) {
	m.toast = &toastNotification{
		message:   message,
		details:   details,
		isError:   isError,
		showUntil: time.Now().Add(toastDuration),
	}
}

// recalculateLayout resizes the viewport around the header and input box.
func (m *model) recalculateLayout() {
	if !m.ready {
		return
	}
	m.viewport.Width = m.width - 4
	m.viewport.Height = m.calculateViewportHeight()
}

// calculateViewportHeight computes the viewport height from the current
// state.
func (m *model) calculateViewportHeight() int {
	headerHeight := 4                      // title (1) + tips (1) + status bar (1) + spacing (1)
	inputHeight := m.textarea.Height() + 2 // textarea height + border
	statusBarHeight := 1
	loadingHeight := 0
	if m.busy {
		loadingHeight = 1
	}

	h := m.height - headerHeight - inputHeight - statusBarHeight - loadingHeight
	if h < 5 {
		h = 5
	}
	return h
}
