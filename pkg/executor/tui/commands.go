package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/beacon/pkg/config"
	"github.com/entrhq/beacon/pkg/types"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// CommandHandler runs a slash command. The model is modified in place; the
// returned command, if any, runs asynchronously.
type CommandHandler func(m *model, args []string) tea.Cmd

// SlashCommand represents a registered command
type SlashCommand struct {
	Name        string         // Command name (without /)
	Description string         // Short description for palette
	Usage       string         // Argument hint shown in help
	Handler     CommandHandler // Handler function
	MinArgs     int            // Minimum number of arguments
	MaxArgs     int            // Maximum number of arguments (-1 for unlimited)
}

// commandRegistry holds all registered slash commands
var commandRegistry map[string]*SlashCommand

func init() {
	commandRegistry = make(map[string]*SlashCommand)

	registerCommand(&SlashCommand{
		Name:        "summarize",
		Description: "Describe the current page",
		Handler:     handleSummarizeCommand,
	})
	registerCommand(&SlashCommand{
		Name:        "guide",
		Description: "Point at the most useful next step",
		Handler:     handleGuideCommand,
	})
	registerCommand(&SlashCommand{
		Name:        "clear",
		Description: "Remove the highlight and stop speaking",
		Handler:     handleClearCommand,
	})
	registerCommand(&SlashCommand{
		Name:        "open",
		Description: "Load a page in the browser",
		Usage:       "<url>",
		Handler:     handleOpenCommand,
		MinArgs:     1,
		MaxArgs:     1,
	})
	registerCommand(&SlashCommand{
		Name:        "toggle",
		Description: "Turn a feature on or off",
		Usage:       "<feature>",
		Handler:     handleToggleCommand,
		MinArgs:     1,
		MaxArgs:     1,
	})
	registerCommand(&SlashCommand{
		Name:        "features",
		Description: "Show which features are on",
		Handler:     handleFeaturesCommand,
	})
	registerCommand(&SlashCommand{
		Name:        "snapshot",
		Description: "Show the last page snapshot as JSON",
		Handler:     handleSnapshotCommand,
	})
	registerCommand(&SlashCommand{
		Name:        "usage",
		Description: "Show command and token counts",
		Handler:     handleUsageCommand,
	})
	registerCommand(&SlashCommand{
		Name:        "copy",
		Description: "Copy the last reply to the clipboard",
		Handler:     handleCopyCommand,
	})
	registerCommand(&SlashCommand{
		Name:        "help",
		Description: "Show commands and keyboard shortcuts",
		Handler:     handleHelpCommand,
	})
	registerCommand(&SlashCommand{
		Name:        "quit",
		Description: "Exit Beacon",
		Handler:     handleQuitCommand,
	})
}

// registerCommand adds a command to the registry
func registerCommand(cmd *SlashCommand) {
	commandRegistry[cmd.Name] = cmd
}

// sortedCommands returns registered commands by name.
func sortedCommands() []*SlashCommand {
	cmds := make([]*SlashCommand, 0, len(commandRegistry))
	for _, c := range commandRegistry {
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// paletteItems lists the commands for the palette.
func paletteItems() []paletteItem {
	var items []paletteItem
	for _, c := range sortedCommands() {
		items = append(items, paletteItem{Name: c.Name, Description: c.Description})
	}
	return items
}

// parseSlashCommand splits "/name arg1 arg2" into name and args.
func parseSlashCommand(input string) (string, []string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// executeSlashCommand validates and runs a parsed command.
func executeSlashCommand(m *model, name string, args []string) tea.Cmd {
	cmd, ok := commandRegistry[name]
	if !ok {
		m.showToast("Unknown command", fmt.Sprintf("/%s is not a command. Type /help to see the list.", name), true)
		return nil
	}
	if len(args) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(args) > cmd.MaxArgs) {
		m.showToast("Usage", strings.TrimSpace(fmt.Sprintf("/%s %s", cmd.Name, cmd.Usage)), true)
		return nil
	}
	debugLog.Debugf("Executing /%s %v", name, args)
	return cmd.Handler(m, args)
}

func handleSummarizeCommand(m *model, _ []string) tea.Cmd {
	return m.runCommand(types.NewSummarizeInput())
}

func handleGuideCommand(m *model, _ []string) tea.Cmd {
	return m.runCommand(types.NewGuideInput())
}

func handleClearCommand(m *model, _ []string) tea.Cmd {
	return m.runCommand(types.NewClearInput())
}

func handleOpenCommand(m *model, args []string) tea.Cmd {
	url := args[0]
	if !strings.Contains(url, "://") && !strings.HasPrefix(url, "about:") {
		url = "https://" + url
	}
	m.appendEntry(systemStyle.Render("  Opening " + url + "..."))
	controls, ctx := m.controls, m.ctx
	return func() tea.Msg {
		return openDoneMsg{url: url, err: controls.Open(ctx, url)}
	}
}

func handleToggleCommand(m *model, args []string) tea.Cmd {
	name := strings.ReplaceAll(strings.ToLower(args[0]), "-", "_")
	on, err := m.controls.Toggle(name)
	if err != nil {
		m.showToast("Toggle failed", err.Error(), true)
		return nil
	}
	m.showToast(fmt.Sprintf("%s %s", name, onOff(on)), "", false)
	return nil
}

func handleFeaturesCommand(m *model, _ []string) tea.Cmd {
	m.appendEntry(systemStyle.Render(formatFeatures(m.controls.Flags())))
	return nil
}

func handleSnapshotCommand(m *model, _ []string) tea.Cmd {
	last := m.runner.Last()
	if last == nil || last.Snapshot == nil {
		m.showToast("No snapshot yet", "Run /summarize or /guide first.", true)
		return nil
	}
	raw, err := json.MarshalIndent(last.Snapshot, "", "  ")
	if err != nil {
		m.showToast("Snapshot failed", err.Error(), true)
		return nil
	}
	m.panel = newPanel("Page snapshot: "+last.Snapshot.URL, highlightJSON(string(raw)), m.width, m.height)
	return nil
}

func handleUsageCommand(m *model, _ []string) tea.Cmd {
	u := m.controls.Usage()
	if u == nil {
		m.showToast("Usage unavailable", "Settings are not loaded.", true)
		return nil
	}
	m.appendEntry(systemStyle.Render(fmt.Sprintf(
		"  Summaries: %d • Guides: %d • Questions: %d\n  Tokens: %s in, %s out, %s total",
		u.Summaries, u.Guides, u.Navigations,
		formatTokenCount(u.PromptTokens), formatTokenCount(u.CompletionTokens), formatTokenCount(u.TotalTokens),
	)))
	return nil
}

func handleCopyCommand(m *model, _ []string) tea.Cmd {
	m.copyLastMessage()
	return nil
}

func handleHelpCommand(m *model, _ []string) tea.Cmd {
	m.panel = newPanel("Beacon Help", helpText(), m.width, m.height)
	return nil
}

func handleQuitCommand(_ *model, _ []string) tea.Cmd {
	return tea.Quit
}

// copyLastMessage puts the last reply on the system clipboard.
func (m *model) copyLastMessage() {
	if m.lastMessage == "" {
		m.showToast("Nothing to copy", "No reply yet.", true)
		return
	}
	if err := clipboardWriteAll(m.lastMessage); err != nil {
		m.showToast("Copy failed", err.Error(), true)
		return
	}
	m.showToast("Copied last reply", "", false)
}

func formatFeatures(f config.FeatureFlags) string {
	values := map[string]bool{
		config.FeatureVoiceInput:    f.VoiceInput,
		config.FeatureVoiceOutput:   f.VoiceOutput,
		config.FeatureCustomTTS:     f.CustomTTS,
		config.FeatureVisualArrows:  f.VisualArrows,
		config.FeatureAutoSummarize: f.AutoSummarize,
	}
	var sb strings.Builder
	sb.WriteString("  Features:")
	for _, name := range config.FeatureNames() {
		fmt.Fprintf(&sb, "\n    %-15s %s", name, onOff(values[name]))
	}
	return sb.String()
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("Type a question to find something on the page, for example\n")
	sb.WriteString("\"where do I sign in?\". Beacon points at the element and\n")
	sb.WriteString("explains what to do.\n\nCommands:\n")
	for _, c := range sortedCommands() {
		name := "/" + c.Name
		if c.Usage != "" {
			name += " " + c.Usage
		}
		fmt.Fprintf(&sb, "  %-20s %s\n", name, c.Description)
	}
	sb.WriteString("\nFeatures for /toggle: ")
	sb.WriteString(strings.Join(config.FeatureNames(), ", "))
	sb.WriteString("\n\nKeys:\n")
	sb.WriteString("  Enter     send\n")
	sb.WriteString("  Esc       clear the highlight\n")
	sb.WriteString("  Ctrl+Y    copy the last reply\n")
	sb.WriteString("  Ctrl+C    exit\n")
	return sb.String()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
