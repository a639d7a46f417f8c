package tui

import (
	"fmt"

	"github.com/entrhq/beacon/pkg/types"
)

// handleEvent updates the UI from one orchestrator event.
//
//nolint:gocyclo
func (m *model) handleEvent(event *types.Event) {
	switch event.Type {
	case types.EventTypeCommandStart:
		kind, _ := event.Metadata["kind"].(string)
		m.busy = true
		m.lastCommand = kind
		m.loadingMsg = loadingMessage(types.InputType(kind))

	case types.EventTypeSnapshotCaptured:
		elements, _ := event.Metadata["elements"].(int)
		debugLog.Debugf("[%s] snapshot of %s with %d elements", event.CommandID, event.Content, elements)
		m.loadingMsg = fmt.Sprintf("Read %d elements...", elements)

	case types.EventTypeAPICallStart:
		m.loadingMsg = "Thinking..."

	case types.EventTypeMessage:
		m.lastMessage = event.Content
		m.appendEntry(formatEntry("  ", event.Content, replyStyle, m.width))

	case types.EventTypeClarification:
		m.lastMessage = event.Content
		m.appendEntry(formatEntry("  ? ", event.Content, questionStyle, m.width))

	case types.EventTypeHighlight:
		m.handleHighlight(event.Highlight)

	case types.EventTypeHighlightCleared:
		m.appendEntry(systemStyle.Render("  Highlight cleared"))

	case types.EventTypeSpeechStart:
		m.speaking = true

	case types.EventTypeSpeechEnd:
		m.speaking = false
		if event.Error != nil {
			debugLog.Warnf("[%s] speech failed: %v", event.CommandID, event.Error)
		}

	case types.EventTypeTokenUsage:
		if u := event.TokenUsage; u != nil {
			m.totalPromptTokens += u.PromptTokens
			m.totalCompletionTokens += u.CompletionTokens
			m.totalTokens += u.TotalTokens
		}

	case types.EventTypeUpdateBusy:
		m.busy = event.IsBusy
		m.recalculateLayout()

	case types.EventTypeError:
		if event.Error != nil {
			debugLog.Errorf("[%s] %v", event.CommandID, event.Error)
		}
		m.lastMessage = event.Content
		m.appendEntry(formatEntry("  ✗ ", event.Content, errorStyle, m.width))

	case types.EventTypeCommandEnd:
		debugLog.Debugf("[%s] finished in %s", event.CommandID, event.Duration)
	}
}

func (m *model) handleHighlight(h *types.HighlightInfo) {
	if h == nil {
		return
	}
	if !h.Shown {
		debugLog.Debugf("Highlight of %s was not shown", h.Selector)
		return
	}
	label := h.Description
	if label == "" {
		label = h.Selector
	}
	m.appendEntry(formatEntry("  ➜ ", "Highlighted: "+label, highlightStyle, m.width))
}
