package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wardan/internal/agent"
)

const timestampRefreshInterval = time.Minute

type agentEventMsg struct {
	event agent.Event
}

type tickMsg time.Time

// waitForEvent blocks on the conversation's event stream. Update re-issues
// it after every event so exactly one reader is outstanding.
func waitForEvent(events <-chan agent.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return agentEventMsg{event: ev}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(timestampRefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
