package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wardan/internal/agent"
	"wardan/internal/app/sanitizer"
	"wardan/internal/logging"
	"wardan/internal/types"
)

const (
	minViewportWidth  = 20
	minContentHeight  = 3
	toastDuration     = 4 * time.Second
	inputCharLimit    = 500
	sessionLabelWidth = 8
)

// Conversation is the agent panel as the terminal UI drives it.
type Conversation interface {
	Submit(utterance string) (agent.Transport, error)
	Connect() bool
	Disconnect() error
	Confirm() error
	Cancel() error
	Select(index int) error
	Handle(ev agent.Event)
	Events() <-chan agent.Event
	Views() []agent.View
	View(id string) (agent.View, bool)
	Pending() (agent.PendingAction, bool)
	Transport() agent.Transport
	Connected() bool
	SessionID() string
}

type Options struct {
	Markdown    bool
	AltScreen   bool
	AutoConnect bool
	Logger      logging.Logger
}

type Model struct {
	conv     Conversation
	logger   logging.Logger
	opts     Options
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *transcriptRenderer
	confirm  *ConfirmController
	picker   *ChoicePicker
	inputSan *sanitizer.Sanitizer

	width       int
	height      int
	focusPrompt bool
	awaiting    int
	toast       string
	toastError  bool
	toastAt     time.Time
	now         func() time.Time
}

func Run(conv Conversation, opts Options) error {
	model := NewModel(conv, opts)
	programOpts := []tea.ProgramOption{}
	if opts.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(&model, programOpts...)
	_, err := p.Run()
	return err
}

func NewModel(conv Conversation, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	input := textinput.New()
	input.Placeholder = "Ask the agent…"
	input.Prompt = "› "
	input.CharLimit = inputCharLimit
	input.Focus()

	loader := spinner.New()
	loader.Spinner = spinner.MiniDot
	loader.Style = activityStyle

	vp := viewport.New(minViewportWidth, minContentHeight)
	return Model{
		conv:     conv,
		logger:   logger,
		opts:     opts,
		viewport: vp,
		input:    input,
		spinner:  loader,
		renderer: newTranscriptRenderer(opts.Markdown),
		confirm:  NewConfirmController(),
		picker:   NewChoicePicker(),
		inputSan: sanitizer.New(sanitizer.SingleLineConfig()),
		now:      time.Now,
	}
}

func (m *Model) Init() tea.Cmd {
	if m.opts.AutoConnect {
		m.conv.Connect()
	}
	m.refresh(true)
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.conv.Events()), tickCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refresh(true)
		return m, nil
	case agentEventMsg:
		m.applyEvent(msg.event)
		return m, waitForEvent(m.conv.Events())
	case tickMsg:
		m.refresh(false)
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) applyEvent(ev agent.Event) {
	m.conv.Handle(ev)
	switch {
	case ev.Kind == agent.EventChannelClosed:
		m.awaiting = 0
	case ev.Settles() && m.awaiting > 0:
		m.awaiting--
	}
	m.logger.Debug("panel event", logging.F("kind", int(ev.Kind)), logging.F("transport", string(ev.Transport)))
	m.syncPrompt()
	m.refresh(true)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.focusPrompt {
		if handled := m.handlePromptKey(msg); handled {
			return m, nil
		}
	}
	switch msg.String() {
	case "enter":
		m.submit()
		return m, nil
	case "ctrl+o":
		if m.conv.Connect() {
			m.setToast("connecting…", false)
		} else {
			m.setToast("already connected", false)
		}
		return m, nil
	case "ctrl+x":
		if err := m.conv.Disconnect(); err != nil {
			if errors.Is(err, agent.ErrNotConnected) {
				m.setToast("not connected", true)
			} else {
				m.setToast("disconnect: "+err.Error(), true)
			}
		}
		return m, nil
	case "ctrl+y":
		m.copyWithStatus(lastAgentText(m.conv.Views()), "reply copied")
		return m, nil
	case "ctrl+p":
		if _, ok := m.conv.Pending(); ok {
			m.focusPrompt = true
			m.input.Blur()
			m.refresh(false)
		}
		return m, nil
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case "esc":
		m.input.Reset()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) bool {
	if m.confirm.IsOpen() {
		handled, choice := m.confirm.HandleKey(msg)
		switch choice {
		case confirmChoiceConfirm:
			m.resolve(m.conv.Confirm, true)
		case confirmChoiceCancel:
			m.resolve(m.conv.Cancel, false)
		}
		return handled
	}
	if m.picker.IsOpen() {
		if msg.String() == "esc" {
			m.blurPrompt()
			m.refresh(false)
			return true
		}
		handled, index := m.picker.HandleKey(msg)
		if index >= 0 {
			m.resolve(func() error { return m.conv.Select(index) }, true)
		}
		return handled
	}
	return false
}

func (m *Model) resolve(action func() error, dispatches bool) {
	before := len(m.conv.Views())
	if err := action(); err != nil {
		m.setToast(err.Error(), true)
	} else if dispatches && !immediateFailure(m.conv.Views()[before:]) {
		m.awaiting++
	}
	m.syncPrompt()
	m.refresh(true)
}

func (m *Model) submit() {
	text := strings.TrimSpace(m.inputSan.Sanitize(m.input.Value()))
	if text == "" {
		return
	}
	before := len(m.conv.Views())
	transport, err := m.conv.Submit(text)
	if err != nil {
		m.setToast(err.Error(), true)
		return
	}
	m.input.Reset()
	if !immediateFailure(m.conv.Views()[before:]) {
		m.awaiting++
	}
	m.logger.Info("utterance submitted", logging.F("transport", string(transport)))
	m.refresh(true)
}

// immediateFailure reports whether Submit or a resolution already produced the terminal
// error for this utterance, so no reply is on its way.
func immediateFailure(added []agent.View) bool {
	for _, view := range added {
		if view.Role == agent.RoleError && view.Summary != agent.FallbackNotice {
			return true
		}
	}
	return false
}

// syncPrompt opens the dialog that matches the pending action, if any.
func (m *Model) syncPrompt() {
	pending, ok := m.conv.Pending()
	if !ok {
		m.confirm.Close()
		m.picker.Close()
		m.blurPrompt()
		return
	}
	summary := ""
	if view, ok := m.conv.View(pending.MessageID); ok {
		summary = textSanitizer.Sanitize(view.Summary)
	}
	switch pending.Kind {
	case types.IntentConfirmation:
		m.picker.Close()
		if m.confirm.MessageID() != pending.MessageID {
			m.confirm.Open(pending.MessageID, "Confirm", summary, "Confirm", "Cancel")
			m.focusPromptNow()
		}
	case types.IntentDisambiguation:
		m.confirm.Close()
		if m.picker.MessageID() != pending.MessageID {
			labels := make([]string, 0, len(pending.Payload.Choices))
			for _, choice := range pending.Payload.Choices {
				labels = append(labels, cellSanitizer.Sanitize(choice.Label))
			}
			m.picker.Open(pending.MessageID, summary, labels)
			m.focusPromptNow()
		}
	}
}

func (m *Model) focusPromptNow() {
	m.focusPrompt = true
	m.input.Blur()
}

func (m *Model) blurPrompt() {
	m.focusPrompt = false
	m.input.Focus()
}

func (m *Model) refresh(follow bool) {
	width := max(minViewportWidth, m.width)
	m.viewport.Width = width
	m.viewport.Height = max(minContentHeight, m.height-m.chromeHeight())
	m.input.Width = max(1, width-4)
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderer.Render(m.conv.Views(), width))
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) chromeHeight() int {
	height := 4
	if prompt := m.promptView(); prompt != "" {
		height += lipgloss.Height(prompt)
	}
	return height
}

func (m *Model) promptView() string {
	if !m.focusPrompt {
		return ""
	}
	width := max(minViewportWidth, m.width)
	if m.confirm.IsOpen() {
		return m.confirm.View(width)
	}
	if m.picker.IsOpen() {
		return m.picker.View(width)
	}
	return ""
}

func (m *Model) setToast(text string, isError bool) {
	m.toast = text
	m.toastError = isError
	m.toastAt = m.now()
}

func (m *Model) View() string {
	width := max(minViewportWidth, m.width)
	lines := []string{m.headerView(width), m.viewport.View()}
	if prompt := m.promptView(); prompt != "" {
		lines = append(lines, prompt)
	}
	lines = append(lines, dividerStyle.Render(strings.Repeat("─", width)), m.input.View(), m.statusView(width))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) headerView(width int) string {
	session := m.conv.SessionID()
	if len(session) > sessionLabelWidth {
		session = session[:sessionLabelWidth]
	}
	transport := string(m.conv.Transport())
	if m.conv.Connected() && m.conv.Transport() != agent.TransportChannel {
		transport += " (channel down)"
	}
	right := statusStyle.Render(fmt.Sprintf("%s · session %s", transport, session))
	left := headerStyle.Render("Agent")
	gap := max(1, width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) statusView(width int) string {
	parts := []string{}
	if m.awaiting > 0 {
		parts = append(parts, m.spinner.View()+" waiting for the agent")
	}
	if m.toast != "" && m.now().Sub(m.toastAt) < toastDuration {
		if m.toastError {
			parts = append(parts, toastErrorStyle.Render(" "+m.toast+" "))
		} else {
			parts = append(parts, toastInfoStyle.Render(" "+m.toast+" "))
		}
	}
	help := "enter send · ctrl+o connect · ctrl+x disconnect · ctrl+y copy · ctrl+c quit"
	if m.focusPrompt {
		help = "y/n confirm · ↑/↓ or 1-9 choose · esc back"
	} else if _, ok := m.conv.Pending(); ok {
		help = "ctrl+p answer prompt · " + help
	}
	parts = append(parts, helpStyle.Render(help))
	return truncateToWidth(strings.Join(parts, "  "), width)
}

// lastAgentText is the clipboard form of the most recent agent reply: its
// summary followed by tab-separated rows or key: value lines.
func lastAgentText(views []agent.View) string {
	for i := len(views) - 1; i >= 0; i-- {
		view := views[i]
		if view.Role != agent.RoleAgent {
			continue
		}
		lines := []string{}
		if view.Summary != "" {
			lines = append(lines, view.Summary)
		}
		if view.Table != nil {
			lines = append(lines, strings.Join(view.Table.Columns, "\t"))
			for _, row := range view.Table.Rows {
				lines = append(lines, strings.Join(row, "\t"))
			}
		}
		for _, line := range view.Card {
			lines = append(lines, line.Key+": "+line.Value)
		}
		if view.Placeholder != "" {
			lines = append(lines, view.Placeholder)
		}
		return strings.Join(lines, "\n")
	}
	return ""
}
