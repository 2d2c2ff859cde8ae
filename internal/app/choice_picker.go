package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const choicePickerMaxVisible = 9

// ChoicePicker lists disambiguation candidates. Digits pick directly; the
// arrows move the cursor.
type ChoicePicker struct {
	active    bool
	messageID string
	title     string
	labels    []string
	cursor    int
	offset    int
}

func NewChoicePicker() *ChoicePicker {
	return &ChoicePicker{}
}

func (p *ChoicePicker) IsOpen() bool {
	return p != nil && p.active
}

func (p *ChoicePicker) MessageID() string {
	if p == nil {
		return ""
	}
	return p.messageID
}

func (p *ChoicePicker) Open(messageID, title string, labels []string) {
	if p == nil {
		return
	}
	p.active = len(labels) > 0
	p.messageID = messageID
	p.title = strings.TrimSpace(title)
	p.labels = append([]string(nil), labels...)
	p.cursor = 0
	p.offset = 0
}

func (p *ChoicePicker) Close() {
	if p == nil {
		return
	}
	*p = ChoicePicker{}
}

// HandleKey returns whether the key was consumed and the chosen index, or -1.
func (p *ChoicePicker) HandleKey(msg tea.KeyMsg) (bool, int) {
	if p == nil || !p.active {
		return false, -1
	}
	key := msg.String()
	switch key {
	case "up", "k", "shift+tab":
		p.move(-1)
		return true, -1
	case "down", "j", "tab":
		p.move(1)
		return true, -1
	case "home":
		p.cursor = 0
		p.clamp()
		return true, -1
	case "end":
		p.cursor = len(p.labels) - 1
		p.clamp()
		return true, -1
	case "enter":
		return true, p.cursor
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		index := int(key[0]-'1') + p.offset
		if index < len(p.labels) {
			return true, index
		}
		return true, -1
	}
	return false, -1
}

func (p *ChoicePicker) move(delta int) {
	if len(p.labels) == 0 {
		return
	}
	p.cursor = (p.cursor + delta + len(p.labels)) % len(p.labels)
	p.clamp()
}

func (p *ChoicePicker) clamp() {
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+choicePickerMaxVisible {
		p.offset = p.cursor - choicePickerMaxVisible + 1
	}
}

func (p *ChoicePicker) View(maxWidth int) string {
	if p == nil || !p.active {
		return ""
	}
	width := maxWidth
	if width <= 0 || width > confirmMaxWidth+20 {
		width = confirmMaxWidth + 20
	}
	contentWidth := max(1, width-4)
	title := p.title
	if title == "" {
		title = "Choose one"
	}
	lines := []string{promptHeaderStyle.Render(" " + padToWidth(truncateToWidth(title, contentWidth), contentWidth) + " ")}
	end := min(len(p.labels), p.offset+choicePickerMaxVisible)
	for i := p.offset; i < end; i++ {
		line := fmt.Sprintf("%d. %s", i-p.offset+1, p.labels[i])
		line = padToWidth(truncateToWidth(line, contentWidth), contentWidth)
		if i == p.cursor {
			lines = append(lines, " "+selectedStyle.Render(line)+" ")
		} else {
			lines = append(lines, " "+menuDropStyle.Render(line)+" ")
		}
	}
	if len(p.labels) > choicePickerMaxVisible {
		more := fmt.Sprintf("%d–%d of %d", p.offset+1, end, len(p.labels))
		lines = append(lines, " "+helpStyle.Render(padToWidth(more, contentWidth))+" ")
	}
	return choiceDialogBorderStyle.Render(strings.Join(lines, "\n"))
}
