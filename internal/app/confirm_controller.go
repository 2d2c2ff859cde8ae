package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"
)

type confirmChoice int

const (
	confirmChoiceNone confirmChoice = iota
	confirmChoiceConfirm
	confirmChoiceCancel
)

const (
	confirmMaxWidth = 60
	confirmMinWidth = 24
)

// ConfirmController is the dialog for a pending confirmation. It is bound to
// the prompt message it was opened for.
type ConfirmController struct {
	active       bool
	messageID    string
	title        string
	message      string
	confirmLabel string
	cancelLabel  string
	selected     int
}

func NewConfirmController() *ConfirmController {
	return &ConfirmController{}
}

func (c *ConfirmController) IsOpen() bool {
	return c != nil && c.active
}

func (c *ConfirmController) MessageID() string {
	if c == nil {
		return ""
	}
	return c.messageID
}

func (c *ConfirmController) Open(messageID, title, message, confirmLabel, cancelLabel string) {
	if c == nil {
		return
	}
	c.active = true
	c.messageID = messageID
	c.title = strings.TrimSpace(title)
	c.message = strings.TrimSpace(message)
	if confirmLabel == "" {
		confirmLabel = "Confirm"
	}
	if cancelLabel == "" {
		cancelLabel = "Cancel"
	}
	c.confirmLabel = confirmLabel
	c.cancelLabel = cancelLabel
	c.selected = 0
}

func (c *ConfirmController) Close() {
	if c == nil {
		return
	}
	*c = ConfirmController{}
}

func (c *ConfirmController) HandleKey(msg tea.KeyMsg) (bool, confirmChoice) {
	if c == nil || !c.active {
		return false, confirmChoiceNone
	}
	switch msg.String() {
	case "esc", "n":
		return true, confirmChoiceCancel
	case "left", "h":
		c.selected = 0
		return true, confirmChoiceNone
	case "right", "l":
		c.selected = 1
		return true, confirmChoiceNone
	case "tab", "shift+tab":
		c.selected = 1 - c.selected
		return true, confirmChoiceNone
	case "y":
		return true, confirmChoiceConfirm
	case "enter":
		if c.selected == 0 {
			return true, confirmChoiceConfirm
		}
		return true, confirmChoiceCancel
	}
	return false, confirmChoiceNone
}

func (c *ConfirmController) View(maxWidth int) string {
	if c == nil || !c.active {
		return ""
	}
	width := c.width(maxWidth)
	contentWidth := max(1, width-4)
	title := c.title
	if title == "" {
		title = "Confirm"
	}
	lines := []string{promptHeaderStyle.Render(" " + padToWidth(truncateToWidth(title, contentWidth), contentWidth) + " ")}
	if c.message != "" {
		wrapped := xansi.Hardwrap(c.message, contentWidth, true)
		for _, line := range strings.Split(wrapped, "\n") {
			lines = append(lines, menuDropStyle.Render(" "+padToWidth(truncateToWidth(line, contentWidth), contentWidth)+" "))
		}
	}

	leftWidth := contentWidth / 2
	rightWidth := contentWidth - leftWidth
	confirm := padToWidth(truncateToWidth("[y] "+c.confirmLabel, leftWidth), leftWidth)
	cancel := padToWidth(truncateToWidth("[n] "+c.cancelLabel, rightWidth), rightWidth)
	if c.selected == 0 {
		confirm = selectedStyle.Render(confirm)
		cancel = menuDropStyle.Render(cancel)
	} else {
		confirm = menuDropStyle.Render(confirm)
		cancel = selectedStyle.Render(cancel)
	}
	lines = append(lines, " "+confirm+cancel+" ")

	block := confirmDialogBorderStyle.Render(strings.Join(lines, "\n"))
	if maxWidth > width {
		block = indentBlock(block, (maxWidth-width)/2)
	}
	return block
}

func (c *ConfirmController) width(maxWidth int) int {
	content := max(xansi.StringWidth(c.title), xansi.StringWidth(c.message))
	buttons := xansi.StringWidth(c.confirmLabel) + xansi.StringWidth(c.cancelLabel) + 10
	width := max(confirmMinWidth, max(content, buttons)+4)
	width = min(width, confirmMaxWidth)
	if maxWidth > 0 && width > maxWidth {
		width = maxWidth
	}
	return width
}
