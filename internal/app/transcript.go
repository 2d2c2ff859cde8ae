package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"wardan/internal/agent"
	"wardan/internal/app/sanitizer"
)

const (
	maxCellWidth     = 32
	renderCacheSize  = 512
	bubbleFrameWidth = 4
)

var (
	textSanitizer = sanitizer.New(sanitizer.MultilineConfig())
	cellSanitizer = sanitizer.New(sanitizer.SingleLineConfig())
)

// transcriptRenderer turns views into terminal blocks, caching each block so
// a message is laid out once per width.
type transcriptRenderer struct {
	cache    *blockRenderCache
	markdown bool
	now      func() time.Time
}

func newTranscriptRenderer(markdown bool) *transcriptRenderer {
	return &transcriptRenderer{
		cache:    newBlockRenderCache(renderCacheSize),
		markdown: markdown,
		now:      time.Now,
	}
}

func (r *transcriptRenderer) Render(views []agent.View, width int) string {
	if len(views) == 0 {
		return helpStyle.Render("Ask the agent something, e.g. \"list rooms with free beds\".")
	}
	now := r.now()
	bucket := timestampBucket(now)
	blocks := make([]string, 0, len(views))
	for _, view := range views {
		key := blockRenderKey{messageID: view.MessageID, width: width, live: len(view.Controls) > 0, bucket: bucket}
		if block, ok := r.cache.Get(key); ok && view.MessageID != "" {
			blocks = append(blocks, block)
			continue
		}
		block := r.renderBlock(view, width, now)
		if view.MessageID != "" {
			r.cache.Set(key, block)
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n")
}

func (r *transcriptRenderer) renderBlock(view agent.View, width int, now time.Time) string {
	inner := max(10, width-bubbleFrameWidth)
	parts := []string{}
	if summary := r.renderSummary(view, inner); summary != "" {
		parts = append(parts, summary)
	}
	switch {
	case view.Placeholder != "":
		parts = append(parts, placeholderStyle.Render(view.Placeholder))
	case view.Table != nil:
		parts = append(parts, renderTable(view.Table, inner))
	case len(view.Card) > 0:
		parts = append(parts, renderCard(view.Card, inner))
	}
	if hint := controlsHint(view.Controls); hint != "" {
		parts = append(parts, hint)
	}

	style := bubbleStyle(view)
	body := style.Width(max(1, width-2)).Render(strings.Join(parts, "\n"))
	meta := chatMetaStyle.Render(roleLabel(view.Role) + " · " + formatTimestamp(view.CreatedAt, now))
	return meta + "\n" + body
}

func (r *transcriptRenderer) renderSummary(view agent.View, width int) string {
	summary := strings.TrimSpace(textSanitizer.Sanitize(view.Summary))
	if summary == "" {
		return ""
	}
	if r.markdown && view.Role == agent.RoleAgent {
		return renderMarkdown(summary, width)
	}
	return lipgloss.NewStyle().Width(width).Render(summary)
}

func renderTable(t *agent.Table, width int) string {
	columns := len(t.Columns)
	cellWidth := maxCellWidth
	if columns > 0 {
		cellWidth = min(maxCellWidth, max(4, (width-columns-1)/columns-2))
	}
	headers := make([]string, columns)
	for i, column := range t.Columns {
		headers[i] = truncateCell(cellSanitizer.Sanitize(column), cellWidth)
	}
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = truncateCell(cellSanitizer.Sanitize(cell), cellWidth)
		}
		rows = append(rows, cells)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		String()
}

func renderCard(lines []agent.CardLine, width int) string {
	keyWidth := 0
	for _, line := range lines {
		keyWidth = max(keyWidth, len([]rune(line.Key)))
	}
	keyWidth = min(keyWidth, width/3)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		key := padToWidth(truncateCell(cellSanitizer.Sanitize(line.Key), keyWidth), keyWidth)
		value := truncateToWidth(cellSanitizer.Sanitize(line.Value), max(1, width-keyWidth-2))
		out = append(out, cardKeyStyle.Render(key)+": "+value)
	}
	return strings.Join(out, "\n")
}

func controlsHint(controls []agent.Control) string {
	if len(controls) == 0 {
		return ""
	}
	parts := make([]string, 0, len(controls))
	for _, control := range controls {
		switch control.Kind {
		case agent.ControlConfirm:
			parts = append(parts, "[y] "+control.Label)
		case agent.ControlCancel:
			parts = append(parts, "[n] "+control.Label)
		case agent.ControlChoice:
			parts = append(parts, fmt.Sprintf("[%d] %s", control.Index+1, cellSanitizer.Sanitize(control.Label)))
		}
	}
	if controls[0].Kind == agent.ControlChoice {
		return controlHintStyle.Render(strings.Join(parts, "\n"))
	}
	return controlHintStyle.Render(strings.Join(parts, "  "))
}

func bubbleStyle(view agent.View) lipgloss.Style {
	switch view.Role {
	case agent.RoleUser:
		return userBubbleStyle
	case agent.RoleSystem:
		return systemBubbleStyle
	case agent.RoleError:
		return errorBubbleStyle
	}
	if view.Kind.Actionable() {
		return promptBubbleStyle
	}
	return agentBubbleStyle
}

func roleLabel(role agent.Role) string {
	switch role {
	case agent.RoleUser:
		return "You"
	case agent.RoleAgent:
		return "Agent"
	case agent.RoleSystem:
		return "System"
	case agent.RoleError:
		return "Error"
	default:
		return string(role)
	}
}
