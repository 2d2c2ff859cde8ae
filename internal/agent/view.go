package agent

import "time"

// NoResults is shown instead of a table for an empty rows payload.
const NoResults = "No results"

type ControlKind int

const (
	ControlConfirm ControlKind = iota
	ControlCancel
	ControlChoice
)

// Control is one selectable element of a live prompt. Index is the candidate
// position for ControlChoice.
type Control struct {
	Kind  ControlKind
	Label string
	Index int
}

type Table struct {
	Columns []string
	Rows    [][]string
}

type CardLine struct {
	Key   string
	Value string
}

// View is the renderer-neutral form of one log message.
type View struct {
	MessageID   string
	Role        Role
	Summary     string
	CreatedAt   time.Time
	Kind        Kind
	Table       *Table
	Card        []CardLine
	Placeholder string
	Controls    []Control
}

// BuildView renders msg. live tells whether msg is the prompt of the current
// pending action; retracted prompts keep their summary but lose controls.
func BuildView(msg Message, live bool) View {
	view := View{
		MessageID: msg.ID,
		Role:      msg.Role,
		Summary:   msg.Summary,
		CreatedAt: msg.CreatedAt,
		Kind:      msg.Payload.Kind,
	}
	payload := msg.Payload
	switch payload.Kind {
	case KindRows:
		if len(payload.Rows) == 0 {
			view.Placeholder = NoResults
			return view
		}
		view.Table = buildTable(payload.Rows)
	case KindRecord:
		view.Card = make([]CardLine, 0, len(payload.Record))
		for _, field := range payload.Record {
			view.Card = append(view.Card, CardLine{Key: field.Key, Value: FormatValue(field.Value)})
		}
	case KindConfirmation:
		if live {
			view.Controls = []Control{
				{Kind: ControlConfirm, Label: "Confirm"},
				{Kind: ControlCancel, Label: "Cancel"},
			}
		}
	case KindDisambiguation:
		if live {
			view.Controls = make([]Control, 0, len(payload.Choices))
			for i, choice := range payload.Choices {
				view.Controls = append(view.Controls, Control{Kind: ControlChoice, Label: choice.Label, Index: i})
			}
		}
	}
	return view
}

// buildTable takes its columns from the first record.
func buildTable(rows []Record) *Table {
	columns := rows[0].Keys()
	table := &Table{Columns: columns, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, column := range columns {
			cells[i] = row.Text(column)
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}
