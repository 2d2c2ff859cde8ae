package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind is the semantic shape of a reply's structured data.
type Kind int

const (
	KindNone Kind = iota
	KindRows
	KindRecord
	KindConfirmation
	KindDisambiguation
)

func (k Kind) String() string {
	switch k {
	case KindRows:
		return "rows"
	case KindRecord:
		return "record"
	case KindConfirmation:
		return "confirmation"
	case KindDisambiguation:
		return "disambiguation"
	default:
		return "none"
	}
}

// Actionable reports whether a payload of this kind needs the user to
// resolve it before the original command can proceed.
func (k Kind) Actionable() bool {
	return k == KindConfirmation || k == KindDisambiguation
}

type Field struct {
	Key   string
	Value any
}

// Record is a JSON object with its keys kept in document order. Values are
// nil, bool, string, json.Number, Record or []any.
type Record []Field

func (r Record) Get(key string) (any, bool) {
	for _, field := range r {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Text returns the display form of key, or "" when it is absent or null.
func (r Record) Text(key string) string {
	value, _ := r.Get(key)
	return FormatValue(value)
}

func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for _, field := range r {
		keys = append(keys, field.Key)
	}
	return keys
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Record) set(key string, value any) Record {
	for i := range r {
		if r[i].Key == key {
			r[i].Value = value
			return r
		}
	}
	return append(r, Field{Key: key, Value: value})
}

// ConfirmationRequest is the target of a destructive action the backend
// wants the user to approve.
type ConfirmationRequest struct {
	Record      Record
	TargetID    string
	TargetField string
	Entity      string
	Verb        string
	Name        string
}

// Choice is one disambiguation candidate.
type Choice struct {
	ID     string
	Name   string
	Label  string
	Record Record
}

// Payload is classified structured data. Exactly one of the shape fields is
// populated according to Kind.
type Payload struct {
	Kind         Kind
	Rows         []Record
	Record       Record
	Confirmation *ConfirmationRequest
	Choices      []Choice
}

// Classify decodes data and decides its shape. kindHint is the backend's
// explicit discriminator; when it is empty or does not fit the data the
// structural rules apply. Malformed JSON yields KindNone and an error.
func Classify(data json.RawMessage, kindHint string) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Payload{Kind: KindNone}, nil
	}
	value, err := decodeOrdered(trimmed)
	if err != nil {
		return Payload{Kind: KindNone}, fmt.Errorf("decode reply data: %w", err)
	}
	if payload, ok := classifyHinted(value, kindHint); ok {
		return payload, nil
	}
	return classifyStructural(value), nil
}

func classifyStructural(value any) Payload {
	switch v := value.(type) {
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(Record); ok {
				if confirm, _ := first.Get("confirm"); truthy(confirm) {
					return confirmationPayload(first)
				}
				if id, ok := first.Get("id"); ok && id != nil {
					return choicesPayload(v)
				}
			}
		}
		return rowsPayload(v)
	case Record:
		return Payload{Kind: KindRecord, Record: v}
	default:
		return Payload{Kind: KindNone}
	}
}

func classifyHinted(value any, hint string) (Payload, bool) {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "rows", "table":
		switch v := value.(type) {
		case []any:
			return rowsPayload(v), true
		case Record:
			return Payload{Kind: KindRows, Rows: []Record{v}}, true
		}
	case "record", "card":
		switch v := value.(type) {
		case Record:
			return Payload{Kind: KindRecord, Record: v}, true
		case []any:
			if len(v) == 1 {
				if rec, ok := v[0].(Record); ok {
					return Payload{Kind: KindRecord, Record: rec}, true
				}
			}
		}
	case "confirmation", "confirm":
		switch v := value.(type) {
		case Record:
			return confirmationPayload(v), true
		case []any:
			if len(v) > 0 {
				if rec, ok := v[0].(Record); ok {
					return confirmationPayload(rec), true
				}
			}
		}
	case "disambiguation", "choices":
		switch v := value.(type) {
		case []any:
			if len(v) > 0 && allIdentified(v) {
				return choicesPayload(v), true
			}
		case Record:
			if allIdentified([]any{v}) {
				return choicesPayload([]any{v}), true
			}
		}
	}
	return Payload{}, false
}

// allIdentified reports whether every item is an object with a non-null id.
func allIdentified(items []any) bool {
	for _, item := range items {
		rec, ok := item.(Record)
		if !ok {
			return false
		}
		if id, ok := rec.Get("id"); !ok || id == nil {
			return false
		}
	}
	return true
}

func rowsPayload(items []any) Payload {
	rows := make([]Record, 0, len(items))
	for _, item := range items {
		rows = append(rows, asRecord(item))
	}
	return Payload{Kind: KindRows, Rows: rows}
}

func confirmationPayload(rec Record) Payload {
	req := &ConfirmationRequest{Record: rec}
	if id, ok := rec.Get("id"); ok && id != nil {
		req.TargetID = FormatValue(id)
		req.TargetField = "id"
	} else {
		for _, field := range rec {
			if strings.HasSuffix(field.Key, "_id") && field.Value != nil {
				req.TargetID = FormatValue(field.Value)
				req.TargetField = field.Key
				req.Entity = strings.TrimSuffix(field.Key, "_id")
				break
			}
		}
	}
	if entity := rec.Text("entity"); entity != "" {
		req.Entity = entity
	}
	req.Verb = strings.ToLower(rec.Text("action"))
	req.Name = rec.Text("name")
	return Payload{Kind: KindConfirmation, Confirmation: req}
}

func choicesPayload(items []any) Payload {
	choices := make([]Choice, 0, len(items))
	for _, item := range items {
		rec := asRecord(item)
		choice := Choice{ID: rec.Text("id"), Name: rec.Text("name"), Record: rec}
		choice.Label = choiceLabel(choice)
		choices = append(choices, choice)
	}
	return Payload{Kind: KindDisambiguation, Choices: choices}
}

func choiceLabel(choice Choice) string {
	if choice.Name != "" {
		room := choice.Record.Text("room_no")
		if room == "" {
			room = "Unassigned"
		}
		return fmt.Sprintf("%s (ID: %s) - Room: %s", choice.Name, choice.ID, room)
	}
	parts := make([]string, 0, len(choice.Record))
	for _, field := range choice.Record {
		if field.Key == "id" || field.Value == nil {
			continue
		}
		parts = append(parts, field.Key+": "+FormatValue(field.Value))
	}
	if len(parts) == 0 {
		return "ID: " + choice.ID
	}
	return strings.Join(parts, ", ") + " (ID: " + choice.ID + ")"
}

func asRecord(item any) Record {
	if rec, ok := item.(Record); ok {
		return rec
	}
	return Record{{Key: "value", Value: item}}
}

// FormatValue renders a decoded JSON value as cell text.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(out)
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

func decodeOrdered(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	value, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after value")
	}
	return value, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		rec := Record{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", keyTok)
			}
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			rec = rec.set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return rec, nil
	case '[':
		items := []any{}
		for dec.More() {
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}
