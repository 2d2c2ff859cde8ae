package agent

import (
	"encoding/json"

	"wardan/internal/types"
)

type EventKind int

const (
	// EventReply carries a structured agent reply.
	EventReply EventKind = iota
	// EventRaw carries a frame that was not a reply envelope.
	EventRaw
	EventError
	EventSystem
	EventChannelOpened
	EventChannelClosed
)

// Event is an outcome delivered to the panel's goroutine. Transports never
// touch the log directly.
type Event struct {
	Kind      EventKind
	Transport Transport
	Summary   string
	Data      json.RawMessage
	DataKind  string
	Text      string
	Failure   string

	channel Channel
}

// Settles reports whether ev ends a request that was waiting on a reply.
func (ev Event) Settles() bool {
	switch ev.Kind {
	case EventReply, EventRaw, EventError:
		return true
	case EventSystem:
		return ev.Transport == TransportOneShot
	}
	return false
}

// frameEvents maps one persistent-channel frame to its events. Anything that
// is not a JSON object with a summary, data or error is shown verbatim.
func frameEvents(data []byte) []Event {
	var frame types.ChannelFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return []Event{{Kind: EventRaw, Transport: TransportChannel, Text: string(data)}}
	}
	var events []Event
	summary := ""
	if frame.Summary != nil {
		summary = *frame.Summary
	}
	if summary != "" || hasData(frame.Data) {
		events = append(events, Event{
			Kind:      EventReply,
			Transport: TransportChannel,
			Summary:   summary,
			Data:      frame.Data,
			DataKind:  frame.Kind,
		})
	}
	if frame.Error != "" {
		events = append(events, Event{Kind: EventError, Transport: TransportChannel, Text: frame.Error, Failure: FailureTransport})
	}
	if len(events) == 0 {
		events = append(events, Event{Kind: EventRaw, Transport: TransportChannel, Text: string(data)})
	}
	return events
}

func hasData(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
