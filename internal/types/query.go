package types

import "encoding/json"

type IntentKind string

const (
	IntentConfirmation   IntentKind = "confirmation"
	IntentDisambiguation IntentKind = "disambiguation"
)

// QueryRequest is the utterance envelope sent on both transports.
type QueryRequest struct {
	Query     string  `json:"query"`
	SessionID string  `json:"session_id"`
	Intent    *Intent `json:"intent,omitempty"`
}

// Intent travels next to a follow-up utterance so the backend does not have to
// re-parse the rewritten text to learn which record the user resolved.
type Intent struct {
	Kind              IntentKind `json:"kind"`
	OriginalUtterance string     `json:"original_utterance"`
	ResolvedID        string     `json:"resolved_id,omitempty"`
	Confirmed         bool       `json:"confirmed,omitempty"`
}

// QueryResponse is the one-shot success envelope.
type QueryResponse struct {
	Summary string          `json:"summary"`
	Data    json.RawMessage `json:"data,omitempty"`
	Kind    string          `json:"kind,omitempty"`
}

// ChannelFrame is an incoming frame on the persistent channel.
type ChannelFrame struct {
	Summary *string         `json:"summary,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Kind    string          `json:"kind,omitempty"`
}
