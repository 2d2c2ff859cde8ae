package agent

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
	RoleError  Role = "error"
)

// Message is one entry of the conversation. It is never changed after it
// has been appended.
type Message struct {
	ID        string
	Role      Role
	Summary   string
	Payload   Payload
	CreatedAt time.Time
}

// Log is the append-only conversation of one panel.
type Log struct {
	messages []Message
	index    map[string]int
	now      func() time.Time
}

func NewLog() *Log {
	return &Log{index: map[string]int{}, now: time.Now}
}

// Append stores msg, assigning its id and timestamp, and returns the stored
// copy.
func (l *Log) Append(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = l.now()
	}
	l.index[msg.ID] = len(l.messages)
	l.messages = append(l.messages, msg)
	return msg
}

func (l *Log) Len() int {
	return len(l.messages)
}

func (l *Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) Get(id string) (Message, bool) {
	i, ok := l.index[id]
	if !ok {
		return Message{}, false
	}
	return l.messages[i], true
}

// LastUserUtterance returns the summary of the most recent user message.
func (l *Log) LastUserUtterance() (string, bool) {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role == RoleUser {
			return l.messages[i].Summary, true
		}
	}
	return "", false
}
