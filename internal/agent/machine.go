package agent

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"wardan/internal/types"
)

var (
	ErrNoPendingAction  = errors.New("no pending action")
	ErrPendingMismatch  = errors.New("pending action is of a different kind")
	ErrChoiceOutOfRange = errors.New("choice out of range")
)

type State int

const (
	StateIdle State = iota
	StateAwaitingConfirmation
	StateAwaitingDisambiguation
)

func (s State) String() string {
	switch s {
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateAwaitingDisambiguation:
		return "awaiting_disambiguation"
	default:
		return "idle"
	}
}

// PendingAction is an armed, unresolved actionable reply. MessageID names the
// log entry whose controls belong to it.
type PendingAction struct {
	Kind              types.IntentKind
	OriginalUtterance string
	MessageID         string
	Payload           Payload
}

// Resolution is what the panel must do after the user resolved the pending
// action. FollowUp is nil when nothing is dispatched.
type Resolution struct {
	Kind            types.IntentKind
	Outcome         string
	Retracted       string
	Acknowledgement string
	FollowUp        *FollowUp
}

const (
	OutcomeConfirmed  = "confirmed"
	OutcomeCancelled  = "cancelled"
	OutcomeSelected   = "selected"
	OutcomeSuperseded = "superseded"
)

// Machine holds at most one PendingAction.
type Machine struct {
	pending       *PendingAction
	defaultEntity string
}

func NewMachine(defaultEntity string) *Machine {
	entity := strings.ToLower(strings.TrimSpace(defaultEntity))
	if entity == "" {
		entity = "student"
	}
	return &Machine{defaultEntity: entity}
}

func (m *Machine) State() State {
	if m.pending == nil {
		return StateIdle
	}
	if m.pending.Kind == types.IntentConfirmation {
		return StateAwaitingConfirmation
	}
	return StateAwaitingDisambiguation
}

func (m *Machine) Pending() (PendingAction, bool) {
	if m.pending == nil {
		return PendingAction{}, false
	}
	return *m.pending, true
}

// Live reports whether messageID carries the prompt of the current pending
// action. Only a live prompt shows controls.
func (m *Machine) Live(messageID string) bool {
	return m.pending != nil && messageID != "" && m.pending.MessageID == messageID
}

// Arm installs action, superseding any prior one. The superseded action is
// returned so its prompt can be reported as retracted.
func (m *Machine) Arm(action PendingAction) (PendingAction, bool) {
	var previous PendingAction
	hadPrevious := m.pending != nil
	if hadPrevious {
		previous = *m.pending
	}
	m.pending = &action
	return previous, hadPrevious
}

func (m *Machine) Confirm() (Resolution, error) {
	action, err := m.take(types.IntentConfirmation)
	if err != nil {
		return Resolution{}, err
	}
	req := confirmationOf(action)
	verb, entity := confirmVerbEntity(action, req, m.defaultEntity)
	ack := "Confirmed: " + capitalize(action.OriginalUtterance)
	if req.TargetID != "" {
		ack = fmt.Sprintf("Confirmed: %s %s ID %s", capitalize(verb), entity, req.TargetID)
	}
	res := Resolution{
		Kind:            action.Kind,
		Outcome:         OutcomeConfirmed,
		Retracted:       action.MessageID,
		Acknowledgement: strings.TrimSpace(ack),
	}
	if follow, ok := confirmFollowUp(action, req, m.defaultEntity); ok {
		res.FollowUp = &follow
	}
	return res, nil
}

func (m *Machine) Cancel() (Resolution, error) {
	action, err := m.take(types.IntentConfirmation)
	if err != nil {
		return Resolution{}, err
	}
	verb, _ := confirmVerbEntity(action, confirmationOf(action), m.defaultEntity)
	return Resolution{
		Kind:            action.Kind,
		Outcome:         OutcomeCancelled,
		Retracted:       action.MessageID,
		Acknowledgement: fmt.Sprintf("Cancelled: %s operation cancelled", capitalize(verb)),
	}, nil
}

// Select resolves a disambiguation with the candidate at index. An index out
// of range leaves the action armed.
func (m *Machine) Select(index int) (Resolution, error) {
	if m.pending == nil {
		return Resolution{}, ErrNoPendingAction
	}
	if m.pending.Kind != types.IntentDisambiguation {
		return Resolution{}, ErrPendingMismatch
	}
	if index < 0 || index >= len(m.pending.Payload.Choices) {
		return Resolution{}, fmt.Errorf("%w: %d of %d", ErrChoiceOutOfRange, index, len(m.pending.Payload.Choices))
	}
	action := *m.pending
	m.pending = nil

	choice := action.Payload.Choices[index]
	ack := "Selected: " + choice.Label
	if choice.Name != "" {
		ack = fmt.Sprintf("Selected: %s (ID: %s)", choice.Name, choice.ID)
	}
	follow := selectFollowUp(action, choice, m.defaultEntity)
	return Resolution{
		Kind:            action.Kind,
		Outcome:         OutcomeSelected,
		Retracted:       action.MessageID,
		Acknowledgement: ack,
		FollowUp:        &follow,
	}, nil
}

func (m *Machine) take(kind types.IntentKind) (PendingAction, error) {
	if m.pending == nil {
		return PendingAction{}, ErrNoPendingAction
	}
	if m.pending.Kind != kind {
		return PendingAction{}, ErrPendingMismatch
	}
	action := *m.pending
	m.pending = nil
	return action, nil
}

func confirmationOf(action PendingAction) ConfirmationRequest {
	if action.Payload.Confirmation == nil {
		return ConfirmationRequest{}
	}
	return *action.Payload.Confirmation
}

func intentKindFor(kind Kind) (types.IntentKind, bool) {
	switch kind {
	case KindConfirmation:
		return types.IntentConfirmation, true
	case KindDisambiguation:
		return types.IntentDisambiguation, true
	default:
		return "", false
	}
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
