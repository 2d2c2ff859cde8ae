package agent

import (
	"encoding/json"

	"wardan/internal/logging"
)

// Interpreter turns incoming messages into log entries and arms the machine
// for actionable replies. Every message passes through it exactly once.
type Interpreter struct {
	log      *Log
	machine  *Machine
	recorder Recorder
	logger   logging.Logger
}

func NewInterpreter(log *Log, machine *Machine, recorder Recorder, logger logging.Logger) *Interpreter {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Interpreter{log: log, machine: machine, recorder: recorder, logger: logger}
}

func (in *Interpreter) Render(role Role, summary string, data json.RawMessage) Message {
	return in.RenderKind(role, summary, data, "")
}

// RenderKind is Render with the backend's explicit shape discriminator.
func (in *Interpreter) RenderKind(role Role, summary string, data json.RawMessage, kindHint string) Message {
	original, _ := in.log.LastUserUtterance()
	payload, err := Classify(data, kindHint)
	if err != nil {
		in.logger.Warn("reply data unreadable", logging.F("role", string(role)), logging.Err(err))
	}
	msg := in.log.Append(Message{Role: role, Summary: summary, Payload: payload})
	if role == RoleAgent {
		in.recorder.Reply(payload.Kind.String())
	}

	kind, ok := intentKindFor(payload.Kind)
	if !ok {
		return msg
	}
	previous, superseded := in.machine.Arm(PendingAction{
		Kind:              kind,
		OriginalUtterance: original,
		MessageID:         msg.ID,
		Payload:           payload,
	})
	if superseded {
		in.recorder.Resolution(string(previous.Kind), OutcomeSuperseded)
		in.logger.Info("pending action superseded",
			logging.F("previous", string(previous.Kind)),
			logging.F("retracted", previous.MessageID),
			logging.F("next", string(kind)),
		)
	}
	in.logger.Debug("pending action armed", logging.F("kind", string(kind)), logging.F("original", original))
	return msg
}
