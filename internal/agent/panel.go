// Package agent is the conversational core of the dashboard's agent panel:
// it frames utterances, picks a transport, classifies replies and drives the
// confirmation and disambiguation follow-ups.
package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"wardan/internal/logging"
	"wardan/internal/types"
)

var ErrEmptyUtterance = errors.New("empty utterance")

type SessionSource interface {
	ID() string
}

type Options struct {
	Session       SessionSource
	OneShot       OneShot
	Dial          Dialer
	Auth          Authenticator
	DefaultEntity string
	Timeout       time.Duration
	DialTimeout   time.Duration
	Recorder      Recorder
	Logger        logging.Logger
}

// Panel is the session-scoped context of one conversation. Its methods must
// be called from a single goroutine; transport outcomes are read from Events
// and fed back through Handle.
type Panel struct {
	session     SessionSource
	log         *Log
	machine     *Machine
	interpreter *Interpreter
	selector    *Selector
	recorder    Recorder
	logger      logging.Logger
}

func NewPanel(opts Options) *Panel {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	log := NewLog()
	machine := NewMachine(opts.DefaultEntity)
	return &Panel{
		session:     opts.Session,
		log:         log,
		machine:     machine,
		interpreter: NewInterpreter(log, machine, recorder, logger),
		selector: NewSelector(SelectorOptions{
			OneShot:     opts.OneShot,
			Dial:        opts.Dial,
			Auth:        opts.Auth,
			Timeout:     opts.Timeout,
			DialTimeout: opts.DialTimeout,
			Recorder:    recorder,
			Logger:      logger,
		}),
		recorder: recorder,
		logger:   logger,
	}
}

// Submit echoes the utterance into the log and hands it to the selector.
func (p *Panel) Submit(utterance string) (Transport, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return TransportNone, ErrEmptyUtterance
	}
	return p.dispatch(utterance, nil), nil
}

func (p *Panel) dispatch(utterance string, intent *types.Intent) Transport {
	p.interpreter.Render(RoleUser, utterance, nil)
	req := types.QueryRequest{Query: utterance, SessionID: p.SessionID(), Intent: intent}
	transport, notices := p.selector.Send(req)
	p.logger.Debug("utterance sent", logging.F("transport", string(transport)), logging.F("intent", intent != nil))
	for _, notice := range notices {
		p.Handle(notice)
	}
	return transport
}

// Connect opens the persistent channel in the background. It reports false
// when a channel is already held or being opened.
func (p *Panel) Connect() bool {
	return p.selector.Connect()
}

func (p *Panel) Disconnect() error {
	return p.selector.Disconnect()
}

func (p *Panel) Confirm() error {
	res, err := p.machine.Confirm()
	if err != nil {
		return err
	}
	p.resolve(res)
	return nil
}

func (p *Panel) Cancel() error {
	res, err := p.machine.Cancel()
	if err != nil {
		return err
	}
	p.resolve(res)
	return nil
}

func (p *Panel) Select(index int) error {
	res, err := p.machine.Select(index)
	if err != nil {
		return err
	}
	p.resolve(res)
	return nil
}

// resolve runs after the machine cleared the pending action, so the prompt's
// controls are already gone when the follow-up is dispatched.
func (p *Panel) resolve(res Resolution) {
	p.recorder.Resolution(string(res.Kind), res.Outcome)
	p.logger.Info("pending action resolved",
		logging.F("kind", string(res.Kind)),
		logging.F("outcome", res.Outcome),
		logging.F("retracted", res.Retracted),
	)
	p.interpreter.Render(RoleUser, res.Acknowledgement, nil)
	if res.FollowUp == nil {
		return
	}
	intent := res.FollowUp.Intent
	p.dispatch(res.FollowUp.Utterance, &intent)
}

// Handle applies one transport event to the log.
func (p *Panel) Handle(ev Event) {
	switch ev.Kind {
	case EventReply:
		p.interpreter.RenderKind(RoleAgent, ev.Summary, ev.Data, ev.DataKind)
	case EventRaw:
		p.interpreter.Render(RoleAgent, ev.Text, nil)
	case EventError:
		p.interpreter.Render(RoleError, ev.Text, nil)
	case EventSystem:
		p.interpreter.Render(RoleSystem, ev.Text, nil)
	case EventChannelOpened:
		if out, ok := p.selector.adopt(ev); ok {
			p.Handle(out)
		}
	case EventChannelClosed:
		p.selector.released(ev.channel)
		p.interpreter.Render(RoleSystem, ev.Text, nil)
	}
}

func (p *Panel) Events() <-chan Event {
	return p.selector.Events()
}

// Next waits for one transport event and applies it.
func (p *Panel) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-p.Events():
		p.Handle(ev)
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (p *Panel) Messages() []Message {
	return p.log.Messages()
}

func (p *Panel) Views() []View {
	views := make([]View, 0, p.log.Len())
	for _, msg := range p.log.Messages() {
		views = append(views, BuildView(msg, p.machine.Live(msg.ID)))
	}
	return views
}

func (p *Panel) View(id string) (View, bool) {
	msg, ok := p.log.Get(id)
	if !ok {
		return View{}, false
	}
	return BuildView(msg, p.machine.Live(id)), true
}

func (p *Panel) State() State {
	return p.machine.State()
}

func (p *Panel) Pending() (PendingAction, bool) {
	return p.machine.Pending()
}

func (p *Panel) Transport() Transport {
	return p.selector.CurrentTransport()
}

func (p *Panel) Connected() bool {
	return p.selector.Connected()
}

func (p *Panel) SessionID() string {
	if p.session == nil {
		return ""
	}
	return p.session.ID()
}

func (p *Panel) Close() {
	p.selector.Close()
}
