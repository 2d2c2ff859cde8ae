package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"wardan/internal/client"
	"wardan/internal/logging"
	"wardan/internal/types"
)

type Transport string

const (
	TransportChannel Transport = "channel"
	TransportOneShot Transport = "oneshot"
	TransportNone    Transport = "none"
)

const (
	msgLoginRequired = "Please log in to use the agent."
	msgUnauthorized  = "Unauthorized. Please log in."
	msgAgentError    = "Agent error"
	msgFallback      = "WS not connected. Using REST instead."
	msgConnected     = "WS connected"
	msgDisconnected  = "WS disconnected"
	msgEmptyReply    = "Agent returned an empty reply"
)

// FallbackNotice is the error line shown when a held channel cannot carry an
// utterance and the one-shot transport takes over.
const FallbackNotice = msgFallback

var ErrNotConnected = errors.New("not connected")

// OneShot performs a single authenticated request/response exchange.
type OneShot interface {
	Query(ctx context.Context, req types.QueryRequest) (*types.QueryResponse, error)
}

// Channel is the persistent connection as the selector uses it.
type Channel interface {
	Send(req types.QueryRequest) error
	Events() <-chan client.ChannelEvent
	Healthy() bool
	Close() error
}

type Dialer func(ctx context.Context) (Channel, error)

type Authenticator interface {
	IsAuthenticated() bool
}

type SelectorOptions struct {
	OneShot     OneShot
	Dial        Dialer
	Auth        Authenticator
	Timeout     time.Duration
	DialTimeout time.Duration
	Recorder    Recorder
	Logger      logging.Logger
}

// Selector decides per utterance whether the persistent channel or the
// one-shot call carries it. Only the selector opens and closes the channel.
// Its methods run on the panel goroutine; outcomes arrive as events.
type Selector struct {
	oneShot     OneShot
	dial        Dialer
	auth        Authenticator
	timeout     time.Duration
	dialTimeout time.Duration
	recorder    Recorder
	logger      logging.Logger

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	channel    Channel
	dialing    bool
	dialCancel context.CancelFunc
}

func NewSelector(opts SelectorOptions) *Selector {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Selector{
		oneShot:     opts.OneShot,
		dial:        opts.Dial,
		auth:        opts.Auth,
		timeout:     timeout,
		dialTimeout: dialTimeout,
		recorder:    recorder,
		logger:      logger,
		events:      make(chan Event, 64),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Selector) Events() <-chan Event {
	return s.events
}

// CurrentTransport is the transport the next utterance would use.
func (s *Selector) CurrentTransport() Transport {
	if s.channel != nil && s.channel.Healthy() {
		return TransportChannel
	}
	if s.oneShot == nil {
		return TransportNone
	}
	return TransportOneShot
}

// Connected reports whether a channel handle is held.
func (s *Selector) Connected() bool {
	return s.channel != nil
}

// Send dispatches req. Notices known before any network I/O are returned in
// order for the caller to render; the reply arrives later as an event.
func (s *Selector) Send(req types.QueryRequest) (Transport, []Event) {
	var notices []Event
	if s.channel != nil {
		if s.channel.Healthy() {
			err := s.channel.Send(req)
			if err == nil {
				s.recorder.Utterance(string(TransportChannel))
				return TransportChannel, nil
			}
			s.logger.Warn("channel send failed", logging.Err(err))
		}
		s.recorder.Failure(FailureChannel)
		notices = append(notices, Event{Kind: EventError, Transport: TransportChannel, Text: msgFallback, Failure: FailureChannel})
	}
	return s.sendOneShot(req, notices)
}

func (s *Selector) sendOneShot(req types.QueryRequest, notices []Event) (Transport, []Event) {
	if s.oneShot == nil {
		return TransportNone, append(notices, Event{Kind: EventError, Text: msgAgentError, Failure: FailureTransport})
	}
	if s.auth != nil && !s.auth.IsAuthenticated() {
		s.recorder.Failure(FailureAuth)
		return TransportOneShot, append(notices, Event{Kind: EventError, Transport: TransportOneShot, Text: msgLoginRequired, Failure: FailureAuth})
	}
	s.recorder.Utterance(string(TransportOneShot))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
		resp, err := s.oneShot.Query(ctx, req)
		if err != nil {
			s.post(s.oneShotFailure(err))
			return
		}
		if resp.Summary == "" && !hasData(resp.Data) {
			s.post(Event{Kind: EventSystem, Transport: TransportOneShot, Text: msgEmptyReply})
			return
		}
		s.post(Event{
			Kind:      EventReply,
			Transport: TransportOneShot,
			Summary:   resp.Summary,
			Data:      resp.Data,
			DataKind:  resp.Kind,
		})
	}()
	return TransportOneShot, notices
}

func (s *Selector) oneShotFailure(err error) Event {
	ev := Event{Kind: EventError, Transport: TransportOneShot, Failure: FailureTransport}
	if apiErr := client.AsAPIError(err); apiErr != nil {
		if apiErr.Unauthorized() {
			ev.Text = msgUnauthorized
			ev.Failure = FailureAuth
		} else {
			ev.Text = apiErr.Detail
			if ev.Text == "" {
				ev.Text = msgAgentError
			}
		}
	} else if errors.Is(err, client.ErrMalformedReply) {
		ev.Text = client.ErrMalformedReply.Error()
	} else {
		ev.Text = err.Error()
	}
	s.recorder.Failure(ev.Failure)
	s.logger.Warn("one-shot call failed", logging.F("failure", ev.Failure), logging.Err(err))
	return ev
}

// Connect starts opening the channel and reports whether it did. It is a
// no-op while a channel is held or being dialled.
func (s *Selector) Connect() bool {
	if s.channel != nil || s.dialing || s.dial == nil {
		return false
	}
	s.dialing = true
	ctx, cancel := context.WithTimeout(s.ctx, s.dialTimeout)
	s.dialCancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		ch, err := s.dial(ctx)
		if err != nil {
			s.logger.Warn("channel dial failed", logging.Err(err))
			s.post(Event{Kind: EventChannelOpened, Text: "WS error: " + err.Error(), Failure: FailureChannel})
			return
		}
		if !s.post(Event{Kind: EventChannelOpened, Transport: TransportChannel, channel: ch}) {
			_ = ch.Close()
		}
	}()
	return true
}

// adopt takes ownership of a dialled channel. A dial that finished after a
// disconnect request is closed right away.
func (s *Selector) adopt(ev Event) (Event, bool) {
	cancelled := !s.dialing
	s.dialing = false
	s.dialCancel = nil
	if ev.channel == nil {
		if cancelled {
			return Event{}, false
		}
		s.recorder.Failure(FailureChannel)
		return Event{Kind: EventSystem, Text: ev.Text, Failure: FailureChannel}, true
	}
	if cancelled || s.ctx.Err() != nil {
		_ = ev.channel.Close()
		s.drain(ev.channel)
		return Event{}, false
	}
	s.channel = ev.channel
	s.wg.Add(1)
	go s.pump(ev.channel)
	return Event{Kind: EventSystem, Transport: TransportChannel, Text: msgConnected}, true
}

// Disconnect closes the channel immediately without draining queued frames.
func (s *Selector) Disconnect() error {
	if s.dialing {
		s.dialing = false
		if s.dialCancel != nil {
			s.dialCancel()
		}
		return nil
	}
	if s.channel == nil {
		return ErrNotConnected
	}
	ch := s.channel
	s.channel = nil
	return ch.Close()
}

// released forgets ch if it is still the held channel.
func (s *Selector) released(ch Channel) {
	if s.channel == ch {
		s.channel = nil
	}
}

func (s *Selector) pump(ch Channel) {
	defer s.wg.Done()
	for ev := range ch.Events() {
		switch ev.Kind {
		case client.ChannelFrame:
			for _, out := range frameEvents(ev.Data) {
				s.post(out)
			}
		case client.ChannelError:
			s.recorder.Failure(FailureChannel)
			text := "WS error"
			if ev.Err != nil {
				text += ": " + ev.Err.Error()
			}
			s.post(Event{Kind: EventSystem, Transport: TransportChannel, Text: text, Failure: FailureChannel})
		case client.ChannelClosed:
			s.post(Event{Kind: EventChannelClosed, Transport: TransportChannel, Text: msgDisconnected, channel: ch})
		}
	}
}

func (s *Selector) drain(ch Channel) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for range ch.Events() {
		}
	}()
}

func (s *Selector) post(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Close tears down the channel and abandons in-flight calls.
func (s *Selector) Close() {
	if s.channel != nil {
		_ = s.channel.Close()
		s.channel = nil
	}
	if s.dialCancel != nil {
		s.dialCancel()
	}
	s.cancel()
	s.wg.Wait()
}
