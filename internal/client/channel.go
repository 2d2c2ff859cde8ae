package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"wardan/internal/logging"
	"wardan/internal/types"
)

var ErrChannelClosed = errors.New("channel closed")

const writeTimeout = 5 * time.Second

type ChannelEventKind int

const (
	ChannelFrame ChannelEventKind = iota
	ChannelError
	ChannelClosed
)

// ChannelEvent is one thing that happened on the persistent channel. Frames
// carry the raw payload; the agent core decides how to interpret it.
type ChannelEvent struct {
	Kind ChannelEventKind
	Data []byte
	Err  error
}

type DialOptions struct {
	Header  http.Header
	Timeout time.Duration
	Logger  logging.Logger
}

// Channel is the long-lived bidirectional connection to the agent.
type Channel struct {
	conn    *websocket.Conn
	url     string
	logger  logging.Logger
	events  chan ChannelEvent
	writeMu sync.Mutex
	closing atomic.Bool
	done    chan struct{}
}

func Dial(ctx context.Context, url string, opts DialOptions) (*Channel, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	dialer := *websocket.DefaultDialer
	if opts.Timeout > 0 {
		dialer.HandshakeTimeout = opts.Timeout
	}
	conn, resp, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			logger.Warn("channel dial rejected", logging.F("url", url), logging.F("status", resp.StatusCode))
			return nil, decodeAPIError(resp)
		}
		logger.Warn("channel dial failed", logging.F("url", url), logging.Err(err))
		return nil, err
	}
	ch := &Channel{
		conn:   conn,
		url:    url,
		logger: logger,
		events: make(chan ChannelEvent, 64),
		done:   make(chan struct{}),
	}
	logger.Info("channel open", logging.F("url", url))
	go ch.readLoop()
	return ch, nil
}

// Events yields frames and lifecycle events. It is closed after the final
// ChannelClosed event.
func (ch *Channel) Events() <-chan ChannelEvent {
	return ch.events
}

// Healthy reports whether the channel can still carry an utterance.
func (ch *Channel) Healthy() bool {
	if ch == nil || ch.closing.Load() {
		return false
	}
	select {
	case <-ch.done:
		return false
	default:
		return true
	}
}

func (ch *Channel) Send(req types.QueryRequest) error {
	if !ch.Healthy() {
		return ErrChannelClosed
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	_ = ch.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ch.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		ch.logger.Warn("channel write failed", logging.Err(err))
		return err
	}
	return nil
}

// Close shuts the connection down immediately; queued frames are not drained.
func (ch *Channel) Close() error {
	if ch == nil || !ch.closing.CompareAndSwap(false, true) {
		return nil
	}
	ch.writeMu.Lock()
	_ = ch.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	ch.writeMu.Unlock()
	return ch.conn.Close()
}

func (ch *Channel) readLoop() {
	defer close(ch.events)
	defer close(ch.done)
	defer ch.conn.Close()

	start := time.Now()
	count := 0
	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			if !ch.closing.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ch.logger.Warn("channel read failed", logging.Err(err))
				ch.events <- ChannelEvent{Kind: ChannelError, Err: err}
			}
			ch.logger.Info("channel closed", logging.F("frames", count), logging.F("dur", time.Since(start)))
			ch.events <- ChannelEvent{Kind: ChannelClosed}
			return
		}
		count++
		if count == 1 {
			ch.logger.Debug("channel first frame", logging.F("bytes", len(data)))
		}
		ch.events <- ChannelEvent{Kind: ChannelFrame, Data: data}
	}
}
