package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wardan/internal/client"
	"wardan/internal/types"
)

type fixedSession string

func (s fixedSession) ID() string { return string(s) }

type fakeAuth struct{ ok atomic.Bool }

func authed() *fakeAuth {
	a := &fakeAuth{}
	a.ok.Store(true)
	return a
}

func (a *fakeAuth) IsAuthenticated() bool { return a.ok.Load() }

type fakeOneShot struct {
	mu       sync.Mutex
	requests []types.QueryRequest
	reply    func(req types.QueryRequest) (*types.QueryResponse, error)
}

func (f *fakeOneShot) Query(_ context.Context, req types.QueryRequest) (*types.QueryResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply := f.reply
	f.mu.Unlock()
	if reply == nil {
		return &types.QueryResponse{Summary: "ok"}, nil
	}
	return reply(req)
}

func (f *fakeOneShot) sent() []types.QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.QueryRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

type fakeChannel struct {
	mu      sync.Mutex
	sent    []types.QueryRequest
	sendErr error
	healthy atomic.Bool
	events  chan client.ChannelEvent
	once    sync.Once
}

func newFakeChannel() *fakeChannel {
	ch := &fakeChannel{events: make(chan client.ChannelEvent, 16)}
	ch.healthy.Store(true)
	return ch
}

func (c *fakeChannel) Send(req types.QueryRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, req)
	return nil
}

func (c *fakeChannel) Events() <-chan client.ChannelEvent { return c.events }

func (c *fakeChannel) Healthy() bool { return c.healthy.Load() }

func (c *fakeChannel) Close() error {
	c.once.Do(func() {
		c.healthy.Store(false)
		c.events <- client.ChannelEvent{Kind: client.ChannelClosed}
		close(c.events)
	})
	return nil
}

// drop simulates the server going away.
func (c *fakeChannel) drop() {
	c.once.Do(func() {
		c.healthy.Store(false)
		c.events <- client.ChannelEvent{Kind: client.ChannelError, Err: errors.New("connection reset")}
		c.events <- client.ChannelEvent{Kind: client.ChannelClosed}
		close(c.events)
	})
}

func (c *fakeChannel) frame(data string) {
	c.events <- client.ChannelEvent{Kind: client.ChannelFrame, Data: []byte(data)}
}

func (c *fakeChannel) requests() []types.QueryRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.QueryRequest, len(c.sent))
	copy(out, c.sent)
	return out
}

type countingRecorder struct {
	mu          sync.Mutex
	utterances  map[string]int
	replies     map[string]int
	failures    map[string]int
	resolutions map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		utterances:  map[string]int{},
		replies:     map[string]int{},
		failures:    map[string]int{},
		resolutions: map[string]int{},
	}
}

func (r *countingRecorder) Utterance(transport string) { r.inc(r.utterances, transport) }
func (r *countingRecorder) Reply(kind string)          { r.inc(r.replies, kind) }
func (r *countingRecorder) Failure(kind string)        { r.inc(r.failures, kind) }
func (r *countingRecorder) Resolution(kind, outcome string) {
	r.inc(r.resolutions, kind+"/"+outcome)
}

func (r *countingRecorder) inc(m map[string]int, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m[key]++
}

func (r *countingRecorder) get(m map[string]int, key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return m[key]
}

type harness struct {
	panel    *Panel
	oneShot  *fakeOneShot
	auth     *fakeAuth
	channel  *fakeChannel
	recorder *countingRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		oneShot:  &fakeOneShot{},
		auth:     authed(),
		channel:  newFakeChannel(),
		recorder: newCountingRecorder(),
	}
	h.panel = NewPanel(Options{
		Session: fixedSession("sess-1"),
		OneShot: h.oneShot,
		Dial: func(context.Context) (Channel, error) {
			return h.channel, nil
		},
		Auth:          h.auth,
		DefaultEntity: "student",
		Timeout:       time.Second,
		Recorder:      h.recorder,
	})
	t.Cleanup(h.panel.Close)
	return h
}

// step applies the next transport event.
func (h *harness) step(t *testing.T) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := h.panel.Next(ctx)
	require.NoError(t, err, "waiting for transport event")
	return ev
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	require.True(t, h.panel.Connect())
	ev := h.step(t)
	require.Equal(t, EventChannelOpened, ev.Kind)
	require.Equal(t, TransportChannel, h.panel.Transport())
}

func (h *harness) last(t *testing.T) Message {
	t.Helper()
	msgs := h.panel.Messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}
