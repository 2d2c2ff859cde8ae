package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersByLabel(t *testing.T) {
	m := New()
	m.Utterance("oneshot")
	m.Utterance("oneshot")
	m.Utterance("channel")
	m.Reply("rows")
	m.Failure("auth")
	m.Resolution("confirmation", "confirmed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.utterances.WithLabelValues("oneshot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.utterances.WithLabelValues("channel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replies.WithLabelValues("rows")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("auth")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("confirmation", "confirmed")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Reply("record")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wardan_replies_total{shape="record"} 1`)
}

func TestServeStopsWithContext(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	addr, done, err := m.Serve(ctx, "127.0.0.1:0", nil)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), "go_goroutines"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestServeRequiresAddress(t *testing.T) {
	_, _, err := New().Serve(context.Background(), " ", nil)
	assert.Error(t, err)
}
