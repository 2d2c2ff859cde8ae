package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogfmtLineCarriesInheritedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Debug).With(F("session", "abc123"))
	logger.Info("utterance sent", F("transport", "oneshot"), F("query", "list students"), Err(errors.New("boom")))

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{
		"level=info",
		`msg="utterance sent"`,
		"session=abc123",
		"transport=oneshot",
		`query="list students"`,
		"err=boom",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Index(line, "session=") > strings.Index(line, "transport=") {
		t.Fatalf("expected inherited fields before call fields: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Warn)
	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("shown", F("wait", 2*time.Second))
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("expected info/debug to be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "wait=2s") {
		t.Fatalf("expected duration field: %q", buf.String())
	}
	if Nop().Enabled(Error) {
		t.Fatalf("expected nop logger to drop everything")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": Debug, " WARNING ": Warn, "error": Error, "": Info, "bogus": Info}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
