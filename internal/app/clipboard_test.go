package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func stubClipboard(t *testing.T, system, osc func(string) error) {
	t.Helper()
	origWriteAll := clipboardWriteAll
	origWriteOSC52 := clipboardWriteOSC52
	t.Cleanup(func() {
		clipboardWriteAll = origWriteAll
		clipboardWriteOSC52 = origWriteOSC52
	})
	clipboardWriteAll = system
	clipboardWriteOSC52 = osc
}

func TestCopyTextToClipboardUsesSystemBackend(t *testing.T) {
	fallbackCalled := false
	stubClipboard(t, func(string) error { return nil }, func(string) error {
		fallbackCalled = true
		return nil
	})

	method, err := copyTextToClipboard("hello")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if method != clipboardMethodSystem {
		t.Fatalf("expected system method, got %v", method)
	}
	if fallbackCalled {
		t.Fatalf("expected no OSC52 fallback call")
	}
}

func TestCopyTextToClipboardFallsBackToOSC52(t *testing.T) {
	stubClipboard(t, func(string) error { return errors.New("exit status 1") }, func(string) error { return nil })

	method, err := copyTextToClipboard("hello")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if method != clipboardMethodOSC52 {
		t.Fatalf("expected OSC52 method, got %v", method)
	}
}

func TestCopyTextToClipboardHelpfulErrorWhenDisplayMissing(t *testing.T) {
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	stubClipboard(t,
		func(string) error { return errors.New("exit status 1") },
		func(string) error { return errors.New("open /dev/tty: no such device") })

	_, err := copyTextToClipboard("hello")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "no GUI clipboard available") {
		t.Fatalf("expected display hint, got %q", err.Error())
	}
}

func TestWriteOSC52SequenceEncodesText(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM", "xterm-256color")
	var buf bytes.Buffer
	if err := writeOSC52Sequence(&buf, "hi"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "\x1b]52;c;") || !strings.Contains(got, "aGk=") {
		t.Fatalf("unexpected OSC52 sequence %q", got)
	}
}

func TestShouldAttemptOSC52HonoursOptOut(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("WARDAN_DISABLE_OSC52", "yes")
	if shouldAttemptOSC52() {
		t.Fatalf("expected opt-out to disable OSC52")
	}
	t.Setenv("WARDAN_DISABLE_OSC52", "")
	if !shouldAttemptOSC52() {
		t.Fatalf("expected OSC52 on a capable terminal")
	}
	t.Setenv("TERM", "dumb")
	if shouldAttemptOSC52() {
		t.Fatalf("expected dumb terminal to skip OSC52")
	}
}

func TestCopyWithStatusSetsToast(t *testing.T) {
	stubClipboard(t, func(string) error { return nil }, func(string) error { return nil })
	m := &Model{now: fixedClock()}
	if m.copyWithStatus("  ", "copied") {
		t.Fatalf("expected blank text to be rejected")
	}
	if !m.toastError || m.toast != "nothing to copy" {
		t.Fatalf("unexpected toast %q error=%v", m.toast, m.toastError)
	}
	if !m.copyWithStatus("rooms", "copied") {
		t.Fatalf("expected copy to succeed")
	}
	if m.toastError || m.toast != "copied" {
		t.Fatalf("unexpected toast %q error=%v", m.toast, m.toastError)
	}
}
