package agent

// Recorder receives counters about the conversation. The metrics package
// provides the prometheus implementation.
type Recorder interface {
	Utterance(transport string)
	Reply(kind string)
	Failure(kind string)
	Resolution(kind, outcome string)
}

const (
	FailureAuth      = "auth"
	FailureTransport = "transport"
	FailureChannel   = "channel"
)

type nopRecorder struct{}

func (nopRecorder) Utterance(string)          {}
func (nopRecorder) Reply(string)              {}
func (nopRecorder) Failure(string)            {}
func (nopRecorder) Resolution(string, string) {}
