// Package stream accumulates incremental model output into a final text
// while pushing each delta to the caller as it arrives.
package stream

import (
	"strings"

	"github.com/00668901/pintar-ai/internal/genai"
)

// State is the aggregator lifecycle phase.
type State int

const (
	Idle State = iota
	Streaming
	Finalized
	Failed
)

// Aggregator consumes a chunk sequence in arrival order. It is not safe for
// concurrent use; one aggregator serves exactly one stream.
type Aggregator struct {
	onDelta func(string)
	buf     strings.Builder
	usage   *genai.Usage
	state   State
	err     error
}

// New creates an aggregator. onDelta receives each text delta (not the
// accumulated text) and may be nil.
func New(onDelta func(string)) *Aggregator {
	return &Aggregator{onDelta: onDelta}
}

// Consume appends one chunk. Usage capture is last-write-wins: only the
// final chunk is expected to carry it, and that report wins. Chunks after
// Finalize or Fail are dropped; a caller that abandoned the stream keeps
// its settled result.
func (a *Aggregator) Consume(ch genai.Chunk) {
	if a.state == Finalized || a.state == Failed {
		return
	}
	a.state = Streaming

	if ch.TextDelta != "" {
		a.buf.WriteString(ch.TextDelta)
		if a.onDelta != nil {
			a.onDelta(ch.TextDelta)
		}
	}
	if ch.Usage != nil {
		a.usage = ch.Usage
	}
}

// Finalize marks the stream complete.
func (a *Aggregator) Finalize() {
	if a.state == Failed {
		return
	}
	a.state = Finalized
}

// Fail marks the stream broken. The accumulated text stays as-is; the
// caller decides whether to substitute user-facing copy for it.
func (a *Aggregator) Fail(err error) {
	if a.state == Finalized {
		return
	}
	a.state = Failed
	a.err = err
}

// Text returns everything accumulated so far.
func (a *Aggregator) Text() string { return a.buf.String() }

// Usage returns the last captured usage report, nil if none arrived.
func (a *Aggregator) Usage() *genai.Usage { return a.usage }

// State returns the current lifecycle phase.
func (a *Aggregator) State() State { return a.state }

// Err returns the failure cause, nil unless State is Failed.
func (a *Aggregator) Err() error { return a.err }
