package sim

import (
	"github.com/Garsondee/Robot-Sense/internal/protocol"
)

// Inbox carries engine diagnostics from the protocol listeners to the sim
// goroutine, which records them in its SimLog on the next Step. When full,
// new diagnostics are dropped.
type Inbox struct {
	ch chan protocol.Diagnostic
}

// NewInbox creates an Inbox holding up to size pending diagnostics.
func NewInbox(size int) *Inbox {
	if size < 1 {
		size = 1
	}
	return &Inbox{ch: make(chan protocol.Diagnostic, size)}
}

// Sink returns a non-blocking protocol.DiagnosticSink feeding the inbox.
func (in *Inbox) Sink() protocol.DiagnosticSink {
	return func(d protocol.Diagnostic) {
		select {
		case in.ch <- d:
		default:
		}
	}
}

// drain calls fn for every pending diagnostic without waiting for more.
func (in *Inbox) drain(fn func(protocol.Diagnostic)) {
	for {
		select {
		case d := <-in.ch:
			fn(d)
		default:
			return
		}
	}
}
