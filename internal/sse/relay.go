package sse

import (
	"context"
	"errors"
	"io"

	"prompt-relay/internal/metrics"
)

// State is the relay's position in STREAMING -> DONE | ABORTED.
type State int

const (
	Streaming State = iota
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Streaming:
		return "streaming"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Source is a pull-based chunk producer. Next returns io.EOF at a graceful end.
type Source interface {
	Next() ([]byte, error)
}

// Outcome describes how a relay ended.
type Outcome struct {
	State  State
	Frames int
	// ClientGone is set when the relay stopped because the consumer went away,
	// as opposed to the upstream stream failing.
	ClientGone bool
	Err        error
}

// Relay copies chunks from src to w until the source ends or something breaks.
// Each chunk is written and flushed before the next one is pulled. The [DONE]
// sentinel is written only after a graceful end of the source.
func Relay(ctx context.Context, src Source, w *Writer) Outcome {
	out := Outcome{State: Streaming}

	for out.State == Streaming {
		if err := ctx.Err(); err != nil {
			out.abort(err, true)
			break
		}

		chunk, err := src.Next()
		switch {
		case errors.Is(err, io.EOF):
			if werr := w.WriteDone(); werr != nil {
				out.abort(werr, true)
				break
			}
			out.State = Done
		case err != nil:
			// A cancelled request context surfaces as a read error upstream.
			out.abort(err, ctx.Err() != nil)
		default:
			if werr := w.WriteData(chunk); werr != nil {
				out.abort(werr, true)
				break
			}
			out.Frames++
			metrics.RecordStreamFrame()
		}
	}

	switch {
	case out.State == Done:
		metrics.RecordStreamOutcome(metrics.OutcomeDone)
	case out.ClientGone:
		metrics.RecordStreamOutcome(metrics.OutcomeClientDisconnect)
	default:
		metrics.RecordStreamOutcome(metrics.OutcomeUpstreamError)
	}
	return out
}

func (o *Outcome) abort(err error, clientGone bool) {
	o.State = Aborted
	o.Err = err
	o.ClientGone = clientGone
}
