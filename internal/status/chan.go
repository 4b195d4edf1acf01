package status

import (
	"context"
	"sync/atomic"
)

// ChanRelay delivers events on a buffered channel. When the buffer is full
// the event is dropped and counted rather than stalling the publisher.
type ChanRelay struct {
	ch      chan Event
	dropped atomic.Int64
}

func NewChanRelay(buf int) *ChanRelay {
	return &ChanRelay{ch: make(chan Event, buf)}
}

func (r *ChanRelay) Publish(_ context.Context, ev Event) {
	select {
	case r.ch <- ev:
	default:
		r.dropped.Add(1)
	}
}

func (r *ChanRelay) Events() <-chan Event { return r.ch }
func (r *ChanRelay) Dropped() int64       { return r.dropped.Load() }
