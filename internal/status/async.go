package status

import (
	"context"

	"github.com/fobos-app/ledger/internal/worker"
)

type asyncRelay struct {
	next Relay
	pool *worker.Pool
}

// Async hands delivery to the worker pool so slow sinks (kafka, audit log)
// do not hold up the publishing service. The request context is detached
// because delivery outlives the request.
func Async(next Relay, pool *worker.Pool) Relay {
	return &asyncRelay{next: next, pool: pool}
}

func (r *asyncRelay) Publish(ctx context.Context, ev Event) {
	detached := context.WithoutCancel(ctx)
	r.pool.Submit(func() { r.next.Publish(detached, ev) })
}
