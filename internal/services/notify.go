package services

import (
	"context"

	"github.com/fobos-app/ledger/internal/status"
)

type notifier struct {
	relay status.Relay
	scope status.Scope
}

func newNotifier(r status.Relay, scope status.Scope) notifier {
	if r == nil {
		r = status.Discard
	}
	return notifier{relay: r, scope: scope}
}

// done emits the outcome of an operation. An empty okMsg suppresses the
// success event (list operations only report failures).
func (n notifier) done(ctx context.Context, action status.Action, okMsg, failMsg string, err error) {
	if err != nil {
		ev := status.NewEvent(n.scope, action, status.StateError, failMsg+": "+err.Error())
		ev.Err = err
		n.relay.Publish(ctx, ev)
		return
	}
	if okMsg == "" {
		return
	}
	n.relay.Publish(ctx, status.NewEvent(n.scope, action, status.StateSuccess, okMsg))
}
