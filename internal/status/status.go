// Package status carries operation outcome events from the services to
// whoever displays or stores them.
package status

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateSuccess State = "success"
	StateError   State = "error"
)

type Scope string

const (
	ScopeAccounts     Scope = "accounts"
	ScopeCategories   Scope = "categories"
	ScopeTransactions Scope = "transactions"
)

type Action string

const (
	ActionList      Action = "list"
	ActionUpsert    Action = "upsert"
	ActionDelete    Action = "delete"
	ActionImport    Action = "import"
	ActionReconcile Action = "reconcile"
)

// Event is one success or failure notice for a completed operation.
type Event struct {
	ID      string    `json:"id"`
	TS      time.Time `json:"ts"`
	Scope   Scope     `json:"scope"`
	Action  Action    `json:"action"`
	State   State     `json:"state"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func NewEvent(scope Scope, action Action, state State, msg string) Event {
	return Event{
		ID:      uuid.NewString(),
		TS:      time.Now().UTC(),
		Scope:   scope,
		Action:  action,
		State:   state,
		Message: msg,
	}
}

// Relay receives status events. Implementations must not block the caller
// for longer than the delivery itself takes.
type Relay interface {
	Publish(ctx context.Context, ev Event)
}

type RelayFunc func(ctx context.Context, ev Event)

func (f RelayFunc) Publish(ctx context.Context, ev Event) { f(ctx, ev) }

// Discard drops every event.
var Discard Relay = RelayFunc(func(context.Context, Event) {})

type multi []Relay

// Multi fans an event out to every relay in order.
func Multi(relays ...Relay) Relay {
	out := make(multi, 0, len(relays))
	for _, r := range relays {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) Publish(ctx context.Context, ev Event) {
	for _, r := range m {
		r.Publish(ctx, ev)
	}
}
