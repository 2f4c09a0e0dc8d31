// Package bus implements the subject/observer fan-out the mediator,
// endpoint facade, and signals use to move messages between
// components without coupling them directly (spec §4.1).
package bus

import (
	"log/slog"
	"sync"

	"github.com/sebas/mgcpgw/internal/mgcp/message"
)

// Observer receives every message notified on a Bus, tagged with its
// Direction. An Observer that returns an error does not stop delivery
// to the remaining observers; the error is logged and swallowed
// (spec §4.1, §7 "Errors inside observers").
type Observer func(msg message.Message, dir message.Direction) error

// entry is one registered observer with the id its Subscription uses.
type entry struct {
	id int64
	fn Observer
}

// Bus is the subject half of the observer pattern: components observe
// it, and notify through it. Registration is one-way (Observe/Forget);
// emission is the only reverse channel, which is how the
// observer/subject cycle in the design notes gets broken without weak
// references.
type Bus struct {
	mu        sync.Mutex
	observers []entry
	nextID    int64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Observe registers o to receive future notifications. Returns a
// Subscription that deregisters o exactly once, so callers can use
// scoped registration with guaranteed deregistration on every exit
// path (design notes).
func (b *Bus) Observe(o Observer) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID

	// Copy-on-write: notify() holds no lock while iterating, so
	// mutating observers here never affects an in-flight fan-out.
	next := make([]entry, len(b.observers)+1)
	copy(next, b.observers)
	next[len(b.observers)] = entry{id: id, fn: o}
	b.observers = next

	return Subscription{bus: b, id: id}
}

// Forget removes the observer identified by sub. A no-op if sub was
// already forgotten or belongs to a different Bus.
func (b *Bus) Forget(sub Subscription) {
	if sub.bus != b {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.observers {
		if e.id == sub.id {
			next := make([]entry, 0, len(b.observers)-1)
			next = append(next, b.observers[:i]...)
			next = append(next, b.observers[i+1:]...)
			b.observers = next
			return
		}
	}
}

// Notify invokes every currently-registered observer exactly once, in
// registration order. Observers added or removed during Notify do not
// affect this fan-out; a Notify call triggered reentrantly from
// inside an observer takes a fresh snapshot and is a distinct fan-out
// (spec §4.1).
func (b *Bus) Notify(msg message.Message, dir message.Direction) {
	b.mu.Lock()
	snapshot := b.observers
	b.mu.Unlock()

	for _, e := range snapshot {
		if err := safeInvoke(e.fn, msg, dir); err != nil {
			slog.Warn("[Bus] observer error", "direction", dir, "error", err)
		}
	}
}

func safeInvoke(o Observer, msg message.Message, dir message.Direction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Bus] observer panicked", "recover", r)
		}
	}()
	return o(msg, dir)
}

// Subscription is the token returned by Observe; pass it to Forget to
// deregister. The zero value is inert.
type Subscription struct {
	bus *Bus
	id  int64
}
