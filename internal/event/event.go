// Package event provides cooperative timer events. Modules add events at
// load time; the daemon's main loop drives them through DoEvents. No
// goroutines are involved, so events never interleave with registry or
// hook operations.
package event

import (
	"time"

	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// Event is one scheduled callback. Events have no revival semantics:
// module unload removes them immediately, even during a rehash.
type Event struct {
	name    string
	every   time.Duration
	count   int // remaining runs, 0 means infinite
	fn      func(now time.Time)
	lastRun time.Time
	deleted bool
	owner   *module.Module
	ref     *module.OwnedRef
}

// Name returns the event's name.
func (e *Event) Name() string { return e.name }

// List holds all scheduled events.
type List struct {
	log    *logging.Logger
	events []*Event
}

// NewList creates an empty event list.
func NewList(log *logging.Logger) *List {
	return &List{log: log.Sub("events")}
}

// Add schedules fn to run every interval, count times (0 = forever).
// The event is recorded on the owning module and removed when it unloads.
func (l *List) Add(owner *module.Module, name string, every time.Duration, count int, fn func(now time.Time)) *Event {
	ev := &Event{
		name:  name,
		every: every,
		count: count,
		fn:    fn,
		owner: owner,
	}
	if owner != nil {
		ev.ref = owner.Own(func(bool) { l.remove(ev) })
	}
	l.events = append(l.events, ev)
	l.log.Debug().Str("event", name).Dur("every", every).Msg("event scheduled")
	return ev
}

// Find returns the event with the given name, or nil.
func (l *List) Find(name string) *Event {
	for _, ev := range l.events {
		if !ev.deleted && ev.name == name {
			return ev
		}
	}
	return nil
}

// Len returns the number of scheduled events.
func (l *List) Len() int { return len(l.events) }

// MarkDel flags an event for removal. Safe to call from inside the
// event's own callback.
func (l *List) MarkDel(ev *Event) {
	ev.deleted = true
}

func (l *List) remove(ev *Event) {
	ev.deleted = true
	for i, e := range l.events {
		if e == ev {
			l.events = append(l.events[:i], l.events[i+1:]...)
			return
		}
	}
}

// DoEvents runs every due event and prunes deleted and expired ones.
// Called from the main loop with the current time; tests pass their own
// clock.
func (l *List) DoEvents(now time.Time) {
	due := make([]*Event, 0, len(l.events))
	for _, ev := range l.events {
		if ev.deleted {
			continue
		}
		if ev.lastRun.IsZero() || now.Sub(ev.lastRun) >= ev.every {
			due = append(due, ev)
		}
	}

	for _, ev := range due {
		if ev.deleted {
			continue
		}
		ev.lastRun = now
		ev.fn(now)
		if ev.count > 0 {
			ev.count--
			if ev.count == 0 {
				ev.deleted = true
			}
		}
	}

	kept := l.events[:0]
	for _, ev := range l.events {
		if ev.deleted {
			if ev.owner != nil {
				ev.owner.Disown(ev.ref)
			}
			continue
		}
		kept = append(kept, ev)
	}
	l.events = kept
}
