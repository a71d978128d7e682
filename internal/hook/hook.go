// Package hook provides the typed hook dispatch table: a fixed set of
// extension points, each holding a priority-ordered list of callbacks
// registered by modules. Each point has a distinct callback signature, so
// a mismatched callback is a compile error, never a runtime one.
//
// Three point kinds cover the dispatch policies the protocol engine
// needs: Notify (fire-and-continue), Check (short-circuit on the first
// non-Continue result) and Filter (value-transforming pipeline).
package hook

import (
	"sort"

	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// Action is the result of a Check callback.
type Action int

const (
	// Continue lets the next callback run.
	Continue Action = iota
	// Allow short-circuits with a positive verdict.
	Allow
	// Deny short-circuits with a negative verdict.
	Deny
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Table holds every extension point and supports bulk unregistration of a
// module's callbacks.
type Table struct {
	log    *logging.Logger
	points []point
	seq    uint64
}

// NewTable creates an empty hook table.
func NewTable(log *logging.Logger) *Table {
	return &Table{log: log.Sub("hooks")}
}

// Unregister removes every callback owned by mod from every point.
// Callbacks have no revival semantics: removal is immediate even during
// a rehash.
func (t *Table) Unregister(mod *module.Module) {
	for _, p := range t.points {
		p.removeModule(mod)
	}
}

// Points returns the names of all extension points in the table.
func (t *Table) Points() []string {
	names := make([]string, len(t.points))
	for i, p := range t.points {
		names[i] = p.name()
	}
	return names
}

type point interface {
	name() string
	removeModule(*module.Module)
}

type entry[F any] struct {
	priority int
	seq      uint64
	owner    *module.Module
	ref      *module.OwnedRef
	fn       F
}

// base carries the ordered entry list shared by all point kinds.
type base[F any] struct {
	pointName string
	tbl       *Table
	entries   []entry[F]
}

func (b *base[F]) name() string { return b.pointName }

// register inserts fn keeping entries sorted by priority, ties by
// registration order. Lower priorities run first.
func (b *base[F]) register(owner *module.Module, priority int, fn F) {
	b.tbl.seq++
	e := entry[F]{priority: priority, seq: b.tbl.seq, owner: owner, fn: fn}
	if owner != nil {
		seq := e.seq
		e.ref = owner.Own(func(bool) { b.removeSeq(seq) })
	}

	// Insert after every entry with priority <= ours: stable tie-break.
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].priority > priority
	})
	b.entries = append(b.entries, entry[F]{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = e

	b.tbl.log.Debug().
		Str("point", b.pointName).
		Int("priority", priority).
		Msg("hook registered")
}

func (b *base[F]) removeSeq(seq uint64) {
	for i, e := range b.entries {
		if e.seq == seq {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

func (b *base[F]) removeModule(mod *module.Module) {
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.owner == mod {
			mod.Disown(e.ref)
			continue
		}
		kept = append(kept, e)
	}
	b.entries = kept
}

// snapshot copies the entry list so callbacks that register or remove
// hooks mid-dispatch do not disturb the current invocation.
func (b *base[F]) snapshot() []entry[F] {
	out := make([]entry[F], len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of registered callbacks.
func (b *base[F]) Len() int { return len(b.entries) }

// Notify is a fire-and-continue extension point: every callback runs
// regardless of what the others do. Used for side-effecting
// notifications such as logging a new connection.
type Notify[T any] struct {
	base[func(T)]
}

// AddNotify creates a Notify point and adds it to the table.
func AddNotify[T any](t *Table, name string) *Notify[T] {
	p := &Notify[T]{base[func(T)]{pointName: name, tbl: t}}
	t.points = append(t.points, p)
	return p
}

// Register adds a callback at the given priority.
func (p *Notify[T]) Register(owner *module.Module, priority int, fn func(T)) {
	p.register(owner, priority, fn)
}

// Run calls every callback in priority order.
func (p *Notify[T]) Run(v T) {
	for _, e := range p.snapshot() {
		e.fn(v)
	}
}

// Check is a short-circuiting extension point: callbacks run in priority
// order until one returns something other than Continue, which is then
// the aggregate verdict. Used for permission checks.
type Check[T any] struct {
	base[func(T) Action]
}

// AddCheck creates a Check point and adds it to the table.
func AddCheck[T any](t *Table, name string) *Check[T] {
	p := &Check[T]{base[func(T) Action]{pointName: name, tbl: t}}
	t.points = append(t.points, p)
	return p
}

// Register adds a callback at the given priority.
func (p *Check[T]) Register(owner *module.Module, priority int, fn func(T) Action) {
	p.register(owner, priority, fn)
}

// Run calls callbacks in priority order, stopping at the first
// non-Continue result. Returns Continue when every callback passes.
func (p *Check[T]) Run(v T) Action {
	for _, e := range p.snapshot() {
		if a := e.fn(v); a != Continue {
			return a
		}
	}
	return Continue
}

// Filter is a value-transforming extension point: each callback receives
// the previous callback's output and the final value is what the core
// uses. Used for message rewriting.
type Filter[T any] struct {
	base[func(T) T]
}

// AddFilter creates a Filter point and adds it to the table.
func AddFilter[T any](t *Table, name string) *Filter[T] {
	p := &Filter[T]{base[func(T) T]{pointName: name, tbl: t}}
	t.points = append(t.points, p)
	return p
}

// Register adds a callback at the given priority.
func (p *Filter[T]) Register(owner *module.Module, priority int, fn func(T) T) {
	p.register(owner, priority, fn)
}

// Run threads v through every callback in priority order and returns the
// final value.
func (p *Filter[T]) Run(v T) T {
	for _, e := range p.snapshot() {
		v = e.fn(v)
	}
	return v
}
