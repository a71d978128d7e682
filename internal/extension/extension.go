// Package extension implements the extension registries: named,
// module-owned handler objects (message tags, client capabilities,
// channel modes, extbans, user modes, snomasks, isupport tokens, history
// backends) with uniform lifecycle rules and safe hot-reload semantics.
//
// Deletion is a two-phase protocol. Outside a rehash a handler is
// unlinked and freed immediately. During a rehash it is only marked
// unloaded: excluded from lookup and dispatch, but still revivable by
// identity so a module reloaded in the same cycle replaces its handler
// without callers ever observing a missing-extension window. The
// coordinator's post-rehash sweep frees whatever was not revived.
package extension

import (
	"errors"
	"fmt"
	"strings"

	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

var (
	// ErrExists reports that an active handler already uses the identity.
	ErrExists = errors.New("extension already registered")
	// ErrInvalid reports a request that violates a registry invariant,
	// such as linking to an already-linked capability.
	ErrInvalid = errors.New("invalid extension request")
)

// Notifier receives operator notices for operationally notable events.
// Removing an extension can change protocol behavior live, so every
// removal is reported here in addition to the log.
type Notifier interface {
	Noticef(format string, args ...any)
}

// rehashState is the slice of the coordinator the registries need.
type rehashState interface {
	Rehashing() bool
}

// Meta is the lifecycle block embedded in every handler kind: identity,
// owning module and the deferred-delete flag.
type Meta struct {
	name     string
	owner    *module.Module
	unloaded bool
	ref      *module.OwnedRef
}

// Name returns the handler's identity within its registry.
func (m *Meta) Name() string { return m.name }

// Owner returns the module that registered the handler, or nil for
// core-provided built-ins.
func (m *Meta) Owner() *module.Module { return m.owner }

// Unloaded reports whether the handler is deferred-deleted: logically
// removed during an in-progress rehash, awaiting revival or the sweep.
func (m *Meta) Unloaded() bool { return m.unloaded }

func (m *Meta) meta() *Meta { return m }

// handler is satisfied by every concrete kind through its embedded Meta.
type handler interface {
	meta() *Meta
}

// reverseLinked is implemented by kinds carrying a reverse link; the
// registry clears the link on the surviving end before freeing either side.
type reverseLinked interface {
	clearReverseLink()
}

// Registry is one extension registry: a named collection of handlers of
// a single kind with find/add/remove and ownership bookkeeping.
type Registry[H handler] struct {
	kind    string
	fold    bool // case-insensitive identities (token registries)
	items   []H
	log     *logging.Logger
	state   rehashState
	notify  Notifier
	removed int
}

func newRegistry[H handler](kind string, fold bool, log *logging.Logger, state rehashState, notify Notifier) *Registry[H] {
	return &Registry[H]{
		kind:   kind,
		fold:   fold,
		log:    log.Sub(kind),
		state:  state,
		notify: notify,
	}
}

// Kind returns the registry's kind name.
func (r *Registry[H]) Kind() string { return r.kind }

func (r *Registry[H]) match(name, candidate string) bool {
	if r.fold {
		return strings.EqualFold(name, candidate)
	}
	return name == candidate
}

// Find returns the active handler with the given identity. Handlers in
// unloaded state are never returned.
func (r *Registry[H]) Find(name string) (H, bool) {
	for _, h := range r.items {
		m := h.meta()
		if !m.unloaded && r.match(name, m.name) {
			return h, true
		}
	}
	var zero H
	return zero, false
}

// lookup is Find including unloaded handlers; used by the revival path.
func (r *Registry[H]) lookup(name string) (H, bool) {
	for _, h := range r.items {
		if r.match(name, h.meta().name) {
			return h, true
		}
	}
	var zero H
	return zero, false
}

// Count returns the number of linked handlers, including those awaiting
// the sweep.
func (r *Registry[H]) Count() int { return len(r.items) }

// Removed returns how many handlers this registry has freed.
func (r *Registry[H]) Removed() int { return r.removed }

// Each calls fn for every active handler in registration order.
func (r *Registry[H]) Each(fn func(H)) {
	for _, h := range r.items {
		if !h.meta().unloaded {
			fn(h)
		}
	}
}

// add resolves a registration: an active duplicate is an error, a
// matching unloaded handler is revived in place (same allocation, so
// reverse references held elsewhere stay valid), otherwise alloc
// provides a fresh handler which is linked in. The handler is recorded
// on the owning module either way.
func (r *Registry[H]) add(owner *module.Module, name string, alloc func() H) (H, error) {
	if h, ok := r.lookup(name); ok {
		m := h.meta()
		if !m.unloaded {
			var zero H
			return zero, fmt.Errorf("%s %q: %w", r.kind, name, ErrExists)
		}
		m.unloaded = false
		r.rebind(h, owner)
		r.log.Debug().Str("name", name).Msg("handler revived")
		return h, nil
	}

	h := alloc()
	h.meta().name = name
	r.items = append(r.items, h)
	r.rebind(h, owner)
	r.log.Debug().Str("name", name).Msg("handler registered")
	return h, nil
}

// rebind attaches the handler to its (possibly new) owning module.
func (r *Registry[H]) rebind(h H, owner *module.Module) {
	m := h.meta()
	if m.owner != nil && m.ref != nil {
		m.owner.Disown(m.ref)
	}
	m.owner = owner
	m.ref = nil
	if owner != nil {
		m.ref = owner.Own(func(bool) { r.Del(h) })
	}
}

// Del removes a handler. Outside a rehash the handler is unlinked,
// its reverse link cleared and the removal reported; during a rehash it
// is marked unloaded and left revivable by identity.
func (r *Registry[H]) Del(h H) {
	m := h.meta()
	if m.owner != nil {
		if m.ref != nil {
			m.owner.Disown(m.ref)
		}
		m.owner = nil
		m.ref = nil
	}
	if r.state != nil && r.state.Rehashing() {
		m.unloaded = true
		return
	}
	r.commit(h)
}

// commit physically removes a handler: an unusual, operator-visible event.
func (r *Registry[H]) commit(h H) {
	m := h.meta()
	idx := -1
	for i, it := range r.items {
		if any(it) == any(h) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	r.log.Warn().Str("name", m.name).Msg("unloading handler")
	if r.notify != nil {
		r.notify.Noticef("Unloading %s handler for '%s'", r.kind, m.name)
	}

	if rl, ok := any(h).(reverseLinked); ok {
		rl.clearReverseLink()
	}
	r.items = append(r.items[:idx], r.items[idx+1:]...)
	r.removed++
}

// SweepUnloaded frees every handler still marked unloaded: everything
// whose owning module did not re-register it during the rehash. Called
// by the coordinator once the rehash completes. Returns the number freed.
func (r *Registry[H]) SweepUnloaded() int {
	var stale []H
	for _, h := range r.items {
		if h.meta().unloaded {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		r.commit(h)
	}
	return len(stale)
}
