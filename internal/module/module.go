// Package module provides module handles, lifecycle states and the rehash
// coordinator. Every handler object, hook callback and timer event a module
// registers is recorded on its handle so the coordinator can release them
// when the module unloads.
package module

import (
	"github.com/google/uuid"

	"github.com/k4bek4be/unrealircd/internal/logging"
)

// State is the lifecycle state of a module.
type State int

const (
	// StateTesting means pre-init validation is in progress.
	StateTesting State = iota
	// StateLoaded means init and load succeeded; objects may be registered.
	StateLoaded
	// StateUnloading means an unload has been requested.
	StateUnloading
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateTesting:
		return "testing"
	case StateLoaded:
		return "loaded"
	case StateUnloading:
		return "unloading"
	default:
		return "unknown"
	}
}

// Info is the header every module declares about itself.
type Info struct {
	Name        string
	Version     string
	Description string
	Author      string
}

// Driver is implemented by every module. The coordinator calls the
// lifecycle methods in order: Test (config-time validation), Init
// (register persistent hooks and handlers), Load (event sources and
// first-time state recovery), Unload (explicit teardown before the
// coordinator releases the module's owned objects).
type Driver interface {
	Header() Info
	Test(mod *Module) error
	Init(mod *Module) error
	Load(mod *Module) error
	Unload(mod *Module) error
}

// OwnedRef records one object registered by a module. The release
// function removes the object from whatever structure holds it; deferred
// reports whether removal happens during a rehash.
type OwnedRef struct {
	release func(deferred bool)
	gone    bool
}

// Module is the handle for one loaded module. It is handed to the
// Driver's lifecycle methods and to every registry Add call so ownership
// can be tracked.
type Module struct {
	info       Info
	instanceID uuid.UUID // fresh per load, for log correlation across rehashes
	state      State
	driver     Driver
	coord      *Coordinator
	log        *logging.Logger
	objects    []*OwnedRef
}

// Name returns the module's name.
func (m *Module) Name() string { return m.info.Name }

// Info returns the module's header.
func (m *Module) Info() Info { return m.info }

// State returns the module's lifecycle state.
func (m *Module) State() State { return m.state }

// InstanceID identifies this particular load of the module.
func (m *Module) InstanceID() uuid.UUID { return m.instanceID }

// Log returns a logger tagged with the module's name.
func (m *Module) Log() *logging.Logger { return m.log }

// Own records an object registered by this module and returns its
// ownership record. Registries and the hook table call this at Add time.
func (m *Module) Own(release func(deferred bool)) *OwnedRef {
	ref := &OwnedRef{release: release}
	m.objects = append(m.objects, ref)
	return ref
}

// Disown drops an ownership record without releasing the object. Used
// when the object is removed through its registry directly, so the
// module's unload sweep does not release it twice.
func (m *Module) Disown(ref *OwnedRef) {
	if ref == nil || ref.gone {
		return
	}
	ref.gone = true
	for i, r := range m.objects {
		if r == ref {
			m.objects = append(m.objects[:i], m.objects[i+1:]...)
			break
		}
	}
}

// releaseAll releases every object still owned by the module, in
// registration order. deferred is true during a rehash: registries mark
// handlers unloaded instead of freeing them.
func (m *Module) releaseAll(deferred bool) {
	objs := m.objects
	m.objects = nil
	for _, ref := range objs {
		if ref.gone {
			continue
		}
		ref.gone = true
		ref.release(deferred)
	}
}

// SaveInt stashes an int under a short name that survives this module
// being unloaded and reloaded.
func (m *Module) SaveInt(name string, v int) { m.coord.persistPut(m.info.Name, name, v) }

// LoadInt retrieves an int saved by a previous load of this module.
// The second return reports whether a value was found.
func (m *Module) LoadInt(name string) (int, bool) {
	v, ok := m.coord.persistGet(m.info.Name, name)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// SaveInt64 stashes an int64 under a short name across reloads.
func (m *Module) SaveInt64(name string, v int64) { m.coord.persistPut(m.info.Name, name, v) }

// LoadInt64 retrieves an int64 saved by a previous load of this module.
func (m *Module) LoadInt64(name string) (int64, bool) {
	v, ok := m.coord.persistGet(m.info.Name, name)
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// SavePointer stashes an arbitrary value under a short name across reloads.
func (m *Module) SavePointer(name string, v any) { m.coord.persistPut(m.info.Name, name, v) }

// LoadPointer retrieves a value saved by a previous load of this module.
func (m *Module) LoadPointer(name string) (any, bool) {
	return m.coord.persistGet(m.info.Name, name)
}
