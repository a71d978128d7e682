package module

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/k4bek4be/unrealircd/internal/logging"
)

// Store is a registry whose handlers support deferred deletion. The
// coordinator sweeps every attached store when a rehash completes.
type Store interface {
	Kind() string
	SweepUnloaded() int
}

// Coordinator owns the set of loaded modules and sequences safe removal
// and replacement of their handlers across a configuration rehash.
//
// Single-threaded by design: load, unload and rehash run to completion
// on the daemon's event loop, so no locking is needed.
type Coordinator struct {
	log     *logging.Logger
	modules map[string]*Module
	order   []string
	stores  []Store
	rehash  bool

	// persist survives module unload: values are keyed by module name
	// plus a short variable name, so a module reloaded later finds what
	// its previous incarnation saved.
	persist map[string]any

	onRehashComplete func(swept int)
}

// NewCoordinator creates a module coordinator.
func NewCoordinator(log *logging.Logger) *Coordinator {
	return &Coordinator{
		log:     log.Sub("modules"),
		modules: make(map[string]*Module),
		persist: make(map[string]any),
	}
}

// AttachStore registers a registry for the post-rehash sweep.
func (c *Coordinator) AttachStore(s Store) {
	c.stores = append(c.stores, s)
}

// OnRehashComplete sets the callback fired after every rehash sweep.
func (c *Coordinator) OnRehashComplete(fn func(swept int)) {
	c.onRehashComplete = fn
}

// Rehashing reports whether a live configuration reload is in progress.
// Registries consult this to decide between immediate and deferred delete.
func (c *Coordinator) Rehashing() bool { return c.rehash }

// Get returns the handle of a loaded module, or nil.
func (c *Coordinator) Get(name string) *Module { return c.modules[name] }

// Loaded returns the names of all loaded modules in load order.
func (c *Coordinator) Loaded() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Load runs a module through test, init and load. On any failure the
// module's already-registered objects are released and the module is not
// marked loaded.
func (c *Coordinator) Load(d Driver) (*Module, error) {
	info := d.Header()
	if info.Name == "" {
		return nil, fmt.Errorf("module has an empty name")
	}
	if _, exists := c.modules[info.Name]; exists {
		return nil, fmt.Errorf("module %s is already loaded", info.Name)
	}

	m := &Module{
		info:       info,
		instanceID: uuid.New(),
		state:      StateTesting,
		driver:     d,
		coord:      c,
		log:        c.log.WithModule(info.Name),
	}

	m.log.Debug().Str("instance", m.instanceID.String()).Msg("testing module")
	if err := d.Test(m); err != nil {
		m.releaseAll(false)
		return nil, fmt.Errorf("test %s: %w", info.Name, err)
	}
	if err := d.Init(m); err != nil {
		m.releaseAll(false)
		return nil, fmt.Errorf("init %s: %w", info.Name, err)
	}
	if err := d.Load(m); err != nil {
		m.releaseAll(false)
		return nil, fmt.Errorf("load %s: %w", info.Name, err)
	}

	m.state = StateLoaded
	c.modules[info.Name] = m
	c.order = append(c.order, info.Name)

	m.log.Info().
		Str("version", info.Version).
		Str("instance", m.instanceID.String()).
		Msg("module loaded")
	return m, nil
}

// Unload tears a module down. Outside a rehash every owned object is
// deleted immediately; during a rehash registry handlers are deferred so
// a module reloaded in the same cycle can revive them.
func (c *Coordinator) Unload(name string) error {
	m, ok := c.modules[name]
	if !ok {
		return fmt.Errorf("module %s is not loaded", name)
	}
	m.state = StateUnloading

	if err := m.driver.Unload(m); err != nil {
		m.log.Error().Err(err).Msg("module unload callback failed")
	}
	m.releaseAll(c.rehash)

	delete(c.modules, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	m.log.Info().Bool("rehashing", c.rehash).Msg("module unloaded")
	return nil
}

// UnloadAll unloads every module in reverse load order.
func (c *Coordinator) UnloadAll() {
	for i := len(c.order) - 1; i >= 0; i-- {
		if err := c.Unload(c.order[i]); err != nil {
			c.log.Error().Err(err).Str("module", c.order[i]).Msg("unload failed")
		}
	}
}

// BeginRehash marks the start of a live configuration reload. Handler
// deletions between BeginRehash and EndRehash are deferred, keeping the
// handler revivable by identity for a module reloaded in the same cycle.
func (c *Coordinator) BeginRehash() {
	if c.rehash {
		return
	}
	c.rehash = true
	c.log.Info().Msg("rehash started")
}

// EndRehash completes the reload: the rehashing flag is cleared, every
// attached store sweeps its still-deferred handlers, and the completion
// callback fires.
func (c *Coordinator) EndRehash() int {
	if !c.rehash {
		return 0
	}
	c.rehash = false

	swept := 0
	for _, s := range c.stores {
		swept += s.SweepUnloaded()
	}
	c.log.Info().Int("swept", swept).Msg("rehash complete")
	if c.onRehashComplete != nil {
		c.onRehashComplete(swept)
	}
	return swept
}

func persistKey(module, name string) string { return module + "/" + name }

func (c *Coordinator) persistPut(module, name string, v any) {
	c.persist[persistKey(module, name)] = v
}

func (c *Coordinator) persistGet(module, name string) (any, bool) {
	v, ok := c.persist[persistKey(module, name)]
	return v, ok
}
