// Package accounttag provides the "account" message tag, gated by the
// "account-tag" client capability: clients that negotiated the capability
// see the sender's account name attached to messages.
package accounttag

import (
	"github.com/k4bek4be/unrealircd/internal/core"
	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/extension"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// Module implements the account-tag capability and its message tag.
type Module struct {
	core *core.Core
	cap  *extension.Capability
	tag  *extension.MessageTag
}

// New creates the account-tag module.
func New(c *core.Core) *Module {
	return &Module{core: c}
}

// Header returns the module header.
func (m *Module) Header() module.Info {
	return module.Info{
		Name:        "account-tag",
		Version:     "1.0",
		Description: "Attaches the sender's account name as a message tag",
		Author:      "k4bek4be",
	}
}

// Test has nothing to validate.
func (m *Module) Test(*module.Module) error { return nil }

// Init registers the capability, the tag gated by it, and the stamping
// hook. The capability must exist before the tag so the reverse link can
// be set at tag registration.
func (m *Module) Init(mod *module.Module) error {
	cap, err := m.core.Capabilities.Add(mod, extension.CapabilityRequest{
		Name: "account-tag",
	})
	if err != nil {
		return err
	}
	m.cap = cap

	tag, err := m.core.MessageTags.Add(mod, extension.MessageTagRequest{
		Name: "account",
		// Server-only: clients may never supply the tag themselves.
		IsOK: func(*domain.Client, string, string) bool { return false },
		Cap:  cap,
	})
	if err != nil {
		return err
	}
	m.tag = tag

	// Runs after msgid stamping; the order between the two is not
	// significant, but keep it deterministic.
	m.core.Points.NewMessage.Register(mod, 10, m.stamp)
	return nil
}

// Load has no event sources to start.
func (m *Module) Load(*module.Module) error { return nil }

// Unload has no explicit teardown.
func (m *Module) Unload(*module.Module) error { return nil }

func (m *Module) stamp(ev *domain.MessageEvent) {
	if ev.Sender == nil || ev.Sender.Account == "" {
		return
	}
	if ev.Tags == nil {
		ev.Tags = make(map[string]string)
	}
	ev.Tags["account"] = ev.Sender.Account
}
