// Package msgid provides the "msgid" message tag: a unique identifier
// stamped on every new message so clients and history backends can refer
// to it. The tag needs no capability gate.
package msgid

import (
	"github.com/google/uuid"

	"github.com/k4bek4be/unrealircd/internal/core"
	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/extension"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// Module implements the msgid message tag.
type Module struct {
	core *core.Core
	tag  *extension.MessageTag
}

// New creates the msgid module.
func New(c *core.Core) *Module {
	return &Module{core: c}
}

// Header returns the module header.
func (m *Module) Header() module.Info {
	return module.Info{
		Name:        "msgid",
		Version:     "1.0",
		Description: "Stamps a unique msgid tag on every message",
		Author:      "k4bek4be",
	}
}

// Test has nothing to validate.
func (m *Module) Test(*module.Module) error { return nil }

// Init registers the message tag and the stamping hook.
func (m *Module) Init(mod *module.Module) error {
	tag, err := m.core.MessageTags.Add(mod, extension.MessageTagRequest{
		Name:  "msgid",
		Flags: extension.MessageTagNoCapNeeded,
		// Only the server generates msgids; clients may never supply one.
		IsOK: func(*domain.Client, string, string) bool { return false },
	})
	if err != nil {
		return err
	}
	m.tag = tag

	m.core.Points.NewMessage.Register(mod, 0, m.stamp)

	_, err = m.core.ISupport.Set(mod, "MSGREFTYPES", "msgid,timestamp")
	return err
}

// Load has no event sources to start.
func (m *Module) Load(*module.Module) error { return nil }

// Unload has no explicit teardown; owned objects are released by the
// coordinator.
func (m *Module) Unload(*module.Module) error { return nil }

func (m *Module) stamp(ev *domain.MessageEvent) {
	if ev.Tags == nil {
		ev.Tags = make(map[string]string)
	}
	if _, ok := ev.Tags["msgid"]; !ok {
		ev.Tags["msgid"] = uuid.NewString()
	}
}
