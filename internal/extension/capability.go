package extension

import (
	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// CapabilityFlags adjust capability advertisement.
type CapabilityFlags int

const (
	// CapabilityAdvertiseOnly marks a capability that clients see in CAP
	// LS but cannot request (eg: sts).
	CapabilityAdvertiseOnly CapabilityFlags = 1 << iota
)

// Capability is a registered client capability.
type Capability struct {
	Meta
	Flags CapabilityFlags
	// Visible reports whether the capability should be advertised to
	// this client. Nil means always visible.
	Visible func(client *domain.Client) bool
	// Parameter supplies the CAP value advertised to this client. Nil
	// means no value.
	Parameter func(client *domain.Client) string
	// Tag is the message-tag handler gated by this capability, if any.
	Tag *MessageTag
}

func (c *Capability) clearReverseLink() {
	// Only clear the tag's side if it still points back here; the tag may
	// have been relinked to another capability since.
	if c.Tag != nil && c.Tag.Cap == c {
		c.Tag.Cap = nil
	}
	c.Tag = nil
}

// CapabilityRequest describes a capability registration.
type CapabilityRequest struct {
	Name      string
	Flags     CapabilityFlags
	Visible   func(client *domain.Client) bool
	Parameter func(client *domain.Client) string
}

// Capabilities is the client capability registry.
type Capabilities struct {
	*Registry[*Capability]
}

// NewCapabilities creates the capability registry.
func NewCapabilities(log *logging.Logger, state rehashState, notify Notifier) *Capabilities {
	return &Capabilities{newRegistry[*Capability]("capability", true, log, state, notify)}
}

// Add registers or revives a capability. A revived capability keeps its
// reverse link to the message tag it gates.
func (r *Capabilities) Add(owner *module.Module, req CapabilityRequest) (*Capability, error) {
	c, err := r.add(owner, req.Name, func() *Capability { return &Capability{} })
	if err != nil {
		return nil, err
	}
	c.Flags = req.Flags
	c.Visible = req.Visible
	c.Parameter = req.Parameter
	return c, nil
}
