package extension

import (
	"fmt"

	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// MessageTagFlags adjust message tag handler behavior.
type MessageTagFlags int

const (
	// MessageTagNoCapNeeded marks a tag without a capability gate
	// (eg: "msgid"). Mutually exclusive with a Capability in the request.
	MessageTagNoCapNeeded MessageTagFlags = 1 << iota
)

// MessageTag is a registered message-tag handler.
type MessageTag struct {
	Meta
	Flags MessageTagFlags
	// IsOK verifies syntax and access rights when a client supplies the tag.
	IsOK func(client *domain.Client, name, value string) bool
	// CanSend reports whether the tag may be sent to this client. Nil
	// means always.
	CanSend func(target *domain.Client) bool
	// Cap is the capability gating this tag, when one is required.
	Cap *Capability
}

func (t *MessageTag) clearReverseLink() {
	// Only clear the capability's side if it still points back here; the
	// capability may have been relinked to another tag since.
	if t.Cap != nil && t.Cap.Tag == t {
		t.Cap.Tag = nil
	}
	t.Cap = nil
}

// MessageTagRequest describes a message-tag handler registration.
type MessageTagRequest struct {
	Name    string
	Flags   MessageTagFlags
	IsOK    func(client *domain.Client, name, value string) bool
	CanSend func(target *domain.Client) bool
	Cap     *Capability
}

// MessageTags is the message-tag handler registry.
type MessageTags struct {
	*Registry[*MessageTag]
}

// NewMessageTags creates the message-tag registry.
func NewMessageTags(log *logging.Logger, state rehashState, notify Notifier) *MessageTags {
	return &MessageTags{newRegistry[*MessageTag]("message-tag", true, log, state, notify)}
}

// Add registers or revives a message-tag handler.
//
// A request declaring NoCapNeeded while also passing a capability, or
// declaring neither, is a defect in the calling module: tag gating is
// security-relevant, so this panics at module load time instead of
// letting a misconfigured gate reach production.
func (r *MessageTags) Add(owner *module.Module, req MessageTagRequest) (*MessageTag, error) {
	if req.Flags&MessageTagNoCapNeeded != 0 && req.Cap != nil {
		panic(fmt.Sprintf("MessageTags.Add(%q): NoCapNeeded is set but a capability is passed as well; "+
			"these options are mutually exclusive, choose one or the other", req.Name))
	}
	if req.Flags&MessageTagNoCapNeeded == 0 && req.Cap == nil {
		panic(fmt.Sprintf("MessageTags.Add(%q): no capability passed; if the message tag really does "+
			"not require a cap then you must set NoCapNeeded", req.Name))
	}

	// A capability may gate at most one tag. The tag being revived is
	// allowed to still hold the link from its previous incarnation, and a
	// link held only by a tag awaiting the post-rehash sweep is abandoned,
	// not occupied.
	existing, _ := r.lookup(req.Name)
	if req.Cap != nil && req.Cap.Tag != nil && req.Cap.Tag != existing && !req.Cap.Tag.Unloaded() {
		return nil, fmt.Errorf("message-tag %q: capability %q already gates %q: %w",
			req.Name, req.Cap.Name(), req.Cap.Tag.Name(), ErrInvalid)
	}

	t, err := r.add(owner, req.Name, func() *MessageTag { return &MessageTag{} })
	if err != nil {
		return nil, err
	}

	// Relinking detaches both stale ends first, so a later sweep of an
	// abandoned handler cannot clobber the live link.
	if t.Cap != nil && t.Cap != req.Cap && t.Cap.Tag == t {
		t.Cap.Tag = nil
	}
	if req.Cap != nil && req.Cap.Tag != nil && req.Cap.Tag != t {
		req.Cap.Tag.Cap = nil
	}

	t.Flags = req.Flags
	t.IsOK = req.IsOK
	t.CanSend = req.CanSend
	t.Cap = req.Cap
	if t.Cap != nil {
		t.Cap.Tag = t
	}
	return t, nil
}
