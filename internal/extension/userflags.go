package extension

import (
	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// UserMode is a registered user mode handler. Identity is the mode
// character, matched exactly.
type UserMode struct {
	Meta
	Flag byte
	// UnsetOnDeoper unsets the mode when the user de-opers.
	UnsetOnDeoper bool
	// Allowed reports whether the client may set (add=true) or unset the
	// mode. Nil means everyone.
	Allowed func(client *domain.Client, add bool) bool
}

// UserModeRequest describes a user mode registration.
type UserModeRequest struct {
	Flag          byte
	UnsetOnDeoper bool
	Allowed       func(client *domain.Client, add bool) bool
}

// UserModes is the user mode registry.
type UserModes struct {
	*Registry[*UserMode]
}

// NewUserModes creates the user mode registry.
func NewUserModes(log *logging.Logger, state rehashState, notify Notifier) *UserModes {
	return &UserModes{newRegistry[*UserMode]("user-mode", false, log, state, notify)}
}

// FindFlag returns the active handler for the given mode character.
func (r *UserModes) FindFlag(flag byte) (*UserMode, bool) {
	return r.Find(string(flag))
}

// Add registers or revives a user mode handler.
func (r *UserModes) Add(owner *module.Module, req UserModeRequest) (*UserMode, error) {
	um, err := r.add(owner, string(req.Flag), func() *UserMode { return &UserMode{} })
	if err != nil {
		return nil, err
	}
	um.Flag = req.Flag
	um.UnsetOnDeoper = req.UnsetOnDeoper
	um.Allowed = req.Allowed
	return um, nil
}

// Snomask is a registered server notice mask handler. Identity is the
// snomask character, matched exactly.
type Snomask struct {
	Meta
	Flag byte
	// UnsetOnDeoper unsets the snomask when the user de-opers.
	UnsetOnDeoper bool
	// Allowed reports whether the client may set (add=true) or unset the
	// snomask. Nil means opers only is not enforced here.
	Allowed func(client *domain.Client, add bool) bool
}

// SnomaskRequest describes a snomask registration.
type SnomaskRequest struct {
	Flag          byte
	UnsetOnDeoper bool
	Allowed       func(client *domain.Client, add bool) bool
}

// Snomasks is the server notice mask registry.
type Snomasks struct {
	*Registry[*Snomask]
}

// NewSnomasks creates the snomask registry.
func NewSnomasks(log *logging.Logger, state rehashState, notify Notifier) *Snomasks {
	return &Snomasks{newRegistry[*Snomask]("snomask", false, log, state, notify)}
}

// FindFlag returns the active handler for the given snomask character.
func (r *Snomasks) FindFlag(flag byte) (*Snomask, bool) {
	return r.Find(string(flag))
}

// Add registers or revives a snomask handler.
func (r *Snomasks) Add(owner *module.Module, req SnomaskRequest) (*Snomask, error) {
	sn, err := r.add(owner, string(req.Flag), func() *Snomask { return &Snomask{} })
	if err != nil {
		return nil, err
	}
	sn.Flag = req.Flag
	sn.UnsetOnDeoper = req.UnsetOnDeoper
	sn.Allowed = req.Allowed
	return sn, nil
}
