package extension

import (
	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// ExtBanOptions adjust extended-ban behavior.
type ExtBanOptions int

const (
	// ExtBanActModifier marks an action modifier like ~q, stackable in
	// front of another ban.
	ExtBanActModifier ExtBanOptions = 1 << iota
	// ExtBanNoStackChild forbids stacking another extban behind this one.
	ExtBanNoStackChild
	// ExtBanInvex allows the character in invite exceptions.
	ExtBanInvex
)

// BanCheck is the context in which a ban match is evaluated.
type BanCheck int

const (
	// BanCheckJoin evaluates the ban against a join attempt.
	BanCheckJoin BanCheck = iota
	// BanCheckMsg evaluates the ban against a channel message.
	BanCheckMsg
	// BanCheckNick evaluates the ban against a nick change.
	BanCheckNick
)

// ExtBan is a registered extended ban matcher. Identity is the ban
// character, matched exactly.
type ExtBan struct {
	Meta
	Flag    byte
	Options ExtBanOptions
	// IsOK checks whether the client may place or remove the ban. Nil
	// means the usual channel access rules apply.
	IsOK func(client *domain.Client, ch *domain.Channel, mask string, check BanCheck, add bool) bool
	// ConvParam converts the ban mask to canonical form. Nil keeps the
	// mask as-is.
	ConvParam func(mask string) string
	// IsBanned reports whether the client matches the ban. Required.
	IsBanned func(client *domain.Client, ch *domain.Channel, mask string, check BanCheck) bool
}

// ExtBanRequest describes an extended ban registration.
type ExtBanRequest struct {
	Flag      byte
	Options   ExtBanOptions
	IsOK      func(client *domain.Client, ch *domain.Channel, mask string, check BanCheck, add bool) bool
	ConvParam func(mask string) string
	IsBanned  func(client *domain.Client, ch *domain.Channel, mask string, check BanCheck) bool
}

// ExtBans is the extended ban registry.
type ExtBans struct {
	*Registry[*ExtBan]
}

// NewExtBans creates the extended ban registry.
func NewExtBans(log *logging.Logger, state rehashState, notify Notifier) *ExtBans {
	return &ExtBans{newRegistry[*ExtBan]("extban", false, log, state, notify)}
}

// FindFlag returns the active matcher for the given ban character.
func (r *ExtBans) FindFlag(flag byte) (*ExtBan, bool) {
	return r.Find(string(flag))
}

// Add registers or revives an extended ban matcher. A matcher without an
// IsBanned callback is a defect in the calling module and panics at load
// time.
func (r *ExtBans) Add(owner *module.Module, req ExtBanRequest) (*ExtBan, error) {
	if req.IsBanned == nil {
		panic("ExtBans.Add: IsBanned callback is required")
	}
	b, err := r.add(owner, string(req.Flag), func() *ExtBan { return &ExtBan{} })
	if err != nil {
		return nil, err
	}
	b.Flag = req.Flag
	b.Options = req.Options
	b.IsOK = req.IsOK
	b.ConvParam = req.ConvParam
	b.IsBanned = req.IsBanned
	return b, nil
}
