package extension

import (
	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// ModeCheck is what a channel mode's IsOK callback is asked to verify.
type ModeCheck int

const (
	// ModeCheckAccess asks whether the client may change the mode.
	ModeCheckAccess ModeCheck = iota
	// ModeCheckAccessErr is ModeCheckAccess plus an error to the client.
	ModeCheckAccessErr
	// ModeCheckParam asks whether the parameter is valid.
	ModeCheckParam
)

// ModeVerdict is the result of a channel mode access check.
type ModeVerdict int

const (
	// ModeDeny disallows the change, except for operator override.
	ModeDeny ModeVerdict = iota
	// ModeAllow allows the change.
	ModeAllow
	// ModeAlwaysDeny disallows the change even for operator override.
	ModeAlwaysDeny
)

// SyncVerdict decides a parameter conflict when two servers sync a
// channel. The decision must be deterministic across the network:
// highest-wins, string comparison, or similar.
type SyncVerdict int

const (
	// SyncSame means the parameters are equal.
	SyncSame SyncVerdict = iota
	// SyncWeWon means our parameter prevails.
	SyncWeWon
	// SyncTheyWon means their parameter prevails.
	SyncTheyWon
	// SyncMerge means the parameters merge; neither won.
	SyncMerge
)

// ChannelMode is a registered channel mode handler. Identity is the mode
// character, matched exactly ('Z' and 'z' are distinct modes).
type ChannelMode struct {
	Meta
	Flag       byte
	ParamCount int // 0 or 1
	// IsOK checks access or parameter validity for the mode change.
	IsOK func(client *domain.Client, ch *domain.Channel, mode byte, param string, check ModeCheck, add bool) ModeVerdict
	// ConvParam converts an input parameter to canonical form, eg
	// "+l 1aaa" becomes "1". Nil for parameterless modes.
	ConvParam func(param string, client *domain.Client) string
	// CompareParam resolves a server-sync parameter conflict. Nil for
	// parameterless modes.
	CompareParam func(ch *domain.Channel, ours, theirs string) SyncVerdict
	// Local prevents remote servers from setting or unsetting this mode.
	Local bool
	// UnsetWithParam means unsetting also requires the parameter.
	UnsetWithParam bool
}

// ChannelModeRequest describes a channel mode registration.
type ChannelModeRequest struct {
	Flag           byte
	ParamCount     int
	IsOK           func(client *domain.Client, ch *domain.Channel, mode byte, param string, check ModeCheck, add bool) ModeVerdict
	ConvParam      func(param string, client *domain.Client) string
	CompareParam   func(ch *domain.Channel, ours, theirs string) SyncVerdict
	Local          bool
	UnsetWithParam bool
}

// ChannelModes is the channel mode registry.
type ChannelModes struct {
	*Registry[*ChannelMode]
}

// NewChannelModes creates the channel mode registry.
func NewChannelModes(log *logging.Logger, state rehashState, notify Notifier) *ChannelModes {
	return &ChannelModes{newRegistry[*ChannelMode]("channel-mode", false, log, state, notify)}
}

// FindFlag returns the active mode handler for the given mode character.
func (r *ChannelModes) FindFlag(flag byte) (*ChannelMode, bool) {
	return r.Find(string(flag))
}

// Add registers or revives a channel mode handler.
func (r *ChannelModes) Add(owner *module.Module, req ChannelModeRequest) (*ChannelMode, error) {
	cm, err := r.add(owner, string(req.Flag), func() *ChannelMode { return &ChannelMode{} })
	if err != nil {
		return nil, err
	}
	cm.Flag = req.Flag
	cm.ParamCount = req.ParamCount
	cm.IsOK = req.IsOK
	cm.ConvParam = req.ConvParam
	cm.CompareParam = req.CompareParam
	cm.Local = req.Local
	cm.UnsetWithParam = req.UnsetWithParam
	return cm, nil
}
