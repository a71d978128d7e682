package extension

import (
	"sort"
	"strings"

	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// ISupport is a registered server-support token, advertised to clients
// in the 005 numeric (eg: "MSGREFTYPES=msgid,timestamp").
type ISupport struct {
	Meta
	Value string
}

// ISupportTokens is the server-support token registry.
type ISupportTokens struct {
	*Registry[*ISupport]
}

// NewISupportTokens creates the isupport registry.
func NewISupportTokens(log *logging.Logger, state rehashState, notify Notifier) *ISupportTokens {
	return &ISupportTokens{newRegistry[*ISupport]("isupport", true, log, state, notify)}
}

// Add registers or revives a token. The value may be empty for bare
// tokens such as "EXCEPTS".
func (r *ISupportTokens) Add(owner *module.Module, token, value string) (*ISupport, error) {
	is, err := r.add(owner, token, func() *ISupport { return &ISupport{} })
	if err != nil {
		return nil, err
	}
	is.Value = value
	return is, nil
}

// Set registers the token or updates its value when the same module
// already owns it.
func (r *ISupportTokens) Set(owner *module.Module, token, value string) (*ISupport, error) {
	if is, ok := r.Find(token); ok && is.Owner() == owner {
		is.Value = value
		return is, nil
	}
	return r.Add(owner, token, value)
}

// Line renders the active tokens as the 005 parameter list, sorted by
// token name for a stable wire representation.
func (r *ISupportTokens) Line() string {
	var parts []string
	r.Each(func(is *ISupport) {
		if is.Value == "" {
			parts = append(parts, strings.ToUpper(is.Name()))
			return
		}
		parts = append(parts, strings.ToUpper(is.Name())+"="+is.Value)
	})
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
