// Package core assembles the extension runtime: the module coordinator,
// the hook table with its fixed extension points, and every extension
// registry. A Core is the API surface a module sees.
package core

import (
	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/event"
	"github.com/k4bek4be/unrealircd/internal/extension"
	"github.com/k4bek4be/unrealircd/internal/hook"
	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// Points is the closed set of extension points. Each point has a fixed
// argument type, so registering a callback with the wrong signature is a
// compile error.
type Points struct {
	// LocalConnect fires after a local client finishes registration.
	LocalConnect *hook.Notify[*domain.Client]
	// LocalQuit fires when a local client disconnects.
	LocalQuit *hook.Notify[domain.QuitEvent]
	// CanJoin decides whether a client may join a channel. Deny wins.
	CanJoin *hook.Check[domain.JoinRequest]
	// CanSendToChannel decides whether a message may reach a channel.
	CanSendToChannel *hook.Check[*domain.ChanMessage]
	// PreChanMsg rewrites a channel message before delivery.
	PreChanMsg *hook.Filter[domain.ChanMessage]
	// NewMessage lets message-tag handlers stamp outgoing tags.
	NewMessage *hook.Notify[*domain.MessageEvent]
	// ChannelCreate fires when a channel comes into existence.
	ChannelCreate *hook.Notify[*domain.Channel]
	// ChannelDestroy fires when the last user leaves a channel.
	ChannelDestroy *hook.Notify[*domain.Channel]
	// RehashComplete fires after the post-rehash sweep.
	RehashComplete *hook.Notify[domain.RehashInfo]
}

func newPoints(t *hook.Table) *Points {
	return &Points{
		LocalConnect:     hook.AddNotify[*domain.Client](t, "local-connect"),
		LocalQuit:        hook.AddNotify[domain.QuitEvent](t, "local-quit"),
		CanJoin:          hook.AddCheck[domain.JoinRequest](t, "can-join"),
		CanSendToChannel: hook.AddCheck[*domain.ChanMessage](t, "can-send-to-channel"),
		PreChanMsg:       hook.AddFilter[domain.ChanMessage](t, "pre-chanmsg"),
		NewMessage:       hook.AddNotify[*domain.MessageEvent](t, "new-message"),
		ChannelCreate:    hook.AddNotify[*domain.Channel](t, "channel-create"),
		ChannelDestroy:   hook.AddNotify[*domain.Channel](t, "channel-destroy"),
		RehashComplete:   hook.AddNotify[domain.RehashInfo](t, "rehash-complete"),
	}
}

// Core is the assembled extension runtime.
type Core struct {
	Log         *logging.Logger
	Coordinator *module.Coordinator
	Hooks       *hook.Table
	Points      *Points
	Events      *event.List

	MessageTags  *extension.MessageTags
	Capabilities *extension.Capabilities
	ChannelModes *extension.ChannelModes
	ExtBans      *extension.ExtBans
	UserModes    *extension.UserModes
	Snomasks     *extension.Snomasks
	ISupport     *extension.ISupportTokens
	History      *extension.HistoryBackends
}

// Options configure a Core.
type Options struct {
	Log *logging.Logger
	// Notifier receives operator notices; nil disables the feed.
	Notifier extension.Notifier
}

// New builds the runtime: one coordinator, one hook table, one registry
// per extension kind, all registries attached for the post-rehash sweep.
func New(opts Options) *Core {
	log := opts.Log
	if log == nil {
		log = logging.New(nil, "info")
	}

	coord := module.NewCoordinator(log)
	tbl := hook.NewTable(log)
	points := newPoints(tbl)

	c := &Core{
		Log:         log,
		Coordinator: coord,
		Hooks:       tbl,
		Points:      points,
		Events:      event.NewList(log),

		MessageTags:  extension.NewMessageTags(log, coord, opts.Notifier),
		Capabilities: extension.NewCapabilities(log, coord, opts.Notifier),
		ChannelModes: extension.NewChannelModes(log, coord, opts.Notifier),
		ExtBans:      extension.NewExtBans(log, coord, opts.Notifier),
		UserModes:    extension.NewUserModes(log, coord, opts.Notifier),
		Snomasks:     extension.NewSnomasks(log, coord, opts.Notifier),
		ISupport:     extension.NewISupportTokens(log, coord, opts.Notifier),
		History:      extension.NewHistoryBackends(log, coord, opts.Notifier),
	}

	coord.AttachStore(c.MessageTags)
	coord.AttachStore(c.Capabilities)
	coord.AttachStore(c.ChannelModes)
	coord.AttachStore(c.ExtBans)
	coord.AttachStore(c.UserModes)
	coord.AttachStore(c.Snomasks)
	coord.AttachStore(c.ISupport)
	coord.AttachStore(c.History)

	coord.OnRehashComplete(func(swept int) {
		points.RehashComplete.Run(domain.RehashInfo{Swept: swept})
	})

	return c
}

// LoadModule loads one module through the coordinator.
func (c *Core) LoadModule(d module.Driver) (*module.Module, error) {
	return c.Coordinator.Load(d)
}

// Rehash performs a live reload: every loaded module is unloaded with
// deferred handler deletion, then the next configuration's modules are
// loaded. A module present in both configurations re-registers its
// handlers and revives them in place, so callers never observe a
// missing-extension window; the final sweep frees everything that was
// not revived.
func (c *Core) Rehash(next []module.Driver) error {
	c.Coordinator.BeginRehash()

	var firstErr error
	for _, name := range c.Coordinator.Loaded() {
		if err := c.Coordinator.Unload(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, d := range next {
		if _, err := c.Coordinator.Load(d); err != nil {
			c.Log.Error().Err(err).Str("module", d.Header().Name).Msg("module failed to load during rehash")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	c.Coordinator.EndRehash()
	return firstErr
}
