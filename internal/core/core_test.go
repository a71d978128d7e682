package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/extension"
	"github.com/k4bek4be/unrealircd/internal/hook"
	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

type recordingNotifier struct {
	notices []string
}

func (n *recordingNotifier) Noticef(format string, args ...any) {
	n.notices = append(n.notices, fmt.Sprintf(format, args...))
}

// tagModule registers a capability-gated message tag, the way account-tag
// does, so the full revive-across-rehash path can be exercised.
type tagModule struct {
	name    string
	tagName string
	cap     *extension.Capability
	tag     *extension.MessageTag
	core    *Core
}

func (d *tagModule) Header() module.Info {
	return module.Info{Name: d.name, Version: "1.0"}
}

func (d *tagModule) Test(*module.Module) error { return nil }

func (d *tagModule) Init(mod *module.Module) error {
	cap, err := d.core.Capabilities.Add(mod, extension.CapabilityRequest{Name: d.name})
	if err != nil {
		return err
	}
	d.cap = cap

	tag, err := d.core.MessageTags.Add(mod, extension.MessageTagRequest{
		Name: d.tagName,
		Cap:  cap,
	})
	if err != nil {
		return err
	}
	d.tag = tag

	d.core.Points.NewMessage.Register(mod, 0, func(ev *domain.MessageEvent) {
		if ev.Tags == nil {
			ev.Tags = make(map[string]string)
		}
		ev.Tags[d.tagName] = "on"
	})
	return nil
}

func (d *tagModule) Load(*module.Module) error   { return nil }
func (d *tagModule) Unload(*module.Module) error { return nil }

func testCore() (*Core, *recordingNotifier) {
	notify := &recordingNotifier{}
	c := New(Options{Log: logging.New(nil, "silent"), Notifier: notify})
	return c, notify
}

func TestCore_LoadModuleRegistersHandlers(t *testing.T) {
	c, _ := testCore()
	d := &tagModule{name: "account-tag", tagName: "account", core: c}

	_, err := c.LoadModule(d)
	require.NoError(t, err)

	tag, ok := c.MessageTags.Find("account")
	require.True(t, ok)
	assert.Same(t, d.tag, tag)
	assert.Same(t, d.cap, tag.Cap)

	ev := &domain.MessageEvent{}
	c.Points.NewMessage.Run(ev)
	assert.Equal(t, "on", ev.Tags["account"])
}

func TestCore_RehashRevivesReRegisteredHandlers(t *testing.T) {
	c, notify := testCore()

	gen1 := &tagModule{name: "account-tag", tagName: "account", core: c}
	_, err := c.LoadModule(gen1)
	require.NoError(t, err)

	// Same module name in the next config: its handlers must be revived
	// in place, with no removal notice and nothing swept.
	gen2 := &tagModule{name: "account-tag", tagName: "account", core: c}
	var rehashInfo *domain.RehashInfo
	c.Points.RehashComplete.Register(nil, 0, func(info domain.RehashInfo) {
		rehashInfo = &info
	})

	require.NoError(t, c.Rehash([]module.Driver{gen2}))

	require.NotNil(t, rehashInfo)
	assert.Equal(t, 0, rehashInfo.Swept)
	assert.Empty(t, notify.notices)
	assert.Same(t, gen1.tag, gen2.tag, "revival preserves the handler allocation")
	assert.Same(t, gen1.cap, gen2.cap)
	assert.Same(t, gen2.cap, gen2.tag.Cap)

	// Only the new incarnation's hook runs.
	ev := &domain.MessageEvent{}
	c.Points.NewMessage.Run(ev)
	assert.Equal(t, "on", ev.Tags["account"])
	assert.Equal(t, 1, c.Points.NewMessage.Len())
}

func TestCore_RehashSweepsDroppedModules(t *testing.T) {
	c, notify := testCore()

	_, err := c.LoadModule(&tagModule{name: "account-tag", tagName: "account", core: c})
	require.NoError(t, err)

	keep := &tagModule{name: "bot-tag", tagName: "bot", core: c}
	_, err = c.LoadModule(keep)
	require.NoError(t, err)

	var swept int
	c.Points.RehashComplete.Register(nil, 0, func(info domain.RehashInfo) {
		swept = info.Swept
	})

	// account-tag is gone from the next config; its capability and tag
	// are freed by the sweep.
	require.NoError(t, c.Rehash([]module.Driver{keep}))
	assert.Equal(t, 2, swept)
	assert.Len(t, notify.notices, 2)

	_, ok := c.MessageTags.Find("account")
	assert.False(t, ok)
	_, ok = c.Capabilities.Find("account-tag")
	assert.False(t, ok)
	_, ok = c.MessageTags.Find("bot")
	assert.True(t, ok)

	ev := &domain.MessageEvent{}
	c.Points.NewMessage.Run(ev)
	assert.Equal(t, map[string]string{"bot": "on"}, ev.Tags)
}

func TestCore_RehashReloadsModuleWithFreshInstance(t *testing.T) {
	c, _ := testCore()

	m1, err := c.LoadModule(&tagModule{name: "account-tag", tagName: "account", core: c})
	require.NoError(t, err)

	// The module is genuinely reloaded: a new instance, but the handler
	// stays findable throughout.
	require.NoError(t, c.Rehash([]module.Driver{&tagModule{name: "account-tag", tagName: "account", core: c}}))
	assert.Equal(t, []string{"account-tag"}, c.Coordinator.Loaded())
	m2 := c.Coordinator.Get("account-tag")
	require.NotNil(t, m2)
	assert.NotEqual(t, m1.InstanceID(), m2.InstanceID())

	_, ok := c.MessageTags.Find("account")
	assert.True(t, ok)
}

func TestCore_DispatchSkipsUnloadedDuringRehash(t *testing.T) {
	c, _ := testCore()

	_, err := c.LoadModule(&tagModule{name: "account-tag", tagName: "account", core: c})
	require.NoError(t, err)

	c.Coordinator.BeginRehash()
	require.NoError(t, c.Coordinator.Unload("account-tag"))

	// Mid-rehash, the handler is invisible to lookups even though its
	// allocation is still linked for possible revival.
	_, ok := c.MessageTags.Find("account")
	assert.False(t, ok)
	assert.Equal(t, 1, c.MessageTags.Count())

	c.Coordinator.EndRehash()
	assert.Equal(t, 0, c.MessageTags.Count())
}

func TestCore_PointsAreWired(t *testing.T) {
	c, _ := testCore()

	// A Check point with no callbacks passes.
	assert.Equal(t, hook.Continue, c.Points.CanJoin.Run(domain.JoinRequest{}))

	verdicts := 0
	c.Points.CanJoin.Register(nil, 0, func(req domain.JoinRequest) hook.Action {
		verdicts++
		if req.Channel != nil && req.Channel.Name == "#secret" {
			return hook.Deny
		}
		return hook.Continue
	})

	assert.Equal(t, hook.Deny, c.Points.CanJoin.Run(domain.JoinRequest{Channel: &domain.Channel{Name: "#secret"}}))
	assert.Equal(t, hook.Continue, c.Points.CanJoin.Run(domain.JoinRequest{Channel: &domain.Channel{Name: "#lobby"}}))
	assert.Equal(t, 2, verdicts)
}
