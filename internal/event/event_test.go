package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

type nopDriver struct{ name string }

func (d nopDriver) Header() module.Info         { return module.Info{Name: d.name, Version: "1.0"} }
func (d nopDriver) Test(*module.Module) error   { return nil }
func (d nopDriver) Init(*module.Module) error   { return nil }
func (d nopDriver) Load(*module.Module) error   { return nil }
func (d nopDriver) Unload(*module.Module) error { return nil }

func testList() *List {
	return NewList(logging.New(nil, "silent"))
}

func TestList_DoEventsRespectsInterval(t *testing.T) {
	l := testList()
	ran := 0
	l.Add(nil, "tick", 10*time.Second, 0, func(time.Time) { ran++ })

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	// First tick always runs.
	l.DoEvents(base)
	assert.Equal(t, 1, ran)

	// Not due yet.
	l.DoEvents(base.Add(5 * time.Second))
	assert.Equal(t, 1, ran)

	l.DoEvents(base.Add(10 * time.Second))
	assert.Equal(t, 2, ran)
}

func TestList_CountLimitsRuns(t *testing.T) {
	l := testList()
	ran := 0
	l.Add(nil, "twice", time.Second, 2, func(time.Time) { ran++ })

	base := time.Now()
	for i := 0; i < 5; i++ {
		l.DoEvents(base.Add(time.Duration(i) * time.Second))
	}
	assert.Equal(t, 2, ran)
	assert.Equal(t, 0, l.Len(), "an expired event is pruned")
}

func TestList_MarkDelFromOwnCallback(t *testing.T) {
	l := testList()
	ran := 0
	var ev *Event
	ev = l.Add(nil, "once", time.Second, 0, func(time.Time) {
		ran++
		l.MarkDel(ev)
	})

	base := time.Now()
	l.DoEvents(base)
	l.DoEvents(base.Add(time.Second))
	assert.Equal(t, 1, ran)
	assert.Nil(t, l.Find("once"))
}

func TestList_Find(t *testing.T) {
	l := testList()
	ev := l.Add(nil, "save", time.Minute, 0, func(time.Time) {})
	assert.Same(t, ev, l.Find("save"))
	assert.Nil(t, l.Find("missing"))
	assert.Equal(t, "save", ev.Name())
}

func TestList_UnloadRemovesEventsImmediately(t *testing.T) {
	log := logging.New(nil, "silent")
	coord := module.NewCoordinator(log)
	l := NewList(log)

	m, err := coord.Load(nopDriver{"m"})
	require.NoError(t, err)

	ran := 0
	l.Add(m, "tick", time.Second, 0, func(time.Time) { ran++ })

	// Events have no revival semantics, even mid-rehash.
	coord.BeginRehash()
	require.NoError(t, coord.Unload("m"))
	coord.EndRehash()

	l.DoEvents(time.Now())
	assert.Equal(t, 0, ran)
	assert.Equal(t, 0, l.Len())
}
