package hook

import (
	"testing"

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

func testTable() *Table {
	return NewTable(logging.New(nil, "silent"))
}

func TestNotify_PriorityOrder(t *testing.T) {
	tbl := testTable()
	p := AddNotify[string](tbl, "test")

	var order []string
	record := func(tag string) func(string) {
		return func(string) { order = append(order, tag) }
	}

	// Registered out of order; ties keep registration order.
	p.Register(nil, 10, record("p10"))
	p.Register(nil, 5, record("p5a"))
	p.Register(nil, 5, record("p5b"))
	p.Register(nil, 20, record("p20"))

	p.Run("x")
	assert.Equal(t, []string{"p5a", "p5b", "p10", "p20"}, order)
}

func TestNotify_AllCallbacksRun(t *testing.T) {
	tbl := testTable()
	p := AddNotify[int](tbl, "test")

	sum := 0
	p.Register(nil, 0, func(v int) { sum += v })
	p.Register(nil, 1, func(v int) { sum += v * 10 })

	p.Run(3)
	assert.Equal(t, 33, sum)
}

func TestCheck_ShortCircuit(t *testing.T) {
	tbl := testTable()
	p := AddCheck[string](tbl, "test")

	var ran []int
	p.Register(nil, 1, func(string) Action { ran = append(ran, 1); return Continue })
	p.Register(nil, 2, func(string) Action { ran = append(ran, 2); return Deny })
	p.Register(nil, 3, func(string) Action { ran = append(ran, 3); return Allow })

	assert.Equal(t, Deny, p.Run("x"))
	assert.Equal(t, []int{1, 2}, ran, "callbacks after the verdict must not run")
}

func TestCheck_AllContinue(t *testing.T) {
	tbl := testTable()
	p := AddCheck[string](tbl, "test")

	p.Register(nil, 1, func(string) Action { return Continue })
	p.Register(nil, 2, func(string) Action { return Continue })

	assert.Equal(t, Continue, p.Run("x"))
}

func TestCheck_AllowWins(t *testing.T) {
	tbl := testTable()
	p := AddCheck[string](tbl, "test")

	p.Register(nil, 1, func(string) Action { return Allow })
	p.Register(nil, 2, func(string) Action { return Deny })

	assert.Equal(t, Allow, p.Run("x"))
}

func TestFilter_ThreadsValue(t *testing.T) {
	tbl := testTable()
	p := AddFilter[string](tbl, "test")

	p.Register(nil, 2, func(s string) string { return s + "b" })
	p.Register(nil, 1, func(s string) string { return s + "a" })

	assert.Equal(t, "xab", p.Run("x"))
}

func TestFilter_EmptyPointIsIdentity(t *testing.T) {
	tbl := testTable()
	p := AddFilter[int](tbl, "test")
	assert.Equal(t, 42, p.Run(42))
}

func TestTable_Unregister(t *testing.T) {
	log := logging.New(nil, "silent")
	coord := module.NewCoordinator(log)
	tbl := NewTable(log)
	p := AddNotify[string](tbl, "test")

	m1, err := coord.Load(nopDriver{"one"})
	require.NoError(t, err)
	m2, err := coord.Load(nopDriver{"two"})
	require.NoError(t, err)

	var ran []string
	p.Register(m1, 0, func(string) { ran = append(ran, "one") })
	p.Register(m2, 1, func(string) { ran = append(ran, "two") })

	tbl.Unregister(m1)
	p.Run("x")
	assert.Equal(t, []string{"two"}, ran)
	assert.Equal(t, 1, p.Len())
}

func TestTable_UnloadRemovesHooksImmediately(t *testing.T) {
	log := logging.New(nil, "silent")
	coord := module.NewCoordinator(log)
	tbl := NewTable(log)
	p := AddNotify[string](tbl, "test")

	m, err := coord.Load(nopDriver{"one"})
	require.NoError(t, err)
	p.Register(m, 0, func(string) {})

	// Hook callbacks have no revival semantics: even during a rehash the
	// unload removes them right away.
	coord.BeginRehash()
	require.NoError(t, coord.Unload("one"))
	assert.Equal(t, 0, p.Len())
	coord.EndRehash()
}

func TestNotify_RegisterDuringDispatch(t *testing.T) {
	tbl := testTable()
	p := AddNotify[string](tbl, "test")

	ran := 0
	p.Register(nil, 0, func(string) {
		ran++
		// Registering mid-dispatch must not affect the current run.
		p.Register(nil, 5, func(string) { ran += 100 })
	})

	p.Run("x")
	assert.Equal(t, 1, ran)

	p.Run("x")
	assert.Equal(t, 102, ran)
}

func TestTable_Points(t *testing.T) {
	tbl := testTable()
	AddNotify[string](tbl, "a")
	AddCheck[string](tbl, "b")
	AddFilter[string](tbl, "c")
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Points())
}
