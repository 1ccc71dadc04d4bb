package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	steps int
	limit int
}

func counting(c *counter) StateFn[counter] {
	c.steps++
	if c.steps >= c.limit {
		return nil
	}
	return counting
}

func TestStepRunsUntilTerminal(t *testing.T) {
	c := &counter{limit: 3}
	m := New(c, counting)

	assert.True(t, m.Step())
	assert.True(t, m.Step())
	assert.False(t, m.Step())
	assert.Equal(t, 3, c.steps)

	// Stepping a terminal machine is a no-op.
	assert.False(t, m.Step())
	assert.Equal(t, 3, c.steps)
	assert.Nil(t, m.Current())
}

type gate struct {
	stage string
	open  bool
}

func gateClosed(g *gate) StateFn[gate] {
	g.stage = "closed"
	if g.open {
		return gateOpen
	}
	return gateClosed
}

func gateOpen(g *gate) StateFn[gate] {
	g.stage = "open"
	return gateOpen
}

func TestSettleRunsDecidedTransitions(t *testing.T) {
	g := &gate{}
	m := New(g, gateClosed)

	m.Settle()
	assert.Equal(t, "closed", g.stage)

	// The closed state decides to transition; Settle must execute the open
	// state in the same call instead of leaving it pending.
	g.open = true
	m.Settle()
	assert.Equal(t, "open", g.stage)
}

func stepFirst(c *counter) StateFn[counter] {
	c.steps++
	return stepLast
}

func stepLast(c *counter) StateFn[counter] {
	c.steps++
	return nil
}

func TestSettleStopsAtTerminal(t *testing.T) {
	c := &counter{}
	m := New(c, stepFirst)

	m.Settle()
	assert.Equal(t, 2, c.steps)
	assert.Nil(t, m.Current())

	// Settling a terminal machine is a no-op.
	m.Settle()
	assert.Equal(t, 2, c.steps)
}

func TestDispatchJumpsAndRuns(t *testing.T) {
	c := &counter{limit: 10}
	m := New[counter](c, nil)
	require.Nil(t, m.Current())

	m.Dispatch(counting)
	assert.Equal(t, 1, c.steps)
	assert.NotNil(t, m.Current())
}

func TestSetRepositionsWithoutRunning(t *testing.T) {
	c := &counter{limit: 10}
	m := New[counter](c, nil)

	m.Set(counting)
	assert.Equal(t, 0, c.steps)
	assert.NotNil(t, m.Current())
	assert.True(t, m.Step())
	assert.Equal(t, 1, c.steps)
}

func TestStateFnsCanMutateEntity(t *testing.T) {
	type door struct{ open bool }
	var opened StateFn[door]
	opened = func(d *door) StateFn[door] {
		d.open = true
		return nil
	}
	d := &door{}
	m := New(d, opened)
	m.Step()
	assert.True(t, d.open)
}
