package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticCheck(state State, msg string) Check {
	return func(context.Context) Result {
		return Result{State: state, Message: msg}
	}
}

func TestSummarizeAllActive(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("config-file", staticCheck(StateActive, "in place"))
	c.RegisterFunc("database", staticCheck(StateActive, "configured"))

	s := c.Summarize(context.Background())
	assert.Equal(t, StateActive, s.State)
	assert.Equal(t, "slurmdbd available", s.Message)
	require.Len(t, s.Components, 2)
	assert.Equal(t, "config-file", s.Components[0].Name)
	assert.Equal(t, "database", s.Components[1].Name)
	assert.Equal(t, "in place", s.Components[0].Message)
}

func TestSummarizeBlockedWinsOverWaiting(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("config-file", staticCheck(StateWaiting, ""))
	c.RegisterFunc("database", staticCheck(StateBlocked, ""))
	c.RegisterFunc("munge", staticCheck(StateActive, ""))

	s := c.Summarize(context.Background())
	assert.Equal(t, StateBlocked, s.State)
	assert.Equal(t, "need: database", s.Message)
}

func TestSummarizeWaiting(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("munge", staticCheck(StateWaiting, ""))
	c.RegisterFunc("service", staticCheck(StateWaiting, ""))

	s := c.Summarize(context.Background())
	assert.Equal(t, StateWaiting, s.State)
	assert.Equal(t, "waiting on: munge,service", s.Message)
}

func TestSummarizeKeepsRegistrationOrder(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("zeta", staticCheck(StateBlocked, ""))
	c.RegisterFunc("alpha", staticCheck(StateBlocked, ""))

	s := c.Summarize(context.Background())
	assert.Equal(t, "need: zeta,alpha", s.Message)
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker()
	c.Register(&Component{
		Name:    "slow",
		Timeout: 50 * time.Millisecond,
		Check: func(context.Context) Result {
			time.Sleep(500 * time.Millisecond)
			return Result{State: StateActive}
		},
	})

	res := c.Check(context.Background())["slow"]
	assert.Equal(t, StateBlocked, res.State)
	assert.Equal(t, "check timed out", res.Message)
	assert.Contains(t, res.Error, "deadline")
}

func TestCheckPanicRecovery(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("boom", func(context.Context) Result {
		panic("kaboom")
	})

	res := c.Check(context.Background())["boom"]
	assert.Equal(t, StateBlocked, res.State)
	assert.Equal(t, "check panicked", res.Message)
	assert.Equal(t, "kaboom", res.Error)
}

func TestResultsBeforeCheck(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("service", staticCheck(StateActive, ""))

	res, ok := c.Results()["service"]
	require.True(t, ok)
	assert.Equal(t, StateUnknown, res.State)
	assert.True(t, res.Checked.IsZero())
}

func TestResultsAfterCheck(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("service", staticCheck(StateActive, "running"))
	c.Check(context.Background())

	res := c.Results()["service"]
	assert.Equal(t, StateActive, res.State)
	assert.Equal(t, "running", res.Message)
	assert.False(t, res.Checked.IsZero())
}
