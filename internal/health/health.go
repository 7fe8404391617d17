// Package health runs component checks and folds them into the single
// state an operator acts on: blocked while prerequisites are missing,
// waiting while components come up, active when everything is green.
package health

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// State classifies one component or the whole aggregate.
type State string

const (
	// StateActive indicates the component is up and configured.
	StateActive State = "active"
	// StateWaiting indicates the component exists but is not ready yet.
	StateWaiting State = "waiting"
	// StateBlocked indicates a missing prerequisite that needs operator action.
	StateBlocked State = "blocked"
	// StateUnknown indicates the component has not been checked.
	StateUnknown State = "unknown"
)

// Result is the outcome of one component check.
type Result struct {
	State    State         `json:"state"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Checked  time.Time     `json:"checked"`
	Duration time.Duration `json:"duration_ns"`
}

// Check probes one component.
type Check func(ctx context.Context) Result

// Component is a named check with its own timeout.
type Component struct {
	Name    string
	Check   Check
	Timeout time.Duration
}

// Checker runs registered component checks. Components keep their
// registration order, so aggregate messages enumerate them
// deterministically.
type Checker struct {
	mu         sync.RWMutex
	components []*Component
	results    map[string]Result
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{results: make(map[string]Result)}
}

// Register adds a component. A zero timeout defaults to five seconds.
func (c *Checker) Register(comp *Component) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if comp.Timeout == 0 {
		comp.Timeout = 5 * time.Second
	}
	c.components = append(c.components, comp)
	c.results[comp.Name] = Result{State: StateUnknown}
}

// RegisterFunc adds a component from a bare check function.
func (c *Checker) RegisterFunc(name string, check Check) {
	c.Register(&Component{Name: name, Check: check})
}

// Check runs every registered component concurrently and returns the
// fresh results, keyed by component name.
func (c *Checker) Check(ctx context.Context) map[string]Result {
	c.mu.RLock()
	comps := make([]*Component, len(c.components))
	copy(comps, c.components)
	c.mu.RUnlock()

	out := make(map[string]Result, len(comps))
	var (
		outMu sync.Mutex
		wg    sync.WaitGroup
	)
	for _, comp := range comps {
		wg.Add(1)
		go func(comp *Component) {
			defer wg.Done()
			r := c.runOne(ctx, comp)
			outMu.Lock()
			out[comp.Name] = r
			outMu.Unlock()
		}(comp)
	}
	wg.Wait()

	c.mu.Lock()
	for name, r := range out {
		c.results[name] = r
	}
	c.mu.Unlock()
	return out
}

// runOne executes a single check under its timeout, recovering a
// panicking check into a blocked result.
func (c *Checker) runOne(ctx context.Context, comp *Component) Result {
	checkCtx, cancel := context.WithTimeout(ctx, comp.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Result{
					State:   StateBlocked,
					Message: "check panicked",
					Error:   fmt.Sprintf("%v", r),
				}
			}
		}()
		done <- comp.Check(checkCtx)
	}()

	var res Result
	select {
	case res = <-done:
	case <-checkCtx.Done():
		res = Result{
			State:   StateBlocked,
			Message: "check timed out",
			Error:   checkCtx.Err().Error(),
		}
	}
	res.Checked = start
	res.Duration = time.Since(start)
	return res
}

// Results returns the last known result per component.
func (c *Checker) Results() map[string]Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Result, len(c.results))
	for name, r := range c.results {
		out[name] = r
	}
	return out
}

// ComponentResult pairs a component name with its result.
type ComponentResult struct {
	Name string `json:"name"`
	Result
}

// Summary is the aggregate state with per-component detail in
// registration order.
type Summary struct {
	State      State             `json:"state"`
	Message    string            `json:"message"`
	Components []ComponentResult `json:"components"`
}

// Summarize runs all checks and folds them into one state. Blocked
// components win over waiting ones; the aggregate message enumerates
// the offenders in registration order.
func (c *Checker) Summarize(ctx context.Context) Summary {
	results := c.Check(ctx)

	c.mu.RLock()
	comps := make([]*Component, len(c.components))
	copy(comps, c.components)
	c.mu.RUnlock()

	s := Summary{State: StateActive, Message: "slurmdbd available"}
	var blocked, waiting []string
	for _, comp := range comps {
		r := results[comp.Name]
		s.Components = append(s.Components, ComponentResult{Name: comp.Name, Result: r})
		switch r.State {
		case StateBlocked:
			blocked = append(blocked, comp.Name)
		case StateWaiting, StateUnknown:
			waiting = append(waiting, comp.Name)
		}
	}

	switch {
	case len(blocked) > 0:
		s.State = StateBlocked
		s.Message = "need: " + strings.Join(blocked, ",")
	case len(waiting) > 0:
		s.State = StateWaiting
		s.Message = "waiting on: " + strings.Join(waiting, ",")
	}
	return s
}
