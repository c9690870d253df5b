package buildstep

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State is a step's in-memory lifecycle state. Only the marker file is
// durable; a fresh process always starts unbuilt and moves to built when it
// finds the marker.
type State string

// Lifecycle states.
const (
	StateUnbuilt  State = "unbuilt"
	StateBuilding State = "building"
	StateBuilt    State = "built"
)

// Lifecycle events.
const (
	EventMarkerFound = "MARKER_FOUND"
	EventStart       = "START"
	EventSucceeded   = "SUCCEEDED"
	EventFailed      = "FAILED"
	EventPurge       = "PURGE"
)

// lifecycleContext counts attempts for diagnostics.
type lifecycleContext struct {
	Attempts int
	Failures int
}

// Lifecycle is the unbuilt -> building -> built machine of one step.
type Lifecycle struct {
	interp *statekit.Interpreter[lifecycleContext]
	ctx    *lifecycleContext
}

// NewLifecycle builds and starts a lifecycle machine named after the step.
func NewLifecycle(name string) (*Lifecycle, error) {
	lc := &Lifecycle{ctx: &lifecycleContext{}}

	machine, err := statekit.NewMachine[lifecycleContext]("step-"+name).
		WithInitial(statekit.StateID(StateUnbuilt)).
		WithContext(lifecycleContext{}).
		WithAction("countAttempt", func(_ *lifecycleContext, _ statekit.Event) {
			lc.ctx.Attempts++
		}).
		State(statekit.StateID(StateUnbuilt)).
		On(EventMarkerFound).Target(statekit.StateID(StateBuilt)).
		On(EventStart).Target(statekit.StateID(StateBuilding)).Done().
		State(statekit.StateID(StateBuilding)).
		OnEntry("countAttempt").
		On(EventSucceeded).Target(statekit.StateID(StateBuilt)).
		On(EventFailed).Target(statekit.StateID(StateUnbuilt)).Done().
		State(statekit.StateID(StateBuilt)).
		On(EventPurge).Target(statekit.StateID(StateUnbuilt)).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build lifecycle for %s: %w", name, err)
	}

	lc.interp = statekit.NewInterpreter(machine)
	lc.interp.Start()
	return lc, nil
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return State(l.interp.State().Value)
}

// Attempts returns how many times the step entered building.
func (l *Lifecycle) Attempts() int {
	return l.ctx.Attempts
}

// Failures returns how many builds failed.
func (l *Lifecycle) Failures() int {
	return l.ctx.Failures
}

func (l *Lifecycle) send(event string) {
	l.interp.Send(statekit.Event{Type: statekit.EventType(event)})
}

// MarkerFound records that the durable marker exists.
func (l *Lifecycle) MarkerFound() { l.send(EventMarkerFound) }

// Start records the beginning of a build.
func (l *Lifecycle) Start() { l.send(EventStart) }

// Succeed records a completed build.
func (l *Lifecycle) Succeed() { l.send(EventSucceeded) }

// Fail records a failed build.
func (l *Lifecycle) Fail() {
	l.ctx.Failures++
	l.send(EventFailed)
}

// Purge records that the step's outputs were removed.
func (l *Lifecycle) Purge() {
	if l.State() == StateBuilt {
		l.send(EventPurge)
	}
}
