// Package fsm provides a small finite state machine builder on top of looplab/fsm.
// file: internal/fsm/fsm.go
package fsm

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/logging"
	lfsm "github.com/looplab/fsm" // Use alias 'lfsm'.
)

// State represents a state in the FSM.
type State string

// Event represents an event that can trigger a state transition.
type Event string

// Transition defines a transition rule between states.
type Transition struct {
	From  []State // Source states for this transition.
	To    State   // The destination state.
	Event Event   // The event triggering the transition.
}

// FSM is the state machine surface used by the rest of the module.
type FSM interface {
	// AddTransition stores a transition definition. Call Build() after adding all transitions.
	AddTransition(transition Transition) FSM
	// Build finalizes the FSM configuration and creates the underlying machine.
	Build() error
	// CurrentState returns the current state, or "" before a successful Build().
	CurrentState() State
	// CanTransition reports whether event is defined for the current state.
	CanTransition(event Event) bool
	// Transition fires event. Requires Build().
	Transition(ctx context.Context, event Event) error
	// OnEnter registers a hook invoked after every successful transition.
	// Must be called before Build().
	OnEnter(hook func(from, to State, event Event)) FSM
}

// ErrNotBuilt is returned by Transition when Build() has not succeeded.
var ErrNotBuilt = errors.New("fsm: Build() has not been called")

// loopFSM implements FSM using looplab/fsm.
type loopFSM struct {
	initialState State
	logger       logging.Logger
	transitions  []Transition
	hooks        []func(from, to State, event Event)
	fsm          *lfsm.FSM // nil until Build() succeeds.
	buildErr     error
	mu           sync.RWMutex
}

// NewFSM creates a new FSM builder with the specified initial state.
// Call AddTransition() to define transitions, then Build() to finalize.
func NewFSM(initialState State, logger logging.Logger) FSM {
	return &loopFSM{
		initialState: initialState,
		logger:       logging.OrNoop(logger).WithField("component", "fsm"),
	}
}

// AddTransition stores a transition definition to be used during Build().
func (l *loopFSM) AddTransition(t Transition) FSM {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.fsm != nil:
		l.setBuildErr(errors.New("cannot AddTransition after Build"))
	case len(t.From) == 0:
		l.setBuildErr(errors.Newf("transition for event %q has no source states", t.Event))
	default:
		l.transitions = append(l.transitions, t)
	}
	return l
}

// OnEnter registers a post-transition hook.
func (l *loopFSM) OnEnter(hook func(from, to State, event Event)) FSM {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fsm != nil {
		l.setBuildErr(errors.New("cannot register OnEnter hook after Build"))
		return l
	}
	if hook != nil {
		l.hooks = append(l.hooks, hook)
	}
	return l
}

func (l *loopFSM) setBuildErr(err error) {
	l.logger.Error("Invalid FSM configuration.", "error", err)
	if l.buildErr == nil {
		l.buildErr = err
	}
}

// Build finalizes the configuration. Calling it again returns the first result.
func (l *loopFSM) Build() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fsm != nil || l.buildErr != nil {
		return l.buildErr
	}

	descs := make(map[Event]*lfsm.EventDesc)
	order := make([]Event, 0, len(l.transitions))
	for _, t := range l.transitions {
		desc, ok := descs[t.Event]
		if !ok {
			desc = &lfsm.EventDesc{Name: string(t.Event), Dst: string(t.To)}
			descs[t.Event] = desc
			order = append(order, t.Event)
		} else if desc.Dst != string(t.To) {
			l.buildErr = errors.Newf("conflicting destinations (%q and %q) for event %q", desc.Dst, t.To, t.Event)
			return l.buildErr
		}
		for _, s := range t.From {
			if !containsString(desc.Src, string(s)) {
				desc.Src = append(desc.Src, string(s))
			}
		}
	}

	events := make(lfsm.Events, 0, len(order))
	for _, e := range order {
		events = append(events, *descs[e])
	}

	hooks := append([]func(from, to State, event Event){}, l.hooks...)
	callbacks := lfsm.Callbacks{
		"enter_state": func(_ context.Context, e *lfsm.Event) {
			for _, hook := range hooks {
				hook(State(e.Src), State(e.Dst), Event(e.Event))
			}
		},
	}

	l.fsm = lfsm.NewFSM(string(l.initialState), events, callbacks)
	l.logger.Debug("FSM built.", "initialState", l.initialState, "events", len(events))
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CurrentState returns the current state of the FSM.
func (l *loopFSM) CurrentState() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.fsm == nil {
		return ""
	}
	return State(l.fsm.Current())
}

// CanTransition checks if the given event can fire from the current state.
func (l *loopFSM) CanTransition(event Event) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.fsm == nil {
		return false
	}
	return l.fsm.Can(string(event))
}

// Transition fires event on the underlying machine.
func (l *loopFSM) Transition(ctx context.Context, event Event) error {
	l.mu.RLock()
	machine := l.fsm
	l.mu.RUnlock()
	if machine == nil {
		return ErrNotBuilt
	}

	from := machine.Current()
	if err := machine.Event(ctx, string(event)); err != nil {
		l.logger.Debug("FSM transition rejected.", "event", event, "from_state", from, "error", err)
		return errors.Wrapf(err, "fsm: event %q from state %q", event, from)
	}
	l.logger.Debug("FSM transition.", "event", event, "from_state", from, "to_state", machine.Current())
	return nil
}

// IsInvalidEvent reports whether err came from firing an event that is not
// permitted in the current state.
func IsInvalidEvent(err error) bool {
	var invalid lfsm.InvalidEventError
	return errors.As(err, &invalid)
}
