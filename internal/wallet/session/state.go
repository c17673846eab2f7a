package session

// file: internal/wallet/session/state.go

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/fsm"
	"github.com/dkoosis/walletbridge/internal/logging"
)

// Lifecycle states.
const (
	StateDisconnected fsm.State = "disconnected"
	StateConnecting   fsm.State = "connecting"
	StateConnected    fsm.State = "connected"
)

// Lifecycle events.
const (
	EventConnect       fsm.Event = "connect"
	EventConnected     fsm.Event = "connected"
	EventConnectFailed fsm.Event = "connect_failed"
	EventDisconnect    fsm.Event = "disconnect"
)

// ErrConnectSuperseded is returned by CommitConnect when a Disconnect ran
// while the connect attempt was in flight.
var ErrConnectSuperseded = errors.New("connect attempt superseded by disconnect")

// State is the session record. All methods are safe for concurrent use.
// FSM transitions run under context.WithoutCancel so a cancelled caller
// context never leaves the record half-updated.
type State struct {
	mu      sync.Mutex
	machine fsm.FSM
	logger  logging.Logger

	network     NetworkID
	connecting  bool
	account     *Account
	apiEndpoint string
	chainID     string

	// cancelAttempt cancels the context handed out by BeginConnect.
	cancelAttempt context.CancelFunc
}

// New creates a disconnected session bound to network.
func New(network NetworkID, logger logging.Logger) (*State, error) {
	if !network.Supported() {
		return nil, errors.Wrapf(ErrUnsupportedNetwork, "network %q", network)
	}
	log := logging.OrNoop(logger).WithField("component", "session")

	machine := fsm.NewFSM(StateDisconnected, log)
	machine.AddTransition(fsm.Transition{
		From:  []fsm.State{StateDisconnected},
		Event: EventConnect,
		To:    StateConnecting,
	})
	machine.AddTransition(fsm.Transition{
		From:  []fsm.State{StateConnecting},
		Event: EventConnected,
		To:    StateConnected,
	})
	machine.AddTransition(fsm.Transition{
		From:  []fsm.State{StateConnecting},
		Event: EventConnectFailed,
		To:    StateDisconnected,
	})
	machine.AddTransition(fsm.Transition{
		From:  []fsm.State{StateConnecting, StateConnected},
		Event: EventDisconnect,
		To:    StateDisconnected,
	})
	machine.OnEnter(func(from, to fsm.State, event fsm.Event) {
		log.Debug("Session state changed.", "from", from, "to", to, "event", event)
	})
	if err := machine.Build(); err != nil {
		return nil, errors.Wrap(err, "failed to build session state machine")
	}

	return &State{
		machine: machine,
		logger:  log,
		network: network,
	}, nil
}

// BeginConnect starts a connect attempt. It returns started=false, with no
// side effects, when the session is already connected or connecting. On
// success the returned context is cancelled by Disconnect or EndConnect.
func (s *State) BeginConnect(ctx context.Context) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connecting || s.account != nil {
		return ctx, false
	}
	if err := s.machine.Transition(context.WithoutCancel(ctx), EventConnect); err != nil {
		s.logger.Warn("Connect rejected by state machine.", "state", s.machine.CurrentState(), "error", err)
		return ctx, false
	}
	s.connecting = true

	attemptCtx, cancel := context.WithCancel(ctx)
	s.cancelAttempt = cancel
	return attemptCtx, true
}

// CommitConnect records the connected account and network. It fails with
// ErrConnectSuperseded if the attempt was disconnected in the meantime.
func (s *State) CommitConnect(ctx context.Context, account Account, apiEndpoint, chainID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connecting || s.machine.CurrentState() != StateConnecting {
		return ErrConnectSuperseded
	}
	if err := s.machine.Transition(context.WithoutCancel(ctx), EventConnected); err != nil {
		return errors.Wrap(err, "commit connect")
	}
	acc := account.clone()
	s.account = &acc
	s.apiEndpoint = apiEndpoint
	s.chainID = chainID
	return nil
}

// AbortConnect returns a failed attempt to the disconnected state. Nothing
// from the attempt is retained.
func (s *State) AbortConnect(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.CurrentState() == StateConnecting {
		if err := s.machine.Transition(context.WithoutCancel(ctx), EventConnectFailed); err != nil {
			s.logger.Error("Failed to record aborted connect.", "error", err)
		}
	}
	s.clearLocked()
}

// EndConnect clears the connecting flag. Call it on every exit path of a
// connect attempt that BeginConnect started.
func (s *State) EndConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connecting = false
	if s.cancelAttempt != nil {
		s.cancelAttempt()
		s.cancelAttempt = nil
	}
}

// Disconnect clears the session from any state and cancels an in-flight
// connect attempt. It reports whether an account was connected.
func (s *State) Disconnect(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	had := s.account != nil
	if s.cancelAttempt != nil {
		s.cancelAttempt()
	}
	if s.machine.CanTransition(EventDisconnect) {
		if err := s.machine.Transition(context.WithoutCancel(ctx), EventDisconnect); err != nil {
			s.logger.Error("Failed to record disconnect.", "error", err)
		}
	}
	s.clearLocked()
	return had
}

// clearLocked drops the account and the provider-sourced network fields.
func (s *State) clearLocked() {
	s.account = nil
	s.apiEndpoint = ""
	s.chainID = ""
}

// Account returns a copy of the connected account, or the zero Account.
func (s *State) Account() Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return Account{}
	}
	return s.account.clone()
}

// Network returns the bound network and, while connected, its endpoint and chain ID.
func (s *State) Network() NetworkInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.networkLocked()
}

func (s *State) networkLocked() NetworkInfo {
	return NetworkInfo{Name: s.network, APIEndpoint: s.apiEndpoint, ChainID: s.chainID}
}

// Connecting reports whether a connect attempt is in flight.
func (s *State) Connecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connecting
}

// Connected reports whether an account is connected.
func (s *State) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account != nil
}

// Current returns the lifecycle state.
func (s *State) Current() fsm.State {
	return s.machine.CurrentState()
}

// Snapshot returns a consistent copy of the record.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Connecting: s.connecting,
		Connected:  s.account != nil,
		Network:    s.networkLocked(),
	}
	if s.account != nil {
		snap.Account = s.account.clone()
	}
	return snap
}
