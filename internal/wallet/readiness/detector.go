// Package readiness tracks whether the bound wallet provider is reachable in
// the current environment.
//
// A Detector is created once per adapter. If the environment cannot host a
// provider at all, the detector reports Unsupported forever and never polls.
// Otherwise Start launches an owned polling goroutine that probes immediately
// and then on every interval until the provider is found or Stop is called.
// Polling is unbounded until detected; a stopped detector cannot be restarted.
package readiness

// file: internal/wallet/readiness/detector.go

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkoosis/walletbridge/internal/logging"
)

// ReadyState describes provider reachability.
type ReadyState string

// Ready states.
const (
	Unsupported ReadyState = "Unsupported"
	NotDetected ReadyState = "NotDetected"
	Detected    ReadyState = "Detected"
	Loadable    ReadyState = "Loadable"
)

// Usable reports whether a connect attempt may proceed in this state.
func (r ReadyState) Usable() bool {
	return r == Detected || r == Loadable
}

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = time.Second

// EnvironmentProbe reads ambient environment state. Implementations must be
// idempotent and side-effect free.
type EnvironmentProbe interface {
	// HostAvailable reports whether the environment can present a provider at all.
	HostAvailable() bool
	// ProviderPresent reports whether the provider is reachable right now.
	ProviderPresent() bool
}

// Detector owns the ready state and the polling loop that updates it.
type Detector struct {
	probe         EnvironmentProbe
	interval      time.Duration
	detectedState ReadyState
	onChange      func(ReadyState)
	logger        logging.Logger

	state atomic.Value // ReadyState

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Detector.
type Option func(*Detector)

// WithInterval sets the polling period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(det *Detector) {
		if d > 0 {
			det.interval = d
		}
	}
}

// WithDetectedState sets the state reported once the probe succeeds.
// Only Detected and Loadable are accepted.
func WithDetectedState(s ReadyState) Option {
	return func(det *Detector) {
		if s.Usable() {
			det.detectedState = s
		}
	}
}

// WithOnChange registers a callback invoked from the polling goroutine when
// the state changes.
func WithOnChange(fn func(ReadyState)) Option {
	return func(det *Detector) { det.onChange = fn }
}

// WithLogger sets the detector's logger.
func WithLogger(l logging.Logger) Option {
	return func(det *Detector) { det.logger = logging.OrNoop(l) }
}

// NewDetector evaluates host support once and returns a detector in either
// Unsupported (terminal) or NotDetected state. A nil probe is Unsupported.
func NewDetector(probe EnvironmentProbe, opts ...Option) *Detector {
	d := &Detector{
		probe:         probe,
		interval:      DefaultInterval,
		detectedState: Detected,
		logger:        logging.GetNoopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithField("component", "readiness_detector")

	if probe == nil || !probe.HostAvailable() {
		d.state.Store(Unsupported)
		d.logger.Debug("Environment cannot host a provider; readiness is terminal.")
	} else {
		d.state.Store(NotDetected)
	}
	return d
}

// State returns the current ready state.
func (d *Detector) State() ReadyState {
	return d.state.Load().(ReadyState)
}

// Start launches the polling goroutine. It is a no-op when the detector is
// Unsupported, already started, or already stopped. Cancelling ctx has the
// same effect as Stop.
func (d *Detector) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped || d.State() == Unsupported {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go d.run(ctx, d.done)
}

// Stop cancels polling and waits for the goroutine to exit. Safe to call
// more than once and before Start.
func (d *Detector) Stop() {
	d.mu.Lock()
	d.stopped = true
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (d *Detector) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if d.poll() {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("Readiness polling cancelled.", "state", d.State())
			return
		case <-ticker.C:
			if d.poll() {
				return
			}
		}
	}
}

// poll runs one probe and reports whether polling should stop.
func (d *Detector) poll() bool {
	if !d.probe.ProviderPresent() {
		return false
	}
	d.state.Store(d.detectedState)
	d.logger.Info("Wallet provider detected.", "state", d.detectedState)
	if d.onChange != nil {
		d.onChange(d.detectedState)
	}
	return true
}
