// Package metrics collects wallet session lifecycle metrics from adapter events.
// file: internal/metrics/wallet_metrics.go.
package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/wallet/events"
	"github.com/dkoosis/walletbridge/internal/wallet/readiness"
	"github.com/dkoosis/walletbridge/internal/wallet/session"
	"github.com/dkoosis/walletbridge/internal/wallet/walleterr"
)

// SessionMetrics is a point-in-time copy of the collected metrics.
type SessionMetrics struct {
	StartTime     time.Time     `json:"startTime"`
	Uptime        time.Duration `json:"uptime"`
	GoVersion     string        `json:"goVersion"`
	NumGoroutines int           `json:"numGoroutines"`

	// Lifecycle counts.
	Connects    int    `json:"connects"`
	Disconnects int    `json:"disconnects"`
	Connected   bool   `json:"connected"`
	Address     string `json:"address,omitempty"`

	// ReadyState is the last state reported by the detector.
	ReadyState readiness.ReadyState `json:"readyState,omitempty"`

	// Errors counts error events by taxonomy kind name.
	Errors map[string]int `json:"errors"`

	LastErrors []ErrorInfo `json:"lastErrors,omitempty"`
}

// ErrorInfo contains details about an error event.
type ErrorInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}

// Collector accumulates metrics. It is safe for concurrent use.
type Collector struct {
	metrics     SessionMetrics
	errorBuffer []ErrorInfo
	bufferSize  int
	mu          sync.RWMutex
	now         func() time.Time
}

// NewCollector creates a collector keeping the last errorBufferSize errors.
func NewCollector(errorBufferSize int) *Collector {
	if errorBufferSize < 0 {
		errorBufferSize = 0
	}
	now := time.Now
	return &Collector{
		metrics: SessionMetrics{
			StartTime: now(),
			GoVersion: runtime.Version(),
			Errors:    make(map[string]int),
		},
		errorBuffer: make([]ErrorInfo, 0, errorBufferSize),
		bufferSize:  errorBufferSize,
		now:         now,
	}
}

// Attach subscribes the collector to the adapter events on e. The returned
// function detaches it.
func (c *Collector) Attach(e events.Emitter) func() {
	offs := []func(){
		e.On(events.Connect, func(p any) {
			acc, _ := p.(session.Account)
			c.RecordConnect(acc)
		}),
		e.On(events.Disconnect, func(any) { c.RecordDisconnect() }),
		e.On(events.Error, func(p any) {
			err, ok := p.(error)
			if !ok {
				err = errors.Newf("non-error payload on error event: %v", p)
			}
			c.RecordError(err)
		}),
		e.On(events.ReadyStateChange, func(p any) {
			if rs, ok := p.(readiness.ReadyState); ok {
				c.RecordReadyState(rs)
			}
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// RecordConnect counts a successful connect.
func (c *Collector) RecordConnect(acc session.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.Connects++
	c.metrics.Connected = true
	c.metrics.Address = acc.Address
}

// RecordDisconnect counts a disconnect call.
func (c *Collector) RecordDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.Disconnects++
	c.metrics.Connected = false
	c.metrics.Address = ""
}

// RecordReadyState stores the latest ready state.
func (c *Collector) RecordReadyState(rs readiness.ReadyState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.ReadyState = rs
}

// RecordError counts err under its taxonomy kind and adds it to the buffer.
func (c *Collector) RecordError(err error) {
	if err == nil {
		return
	}
	kind := walleterr.KindOf(err).String()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.Errors[kind]++

	if c.bufferSize == 0 {
		return
	}
	if len(c.errorBuffer) >= c.bufferSize {
		// Remove oldest error.
		c.errorBuffer = c.errorBuffer[1:]
	}
	c.errorBuffer = append(c.errorBuffer, ErrorInfo{
		Timestamp: c.now(),
		Kind:      kind,
		Message:   err.Error(),
	})
}

// Snapshot returns a copy of the current metrics.
func (c *Collector) Snapshot() SessionMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := c.metrics
	out.Uptime = c.now().Sub(c.metrics.StartTime)
	out.NumGoroutines = runtime.NumGoroutine()

	out.Errors = make(map[string]int, len(c.metrics.Errors))
	for k, v := range c.metrics.Errors {
		out.Errors[k] = v
	}
	if len(c.errorBuffer) > 0 {
		out.LastErrors = make([]ErrorInfo, len(c.errorBuffer))
		copy(out.LastErrors, c.errorBuffer)
	}
	return out
}
