// Package envprobe provides readiness.EnvironmentProbe implementations.
package envprobe

// file: internal/envprobe/probe.go

import (
	"os"

	"github.com/dkoosis/walletbridge/internal/wallet/readiness"
	"golang.org/x/term"
)

// EnvAssumeTTY forces Terminal.HostAvailable to report true when set to a
// non-empty value. Useful under CI or when output is piped.
const EnvAssumeTTY = "WALLETBRIDGE_ASSUME_TTY"

var (
	_ readiness.EnvironmentProbe = Static{}
	_ readiness.EnvironmentProbe = Func{}
	_ readiness.EnvironmentProbe = (*Terminal)(nil)
)

// Static reports fixed answers.
type Static struct {
	Host    bool
	Present bool
}

// HostAvailable implements readiness.EnvironmentProbe.
func (s Static) HostAvailable() bool { return s.Host }

// ProviderPresent implements readiness.EnvironmentProbe.
func (s Static) ProviderPresent() bool { return s.Present }

// Func delegates to functions. A nil function reports false.
type Func struct {
	Host    func() bool
	Present func() bool
}

// HostAvailable implements readiness.EnvironmentProbe.
func (f Func) HostAvailable() bool { return f.Host != nil && f.Host() }

// ProviderPresent implements readiness.EnvironmentProbe.
func (f Func) ProviderPresent() bool { return f.Present != nil && f.Present() }

// Terminal treats an interactive terminal as the host context: without one
// there is nobody to approve a connect, so the environment is unsupported.
type Terminal struct {
	file    *os.File
	present func() bool
}

// NewTerminal probes f for a terminal. present reports whether the provider
// is reachable; nil means always.
func NewTerminal(f *os.File, present func() bool) *Terminal {
	return &Terminal{file: f, present: present}
}

// HostAvailable reports whether the file is a terminal or EnvAssumeTTY is set.
func (t *Terminal) HostAvailable() bool {
	if os.Getenv(EnvAssumeTTY) != "" {
		return true
	}
	if t.file == nil {
		return false
	}
	return term.IsTerminal(int(t.file.Fd())) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
}

// ProviderPresent implements readiness.EnvironmentProbe.
func (t *Terminal) ProviderPresent() bool {
	if t.present == nil {
		return true
	}
	return t.present()
}
