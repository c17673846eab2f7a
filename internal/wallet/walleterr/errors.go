// Package walleterr defines the closed set of failure kinds the wallet adapter
// reports. Callers branch on the Kind; the original provider fault stays
// reachable through Unwrap for diagnostics.
package walleterr

// file: internal/wallet/walleterr/errors.go

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies why a wallet operation failed.
type Kind int

// Failure kinds. KindUnknown is never produced by the adapter; it is what
// KindOf reports for errors that carry no kind.
const (
	KindUnknown Kind = iota
	NotReady
	NotConnected
	DisconnectionFailed
	SignTransactionFailed
	SignAndSubmitFailed
	SignMessageFailed
	AccountChangeFailed
	NetworkChangeFailed
)

var kindNames = map[Kind]string{
	KindUnknown:           "Unknown",
	NotReady:              "NotReady",
	NotConnected:          "NotConnected",
	DisconnectionFailed:   "DisconnectionFailed",
	SignTransactionFailed: "SignTransactionFailed",
	SignAndSubmitFailed:   "SignAndSubmitFailed",
	SignMessageFailed:     "SignMessageFailed",
	AccountChangeFailed:   "AccountChangeFailed",
	NetworkChangeFailed:   "NetworkChangeFailed",
}

var defaultMessages = map[Kind]string{
	NotReady:              "wallet not ready",
	NotConnected:          "wallet not connected",
	DisconnectionFailed:   "wallet disconnection failed",
	SignTransactionFailed: "sign transaction failed",
	SignAndSubmitFailed:   "sign and submit transaction failed",
	SignMessageFailed:     "sign message failed",
	AccountChangeFailed:   "account change failed",
	NetworkChangeFailed:   "network change failed",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrProviderReturnedNothing is the cause recorded when a provider reports
// success but hands back no usable result.
var ErrProviderReturnedNothing = errors.New("provider returned no result")

// Sentinels for errors.Is matching on kind alone.
var (
	ErrNotReady              = &Error{Kind: NotReady}
	ErrNotConnected          = &Error{Kind: NotConnected}
	ErrDisconnectionFailed   = &Error{Kind: DisconnectionFailed}
	ErrSignTransactionFailed = &Error{Kind: SignTransactionFailed}
	ErrSignAndSubmitFailed   = &Error{Kind: SignAndSubmitFailed}
	ErrSignMessageFailed     = &Error{Kind: SignMessageFailed}
	ErrAccountChangeFailed   = &Error{Kind: AccountChangeFailed}
	ErrNetworkChangeFailed   = &Error{Kind: NetworkChangeFailed}
)

// Error is a classified wallet failure.
type Error struct {
	// Kind is what callers branch on.
	Kind Kind
	// Message is an optional human-readable description. When empty the
	// kind's default message is used.
	Message string
	// Cause is the underlying fault, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Kind]
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches bare sentinels (no message, no cause) by kind, so
// errors.Is(err, walleterr.ErrNotReady) works for any NotReady error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" || t.Cause != nil {
		return e == t
	}
	return e.Kind == t.Kind
}

// New creates a classified error. message may be empty; cause may be nil.
// The cause is annotated with a stack trace.
func New(kind Kind, message string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrap classifies cause as kind. A cause that already carries the same kind
// is returned unchanged, so faults are never double-wrapped. A nil cause
// yields nil.
func Wrap(kind Kind, cause error) error {
	if cause == nil {
		return nil
	}
	var existing *Error
	if errors.As(cause, &existing) && existing.Kind == kind {
		return cause
	}
	return New(kind, "", cause)
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind at its outermost classified layer.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
