package adapter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/wallet/bridge"
	"github.com/dkoosis/walletbridge/internal/wallet/bridge/bridgetest"
	"github.com/dkoosis/walletbridge/internal/wallet/events"
	"github.com/dkoosis/walletbridge/internal/wallet/readiness"
	"github.com/dkoosis/walletbridge/internal/wallet/session"
	"github.com/dkoosis/walletbridge/internal/wallet/walleterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Helpers ---.

type staticProbe struct {
	host    bool
	present bool
}

func (p staticProbe) HostAvailable() bool   { return p.host }
func (p staticProbe) ProviderPresent() bool { return p.present }

var (
	readyProbe       = staticProbe{host: true, present: true}
	notDetectedProbe = staticProbe{host: true, present: false}
	unsupportedProbe = staticProbe{host: false}
)

type recordedEvent struct {
	name    events.Name
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func newRecorder(bus *events.Bus) *recorder {
	r := &recorder{}
	for _, name := range []events.Name{events.Connect, events.Disconnect, events.Error, events.ReadyStateChange} {
		name := name
		bus.On(name, func(p any) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, recordedEvent{name: name, payload: p})
		})
	}
	return r
}

func (r *recorder) named(name events.Name) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) order() []events.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Name
	for _, e := range r.events {
		if e.name != events.ReadyStateChange {
			out = append(out, e.name)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }

func testConnectResponse() *bridge.ConnectResponse {
	return &bridge.ConnectResponse{PublicKey: "0xAA", Address: "0x01", AuthKey: "0xBB", MinKeysRequired: intPtr(1)}
}

func testNetworkResponse() *bridge.NetworkResponse {
	return &bridge.NetworkResponse{API: "https://t.example", ChainID: "2"}
}

func expectHappyConnect(p *bridgetest.MockProvider) {
	p.On("IsConnected", mock.Anything).Return(false, nil)
	p.On("Connect", mock.Anything).Return(testConnectResponse(), nil)
	p.On("Network", mock.Anything).Return(testNetworkResponse(), nil)
}

func newTestAdapter(t *testing.T, probe readiness.EnvironmentProbe, opts ...Option) (*Adapter, *bridgetest.MockProvider, *recorder) {
	t.Helper()
	p := &bridgetest.MockProvider{}
	bus := events.NewBus(nil)
	rec := newRecorder(bus)

	cfg := DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	a, err := New(p, probe, cfg, append([]Option{WithEmitter(bus)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	if probe.HostAvailable() && probe.ProviderPresent() {
		require.Eventually(t, func() bool { return a.ReadyState().Usable() }, time.Second, time.Millisecond,
			"detector should settle")
	}
	return a, p, rec
}

func connectedAdapter(t *testing.T) (*Adapter, *bridgetest.MockProvider, *recorder) {
	t.Helper()
	a, p, rec := newTestAdapter(t, readyProbe)
	expectHappyConnect(p)
	require.NoError(t, a.Connect(context.Background()))
	require.True(t, a.Connected())
	return a, p, rec
}

// --- Construction ---.

func TestNew_RejectsDevnet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Network = session.Devnet
	_, err := New(&bridgetest.MockProvider{}, readyProbe, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrUnsupportedNetwork)
}

func TestNew_RejectsNilProvider(t *testing.T) {
	_, err := New(nil, readyProbe, DefaultConfig())
	assert.Error(t, err)
}

func TestAdapter_GettersBeforeConnect(t *testing.T) {
	a, _, _ := newTestAdapter(t, notDetectedProbe)

	assert.True(t, a.Account().IsZero())
	assert.Equal(t, session.NetworkInfo{Name: session.Testnet}, a.Network())
	assert.False(t, a.Connecting())
	assert.False(t, a.Connected())
	assert.Equal(t, readiness.NotDetected, a.ReadyState())
	assert.Equal(t, "Blocto", a.Name())
	assert.Equal(t, "https://portto.com/download", a.URL())

	snap := a.Snapshot()
	assert.Equal(t, readiness.NotDetected, snap.ReadyState)
	assert.False(t, snap.Connected)
}

func TestAdapter_UnsupportedEnvironment(t *testing.T) {
	a, _, rec := newTestAdapter(t, unsupportedProbe)
	assert.Equal(t, readiness.Unsupported, a.ReadyState())
	assert.Empty(t, rec.named(events.ReadyStateChange))
}

func TestAdapter_ReadyStateChangeEvent(t *testing.T) {
	a, _, rec := newTestAdapter(t, readyProbe, WithDetectorOptions(readiness.WithDetectedState(readiness.Loadable)))

	assert.Equal(t, readiness.Loadable, a.ReadyState())
	require.Eventually(t, func() bool { return len(rec.named(events.ReadyStateChange)) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, readiness.Loadable, rec.named(events.ReadyStateChange)[0].payload)
}

func TestAdapter_CloseIsIdempotent(t *testing.T) {
	a, _, _ := newTestAdapter(t, notDetectedProbe)
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestChainID(t *testing.T) {
	id, ok := ChainID(session.Mainnet)
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	id, ok = ChainID(session.Testnet)
	assert.True(t, ok)
	assert.Equal(t, 2, id)

	_, ok = ChainID(session.Devnet)
	assert.False(t, ok)
}

// --- Connect ---.

func TestAdapter_Connect_Succeeds(t *testing.T) {
	a, p, rec := newTestAdapter(t, readyProbe)
	expectHappyConnect(p)

	require.NoError(t, a.Connect(context.Background()))

	assert.True(t, a.Connected())
	assert.False(t, a.Connecting())
	assert.Equal(t, "0x01", a.Account().Address)
	assert.Equal(t, []byte{0xAA}, a.Account().PublicKey)
	assert.Equal(t, []byte{0xBB}, a.Account().AuthKey)
	assert.Equal(t, "2", a.Network().ChainID)
	assert.Equal(t, "https://t.example", a.Network().APIEndpoint)

	connects := rec.named(events.Connect)
	require.Len(t, connects, 1, "exactly one connect event")
	acc, ok := connects[0].payload.(session.Account)
	require.True(t, ok)
	assert.Equal(t, "0x01", acc.Address)
	assert.Empty(t, rec.named(events.Error))
	p.AssertExpectations(t)
}

func TestAdapter_Connect_WhileConnectedIsNoOp(t *testing.T) {
	a, p, rec := connectedAdapter(t)
	before := a.Snapshot()

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Connect(context.Background()))
	}

	assert.Equal(t, before, a.Snapshot(), "account and network unchanged")
	assert.Len(t, rec.named(events.Connect), 1, "no duplicate connect event")
	p.AssertNumberOfCalls(t, "Connect", 1)
}

func TestAdapter_Connect_WhileConnectingIsNoOp(t *testing.T) {
	a, p, rec := newTestAdapter(t, readyProbe)
	entered := make(chan struct{})
	release := make(chan struct{})
	p.On("IsConnected", mock.Anything).Return(false, nil)
	p.On("Connect", mock.Anything).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(testConnectResponse(), nil)
	p.On("Network", mock.Anything).Return(testNetworkResponse(), nil)

	done := make(chan error, 1)
	go func() { done <- a.Connect(context.Background()) }()
	<-entered

	assert.True(t, a.Connecting())
	assert.NoError(t, a.Connect(context.Background()), "second connect returns immediately")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, a.Connecting())
	assert.True(t, a.Connected())
	assert.Len(t, rec.named(events.Connect), 1)
	p.AssertNumberOfCalls(t, "IsConnected", 1)
}

func TestAdapter_Connect_NotReady(t *testing.T) {
	for name, probe := range map[string]staticProbe{
		"NotDetected": notDetectedProbe,
		"Unsupported": unsupportedProbe,
	} {
		t.Run(name, func(t *testing.T) {
			a, p, rec := newTestAdapter(t, probe)
			before := a.Snapshot()

			err := a.Connect(context.Background())
			require.Error(t, err)
			assert.Equal(t, walleterr.NotReady, walleterr.KindOf(err))
			assert.ErrorIs(t, err, walleterr.ErrNotReady)

			assert.Equal(t, before, a.Snapshot(), "session state untouched")
			require.Len(t, rec.named(events.Error), 1)
			assert.Same(t, err, rec.named(events.Error)[0].payload)
			p.AssertNotCalled(t, "Connect", mock.Anything)
			p.AssertNotCalled(t, "IsConnected", mock.Anything)
		})
	}
}

func TestAdapter_Connect_ProviderRejects(t *testing.T) {
	a, p, rec := newTestAdapter(t, readyProbe)
	fault := errors.New("rejected")
	p.On("IsConnected", mock.Anything).Return(false, nil)
	p.On("Connect", mock.Anything).Return(nil, fault)

	err := a.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fault, "caller sees the provider's fault")
	assert.Contains(t, err.Error(), "rejected")

	errs := rec.named(events.Error)
	require.Len(t, errs, 1)
	assert.Equal(t, err, errs[0].payload)
	assert.False(t, a.Connected())
	assert.False(t, a.Connecting())
	assert.Empty(t, rec.named(events.Connect))
	p.AssertNotCalled(t, "Network", mock.Anything)
}

func TestAdapter_Connect_NetworkFailureLeavesNoPartialState(t *testing.T) {
	a, p, rec := newTestAdapter(t, readyProbe)
	p.On("IsConnected", mock.Anything).Return(false, nil)
	p.On("Connect", mock.Anything).Return(testConnectResponse(), nil)
	p.On("Network", mock.Anything).Return(nil, errors.New("network unavailable"))

	err := a.Connect(context.Background())
	require.Error(t, err)

	assert.True(t, a.Account().IsZero(), "account must not be partially populated")
	assert.Empty(t, a.Network().APIEndpoint)
	assert.Empty(t, a.Network().ChainID)
	assert.False(t, a.Connected())
	assert.False(t, a.Connecting())
	assert.Len(t, rec.named(events.Error), 1)
	assert.Empty(t, rec.named(events.Connect))
}

func TestAdapter_Connect_DisconnectsStaleSessionFirst(t *testing.T) {
	a, p, _ := newTestAdapter(t, readyProbe)
	var calls []string
	var mu sync.Mutex
	track := func(name string) func(mock.Arguments) {
		return func(mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name)
		}
	}
	p.On("IsConnected", mock.Anything).Run(track("IsConnected")).Return(true, nil)
	p.On("Disconnect", mock.Anything).Run(track("Disconnect")).Return(nil)
	p.On("Connect", mock.Anything).Run(track("Connect")).Return(testConnectResponse(), nil)
	p.On("Network", mock.Anything).Run(track("Network")).Return(testNetworkResponse(), nil)

	require.NoError(t, a.Connect(context.Background()))
	assert.Equal(t, []string{"IsConnected", "Disconnect", "Connect", "Network"}, calls)
}

func TestAdapter_Connect_ConnectingFalseAfterEveryOutcome(t *testing.T) {
	a, p, _ := newTestAdapter(t, readyProbe)
	p.On("IsConnected", mock.Anything).Return(false, errors.New("probe failed")).Once()
	p.On("IsConnected", mock.Anything).Return(false, nil)
	p.On("Connect", mock.Anything).Return(testConnectResponse(), nil)
	p.On("Network", mock.Anything).Return(testNetworkResponse(), nil)

	assert.Error(t, a.Connect(context.Background()))
	assert.False(t, a.Connecting())

	assert.NoError(t, a.Connect(context.Background()))
	assert.False(t, a.Connecting())
	assert.True(t, a.Connected())
}

func TestAdapter_Connect_SupersededByDisconnect(t *testing.T) {
	a, p, rec := newTestAdapter(t, readyProbe)
	entered := make(chan struct{})
	release := make(chan struct{})
	p.On("IsConnected", mock.Anything).Return(false, nil)
	p.On("Connect", mock.Anything).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(testConnectResponse(), nil)
	p.On("Network", mock.Anything).Return(testNetworkResponse(), nil).Maybe()
	p.On("Disconnect", mock.Anything).Return(nil)

	done := make(chan error, 1)
	go func() { done <- a.Connect(context.Background()) }()
	<-entered

	a.Disconnect(context.Background())
	close(release)

	err := <-done
	require.Error(t, err)
	assert.Equal(t, walleterr.NotConnected, walleterr.KindOf(err))
	assert.ErrorIs(t, err, session.ErrConnectSuperseded)

	assert.False(t, a.Connected())
	assert.False(t, a.Connecting())
	assert.True(t, a.Account().IsZero())
	assert.Empty(t, rec.named(events.Connect), "a superseded connect never announces itself")
	p.AssertCalled(t, "Disconnect", mock.Anything)
}

// --- Disconnect ---.

func TestAdapter_Disconnect_WithoutSession(t *testing.T) {
	a, p, rec := newTestAdapter(t, readyProbe)

	a.Disconnect(context.Background())
	a.Disconnect(context.Background())

	assert.Len(t, rec.named(events.Disconnect), 2, "disconnect fires every time")
	assert.Empty(t, rec.named(events.Error), "nothing to disconnect is not an error")
	p.AssertNotCalled(t, "Disconnect", mock.Anything)
}

func TestAdapter_Disconnect_ClearsSession(t *testing.T) {
	a, p, rec := connectedAdapter(t)
	p.On("Disconnect", mock.Anything).Return(nil)

	a.Disconnect(context.Background())

	assert.False(t, a.Connected())
	assert.True(t, a.Account().IsZero())
	assert.Len(t, rec.named(events.Disconnect), 1)
	assert.Empty(t, rec.named(events.Error))
	p.AssertNumberOfCalls(t, "Disconnect", 1)
}

func TestAdapter_Disconnect_ClearsNetworkEndpoint(t *testing.T) {
	a, p, _ := connectedAdapter(t)
	p.On("Disconnect", mock.Anything).Return(nil)
	require.Equal(t, "2", a.Network().ChainID)

	a.Disconnect(context.Background())

	net := a.Network()
	assert.Equal(t, session.Testnet, net.Name, "bound network survives disconnect")
	assert.Empty(t, net.APIEndpoint)
	assert.Empty(t, net.ChainID)
}

func TestAdapter_Disconnect_ProviderFaultStillClears(t *testing.T) {
	a, p, rec := connectedAdapter(t)
	fault := errors.New("socket closed")
	p.On("Disconnect", mock.Anything).Return(fault)

	assert.NotPanics(t, func() { a.Disconnect(context.Background()) })

	assert.False(t, a.Connected())
	assert.True(t, a.Account().IsZero())

	errs := rec.named(events.Error)
	require.Len(t, errs, 1)
	errPayload, ok := errs[0].payload.(error)
	require.True(t, ok)
	assert.Equal(t, walleterr.DisconnectionFailed, walleterr.KindOf(errPayload))
	assert.ErrorIs(t, errPayload, fault)
	assert.Len(t, rec.named(events.Disconnect), 1)
	assert.Equal(t, []events.Name{events.Connect, events.Error, events.Disconnect}, rec.order())
}

// --- Signing ---.

func TestAdapter_Sign_NoUsableResult(t *testing.T) {
	payload := bridge.Payload(`{"function":"0x1::coin::transfer"}`)

	t.Run("SignTransaction", func(t *testing.T) {
		a, p, rec := newTestAdapter(t, readyProbe)
		p.On("SignTransaction", mock.Anything, payload).Return(nil, nil)
		_, err := a.SignTransaction(context.Background(), payload)
		assert.Equal(t, walleterr.SignTransactionFailed, walleterr.KindOf(err))
		requireErrorEvent(t, rec, walleterr.SignTransactionFailed)
	})

	t.Run("SignAndSubmitTransaction", func(t *testing.T) {
		a, p, rec := newTestAdapter(t, readyProbe)
		p.On("SignAndSubmitTransaction", mock.Anything, payload).Return(nil, nil)
		_, err := a.SignAndSubmitTransaction(context.Background(), payload)
		assert.Equal(t, walleterr.SignAndSubmitFailed, walleterr.KindOf(err))
		requireErrorEvent(t, rec, walleterr.SignAndSubmitFailed)
	})

	t.Run("SignMessage", func(t *testing.T) {
		a, p, rec := newTestAdapter(t, readyProbe)
		msg := bridge.SignMessagePayload{Message: "hi", Nonce: "1"}
		p.On("SignMessage", mock.Anything, msg).Return(nil, nil)
		_, err := a.SignMessage(context.Background(), msg)
		assert.Equal(t, walleterr.SignMessageFailed, walleterr.KindOf(err))
		requireErrorEvent(t, rec, walleterr.SignMessageFailed)
	})
}

func TestAdapter_Sign_ProviderFaultIsClassified(t *testing.T) {
	a, p, rec := connectedAdapter(t)
	fault := errors.New("user declined")
	p.On("SignTransaction", mock.Anything, mock.Anything).Return(nil, fault)

	_, err := a.SignTransaction(context.Background(), bridge.Payload(`{}`))
	assert.ErrorIs(t, err, walleterr.ErrSignTransactionFailed)
	assert.ErrorIs(t, err, fault)
	requireErrorEvent(t, rec, walleterr.SignTransactionFailed)
	assert.True(t, a.Connected(), "sign faults do not touch the session")
}

func TestAdapter_Sign_Succeeds(t *testing.T) {
	a, p, rec := connectedAdapter(t)
	p.On("SignTransaction", mock.Anything, mock.Anything).Return([]byte{0x01}, nil)
	p.On("SignAndSubmitTransaction", mock.Anything, mock.Anything).Return(&bridge.SubmitResponse{Hash: "0xDEAD"}, nil)

	signed, err := a.SignTransaction(context.Background(), bridge.Payload(`{}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, signed)

	resp, err := a.SignAndSubmitTransaction(context.Background(), bridge.Payload(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "0xDEAD", resp.Hash, "hash is returned verbatim")
	assert.Empty(t, rec.named(events.Error))
}

func TestAdapter_Sign_RacingDisconnect(t *testing.T) {
	a, p, _ := connectedAdapter(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	p.On("SignTransaction", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return([]byte{0x42}, nil)
	p.On("Disconnect", mock.Anything).Return(nil)

	type result struct {
		signed []byte
		err    error
	}
	done := make(chan result, 1)
	go func() {
		signed, err := a.SignTransaction(context.Background(), bridge.Payload(`{}`))
		done <- result{signed, err}
	}()
	<-entered

	a.Disconnect(context.Background())
	close(release)

	res := <-done
	require.NoError(t, res.err, "in-flight sign completes against the captured provider")
	assert.Equal(t, []byte{0x42}, res.signed)
	assert.False(t, a.Connected(), "sign result does not repopulate the session")
	assert.True(t, a.Account().IsZero())
}

// --- Extension points ---.

func TestAdapter_OnAccountAndNetworkChange(t *testing.T) {
	a, _, rec := newTestAdapter(t, readyProbe)

	err := a.OnAccountChange(context.Background())
	assert.Equal(t, walleterr.AccountChangeFailed, walleterr.KindOf(err))
	assert.ErrorIs(t, err, walleterr.ErrNotConnected)

	err = a.OnNetworkChange(context.Background())
	assert.Equal(t, walleterr.NetworkChangeFailed, walleterr.KindOf(err))
	assert.ErrorIs(t, err, walleterr.ErrNotConnected)
	assert.Len(t, rec.named(events.Error), 2)
}

func TestAdapter_OnAccountAndNetworkChange_Connected(t *testing.T) {
	a, _, rec := connectedAdapter(t)
	assert.NoError(t, a.OnAccountChange(context.Background()))
	assert.NoError(t, a.OnNetworkChange(context.Background()))
	assert.Empty(t, rec.named(events.Error))
}

func requireErrorEvent(t *testing.T, rec *recorder, kind walleterr.Kind) {
	t.Helper()
	errs := rec.named(events.Error)
	require.Len(t, errs, 1)
	err, ok := errs[0].payload.(error)
	require.True(t, ok, "error payload must be an error")
	assert.Equal(t, kind, walleterr.KindOf(err))
}
