// Package bridgetest provides a testify mock of bridge.Provider.
package bridgetest

// file: internal/wallet/bridge/bridgetest/mock.go

import (
	"context"

	"github.com/dkoosis/walletbridge/internal/wallet/bridge"
	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of bridge.Provider.
type MockProvider struct {
	mock.Mock
}

var _ bridge.Provider = (*MockProvider)(nil)

func (m *MockProvider) IsConnected(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockProvider) Connect(ctx context.Context) (*bridge.ConnectResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*bridge.ConnectResponse)
	return resp, args.Error(1)
}

func (m *MockProvider) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProvider) Network(ctx context.Context) (*bridge.NetworkResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*bridge.NetworkResponse)
	return resp, args.Error(1)
}

func (m *MockProvider) SignTransaction(ctx context.Context, payload bridge.Payload) ([]byte, error) {
	args := m.Called(ctx, payload)
	signed, _ := args.Get(0).([]byte)
	return signed, args.Error(1)
}

func (m *MockProvider) SignAndSubmitTransaction(ctx context.Context, payload bridge.Payload) (*bridge.SubmitResponse, error) {
	args := m.Called(ctx, payload)
	resp, _ := args.Get(0).(*bridge.SubmitResponse)
	return resp, args.Error(1)
}

func (m *MockProvider) SignMessage(ctx context.Context, payload bridge.SignMessagePayload) (*bridge.SignMessageResponse, error) {
	args := m.Called(ctx, payload)
	resp, _ := args.Get(0).(*bridge.SignMessageResponse)
	return resp, args.Error(1)
}
