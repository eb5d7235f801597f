package walletregistry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
)

type WalletStorageMock struct {
	mock.Mock
}

func NewWalletStorageMock(t *testing.T) *WalletStorageMock {
	m := new(WalletStorageMock)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *WalletStorageMock) RegisterWallet(ctx context.Context, address string) error {
	return m.Called(ctx, address).Error(0)
}

func (m *WalletStorageMock) UnregisterWallet(ctx context.Context, address string) error {
	return m.Called(ctx, address).Error(0)
}

func (m *WalletStorageMock) ListWallets(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	addresses, _ := args.Get(0).([]string)
	return addresses, args.Error(1)
}
