package cli

import (
	"context"
	"testing"

	"github.com/gabapcia/depositwatch/internal/depositwatch"
	"github.com/gabapcia/depositwatch/internal/walletregistry"

	"github.com/stretchr/testify/mock"
)

type BuilderMock struct {
	mock.Mock
}

func NewBuilderMock(t *testing.T) *BuilderMock {
	m := new(BuilderMock)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BuilderMock) Runner(ctx context.Context, opts ...depositwatch.RunnerOption) (depositwatch.Runner, error) {
	args := m.Called(ctx, opts)
	r, _ := args.Get(0).(depositwatch.Runner)
	return r, args.Error(1)
}

func (m *BuilderMock) Cycler(ctx context.Context) (depositwatch.Cycler, depositwatch.StateStore, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(depositwatch.Cycler)
	s, _ := args.Get(1).(depositwatch.StateStore)
	return c, s, args.Error(2)
}

func (m *BuilderMock) WalletService(ctx context.Context) (walletregistry.Service, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(walletregistry.Service)
	return s, args.Error(1)
}

type RunnerMock struct {
	mock.Mock
}

func (m *RunnerMock) Run(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type CyclerMock struct {
	mock.Mock
}

func (m *CyclerMock) RunCycle(ctx context.Context, in depositwatch.State) (depositwatch.State, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(depositwatch.State), args.Error(1)
}

func (m *CyclerMock) RunCycleFrom(ctx context.Context, in depositwatch.State, from int64) (depositwatch.State, error) {
	args := m.Called(ctx, in, from)
	return args.Get(0).(depositwatch.State), args.Error(1)
}

type StateStoreMock struct {
	mock.Mock
}

func (m *StateStoreMock) Load(ctx context.Context) (depositwatch.State, error) {
	args := m.Called(ctx)
	return args.Get(0).(depositwatch.State), args.Error(1)
}

func (m *StateStoreMock) Save(ctx context.Context, s depositwatch.State) error {
	return m.Called(ctx, s).Error(0)
}

type WalletServiceMock struct {
	mock.Mock
}

func (m *WalletServiceMock) StartWatching(ctx context.Context, address string) error {
	return m.Called(ctx, address).Error(0)
}

func (m *WalletServiceMock) StopWatching(ctx context.Context, address string) error {
	return m.Called(ctx, address).Error(0)
}

func (m *WalletServiceMock) Load(ctx context.Context) (*walletregistry.Registry, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*walletregistry.Registry)
	return r, args.Error(1)
}
