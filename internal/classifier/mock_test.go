package classifier

import (
	"context"
	"math/big"
	"testing"

	"github.com/gabapcia/depositwatch/internal/calltrace"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"

	"github.com/stretchr/testify/mock"
)

func init() {
	_ = logger.Init("error")
}

type NodeMock struct {
	mock.Mock
}

func NewNodeMock(t *testing.T) *NodeMock {
	m := new(NodeMock)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *NodeMock) LatestHeight(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NodeMock) BlockWithTransactions(ctx context.Context, height int64) (Block, error) {
	args := m.Called(ctx, height)
	return args.Get(0).(Block), args.Error(1)
}

func (m *NodeMock) TraceTransaction(ctx context.Context, txHash string) (calltrace.Trace, error) {
	args := m.Called(ctx, txHash)
	return args.Get(0).(calltrace.Trace), args.Error(1)
}

func (m *NodeMock) BalanceAt(ctx context.Context, address string, height int64) (*big.Int, error) {
	args := m.Called(ctx, address, height)
	balance, _ := args.Get(0).(*big.Int)
	return balance, args.Error(1)
}

func (m *NodeMock) TransferLogs(ctx context.Context, contract string, from, to int64) ([]TransferLog, error) {
	args := m.Called(ctx, contract, from, to)
	logs, _ := args.Get(0).([]TransferLog)
	return logs, args.Error(1)
}
