package classifier

import (
	"errors"
	"math/big"
	"testing"

	"github.com/gabapcia/depositwatch/internal/depositwatch"
	"github.com/gabapcia/depositwatch/internal/scanwindow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tokenContract = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

func TestTokenSource_Scan(t *testing.T) {
	t.Run("yields transfers to watched wallets", func(t *testing.T) {
		node := NewNodeMock(t)
		node.On("TransferLogs", mock.Anything, "0xdac17f958d2ee523a2206206994597c13d831ec7", int64(90), int64(100)).Return([]TransferLog{
			{TxHash: "0xt1", BlockHeight: 91, From: otherAddress, To: otherAddress, Value: big.NewInt(7)},
			{TxHash: "0xt2", BlockHeight: 95, From: otherAddress, To: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", Value: big.NewInt(1_000_000)},
			{TxHash: "0xt3", BlockHeight: 99, From: otherAddress, To: watchedWallet, Value: big.NewInt(5)},
		}, nil).Once()

		seen := func(h string) bool { return h == "0xt3" }

		got, err := collect(t, NewTokenSource(node, newWallets(t), tokenContract).Scan(t.Context(), scanwindow.Range{From: 90, To: 100}, seen))

		require.NoError(t, err)
		assert.Equal(t, []depositwatch.Transfer{
			{TxHash: "0xt2", Recipient: watchedWallet, Amount: big.NewInt(1_000_000), BlockHeight: 95},
		}, got)
	})

	t.Run("skips transfers already seen", func(t *testing.T) {
		node := NewNodeMock(t)
		node.On("TransferLogs", mock.Anything, mock.Anything, int64(10), int64(20)).Return([]TransferLog{
			{TxHash: "0xt1", BlockHeight: 11, From: otherAddress, To: watchedWallet, Value: big.NewInt(1)},
			{TxHash: "0xt2", BlockHeight: 12, From: otherAddress, To: watchedWallet, Value: big.NewInt(2)},
		}, nil).Once()

		seen := func(h string) bool { return h == "0xt1" }

		got, err := collect(t, NewTokenSource(node, newWallets(t), tokenContract).Scan(t.Context(), scanwindow.Range{From: 10, To: 20}, seen))

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "0xt2", got[0].TxHash)
	})

	t.Run("skips unwatched recipients", func(t *testing.T) {
		node := NewNodeMock(t)
		node.On("TransferLogs", mock.Anything, mock.Anything, int64(10), int64(20)).Return([]TransferLog{
			{TxHash: "0xt1", BlockHeight: 11, From: watchedWallet, To: otherAddress, Value: big.NewInt(1)},
			{TxHash: "0xt2", BlockHeight: 12, From: otherAddress, To: otherAddress, Value: big.NewInt(2)},
		}, nil).Once()

		got, err := collect(t, NewTokenSource(node, newWallets(t), tokenContract).Scan(t.Context(), scanwindow.Range{From: 10, To: 20}, never))

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("stops when the consumer stops", func(t *testing.T) {
		node := NewNodeMock(t)
		node.On("TransferLogs", mock.Anything, mock.Anything, int64(10), int64(20)).Return([]TransferLog{
			{TxHash: "0xt1", BlockHeight: 11, From: otherAddress, To: watchedWallet, Value: big.NewInt(1)},
			{TxHash: "0xt2", BlockHeight: 12, From: otherAddress, To: watchedWallet, Value: big.NewInt(2)},
		}, nil).Once()

		var got []string
		for transfer, err := range NewTokenSource(node, newWallets(t), tokenContract).Scan(t.Context(), scanwindow.Range{From: 10, To: 20}, never) {
			require.NoError(t, err)
			got = append(got, transfer.TxHash)
			break
		}

		assert.Equal(t, []string{"0xt1"}, got)
	})

	t.Run("node error aborts the scan", func(t *testing.T) {
		errNode := errors.New("connection refused")

		node := NewNodeMock(t)
		node.On("TransferLogs", mock.Anything, mock.Anything, int64(1), int64(2)).Return(nil, errNode).Once()

		_, err := collect(t, NewTokenSource(node, newWallets(t), tokenContract).Scan(t.Context(), scanwindow.Range{From: 1, To: 2}, never))

		assert.ErrorIs(t, err, errNode)
	})
}
