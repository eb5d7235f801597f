package ethereum

import (
	"context"
	"math/big"

	"github.com/gabapcia/depositwatch/internal/classifier"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferTopic is the topic of the ERC-20 Transfer(address,address,uint256)
// event.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// logFilter is the eth_getLogs filter object.
type logFilter struct {
	Address   string   `json:"address"`
	FromBlock string   `json:"fromBlock"`
	ToBlock   string   `json:"toBlock"`
	Topics    []string `json:"topics"`
}

func newTransferFilter(contract string, from, to int64) logFilter {
	return logFilter{
		Address:   contract,
		FromBlock: quantity(from),
		ToBlock:   quantity(to),
		Topics:    []string{TransferTopic.Hex()},
	}
}

// toTransferLog decodes an ERC-20 Transfer log. Logs with indexed values
// (ERC-721 uses the same signature with three indexed arguments) and removed
// logs are rejected.
func toTransferLog(l types.Log) (classifier.TransferLog, bool) {
	if l.Removed || len(l.Topics) != 3 || l.Topics[0] != TransferTopic {
		return classifier.TransferLog{}, false
	}

	return classifier.TransferLog{
		TxHash:      l.TxHash.Hex(),
		BlockHeight: int64(l.BlockNumber),
		From:        addressFromTopic(l.Topics[1]),
		To:          addressFromTopic(l.Topics[2]),
		Value:       new(big.Int).SetBytes(l.Data),
	}, true
}

func addressFromTopic(topic common.Hash) string {
	return common.BytesToAddress(topic.Bytes()).Hex()
}

// TransferLogs returns the Transfer events emitted by contract between from
// and to, inclusive (eth_getLogs).
func (c *client) TransferLogs(ctx context.Context, contract string, from, to int64) ([]classifier.TransferLog, error) {
	var logs []types.Log
	if err := c.call(ctx, &logs, "eth_getLogs", newTransferFilter(contract, from, to)); err != nil {
		return nil, err
	}

	transfers := make([]classifier.TransferLog, 0, len(logs))
	for _, l := range logs {
		if transfer, ok := toTransferLog(l); ok {
			transfers = append(transfers, transfer)
		}
	}

	return transfers, nil
}
