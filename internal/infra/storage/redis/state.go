package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gabapcia/depositwatch/internal/confirmation"
	"github.com/gabapcia/depositwatch/internal/depositwatch"

	redis "github.com/redis/go-redis/v9"
)

// stateKeys are the keys of one watcher's state. Watchers of different
// currencies must use different namespaces.
type stateKeys struct {
	checkpoint string
	notified   string
	confirmed  string
}

func newStateKeys(namespace string) stateKeys {
	base := fmt.Sprintf("%s:%s", keyPrefix, namespace)
	return stateKeys{
		checkpoint: base + ":checkpoint",
		notified:   base + ":ledger:notified",
		confirmed:  base + ":ledger:confirmed",
	}
}

// stateStore keeps the checkpoint as a string key and each ledger as a hash
// of transaction hash to block height.
type stateStore struct {
	conn *redis.Client
	keys stateKeys
}

var _ depositwatch.StateStore = (*stateStore)(nil)

// StateStore returns a store for the watcher identified by namespace, for
// example "native" or "token:0xdac1...".
func (c *client) StateStore(namespace string) depositwatch.StateStore {
	return &stateStore{
		conn: c.conn,
		keys: newStateKeys(namespace),
	}
}

// Load reads the checkpoint and both ledgers in one round trip. Missing keys
// load as an empty state.
func (s *stateStore) Load(ctx context.Context) (depositwatch.State, error) {
	var (
		checkpointCmd *redis.StringCmd
		notifiedCmd   *redis.MapStringStringCmd
		confirmedCmd  *redis.MapStringStringCmd
	)

	_, err := s.conn.Pipelined(ctx, func(p redis.Pipeliner) error {
		checkpointCmd = p.Get(ctx, s.keys.checkpoint)
		notifiedCmd = p.HGetAll(ctx, s.keys.notified)
		confirmedCmd = p.HGetAll(ctx, s.keys.confirmed)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return depositwatch.State{}, err
	}

	checkpoint, err := decodeCheckpoint(checkpointCmd.Result())
	if err != nil {
		return depositwatch.State{}, err
	}

	notified, err := decodeLedger(notifiedCmd.Val())
	if err != nil {
		return depositwatch.State{}, fmt.Errorf("notified ledger: %w", err)
	}

	confirmed, err := decodeLedger(confirmedCmd.Val())
	if err != nil {
		return depositwatch.State{}, fmt.Errorf("confirmed ledger: %w", err)
	}

	return depositwatch.State{
		Checkpoint: checkpoint,
		Tracker: confirmation.Tracker{
			Notified:  notified,
			Confirmed: confirmed,
		},
	}, nil
}

// Save rewrites the whole state in one MULTI/EXEC. Ledgers are pruned every
// cycle, so they stay small.
func (s *stateStore) Save(ctx context.Context, state depositwatch.State) error {
	_, err := s.conn.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if state.Checkpoint != nil {
			p.Set(ctx, s.keys.checkpoint, *state.Checkpoint, 0)
		} else {
			p.Del(ctx, s.keys.checkpoint)
		}

		p.Del(ctx, s.keys.notified, s.keys.confirmed)
		if values := encodeLedger(state.Tracker.Notified); len(values) > 0 {
			p.HSet(ctx, s.keys.notified, values)
		}
		if values := encodeLedger(state.Tracker.Confirmed); len(values) > 0 {
			p.HSet(ctx, s.keys.confirmed, values)
		}

		return nil
	})

	return err
}

func encodeLedger(l confirmation.Ledger) map[string]any {
	values := make(map[string]any, len(l))
	for txHash, height := range l {
		values[txHash] = strconv.FormatInt(height, 10)
	}
	return values
}

func decodeLedger(values map[string]string) (confirmation.Ledger, error) {
	l := make(confirmation.Ledger, len(values))
	for txHash, raw := range values {
		height, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("height of %s: %w", txHash, err)
		}
		l[txHash] = height
	}
	return l, nil
}

func decodeCheckpoint(raw string, err error) (*int64, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	checkpoint, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	return &checkpoint, nil
}
