package depositwatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gabapcia/depositwatch/internal/pkg/resilience/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fastRunner(c Cycler, opts ...RunnerOption) *runner {
	opts = append([]RunnerOption{
		WithSuccessDelay(time.Millisecond),
		WithFailureDelay(time.Millisecond),
		WithRetry(retry.New(retry.WithAttempts(2), retry.WithDelay(time.Millisecond), retry.WithMaxDelay(time.Millisecond))),
	}, opts...)

	return NewRunner(c, opts...)
}

func TestRunner_Run(t *testing.T) {
	t.Run("threads state between cycles until cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		first := State{Checkpoint: ptr(10)}
		second := State{Checkpoint: ptr(11)}
		cycler := &fakeCycler{
			cycles: []cycleResult{{state: first}, {state: second}},
			onCycle: func(call int) {
				if call == 3 {
					cancel()
				}
			},
		}

		err := fastRunner(cycler).Run(ctx)

		require.NoError(t, err)
		require.Len(t, cycler.inputs, 3)
		assert.Nil(t, cycler.inputs[0].Checkpoint)
		assert.Equal(t, first, cycler.inputs[1])
		assert.Equal(t, second, cycler.inputs[2])
	})

	t.Run("failed cycle is logged and the loop continues", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		cycler := &fakeCycler{
			cycles: []cycleResult{
				{state: State{Checkpoint: ptr(5)}, err: errors.New("node unavailable")},
				{state: State{Checkpoint: ptr(6)}},
			},
			onCycle: func(call int) {
				if call == 2 {
					cancel()
				}
			},
		}

		err := fastRunner(cycler).Run(ctx)

		require.NoError(t, err)
		require.Len(t, cycler.inputs, 2)
		assert.Equal(t, int64(5), *cycler.inputs[1].Checkpoint)
	})

	t.Run("start block cycle runs first and is retried", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		cycler := &fakeCycler{
			fromCycles: []cycleResult{
				{state: State{}, err: errors.New("node unavailable")},
				{state: State{Checkpoint: ptr(986)}},
			},
			onCycle: func(int) { cancel() },
		}

		err := fastRunner(cycler, WithFromBlock(500)).Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, []int64{500, 500}, cycler.fromInputs)
		require.Len(t, cycler.inputs, 1)
		assert.Equal(t, int64(986), *cycler.inputs[0].Checkpoint)
	})

	t.Run("start block cycle failing every attempt stops the runner", func(t *testing.T) {
		errNode := errors.New("node unavailable")
		cycler := &fakeCycler{
			fromCycles: []cycleResult{{err: errNode}, {err: errNode}},
		}

		err := fastRunner(cycler, WithFromBlock(500)).Run(t.Context())

		assert.ErrorIs(t, err, errNode)
		assert.Len(t, cycler.fromInputs, 2)
		assert.Empty(t, cycler.inputs)
	})

	t.Run("state is loaded once and saved after every cycle", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		saved := State{Checkpoint: ptr(42)}
		next := State{Checkpoint: ptr(43)}

		store := NewStateStoreMock(t)
		store.On("Load", mock.Anything).Return(saved, nil).Once()
		store.On("Save", mock.Anything, next).Return(errors.New("redis down")).Once()

		cycler := &fakeCycler{
			cycles:  []cycleResult{{state: next}},
			onCycle: func(int) { cancel() },
		}

		err := fastRunner(cycler, WithStateStore(store)).Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, saved, cycler.inputs[0])
	})

	t.Run("load error is returned", func(t *testing.T) {
		store := NewStateStoreMock(t)
		store.On("Load", mock.Anything).Return(State{}, errors.New("redis down")).Once()

		err := fastRunner(&fakeCycler{}, WithStateStore(store)).Run(t.Context())

		assert.EqualError(t, err, "load state: redis down")
	})

	t.Run("cancelled context returns without error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		cycler := &fakeCycler{}

		err := NewRunner(cycler).Run(ctx)

		assert.NoError(t, err)
		assert.Len(t, cycler.inputs, 1)
	})
}
