package depositwatch

import (
	"context"
	"iter"
	"sync"
	"testing"

	"github.com/gabapcia/depositwatch/internal/notifier"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/scanwindow"

	"github.com/stretchr/testify/mock"
)

func init() {
	_ = logger.Init("error")
}

type HeadSourceMock struct {
	mock.Mock
}

func NewHeadSourceMock(t *testing.T) *HeadSourceMock {
	m := new(HeadSourceMock)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *HeadSourceMock) LatestHeight(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// fakeSource yields its transfers per block like a real source and can fail
// when it reaches a given height.
type fakeSource struct {
	transfers []Transfer

	failAt int64
	err    error

	scanned []scanwindow.Range
}

func (s *fakeSource) Scan(_ context.Context, r scanwindow.Range, seen SeenFunc) iter.Seq2[Transfer, error] {
	s.scanned = append(s.scanned, r)

	return func(yield func(Transfer, error) bool) {
		for h := range r.Heights() {
			if s.err != nil && h == s.failAt {
				yield(Transfer{}, s.err)
				return
			}

			for _, t := range s.transfers {
				if t.BlockHeight != h || seen(t.TxHash) {
					continue
				}
				if !yield(t, nil) {
					return
				}
			}
		}
	}
}

// fakeNotifier records every notification and acknowledges the ones accepted
// by ack. A nil ack acknowledges everything.
type fakeNotifier struct {
	ack  func(n notifier.Notification) bool
	sent []notifier.Notification
}

func (f *fakeNotifier) Send(_ context.Context, n notifier.Notification) bool {
	f.sent = append(f.sent, n)
	if f.ack == nil {
		return true
	}
	return f.ack(n)
}

type cycleResult struct {
	state State
	err   error
}

// fakeCycler replays scripted results and records the states it receives.
type fakeCycler struct {
	mu sync.Mutex

	cycles     []cycleResult
	fromCycles []cycleResult
	onCycle    func(call int)

	inputs     []State
	fromInputs []int64
}

func (f *fakeCycler) next(results *[]cycleResult, in State) (State, error) {
	if len(*results) == 0 {
		return in, nil
	}
	r := (*results)[0]
	*results = (*results)[1:]
	return r.state, r.err
}

func (f *fakeCycler) RunCycle(_ context.Context, in State) (State, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	call := len(f.inputs)
	out, err := f.next(&f.cycles, in)
	f.mu.Unlock()

	if f.onCycle != nil {
		f.onCycle(call)
	}
	return out, err
}

func (f *fakeCycler) RunCycleFrom(_ context.Context, in State, from int64) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fromInputs = append(f.fromInputs, from)
	return f.next(&f.fromCycles, in)
}

type StateStoreMock struct {
	mock.Mock
}

func NewStateStoreMock(t *testing.T) *StateStoreMock {
	m := new(StateStoreMock)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *StateStoreMock) Load(ctx context.Context) (State, error) {
	args := m.Called(ctx)
	return args.Get(0).(State), args.Error(1)
}

func (m *StateStoreMock) Save(ctx context.Context, s State) error {
	return m.Called(ctx, s).Error(0)
}

// blindSource yields the same transfer on every scan and ignores seen.
type blindSource struct {
	transfer Transfer
}

func (s *blindSource) Scan(context.Context, scanwindow.Range, SeenFunc) iter.Seq2[Transfer, error] {
	return func(yield func(Transfer, error) bool) {
		yield(s.transfer, nil)
	}
}
