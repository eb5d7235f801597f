// Package scanwindow computes the two block ranges scanned on every cycle: a
// recent range near the chain head and a deeper range whose transfers are
// reported as confirmed.
package scanwindow

import (
	"fmt"
	"iter"
)

const (
	// RecentDepth is how many blocks below the head are still reported as
	// unconfirmed.
	RecentDepth = 14

	// ConfirmDepth is the deepest block below the head ever scanned.
	ConfirmDepth = 40
)

// Range is an inclusive block height range. It is empty when From > To.
type Range struct {
	From int64 // first height, inclusive
	To   int64 // last height, inclusive
}

// Empty reports whether the range holds no block.
func (r Range) Empty() bool {
	return r.From > r.To
}

// Len is the number of heights in r.
func (r Range) Len() int64 {
	if r.Empty() {
		return 0
	}
	return r.To - r.From + 1
}

// Heights yields every height of r in ascending order.
func (r Range) Heights() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for h := r.From; h <= r.To; h++ {
			if !yield(h) {
				return
			}
		}
	}
}

// String renders the range as [from, to].
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.From, r.To)
}

// Cursor holds the ranges of one cycle. Next is the checkpoint handed to the
// following cycle.
type Cursor struct {
	Head      int64 // chain head the ranges derive from
	Recent    Range // [head-RecentDepth, head]
	Confirmed Range // from the checkpoint up to head-RecentDepth
}

// Next returns the checkpoint for the next cycle: the upper bound of the
// confirmed range.
func (c Cursor) Next() int64 {
	return c.Confirmed.To
}

// Compute derives the ranges for head. checkpoint is the Next value of the
// last completed cycle, or nil when there is none.
//
// The confirmed range never starts deeper than head-ConfirmDepth, whatever
// the checkpoint, which bounds the rescan after a long outage. All heights
// are clamped at zero.
func Compute(head int64, checkpoint *int64) Cursor {
	head = max(head, 0)

	recentFrom := max(head-RecentDepth, 0)
	floor := max(head-ConfirmDepth, 0)

	confirmedFrom := floor
	if checkpoint != nil {
		confirmedFrom = max(*checkpoint, floor)
	}

	return Cursor{
		Head:      head,
		Recent:    Range{From: recentFrom, To: head},
		Confirmed: Range{From: confirmedFrom, To: recentFrom},
	}
}

// ComputeFrom derives the ranges for a one-off scan starting at from. Unlike
// Compute, a from deeper than head-ConfirmDepth is honored, so blocks missed
// during a long outage can be reported again. A shallower from is lowered to
// head-ConfirmDepth.
func ComputeFrom(head, from int64) Cursor {
	c := Compute(head, nil)
	c.Confirmed.From = max(min(from, c.Confirmed.From), 0)
	return c
}
