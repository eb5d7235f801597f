// Package confirmation tracks which transactions were already delivered in
// each notification state, so each state is delivered at most once per
// transaction once acknowledged.
package confirmation

import (
	"maps"

	"github.com/gabapcia/depositwatch/internal/scanwindow"
)

// Phase is the notification state a scan reports.
type Phase int

const (
	// Unconfirmed covers the recent range near the head.
	Unconfirmed Phase = iota

	// Confirmed covers the deeper range.
	Confirmed
)

// String returns the phase name used in logs and metrics.
func (p Phase) String() string {
	switch p {
	case Unconfirmed:
		return "unconfirmed"
	case Confirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Ledger maps transaction hashes to the height of their block. The height is
// only used to forget entries that can no longer be scanned.
type Ledger map[string]int64

// Contains reports whether txHash was recorded.
func (l Ledger) Contains(txHash string) bool {
	_, ok := l[txHash]
	return ok
}

// Tracker holds one ledger per phase. It is a plain value owned by a single
// cycle at a time and has no locking.
type Tracker struct {
	Notified  Ledger
	Confirmed Ledger
}

// NewTracker returns a tracker with empty ledgers.
func NewTracker() Tracker {
	return Tracker{
		Notified:  Ledger{},
		Confirmed: Ledger{},
	}
}

func (t Tracker) ledger(p Phase) Ledger {
	if p == Confirmed {
		return t.Confirmed
	}
	return t.Notified
}

// Seen reports whether txHash was already delivered in phase p.
func (t Tracker) Seen(p Phase, txHash string) bool {
	return t.ledger(p).Contains(txHash)
}

// Eligible reports whether a transfer with the given confirmations may be
// delivered in phase p. Confirmed deliveries additionally need the
// transaction to be deeper than the recent range.
func (t Tracker) Eligible(p Phase, txHash string, confirmations int64) bool {
	if p == Confirmed && confirmations <= scanwindow.RecentDepth {
		return false
	}
	return !t.Seen(p, txHash)
}

// Record marks txHash as delivered in phase p. It must only be called after
// the delivery was acknowledged. Existing entries are left untouched.
func (t Tracker) Record(p Phase, txHash string, height int64) {
	l := t.ledger(p)
	if l.Contains(txHash) {
		return
	}
	l[txHash] = height
}

// Prune drops entries whose block is below minHeight. Such blocks lie
// outside every future scan range, so forgetting them cannot cause a
// redelivery. It returns how many entries were dropped.
func (t Tracker) Prune(minHeight int64) int {
	dropped := 0
	for _, l := range []Ledger{t.Notified, t.Confirmed} {
		for txHash, height := range l {
			if height < minHeight {
				delete(l, txHash)
				dropped++
			}
		}
	}
	return dropped
}

// Clone returns a deep copy. Nil ledgers become empty ones.
func (t Tracker) Clone() Tracker {
	c := NewTracker()
	maps.Copy(c.Notified, t.Notified)
	maps.Copy(c.Confirmed, t.Confirmed)
	return c
}

// Len returns the number of entries per phase.
func (t Tracker) Len() (notified, confirmed int) {
	return len(t.Notified), len(t.Confirmed)
}
