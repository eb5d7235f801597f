package scanwindow

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func checkpoint(v int64) *int64 { return &v }

func TestCompute(t *testing.T) {
	t.Run("first cycle without checkpoint", func(t *testing.T) {
		c := Compute(1000, nil)

		assert.Equal(t, int64(1000), c.Head)
		assert.Equal(t, Range{From: 986, To: 1000}, c.Recent)
		assert.Equal(t, Range{From: 960, To: 986}, c.Confirmed)
		assert.Equal(t, int64(986), c.Next())
	})

	t.Run("recent checkpoint moves the confirmed start forward", func(t *testing.T) {
		c := Compute(1001, checkpoint(986))

		assert.Equal(t, Range{From: 986, To: 987}, c.Confirmed)
	})

	t.Run("stale checkpoint is clamped to the maximum depth", func(t *testing.T) {
		c := Compute(5000, checkpoint(10))

		assert.Equal(t, int64(5000-ConfirmDepth), c.Confirmed.From)
	})

	t.Run("confirmed start never goes deeper than the maximum depth", func(t *testing.T) {
		for _, cp := range []*int64{nil, checkpoint(0), checkpoint(500), checkpoint(959), checkpoint(970), checkpoint(986)} {
			c := Compute(1000, cp)
			assert.GreaterOrEqual(t, c.Confirmed.From, c.Head-ConfirmDepth)
		}
	})

	t.Run("successive cycles chain without gaps", func(t *testing.T) {
		var cp *int64
		prevTo := int64(-1)

		for head := int64(100); head < 160; head += 3 {
			c := Compute(head, cp)
			if prevTo >= 0 {
				assert.Equal(t, prevTo, c.Confirmed.From, "cycle at head %d should resume where the previous one ended", head)
			}
			prevTo = c.Confirmed.To
			cp = checkpoint(c.Next())
		}
	})

	t.Run("young chain clamps at zero", func(t *testing.T) {
		c := Compute(5, nil)

		assert.Equal(t, Range{From: 0, To: 5}, c.Recent)
		assert.Equal(t, Range{From: 0, To: 0}, c.Confirmed)
	})

	t.Run("negative head is treated as genesis", func(t *testing.T) {
		c := Compute(-3, nil)

		assert.Equal(t, int64(0), c.Head)
		assert.False(t, c.Recent.Empty())
	})

	t.Run("checkpoint ahead of the recent range yields an empty confirmed range", func(t *testing.T) {
		c := Compute(1000, checkpoint(995))

		assert.True(t, c.Confirmed.Empty())
	})
}

func TestRange(t *testing.T) {
	t.Run("heights ascend", func(t *testing.T) {
		assert.Equal(t, []int64{7, 8, 9}, slices.Collect(Range{From: 7, To: 9}.Heights()))
		assert.Equal(t, int64(3), Range{From: 7, To: 9}.Len())
	})

	t.Run("empty range", func(t *testing.T) {
		r := Range{From: 10, To: 9}

		assert.True(t, r.Empty())
		assert.Zero(t, r.Len())
		assert.Empty(t, slices.Collect(r.Heights()))
	})

	t.Run("early stop", func(t *testing.T) {
		var got []int64
		for h := range (Range{From: 1, To: 100}).Heights() {
			got = append(got, h)
			if h == 3 {
				break
			}
		}
		assert.Equal(t, []int64{1, 2, 3}, got)
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "[1, 2]", Range{From: 1, To: 2}.String())
	})
}

func TestComputeFrom(t *testing.T) {
	t.Run("deep start is honored", func(t *testing.T) {
		c := ComputeFrom(1000, 500)

		assert.Equal(t, Range{From: 986, To: 1000}, c.Recent)
		assert.Equal(t, Range{From: 500, To: 986}, c.Confirmed)
		assert.Equal(t, int64(986), c.Next())
	})

	t.Run("shallow start is lowered to the maximum depth", func(t *testing.T) {
		c := ComputeFrom(1000, 990)

		assert.Equal(t, Range{From: 960, To: 986}, c.Confirmed)
	})

	t.Run("negative start clamps at zero", func(t *testing.T) {
		c := ComputeFrom(100, -5)

		assert.Equal(t, int64(0), c.Confirmed.From)
	})
}
