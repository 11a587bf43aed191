package mailbox

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	uids := func(n int) []uint32 {
		out := make([]uint32, n)
		for i := range out {
			out[i] = uint32(i + 1)
		}
		return out
	}

	tests := []struct {
		count       int
		size        int
		wantBatches int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{45, 20, 3},
		{7, 1, 7},
		{5, 3, 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.count, tt.size), func(t *testing.T) {
			in := uids(tt.count)
			batches := Chunk(in, tt.size)
			require.Len(t, batches, tt.wantBatches)

			// Every uid appears exactly once, in order.
			var flat []uint32
			for _, b := range batches {
				assert.LessOrEqual(t, len(b), tt.size)
				assert.NotEmpty(t, b)
				flat = append(flat, b...)
			}
			assert.Equal(t, in, flat)
		})
	}
}

func TestChunkInvalidSize(t *testing.T) {
	batches := Chunk([]uint32{1, 2, 3}, 0)
	assert.Len(t, batches, 3)
}

func TestFetchReport(t *testing.T) {
	r := &FetchReport{Requested: 40, Fetched: 20}
	assert.Equal(t, "fetched 20 of 40 messages", r.Summary())

	r.AddBatchFailure([]uint32{21, 22, 23}, fmt.Errorf("connection reset"))
	assert.Equal(t, 3, r.SkippedCount())
	assert.Equal(t, "fetched 20 of 40 messages (3 skipped in 1 failed batches)", r.Summary())
	assert.Equal(t, "connection reset", r.SkippedBatches[0].Reason)
}
