package pbiotrace

import (
	"testing"

	"github.com/itohio/pbio"
	"github.com/stretchr/testify/require"
)

func TestTickTraceWrapsAndPreservesOrder(t *testing.T) {
	t.Parallel()

	tr := NewTickTrace(3)
	for i := int32(0); i < 5; i++ {
		tr.Record(int64(i), i, i, 0, 0, 0, pbio.StallNone)
	}

	require.Equal(t, 3, tr.Len())
	snap := tr.Snapshot()
	require.Len(t, snap, 3)
	// Oldest surviving sample is i=2, newest is i=4.
	require.Equal(t, int32(2), snap[0].Count)
	require.Equal(t, int32(3), snap[1].Count)
	require.Equal(t, int32(4), snap[2].Count)
}

func TestTickTraceBeforeFull(t *testing.T) {
	t.Parallel()

	tr := NewTickTrace(5)
	tr.Record(0, 1, 1, 0, 0, 0, pbio.StallNone)
	tr.Record(1, 2, 2, 0, 0, 0, pbio.StallProportional)

	require.Equal(t, 2, tr.Len())
	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, pbio.StallProportional, snap[1].Stall)
}
