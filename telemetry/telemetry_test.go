package telemetry

import (
	"testing"

	"github.com/itohio/pbio/fix16"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotConvertsCountsToDegrees(t *testing.T) {
	t.Parallel()

	cpd := fix16.FromInt(2) // 2 counts per degree
	snap := NewSnapshot(720, 720, 0, 0, 5000, cpd)

	require.InDelta(t, 360.0, float64(snap.AngleDeg), 0.001)
	require.InDelta(t, 360.0, float64(snap.RefAngleDeg), 0.001)
	require.InDelta(t, 50.0, float64(snap.Duty), 0.001)
}

func TestNewSnapshotGuardsZeroScale(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(100, 0, 0, 0, 0, 0)
	require.InDelta(t, 100.0, float64(snap.AngleDeg), 0.001)
}
