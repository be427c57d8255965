package pbio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAngleTrajectoryConstantWhenNoMotion(t *testing.T) {
	t.Parallel()

	tr := NewAngleTrajectory(0, 1000, 0, 1000, 720, 500)
	count, rate := tr.Evaluate(0)
	require.Equal(t, int32(1000), count)
	require.Equal(t, int32(0), rate)

	count, rate = tr.Evaluate(5_000_000)
	require.Equal(t, int32(1000), count)
	require.Equal(t, int32(0), rate)
}

// TestAngleTrajectoryEndState checks invariant 4 of spec.md §8: rate_ref(t_end)
// == 0 and count_ref(t_end) == target_count, and that the hold persists
// after the nominal end time.
func TestAngleTrajectoryEndState(t *testing.T) {
	t.Parallel()

	tr := NewAngleTrajectory(0, 0, 0, 720 /* 90deg at 8 counts/deg-ish */, 360, 500)

	count, rate := tr.Evaluate(tr.EndTimeUs())
	require.Equal(t, int32(720), count)
	require.InDelta(t, 0, rate, 2)

	count, rate = tr.Evaluate(tr.EndTimeUs() + 10_000_000)
	require.Equal(t, int32(720), count)
	require.Equal(t, int32(0), rate)
}

func TestAngleTrajectoryTriangularWhenShort(t *testing.T) {
	t.Parallel()

	// Short hop: accel distance for reaching maxRate exceeds half of the
	// total travel, so the profile never reaches maxRate (spec.md S3).
	tr := NewAngleTrajectory(0, 0, 0, 180, 360, 500)

	require.Equal(t, tr.t1, tr.t2, "triangular profile has no cruise phase")
	require.Less(t, int64(tr.vCruise), int64(360))

	_, rateAtPeak := tr.Evaluate(tr.t1)
	require.InDelta(t, int32(tr.vCruise), rateAtPeak, 2)
}

func TestAngleTrajectoryTrapezoidalWhenLong(t *testing.T) {
	t.Parallel()

	tr := NewAngleTrajectory(0, 0, 0, 36000, 720, 500)
	require.Greater(t, tr.t2, tr.t1, "long move should have a cruise phase")

	_, rate := tr.Evaluate(tr.t1 + (tr.t2-tr.t1)/2)
	require.Equal(t, int32(720), rate)
}

func TestAngleTrajectoryDirectionSign(t *testing.T) {
	t.Parallel()

	fwd := NewAngleTrajectory(0, 0, 0, 1000, 500, 500)
	back := NewAngleTrajectory(0, 0, 0, -1000, 500, 500)

	_, rFwd := fwd.Evaluate(fwd.t1 / 2)
	_, rBack := back.Evaluate(back.t1 / 2)
	require.Positive(t, rFwd)
	require.Negative(t, rBack)
}

func TestTimeTrajectoryReachesZeroByDeadline(t *testing.T) {
	t.Parallel()

	tr := NewTimeTrajectory(0, 0, 0, 720, 500, 2_000_000)
	_, rate := tr.Evaluate(tr.EndTimeUs())
	require.InDelta(t, 0, rate, 2)

	_, rateAfter := tr.Evaluate(tr.EndTimeUs() + 1_000_000)
	require.Equal(t, int32(0), rateAfter)
}

func TestTimeTrajectoryZeroSpeedIsConstant(t *testing.T) {
	t.Parallel()

	tr := NewTimeTrajectory(0, 500, 0, 0, 500, 1_000_000)
	count, rate := tr.Evaluate(500_000)
	require.Equal(t, int32(500), count)
	require.Equal(t, int32(0), rate)
}

func TestIsqrt(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(0), isqrt(0))
	require.Equal(t, int64(3), isqrt(9))
	require.Equal(t, int64(4), isqrt(17))
}
