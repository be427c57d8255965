package pbio

import (
	"testing"

	"github.com/itohio/pbio/fix16"
	"github.com/itohio/pbio/pbiotest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const tickUs = int64(5000)

func newTestController(t *testing.T, counter *pbiotest.Counter, sink *pbiotest.Sink, clock *pbiotest.Clock, settings Settings) *Controller {
	t.Helper()
	tacho := newTacho(0, counter)
	require.NoError(t, tacho.Setup(Clockwise, fix16.One, false))
	return newController(0, tacho, sink, clock, settings, zerolog.Nop())
}

// TestRunAngleShortHopCompletes implements scenario S3 from spec.md §8: a
// short run_angle command (90 deg = 180 counts; at 360 counts/s and 1000
// counts/s^2 the two ramps cover 128 counts, so the profile still has a
// short cruise) reaches Tracking (is_done) within two ticks of the
// trajectory's own nominal end time, honoring invariant 6 (completion in
// bounded time).
func TestRunAngleShortHopCompletes(t *testing.T) {
	t.Parallel()

	counter := &pbiotest.Counter{}
	sink := &pbiotest.Sink{}
	clock := pbiotest.NewClock(0)
	settings := Settings{
		MaxRate:         2000,
		CountTolerance:  2,
		RateTolerance:   2,
		AbsAcceleration: 1000,
		TightLoopTime:   10_000,
		KP:              20,
	}
	ctl := newTestController(t, counter, sink, clock, settings)

	require.NoError(t, ctl.RunAngle(90, 180, EndHold))
	require.False(t, ctl.IsDone())

	traj := ctl.State().(StateRunningAngle).Trajectory
	endUs := traj.EndTimeUs()

	// Drive the "plant" to track the reference exactly every tick, so the
	// loop exercises completion logic without depending on PID convergence.
	for i := 0; i < 1000 && !ctl.IsDone(); i++ {
		clock.Advance(tickUs)
		countRef, rateRef := traj.Evaluate(clock.NowUs())
		counter.RawCount = countRef
		counter.RawRate = rateRef
		require.NoError(t, ctl.Tick())
		if clock.NowUs() > endUs+10*tickUs {
			break
		}
	}

	require.True(t, ctl.IsDone())
	require.Equal(t, StateKindTracking, ctl.State().Kind())
	require.LessOrEqual(t, clock.NowUs(), endUs+2*tickUs, "completion must follow shortly after the trajectory's own end time")
}

// TestRunAngleStallDetection implements scenario S4: the encoder is frozen
// (jammed axis) while a long run_angle is in progress. Invariant 5
// (anti-windup freezes err_integral while saturated) and invariant 7 (stall
// flags appear only after stall_time of sustained saturation) both apply.
func TestRunAngleStallDetection(t *testing.T) {
	t.Parallel()

	counter := &pbiotest.Counter{}
	sink := &pbiotest.Sink{}
	clock := pbiotest.NewClock(0)
	settings := Settings{
		MaxRate:         2000,
		CountTolerance:  2,
		RateTolerance:   2,
		AbsAcceleration: 1000,
		TightLoopTime:   10_000,
		StallRateLimit:  5,
		StallTime:       200_000,
		KP:              50,
	}
	ctl := newTestController(t, counter, sink, clock, settings)

	require.NoError(t, ctl.RunAngle(3600, 360, EndCoast))

	var stalledAtIntegral int64
	sawStallOnset := false
	for i := 0; i < 400; i++ {
		clock.Advance(tickUs)
		require.NoError(t, ctl.Tick())

		if !sawStallOnset && ctl.IsStalled().IsStalled() {
			sawStallOnset = true
			stalledAtIntegral = ctl.State().(StateRunningAngle).status.errIntegral
		}
	}

	require.True(t, sawStallOnset, "expected controller to report a stall before the loop ended")
	require.True(t, ctl.IsStalled()&StallProportional != 0, "expected a proportional-term stall with KI=0")
	require.Equal(t, MaxDuty, sink.Duty, "duty should stay saturated against the jammed axis")
	require.Equal(t, stalledAtIntegral, ctl.State().(StateRunningAngle).status.errIntegral,
		"err_integral must stop growing once the reference clock is paused (invariant 5)")
}

// TestRunTimeTightLoopPreservesIntegrator implements scenario S5: a second
// run_time issued within tight_loop_time of the first must not reset the
// speed integrator, while one issued after the window elapses starts fresh.
func TestRunTimeTightLoopPreservesIntegrator(t *testing.T) {
	t.Parallel()

	counter := &pbiotest.Counter{RawRate: 0}
	sink := &pbiotest.Sink{}
	clock := pbiotest.NewClock(0)
	settings := Settings{
		MaxRate:         2000,
		AbsAcceleration: 1000,
		TightLoopTime:   50_000,
		KP:              5,
	}
	ctl := newTestController(t, counter, sink, clock, settings)

	require.NoError(t, ctl.RunTime(1000, 180, EndCoast))
	clock.Advance(10_000)
	require.NoError(t, ctl.Tick())

	st := ctl.State().(StateRunningTime)
	accumulated := st.status.speedIntegrator
	require.NotZero(t, accumulated, "expected a nonzero speed integrator after a tick with rate error")

	// Second run_time, still inside tight_loop_time (10ms < 50ms window):
	// the existing status must be carried over untouched.
	require.NoError(t, ctl.RunTime(500, 90, EndCoast))
	afterTight := ctl.State().(StateRunningTime).status
	require.Equal(t, accumulated, afterTight.speedIntegrator,
		"tight-loop run_time must preserve the speed integrator (spec.md §4.4 point 5)")

	// Now let the window elapse and issue a third run_time: it must start a
	// fresh integrator.
	clock.Advance(100_000)
	require.NoError(t, ctl.RunTime(500, 90, EndCoast))
	fresh := ctl.State().(StateRunningTime).status
	require.Zero(t, fresh.speedIntegrator, "a run_time outside the tight-loop window must reset the integrator")
}

// TestTrackTargetHoldsThroughDisturbance implements scenario S6: Tracking
// always reports is_done, including while correcting a disturbance, and
// pushes duty back toward the target.
func TestTrackTargetHoldsThroughDisturbance(t *testing.T) {
	t.Parallel()

	counter := &pbiotest.Counter{RawCount: 90}
	sink := &pbiotest.Sink{}
	clock := pbiotest.NewClock(0)
	settings := Settings{
		CountTolerance: 2,
		RateTolerance:  2,
		KP:             10,
	}
	ctl := newTestController(t, counter, sink, clock, settings)

	require.NoError(t, ctl.TrackTarget(45)) // target count = 90
	require.True(t, ctl.IsDone())

	clock.Advance(tickUs)
	require.NoError(t, ctl.Tick())
	require.True(t, ctl.IsDone(), "Tracking must report is_done on every tick")
	require.Equal(t, int32(0), sink.Duty, "no error, no correction needed")

	// Disturbance: something pushes the axis back by 50 counts.
	counter.RawCount = 40
	clock.Advance(tickUs)
	require.NoError(t, ctl.Tick())
	require.True(t, ctl.IsDone(), "Tracking must stay is_done while correcting a disturbance")
	require.Equal(t, int32(500), sink.Duty, "10 * (90-40) == 500, pushing back toward target")

	// Disturbance resolved.
	counter.RawCount = 90
	clock.Advance(tickUs)
	require.NoError(t, ctl.Tick())
	require.True(t, ctl.IsDone())
	require.Equal(t, int32(0), sink.Duty)
}

// TestTickIOFaultEntersErroredAndCoasts checks invariant 8: an I/O fault
// observed mid-tick transitions to Errored and the motor is coasted, never
// left driving the last commanded duty.
func TestTickIOFaultEntersErroredAndCoasts(t *testing.T) {
	t.Parallel()

	counter := &pbiotest.Counter{RawCount: 90}
	sink := &pbiotest.Sink{}
	clock := pbiotest.NewClock(0)
	ctl := newTestController(t, counter, sink, clock, Settings{CountTolerance: 2, RateTolerance: 2, KP: 10})

	require.NoError(t, ctl.TrackTarget(45))

	counter.CountErr = ErrIO
	clock.Advance(tickUs)
	err := ctl.Tick()
	require.Error(t, err)
	require.Equal(t, StateKindErrored, ctl.State().Kind())
	require.True(t, sink.Coasted, "the sink must be coasted on an I/O fault")
}

// TestSetDutyAndApplyEndActionDoNotChangeStateOnSinkError checks that a
// sink failure during an explicit command leaves the state unchanged,
// rather than transitioning first and failing second.
func TestSetDutyAndApplyEndActionDoNotChangeStateOnSinkError(t *testing.T) {
	t.Parallel()

	counter := &pbiotest.Counter{}
	sink := &pbiotest.Sink{SetErr: ErrIO}
	clock := pbiotest.NewClock(0)
	ctl := newTestController(t, counter, sink, clock, Settings{AbsAcceleration: 1000, MaxRate: 100})

	before := ctl.State().Kind()
	require.Error(t, ctl.SetDuty(500))
	require.Equal(t, before, ctl.State().Kind(), "a failed SetDuty must not change state")

	sink.CoastErr = ErrIO
	require.Error(t, ctl.Stop(EndCoast))
	require.Equal(t, before, ctl.State().Kind(), "a failed Stop(EndCoast) must not change state")
}
