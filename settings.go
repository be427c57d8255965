package pbio

// Settings holds the immutable-during-active-control tuning constants for
// one Controller, field-for-field matching pbio_control_settings_t in
// lib/pbio/include/pbio/control.h.
type Settings struct {
	// StallRateLimit is the counts/s below which the motor is considered
	// stopped for stall-detection purposes.
	StallRateLimit int32
	// StallTime is the minimum duration (us) the stall conditions must hold
	// before IsStalled reports a flag.
	StallTime int64
	// MaxRate is the soft limit on the reference encoder rate in all run
	// commands (counts/s).
	MaxRate int32
	// RateTolerance is the allowed deviation (counts/s) from target speed
	// for completion purposes.
	RateTolerance int32
	// CountTolerance is the allowed deviation (counts) from target before
	// motion is considered complete.
	CountTolerance int32
	// AbsAcceleration is the encoder acceleration/deceleration magnitude
	// (counts/s^2); must be strictly positive.
	AbsAcceleration int32
	// TightLoopTime (us): when a run command is issued again within this
	// interval of the previous one, the bypass in spec.md §4.4 point 5
	// kicks in.
	TightLoopTime int64
	// PID gains.
	KP, KI, KD int32
}

// Validate checks the invariants from spec.md §3 ("acceleration strictly
// positive") that setup-time configuration must satisfy.
func (s Settings) Validate() error {
	if s.AbsAcceleration <= 0 {
		return ErrInvalidArg
	}
	if s.CountTolerance < 0 || s.RateTolerance < 0 || s.StallRateLimit < 0 {
		return ErrInvalidArg
	}
	return nil
}

// StallFlags is a bitfield over {Proportional, Integral}; zero means "not
// stalled".
type StallFlags uint8

const (
	StallNone          StallFlags = 0
	StallProportional  StallFlags = 1 << 0
	StallIntegral      StallFlags = 1 << 1
)

func (f StallFlags) IsStalled() bool { return f != StallNone }

// EndAction selects what Stop (or a RunningTime/RunningAngle completion)
// transitions into.
type EndAction int

const (
	EndCoast EndAction = iota
	EndBrake
	EndHold
)

// angularCtlStatus is the PID bookkeeping attached to position-holding
// active states (Tracking, RunningAngle), matching
// pbio_angular_control_status_t.
type angularCtlStatus struct {
	refTimeRunning bool
	errIntegral    int64
	countErrPrev   int32
	timePrevUs     int64
	timePausedUs   int64
	timeStoppedUs  int64
}

// timedCtlStatus is the PID bookkeeping attached to RunningTime, matching
// pbio_timed_control_status_t. RunningTime runs closed-loop speed control
// (hence a speed integrator) rather than position control.
//
// pbio_timed_control_status_t also carries integrator_ref_start and
// integrator_start, snapshots of the integrated reference/actual speed
// taken when the integrator resumes after a pause. timedPID accumulates
// rateErr into speedIntegrator directly and never restarts that sum from
// a separate raw integral, so there is nothing for those two fields to
// seed here; they are dropped rather than carried as dead state.
type timedCtlStatus struct {
	integratorRunning bool
	speedIntegrator   int32
	integratorStopUs  int64
}
