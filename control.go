package pbio

import (
	"github.com/itohio/pbio/fix16"
	"github.com/rs/zerolog"
)

// pidScaleMs converts a microsecond time delta into integer milliseconds
// for PID integral/derivative scaling, matching the tick cadence spec.md §2
// describes (1-10ms).
const pidScaleMs = 1000

// Controller is the state machine + PID + anti-windup + stall detector for
// one motor axis. It owns no hardware directly: Tacho and MotorSink are
// borrowed, mirroring x/devices/motor.Motor's relationship to its PWM and
// encoder dependencies, generalized from RPM speed control to position/time
// run commands with a trapezoidal reference.
type Controller struct {
	port     int
	tacho    *Tacho
	sink     MotorSink
	clock    Clock
	settings Settings

	state State

	lastCommandUs int64
	haveLastCmd   bool

	log   zerolog.Logger
	trace tickRecorder
}

// tickRecorder is the narrow interface pbiotrace.TickTrace satisfies, kept
// here to avoid an import cycle; nil by default (tracing is opt-in).
type tickRecorder interface {
	Record(nowUs int64, count, countRef, rate, rateRef, duty int32, stall StallFlags)
}

func newController(port int, tacho *Tacho, sink MotorSink, clock Clock, settings Settings, log zerolog.Logger) *Controller {
	return &Controller{
		port:     port,
		tacho:    tacho,
		sink:     sink,
		clock:    clock,
		settings: settings,
		state:    StateCoasting{},
		log:      log.With().Int("port", port).Logger(),
	}
}

// SetTrace attaches an optional per-tick recorder (see pbio/pbiotrace).
func (c *Controller) SetTrace(t tickRecorder) { c.trace = t }

// State returns the Controller's current mode as of the last completed
// tick (spec.md §5: "Status reads observe the state as of the last
// completed tick").
func (c *Controller) State() State { return c.state }

// IsDone reports whether the current state is a completed/passive state:
// true for Tracking (where a run ends when its EndAction is EndHold) and
// for every passive state; false for an in-progress RunningTime/RunningAngle.
func (c *Controller) IsDone() bool {
	switch c.state.(type) {
	case StateRunningTime, StateRunningAngle:
		return false
	default:
		return true
	}
}

// IsStalled returns the stall flags observed on the last completed tick.
// Passive states are never stalled.
func (c *Controller) IsStalled() StallFlags {
	switch s := c.state.(type) {
	case StateRunningAngle:
		return s.lastStall
	case StateRunningTime:
		return s.lastStall
	case StateTracking:
		return s.lastStall
	default:
		return StallNone
	}
}

func (c *Controller) setState(s State, reason string) {
	old := StateKindCoasting
	if c.state != nil {
		old = c.state.Kind()
	}
	c.log.Debug().Stringer("from", old).Stringer("to", s.Kind()).Str("reason", reason).Msg("state transition")
	c.state = s
}

func (c *Controller) degToCount(deg int32) int32 {
	return fix16.MulInt32(deg, c.tacho.CountsPerDegree())
}

func (c *Controller) countToDeg(count int32) int32 {
	return fix16.DivInt32(count, c.tacho.CountsPerDegree())
}

func (c *Controller) degSToCountS(degS int32) int32 { return c.degToCount(degS) }

// tightLoop reports whether now is within TightLoopTime of the previous
// command, per spec.md §4.4 point 5 and the open question in §9: the
// bypass is a pure time comparison, never dependent on command-count
// history.
func (c *Controller) tightLoop(now int64) bool {
	if !c.haveLastCmd {
		return false
	}
	return now-c.lastCommandUs < c.settings.TightLoopTime
}

func (c *Controller) markCommand(now int64) {
	c.lastCommandUs = now
	c.haveLastCmd = true
}
