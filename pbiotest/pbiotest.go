// Package pbiotest provides deterministic fakes for pbio.Clock,
// pbio.CounterDev, and pbio.MotorSink, shared across the pbio package's
// tests the way x/devices/encoder/example_test.go shares its fixture setup.
package pbiotest

import "github.com/itohio/pbio"

// ErrNoAbsolute is returned by Counter.AbsoluteCount when the fake has no
// absolute channel configured, mirroring a real incremental-only encoder.
// It is pbio.ErrNotSupported itself, so Tacho's errors.Is check recognizes it.
var ErrNoAbsolute = pbio.ErrNotSupported

// Clock is a manually-advanced monotonic microsecond clock.
type Clock struct {
	nowUs int64
}

// NewClock returns a Clock starting at t0 microseconds.
func NewClock(t0 int64) *Clock { return &Clock{nowUs: t0} }

// NowUs implements pbio.Clock.
func (c *Clock) NowUs() int64 { return c.nowUs }

// Advance moves the clock forward by deltaUs.
func (c *Clock) Advance(deltaUs int64) { c.nowUs += deltaUs }

// Counter is a fake hardware quadrature counter whose raw count/rate/abs
// count are set directly by a test, rather than driven by real encoder
// edges.
type Counter struct {
	RawCount    int32
	RawRate     int32
	AbsSupport  bool
	RawAbsCount int32
	CountErr    error
	RateErr     error
}

// Count implements pbio.CounterDev.
func (c *Counter) Count() (int32, error) {
	if c.CountErr != nil {
		return 0, c.CountErr
	}
	return c.RawCount, nil
}

// Rate implements pbio.CounterDev.
func (c *Counter) Rate() (int32, error) {
	if c.RateErr != nil {
		return 0, c.RateErr
	}
	return c.RawRate, nil
}

// AbsoluteCount implements pbio.CounterDev.
func (c *Counter) AbsoluteCount() (int32, error) {
	if !c.AbsSupport {
		return 0, ErrNoAbsolute
	}
	return c.RawAbsCount, nil
}

// Sink is a fake motor duty sink that records the last command applied and
// a full history for assertions.
type Sink struct {
	Duty     int32
	Coasted  bool
	Braked   bool
	History  []int32
	SetErr   error
	CoastErr error
	BrakeErr error
	// Frozen is not read by Sink's methods: a Sink never moves a Counter,
	// so an axis driven through it stays where its Counter is set.
	Frozen bool
}

// SetDuty implements pbio.MotorSink.
func (s *Sink) SetDuty(duty int32) error {
	if s.SetErr != nil {
		return s.SetErr
	}
	s.Duty = duty
	s.Coasted = false
	s.Braked = false
	s.History = append(s.History, duty)
	return nil
}

// Coast implements pbio.MotorSink.
func (s *Sink) Coast() error {
	if s.CoastErr != nil {
		return s.CoastErr
	}
	s.Duty = 0
	s.Coasted = true
	s.History = append(s.History, 0)
	return nil
}

// Brake implements pbio.MotorSink.
func (s *Sink) Brake() error {
	if s.BrakeErr != nil {
		return s.BrakeErr
	}
	s.Duty = 0
	s.Braked = true
	s.History = append(s.History, 0)
	return nil
}
