package pbio

import "time"

// Direction is the sign convention applied at the Tacho boundary.
// Counterclockwise negates raw counts and raw rates; Clockwise passes them
// through unchanged.
type Direction int

const (
	Clockwise Direction = iota
	Counterclockwise
)

func (d Direction) sign() int32 {
	if d == Counterclockwise {
		return -1
	}
	return 1
}

// Clock is a monotonic microsecond time source, implemented externally
// (e.g. by a hardware timer on an embedded target, or time.Now on host).
// It is a capability interface in the style of x/devices.Pin/PWM: small,
// mockable, and owned by the caller rather than the core.
type Clock interface {
	// NowUs returns a monotonically non-decreasing microsecond timestamp.
	NowUs() int64
}

// SystemClock implements Clock using the Go runtime's monotonic clock.
type SystemClock struct{ start time.Time }

// NewSystemClock returns a Clock anchored at the current time.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// NowUs implements Clock.
func (c *SystemClock) NowUs() int64 {
	return time.Since(c.start).Microseconds()
}

// CounterDev is the raw hardware quadrature counter abstraction that Tacho
// sits on top of. It is read-only from the core's perspective (§5: "the
// hardware counter is read-only to the core"). Implementations are
// typically interrupt-driven, as in x/devices/encoder.Device.
type CounterDev interface {
	// Count returns the raw signed encoder count.
	Count() (int32, error)
	// Rate returns the raw signed counts/second.
	Rate() (int32, error)
	// AbsoluteCount returns the raw signed absolute position count, if the
	// underlying hardware supports it. Implementations that don't must
	// return ErrNotSupported (via a *ControlError or the bare sentinel;
	// Tacho only checks errors.Is).
	AbsoluteCount() (int32, error)
}

// MotorSink is the hardware duty abstraction the Controller drives. It is
// write-only from the core's perspective.
type MotorSink interface {
	// SetDuty applies a signed duty cycle in [-10000, 10000] (0.01% steps).
	SetDuty(duty int32) error
	// Coast lets the motor spin freely (high-impedance output stage).
	Coast() error
	// Brake shorts the motor terminals for active braking.
	Brake() error
}
