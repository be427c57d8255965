package pbio

import (
	"errors"

	"github.com/itohio/pbio/fix16"
)

// Tacho is a per-port layer over a CounterDev that produces signed,
// offset-corrected encoder counts, rates, and angles.
//
// Direction and gear ratio are fixed at Setup and never change afterwards;
// offset is mutated only by the explicit Reset* operations. A Tacho is
// constructed once at port configuration and lives for the program's
// lifetime, mirroring lib/pbio/src/tacho.c's module-level tachos[] array
// (here owned explicitly by a MotorSystem instead of a package global, per
// spec.md §9).
type Tacho struct {
	port      int
	counter   CounterDev
	direction Direction
	offset    int32
	cpd       fix16.Fix16 // counts per degree; never negative after Setup (zero for a zero gear ratio)
}

// newTacho wires a Tacho to its backing counter. It is unconfigured until
// Setup is called.
func newTacho(port int, counter CounterDev) *Tacho {
	return &Tacho{port: port, counter: counter}
}

// Setup validates gear_ratio, records direction and, if resetAngle is true, resets
// the reported position to either the hardware's absolute count (if
// supported) or zero.
//
// Ported from pbio_tacho_setup: gearRatio must be >= 0. When resetAngle is
// false, Setup still performs one test read of the counter so that a
// missing/broken device fails fast at configuration time rather than on the
// first tick.
func (t *Tacho) Setup(direction Direction, gearRatio fix16.Fix16, resetAngle bool) error {
	if gearRatio < 0 {
		return newErr(t.port, ErrKindInvalidArg, nil)
	}

	t.direction = direction
	t.cpd = fix16.Mul(hwCountsPerDegree, gearRatio)

	if !resetAngle {
		_, err := t.rawCount()
		if err != nil {
			return newErr(t.port, ErrKindIO, err)
		}
		return nil
	}

	_, err := t.resetCountToAbs()
	if errors.Is(err, ErrNotSupported) {
		return t.resetCount(0)
	}
	return err
}

// GetCount returns the signed, offset-corrected encoder count:
// count = raw_count*sign(direction) - offset.
func (t *Tacho) GetCount() (int32, error) {
	return t.rawCount()
}

// GetRate returns the signed counts/second, direction-corrected.
func (t *Tacho) GetRate() (int32, error) {
	raw, err := t.counter.Rate()
	if err != nil {
		return 0, newErr(t.port, ErrKindIO, err)
	}
	return raw * t.direction.sign(), nil
}

// GetAngle returns GetCount() converted to degrees via Fix16 division.
func (t *Tacho) GetAngle() (int32, error) {
	count, err := t.GetCount()
	if err != nil {
		return 0, err
	}
	return fix16.DivInt32(count, t.cpd), nil
}

// GetAngularRate returns GetRate() converted to degrees/second.
func (t *Tacho) GetAngularRate() (int32, error) {
	rate, err := t.GetRate()
	if err != nil {
		return 0, err
	}
	return fix16.DivInt32(rate, t.cpd), nil
}

// ResetCount sets the offset such that the very next GetCount call (modulo
// any encoder motion between the two calls) returns newCount.
func (t *Tacho) ResetCount(newCount int32) error {
	return t.resetCount(newCount)
}

// ResetAngle sets the reported angle to newAngle. If toAbs is true, the
// hardware's absolute count is used instead and the resulting angle is
// returned; otherwise newAngle is converted to a count via Fix16 multiply
// and applied directly.
func (t *Tacho) ResetAngle(newAngle int32, toAbs bool) (resultAngle int32, err error) {
	if toAbs {
		absCount, err := t.resetCountToAbs()
		if err != nil {
			return 0, err
		}
		return fix16.DivInt32(absCount, t.cpd), nil
	}
	return newAngle, t.resetCount(fix16.MulInt32(newAngle, t.cpd))
}

// CountsPerDegree returns the effective counts-per-degree ratio in effect
// since the last Setup call.
func (t *Tacho) CountsPerDegree() fix16.Fix16 {
	return t.cpd
}

func (t *Tacho) rawCount() (int32, error) {
	raw, err := t.counter.Count()
	if err != nil {
		return 0, newErr(t.port, ErrKindIO, err)
	}
	return raw*t.direction.sign() - t.offset, nil
}

// resetCount implements pbio_tacho_reset_count: it takes a fresh read
// (with the existing offset already applied) and recomputes the offset so
// that read, reapplied, equals newCount.
func (t *Tacho) resetCount(newCount int32) error {
	count, err := t.rawCount()
	if err != nil {
		return err
	}
	t.offset = count + t.offset - newCount
	return nil
}

// resetCountToAbs implements pbio_tacho_reset_count_to_abs: read the
// hardware absolute count (direction-corrected), then reset to it.
func (t *Tacho) resetCountToAbs() (int32, error) {
	abs, err := t.counter.AbsoluteCount()
	if err != nil {
		if errors.Is(err, ErrNotSupported) {
			return 0, newErr(t.port, ErrKindNotSupported, err)
		}
		return 0, newErr(t.port, ErrKindIO, err)
	}
	abs *= t.direction.sign()
	if err := t.resetCount(abs); err != nil {
		return 0, err
	}
	return abs, nil
}
