package pbio

// Trajectory is a trapezoidal (accelerate / cruise / decelerate) reference
// generator over counts and counts/second, built once per active command
// and evaluated on every tick. All math is integer; microsecond time spans
// are converted to counts via scaled int64 intermediates rather than
// floating point.
//
// Evaluation after the nominal end time holds at the final (count, rate)
// pair, per spec.md §4.3 "After the nominal end time... hold".
type Trajectory struct {
	t0        int64 // start time, us
	count0    int32 // position at t0
	direction int32 // +1, -1, or 0 (no motion)

	// Phase boundary offsets, relative to t0, in microseconds.
	t1, t2, t3 int64
	// Velocity (magnitude, along direction) at the start of the cruise
	// phase == the end of the accel phase.
	vCruise int32
	// Acceleration magnitude used for the accel/decel ramps.
	accel int32
	// Velocity magnitude at t0 (start of the accel ramp).
	v0 int32

	// Distance (magnitude) covered during the accel ramp (d1) and during the
	// decel ramp (d2); the cruise distance is not included in either.
	d1, d2 int32

	endCount int32
}

// NewAngleTrajectory builds a trajectory that starts at count0 moving at
// rate0 and comes to rest exactly at targetCount, following spec.md §4.3:
// triangular (no cruise) if the accel distance exceeds half the remaining
// distance; constant at count0 if targetCount == count0.
func NewAngleTrajectory(t0 int64, count0, rate0, targetCount, maxRate, accel int32) *Trajectory {
	tr := &Trajectory{t0: t0, count0: count0, accel: absInt32(accel), endCount: targetCount}

	dist := targetCount - count0
	if dist == 0 {
		tr.direction = 0
		return tr
	}
	if dist < 0 {
		tr.direction = -1
		dist = -dist
	} else {
		tr.direction = 1
	}

	v0 := tr.direction * rate0
	if v0 < 0 {
		v0 = 0 // already moving the wrong way; treat as starting from rest
	}
	vmax := absInt32(maxRate)
	if v0 > vmax {
		v0 = vmax
	}
	tr.v0 = v0

	tr.buildProfile(v0, vmax, dist)
	return tr
}

// NewTimeTrajectory builds a trajectory that starts at count0 moving at
// rate0, ramps toward the signed speed, and decelerates back to zero
// exactly at t0+durationUs. Position is open-ended (driven purely by the
// commanded speed), matching RunningTime semantics.
func NewTimeTrajectory(t0 int64, count0, rate0, speed, accel int32, durationUs int64) *Trajectory {
	tr := &Trajectory{t0: t0, count0: count0, accel: absInt32(accel)}

	if speed == 0 || durationUs <= 0 {
		tr.direction = 0
		tr.endCount = count0
		return tr
	}
	if speed < 0 {
		tr.direction = -1
	} else {
		tr.direction = 1
	}

	v0 := tr.direction * rate0
	if v0 < 0 {
		v0 = 0
	}
	vmax := absInt32(speed)
	if v0 > vmax {
		v0 = vmax
	}
	tr.v0 = v0

	tr.buildTimedProfile(int64(v0), int64(vmax), durationUs)
	dCruise := int32((int64(tr.vCruise) * (tr.t2 - tr.t1)) / 1_000_000)
	tr.endCount = tr.count0 + tr.direction*(tr.d1+dCruise+tr.d2)
	return tr
}

// buildProfile computes phase boundaries for a fixed-distance (angle) run.
func (tr *Trajectory) buildProfile(v0, vmax, dist int32) {
	a := tr.accel
	if a <= 0 {
		// Degenerate: no acceleration available; treat as an instantaneous
		// jump (a single-tick move). Callers should never configure a
		// non-positive acceleration (spec.md §3 invariant).
		tr.t1, tr.t2, tr.t3 = 0, 0, 0
		tr.d1, tr.d2 = 0, 0
		tr.vCruise = 0
		tr.endCount = tr.count0 + tr.direction*dist
		return
	}

	d1 := distanceOverRamp(v0, vmax, a)
	d2 := distanceOverRamp(0, vmax, a)

	if d1+d2 <= dist {
		// Trapezoidal: reaches vmax, cruises, decelerates to 0.
		tr.vCruise = vmax
		tr.d1 = d1
		tr.d2 = d2
		d3 := dist - d1 - d2

		tr.t1 = timeOverRamp(v0, vmax, a)
		tr.t2 = tr.t1 + microsForDistanceAtRate(d3, vmax)
		tr.t3 = tr.t2 + timeOverRamp(0, vmax, a)
		return
	}

	// Triangular: peak velocity vp s.t. d1(v0->vp) + d2(vp->0) == dist.
	// (vp^2 - v0^2)/(2a) + vp^2/(2a) = dist  =>  vp = sqrt(a*dist + v0^2/2)
	vp := isqrt(int64(a)*int64(dist) + int64(v0)*int64(v0)/2)
	if vp > int64(vmax) {
		vp = int64(vmax)
	}
	if vp < int64(v0) {
		vp = int64(v0)
	}
	tr.vCruise = int32(vp)
	tr.d1 = distanceOverRamp(v0, int32(vp), a)
	tr.d2 = distanceOverRamp(0, int32(vp), a)

	tr.t1 = timeOverRamp(v0, int32(vp), a)
	tr.t2 = tr.t1
	tr.t3 = tr.t1 + timeOverRamp(0, int32(vp), a)
}

// buildTimedProfile computes phase boundaries for a fixed-duration (time)
// run: ramp to vmax, cruise, ramp back to 0, finishing exactly at
// durationUs. If the accel/decel ramps alone exceed the duration, the
// profile is triangular in time instead of distance.
func (tr *Trajectory) buildTimedProfile(v0, vmax, durationUs int64) {
	a := tr.accel
	if a <= 0 {
		tr.vCruise = vmax32(vmax)
		tr.t1, tr.t2, tr.t3 = 0, durationUs, durationUs
		tr.d1 = 0
		tr.d2 = 0
		return
	}

	tAccel := timeOverRamp(int32(v0), int32(vmax), a)
	tDecel := timeOverRamp(0, int32(vmax), a)

	if tAccel+tDecel <= durationUs {
		tr.vCruise = int32(vmax)
		tr.t1 = tAccel
		tr.t3 = durationUs
		tr.t2 = durationUs - tDecel
		tr.d1 = distanceOverRamp(int32(v0), int32(vmax), a)
		tr.d2 = distanceOverRamp(0, int32(vmax), a)
		return
	}

	// Triangular in time: accelerate for t1 = durationUs/2 - v0/(2a), then
	// decelerate at the same magnitude, so velocity peaks at t1 and returns
	// to 0 at durationUs. If v0 is too high to stop within durationUs, t1 is
	// 0 and the rate at durationUs is still above 0.
	total := tAccel + tDecel
	if total == 0 {
		tr.t1, tr.t2, tr.t3 = 0, 0, durationUs
		return
	}
	tr.t1 = durationUs/2 - v0*1_000_000/(2*int64(a))
	if tr.t1 < 0 {
		tr.t1 = 0
	}
	tr.t2 = tr.t1
	tr.t3 = durationUs
	vp := velocityAt(int32(v0), a, tr.t1)
	tr.vCruise = vp
	tr.d1 = positionAt(int32(v0), a, tr.t1)
	tr.d2 = positionAt(vp, -a, tr.t3-tr.t2)
}

// Evaluate returns (count_ref, rate_ref) at absolute time nowUs.
func (tr *Trajectory) Evaluate(nowUs int64) (countRef, rateRef int32) {
	if tr.direction == 0 {
		return tr.count0, 0
	}

	tau := nowUs - tr.t0
	if tau < 0 {
		tau = 0
	}

	switch {
	case tau <= tr.t1:
		v := velocityAt(tr.v0, tr.accel, tau)
		d := positionAt(tr.v0, tr.accel, tau)
		return tr.count0 + tr.direction*d, tr.direction * v
	case tau <= tr.t2:
		dCruise := int32((int64(tr.vCruise) * (tau - tr.t1)) / 1_000_000)
		return tr.count0 + tr.direction*(tr.d1+dCruise), tr.direction * tr.vCruise
	case tau <= tr.t3:
		tDecel := tau - tr.t2
		v := velocityAt(tr.vCruise, -tr.accel, tDecel)
		// Measure the decel ramp back from the resting position, so the
		// reference reaches endCount exactly at t3.
		dLeft := positionAt(0, tr.accel, tr.t3-tau)
		return tr.endCount - tr.direction*dLeft, tr.direction * v
	default:
		return tr.endCount, 0
	}
}

// TargetCount returns the trajectory's resting position (valid once the
// profile has run to completion).
func (tr *Trajectory) TargetCount() int32 { return tr.endCount }

// EndTimeUs returns the absolute time at which the reference reaches its
// final resting (count, 0) state.
func (tr *Trajectory) EndTimeUs() int64 { return tr.t0 + tr.t3 }

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func vmax32(v int64) int32 { return int32(v) }

// distanceOverRamp returns the distance (counts) covered ramping linearly
// from v0 to v1 (counts/s) at acceleration magnitude a (counts/s^2).
func distanceOverRamp(v0, v1, a int32) int32 {
	if a <= 0 || v1 == v0 {
		return 0
	}
	// d = (v1^2 - v0^2) / (2a)
	return int32((int64(v1)*int64(v1) - int64(v0)*int64(v0)) / (2 * int64(a)))
}

// timeOverRamp returns the time (us) to ramp linearly from v0 to v1
// (counts/s) at acceleration magnitude a (counts/s^2).
func timeOverRamp(v0, v1, a int32) int64 {
	if a <= 0 {
		return 0
	}
	return (int64(v1) - int64(v0)) * 1_000_000 / int64(a)
}

// microsForDistanceAtRate returns the microseconds to cover dist counts at
// a constant rate (counts/s).
func microsForDistanceAtRate(dist, rate int32) int64 {
	if rate == 0 {
		return 0
	}
	return int64(dist) * 1_000_000 / int64(rate)
}

// velocityAt returns v0 + a*t (t in microseconds, a in counts/s^2).
func velocityAt(v0, a int32, tUs int64) int32 {
	return int32(int64(v0) + (int64(a)*tUs)/1_000_000)
}

// positionAt returns v0*t + 0.5*a*t^2 (t in microseconds).
func positionAt(v0, a int32, tUs int64) int32 {
	term1 := (int64(v0) * tUs) / 1_000_000
	term2 := (int64(a) * tUs * tUs) / 2_000_000_000_000
	return int32(term1 + term2)
}

// isqrt returns the integer square root of n (n >= 0) via Newton's method.
func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
