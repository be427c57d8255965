package pbio

// Tick evaluates one control-loop iteration: read tacho, evaluate the
// reference, run PID + anti-windup + stall detection, emit duty. It is
// invoked periodically by an external scheduler (spec.md §5); it never
// blocks and always returns immediately.
func (c *Controller) Tick() error {
	now := c.clock.NowUs()

	switch s := c.state.(type) {
	case StateTracking:
		return c.tickTracking(now, s)
	case StateRunningAngle:
		return c.tickRunningAngle(now, s)
	case StateRunningTime:
		return c.tickRunningTime(now, s)
	default:
		// Passive states bypass PID entirely (spec.md §4, §5).
		return nil
	}
}

func (c *Controller) ioFault(err error) error {
	ce := newErr(c.port, ErrKindIO, err)
	c.log.Warn().Err(err).Msg("tick observed hardware fault, entering errored state")
	c.setState(StateErrored{Kind_: ErrKindIO}, "tick io fault")
	// Invariant 8 (spec.md §8): the next emitted duty after an Errored
	// transition is 0 (coast). Best-effort: if the sink is also faulting
	// we still report the original error.
	_ = c.sink.Coast()
	return ce
}

func (c *Controller) tickTracking(now int64, s StateTracking) error {
	count, rate, err := c.readTacho()
	if err != nil {
		return c.ioFault(err)
	}

	duty, stall := c.angularPID(s.status, now, s.Target, count, rate)
	s.lastStall = stall
	c.state = s

	if err := c.sink.SetDuty(duty); err != nil {
		return c.ioFault(err)
	}
	c.recordTrace(now, count, s.Target, rate, 0, duty, stall)
	return nil
}

func (c *Controller) tickRunningAngle(now int64, s StateRunningAngle) error {
	count, rate, err := c.readTacho()
	if err != nil {
		return c.ioFault(err)
	}

	effectiveNow := now - s.status.timePausedUs
	countRef, rateRef := s.Trajectory.Evaluate(effectiveNow)

	duty, stall := c.angularPID(s.status, now, countRef, count, rate)
	s.lastStall = stall

	targetErr := s.TargetCount - count
	if abs32(targetErr) <= c.settings.CountTolerance && abs32(rate) <= c.settings.RateTolerance {
		if err := c.sink.SetDuty(0); err != nil {
			return c.ioFault(err)
		}
		c.recordTrace(now, count, countRef, rate, rateRef, 0, stall)
		return c.applyEndAction(s.EndAction, "run_angle complete")
	}

	c.state = s
	if err := c.sink.SetDuty(duty); err != nil {
		return c.ioFault(err)
	}
	c.recordTrace(now, count, countRef, rate, rateRef, duty, stall)
	return nil
}

func (c *Controller) tickRunningTime(now int64, s StateRunningTime) error {
	count, rate, err := c.readTacho()
	if err != nil {
		return c.ioFault(err)
	}

	countRef, rateRef := s.Trajectory.Evaluate(now)

	duty, stall := c.timedPID(s.status, now, rateRef, rate)
	s.lastStall = stall

	if now >= s.Deadline {
		if err := c.sink.SetDuty(0); err != nil {
			return c.ioFault(err)
		}
		c.recordTrace(now, count, countRef, rate, rateRef, 0, stall)
		return c.applyEndAction(s.EndAction, "run_time complete")
	}

	c.state = s
	if err := c.sink.SetDuty(duty); err != nil {
		return c.ioFault(err)
	}
	c.recordTrace(now, count, countRef, rate, rateRef, duty, stall)
	return nil
}

// angularPID implements spec.md §4.4 steps 3-7 for position control: P on
// count_err, I on the time-integral of count_err (paused during
// saturation), D on the rate of change of count_err. Anti-windup pauses
// both the integral and the reference clock while the output is saturated
// against the sign of count_err.
func (c *Controller) angularPID(status *angularCtlStatus, now int64, countRef, count, rate int32) (int32, StallFlags) {
	countErr := countRef - count

	dtUs := now - status.timePrevUs
	if dtUs < 0 {
		dtUs = 0
	}
	dtMs := dtUs / pidScaleMs

	if status.refTimeRunning && dtMs > 0 {
		status.errIntegral += int64(countErr) * dtMs
	}

	p := int64(c.settings.KP) * int64(countErr)
	i := int64(c.settings.KI) * status.errIntegral
	var d int64
	if dtMs > 0 {
		d = int64(c.settings.KD) * int64(countErr-status.countErrPrev) / dtMs
	}

	dutyRaw := p + i + d
	duty, saturated, satSign := saturateDuty(dutyRaw)

	stalled := false
	if saturated && satSign == sign32(countErr) {
		if status.refTimeRunning {
			// Just entered saturation: start the stall timer here.
			status.timeStoppedUs = now
		}
		status.refTimeRunning = false
		// Keep effectiveNow = now - timePausedUs frozen for as long as we
		// stay saturated, by growing timePausedUs in lockstep with now.
		status.timePausedUs += dtUs
		if abs32(rate) < c.settings.StallRateLimit {
			stalled = now-status.timeStoppedUs >= c.settings.StallTime
		}
	} else {
		status.refTimeRunning = true
	}

	status.countErrPrev = countErr
	status.timePrevUs = now

	flags := StallNone
	if stalled {
		// Distinguish which term is driving the saturation: if the P+D
		// contribution alone would already saturate, attribute it to P;
		// otherwise the integral term is the one holding it there.
		_, pOnlySaturated, _ := saturateDuty(p + d)
		if pOnlySaturated {
			flags |= StallProportional
		} else {
			flags |= StallIntegral
		}
	}

	return duty, flags
}

// timedPID implements the speed-control law used by RunningTime: per the
// field comments in pbio_control_settings_t, kd acts as the proportional
// speed gain and kp as the integral speed gain in this mode (the same three
// tuning constants are reused with swapped roles between position and
// speed control - see SPEC_FULL.md §12).
func (c *Controller) timedPID(status *timedCtlStatus, now int64, rateRef, rate int32) (int32, StallFlags) {
	rateErr := rateRef - rate

	if status.integratorRunning {
		status.speedIntegrator += rateErr
	}

	p := int64(c.settings.KD) * int64(rateErr)
	i := int64(c.settings.KP) * int64(status.speedIntegrator) / pidScaleMs

	dutyRaw := p + i
	duty, saturated, satSign := saturateDuty(dutyRaw)

	stalled := false
	if saturated && satSign == sign32(rateErr) {
		if status.integratorRunning {
			// Just entered saturation: start the stall timer here.
			status.integratorStopUs = now
		}
		status.integratorRunning = false
		if abs32(rate) < c.settings.StallRateLimit {
			stalled = now-status.integratorStopUs >= c.settings.StallTime
		}
	} else {
		status.integratorRunning = true
	}

	flags := StallNone
	if stalled {
		flags |= StallIntegral
	}

	return duty, flags
}

// saturateDuty clamps to [-MaxDuty, MaxDuty] and reports whether clamping
// occurred and in which direction (+1, -1, or 0 if not saturated).
func saturateDuty(raw int64) (duty int32, saturated bool, sign int32) {
	if raw > int64(MaxDuty) {
		return MaxDuty, true, 1
	}
	if raw < -int64(MaxDuty) {
		return -MaxDuty, true, -1
	}
	return int32(raw), false, 0
}

func sign32(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func (c *Controller) recordTrace(now int64, count, countRef, rate, rateRef, duty int32, stall StallFlags) {
	if c.trace != nil {
		c.trace.Record(now, count, countRef, rate, rateRef, duty, stall)
	}
}
