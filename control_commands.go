package pbio

// RunTime runs the motor at speedDegS degrees/second for durationMs
// milliseconds, then performs end.
func (c *Controller) RunTime(durationMs int64, speedDegS int32, end EndAction) error {
	now := c.clock.NowUs()
	count, rate, err := c.readTacho()
	if err != nil {
		return err
	}

	speed := c.degSToCountS(speedDegS)
	if speed > c.settings.MaxRate {
		speed = c.settings.MaxRate
	} else if speed < -c.settings.MaxRate {
		speed = -c.settings.MaxRate
	}
	durationUs := durationMs * 1000

	if rt, ok := c.state.(StateRunningTime); ok && c.tightLoop(now) {
		// Tight loop: the new profile starts already at the commanded rate
		// instead of ramping from the measured one, and the existing
		// integrator status is kept; deadline and end action come from the
		// new command.
		rt.Trajectory = NewTimeTrajectory(now, count, speed, speed, c.settings.AbsAcceleration, durationUs)
		rt.Deadline = now + durationUs
		rt.EndAction = end
		c.markCommand(now)
		c.setState(rt, "run_time (tight loop)")
		return nil
	}

	traj := NewTimeTrajectory(now, count, rate, speed, c.settings.AbsAcceleration, durationUs)
	c.markCommand(now)
	c.setState(StateRunningTime{
		Trajectory: traj,
		Deadline:   now + durationUs,
		EndAction:  end,
		status:     &timedCtlStatus{integratorRunning: true},
	}, "run_time")
	return nil
}

// RunAngle runs the motor angleDeg degrees relative to its current angle at
// speedDegS degrees/second, then performs end.
func (c *Controller) RunAngle(angleDeg int32, speedDegS int32, end EndAction) error {
	now := c.clock.NowUs()
	count, rate, err := c.readTacho()
	if err != nil {
		return err
	}
	target := count + c.degToCount(angleDeg)
	return c.runAngleTo(now, count, rate, target, speedDegS, end)
}

// RunTarget runs the motor to the absolute angle targetAngleDeg at
// speedDegS degrees/second, then performs end.
func (c *Controller) RunTarget(targetAngleDeg int32, speedDegS int32, end EndAction) error {
	now := c.clock.NowUs()
	count, rate, err := c.readTacho()
	if err != nil {
		return err
	}
	target := c.degToCount(targetAngleDeg)
	return c.runAngleTo(now, count, rate, target, speedDegS, end)
}

func (c *Controller) runAngleTo(now int64, count, rate, targetCount int32, speedDegS int32, end EndAction) error {
	speed := c.degSToCountS(speedDegS)
	if speed < 0 {
		speed = -speed
	}
	maxRate := speed
	if maxRate > c.settings.MaxRate {
		maxRate = c.settings.MaxRate
	}

	if ra, ok := c.state.(StateRunningAngle); ok && c.tightLoop(now) {
		ra.Trajectory = NewAngleTrajectory(now, count, speed, targetCount, maxRate, c.settings.AbsAcceleration)
		ra.TargetCount = targetCount
		ra.EndAction = end
		c.markCommand(now)
		c.setState(ra, "run_angle (tight loop)")
		return nil
	}

	traj := NewAngleTrajectory(now, count, rate, targetCount, maxRate, c.settings.AbsAcceleration)
	c.markCommand(now)
	c.setState(StateRunningAngle{
		Trajectory:  traj,
		TargetCount: targetCount,
		EndAction:   end,
		status:      &angularCtlStatus{refTimeRunning: true, timePrevUs: now},
	}, "run_angle")
	return nil
}

// TrackTarget holds position at targetAngleDeg with zero reference rate.
func (c *Controller) TrackTarget(targetAngleDeg int32) error {
	now := c.clock.NowUs()
	target := c.degToCount(targetAngleDeg)
	c.markCommand(now)
	c.setState(StateTracking{
		Target: target,
		status: &angularCtlStatus{refTimeRunning: true, timePrevUs: now},
	}, "track_target")
	return nil
}

// Stop transitions to the passive state matching action, or to
// Tracking(current_count) for EndHold.
func (c *Controller) Stop(action EndAction) error {
	return c.applyEndAction(action, "stop")
}

func (c *Controller) applyEndAction(action EndAction, reason string) error {
	switch action {
	case EndCoast:
		if err := c.sink.Coast(); err != nil {
			return newErr(c.port, ErrKindIO, err)
		}
		c.setState(StateCoasting{}, reason)
		return nil
	case EndBrake:
		if err := c.sink.Brake(); err != nil {
			return newErr(c.port, ErrKindIO, err)
		}
		c.setState(StateBraking{}, reason)
		return nil
	case EndHold:
		now := c.clock.NowUs()
		count, _, err := c.readTacho()
		if err != nil {
			return err
		}
		c.setState(StateTracking{
			Target: count,
			status: &angularCtlStatus{refTimeRunning: true, timePrevUs: now},
		}, reason)
		return nil
	default:
		return newErr(c.port, ErrKindInvalidArg, nil)
	}
}

// SetDuty applies a raw passive duty command, bypassing PID entirely.
func (c *Controller) SetDuty(duty int32) error {
	if duty > MaxDuty {
		duty = MaxDuty
	} else if duty < -MaxDuty {
		duty = -MaxDuty
	}
	if err := c.sink.SetDuty(duty); err != nil {
		return newErr(c.port, ErrKindIO, err)
	}
	c.setState(StateUserDuty{Duty: duty}, "set_duty")
	return nil
}

func (c *Controller) readTacho() (count, rate int32, err error) {
	count, err = c.tacho.GetCount()
	if err != nil {
		return 0, 0, err
	}
	rate, err = c.tacho.GetRate()
	if err != nil {
		return 0, 0, err
	}
	return count, rate, nil
}
