// Command motorctl drives a single simulated motor port through one pbio
// run_angle command, printing a telemetry line per tick until it is done. It stands in for the hardware-backed binaries under cmd/fw: instead
// of a tinygo target it runs a pure-software CounterDev/MotorSink pair, so
// the control loop can be exercised without a board attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itohio/pbio"
	"github.com/itohio/pbio/fix16"
	"github.com/itohio/pbio/pbiotrace"
	"github.com/itohio/pbio/pkg/logger"
	"github.com/itohio/pbio/telemetry"
)

var (
	angleDeg  = flag.Int("angle", 360, "degrees to run_angle relative to the start position")
	speedDegS = flag.Int("speed", 180, "target speed, degrees/second")
	tickMs    = flag.Int("tick", 5, "control loop period, milliseconds")
)

// simPlant is a minimal motor simulation: velocity is set to a
// duty-proportional value each step and position integrates velocity. It
// implements pbio.CounterDev and pbio.MotorSink so motorctl can run without
// real hardware.
type simPlant struct {
	count, rate, duty int32
	maxRateAtFullDuty int32
}

func (p *simPlant) Count() (int32, error)         { return p.count, nil }
func (p *simPlant) Rate() (int32, error)          { return p.rate, nil }
func (p *simPlant) AbsoluteCount() (int32, error) { return 0, pbio.ErrNotSupported }

func (p *simPlant) SetDuty(duty int32) error { p.duty = duty; return nil }
func (p *simPlant) Coast() error             { p.duty = 0; return nil }
func (p *simPlant) Brake() error             { p.duty = 0; p.rate = 0; return nil }

func (p *simPlant) step(dtUs int64) {
	target := p.maxRateAtFullDuty * p.duty / pbio.MaxDuty
	// Velocity follows duty immediately; no lag or overshoot is modeled in
	// a demo binary.
	p.rate = target
	p.count += int32(int64(p.rate) * dtUs / 1_000_000)
}

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	plant := &simPlant{maxRateAtFullDuty: 3000}
	clock := pbio.NewSystemClock()

	ms := pbio.NewMotorSystem(clock, logger.Log, map[int]pbio.Port{
		pbio.FirstMotorPort: {Counter: plant, Sink: plant},
	})

	settings := pbio.Settings{
		MaxRate:         2000,
		CountTolerance:  2,
		RateTolerance:   2,
		AbsAcceleration: 1000,
		StallRateLimit:  5,
		StallTime:       200_000,
		TightLoopTime:   20_000,
		KP:              30,
		KI:              1,
		KD:              5,
	}
	if err := ms.Configure(pbio.FirstMotorPort, pbio.Clockwise, fix16.One, false, settings); err != nil {
		logger.Log.Fatal().Err(err).Msg("configure failed")
	}

	ctl, err := ms.GetController(pbio.FirstMotorPort)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("get controller failed")
	}

	trace := pbiotrace.NewTickTrace(1)
	ctl.SetTrace(trace)

	if err := ctl.RunAngle(int32(*angleDeg), int32(*speedDegS), pbio.EndHold); err != nil {
		logger.Log.Fatal().Err(err).Msg("run_angle failed")
	}

	period := time.Duration(*tickMs) * time.Millisecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	tacho, _ := ms.GetTacho(pbio.FirstMotorPort)
	for {
		select {
		case <-ctx.Done():
			fmt.Println("stopping")
			return
		case <-ticker.C:
			for _, err := range ms.TickAll() {
				logger.Log.Warn().Err(err).Msg("tick error")
			}
			plant.step(int64(period / time.Microsecond))

			samples := trace.Snapshot()
			if len(samples) == 0 {
				continue
			}
			s := samples[len(samples)-1]
			snap := telemetry.NewSnapshot(s.Count, s.CountRef, s.Rate, s.RateRef, s.Duty, tacho.CountsPerDegree())
			fmt.Printf("angle=%.1fdeg ref=%.1fdeg rate=%.1fdeg/s duty=%.0f%% done=%v stalled=%v\n",
				snap.AngleDeg, snap.RefAngleDeg, snap.RateDegS, snap.Duty, ctl.IsDone(), ctl.IsStalled().IsStalled())

			if ctl.IsDone() {
				return
			}
		}
	}
}
