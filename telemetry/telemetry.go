// Package telemetry converts fixed-point control quantities to float32 for
// structured logging and dashboards only. Nothing in this package feeds
// back into a control decision; math32 is used here precisely because it is
// unsuitable for that (it is not deterministic across architectures the way
// integer/fix16 math is), matching the boundary pkg/core/math/filter/vaj
// draws between trajectory generation (integer/fix16) and its plotting
// helpers (float32).
package telemetry

import (
	"github.com/chewxy/math32"

	"github.com/itohio/pbio/fix16"
)

// Snapshot is a human-readable view of one Controller tick, in physical
// units (degrees, degrees/second) rather than raw counts.
type Snapshot struct {
	AngleDeg    float32
	RateDegS    float32
	RefAngleDeg float32
	RefRateDegS float32
	Duty        float32
}

// NewSnapshot converts raw encoder counts (and a counts-per-degree scale)
// into a Snapshot, for use in log fields or metrics export.
func NewSnapshot(count, countRef, rate, rateRef, duty int32, countsPerDegree fix16.Fix16) Snapshot {
	cpd := fix32(countsPerDegree)
	if cpd == 0 {
		cpd = 1
	}
	return Snapshot{
		AngleDeg:    float32(count) / cpd,
		RateDegS:    float32(rate) / cpd,
		RefAngleDeg: float32(countRef) / cpd,
		RefRateDegS: float32(rateRef) / cpd,
		Duty:        float32(duty) / 100, // duty is in hundredths of a percent
	}
}

// fix32 converts a Q16.16 fix16.Fix16 to a float32 using math32, the same
// conversion pkg/core/math/filter/vaj's plotting helpers use for its
// internal fixed-point state.
func fix32(v fix16.Fix16) float32 {
	return float32(int32(v)) / math32.Pow(2, 16)
}
