package pbio

import "github.com/itohio/pbio/fix16"

// Compile-time configuration constants (spec.md §6: "Configuration is
// compile-time constants"). A board-specific build would override these via
// a build-tag'd file the way x/devices picks Linux vs TinyGo backends; a
// single default set is provided here since this repository has no board
// integration layer.
const (
	// FirstMotorPort and LastMotorPort bound the valid port range passed to
	// MotorSystem.GetTacho / MotorSystem.GetController.
	FirstMotorPort = 0
	LastMotorPort  = 5

	// MaxDuty is the saturating bound on commanded/emitted duty, in 0.01%
	// units (spec.md §6: duty in [-10000, +10000]).
	MaxDuty int32 = 10000

	// DefaultTickPeriodUs is the nominal control tick cadence (spec.md §2:
	// "1-10ms cadence").
	DefaultTickPeriodUs int64 = 5000
)

// hwCountsPerDegree is the raw hardware encoder resolution in counts per
// degree of output shaft rotation, before the per-Tacho gear ratio is
// applied. 2 counts/degree corresponds to a 720 count/revolution encoder,
// matching scenario S1 in spec.md §8.
var hwCountsPerDegree = fix16.FromInt(2)
