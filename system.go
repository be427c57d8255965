package pbio

import (
	"github.com/itohio/pbio/fix16"
	"github.com/rs/zerolog"
)

// Port configures one motor port's hardware bindings when building a
// MotorSystem.
type Port struct {
	Counter CounterDev
	Sink    MotorSink
}

// MotorSystem owns the fixed-size array of per-port Tacho/Controller pairs,
// the explicit-ownership replacement for the module-level tachos[] array in
// lib/pbio/src/tacho.c, per spec.md §9: "Rewrite as a fixed-size array
// owned by a MotorSystem context passed explicitly into all operations;
// avoid hidden global state."
type MotorSystem struct {
	clock       Clock
	log         zerolog.Logger
	tachos      [LastMotorPort - FirstMotorPort + 1]*Tacho
	controllers [LastMotorPort - FirstMotorPort + 1]*Controller
}

// NewMotorSystem builds a MotorSystem from per-port hardware bindings.
// Ports not present in the ports map are left unconfigured; looking them up
// later fails with ErrInvalidPort just as an out-of-range port number
// would.
func NewMotorSystem(clock Clock, log zerolog.Logger, ports map[int]Port) *MotorSystem {
	ms := &MotorSystem{clock: clock, log: log}
	for port, p := range ports {
		if port < FirstMotorPort || port > LastMotorPort {
			continue
		}
		idx := port - FirstMotorPort
		ms.tachos[idx] = newTacho(port, p.Counter)
		ms.controllers[idx] = newController(port, ms.tachos[idx], p.Sink, clock, Settings{}, log)
	}
	return ms
}

func (ms *MotorSystem) index(port int) (int, error) {
	if port < FirstMotorPort || port > LastMotorPort {
		return 0, newErr(port, ErrKindInvalidPort, nil)
	}
	idx := port - FirstMotorPort
	if ms.tachos[idx] == nil {
		return 0, newErr(port, ErrKindInvalidPort, nil)
	}
	return idx, nil
}

// GetTacho looks up the Tacho bound to port.
func (ms *MotorSystem) GetTacho(port int) (*Tacho, error) {
	idx, err := ms.index(port)
	if err != nil {
		return nil, err
	}
	return ms.tachos[idx], nil
}

// GetController looks up the Controller bound to port.
func (ms *MotorSystem) GetController(port int) (*Controller, error) {
	idx, err := ms.index(port)
	if err != nil {
		return nil, err
	}
	return ms.controllers[idx], nil
}

// Configure runs Tacho.Setup and installs settings on the Controller for
// port, equivalent to a combined tacho_setup + one-time settings load.
func (ms *MotorSystem) Configure(port int, direction Direction, gearRatio fix16.Fix16, resetAngle bool, settings Settings) error {
	idx, err := ms.index(port)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return newErr(port, ErrKindInvalidArg, nil)
	}
	if err := ms.tachos[idx].Setup(direction, gearRatio, resetAngle); err != nil {
		return err
	}
	ms.controllers[idx].settings = settings
	return nil
}

// TickAll invokes Tick on every configured Controller, in port order. A
// per-port error does not stop the remaining ports from ticking; all
// errors are returned.
func (ms *MotorSystem) TickAll() []error {
	var errs []error
	for _, ctl := range ms.controllers {
		if ctl == nil {
			continue
		}
		if err := ctl.Tick(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
