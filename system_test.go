package pbio

import (
	"testing"

	"github.com/itohio/pbio/fix16"
	"github.com/itohio/pbio/pbiotest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T, ports map[int]Port) *MotorSystem {
	t.Helper()
	clock := pbiotest.NewClock(0)
	return NewMotorSystem(clock, zerolog.Nop(), ports)
}

func TestMotorSystemRejectsUnconfiguredPort(t *testing.T) {
	t.Parallel()

	ms := newTestSystem(t, map[int]Port{
		FirstMotorPort: {Counter: &pbiotest.Counter{}, Sink: &pbiotest.Sink{}},
	})

	_, err := ms.GetTacho(FirstMotorPort + 1)
	require.ErrorIs(t, err, ErrInvalidPort)

	_, err = ms.GetController(LastMotorPort + 1)
	require.ErrorIs(t, err, ErrInvalidPort)
}

func TestMotorSystemConfigureAndTickAll(t *testing.T) {
	t.Parallel()

	counterA := &pbiotest.Counter{}
	counterB := &pbiotest.Counter{}
	sinkA := &pbiotest.Sink{}
	sinkB := &pbiotest.Sink{}

	ms := newTestSystem(t, map[int]Port{
		FirstMotorPort:     {Counter: counterA, Sink: sinkA},
		FirstMotorPort + 1: {Counter: counterB, Sink: sinkB},
	})

	settings := Settings{CountTolerance: 2, RateTolerance: 2, AbsAcceleration: 1000, MaxRate: 1000, KP: 10}
	require.NoError(t, ms.Configure(FirstMotorPort, Clockwise, fix16.One, false, settings))
	require.NoError(t, ms.Configure(FirstMotorPort+1, Counterclockwise, fix16.One, false, settings))

	ctlA, err := ms.GetController(FirstMotorPort)
	require.NoError(t, err)
	require.NoError(t, ctlA.TrackTarget(0))

	ctlB, err := ms.GetController(FirstMotorPort + 1)
	require.NoError(t, err)
	require.NoError(t, ctlB.TrackTarget(0))

	// Port B's counter faults; TickAll must still tick port A and report
	// only port B's error.
	counterB.CountErr = ErrIO

	errs := ms.TickAll()
	require.Len(t, errs, 1)
	require.True(t, sinkB.Coasted)
	require.Equal(t, StateKindErrored, ctlB.State().Kind())
	require.Equal(t, StateKindTracking, ctlA.State().Kind())
}

func TestMotorSystemConfigureRejectsInvalidSettings(t *testing.T) {
	t.Parallel()

	ms := newTestSystem(t, map[int]Port{
		FirstMotorPort: {Counter: &pbiotest.Counter{}, Sink: &pbiotest.Sink{}},
	})

	err := ms.Configure(FirstMotorPort, Clockwise, fix16.One, false, Settings{AbsAcceleration: 0})
	require.ErrorIs(t, err, ErrInvalidArg)
}
