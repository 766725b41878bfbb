package sim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrelab/firespread/internal/firemodel"
)

func newTestSim(t *testing.T, tuning EngineParams, limits Limits, rng RandomSource) *Simulation {
	t.Helper()
	s, err := NewSimulation("sim-1", dryParams(), []IgnitionPoint{{ID: "ign-1"}}, 0.01, tuning, limits, rng)
	require.NoError(t, err)
	return s
}

func TestNewSimulation_Validation(t *testing.T) {
	badParams := dryParams()
	badParams.WindSpeed = -5

	tests := []struct {
		name      string
		params    firemodel.Parameters
		ignitions []IgnitionPoint
	}{
		{"invalid parameters", badParams, []IgnitionPoint{{ID: "a"}}},
		{"no ignition points", dryParams(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimulation("sim-1", tt.params, tt.ignitions, 0.01, DefaultEngineParams(), DefaultLimits(), fixedRand{v: 1})
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNewSimulation_IgnitesAtTickZero(t *testing.T) {
	ignitions := []IgnitionPoint{
		{ID: "a", Lat: 0, Lng: 0},
		{ID: "b", Lat: 0.05, Lng: 0.05},
	}
	s, err := NewSimulation("sim-1", dryParams(), ignitions, 0.01, DefaultEngineParams(), DefaultLimits(), fixedRand{v: 1})
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, s.Status())
	assert.Equal(t, 0, s.Tick())
	assert.Equal(t, 2, s.Engine().Grid().Len())
	assert.Equal(t, 2, s.Engine().ActiveFires())
}

func TestSimulation_Transitions(t *testing.T) {
	tuning := DefaultEngineParams()
	tuning.SpreadProbabilityFactor = 0
	tuning.DecayRate = 0 // the fire never goes out on its own

	s := newTestSim(t, tuning, DefaultLimits(), fixedRand{v: 0})

	// Created: pause is illegal, start is not.
	err := s.Pause()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, s.Start())
	assert.Equal(t, StatusRunning, s.Status())

	// Running: start again is illegal, pause and resume work.
	assert.ErrorIs(t, s.Start(), ErrInvalidTransition)
	require.NoError(t, s.Pause())
	assert.Equal(t, StatusPaused, s.Status())
	require.NoError(t, s.Start())

	// Stop completes from any non-terminal state.
	s.Stop()
	assert.Equal(t, StatusCompleted, s.Status())

	// Terminal states reject everything and stop is a no-op.
	assert.ErrorIs(t, s.Start(), ErrInvalidTransition)
	assert.ErrorIs(t, s.Pause(), ErrInvalidTransition)
	s.Stop()
	assert.Equal(t, StatusCompleted, s.Status())
}

func TestSimulation_FailIsTerminal(t *testing.T) {
	s := newTestSim(t, DefaultEngineParams(), DefaultLimits(), fixedRand{v: 1})

	s.Fail(fmt.Errorf("step exploded"))
	assert.Equal(t, StatusError, s.Status())

	// Stop never downgrades Error to Completed.
	s.Stop()
	assert.Equal(t, StatusError, s.Status())
	assert.ErrorIs(t, s.Start(), ErrInvalidTransition)
}

func TestTransitionError_Message(t *testing.T) {
	err := &TransitionError{From: StatusCompleted, Event: "pause"}
	assert.Equal(t, "cannot pause simulation in completed state", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSimulation_StepIsNoOpUnlessRunning(t *testing.T) {
	s := newTestSim(t, DefaultEngineParams(), DefaultLimits(), fixedRand{v: 0})

	snap := s.Step()
	assert.Equal(t, StatusCreated, snap.Status)
	assert.Equal(t, 0, s.Tick())
	assert.Equal(t, 1, s.Engine().Grid().Len())
}

func TestSimulation_AutoCompletesWhenFireDies(t *testing.T) {
	tuning := DefaultEngineParams()
	tuning.SpreadProbabilityFactor = 0
	tuning.DecayRate = 96 // burns out in one tick

	s := newTestSim(t, tuning, DefaultLimits(), fixedRand{v: 0})
	require.NoError(t, s.Start())

	snap := s.Step()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 0, snap.Metadata.ActiveFires)
	assert.Equal(t, 1, snap.Metadata.BurnedArea)
}

func TestSimulation_AutoCompletesAtMaxTicks(t *testing.T) {
	tuning := DefaultEngineParams()
	tuning.SpreadProbabilityFactor = 0
	tuning.DecayRate = 0

	limits := DefaultLimits()
	limits.MaxTicks = 2

	s := newTestSim(t, tuning, limits, fixedRand{v: 0})
	require.NoError(t, s.Start())

	snap := s.Step()
	assert.Equal(t, StatusRunning, snap.Status)
	snap = s.Step()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 2, s.Tick())
}

func TestSimulation_AutoCompletesAtMaxCells(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxCells = 5

	s := newTestSim(t, DefaultEngineParams(), limits, fixedRand{v: 0})
	require.NoError(t, s.Start())

	// One step ignites all 8 neighbors, blowing past the cell cap.
	snap := s.Step()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 9, snap.Metadata.TotalCells)
}

func TestSimulation_SnapshotCapsCells(t *testing.T) {
	limits := DefaultLimits()
	limits.SnapshotCellCap = 4

	s := newTestSim(t, DefaultEngineParams(), limits, fixedRand{v: 0})
	require.NoError(t, s.Start())

	snap := s.Step()
	assert.Len(t, snap.FireCells, 4)
	assert.Equal(t, 9, snap.Metadata.TotalCells)
}

func TestSimulation_SnapshotMetadata(t *testing.T) {
	tuning := DefaultEngineParams()
	tuning.SpreadProbabilityFactor = 0
	tuning.DecayRate = 0

	s := newTestSim(t, tuning, DefaultLimits(), fixedRand{v: 0})
	require.NoError(t, s.Start())
	s.Step()
	s.Step()

	snap := s.Snapshot()
	assert.Equal(t, "sim-1", snap.SimulationID)
	assert.Equal(t, 2, snap.CurrentTime)
	assert.Equal(t, 2, snap.Metadata.ElapsedTime)
	assert.Equal(t, DefaultLimits().MaxTicks, snap.Metadata.EstimatedDuration)
	assert.Equal(t, "0.50 cells/second", snap.Metadata.SpreadRate)

	require.Len(t, snap.FireCells, 1)
	assert.Equal(t, 2, snap.FireCells[0].BurnTime)
}

func TestSimulation_Statistics(t *testing.T) {
	s := newTestSim(t, DefaultEngineParams(), DefaultLimits(), fixedRand{v: 0})
	require.NoError(t, s.Start())
	s.Step() // ignites 8 cells

	stats := s.Statistics()
	assert.Equal(t, "sim-1", stats.SimulationID)
	assert.Equal(t, 1, stats.Duration)
	assert.Equal(t, 9, stats.TotalCells)
	assert.Equal(t, 8.0, stats.AverageSpreadRate)
	assert.Equal(t, 8.0, stats.PeakSpreadRate)
	assert.Equal(t, 100.0, stats.PeakIntensity)
	assert.Equal(t, len(s.Engine().Perimeter()), stats.PerimeterLength)
	assert.Equal(t, dryParams(), stats.Parameters)

	// Every intensity in the grid bounds the P90 from both sides.
	var lo, hi float64 = 1e9, 0
	for _, cell := range s.Engine().Grid().Cells() {
		if cell.Intensity < lo {
			lo = cell.Intensity
		}
		if cell.Intensity > hi {
			hi = cell.Intensity
		}
	}
	assert.GreaterOrEqual(t, stats.IntensityP90, lo)
	assert.LessOrEqual(t, stats.IntensityP90, hi)
}

func TestSimulation_StatisticsEmptyRates(t *testing.T) {
	s := newTestSim(t, DefaultEngineParams(), DefaultLimits(), fixedRand{v: 1})

	stats := s.Statistics()
	assert.Zero(t, stats.AverageSpreadRate)
	assert.Zero(t, stats.PeakSpreadRate)
	assert.Equal(t, 1, stats.TotalCells)
}
