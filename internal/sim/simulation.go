package sim

import (
	"fmt"

	"github.com/pyrelab/firespread/internal/firemodel"
	"github.com/pyrelab/firespread/internal/monitoring"
)

// Limits bound a single simulation run.
type Limits struct {
	MaxTicks        int // run auto-completes at this tick count
	MaxCells        int // run auto-completes when the grid reaches this size
	SnapshotCellCap int // fire cells included per snapshot
}

// DefaultLimits returns the limits used when no configuration overrides
// them.
func DefaultLimits() Limits {
	return Limits{
		MaxTicks:        300,
		MaxCells:        1000,
		SnapshotCellCap: 1000,
	}
}

// Simulation owns one grid plus engine and the lifecycle state machine
// around them. It is not safe for concurrent use: the manager guarantees a
// single loop drives each simulation.
type Simulation struct {
	id        string
	params    firemodel.Parameters
	ignitions []IgnitionPoint
	limits    Limits

	status Status
	tick   int
	engine *Engine

	// newCellsPerTick feeds the spread-rate statistics.
	newCellsPerTick []float64

	logf func(format string, v ...interface{})
}

// NewSimulation validates the inputs and creates a simulation with its
// ignition points already burning at tick zero.
func NewSimulation(id string, params firemodel.Parameters, ignitions []IgnitionPoint, resolution float64, tuning EngineParams, limits Limits, rng RandomSource) (*Simulation, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(ignitions) == 0 {
		return nil, fmt.Errorf("%w: at least one ignition point is required", ErrInvalidInput)
	}

	s := &Simulation{
		id:        id,
		params:    params,
		ignitions: ignitions,
		limits:    limits,
		status:    StatusCreated,
		engine:    NewEngine(params, tuning, resolution, rng),
		logf:      monitoring.Component("sim " + id),
	}

	for _, p := range ignitions {
		s.engine.Ignite(p.Lng, p.Lat, 0)
	}

	s.logf("initialized with %d ignition points", len(ignitions))
	return s, nil
}

// ID returns the simulation identifier.
func (s *Simulation) ID() string { return s.id }

// Status returns the current lifecycle state.
func (s *Simulation) Status() Status { return s.status }

// Parameters returns the environmental parameters of the run.
func (s *Simulation) Parameters() firemodel.Parameters { return s.params }

// Tick returns the current tick counter.
func (s *Simulation) Tick() int { return s.tick }

// Engine exposes the spread engine, mainly for statistics and charting.
func (s *Simulation) Engine() *Engine { return s.engine }

// Start transitions Created or Paused to Running.
func (s *Simulation) Start() error {
	if s.status != StatusCreated && s.status != StatusPaused {
		return &TransitionError{From: s.status, Event: "start"}
	}
	s.status = StatusRunning
	s.logf("started")
	return nil
}

// Pause transitions Running to Paused.
func (s *Simulation) Pause() error {
	if s.status != StatusRunning {
		return &TransitionError{From: s.status, Event: "pause"}
	}
	s.status = StatusPaused
	s.logf("paused")
	return nil
}

// Stop forces the simulation to Completed. Stopping an already-terminal
// simulation is a no-op so an Error status is never downgraded.
func (s *Simulation) Stop() {
	if s.status.Terminal() {
		return
	}
	s.status = StatusCompleted
	s.logf("stopped")
}

// Fail forces the simulation to Error. Error is terminal; there is no
// retry.
func (s *Simulation) Fail(err error) {
	if s.status == StatusError {
		return
	}
	s.status = StatusError
	s.logf("failed: %v", err)
}

// Step executes one tick and returns the resulting snapshot. On a
// non-Running simulation it is a no-op that returns the current state.
func (s *Simulation) Step() Snapshot {
	if s.status != StatusRunning {
		return s.Snapshot()
	}

	ignited := s.engine.Step(s.tick)
	s.newCellsPerTick = append(s.newCellsPerTick, float64(ignited))
	s.tick++

	switch {
	case s.engine.ActiveFires() == 0:
		s.status = StatusCompleted
		s.logf("completed: no active fires")
	case s.tick >= s.limits.MaxTicks:
		s.status = StatusCompleted
		s.logf("completed: max ticks reached")
	case s.engine.Grid().Len() >= s.limits.MaxCells:
		s.status = StatusCompleted
		s.logf("completed: max cells reached")
	}

	return s.Snapshot()
}

// Snapshot builds the immutable view of the current state. The cell list is
// capped at the snapshot cell cap; metadata always covers the full grid.
func (s *Simulation) Snapshot() Snapshot {
	grid := s.engine.Grid()

	cells := make([]FireCell, 0, min(grid.Len(), s.limits.SnapshotCellCap))
	for _, cell := range grid.Cells() {
		if len(cells) >= s.limits.SnapshotCellCap {
			break
		}
		burnTime := 0
		if cell.IgnitionTick >= 0 {
			burnTime = s.tick - cell.IgnitionTick
		}
		cells = append(cells, FireCell{
			X:           cell.X,
			Y:           cell.Y,
			Intensity:   cell.Intensity,
			Temperature: cell.Temperature,
			BurnTime:    burnTime,
			State:       cell.State,
		})
	}

	avgRate := 0.0
	if s.tick > 0 && grid.Len() > 0 {
		avgRate = float64(grid.Len()) / float64(s.tick)
	}

	return Snapshot{
		SimulationID: s.id,
		Status:       s.status,
		CurrentTime:  s.tick,
		FireCells:    cells,
		Metadata: Metadata{
			TotalCells:        grid.Len(),
			ActiveFires:       s.engine.ActiveFires(),
			BurnedArea:        grid.CountState(StateBurned),
			EstimatedDuration: s.limits.MaxTicks,
			SpreadRate:        fmt.Sprintf("%.2f cells/second", avgRate),
			ElapsedTime:       s.tick,
		},
	}
}
