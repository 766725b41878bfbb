package sim

import "github.com/pyrelab/firespread/internal/firemodel"

// Status is the lifecycle state of a simulation.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// IgnitionPoint is a caller-supplied starting location for the fire. It is
// consumed at simulation creation.
type IgnitionPoint struct {
	ID        string  `json:"id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp"`
}

// FireCell is one grid cell as exposed in snapshots.
type FireCell struct {
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Intensity   float64   `json:"intensity"`
	Temperature float64   `json:"temperature"`
	BurnTime    int       `json:"burnTime"`
	State       CellState `json:"state"`
}

// Metadata summarises simulation progress alongside the cell list.
type Metadata struct {
	TotalCells        int    `json:"totalCells"`
	ActiveFires       int    `json:"activeFires"`
	BurnedArea        int    `json:"burnedArea"`
	EstimatedDuration int    `json:"estimatedDuration"`
	SpreadRate        string `json:"spreadRate"`
	ElapsedTime       int    `json:"elapsedTime"`
}

// Snapshot is the immutable per-tick view of a simulation that the manager
// broadcasts to subscribers. The cell list is capped; metadata always
// reflects the full grid.
type Snapshot struct {
	SimulationID string     `json:"simulationId"`
	Status       Status     `json:"status"`
	CurrentTime  int        `json:"currentTime"`
	FireCells    []FireCell `json:"fireCells"`
	Metadata     Metadata   `json:"metadata"`
}

// Statistics is the on-demand detailed summary of a simulation.
type Statistics struct {
	SimulationID      string               `json:"simulationId"`
	Status            Status               `json:"status"`
	Duration          int                  `json:"duration"`
	TotalCells        int                  `json:"totalCells"`
	ActiveFires       int                  `json:"activeFires"`
	TotalBurned       int                  `json:"totalBurned"`
	PeakIntensity     float64              `json:"peakIntensity"`
	PerimeterLength   int                  `json:"firePerimeterLength"`
	AverageSpreadRate float64              `json:"averageSpreadRate"`
	PeakSpreadRate    float64              `json:"peakSpreadRate"`
	IntensityP90      float64              `json:"intensityP90"`
	Parameters        firemodel.Parameters `json:"parameters"`
}
