package sim

import (
	"math"

	"github.com/pyrelab/firespread/internal/firemodel"
)

// RandomSource supplies uniform samples in [0,1). *math/rand.Rand satisfies
// it; tests substitute fixed sequences for deterministic ignition.
type RandomSource interface {
	Float64() float64
}

// EngineParams are the tunable constants of the spread engine. They are
// empirical tuning, not physics, and come from configuration.
type EngineParams struct {
	DecayRate               float64 // intensity lost per tick while burning
	IntensityFloor          float64 // below this a burning cell burns out
	BurnDurationCap         int     // ticks after which a cell burns out regardless
	IgnitionBaseIntensity   float64 // base intensity for spread ignitions
	IntensityMin            float64 // lower clamp for spread ignitions
	IntensityMax            float64 // upper clamp for all intensities
	SpreadProbabilityFactor float64 // global scale on ignition probability
}

// DefaultEngineParams returns the tuning used when no configuration
// overrides it.
func DefaultEngineParams() EngineParams {
	return EngineParams{
		DecayRate:               1.0,
		IntensityFloor:          5.0,
		BurnDurationCap:         60,
		IgnitionBaseIntensity:   80.0,
		IntensityMin:            20.0,
		IntensityMax:            200.0,
		SpreadProbabilityFactor: 0.8,
	}
}

const (
	ignitionPointIntensity   = 100.0
	ignitionPointTemperature = 800.0
	maxCellTemperature       = 800.0
)

// Engine advances the fire front across a sparse grid, one tick at a time.
// Each tick runs two strictly ordered passes: decay of existing burning
// cells, then probabilistic spread from the perimeter. The ordering means a
// cell ignited this tick never decays in the same tick.
type Engine struct {
	params    firemodel.Parameters
	tuning    EngineParams
	grid      *Grid
	perimeter map[GridCoord]struct{}
	rng       RandomSource

	// fuelMoisture is derived once from humidity and reused for every
	// directional spread computation.
	fuelMoisture float64

	totalBurned   int
	peakIntensity float64
}

// NewEngine creates an engine for the given parameters over an empty grid.
func NewEngine(params firemodel.Parameters, tuning EngineParams, resolution float64, rng RandomSource) *Engine {
	return &Engine{
		params:       params,
		tuning:       tuning,
		grid:         NewGrid(resolution),
		perimeter:    make(map[GridCoord]struct{}),
		rng:          rng,
		fuelMoisture: firemodel.MoistureFromHumidity(params.Humidity),
	}
}

// Grid returns the engine's cell store.
func (e *Engine) Grid() *Grid { return e.grid }

// Perimeter returns the current active front.
func (e *Engine) Perimeter() map[GridCoord]struct{} { return e.perimeter }

// TotalBurned returns the number of cells that have burned out.
func (e *Engine) TotalBurned() int { return e.totalBurned }

// PeakIntensity returns the highest intensity any cell has reached.
func (e *Engine) PeakIntensity() float64 { return e.peakIntensity }

// ActiveFires returns the number of currently burning cells.
func (e *Engine) ActiveFires() int { return e.grid.CountState(StateBurning) }

// Ignite places an initial Burning cell at the world coordinate. Igniting a
// coordinate that already has a cell is a no-op (write-once).
func (e *Engine) Ignite(x, y float64, tick int) {
	coord := e.grid.ToGrid(x, y)
	if e.grid.Contains(coord) {
		return
	}
	e.grid.Set(coord, &Cell{
		X:            x,
		Y:            y,
		State:        StateBurning,
		IgnitionTick: tick,
		Intensity:    ignitionPointIntensity,
		Temperature:  ignitionPointTemperature,
	})
	e.notePeak(ignitionPointIntensity)
	e.perimeter[coord] = struct{}{}
}

// Step advances the fire by one tick: decay pass, spread pass, perimeter
// refresh. It returns the number of cells ignited this tick.
func (e *Engine) Step(tick int) int {
	e.decayPass(tick)
	ignited := e.spreadPass(tick)
	e.perimeter = e.grid.ComputePerimeter()
	return ignited
}

// decayPass reduces intensity of every burning cell and burns out cells
// below the intensity floor or past the burn-duration cap. The final
// intensity and temperature are frozen on the burned cell.
func (e *Engine) decayPass(tick int) {
	for _, cell := range e.grid.Cells() {
		if cell.State != StateBurning {
			continue
		}

		cell.Intensity = math.Max(0, cell.Intensity-e.tuning.DecayRate)
		cell.Temperature = 100.0 + cell.Intensity*5.0

		burnDuration := tick - cell.IgnitionTick
		if cell.Intensity < e.tuning.IntensityFloor || burnDuration > e.tuning.BurnDurationCap {
			cell.State = StateBurned
			cell.BurnedDuration = burnDuration
			e.totalBurned++
		}
	}
}

// spreadPass evaluates ignition from every perimeter cell into its absent
// neighbors. Write-once: a neighbor claimed by an earlier source this tick
// is skipped by later sources.
func (e *Engine) spreadPass(tick int) int {
	type pending struct {
		coord GridCoord
		cell  *Cell
	}
	var newCells []pending
	claimed := make(map[GridCoord]struct{})

	for coord := range e.perimeter {
		source := e.grid.Get(coord)
		if source == nil || source.State != StateBurning {
			continue
		}

		for _, neighbor := range e.grid.Neighbors(coord) {
			if e.grid.Contains(neighbor) {
				continue
			}
			if _, taken := claimed[neighbor]; taken {
				continue
			}

			ignites, intensity, temperature := e.trySpread(source, coord, neighbor)
			if !ignites {
				continue
			}

			x, y := e.grid.ToWorld(neighbor)
			newCells = append(newCells, pending{
				coord: neighbor,
				cell: &Cell{
					X:            x,
					Y:            y,
					State:        StateBurning,
					IgnitionTick: tick,
					Intensity:    intensity,
					Temperature:  temperature,
				},
			})
			claimed[neighbor] = struct{}{}
		}
	}

	for _, p := range newCells {
		e.grid.Set(p.coord, p.cell)
		e.notePeak(p.cell.Intensity)
	}
	return len(newCells)
}

// trySpread draws one uniform sample and decides whether fire jumps from
// the source cell to the neighbor coordinate. Diagonal neighbors are sqrt(2)
// times farther, so at equal spread rate they ignite less often and the
// front grows octagonally rather than square.
func (e *Engine) trySpread(source *Cell, from, to GridCoord) (bool, float64, float64) {
	dx := float64(to.X - from.X)
	dy := float64(to.Y - from.Y)

	// Spread direction in compass degrees: 0=North (+y), 90=East (+x).
	direction := math.Mod(math.Atan2(dx, dy)*180.0/math.Pi+360.0, 360.0)

	distance := math.Hypot(dx, dy) * e.grid.resolution

	spreadRate := firemodel.DirectionalSpreadRate(e.params, direction, e.fuelMoisture)
	if spreadRate <= 0 || distance <= 0 {
		return false, 0, 0
	}

	// m/min converted to grid cells per second, then scaled by distance.
	spreadPerSecond := (spreadRate / 60.0) / e.grid.resolution
	probability := spreadPerSecond / distance

	intensityFactor := source.Intensity / 100.0
	sample := e.rng.Float64()

	if sample >= probability*intensityFactor*e.tuning.SpreadProbabilityFactor {
		return false, 0, 0
	}

	// Environmental multipliers shape the new cell's intensity; the same
	// sample provides the per-cell variability.
	windFactor := 1.0 + e.params.WindSpeed/50.0
	humidityFactor := (100.0 - e.params.Humidity) / 100.0
	slopeFactor := 1.0 + e.params.Slope/90.0

	intensity := e.tuning.IgnitionBaseIntensity * windFactor * humidityFactor * slopeFactor
	intensity *= 0.7 + sample*0.6
	intensity = math.Max(e.tuning.IntensityMin, math.Min(e.tuning.IntensityMax, intensity))

	temperature := 300.0 + intensity*3.0

	// Front-edge boost keeps fresh ignitions visibly hotter than decayed
	// interior cells.
	intensity = math.Min(e.tuning.IntensityMax, intensity*1.5)
	temperature = math.Min(maxCellTemperature, temperature*1.2)

	return true, intensity, temperature
}

func (e *Engine) notePeak(intensity float64) {
	if intensity > e.peakIntensity {
		e.peakIntensity = intensity
	}
}
