// Package sim implements the cellular-automaton fire spread engine and the
// per-simulation lifecycle around it. The grid is sparse: only cells that
// have ever ignited exist; absence means unburned fuel.
package sim

import "math"

// CellState is the lifecycle state of a fire cell. There is no explicit
// Unburned state in the grid; a coordinate that is absent is unburned.
type CellState string

const (
	StateUnburned CellState = "unburned"
	StateBurning  CellState = "burning"
	StateBurned   CellState = "burned"
)

// GridCoord is an integer grid coordinate obtained by quantizing world
// coordinates by the grid resolution.
type GridCoord struct {
	X int
	Y int
}

// Cell is one ignited grid cell. Burned is terminal: a burned cell is never
// removed from the grid and never re-ignites, which is what prevents the
// front from revisiting consumed fuel.
type Cell struct {
	X              float64 // world coordinate (longitude-based)
	Y              float64 // world coordinate (latitude-based)
	State          CellState
	IgnitionTick   int
	Intensity      float64
	Temperature    float64 // °C
	BurnedDuration int     // ticks spent burning, recorded at burn-out
}

// Grid is the sparse cell store for one simulation. It is not safe for
// concurrent use; each simulation's grid is mutated only by its own loop.
type Grid struct {
	resolution float64
	cells      map[GridCoord]*Cell
}

// NewGrid creates an empty grid with the given world-unit resolution.
func NewGrid(resolution float64) *Grid {
	if resolution <= 0 {
		resolution = 0.01
	}
	return &Grid{
		resolution: resolution,
		cells:      make(map[GridCoord]*Cell),
	}
}

// Resolution returns the world-unit size of one grid cell.
func (g *Grid) Resolution() float64 { return g.resolution }

// ToGrid quantizes world coordinates to a grid coordinate. The mapping is
// round-trip stable up to rounding: ToGrid(ToWorld(c)) == c.
func (g *Grid) ToGrid(x, y float64) GridCoord {
	return GridCoord{
		X: int(math.Round(x / g.resolution)),
		Y: int(math.Round(y / g.resolution)),
	}
}

// ToWorld returns the world coordinates of a grid coordinate's center.
func (g *Grid) ToWorld(c GridCoord) (float64, float64) {
	return float64(c.X) * g.resolution, float64(c.Y) * g.resolution
}

// Get returns the cell at c, or nil if the coordinate is unburned.
func (g *Grid) Get(c GridCoord) *Cell {
	return g.cells[c]
}

// Contains reports whether a cell exists at c.
func (g *Grid) Contains(c GridCoord) bool {
	_, ok := g.cells[c]
	return ok
}

// Set inserts or replaces the cell at c.
func (g *Grid) Set(c GridCoord, cell *Cell) {
	g.cells[c] = cell
}

// Len returns the number of cells that have ever ignited.
func (g *Grid) Len() int { return len(g.cells) }

// Cells exposes the underlying cell map for iteration. Callers must not
// mutate it during a tick.
func (g *Grid) Cells() map[GridCoord]*Cell { return g.cells }

// Neighbors returns the 8 surrounding coordinates of c.
func (g *Grid) Neighbors(c GridCoord) [8]GridCoord {
	var out [8]GridCoord
	i := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			out[i] = GridCoord{X: c.X + dx, Y: c.Y + dy}
			i++
		}
	}
	return out
}

// HasAbsentNeighbor reports whether c has at least one neighbor with no cell
// in the grid, i.e. unburned fuel the fire could still reach.
func (g *Grid) HasAbsentNeighbor(c GridCoord) bool {
	for _, n := range g.Neighbors(c) {
		if !g.Contains(n) {
			return true
		}
	}
	return false
}

// ComputePerimeter derives the active front: every Burning cell with at
// least one absent neighbor. Only these cells are sources in the spread
// pass, which bounds per-tick work to the edge of the fire.
func (g *Grid) ComputePerimeter() map[GridCoord]struct{} {
	perimeter := make(map[GridCoord]struct{})
	for coord, cell := range g.cells {
		if cell.State != StateBurning {
			continue
		}
		if g.HasAbsentNeighbor(coord) {
			perimeter[coord] = struct{}{}
		}
	}
	return perimeter
}

// CountState returns the number of cells in the given state.
func (g *Grid) CountState(s CellState) int {
	n := 0
	for _, cell := range g.cells {
		if cell.State == s {
			n++
		}
	}
	return n
}
