package sim

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistics computes the detailed on-demand summary of the run.
func (s *Simulation) Statistics() Statistics {
	grid := s.engine.Grid()

	var avgRate, peakRate float64
	if len(s.newCellsPerTick) > 0 {
		avgRate = stat.Mean(s.newCellsPerTick, nil)
		peakRate = floats.Max(s.newCellsPerTick)
	}

	return Statistics{
		SimulationID:      s.id,
		Status:            s.status,
		Duration:          s.tick,
		TotalCells:        grid.Len(),
		ActiveFires:       s.engine.ActiveFires(),
		TotalBurned:       s.engine.TotalBurned(),
		PeakIntensity:     s.engine.PeakIntensity(),
		PerimeterLength:   len(s.engine.Perimeter()),
		AverageSpreadRate: avgRate,
		PeakSpreadRate:    peakRate,
		IntensityP90:      s.intensityQuantile(0.9),
		Parameters:        s.params,
	}
}

// intensityQuantile returns the q-quantile of intensity across every cell in
// the grid, or zero for an empty grid.
func (s *Simulation) intensityQuantile(q float64) float64 {
	grid := s.engine.Grid()
	if grid.Len() == 0 {
		return 0
	}
	intensities := make([]float64, 0, grid.Len())
	for _, cell := range grid.Cells() {
		intensities = append(intensities, cell.Intensity)
	}
	sort.Float64s(intensities)
	return stat.Quantile(q, stat.Empirical, intensities, nil)
}
