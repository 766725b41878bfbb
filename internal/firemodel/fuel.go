// Package firemodel implements the Rothermel surface fire spread model.
//
// The model predicts steady-state fire spread rate from fuel properties,
// weather (wind, humidity) and terrain slope. All calculator functions are
// total: invalid or negative intermediates clamp to zero instead of faulting.
//
// Reference: Rothermel, R.C. 1972. A mathematical model for predicting fire
// spread in wildland fuels. Fuel constants follow the standard fuel models
// (Rothermel 1972, Anderson 1982).
package firemodel

import (
	"fmt"
	"math"
)

// VegetationType identifies one of the built-in fuel models.
type VegetationType string

const (
	Forest       VegetationType = "forest"
	Grassland    VegetationType = "grassland"
	Shrubland    VegetationType = "shrubland"
	Agricultural VegetationType = "agricultural"
	Urban        VegetationType = "urban"
)

// VegetationTypes lists every supported fuel model.
var VegetationTypes = []VegetationType{Forest, Grassland, Shrubland, Agricultural, Urban}

// Valid reports whether v names a known fuel model.
func (v VegetationType) Valid() bool {
	_, ok := fuelTable[v]
	return ok
}

// FuelProperties holds the physical and chemical properties of a fuel bed.
type FuelProperties struct {
	FuelLoad           float64 // combustible material (kg/m²)
	SurfaceAreaVolume  float64 // surface-area-to-volume ratio (1/cm)
	FuelBedDepth       float64 // height of the fuel layer (m)
	MoistureExtinction float64 // moisture content that prevents combustion (%)
	HeatContent        float64 // energy released during combustion (kJ/kg)
	ParticleDensity    float64 // fuel particle density (kg/m³)
	BulkDensity        float64 // fuel bed bulk density (kg/m³)
	MineralContent     float64 // mineral fraction
}

// defaultMineralContent is the standard 5.55% total mineral content.
const defaultMineralContent = 0.0555

var fuelTable = map[VegetationType]FuelProperties{
	Forest: {
		FuelLoad:           0.45,
		SurfaceAreaVolume:  3500,
		FuelBedDepth:       0.30,
		MoistureExtinction: 25.0,
		HeatContent:        18622,
		ParticleDensity:    512,
		BulkDensity:        0.20,
		MineralContent:     defaultMineralContent,
	},
	Grassland: {
		FuelLoad:           0.15,
		SurfaceAreaVolume:  11000, // fine fuels, high surface area
		FuelBedDepth:       0.10,
		MoistureExtinction: 15.0, // grass dries quickly
		HeatContent:        18622,
		ParticleDensity:    200,
		BulkDensity:        0.40,
		MineralContent:     defaultMineralContent,
	},
	Shrubland: {
		FuelLoad:           0.35,
		SurfaceAreaVolume:  6000,
		FuelBedDepth:       0.20,
		MoistureExtinction: 20.0,
		HeatContent:        18622,
		ParticleDensity:    350,
		BulkDensity:        0.30,
		MineralContent:     defaultMineralContent,
	},
	Agricultural: {
		FuelLoad:           0.08, // light crop residue
		SurfaceAreaVolume:  8000,
		FuelBedDepth:       0.05,
		MoistureExtinction: 12.0,
		HeatContent:        18622,
		ParticleDensity:    150,
		BulkDensity:        0.50,
		MineralContent:     defaultMineralContent,
	},
	Urban: {
		FuelLoad:           0.02, // limited vegetation
		SurfaceAreaVolume:  5000,
		FuelBedDepth:       0.02,
		MoistureExtinction: 10.0,
		HeatContent:        20000, // mixed materials burn hotter
		ParticleDensity:    100,
		BulkDensity:        0.10,
		MineralContent:     defaultMineralContent,
	},
}

// FuelFor returns the fuel properties for the given vegetation type.
func FuelFor(v VegetationType) (FuelProperties, error) {
	props, ok := fuelTable[v]
	if !ok {
		return FuelProperties{}, fmt.Errorf("unknown vegetation type %q", v)
	}
	return props, nil
}

// PackingRatio returns β, the fraction of fuel-bed volume occupied by fuel.
func (f FuelProperties) PackingRatio() float64 {
	if f.ParticleDensity <= 0 {
		return 0
	}
	return f.BulkDensity / f.ParticleDensity
}

// Validate reports the first property that is not positive and finite.
func (f FuelProperties) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"fuel load", f.FuelLoad},
		{"surface area to volume", f.SurfaceAreaVolume},
		{"fuel bed depth", f.FuelBedDepth},
		{"moisture of extinction", f.MoistureExtinction},
		{"heat content", f.HeatContent},
		{"particle density", f.ParticleDensity},
		{"bulk density", f.BulkDensity},
		{"mineral content", f.MineralContent},
	}
	for _, c := range checks {
		if c.value <= 0 || math.IsInf(c.value, 0) || math.IsNaN(c.value) {
			return fmt.Errorf("%s must be positive and finite, got %f", c.name, c.value)
		}
	}
	return nil
}
