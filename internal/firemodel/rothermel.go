package firemodel

import (
	"fmt"
	"math"
)

// Parameters are the environmental inputs to a simulation. They are fixed
// for the lifetime of a run.
type Parameters struct {
	Vegetation    VegetationType `json:"vegetationType"`
	WindSpeed     float64        `json:"windSpeed"`     // m/s
	WindDirection float64        `json:"windDirection"` // degrees, 0=North 90=East
	Humidity      float64        `json:"humidity"`      // relative humidity %
	Slope         float64        `json:"slope"`         // terrain slope, degrees
}

// Validate checks that the parameters are within the model's domain.
func (p Parameters) Validate() error {
	if !p.Vegetation.Valid() {
		return fmt.Errorf("unknown vegetation type %q", p.Vegetation)
	}
	if p.WindSpeed < 0 || p.WindSpeed > 100 {
		return fmt.Errorf("wind speed must be in [0,100] m/s, got %f", p.WindSpeed)
	}
	if p.WindDirection < 0 || p.WindDirection >= 360 {
		return fmt.Errorf("wind direction must be in [0,360), got %f", p.WindDirection)
	}
	if p.Humidity < 0 || p.Humidity > 100 {
		return fmt.Errorf("humidity must be in [0,100], got %f", p.Humidity)
	}
	if p.Slope < 0 || p.Slope > 45 {
		return fmt.Errorf("slope must be in [0,45] degrees, got %f", p.Slope)
	}
	return nil
}

// Fuel returns the fuel properties for the parameter's vegetation type.
func (p Parameters) Fuel() (FuelProperties, error) {
	return FuelFor(p.Vegetation)
}

// MoistureFromHumidity derives fuel moisture content (%) from relative
// humidity using the simplified linear relationship of the model.
func MoistureFromHumidity(humidity float64) float64 {
	return humidity * 0.5
}

// resolveMoisture clamps moisture into the burnable band for the fuel. A
// non-positive moisture means "derive from humidity".
func resolveMoisture(moisture float64, p Parameters, fuel FuelProperties) float64 {
	if moisture <= 0 {
		moisture = MoistureFromHumidity(p.Humidity)
	}
	return math.Max(1.0, math.Min(moisture, fuel.MoistureExtinction-1.0))
}

// MoistureDamping computes the moisture damping coefficient η_M in [0,1].
// It is zero at and above the fuel's moisture of extinction.
func MoistureDamping(moisture float64, fuel FuelProperties) float64 {
	if fuel.MoistureExtinction <= 0 {
		return 0
	}
	r := moisture / fuel.MoistureExtinction
	if r >= 1.0 {
		return 0
	}
	etaM := 1.0 - 2.59*r + 5.11*r*r - 3.52*r*r*r
	return math.Max(0.0, math.Min(1.0, etaM))
}

// MineralDamping computes the mineral damping coefficient η_s in (0,1].
func MineralDamping(fuel FuelProperties) float64 {
	etaS := 0.174 * math.Pow(fuel.MineralContent, -0.19)
	return math.Min(1.0, etaS)
}

// ReactionIntensity computes I_R, the heat release rate per unit area of the
// fire front (kW/m²).
func ReactionIntensity(fuel FuelProperties, etaM, etaS float64) float64 {
	beta := fuel.PackingRatio()
	betaOp := 3.348 * math.Pow(fuel.SurfaceAreaVolume, -0.8189)

	sav15 := math.Pow(fuel.SurfaceAreaVolume, 1.5)
	gammaMax := sav15 / (495.0 + 0.0594*sav15)

	var gamma float64
	if beta > 0 && betaOp > 0 {
		a := 133.0 * math.Pow(fuel.SurfaceAreaVolume, -0.7913)
		gamma = gammaMax * math.Pow(beta/betaOp, a) * math.Exp(a*(1.0-beta/betaOp))
	}

	return math.Max(0.0, gamma*fuel.HeatContent*etaM*etaS)
}

// PropagatingFluxRatio computes ξ, the fraction of reaction intensity that
// preheats fuel ahead of the front.
func PropagatingFluxRatio(fuel FuelProperties) float64 {
	beta := fuel.PackingRatio()
	expTerm := (0.792 + 0.681*math.Sqrt(fuel.SurfaceAreaVolume)) * (beta + 0.1)
	return math.Exp(expTerm) / (192.0 + 0.2595*fuel.SurfaceAreaVolume)
}

// HeatOfPreignition computes Q_ig, the heat required to ignite fuel at the
// given moisture content (kJ/kg).
func HeatOfPreignition(moisture float64) float64 {
	return 250.0 + 11.16*moisture
}

// BaseSpreadRate computes R_0, the no-wind no-slope spread rate (m/min).
// A non-positive moisture derives fuel moisture from the humidity parameter.
func BaseSpreadRate(p Parameters, moisture float64) float64 {
	fuel, err := p.Fuel()
	if err != nil {
		return 0
	}

	m := resolveMoisture(moisture, p, fuel)

	etaM := MoistureDamping(m, fuel)
	etaS := MineralDamping(fuel)

	iR := ReactionIntensity(fuel, etaM, etaS)
	if iR <= 0 {
		return 0
	}

	xi := PropagatingFluxRatio(fuel)
	qIg := HeatOfPreignition(m)
	if fuel.BulkDensity <= 0 || qIg <= 0 {
		return 0
	}

	return math.Max(0.0, iR*xi/(fuel.BulkDensity*qIg))
}

// WindCoefficient computes φ_w, the dimensionless wind factor (≥ 1).
func WindCoefficient(p Parameters) float64 {
	fuel, err := p.Fuel()
	if err != nil {
		return 1.0
	}
	if p.WindSpeed <= 0 {
		return 1.0
	}

	// Rothermel's wind equation uses ft/min.
	windFtPerMin := p.WindSpeed * 3.28084 * 60

	beta := fuel.PackingRatio()

	b := 0.02526 * math.Pow(fuel.SurfaceAreaVolume, 0.54)
	c := 7.47 * math.Exp(-0.133*math.Pow(fuel.SurfaceAreaVolume, 0.55))
	e := 0.715 * math.Exp(-3.59e-4*fuel.SurfaceAreaVolume)

	phiW := c * math.Pow(windFtPerMin, b) * math.Pow(beta/0.0189, -e)

	return math.Max(1.0, phiW)
}

// SlopeCoefficient computes φ_s, the dimensionless slope factor (≥ 1).
func SlopeCoefficient(p Parameters) float64 {
	if p.Slope <= 0 {
		return 1.0
	}
	slopeRadians := p.Slope * math.Pi / 180.0
	return math.Max(1.0, 5.275*slopeRadians*slopeRadians)
}

// SpreadRate computes the omnidirectional spread rate R (m/min) including
// wind and slope effects.
func SpreadRate(p Parameters, moisture float64) float64 {
	r0 := BaseSpreadRate(p, moisture)
	if r0 <= 0 {
		return 0
	}
	phiW := WindCoefficient(p)
	phiS := SlopeCoefficient(p)
	return math.Max(0.0, r0*(1.0+phiW+phiS))
}

// DirectionalSpreadRate computes the spread rate (m/min) in the given compass
// direction. The wind contribution follows a cosine law: full effect
// downwind, none at or beyond 90° off the wind axis. Slope is treated as
// uniform in all directions.
func DirectionalSpreadRate(p Parameters, directionDegrees, moisture float64) float64 {
	r0 := BaseSpreadRate(p, moisture)
	if r0 <= 0 {
		return 0
	}

	phiS := SlopeCoefficient(p)
	phiWMax := WindCoefficient(p)

	angleDiff := math.Abs(directionDegrees - p.WindDirection)
	if angleDiff > 180 {
		angleDiff = 360 - angleDiff
	}

	windFactor := math.Cos(angleDiff * math.Pi / 180.0)
	phiW := 1.0 + (phiWMax-1.0)*math.Max(0, windFactor)

	return math.Max(0.0, r0*(1.0+phiW+phiS))
}

// FlameLength computes flame length (m) from fireline intensity (kW/m) using
// Byram's equation L = 0.0775·I^0.46.
func FlameLength(intensity float64) float64 {
	if intensity <= 0 {
		return 0
	}
	return 0.0775 * math.Pow(intensity, 0.46)
}

// FirelineIntensity computes the heat release rate per unit length of the
// advancing front (kW/m).
func FirelineIntensity(spreadRate float64, fuel FuelProperties, reactionIntensity float64) float64 {
	if spreadRate <= 0 || reactionIntensity <= 0 {
		return 0
	}
	spreadRateMS := spreadRate / 60.0
	return math.Max(0.0, reactionIntensity*spreadRateMS*fuel.FuelBedDepth)
}
