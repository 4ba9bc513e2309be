package prediction

import (
	"math"
	"time"
)

// Advisory texts appended by the estimator, in the fixed order they are checked.
const (
	adviceHighTemperature = "High temperature detected. Increase irrigation and use shade nets."
	adviceLowRainfall     = "Low rainfall. Consider drip irrigation system."
	adviceAcidicSoil      = "Acidic soil. Apply lime to increase pH."
	adviceAlkalineSoil    = "Alkaline soil. Add organic matter to reduce pH."
)

const (
	baseYield  = 2.0
	yieldFloor = 0.5
)

// Estimate computes a prediction from a validated measurement with no external
// calls. It is deterministic: the same record and timestamp always produce the
// same result. Callers supply the timestamp so results are reproducible.
func Estimate(rec MeasurementRecord, at time.Time) Result {
	estimate := baseYield

	// Rainfall: optimal band 180-350mm, both boundaries inclusive.
	switch {
	case rec.RainfallMM >= 180 && rec.RainfallMM <= 350:
		estimate += 0.5
	case rec.RainfallMM < 180:
		estimate -= 0.4
	default:
		estimate += 0.2
	}

	// Temperature: optimal band 26-32C.
	if rec.TemperatureC >= 26 && rec.TemperatureC <= 32 {
		estimate += 0.4
	} else {
		estimate -= 0.3
	}

	// Soil pH: optimal band 6.0-7.5.
	if rec.SoilPH >= 6.0 && rec.SoilPH <= 7.5 {
		estimate += 0.3
	} else {
		estimate -= 0.2
	}

	estimate += (rec.NitrogenKgHa + rec.PhosphorusKgHa + rec.PotassiumKgHa) / 300
	estimate -= math.Abs(float64(rec.SowingOffsetDays)) * 0.05

	if estimate < yieldFloor {
		estimate = yieldFloor
	}
	estimate = roundYield(estimate)

	recommendations := buildRecommendations(rec)
	return Result{
		PredictedYield:  estimate,
		RiskLevel:       riskFor(estimate, len(recommendations)),
		Recommendations: recommendations,
		Source:          SourceOffline,
		CreatedAt:       at,
	}
}

// buildRecommendations runs the independent advisory checks in fixed order.
func buildRecommendations(rec MeasurementRecord) []string {
	recommendations := make([]string, 0, 4)
	if rec.TemperatureC > 32 {
		recommendations = append(recommendations, adviceHighTemperature)
	}
	if rec.RainfallMM < 180 {
		recommendations = append(recommendations, adviceLowRainfall)
	}
	if rec.SoilPH < 6.0 {
		recommendations = append(recommendations, adviceAcidicSoil)
	}
	if rec.SoilPH > 7.5 {
		recommendations = append(recommendations, adviceAlkalineSoil)
	}
	return recommendations
}

// riskFor derives the risk tier from yield and advisory count, first match wins.
func riskFor(predictedYield float64, recommendationCount int) RiskLevel {
	switch {
	case predictedYield < 2.0 || recommendationCount >= 3:
		return RiskRed
	case predictedYield < 2.8 || recommendationCount >= 2:
		return RiskYellow
	default:
		return RiskGreen
	}
}

func roundYield(v float64) float64 {
	return math.Round(v*100) / 100
}
