package prediction

import (
	"time"

	apperrors "github.com/tharunkamalesh/crop-yield-platform-devops/pkg/errors"
)

// RiskLevel is the closed set of risk tiers attached to a prediction.
type RiskLevel string

const (
	RiskGreen  RiskLevel = "Green"
	RiskYellow RiskLevel = "Yellow"
	RiskRed    RiskLevel = "Red"
)

// Source identifies which predictor produced a result.
type Source string

const (
	SourceRemote  Source = "Remote"
	SourceOffline Source = "Offline"
)

// MeasurementRecord is a validated farm measurement, the input to any prediction.
type MeasurementRecord struct {
	CropType         string  `json:"cropType"`
	Region           string  `json:"region"`
	RainfallMM       float64 `json:"rainfallMm"`
	TemperatureC     float64 `json:"temperatureC"`
	SoilPH           float64 `json:"soilPh"`
	NitrogenKgHa     float64 `json:"nitrogenKgHa"`
	PhosphorusKgHa   float64 `json:"phosphorusKgHa"`
	PotassiumKgHa    float64 `json:"potassiumKgHa"`
	SowingOffsetDays int     `json:"sowingOffsetDays"`
}

// Result is the output of either the remote predictor or the offline estimator.
// RiskLevel is always derived from PredictedYield and the number of
// recommendations; it is never set independently.
type Result struct {
	PredictedYield  float64   `json:"predictedYield"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	Recommendations []string  `json:"recommendations"`
	Source          Source    `json:"source"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Request captures the submission payload. Numeric fields are pointers so a
// missing field is distinguishable from a zero value; none of them default.
type Request struct {
	CropType         *string  `json:"cropType"`
	Region           *string  `json:"region"`
	RainfallMM       *float64 `json:"rainfallMm"`
	TemperatureC     *float64 `json:"temperatureC"`
	SoilPH           *float64 `json:"soilPh"`
	NitrogenKgHa     *float64 `json:"nitrogenKgHa"`
	PhosphorusKgHa   *float64 `json:"phosphorusKgHa"`
	PotassiumKgHa    *float64 `json:"potassiumKgHa"`
	SowingOffsetDays *int     `json:"sowingOffsetDays"`
}

// Validate checks presence and domain of every field and builds the record.
func (r Request) Validate() (MeasurementRecord, error) {
	if r.CropType == nil || *r.CropType == "" {
		return MeasurementRecord{}, invalid("cropType is required")
	}
	if r.Region == nil || *r.Region == "" {
		return MeasurementRecord{}, invalid("region is required")
	}
	if r.RainfallMM == nil {
		return MeasurementRecord{}, invalid("rainfallMm is required")
	}
	if *r.RainfallMM < 0 {
		return MeasurementRecord{}, invalid("rainfallMm cannot be negative")
	}
	if r.TemperatureC == nil {
		return MeasurementRecord{}, invalid("temperatureC is required")
	}
	if r.SoilPH == nil {
		return MeasurementRecord{}, invalid("soilPh is required")
	}
	if *r.SoilPH < 0 || *r.SoilPH > 14 {
		return MeasurementRecord{}, invalid("soilPh must be between 0 and 14")
	}
	if r.NitrogenKgHa == nil {
		return MeasurementRecord{}, invalid("nitrogenKgHa is required")
	}
	if *r.NitrogenKgHa < 0 {
		return MeasurementRecord{}, invalid("nitrogenKgHa cannot be negative")
	}
	if r.PhosphorusKgHa == nil {
		return MeasurementRecord{}, invalid("phosphorusKgHa is required")
	}
	if *r.PhosphorusKgHa < 0 {
		return MeasurementRecord{}, invalid("phosphorusKgHa cannot be negative")
	}
	if r.PotassiumKgHa == nil {
		return MeasurementRecord{}, invalid("potassiumKgHa is required")
	}
	if *r.PotassiumKgHa < 0 {
		return MeasurementRecord{}, invalid("potassiumKgHa cannot be negative")
	}
	if r.SowingOffsetDays == nil {
		return MeasurementRecord{}, invalid("sowingOffsetDays is required")
	}
	return MeasurementRecord{
		CropType:         *r.CropType,
		Region:           *r.Region,
		RainfallMM:       *r.RainfallMM,
		TemperatureC:     *r.TemperatureC,
		SoilPH:           *r.SoilPH,
		NitrogenKgHa:     *r.NitrogenKgHa,
		PhosphorusKgHa:   *r.PhosphorusKgHa,
		PotassiumKgHa:    *r.PotassiumKgHa,
		SowingOffsetDays: *r.SowingOffsetDays,
	}, nil
}

func invalid(message string) error {
	return apperrors.Wrap("invalid_input", message, nil)
}
