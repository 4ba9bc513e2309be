package historyrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/advisor"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/prediction"
)

// PostgresRepository implements advisor.HistoryRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append inserts one authoritative prediction row.
func (r *PostgresRepository) Append(ctx context.Context, entry advisor.HistoryEntry) error {
	recommendations, err := json.Marshal(entry.Result.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO farm_predictions (
			id, farmer_id, crop_type, region,
			rainfall_mm, temperature_c, soil_ph,
			nitrogen_kg_ha, phosphorus_kg_ha, potassium_kg_ha, sowing_offset_days,
			predicted_yield, risk_level, recommendations, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		entry.ID, entry.FarmerID, entry.Measurement.CropType, entry.Measurement.Region,
		entry.Measurement.RainfallMM, entry.Measurement.TemperatureC, entry.Measurement.SoilPH,
		entry.Measurement.NitrogenKgHa, entry.Measurement.PhosphorusKgHa, entry.Measurement.PotassiumKgHa,
		entry.Measurement.SowingOffsetDays,
		entry.Result.PredictedYield, string(entry.Result.RiskLevel), recommendations,
		string(entry.Result.Source), entry.CreatedAt,
	)
	return err
}

// ListRecent returns the newest predictions for one farmer.
func (r *PostgresRepository) ListRecent(ctx context.Context, farmerID string, limit int) ([]advisor.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, farmer_id, crop_type, region,
			rainfall_mm, temperature_c, soil_ph,
			nitrogen_kg_ha, phosphorus_kg_ha, potassium_kg_ha, sowing_offset_days,
			predicted_yield, risk_level, recommendations, source, created_at
		FROM farm_predictions
		WHERE farmer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, farmerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]advisor.HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			entry           advisor.HistoryEntry
			riskLevel       string
			source          string
			recommendations []byte
		)
		if err := rows.Scan(
			&entry.ID, &entry.FarmerID, &entry.Measurement.CropType, &entry.Measurement.Region,
			&entry.Measurement.RainfallMM, &entry.Measurement.TemperatureC, &entry.Measurement.SoilPH,
			&entry.Measurement.NitrogenKgHa, &entry.Measurement.PhosphorusKgHa, &entry.Measurement.PotassiumKgHa,
			&entry.Measurement.SowingOffsetDays,
			&entry.Result.PredictedYield, &riskLevel, &recommendations, &source, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Result.RiskLevel = prediction.RiskLevel(riskLevel)
		entry.Result.Source = prediction.Source(source)
		entry.Result.CreatedAt = entry.CreatedAt
		if len(recommendations) > 0 {
			if err := json.Unmarshal(recommendations, &entry.Result.Recommendations); err != nil {
				return nil, fmt.Errorf("decode recommendations: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

var _ advisor.HistoryRepository = (*PostgresRepository)(nil)
