package prediction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqisense/aqisense/internal/heatmap"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Structured columns (input, probabilities, location, provenance) are
// stored as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL prediction repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save stores a completed prediction.
func (r *PostgresRepository) Save(ctx context.Context, p *StoredPrediction) error {
	query := `
		INSERT INTO predictions (
			id, date, input_data, predicted_category, probabilities,
			summary, location_info, used_measurements, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	inputData, err := json.Marshal(p.InputData)
	if err != nil {
		return fmt.Errorf("marshal input data: %w", err)
	}
	probabilities, err := json.Marshal(p.Probabilities)
	if err != nil {
		return fmt.Errorf("marshal probabilities: %w", err)
	}

	var locationInfo, usedMeasurements []byte
	if p.LocationInfo != nil {
		if locationInfo, err = json.Marshal(p.LocationInfo); err != nil {
			return fmt.Errorf("marshal location info: %w", err)
		}
	}
	if p.UsedMeasurements != nil {
		if usedMeasurements, err = json.Marshal(p.UsedMeasurements); err != nil {
			return fmt.Errorf("marshal used measurements: %w", err)
		}
	}

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Date,
		inputData,
		p.Category,
		probabilities,
		p.Summary,
		locationInfo,
		usedMeasurements,
		p.CreatedAt,
	)
	return err
}

// QueryByDate returns predictions for a target date, newest first,
// plus the total count for that date.
func (r *PostgresRepository) QueryByDate(ctx context.Context, date string, opts QueryOptions) ([]*StoredPrediction, int, error) {
	query := `
		SELECT
			id, date, input_data, predicted_category, probabilities,
			summary, location_info, used_measurements, created_at
		FROM predictions
		WHERE date = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	items, err := r.queryPredictions(ctx, query, date, opts.Limit, opts.Skip)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM predictions WHERE date = $1`, date).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// QueryAll returns predictions across all dates, newest first, plus
// the total count.
func (r *PostgresRepository) QueryAll(ctx context.Context, opts QueryOptions) ([]*StoredPrediction, int, error) {
	query := `
		SELECT
			id, date, input_data, predicted_category, probabilities,
			summary, location_info, used_measurements, created_at
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	items, err := r.queryPredictions(ctx, query, opts.Limit, opts.Skip)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// queryPredictions runs a list query and scans the rows.
func (r *PostgresRepository) queryPredictions(ctx context.Context, query string, args ...interface{}) ([]*StoredPrediction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*StoredPrediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// scanPrediction scans one prediction row, decoding the JSONB columns.
func scanPrediction(row pgx.Row) (*StoredPrediction, error) {
	var (
		p                StoredPrediction
		inputData        []byte
		probabilities    []byte
		locationInfo     []byte
		usedMeasurements []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Date,
		&inputData,
		&p.Category,
		&probabilities,
		&p.Summary,
		&locationInfo,
		&usedMeasurements,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(inputData, &p.InputData); err != nil {
		return nil, fmt.Errorf("unmarshal input data: %w", err)
	}
	if err := json.Unmarshal(probabilities, &p.Probabilities); err != nil {
		return nil, fmt.Errorf("unmarshal probabilities: %w", err)
	}
	if len(locationInfo) > 0 {
		p.LocationInfo = &LocationInfo{}
		if err := json.Unmarshal(locationInfo, p.LocationInfo); err != nil {
			return nil, fmt.Errorf("unmarshal location info: %w", err)
		}
	}
	if len(usedMeasurements) > 0 {
		p.UsedMeasurements = &UsedMeasurements{}
		if err := json.Unmarshal(usedMeasurements, p.UsedMeasurements); err != nil {
			return nil, fmt.Errorf("unmarshal used measurements: %w", err)
		}
	}

	return &p, nil
}

// AllForMap returns every prediction with resolved coordinates,
// reduced to what the heatmap needs.
func (r *PostgresRepository) AllForMap(ctx context.Context) ([]heatmap.PredictionRecord, error) {
	query := `
		SELECT predicted_category, location_info
		FROM predictions
		WHERE location_info IS NOT NULL
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []heatmap.PredictionRecord
	for rows.Next() {
		var (
			category     string
			locationInfo []byte
		)
		if err := rows.Scan(&category, &locationInfo); err != nil {
			return nil, err
		}

		var loc struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		}
		if err := json.Unmarshal(locationInfo, &loc); err != nil {
			return nil, fmt.Errorf("unmarshal location info: %w", err)
		}

		records = append(records, heatmap.PredictionRecord{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Category:  category,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
