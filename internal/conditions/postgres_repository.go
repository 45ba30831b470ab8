package conditions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqisense/aqisense/internal/heatmap"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL conditions repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save stores one snapshot.
func (r *PostgresRepository) Save(ctx context.Context, s *Snapshot) error {
	query := `
		INSERT INTO current_conditions (
			id, location, pollutants_summary, reading, forecast,
			fetched_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	location, err := json.Marshal(s.Location)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	summary, err := json.Marshal(s.PollutantsSummary)
	if err != nil {
		return fmt.Errorf("marshal pollutants summary: %w", err)
	}
	reading, err := json.Marshal(s.Reading)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	var forecast []byte
	if s.Forecast != nil {
		if forecast, err = json.Marshal(s.Forecast); err != nil {
			return fmt.Errorf("marshal forecast: %w", err)
		}
	}

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		location,
		summary,
		reading,
		forecast,
		s.FetchedAt,
		s.CreatedAt,
	)
	return err
}

// AllForMap returns every stored snapshot reduced to location and
// index entries.
func (r *PostgresRepository) AllForMap(ctx context.Context) ([]heatmap.ConditionsRecord, error) {
	query := `SELECT location, reading FROM current_conditions`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []heatmap.ConditionsRecord
	for rows.Next() {
		var location, reading []byte
		if err := rows.Scan(&location, &reading); err != nil {
			return nil, err
		}

		var loc struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		}
		if err := json.Unmarshal(location, &loc); err != nil {
			return nil, fmt.Errorf("unmarshal location: %w", err)
		}

		var payload struct {
			Indexes []heatmap.IndexEntry `json:"indexes"`
		}
		if len(reading) > 0 {
			if err := json.Unmarshal(reading, &payload); err != nil {
				return nil, fmt.Errorf("unmarshal reading: %w", err)
			}
		}

		records = append(records, heatmap.ConditionsRecord{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Indexes:   payload.Indexes,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
