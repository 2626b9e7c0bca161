package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/irex-4qt/logparser/internal/export"
	"github.com/irex-4qt/logparser/internal/metrics"
)

// Run is one processed recording.
type Run struct {
	ID               string           `json:"run_id"`
	Recording        string           `json:"recording"`
	RecordingStart   time.Time        `json:"recording_start"`
	RawArtifact      string           `json:"raw_artifact"`
	FilteredArtifact string           `json:"filtered_artifact"`
	ProcessedAt      time.Time        `json:"processed_at"`
	RuntimeSecs      metrics.Quantity `json:"runtime_secs"`
	EnergyKWh        metrics.Quantity `json:"energy_kwh"`
	DistanceKM       metrics.Quantity `json:"distance_km"`
	CO2Kg            metrics.Quantity `json:"co2_kg"`
	Cost             metrics.Quantity `json:"cost"`
	Currency         string           `json:"currency"`
}

// NewRun describes a finished pipeline run. The ID is assigned by RecordRun.
func NewRun(recording string, start time.Time, raw, filtered export.Artifact, m metrics.DerivedMetrics, at time.Time) Run {
	return Run{
		Recording:        recording,
		RecordingStart:   start,
		RawArtifact:      raw.Path,
		FilteredArtifact: filtered.Path,
		ProcessedAt:      at,
		RuntimeSecs:      m.Runtime.Secs(),
		EnergyKWh:        m.EnergyKWh,
		DistanceKM:       m.DistanceKM,
		CO2Kg:            m.CO2Kg,
		Cost:             m.Cost,
		Currency:         m.Currency,
	}
}

// RecordRun inserts r, assigning a new ID when r.ID is empty. Unavailable
// metrics are stored as NULL.
func (db *DB) RecordRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	var start sql.NullInt64
	if !r.RecordingStart.IsZero() {
		start = sql.NullInt64{Int64: r.RecordingStart.UnixNano(), Valid: true}
	}

	_, err := db.Exec(
		`INSERT INTO runs (
			run_id, recording, recording_start, raw_artifact, filtered_artifact,
			processed_at, runtime_secs, energy_kwh, distance_km, co2_kg, cost, currency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Recording, start, r.RawArtifact, r.FilteredArtifact,
		r.ProcessedAt.UnixNano(), nullable(r.RuntimeSecs), nullable(r.EnergyKWh),
		nullable(r.DistanceKM), nullable(r.CO2Kg), nullable(r.Cost), r.Currency,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.Query(`SELECT run_id, recording, recording_start, raw_artifact, filtered_artifact,
			processed_at, runtime_secs, energy_kwh, distance_km, co2_kg, cost, currency
		FROM runs ORDER BY processed_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                                 Run
			start                             sql.NullInt64
			processedAt                       int64
			runtime, energy, distance, co2, c sql.NullFloat64
		)
		if err := rows.Scan(
			&r.ID, &r.Recording, &start, &r.RawArtifact, &r.FilteredArtifact,
			&processedAt, &runtime, &energy, &distance, &co2, &c, &r.Currency,
		); err != nil {
			return nil, err
		}
		if start.Valid {
			r.RecordingStart = time.Unix(0, start.Int64).UTC()
		}
		r.ProcessedAt = time.Unix(0, processedAt).UTC()
		r.RuntimeSecs = quantity(runtime)
		r.EnergyKWh = quantity(energy)
		r.DistanceKM = quantity(distance)
		r.CO2Kg = quantity(co2)
		r.Cost = quantity(c)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func nullable(q metrics.Quantity) sql.NullFloat64 {
	v, ok := q.Get()
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func quantity(n sql.NullFloat64) metrics.Quantity {
	if !n.Valid {
		return metrics.Unavailable()
	}
	return metrics.Known(n.Float64)
}
