package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/irex-4qt/logparser/internal/fsutil"
	"github.com/irex-4qt/logparser/internal/metrics"
)

// SummaryPrefix prefixes the JSON run summary.
const SummaryPrefix = "summary_"

// MetricsDoc is the JSON form of metrics.DerivedMetrics. Unavailable
// quantities encode as null.
type MetricsDoc struct {
	Runtime      string                  `json:"runtime"`
	RuntimeSecs  metrics.Quantity        `json:"runtime_secs"`
	EnergyKWh    metrics.Quantity        `json:"energy_kwh"`
	DistanceKM   metrics.Quantity        `json:"distance_km"`
	DieselLitres metrics.Quantity        `json:"diesel_litres"`
	CO2Kg        metrics.Quantity        `json:"co2_kg"`
	Cost         metrics.Quantity        `json:"cost"`
	Currency     string                  `json:"currency"`
	CostBasis    string                  `json:"cost_basis"`
	Signals      []metrics.SignalSummary `json:"signals"`
}

// NewMetricsDoc converts derived metrics for encoding.
func NewMetricsDoc(m metrics.DerivedMetrics) MetricsDoc {
	signals := m.Signals
	if signals == nil {
		signals = []metrics.SignalSummary{}
	}
	return MetricsDoc{
		Runtime:      m.Runtime.String(),
		RuntimeSecs:  m.Runtime.Secs(),
		EnergyKWh:    m.EnergyKWh,
		DistanceKM:   m.DistanceKM,
		DieselLitres: m.DieselLitres,
		CO2Kg:        m.CO2Kg,
		Cost:         m.Cost,
		Currency:     m.Currency,
		CostBasis:    m.CostBasis,
		Signals:      signals,
	}
}

// Summary describes one processed recording.
type Summary struct {
	RunID             string     `json:"run_id,omitempty"`
	Recording         string     `json:"recording"`
	Raw               Artifact   `json:"raw"`
	Filtered          Artifact   `json:"filtered"`
	ProcessedAt       time.Time  `json:"processed_at"`
	ProcessingSeconds float64    `json:"processing_seconds"`
	Metrics           MetricsDoc `json:"metrics"`
}

// WriteSummary writes s as indented JSON to dir/summary_<base>.json.
func WriteSummary(fsys fsutil.FileSystem, dir string, s Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSON marshal: %w", err)
	}
	path := filepath.Join(dir, SummaryPrefix+BaseName(s.Recording)+".json")
	if err := fsys.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
