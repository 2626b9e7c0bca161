// Package metrics derives runtime, energy, distance and their diesel, CO2
// and cost equivalents from a filtered signal table.
//
// Metrics that cannot be computed because an input signal is missing are
// reported as unavailable Quantities, never as zero.
package metrics

import (
	"errors"

	"github.com/irex-4qt/logparser/internal/config"
	"github.com/irex-4qt/logparser/internal/monitoring"
	"github.com/irex-4qt/logparser/internal/signal"
)

// Config names the input signals and holds the conversion constants.
type Config struct {
	VoltageColumn string
	CurrentColumn string
	SpeedColumn   string
	GearRatio     float64

	KWhPerLitreDiesel float64
	VehicleEfficiency float64
	CO2KgPerLitre     float64

	CostBasis    string
	CostPerLitre float64
	CostPerKWh   float64
	Currency     string
}

// ConfigFrom maps metrics settings onto a Config.
func ConfigFrom(m config.MetricsSettings) Config {
	return Config{
		VoltageColumn:     m.GetVoltageColumn(),
		CurrentColumn:     m.GetCurrentColumn(),
		SpeedColumn:       m.GetSpeedColumn(),
		GearRatio:         m.GetGearRatio(),
		KWhPerLitreDiesel: m.GetKWhPerLitreDiesel(),
		VehicleEfficiency: m.GetVehicleEfficiency(),
		CO2KgPerLitre:     m.GetCO2KgPerLitre(),
		CostBasis:         m.GetCostBasis(),
		CostPerLitre:      m.GetCostPerLitre(),
		CostPerKWh:        m.GetCostPerKWh(),
		Currency:          m.GetCurrency(),
	}
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return ConfigFrom(config.MetricsSettings{})
}

// Equivalent holds the quantities derived from consumed energy.
type Equivalent struct {
	DieselLitres Quantity
	CO2Kg        Quantity
	Cost         Quantity
}

// Equivalents converts consumed energy into diesel litres, CO2 saved and
// cost. Unavailable energy yields unavailable equivalents.
func Equivalents(energyKWh Quantity, cfg Config) Equivalent {
	litres := energyKWh.Map(func(kwh float64) float64 {
		return kwh / (cfg.KWhPerLitreDiesel * cfg.VehicleEfficiency)
	})
	eq := Equivalent{
		DieselLitres: litres,
		CO2Kg:        litres.Map(func(l float64) float64 { return l * cfg.CO2KgPerLitre }),
	}
	if cfg.CostBasis == config.CostBasisDiesel {
		eq.Cost = litres.Map(func(l float64) float64 { return l * cfg.CostPerLitre })
	} else {
		eq.Cost = energyKWh.Map(func(kwh float64) float64 { return kwh * cfg.CostPerKWh })
	}
	return eq
}

// DerivedMetrics is the summary computed from one table.
type DerivedMetrics struct {
	Runtime      Runtime
	EnergyKWh    Quantity
	DistanceKM   Quantity
	DieselLitres Quantity
	CO2Kg        Quantity
	Cost         Quantity
	Currency     string
	CostBasis    string
	Signals      []SignalSummary
}

// Compute derives every metric from t. Missing signals make the affected
// metrics unavailable and are logged; Compute itself never fails.
func Compute(t *signal.Table, cfg Config) DerivedMetrics {
	m := DerivedMetrics{
		Runtime:   ComputeRuntime(t),
		Currency:  cfg.Currency,
		CostBasis: cfg.CostBasis,
		Signals:   Summaries(t),
	}

	var err error
	if m.EnergyKWh, err = Energy(t, cfg.VoltageColumn, cfg.CurrentColumn); err != nil {
		logMissing(err)
	}
	if m.DistanceKM, err = Distance(t, cfg.SpeedColumn, cfg.GearRatio); err != nil {
		logMissing(err)
	}

	eq := Equivalents(m.EnergyKWh, cfg)
	m.DieselLitres, m.CO2Kg, m.Cost = eq.DieselLitres, eq.CO2Kg, eq.Cost
	return m
}

func logMissing(err error) {
	var missing *MissingSignalError
	if errors.As(err, &missing) {
		monitoring.Logf("metrics: %v, reporting unavailable", err)
		return
	}
	monitoring.Warnf("metrics: %v", err)
}
