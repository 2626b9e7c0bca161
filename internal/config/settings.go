// Package config loads the settings document shared by the logparser and
// dashboard commands.
//
// Every field is optional. Unset fields are nil and the Get* accessors return
// the documented default, so a partial or missing document is always usable.
package config

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultPath is where the commands look for settings when no path is given.
const DefaultPath = "./settings.toml"

// Cost bases for the monetary equivalent of consumed energy.
const (
	CostBasisElectric = "electric"
	CostBasisDiesel   = "diesel"
)

// Settings is the root settings document.
type Settings struct {
	Paths     Paths             `toml:"paths" yaml:"paths" json:"paths"`
	Export    ExportSettings    `toml:"export_settings" yaml:"export_settings" json:"export_settings"`
	Metrics   MetricsSettings   `toml:"metrics" yaml:"metrics" json:"metrics"`
	Dashboard DashboardSettings `toml:"dashboard" yaml:"dashboard" json:"dashboard"`

	// ShapeErrors lists the sections that were present with the wrong shape
	// and fell back to their defaults.
	ShapeErrors []*ShapeError `toml:"-" yaml:"-" json:"-"`
}

// Paths configures where inputs are found and outputs are written.
type Paths struct {
	ExportDir *string `toml:"export_dir" yaml:"export_dir" json:"export_dir,omitempty"`
	DBCsDir   *string `toml:"dbcs_dir" yaml:"dbcs_dir" json:"dbcs_dir,omitempty"`
	HistoryDB *string `toml:"history_db" yaml:"history_db" json:"history_db,omitempty"`
}

// ExportSettings controls how signal tables are built and exported.
type ExportSettings struct {
	OnlyBasenames      *bool   `toml:"only_basenames" yaml:"only_basenames" json:"only_basenames,omitempty"`
	UseInterpolation   *bool   `toml:"use_interpolation" yaml:"use_interpolation" json:"use_interpolation,omitempty"`
	TimeAsDate         *bool   `toml:"time_as_date" yaml:"time_as_date" json:"time_as_date,omitempty"`
	TimestampsAsDate   *bool   `toml:"timestamps_as_date" yaml:"timestamps_as_date" json:"timestamps_as_date,omitempty"`
	RawBytesColumn     *string `toml:"raw_bytes_column" yaml:"raw_bytes_column" json:"raw_bytes_column,omitempty"`
	CatalogueExtension *string `toml:"catalogue_extension" yaml:"catalogue_extension" json:"catalogue_extension,omitempty"`
}

// MetricsSettings names the signals used by the derived metrics and holds
// the conversion constants.
type MetricsSettings struct {
	VoltageColumn     *string  `toml:"voltage_column" yaml:"voltage_column" json:"voltage_column,omitempty"`
	CurrentColumn     *string  `toml:"current_column" yaml:"current_column" json:"current_column,omitempty"`
	SpeedColumn       *string  `toml:"speed_column" yaml:"speed_column" json:"speed_column,omitempty"`
	GearRatio         *float64 `toml:"gear_ratio" yaml:"gear_ratio" json:"gear_ratio,omitempty"`
	KWhPerLitreDiesel *float64 `toml:"kwh_per_litre_diesel" yaml:"kwh_per_litre_diesel" json:"kwh_per_litre_diesel,omitempty"`
	VehicleEfficiency *float64 `toml:"vehicle_efficiency" yaml:"vehicle_efficiency" json:"vehicle_efficiency,omitempty"`
	CO2KgPerLitre     *float64 `toml:"co2_kg_per_litre" yaml:"co2_kg_per_litre" json:"co2_kg_per_litre,omitempty"`
	CostBasis         *string  `toml:"cost_basis" yaml:"cost_basis" json:"cost_basis,omitempty"`
	CostPerLitre      *float64 `toml:"cost_per_litre" yaml:"cost_per_litre" json:"cost_per_litre,omitempty"`
	CostPerKWh        *float64 `toml:"cost_per_kwh" yaml:"cost_per_kwh" json:"cost_per_kwh,omitempty"`
	Currency          *string  `toml:"currency" yaml:"currency" json:"currency,omitempty"`
}

// DashboardSettings configures the dashboard server.
type DashboardSettings struct {
	Listen             *string  `toml:"listen" yaml:"listen" json:"listen,omitempty"`
	DefaultColumns     []string `toml:"default_columns" yaml:"default_columns" json:"default_columns,omitempty"`
	TemperatureColumns []string `toml:"temperature_columns" yaml:"temperature_columns" json:"temperature_columns,omitempty"`
}

// Defaults returns settings with every field unset.
func Defaults() *Settings {
	return &Settings{}
}

// Validate checks value ranges. Shape problems are handled while decoding;
// an error here is fatal to the caller.
func (s *Settings) Validate() error {
	m := s.Metrics
	if m.GearRatio != nil && *m.GearRatio <= 0 {
		return fmt.Errorf("metrics.gear_ratio must be positive, got %g", *m.GearRatio)
	}
	if m.KWhPerLitreDiesel != nil && *m.KWhPerLitreDiesel <= 0 {
		return fmt.Errorf("metrics.kwh_per_litre_diesel must be positive, got %g", *m.KWhPerLitreDiesel)
	}
	if m.VehicleEfficiency != nil && (*m.VehicleEfficiency <= 0 || *m.VehicleEfficiency > 1) {
		return fmt.Errorf("metrics.vehicle_efficiency must be in (0, 1], got %g", *m.VehicleEfficiency)
	}
	if m.CO2KgPerLitre != nil && *m.CO2KgPerLitre < 0 {
		return fmt.Errorf("metrics.co2_kg_per_litre must be non-negative, got %g", *m.CO2KgPerLitre)
	}
	if m.CostPerLitre != nil && *m.CostPerLitre < 0 {
		return fmt.Errorf("metrics.cost_per_litre must be non-negative, got %g", *m.CostPerLitre)
	}
	if m.CostPerKWh != nil && *m.CostPerKWh < 0 {
		return fmt.Errorf("metrics.cost_per_kwh must be non-negative, got %g", *m.CostPerKWh)
	}
	if m.CostBasis != nil && !slices.Contains([]string{CostBasisElectric, CostBasisDiesel}, *m.CostBasis) {
		return fmt.Errorf("metrics.cost_basis must be %q or %q, got %q", CostBasisElectric, CostBasisDiesel, *m.CostBasis)
	}

	e := s.Export
	if e.CatalogueExtension != nil && !strings.HasPrefix(*e.CatalogueExtension, ".") {
		return fmt.Errorf("export_settings.catalogue_extension must start with '.', got %q", *e.CatalogueExtension)
	}
	if e.RawBytesColumn != nil && strings.TrimSpace(*e.RawBytesColumn) == "" {
		return fmt.Errorf("export_settings.raw_bytes_column must not be empty")
	}
	if e.TimeAsDate != nil && e.TimestampsAsDate != nil && *e.TimeAsDate != *e.TimestampsAsDate {
		return fmt.Errorf("export_settings.time_as_date and timestamps_as_date disagree")
	}
	return nil
}

// GetExportDir returns the artifact output directory.
func (p Paths) GetExportDir() string {
	if p.ExportDir == nil || *p.ExportDir == "" {
		return "./processed_files/"
	}
	return *p.ExportDir
}

// GetDBCsDir returns the catalogue directory.
func (p Paths) GetDBCsDir() string {
	if p.DBCsDir == nil || *p.DBCsDir == "" {
		return "./DBCs/"
	}
	return *p.DBCsDir
}

// GetHistoryDB returns the run-history database path. Empty disables history.
func (p Paths) GetHistoryDB() string {
	if p.HistoryDB == nil {
		return ""
	}
	return *p.HistoryDB
}

// GetOnlyBasenames reports whether signal names drop their message prefix.
func (e ExportSettings) GetOnlyBasenames() bool {
	return e.OnlyBasenames != nil && *e.OnlyBasenames
}

// GetUseInterpolation reports whether numeric gaps are interpolated.
func (e ExportSettings) GetUseInterpolation() bool {
	return e.UseInterpolation != nil && *e.UseInterpolation
}

// GetTimeAsDate reports whether the time axis is absolute. The older
// timestamps_as_date key is honoured when time_as_date is unset.
func (e ExportSettings) GetTimeAsDate() bool {
	switch {
	case e.TimeAsDate != nil:
		return *e.TimeAsDate
	case e.TimestampsAsDate != nil:
		return *e.TimestampsAsDate
	}
	return true
}

// GetRawBytesColumn returns the payload signal rendered as hex.
func (e ExportSettings) GetRawBytesColumn() string {
	if e.RawBytesColumn == nil {
		return "DataBytes"
	}
	return *e.RawBytesColumn
}

// GetCatalogueExtension returns the catalogue file extension.
func (e ExportSettings) GetCatalogueExtension() string {
	if e.CatalogueExtension == nil {
		return ".dbc"
	}
	return *e.CatalogueExtension
}

func (m MetricsSettings) GetVoltageColumn() string { return stringOr(m.VoltageColumn, "Voltage") }
func (m MetricsSettings) GetCurrentColumn() string { return stringOr(m.CurrentColumn, "Current") }
func (m MetricsSettings) GetSpeedColumn() string {
	return stringOr(m.SpeedColumn, "ElectricMachineSpeed1")
}

// GetGearRatio converts raw machine speed to km/h.
func (m MetricsSettings) GetGearRatio() float64 { return floatOr(m.GearRatio, 0.0783744) }

func (m MetricsSettings) GetKWhPerLitreDiesel() float64 {
	return floatOr(m.KWhPerLitreDiesel, 9.7)
}

func (m MetricsSettings) GetVehicleEfficiency() float64 {
	return floatOr(m.VehicleEfficiency, 0.3)
}

func (m MetricsSettings) GetCO2KgPerLitre() float64 { return floatOr(m.CO2KgPerLitre, 2.54) }

// GetCostBasis returns CostBasisElectric or CostBasisDiesel.
func (m MetricsSettings) GetCostBasis() string { return stringOr(m.CostBasis, CostBasisElectric) }

func (m MetricsSettings) GetCostPerLitre() float64 { return floatOr(m.CostPerLitre, 1.90) }
func (m MetricsSettings) GetCostPerKWh() float64   { return floatOr(m.CostPerKWh, 0.27) }
func (m MetricsSettings) GetCurrency() string      { return stringOr(m.Currency, "CHF") }

// GetListen returns the dashboard listen address.
func (d DashboardSettings) GetListen() string { return stringOr(d.Listen, ":8080") }

// GetDefaultColumns returns the columns plotted before the user selects any.
func (d DashboardSettings) GetDefaultColumns() []string {
	if d.DefaultColumns == nil {
		return []string{"Voltage", "Current"}
	}
	return slices.Clone(d.DefaultColumns)
}

// GetTemperatureColumns returns the columns shown on the temperature plot.
func (d DashboardSettings) GetTemperatureColumns() []string {
	if d.TemperatureColumns == nil {
		return []string{
			"TempCurrCool1",
			"TempCurr1",
			"ElectricMachineTemperature1",
			"InverterTemperature1",
			"TempCurrRotor1",
		}
	}
	return slices.Clone(d.TemperatureColumns)
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
