package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irex-4qt/logparser/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestDefaults(t *testing.T) {
	s := Defaults()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"export_dir", s.Paths.GetExportDir(), "./processed_files/"},
		{"dbcs_dir", s.Paths.GetDBCsDir(), "./DBCs/"},
		{"history_db", s.Paths.GetHistoryDB(), ""},
		{"only_basenames", s.Export.GetOnlyBasenames(), false},
		{"use_interpolation", s.Export.GetUseInterpolation(), false},
		{"time_as_date", s.Export.GetTimeAsDate(), true},
		{"raw_bytes_column", s.Export.GetRawBytesColumn(), "DataBytes"},
		{"catalogue_extension", s.Export.GetCatalogueExtension(), ".dbc"},
		{"voltage_column", s.Metrics.GetVoltageColumn(), "Voltage"},
		{"current_column", s.Metrics.GetCurrentColumn(), "Current"},
		{"speed_column", s.Metrics.GetSpeedColumn(), "ElectricMachineSpeed1"},
		{"gear_ratio", s.Metrics.GetGearRatio(), 0.0783744},
		{"kwh_per_litre_diesel", s.Metrics.GetKWhPerLitreDiesel(), 9.7},
		{"vehicle_efficiency", s.Metrics.GetVehicleEfficiency(), 0.3},
		{"co2_kg_per_litre", s.Metrics.GetCO2KgPerLitre(), 2.54},
		{"cost_basis", s.Metrics.GetCostBasis(), CostBasisElectric},
		{"cost_per_litre", s.Metrics.GetCostPerLitre(), 1.90},
		{"cost_per_kwh", s.Metrics.GetCostPerKWh(), 0.27},
		{"currency", s.Metrics.GetCurrency(), "CHF"},
		{"listen", s.Dashboard.GetListen(), ":8080"},
		{"default_columns", s.Dashboard.GetDefaultColumns(), []string{"Voltage", "Current"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("default mismatch (-want +got):\n%s", diff)
			}
		})
	}
	assert.Len(t, s.Dashboard.GetTemperatureColumns(), 5)
}

func TestTimeAsDateAlias(t *testing.T) {
	f, tr := false, true

	tests := []struct {
		name   string
		export ExportSettings
		want   bool
	}{
		{"unset", ExportSettings{}, true},
		{"time_as_date", ExportSettings{TimeAsDate: &f}, false},
		{"legacy key", ExportSettings{TimestampsAsDate: &f}, false},
		{"both", ExportSettings{TimeAsDate: &tr, TimestampsAsDate: &tr}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.export.GetTimeAsDate(); got != tt.want {
				t.Errorf("GetTimeAsDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTOML(t *testing.T) {
	doc := `
[paths]
export_dir = "/data/out"
dbcs_dir = "/data/DBCs"

[export_settings]
only_basenames = true
timestamps_as_date = false

[metrics]
gear_ratio = 1
cost_basis = "diesel"

[dashboard]
default_columns = ["Voltage"]

[unknown_section]
whatever = 1
`
	s, err := Parse([]byte(doc), FormatTOML)
	require.NoError(t, err)

	assert.Empty(t, s.ShapeErrors)
	assert.Equal(t, "/data/out", s.Paths.GetExportDir())
	assert.Equal(t, "/data/DBCs", s.Paths.GetDBCsDir())
	assert.True(t, s.Export.GetOnlyBasenames())
	assert.False(t, s.Export.GetTimeAsDate())
	assert.Equal(t, 1.0, s.Metrics.GetGearRatio())
	assert.Equal(t, CostBasisDiesel, s.Metrics.GetCostBasis())
	assert.Equal(t, []string{"Voltage"}, s.Dashboard.GetDefaultColumns())
	assert.Equal(t, 9.7, s.Metrics.GetKWhPerLitreDiesel())
}

func TestParseShapeErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		doc     string
		section string
	}{
		{
			name:    "toml section is a bool",
			format:  FormatTOML,
			doc:     "export_settings = true\n[paths]\nexport_dir = \"out\"\n",
			section: "export_settings",
		},
		{
			name:    "toml field of wrong type",
			format:  FormatTOML,
			doc:     "[paths]\nexport_dir = \"out\"\n[export_settings]\nonly_basenames = \"yes\"\nuse_interpolation = true\n",
			section: "export_settings",
		},
		{
			name:    "yaml section is a list",
			format:  FormatYAML,
			doc:     "paths:\n  export_dir: out\nexport_settings:\n  - only_basenames\n",
			section: "export_settings",
		},
		{
			name:    "json section is a string",
			format:  FormatJSON,
			doc:     `{"paths": {"export_dir": "out"}, "export_settings": "true"}`,
			section: "export_settings",
		},
		{
			name:    "json field of wrong type",
			format:  FormatJSON,
			doc:     `{"paths": {"export_dir": "out"}, "export_settings": {"use_interpolation": 1}}`,
			section: "export_settings",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.doc), tt.format)
			require.NoError(t, err)
			require.Len(t, s.ShapeErrors, 1)

			var shapeErr *ShapeError
			require.True(t, errors.As(s.ShapeErrors[0], &shapeErr))
			assert.Equal(t, tt.section, shapeErr.Section)

			// The malformed section falls back to defaults; others survive.
			assert.Equal(t, ExportSettings{}, s.Export)
			assert.False(t, s.Export.GetUseInterpolation())
			assert.Equal(t, "out", s.Paths.GetExportDir())
		})
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"zero gear ratio", "[metrics]\ngear_ratio = 0.0\n", "gear_ratio"},
		{"efficiency above one", "[metrics]\nvehicle_efficiency = 1.5\n", "vehicle_efficiency"},
		{"negative cost", "[metrics]\ncost_per_kwh = -1.0\n", "cost_per_kwh"},
		{"unknown basis", "[metrics]\ncost_basis = \"hydrogen\"\n", "cost_basis"},
		{"extension without dot", "[export_settings]\ncatalogue_extension = \"dbc\"\n", "catalogue_extension"},
		{"conflicting alias", "[export_settings]\ntime_as_date = true\ntimestamps_as_date = false\n", "disagree"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatTOML)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte("[paths\n"), FormatTOML)
	assert.Error(t, err)

	_, err = Parse([]byte("{"), FormatJSON)
	assert.Error(t, err)
}

func TestParseEmptyDocuments(t *testing.T) {
	for _, format := range []Format{FormatTOML, FormatYAML} {
		s, err := Parse(nil, format)
		require.NoError(t, err, format)
		assert.Equal(t, "./DBCs/", s.Paths.GetDBCsDir())
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	yamlPath := filepath.Join(tmpDir, "settings.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("metrics:\n  currency: EUR\n"), 0644))
	s, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "EUR", s.Metrics.GetCurrency())

	_, err = Load(filepath.Join(tmpDir, "settings.ini"))
	assert.ErrorContains(t, err, "extension")

	big := filepath.Join(tmpDir, "big.toml")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("#", maxFileSize+1)), 0644))
	_, err = Load(big)
	assert.ErrorContains(t, err, "too large")
}

func TestLoadOrDefault(t *testing.T) {
	s, err := LoadOrDefault(filepath.Join(t.TempDir(), "settings.toml"))
	require.NoError(t, err)
	assert.Equal(t, "./processed_files/", s.Paths.GetExportDir())

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "settings.txt"))
	assert.Error(t, err)
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]Format{
		"settings.toml": FormatTOML,
		"a/b.YAML":      FormatYAML,
		"c.yml":         FormatYAML,
		"d.json":        FormatJSON,
	}
	for path, want := range tests {
		got, err := FormatForPath(path)
		if err != nil || got != want {
			t.Errorf("FormatForPath(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
}
