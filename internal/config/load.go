package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/irex-4qt/logparser/internal/monitoring"
)

// maxFileSize bounds the settings document.
const maxFileSize = 1 * 1024 * 1024

// Format identifies a settings document encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the document format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("config file must have .toml, .yaml or .json extension, got %q", ext)
	}
}

// ShapeError reports a section that is present but cannot be decoded into
// its expected structure. The section falls back to its defaults.
type ShapeError struct {
	Section string
	Err     error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("config section %q has the wrong shape, using defaults: %v", e.Section, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// Load reads and validates the settings file at path.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	format, err := FormatForPath(cleanPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, format)
}

// LoadOrDefault is Load, except that a missing file yields Defaults.
func LoadOrDefault(path string) (*Settings, error) {
	s, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		monitoring.Logf("config: %s not found, using defaults", path)
		return Defaults(), nil
	}
	return s, err
}

// Parse decodes a settings document. Each known section is decoded on its
// own so that one malformed section does not discard the others.
func Parse(data []byte, format Format) (*Settings, error) {
	var decode sectionDecoder
	var err error
	switch format {
	case FormatTOML:
		decode, err = tomlSections(data)
	case FormatYAML:
		decode, err = yamlSections(data)
	case FormatJSON:
		decode, err = jsonSections(data)
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", format, err)
	}

	s := Defaults()
	sections := []struct {
		name   string
		target any
		reset  func()
	}{
		{"paths", &s.Paths, func() { s.Paths = Paths{} }},
		{"export_settings", &s.Export, func() { s.Export = ExportSettings{} }},
		{"metrics", &s.Metrics, func() { s.Metrics = MetricsSettings{} }},
		{"dashboard", &s.Dashboard, func() { s.Dashboard = DashboardSettings{} }},
	}
	for _, sec := range sections {
		if err := decode(sec.name, sec.target); err != nil {
			sec.reset()
			shapeErr := &ShapeError{Section: sec.name, Err: err}
			monitoring.Warnf("%v", shapeErr)
			s.ShapeErrors = append(s.ShapeErrors, shapeErr)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// sectionDecoder decodes the named top-level section into v. A missing
// section leaves v untouched and returns nil.
type sectionDecoder func(name string, v any) error

func tomlSections(data []byte) (sectionDecoder, error) {
	var doc map[string]toml.Primitive
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, err
	}
	return func(name string, v any) error {
		prim, ok := doc[name]
		if !ok {
			return nil
		}
		return md.PrimitiveDecode(prim, v)
	}, nil
}

func yamlSections(data []byte) (sectionDecoder, error) {
	var doc map[string]yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	return func(name string, v any) error {
		node, ok := doc[name]
		if !ok {
			return nil
		}
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("expected a mapping, got %s", node.ShortTag())
		}
		return node.Decode(v)
	}, nil
}

func jsonSections(data []byte) (sectionDecoder, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return func(name string, v any) error {
		raw, ok := doc[name]
		if !ok {
			return nil
		}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
			return fmt.Errorf("expected an object, got %s", trimmed)
		}
		return json.Unmarshal(raw, v)
	}, nil
}
