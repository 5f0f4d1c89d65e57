package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConnectionConfig holds the connection section of tripload.yaml.
// Password is accepted for local development databases only.
type ConnectionConfig struct {
	URL            string `yaml:"url,omitempty"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password,omitempty"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// SourceConfig selects the trip data file.
type SourceConfig struct {
	URL       string `yaml:"url,omitempty"`
	URLPrefix string `yaml:"url_prefix,omitempty"`
	Year      int    `yaml:"year,omitempty"`
	Month     int    `yaml:"month,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig  `yaml:"connection"`
	Source     SourceConfig      `yaml:"source"`
	Table      string            `yaml:"table"`
	ChunkSize  int               `yaml:"chunk_size"`
	Timeout    string            `yaml:"timeout"`
	Columns    map[string]string `yaml:"columns"`
	ParseDates []string          `yaml:"parse_dates"`
}

const ConfigFileName = "tripload.yaml"

// Load reads tripload.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w: %w", configPath, err, tripload.ErrInvalidConfig)
	}
	return &cfg, nil
}

// TypeMap returns the yellow taxi type map overlaid with the columns section.
func (c *ProjectConfig) TypeMap() (tripload.TypeMap, error) {
	types := tripload.YellowTaxiTypes()
	if c == nil {
		return types, nil
	}
	for name, raw := range c.Columns {
		ct, err := tripload.ParseColumnType(raw)
		if err != nil {
			return nil, fmt.Errorf("columns.%s: %w", name, err)
		}
		types[name] = ct
	}
	return types, nil
}

// DateColumns returns parse_dates, or the yellow taxi pickup and dropoff columns when unset.
func (c *ProjectConfig) DateColumns() []string {
	if c == nil || len(c.ParseDates) == 0 {
		return tripload.YellowTaxiDateColumns()
	}
	return append([]string(nil), c.ParseDates...)
}

// TimeoutDuration parses the timeout field. Empty means no timeout.
func (c *ProjectConfig) TimeoutDuration() (time.Duration, error) {
	if c == nil || c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q in %s: %w", c.Timeout, ConfigFileName, tripload.ErrInvalidConfig)
	}
	return d, nil
}
