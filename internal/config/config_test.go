package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/tripload/pkg/tripload"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))
	return dir
}

func TestLoad_AllFields(t *testing.T) {
	dir := writeConfig(t, `connection:
  host: myhost
  port: 5433
  username: myuser
  password: secret
  database: mydb
  sslmode: require

source:
  url_prefix: https://example.com/yellow
  year: 2020
  month: 7

table: trips
chunk_size: 5000
timeout: 10m

columns:
  airport_fee: float64

parse_dates:
  - pickup
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "myhost", cfg.Connection.Host)
	assert.Equal(t, 5433, cfg.Connection.Port)
	assert.Equal(t, "myuser", cfg.Connection.Username)
	assert.Equal(t, "secret", cfg.Connection.Password)
	assert.Equal(t, "mydb", cfg.Connection.Database)
	assert.Equal(t, "require", cfg.Connection.SSLMode)
	assert.Equal(t, "https://example.com/yellow", cfg.Source.URLPrefix)
	assert.Equal(t, 2020, cfg.Source.Year)
	assert.Equal(t, 7, cfg.Source.Month)
	assert.Equal(t, "trips", cfg.Table)
	assert.Equal(t, 5000, cfg.ChunkSize)
	assert.Equal(t, "10m", cfg.Timeout)
	assert.Equal(t, "float64", cfg.Columns["airport_fee"])
	assert.Equal(t, []string{"pickup"}, cfg.ParseDates)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{{invalid"))
	assert.ErrorIs(t, err, tripload.ErrInvalidConfig)
	assert.Nil(t, cfg)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, ProjectConfig{}, *cfg)
}

func TestTypeMap_Overlay(t *testing.T) {
	cfg := &ProjectConfig{Columns: map[string]string{
		"airport_fee":     "float",
		"passenger_count": "float64",
	}}

	types, err := cfg.TypeMap()
	require.NoError(t, err)
	assert.Equal(t, tripload.ColumnFloat64, types["airport_fee"])
	assert.Equal(t, tripload.ColumnFloat64, types["passenger_count"])
	assert.Equal(t, tripload.ColumnInt64, types["VendorID"])
	assert.Equal(t, tripload.ColumnString, types["store_and_fwd_flag"])
}

func TestTypeMap_InvalidType(t *testing.T) {
	cfg := &ProjectConfig{Columns: map[string]string{"x": "decimal(10,2)"}}
	_, err := cfg.TypeMap()
	require.Error(t, err)
	assert.ErrorIs(t, err, tripload.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "columns.x")
}

func TestTypeMap_NilConfig(t *testing.T) {
	var cfg *ProjectConfig
	types, err := cfg.TypeMap()
	require.NoError(t, err)
	assert.Equal(t, tripload.YellowTaxiTypes(), types)
}

func TestDateColumns(t *testing.T) {
	var nilCfg *ProjectConfig
	assert.Equal(t, []string{"tpep_pickup_datetime", "tpep_dropoff_datetime"}, nilCfg.DateColumns())

	cfg := &ProjectConfig{ParseDates: []string{"a"}}
	assert.Equal(t, []string{"a"}, cfg.DateColumns())
}

func TestTimeoutDuration(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"minutes", "10m", 10 * time.Minute, false},
		{"invalid", "soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ProjectConfig{Timeout: tt.timeout}
			got, err := cfg.TimeoutDuration()
			if tt.wantErr {
				assert.ErrorIs(t, err, tripload.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
