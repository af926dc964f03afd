package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/co2sensors/scd4x"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, AdapterMCP2221, cfg.Bus.Adapter)
	assert.Equal(t, DefaultAddress, cfg.Bus.Address)
	assert.Nil(t, cfg.Settings)
	v, err := cfg.Variant()
	require.NoError(t, err)
	assert.Equal(t, scd4x.SCD41, v)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
bus:
  adapter: generic
  device: "1"
  address: 0x62
sensor:
  variant: SCD40
settings:
  temperature_offset_c: 5.4
  altitude_m: 300
  asc_enabled: false
`))
	require.NoError(t, err)
	assert.Equal(t, AdapterGeneric, cfg.Bus.Adapter)
	assert.Equal(t, "1", cfg.Bus.Device)
	assert.Equal(t, byte(0x62), cfg.Bus.Address)
	assert.EqualValues(t, DefaultSpeedHz, cfg.Bus.SpeedHz, "unset values keep defaults")
	v, err := cfg.Variant()
	require.NoError(t, err)
	assert.Equal(t, scd4x.SCD40, v)

	require.NotNil(t, cfg.Settings)
	require.NotNil(t, cfg.Settings.TemperatureOffset)
	assert.InDelta(t, 5.4, *cfg.Settings.TemperatureOffset, 1e-9)
	assert.InDelta(t, 300.0, *cfg.Settings.SensorAltitude, 1e-9)
	assert.False(t, *cfg.Settings.AutomaticSelfCalibration)
	assert.Nil(t, cfg.Settings.AmbientPressure)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"adapter", "bus: {adapter: ftdi}"},
		{"address", "bus: {address: 0x80}"},
		{"variant", "sensor: {variant: scd30}"},
		{"speed", "bus: {speed_hz: -1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
	_, err := Parse([]byte("bus: ["))
	assert.ErrorContains(t, err, "unmarshal config")
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "co2.yaml")
	cfg := Default()
	cfg.Bus.Adapter = AdapterSim
	pressure := 98_000.0
	cfg.Settings = &scd4x.Settings{AmbientPressure: &pressure}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
