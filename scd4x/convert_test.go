package scd4x

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/physic"
)

func TestRegisterRoundTrip(t *testing.T) {
	for reg := 0; reg <= math.MaxUint16; reg++ {
		w := uint16(reg)
		if got := AltitudeToRegister(AltitudeFromRegister(w)); got != w {
			t.Fatalf("altitude %d: got %d", w, got)
		}
		if got := PressureToRegister(PressureFromRegister(w)); got != w {
			t.Fatalf("pressure %d: got %d", w, got)
		}
		if got := CO2ToRegister(float64(CO2FromRegister(w))); got != w {
			t.Fatalf("co2 %d: got %d", w, got)
		}
		got := int(TemperatureOffsetToRegister(TemperatureOffsetFromRegister(w)))
		if got < reg-1 || got > reg+1 {
			t.Fatalf("temperature offset %d: got %d", w, got)
		}
	}
}

func TestTemperatureOffset(t *testing.T) {
	tests := []struct {
		celsius float64
		reg     uint16
	}{
		{0, 0},
		{4, 1498},
		{5.4, 2022},
		{175, 65535},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.reg, TemperatureOffsetToRegister(tt.celsius), "%v °C", tt.celsius)
	}
	assert.InDelta(t, 4.0, TemperatureOffsetFromRegister(1498), 0.002)
}

func TestTruncatingConversions(t *testing.T) {
	assert.Equal(t, uint16(1600), AltitudeToRegister(1600.9))
	assert.Equal(t, uint16(1013), PressureToRegister(101399))
	assert.Equal(t, uint16(987), PressureToRegister(98765))
	assert.Equal(t, 98700.0, PressureFromRegister(987))
	assert.Equal(t, uint16(419), CO2ToRegister(419.99))
}

func TestConversionsClamp(t *testing.T) {
	assert.Equal(t, uint16(0), AltitudeToRegister(-10))
	assert.Equal(t, uint16(0), CO2ToRegister(math.NaN()))
	assert.Equal(t, uint16(math.MaxUint16), PressureToRegister(1e9))
	assert.Equal(t, uint16(math.MaxUint16), TemperatureOffsetToRegister(500))
}

func TestMeasurementConversions(t *testing.T) {
	assert.InDelta(t, -45, TemperatureFromRaw(0), 1e-6)
	assert.InDelta(t, 130, TemperatureFromRaw(0xFFFF), 1e-4)
	assert.InDelta(t, 8.406, TemperatureFromRaw(20000), 0.001)
	assert.InDelta(t, 0, HumidityFromRaw(0), 1e-6)
	assert.InDelta(t, 100, HumidityFromRaw(0xFFFF), 1e-4)
	assert.InDelta(t, 45.777, HumidityFromRaw(30000), 0.001)
}

func TestReadingEnv(t *testing.T) {
	r := newReading([]uint16{800, 20000, 30000})
	env := r.Env()
	assert.InDelta(t, 8.406, env.Temperature.Celsius(), 0.001)
	assert.InDelta(t, 45.777, float64(env.Humidity)/float64(physic.PercentRH), 0.001)
	assert.Equal(t, "CO2: 800 ppm, T: 8.41 °C, RH: 45.78 %", r.String())
}

func TestFRCCorrection(t *testing.T) {
	c, ok := FRCCorrection(0x8000)
	assert.True(t, ok)
	assert.Equal(t, 0, c)
	c, ok = FRCCorrection(0x7FCE)
	assert.True(t, ok)
	assert.Equal(t, -50, c)
	c, ok = FRCCorrection(0x8064)
	assert.True(t, ok)
	assert.Equal(t, 100, c)
	_, ok = FRCCorrection(0xFFFF)
	assert.False(t, ok)
}

func TestOffsetForReference(t *testing.T) {
	assert.InDelta(t, 6.5, OffsetForReference(25, 22.5, 4), 1e-6)
	assert.InDelta(t, 4, OffsetForReference(22.5, 22.5, 4), 1e-6)
}

func TestDataReady(t *testing.T) {
	assert.False(t, DataReady(0x0000))
	assert.False(t, DataReady(0x8000))
	assert.False(t, DataReady(0xF000))
	assert.True(t, DataReady(0x0001))
	assert.True(t, DataReady(0x8006))
	assert.True(t, DataReady(0x0800))
}
