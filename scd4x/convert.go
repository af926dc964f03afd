package scd4x

import (
	"math"

	"github.com/mklimuk/co2sensors/sensirion"
)

// Register scaling from the datasheet.
const (
	ticks          = 65535.0
	tempSpan       = 175.0
	pressureFactor = 100.0
)

// TemperatureOffsetToRegister converts an offset in °C to its register value, rounded to
// the nearest tick.
func TemperatureOffsetToRegister(celsius float64) uint16 {
	return clampWord(math.Round(celsius * ticks / tempSpan))
}

func TemperatureOffsetFromRegister(reg uint16) float64 {
	return float64(reg) * tempSpan / ticks
}

// TemperatureFromRaw converts the temperature word of a measurement to °C.
func TemperatureFromRaw(raw uint16) float32 {
	return sensirion.TemperatureFromTicks(raw)
}

// HumidityFromRaw converts the humidity word of a measurement to %RH.
func HumidityFromRaw(raw uint16) float32 {
	return sensirion.HumidityFromTicks(raw)
}

// AltitudeToRegister truncates meters above sea level.
func AltitudeToRegister(meters float64) uint16 {
	return clampWord(math.Trunc(meters))
}

func AltitudeFromRegister(reg uint16) float64 {
	return float64(reg)
}

// PressureToRegister converts pascals to the sensor's hectopascal register, truncating.
func PressureToRegister(pascal float64) uint16 {
	return clampWord(math.Trunc(pascal / pressureFactor))
}

func PressureFromRegister(reg uint16) float64 {
	return float64(reg) * pressureFactor
}

// CO2ToRegister truncates a concentration in ppm.
func CO2ToRegister(ppm float64) uint16 {
	return clampWord(math.Trunc(ppm))
}

func CO2FromRegister(reg uint16) uint16 {
	return reg
}

// clampWord maps v onto [0, 65535]; NaN maps to 0.
func clampWord(v float64) uint16 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(v)
	}
}

// FRCCorrection decodes the reply of a forced recalibration. It returns the applied
// correction in ppm and false when the sensor reports the recalibration failed.
func FRCCorrection(frc uint16) (int, bool) {
	if frc == frcFailed {
		return 0, false
	}
	return int(frc) - frcZero, true
}

const (
	frcFailed uint16 = 0xFFFF
	frcZero          = 0x8000
)

// OffsetForReference computes the temperature offset that makes the sensor report the
// reference temperature, given what it measured with the current offset applied.
func OffsetForReference(measured, reference float32, current float64) float64 {
	return float64(measured) - float64(reference) + current
}
