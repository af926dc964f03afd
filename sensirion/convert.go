package sensirion

// Sensirion humidity and temperature sensors share the same 16-bit scaling.
const ticks = 65535.0

// TemperatureFromTicks converts a temperature word to °C: -45 + 175 * raw / 65535.
func TemperatureFromTicks(raw uint16) float32 {
	return float32(-45.0 + 175.0*float64(raw)/ticks)
}

// HumidityFromTicks converts a relative humidity word to %RH: 100 * raw / 65535.
func HumidityFromTicks(raw uint16) float32 {
	return float32(100.0 * float64(raw) / ticks)
}
