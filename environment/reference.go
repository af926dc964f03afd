package environment

import (
	"context"
	"fmt"

	"github.com/mklimuk/co2sensors"
)

// Thermometer is a source of ambient temperature in Celsius, used as the reference when
// calibrating another sensor's temperature offset.
type Thermometer interface {
	GetTemperature(ctx context.Context) (float32, error)
}

var (
	_ Thermometer = &SHTC3{}
	_ Thermometer = &HIH6021{}
	_ Thermometer = &TC74{}
)

// TemperatureBehaviorFunc adapts a function to Thermometer.
//
// Example usage:
//
//	// Operator supplied value
//	ref := FixedTemperature(22.5)
//
//	// Dynamic behavior
//	temp := float32(20.0)
//	ref := TemperatureBehaviorFunc(func(ctx context.Context) (float32, error) { return temp, nil })
type TemperatureBehaviorFunc func(ctx context.Context) (float32, error)

func (f TemperatureBehaviorFunc) GetTemperature(ctx context.Context) (float32, error) {
	return f(ctx)
}

// FixedTemperature is a Thermometer that always reads celsius, for a value read off a
// trusted instrument by hand.
func FixedTemperature(celsius float32) TemperatureBehaviorFunc {
	return func(ctx context.Context) (float32, error) {
		return celsius, nil
	}
}

// ReferenceSensor returns the thermometer of the given kind on bus: shtc3, hih6021 or tc74.
func ReferenceSensor(kind string, bus co2sensors.I2CBus) (Thermometer, error) {
	switch kind {
	case "shtc3":
		return NewSHTC3(bus), nil
	case "hih6021":
		return NewHIH6021(bus), nil
	case "tc74":
		return NewTC74(bus), nil
	}
	return nil, fmt.Errorf("unknown reference sensor %q", kind)
}
