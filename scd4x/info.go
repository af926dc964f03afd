package scd4x

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Version of the driver reported by Info.
const Version = "1.0.0"

// ChipInfo is a static description of the sensor family. It does not touch the bus.
type ChipInfo struct {
	Name          string
	Manufacturer  string
	Interface     string
	SupplyMin     physic.ElectricPotential
	SupplyMax     physic.ElectricPotential
	MaxCurrent    physic.ElectricCurrent
	TemperatureLo physic.Temperature
	TemperatureHi physic.Temperature
	DriverVersion string
}

func (c ChipInfo) String() string {
	return fmt.Sprintf("%s by %s (%s), supply %s-%s, max %s, operating %s to %s, driver v%s",
		c.Name, c.Manufacturer, c.Interface, c.SupplyMin, c.SupplyMax, c.MaxCurrent,
		c.TemperatureLo, c.TemperatureHi, c.DriverVersion)
}

// Info describes the SCD4x family. It is valid on a nil or unbound session.
func (d *SCD4x) Info() ChipInfo {
	return ChipInfo{
		Name:          "SCD4x",
		Manufacturer:  "Sensirion",
		Interface:     "I2C",
		SupplyMin:     2400 * physic.MilliVolt,
		SupplyMax:     5500 * physic.MilliVolt,
		MaxCurrent:    205 * physic.MilliAmpere,
		TemperatureLo: physic.ZeroCelsius - 10*physic.Kelvin,
		TemperatureHi: physic.ZeroCelsius + 60*physic.Kelvin,
		DriverVersion: Version,
	}
}
