package scd4x

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Reading is one measurement block. Raw register values are kept next to the converted ones.
type Reading struct {
	CO2Raw         uint16
	TemperatureRaw uint16
	HumidityRaw    uint16

	CO2         uint16  // ppm
	Temperature float32 // °C
	Humidity    float32 // %RH
}

func newReading(words []uint16) Reading {
	return Reading{
		CO2Raw:         words[0],
		TemperatureRaw: words[1],
		HumidityRaw:    words[2],
		CO2:            CO2FromRegister(words[0]),
		Temperature:    TemperatureFromRaw(words[1]),
		Humidity:       HumidityFromRaw(words[2]),
	}
}

// Env returns temperature and humidity as periph.io physical values. Pressure is left zero.
func (r Reading) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(float64(r.Temperature)*float64(physic.Celsius)),
		Humidity:    physic.RelativeHumidity(float64(r.Humidity) * float64(physic.PercentRH)),
	}
}

func (r Reading) String() string {
	return fmt.Sprintf("CO2: %d ppm, T: %.2f °C, RH: %.2f %%", r.CO2, r.Temperature, r.Humidity)
}

// StartPeriodicMeasurement starts measuring every 5 seconds.
func (d *SCD4x) StartPeriodicMeasurement(ctx context.Context) error {
	return d.start(ctx, cmdStartPeriodic, StatePeriodic)
}

// StartLowPowerPeriodicMeasurement starts measuring every 30 seconds.
func (d *SCD4x) StartLowPowerPeriodicMeasurement(ctx context.Context) error {
	return d.start(ctx, cmdStartLowPowerPeriodic, StateLowPowerPeriodic)
}

func (d *SCD4x) start(ctx context.Context, cmd command, next State) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	if _, err := d.transact(ctx, cmd); err != nil {
		return err
	}
	d.state = next
	d.singleShotPending = false
	return nil
}

// StopMeasurement stops periodic measurement and waits 500 ms for the sensor to settle.
// The wait applies even when the command could not be written; in that case the session
// keeps its measuring state.
func (d *SCD4x) StopMeasurement(ctx context.Context) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	if err := d.guard(cmdStopPeriodic); err != nil {
		return err
	}
	err := d.write(ctx, cmdStopPeriodic)
	d.delay.Delay(cmdStopPeriodic.delay)
	if err != nil {
		return err
	}
	d.state = StateIdle
	return nil
}

// GetDataReadyStatus returns the raw data ready word. Use DataReady to interpret it.
func (d *SCD4x) GetDataReadyStatus(ctx context.Context) (uint16, error) {
	return d.readWord(ctx, cmdGetDataReadyStatus)
}

// DataReady reports whether a data ready status word flags a pending measurement.
func DataReady(status uint16) bool {
	return status&dataReadyMask != 0
}

// ReadMeasurement returns the latest measurement. It checks the data ready flag first and
// returns ErrDataNotReady without reading when no new measurement is available. It is legal
// while measuring periodically or after a single shot command.
func (d *SCD4x) ReadMeasurement(ctx context.Context) (Reading, error) {
	if err := d.lock(); err != nil {
		return Reading{}, err
	}
	defer d.mx.Unlock()
	if err := d.guard(cmdReadMeasurement); err != nil {
		return Reading{}, err
	}
	if d.state == StateIdle && !d.singleShotPending {
		return Reading{}, fmt.Errorf("scd4x: %s: %w: no measurement started", cmdReadMeasurement.name, ErrInvalidState)
	}
	status, err := d.transact(ctx, cmdGetDataReadyStatus)
	if err != nil {
		return Reading{}, err
	}
	if !DataReady(status[0]) {
		return Reading{}, fmt.Errorf("scd4x: %s: %w", cmdReadMeasurement.name, ErrDataNotReady)
	}
	words, err := d.transact(ctx, cmdReadMeasurement)
	if err != nil {
		return Reading{}, err
	}
	d.singleShotPending = false
	r := newReading(words)
	d.logger.Debug("measurement", "co2", r.CO2, "temperature", r.Temperature, "humidity", r.Humidity)
	return r, nil
}

// MeasureSingleShot triggers one full measurement and blocks for the 5 s it takes. The
// result is fetched with ReadMeasurement. SCD41 only.
func (d *SCD4x) MeasureSingleShot(ctx context.Context) error {
	return d.singleShot(ctx, cmdMeasureSingleShot)
}

// MeasureSingleShotRHTOnly triggers a temperature and humidity only measurement (50 ms).
// The CO2 value of the following reading is zero. SCD41 only.
func (d *SCD4x) MeasureSingleShotRHTOnly(ctx context.Context) error {
	return d.singleShot(ctx, cmdMeasureSingleShotRHTOnly)
}

func (d *SCD4x) singleShot(ctx context.Context, cmd command) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	if _, err := d.transact(ctx, cmd); err != nil {
		return err
	}
	d.singleShotPending = true
	return nil
}

// PowerDown puts the sensor to sleep. SCD41 only.
func (d *SCD4x) PowerDown(ctx context.Context) error {
	_, err := d.do(ctx, cmdPowerDown)
	return err
}

// WakeUp wakes a powered down sensor. A sleeping sensor does not acknowledge the command,
// so write errors are logged and otherwise ignored. SCD41 only.
func (d *SCD4x) WakeUp(ctx context.Context) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	if err := d.guard(cmdWakeUp); err != nil {
		return err
	}
	if err := d.write(ctx, cmdWakeUp); err != nil {
		d.logger.Debug("wake up not acknowledged", "error", err)
	}
	d.delay.Delay(cmdWakeUp.delay)
	return nil
}
