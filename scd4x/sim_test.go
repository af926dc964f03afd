package scd4x

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/co2sensors/sensirion"
)

func TestSimulator_PeriodicMeasurement(t *testing.T) {
	sim := NewSimulator()
	sim.NotReadyPolls = 2
	sim.Behavior = ConstantMeasurement(800, 20000, 30000)
	d, _ := newSimSession(t, sim)
	ctx := context.Background()

	require.NoError(t, d.StartPeriodicMeasurement(ctx))
	assert.True(t, sim.Measuring())
	for range 2 {
		_, err := d.ReadMeasurement(ctx)
		require.ErrorIs(t, err, ErrDataNotReady)
	}
	r, err := d.ReadMeasurement(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(800), r.CO2)
	assert.InDelta(t, 8.41, r.Temperature, 0.01)

	require.NoError(t, d.StopMeasurement(ctx))
	assert.False(t, sim.Measuring())
	require.NoError(t, d.Unbind(ctx))
}

func TestSimulator_SingleShot(t *testing.T) {
	sim := NewSimulator()
	d, delay := newSimSession(t, sim)
	ctx := context.Background()

	require.NoError(t, d.MeasureSingleShot(ctx))
	assert.Equal(t, 5*time.Second, delay.Last())
	assert.Equal(t, StateIdle, d.State())
	r, err := d.ReadMeasurement(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(600), r.CO2)

	_, err = d.ReadMeasurement(ctx)
	assert.ErrorIs(t, err, ErrInvalidState, "the single shot result is consumed")

	require.NoError(t, d.MeasureSingleShotRHTOnly(ctx))
	assert.Equal(t, 50*time.Millisecond, delay.Last())
	_, err = d.ReadMeasurement(ctx)
	require.NoError(t, err)
}

func TestSimulator_Settings(t *testing.T) {
	sim := NewSimulator()
	d, delay := newSimSession(t, sim)
	ctx := context.Background()

	require.NoError(t, d.SetTemperatureOffset(ctx, 5.4))
	require.NoError(t, d.SetSensorAltitude(ctx, 320.7))
	require.NoError(t, d.SetAmbientPressure(ctx, 98765))
	require.NoError(t, d.SetAutomaticSelfCalibration(ctx, false))
	require.NoError(t, d.SetAutomaticSelfCalibrationTarget(ctx, 420))
	require.NoError(t, d.SetAutomaticSelfCalibrationInitialPeriod(ctx, 48))
	require.NoError(t, d.SetAutomaticSelfCalibrationStandardPeriod(ctx, 168))
	assert.Equal(t, sensirion.EncodeWrite(0x241D, 2022), sim.Frames()[0])
	assert.Equal(t, time.Millisecond, delay.Last())

	offset, err := d.GetTemperatureOffset(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 5.4, offset, 0.003)
	altitude, err := d.GetSensorAltitude(ctx)
	require.NoError(t, err)
	assert.Equal(t, 320.0, altitude)
	pressure, err := d.GetAmbientPressure(ctx)
	require.NoError(t, err)
	assert.Equal(t, 98700.0, pressure)
	asc, err := d.GetAutomaticSelfCalibration(ctx)
	require.NoError(t, err)
	assert.False(t, asc)
	target, err := d.GetAutomaticSelfCalibrationTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(420), target)
	initial, err := d.GetAutomaticSelfCalibrationInitialPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(48), initial)
	standard, err := d.GetAutomaticSelfCalibrationStandardPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(168), standard)

	require.NoError(t, d.PersistSettings(ctx))
	assert.Equal(t, 800*time.Millisecond, delay.Last())
	require.NoError(t, d.PerformFactoryReset(ctx))
	assert.Equal(t, 1200*time.Millisecond, delay.Last())
	require.NoError(t, d.Reinit(ctx))
	assert.Equal(t, 30*time.Millisecond, delay.Last())
	target, err = d.GetAutomaticSelfCalibrationTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(400), target, "factory reset restores defaults")
}

func TestSimulator_ReadApplySettings(t *testing.T) {
	sim := NewSimulator()
	d, _ := newSimSession(t, sim)
	ctx := context.Background()

	s, err := d.ReadSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, s.ASCInitialPeriod)
	assert.Equal(t, uint16(44), *s.ASCInitialPeriod)
	assert.InDelta(t, 4.0, *s.TemperatureOffset, 0.003)
	assert.Equal(t, 101300.0, *s.AmbientPressure)
	assert.True(t, *s.AutomaticSelfCalibration)

	before := len(sim.Frames())
	err = d.ApplySettings(ctx, &Settings{
		TemperatureOffset: ptr(2.0),
		ASCStandardPeriod: ptr(uint16(150)),
	})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Len(t, sim.Frames(), before, "invalid profile writes nothing")

	require.NoError(t, d.ApplySettings(ctx, &Settings{
		TemperatureOffset:        ptr(2.0),
		SensorAltitude:           ptr(540.0),
		AutomaticSelfCalibration: ptr(false),
		ASCStandardPeriod:        ptr(uint16(152)),
	}))
	s, err = d.ReadSettings(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, *s.TemperatureOffset, 0.003)
	assert.Equal(t, 540.0, *s.SensorAltitude)
	assert.False(t, *s.AutomaticSelfCalibration)
	assert.Equal(t, uint16(152), *s.ASCStandardPeriod)
}

func TestSimulator_SettingsOnSCD40(t *testing.T) {
	sim := NewSimulator()
	sim.Variant = SCD40
	d, _ := newSimSession(t, sim)
	ctx := context.Background()

	s, err := d.ReadSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, s.ASCInitialPeriod)
	assert.Nil(t, s.ASCStandardPeriod)
	assert.NotNil(t, s.ASCTarget)

	err = d.ApplySettings(ctx, &Settings{ASCInitialPeriod: ptr(uint16(48))})
	assert.ErrorIs(t, err, ErrUnsupportedOnVariant)
}

func TestSimulator_Identity(t *testing.T) {
	sim := NewSimulator()
	d, delay := newSimSession(t, sim)
	ctx := context.Background()

	serial, err := d.GetSerialNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xBEEF0001A4C3), serial)

	v, err := d.GetSensorVariant(ctx)
	require.NoError(t, err)
	assert.Equal(t, SCD41, v)

	require.NoError(t, d.PerformSelfTest(ctx))
	assert.Equal(t, 10*time.Second, delay.Last())
	sim.SelfTestResult = 0x0001
	assert.ErrorIs(t, d.PerformSelfTest(ctx), ErrSelfTest)

	sim.Variant = SCD40
	v, err = d.GetSensorVariant(ctx)
	require.NoError(t, err)
	assert.Equal(t, SCD40, v)
}

func TestSimulator_ForcedRecalibration(t *testing.T) {
	sim := NewSimulator()
	sim.FRC = func(reference uint16) uint16 { return 0x8000 + reference - 380 }
	d, _ := newSimSession(t, sim)

	frc, err := d.PerformForcedRecalibration(context.Background(), 400)
	require.NoError(t, err)
	correction, ok := FRCCorrection(frc)
	assert.True(t, ok)
	assert.Equal(t, 20, correction)
	assert.Equal(t, sensirion.EncodeWrite(0x362F, 400), sim.Frames()[0])
}

func TestSimulator_PowerCycle(t *testing.T) {
	sim := NewSimulator()
	d, _ := newSimSession(t, sim)
	ctx := context.Background()

	require.NoError(t, d.PowerDown(ctx))
	_, err := d.GetSerialNumber(ctx)
	assert.ErrorIs(t, err, ErrTransport, "asleep sensor does not answer")
	require.NoError(t, d.WakeUp(ctx))
	_, err = d.GetSerialNumber(ctx)
	assert.NoError(t, err)
}

func TestSimulator_RawRegister(t *testing.T) {
	sim := NewSimulator()
	d, delay := newSimSession(t, sim)
	ctx := context.Background()

	require.NoError(t, d.SetRegister(ctx, 0x2427, 2*time.Millisecond, 250))
	assert.Equal(t, 2*time.Millisecond, delay.Last())
	w, err := d.GetRegister(ctx, 0x2322, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint16(250), w)
}

func TestSimulator_Faults(t *testing.T) {
	sim := NewSimulator()
	d, _ := newSimSession(t, sim)
	ctx := context.Background()

	sim.ReadErr = errors.New("arbitration lost")
	_, err := d.GetSerialNumber(ctx)
	require.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "arbitration lost")

	sim.ReadErr = nil
	sim.WriteErr = errors.New("nack")
	assert.ErrorIs(t, d.SetSensorAltitude(ctx, 10), ErrTransport)
}

func TestSimulator_Closed(t *testing.T) {
	sim := NewSimulator()
	assert.ErrorIs(t, sim.WriteToAddr(context.Background(), DefaultAddress, []byte{0x21, 0xB1}), ErrSimulatorClosed)
}
