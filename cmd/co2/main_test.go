package main

import (
	"context"
	"errors"
	"flag"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/co2sensors"
	"github.com/mklimuk/co2sensors/adapter"
	"github.com/mklimuk/co2sensors/cmd/co2/console"
	"github.com/mklimuk/co2sensors/config"
	"github.com/mklimuk/co2sensors/environment"
	"github.com/mklimuk/co2sensors/i2c"
	"github.com/mklimuk/co2sensors/scd4x"
)

var noDelay = co2sensors.DelayFunc(func(time.Duration) {})

func newSimSensor(t *testing.T, sim *scd4x.Simulator) *scd4x.SCD4x {
	t.Helper()
	d := scd4x.NewSCD4x()
	require.NoError(t, d.Bind(context.Background(), sim.Variant, sim, noDelay))
	return d
}

func TestNewTransport(t *testing.T) {
	cfg := config.Default()
	tr, _, err := newTransport(cfg, scd4x.SCD41)
	require.NoError(t, err)
	assert.IsType(t, &adapter.MCP2221{}, tr)

	cfg.Bus.Adapter = config.AdapterGeneric
	tr, _, err = newTransport(cfg, scd4x.SCD41)
	require.NoError(t, err)
	assert.IsType(t, &i2c.GenericBus{}, tr)

	cfg.Bus.Adapter = config.AdapterSim
	tr, _, err = newTransport(cfg, scd4x.SCD40)
	require.NoError(t, err)
	sim, ok := tr.(*scd4x.Simulator)
	require.True(t, ok)
	assert.Equal(t, scd4x.SCD40, sim.Variant)

	cfg.Bus.Adapter = "ftdi"
	_, _, err = newTransport(cfg, scd4x.SCD41)
	assert.Error(t, err)
}

func TestWaitForMeasurement(t *testing.T) {
	sim := scd4x.NewSimulator()
	sim.NotReadyPolls = 2
	sim.Behavior = scd4x.ConstantMeasurement(812, 25090, 29491)
	d := newSimSensor(t, sim)
	ctx := context.Background()
	require.NoError(t, d.StartPeriodicMeasurement(ctx))

	_, err := waitForMeasurement(ctx, d, time.Millisecond, 2)
	assert.ErrorIs(t, err, scd4x.ErrDataNotReady)

	r, err := waitForMeasurement(ctx, d, time.Millisecond, 5)
	require.NoError(t, err)
	assert.Equal(t, uint16(812), r.CO2)
}

func TestWaitForMeasurement_Canceled(t *testing.T) {
	sim := scd4x.NewSimulator()
	sim.NotReadyPolls = 100
	d := newSimSensor(t, sim)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.StartPeriodicMeasurement(ctx))
	cancel()

	_, err := waitForMeasurement(ctx, d, time.Hour, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTemperatureCalibration(t *testing.T) {
	sim := scd4x.NewSimulator()
	sim.Behavior = scd4x.ConstantMeasurement(600, 25090, 29491)
	d := newSimSensor(t, sim)
	ctx := context.Background()

	cal := temperatureCalibration{samples: 2, poll: time.Millisecond, attempts: 3}
	offset, err := cal.run(ctx, d, environment.FixedTemperature(20))
	require.NoError(t, err)
	// 22.0 °C measured with the default 4 °C offset against a 20 °C reference
	assert.InDelta(t, 6.0, offset, 0.01)
	assert.Equal(t, scd4x.StateIdle, d.State())
	assert.False(t, sim.Measuring())

	got, err := d.GetTemperatureOffset(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, got, 0.01)
}

func TestMeasureFor(t *testing.T) {
	sim := scd4x.NewSimulator()
	d := newSimSensor(t, sim)
	ctx := context.Background()

	require.NoError(t, measureFor(ctx, d, 0, time.Millisecond, 3))
	assert.Equal(t, scd4x.StateIdle, d.State())

	frc, err := d.PerformForcedRecalibration(ctx, 400)
	require.NoError(t, err)
	correction, ok := scd4x.FRCCorrection(frc)
	assert.True(t, ok)
	assert.Equal(t, 0, correction)
}

func TestSerialString(t *testing.T) {
	assert.Equal(t, "beef-0001-a4c3", serialString(0xBEEF_0001_A4C3))
}

func TestCheckWord(t *testing.T) {
	v, err := checkWord("reference", 400)
	require.NoError(t, err)
	assert.Equal(t, uint16(400), v)

	v, err = checkWord("asc-target", math.MaxUint16)
	require.NoError(t, err)
	assert.Equal(t, uint16(math.MaxUint16), v)

	_, err = checkWord("asc-target", math.MaxUint16+5)
	var exerr cli.ExitCoder
	require.True(t, errors.As(err, &exerr))
	assert.Equal(t, console.ExitUsage, exerr.ExitCode())
	assert.ErrorContains(t, err, "--asc-target 65540 exceeds 65535")
}

func TestWordFlag(t *testing.T) {
	set := flag.NewFlagSet("frc", flag.ContinueOnError)
	set.Uint("reference", 0, "")
	require.NoError(t, set.Parse([]string{"--reference", "65936"}))
	c := cli.NewContext(cli.NewApp(), set, nil)

	_, err := wordFlag(c, "reference")
	var exerr cli.ExitCoder
	require.True(t, errors.As(err, &exerr))
	assert.Equal(t, console.ExitUsage, exerr.ExitCode())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(assert.AnError))
	assert.Equal(t, console.ExitTransport, exitCode(console.Exit(console.ExitTransport, "bus gone")))
	assert.Equal(t, console.ExitSensor, exitCode(console.Fail("self test", scd4x.ErrSelfTest)))
}
