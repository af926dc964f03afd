package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/co2sensors/cmd/co2/console"
	"github.com/mklimuk/co2sensors/environment"
	"github.com/mklimuk/co2sensors/scd4x"
)

var calibrateCmd = cli.Command{
	Name:  "calibrate",
	Usage: "forced recalibration and temperature offset calibration",
	Subcommands: cli.Commands{
		&calibrateFRCCmd,
		&calibrateTemperatureCmd,
	},
}

var calibrateFRCCmd = cli.Command{
	Name:  "frc",
	Usage: "correct the CO2 baseline to a known concentration",
	Flags: append([]cli.Flag{
		&cli.UintFlag{
			Name:     "reference",
			Usage:    "reference CO2 concentration in ppm",
			Required: true,
		},
		&cli.DurationFlag{
			Name:  "warmup",
			Value: 3 * time.Minute,
			Usage: "periodic measurement in the reference atmosphere before recalibrating; 0 skips it",
		},
	}, pollFlags...),
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		reference, err := wordFlag(c, "reference")
		if err != nil {
			return err
		}
		if warmup := c.Duration("warmup"); warmup > 0 {
			console.Infof("measuring for %s before recalibration", warmup)
			if err := measureFor(ctx, s.sensor, warmup, c.Duration("poll"), c.Int("attempts")); err != nil {
				return console.Fail("warm up error", err)
			}
		}
		frc, err := s.sensor.PerformForcedRecalibration(ctx, reference)
		if err != nil {
			return console.Fail("forced recalibration error", err)
		}
		correction, ok := scd4x.FRCCorrection(frc)
		if !ok {
			return console.Exit(console.ExitSensor, "forced recalibration %s", console.Red("failed"))
		}
		console.PInfof(console.PictoFinish, "baseline corrected by %s ppm", console.White(correction))
		return nil
	}),
}

var calibrateTemperatureCmd = cli.Command{
	Name:  "temperature",
	Usage: "set the temperature offset from a reference thermometer",
	Flags: append([]cli.Flag{
		&cli.Float64Flag{
			Name:  "reference",
			Usage: "reference temperature in °C",
		},
		&cli.StringFlag{
			Name:  "reference-sensor",
			Usage: "read the reference from a sensor on the same bus: shtc3, hih6021 or tc74",
		},
		&cli.IntFlag{
			Name:  "samples",
			Value: 3,
			Usage: "readings averaged before computing the offset",
		},
		persistFlag,
	}, pollFlags...),
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		var ref environment.Thermometer
		switch {
		case c.IsSet("reference"):
			ref = environment.FixedTemperature(float32(c.Float64("reference")))
		case c.IsSet("reference-sensor"):
			var err error
			ref, err = environment.ReferenceSensor(c.String("reference-sensor"), s.bus)
			if err != nil {
				return console.Exit(console.ExitUsage, "%s", err)
			}
		default:
			return console.Exit(console.ExitUsage, "either --reference or --reference-sensor is required")
		}
		cal := temperatureCalibration{
			samples:  c.Int("samples"),
			poll:     c.Duration("poll"),
			attempts: c.Int("attempts"),
		}
		offset, err := cal.run(ctx, s.sensor, ref)
		if err != nil {
			return console.Fail("temperature calibration error", err)
		}
		console.PInfof(console.PictoThermometer, " offset set to %s °C", console.White(fmt.Sprintf("%.2f", offset)))
		if c.Bool("persist") {
			if err := s.sensor.PersistSettings(ctx); err != nil {
				return console.Fail("error persisting settings", err)
			}
			console.Infof("settings persisted")
		}
		return nil
	}),
}

// measureFor runs a periodic measurement for d and stops it.
func measureFor(ctx context.Context, sensor *scd4x.SCD4x, d, poll time.Duration, attempts int) error {
	if err := sensor.StartPeriodicMeasurement(ctx); err != nil {
		return err
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		r, err := waitForMeasurement(ctx, sensor, poll, attempts)
		if err != nil {
			_ = sensor.StopMeasurement(context.WithoutCancel(ctx))
			return err
		}
		printReading(r)
	}
	return sensor.StopMeasurement(ctx)
}

type temperatureCalibration struct {
	samples  int
	poll     time.Duration
	attempts int
}

// run averages the sensor temperature over a periodic measurement, compares it with the
// reference and writes the resulting offset. It returns the offset written.
func (t temperatureCalibration) run(ctx context.Context, sensor *scd4x.SCD4x, ref environment.Thermometer) (float64, error) {
	if t.samples < 1 {
		t.samples = 1
	}
	current, err := sensor.GetTemperatureOffset(ctx)
	if err != nil {
		return 0, err
	}
	if err := sensor.StartPeriodicMeasurement(ctx); err != nil {
		return 0, err
	}
	var sum float32
	for i := 0; i < t.samples; i++ {
		r, err := waitForMeasurement(ctx, sensor, t.poll, t.attempts)
		if err != nil {
			_ = sensor.StopMeasurement(context.WithoutCancel(ctx))
			return 0, err
		}
		sum += r.Temperature
	}
	if err := sensor.StopMeasurement(ctx); err != nil {
		return 0, err
	}
	reference, err := ref.GetTemperature(ctx)
	if err != nil {
		return 0, fmt.Errorf("reference temperature: %w", err)
	}
	offset := scd4x.OffsetForReference(sum/float32(t.samples), reference, current)
	if err := sensor.SetTemperatureOffset(ctx, offset); err != nil {
		return 0, err
	}
	return offset, nil
}
