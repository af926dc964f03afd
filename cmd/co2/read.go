package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/co2sensors/cmd/co2/console"
	"github.com/mklimuk/co2sensors/scd4x"
)

var pollFlags = []cli.Flag{
	&cli.DurationFlag{
		Name:  "poll",
		Value: time.Second,
		Usage: "data ready poll interval",
	},
	&cli.IntFlag{
		Name:  "attempts",
		Value: 60,
		Usage: "data ready polls before giving up",
	},
}

var readCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "start a periodic measurement and print readings",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "low-power",
			Usage: "use the 30 s low power periodic mode",
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Value:   1,
			Usage:   "number of readings, 0 reads until interrupted",
		},
	}, pollFlags...),
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		start := s.sensor.StartPeriodicMeasurement
		if c.Bool("low-power") {
			start = s.sensor.StartLowPowerPeriodicMeasurement
		}
		if err := start(ctx); err != nil {
			return console.Fail("could not start measurement", err)
		}
		count := c.Int("count")
		for i := 0; count == 0 || i < count; i++ {
			r, err := waitForMeasurement(ctx, s.sensor, c.Duration("poll"), c.Int("attempts"))
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return console.Fail("error reading measurement", err)
			}
			printReading(r)
		}
		return nil
	}),
}

var singleShotCmd = cli.Command{
	Name:  "single-shot",
	Usage: "run one on-demand measurement (SCD41)",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "rht-only",
			Usage: "measure temperature and humidity only",
		},
	}, pollFlags...),
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		measure := s.sensor.MeasureSingleShot
		if c.Bool("rht-only") {
			measure = s.sensor.MeasureSingleShotRHTOnly
		}
		if err := measure(ctx); err != nil {
			return console.Fail("single shot error", err)
		}
		r, err := waitForMeasurement(ctx, s.sensor, c.Duration("poll"), c.Int("attempts"))
		if err != nil {
			return console.Fail("error reading measurement", err)
		}
		printReading(r)
		return nil
	}),
}

func printReading(r scd4x.Reading) {
	if r.CO2 != 0 {
		console.PInfof(console.PictoLeaf, "%s ppm", console.CO2(r.CO2))
	}
	console.PInfof(console.PictoThermometer, " %s °C", console.White(fmt.Sprintf("%.2f", r.Temperature)))
	console.PInfof(console.PictoHumidity, "%s %%RH", console.White(fmt.Sprintf("%.2f", r.Humidity)))
}
