package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/co2sensors/cmd/co2/console"
)

var powerCmd = cli.Command{
	Name:  "power",
	Usage: "sensor power management (SCD41)",
	Subcommands: cli.Commands{
		&powerDownCmd,
		&powerWakeCmd,
	},
}

var powerDownCmd = cli.Command{
	Name:  "down",
	Usage: "put the sensor to sleep",
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		ctx := commandContext(c)
		if err := s.sensor.PowerDown(ctx); err != nil {
			s.close(ctx)
			return console.Fail("power down error", err)
		}
		// a sleeping sensor does not acknowledge the stop command sent on unbind
		s.release()
		console.PInfof(console.PictoSleep, "sensor asleep")
		return nil
	},
}

var powerWakeCmd = cli.Command{
	Name:  "wake",
	Usage: "wake a sleeping sensor",
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		if err := s.sensor.WakeUp(ctx); err != nil {
			return console.Fail("wake up error", err)
		}
		console.Infof("sensor awake")
		return nil
	}),
}
