package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/co2sensors/cmd/co2/console"
	"github.com/mklimuk/co2sensors/scd4x"
)

var infoCmd = cli.Command{
	Name:  "info",
	Usage: "print the sensor family description",
	Action: func(c *cli.Context) error {
		var d *scd4x.SCD4x
		console.Printf("%s\n", d.Info())
		return nil
	},
}

var serialCmd = cli.Command{
	Name:  "serial",
	Usage: "print the 48-bit serial number",
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		serial, err := s.sensor.GetSerialNumber(ctx)
		if err != nil {
			return console.Fail("error reading serial number", err)
		}
		console.PInfof(console.PictoKey, "%s", console.White(serialString(serial)))
		return nil
	}),
}

var variantCmd = cli.Command{
	Name:  "variant",
	Usage: "ask the sensor which model it is",
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		v, err := s.sensor.GetSensorVariant(ctx)
		if err != nil {
			return console.Fail("error reading variant", err)
		}
		console.PInfof(console.PictoPin, "%s", console.White(v))
		if v != s.sensor.Variant() {
			console.Warnf("session is bound as %s; pass --variant %s", s.sensor.Variant(), v)
		}
		return nil
	}),
}

var selfTestCmd = cli.Command{
	Name:  "self-test",
	Usage: "run the 10 s on-chip self test",
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		console.Infof("running self test")
		err := s.sensor.PerformSelfTest(ctx)
		if errors.Is(err, scd4x.ErrSelfTest) {
			console.PInfof(console.PictoStop, "%s", console.Red("malfunction detected"))
			return console.Fail("self test failed", err)
		}
		if err != nil {
			return console.Fail("self test error", err)
		}
		console.PInfof(console.PictoFinish, "%s", console.Green("ok"))
		return nil
	}),
}

func serialString(serial uint64) string {
	return fmt.Sprintf("%04x-%04x-%04x", uint16(serial>>32), uint16(serial>>16), uint16(serial))
}
