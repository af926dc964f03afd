package main

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/co2sensors/cmd/co2/console"
	"github.com/mklimuk/co2sensors/scd4x"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "read and write the sensor settings",
	Subcommands: cli.Commands{
		&configGetCmd,
		&configSetCmd,
		&configApplyCmd,
		&registerCmd,
	},
}

var persistFlag = &cli.BoolFlag{
	Name:  "persist",
	Usage: "store the settings in EEPROM afterwards",
}

var yesFlag = &cli.BoolFlag{
	Name:    "yes",
	Aliases: []string{"y"},
	Usage:   "do not ask for confirmation",
}

var configGetCmd = cli.Command{
	Name:  "get",
	Usage: "print the sensor settings as YAML",
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		settings, err := s.sensor.ReadSettings(ctx)
		if err != nil {
			return console.Fail("error reading settings", err)
		}
		return printYAML(settings)
	}),
}

var configSetCmd = cli.Command{
	Name:  "set",
	Usage: "change individual settings",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "temperature-offset", Usage: "temperature offset in °C"},
		&cli.Float64Flag{Name: "altitude", Usage: "sensor altitude in m"},
		&cli.Float64Flag{Name: "pressure", Usage: "ambient pressure in Pa"},
		&cli.BoolFlag{Name: "asc", Usage: "automatic self calibration"},
		&cli.UintFlag{Name: "asc-target", Usage: "automatic self calibration target in ppm"},
		&cli.UintFlag{Name: "asc-initial-period", Usage: "initial self calibration period in hours (SCD41)"},
		&cli.UintFlag{Name: "asc-standard-period", Usage: "standard self calibration period in hours (SCD41)"},
		persistFlag,
	},
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		settings, err := settingsFromFlags(c)
		if err != nil {
			return err
		}
		return applySettings(ctx, s, settings, c.Bool("persist"))
	}),
}

var configApplyCmd = cli.Command{
	Name:  "apply",
	Usage: "write the settings profile of the config file",
	Flags: []cli.Flag{persistFlag},
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		if s.cfg.Settings == nil {
			return console.Exit(console.ExitUsage, "config has no settings section")
		}
		return applySettings(ctx, s, s.cfg.Settings, c.Bool("persist"))
	}),
}

func settingsFromFlags(c *cli.Context) (*scd4x.Settings, error) {
	var s scd4x.Settings
	if c.IsSet("temperature-offset") {
		s.TemperatureOffset = ptr(c.Float64("temperature-offset"))
	}
	if c.IsSet("altitude") {
		s.SensorAltitude = ptr(c.Float64("altitude"))
	}
	if c.IsSet("pressure") {
		s.AmbientPressure = ptr(c.Float64("pressure"))
	}
	if c.IsSet("asc") {
		s.AutomaticSelfCalibration = ptr(c.Bool("asc"))
	}
	if c.IsSet("asc-target") {
		v, err := wordFlag(c, "asc-target")
		if err != nil {
			return nil, err
		}
		s.ASCTarget = &v
	}
	if c.IsSet("asc-initial-period") {
		v, err := wordFlag(c, "asc-initial-period")
		if err != nil {
			return nil, err
		}
		s.ASCInitialPeriod = &v
	}
	if c.IsSet("asc-standard-period") {
		v, err := wordFlag(c, "asc-standard-period")
		if err != nil {
			return nil, err
		}
		s.ASCStandardPeriod = &v
	}
	return &s, nil
}

// wordFlag reads a uint flag that is sent to the sensor as a single 16-bit word.
func wordFlag(c *cli.Context, name string) (uint16, error) {
	return checkWord(name, c.Uint(name))
}

func checkWord(name string, v uint) (uint16, error) {
	if v > math.MaxUint16 {
		return 0, console.Exit(console.ExitUsage, "--%s %d exceeds %d", name, v, math.MaxUint16)
	}
	return uint16(v), nil
}

func applySettings(ctx context.Context, s *session, settings *scd4x.Settings, persist bool) error {
	if err := s.sensor.ApplySettings(ctx, settings); err != nil {
		return console.Fail("error applying settings", err)
	}
	console.Infof("settings applied")
	if persist {
		if err := s.sensor.PersistSettings(ctx); err != nil {
			return console.Fail("error persisting settings", err)
		}
		console.Infof("settings persisted")
	}
	return nil
}

var registerCmd = cli.Command{
	Name:        "register",
	Usage:       "raw access to a command word",
	ArgsUsage:   "<code> [value]",
	Description: "a lone code reads one word; a value is sent as the argument word, --no-arg sends none",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "delay", Value: time.Millisecond, Usage: "minimum execution time of the command"},
		&cli.BoolFlag{Name: "no-arg", Usage: "send the command without an argument word"},
	},
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		if c.NArg() < 1 {
			return console.Exit(console.ExitUsage, "missing command code")
		}
		code, err := strconv.ParseUint(c.Args().Get(0), 0, 16)
		if err != nil {
			return console.Exit(console.ExitUsage, "invalid command code: %s", console.Red(err))
		}
		if c.Bool("no-arg") {
			if err := s.sensor.SetRegister(ctx, uint16(code), c.Duration("delay")); err != nil {
				return console.Fail("register write error", err)
			}
			return nil
		}
		if c.NArg() == 1 {
			v, err := s.sensor.GetRegister(ctx, uint16(code), c.Duration("delay"))
			if err != nil {
				return console.Fail("register read error", err)
			}
			console.Printf("%#04x: %#04x (%d)\n", code, v, v)
			return nil
		}
		value, err := strconv.ParseUint(c.Args().Get(1), 0, 16)
		if err != nil {
			return console.Exit(console.ExitUsage, "invalid value: %s", console.Red(err))
		}
		if err := s.sensor.SetRegister(ctx, uint16(code), c.Duration("delay"), uint16(value)); err != nil {
			return console.Fail("register write error", err)
		}
		return nil
	}),
}

var persistCmd = cli.Command{
	Name:  "persist",
	Usage: "store the current settings in EEPROM",
	Flags: []cli.Flag{yesFlag},
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		ok, err := console.Confirm("EEPROM endures about 2000 writes; persist settings?", c.Bool("yes"))
		if err != nil || !ok {
			return err
		}
		if err := s.sensor.PersistSettings(ctx); err != nil {
			return console.Fail("error persisting settings", err)
		}
		console.Infof("settings persisted")
		return nil
	}),
}

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "reload settings from EEPROM, or erase them with --factory",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "factory", Usage: "erase settings and calibration history"},
		yesFlag,
	},
	Action: withSession(func(ctx context.Context, s *session, c *cli.Context) error {
		if !c.Bool("factory") {
			if err := s.sensor.Reinit(ctx); err != nil {
				return console.Fail("reinit error", err)
			}
			console.Infof("settings reloaded")
			return nil
		}
		ok, err := console.Confirm("erase all settings and calibration history?", c.Bool("yes"))
		if err != nil || !ok {
			return err
		}
		if err := s.sensor.PerformFactoryReset(ctx); err != nil {
			return console.Fail("factory reset error", err)
		}
		console.Infof("factory reset done")
		return nil
	}),
}

func ptr[T any](v T) *T {
	return &v
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(console.Writer())
	if err := enc.Encode(v); err != nil {
		return console.Exit(console.ExitError, "encoding error: %s", console.Red(err))
	}
	if err := enc.Close(); err != nil {
		return console.Exit(console.ExitError, "encoding error: %s", console.Red(err))
	}
	return nil
}
