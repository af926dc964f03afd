package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/co2sensors"
	"github.com/mklimuk/co2sensors/adapter"
	"github.com/mklimuk/co2sensors/cmd/co2/console"
	"github.com/mklimuk/co2sensors/config"
	"github.com/mklimuk/co2sensors/i2c"
	"github.com/mklimuk/co2sensors/scd4x"
	"github.com/mklimuk/co2sensors/snsctx"
)

// session is a bound sensor plus the transport it runs on.
type session struct {
	cfg    *config.Config
	bus    co2sensors.Transport
	sensor *scd4x.SCD4x
}

// loadConfig reads --config and applies the global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("adapter") {
		cfg.Bus.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Bus.Device = c.String("device")
	}
	if c.IsSet("bus") {
		cfg.Bus.Number = c.Int("bus")
	}
	if c.IsSet("variant") {
		cfg.Sensor.Variant = c.String("variant")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newTransport(cfg *config.Config, variant scd4x.Variant) (co2sensors.Transport, co2sensors.Delayer, error) {
	switch cfg.Bus.Adapter {
	case config.AdapterMCP2221:
		return adapter.NewMCP2221(adapter.WithSpeed(int(cfg.Bus.SpeedHz))), co2sensors.SleepDelay, nil
	case config.AdapterGeneric:
		return i2c.NewGenericBus(cfg.Bus.Device, cfg.Bus.SpeedHz), co2sensors.SleepDelay, nil
	case config.AdapterNanoPi:
		return i2c.NewNanoPiBus(cfg.Bus.Number), co2sensors.SleepDelay, nil
	case config.AdapterSim:
		sim := scd4x.NewSimulator()
		sim.Address = cfg.Bus.Address
		sim.Variant = variant
		return sim, co2sensors.DelayFunc(func(time.Duration) {}), nil
	}
	return nil, nil, fmt.Errorf("unknown adapter %q", cfg.Bus.Adapter)
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, console.Exit(console.ExitUsage, "config error: %s", console.Red(err))
	}
	variant, err := cfg.Variant()
	if err != nil {
		return nil, console.Fail("config error", err)
	}
	bus, delay, err := newTransport(cfg, variant)
	if err != nil {
		return nil, console.Exit(console.ExitUsage, "adapter initialization error: %s", console.Red(err))
	}
	ctx := commandContext(c)
	sensor := scd4x.NewSCD4x(scd4x.WithAddress(cfg.Bus.Address), scd4x.WithLogger(snsctx.Logger(ctx)))
	if err := sensor.Bind(ctx, variant, bus, delay); err != nil {
		return nil, console.Fail("adapter initialization error", err)
	}
	slog.Debug("session bound", "sensor", sensor.String(), "adapter", cfg.Bus.Adapter)
	return &session{cfg: cfg, bus: bus, sensor: sensor}, nil
}

// close stops a running measurement and unbinds. Failures are reported but do not change
// the command's result.
func (s *session) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if s.sensor.State().Measuring() {
		if err := s.sensor.StopMeasurement(ctx); err != nil {
			console.Warnf("could not stop measurement: %s", err)
		}
	}
	if err := s.sensor.Unbind(ctx); err != nil {
		console.Warnf("could not unbind sensor: %s", err)
	}
}

// release closes the transport without talking to the sensor, for a sensor that has just
// been powered down.
func (s *session) release() {
	if err := s.bus.Close(); err != nil {
		console.Warnf("could not close bus: %s", err)
	}
}

func commandContext(c *cli.Context) context.Context {
	return snsctx.SetVerbose(c.Context, c.Bool("verbose"))
}

// withSession runs fn on a bound sensor and unbinds afterwards.
func withSession(fn func(ctx context.Context, s *session, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		ctx := commandContext(c)
		defer s.close(ctx)
		return fn(ctx, s, c)
	}
}
