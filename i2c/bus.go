package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/co2sensors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var _ co2sensors.Transport = &GenericBus{}

// GenericBus is a Transport over any I2C bus periph.io knows about (/dev/i2c-N on Linux,
// FT232H and friends). The bus is opened by Open, not by the constructor.
type GenericBus struct {
	mx    sync.Mutex
	dev   string
	speed physic.Frequency
	open  func(dev string) (i2c.BusCloser, error)
	bus   i2c.BusCloser
}

// NewGenericBus prepares a bus by its periph.io name ("" selects the first one, "1" is
// /dev/i2c-1). A speedHz of 0 keeps the bus default.
func NewGenericBus(dev string, speedHz int64) *GenericBus {
	return &GenericBus{
		dev:   dev,
		speed: physic.Frequency(speedHz) * physic.Hertz,
		open:  openHost,
	}
}

// NewGenericBusWith wraps an already opened bus, e.g. an i2ctest.Playback.
func NewGenericBusWith(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{
		dev: bus.String(),
		open: func(string) (i2c.BusCloser, error) {
			return bus, nil
		},
	}
}

func openHost(dev string) (i2c.BusCloser, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("periph driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return bus, nil
}

func (b *GenericBus) Open(ctx context.Context) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.bus != nil {
		return nil
	}
	bus, err := b.open(b.dev)
	if err != nil {
		return err
	}
	if b.speed > 0 {
		if err := bus.SetSpeed(b.speed); err != nil {
			_ = bus.Close()
			return fmt.Errorf("could not set i2c speed to %s: %w", b.speed, err)
		}
	}
	b.bus = bus
	return nil
}

// SetSpeed changes the clock of an open bus.
func (b *GenericBus) SetSpeed(hz int64) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.speed = physic.Frequency(hz) * physic.Hertz
	if b.bus == nil {
		return nil
	}
	return b.bus.SetSpeed(b.speed)
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	return b.tx(address, nil, buffer)
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	return b.tx(address, buffer, nil)
}

func (b *GenericBus) tx(address byte, w, r []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.bus == nil {
		return fmt.Errorf("i2c bus %q is not open", b.dev)
	}
	if err := b.bus.Tx(uint16(address), w, r); err != nil {
		op := "write to"
		if r != nil {
			op = "read from"
		}
		return fmt.Errorf("could not %s i2c bus %x: %w", op, address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.bus == nil {
		return nil
	}
	err := b.bus.Close()
	b.bus = nil
	return err
}

func (b *GenericBus) String() string {
	return "periph:" + b.dev
}
