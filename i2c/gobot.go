package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/co2sensors"
	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
)

var _ co2sensors.Transport = &GobotBus{}

// Adaptor is the part of a gobot platform adaptor the bus needs.
type Adaptor interface {
	i2c.Connector
	Connect() error
	Finalize() error
}

// GobotBus is a Transport over a gobot i2c adaptor. One generic driver is started per
// device address on first use.
type GobotBus struct {
	mx        sync.Mutex
	adaptor   Adaptor
	bus       int
	connected bool
	drivers   map[byte]*i2c.GenericDriver
}

func NewGobotBus(adaptor Adaptor, bus int) *GobotBus {
	return &GobotBus{
		adaptor: adaptor,
		bus:     bus,
		drivers: make(map[byte]*i2c.GenericDriver),
	}
}

// NewNanoPiBus uses the i2c bus adaptor of a FriendlyELEC NanoPi NEO.
func NewNanoPiBus(bus int) *GobotBus {
	npi := nanopi.NewNeoAdaptor()
	return NewGobotBus(npi.I2cBusAdaptor, bus)
}

func (b *GobotBus) Open(ctx context.Context) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.connected {
		return nil
	}
	if err := b.adaptor.Connect(); err != nil {
		return fmt.Errorf("adaptor connect error: %w", err)
	}
	b.connected = true
	return nil
}

func (b *GobotBus) driver(address byte) (*i2c.GenericDriver, error) {
	if !b.connected {
		return nil, fmt.Errorf("gobot i2c bus %d is not open", b.bus)
	}
	if d, ok := b.drivers[address]; ok {
		return d, nil
	}
	d := i2c.NewGenericDriver(b.adaptor, fmt.Sprintf("dev-%#02x", address), int(address), func(c i2c.Config) {
		c.SetBus(b.bus)
	})
	if err := d.Start(); err != nil {
		return nil, fmt.Errorf("start error at %#02x: %w", address, err)
	}
	b.drivers[address] = d
	return d, nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	if err := d.Read(buffer); err != nil {
		return fmt.Errorf("read error at %#02x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	if err := d.Write(buffer); err != nil {
		return fmt.Errorf("write error at %#02x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

// Close halts every started driver and finalizes the adaptor.
func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if !b.connected {
		return nil
	}
	var errs []error
	for addr, d := range b.drivers {
		if err := d.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt error at %#02x: %w", addr, err))
		}
		delete(b.drivers, addr)
	}
	if err := b.adaptor.Finalize(); err != nil {
		errs = append(errs, err)
	}
	b.connected = false
	return errors.Join(errs...)
}

func (b *GobotBus) String() string {
	return fmt.Sprintf("gobot:i2c-%d", b.bus)
}
