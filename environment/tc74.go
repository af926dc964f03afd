package environment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/co2sensors"
)

const TC74Address = 0x4D

const (
	tc74TempRegister   = 0x00
	tc74ConfigRegister = 0x01
	tc74DataReady      = 0x40
)

var ErrNotReady = errors.New("no conversion completed yet")

type TC74Opts struct {
	Address byte
}

type TC74Opt func(*TC74Opts)

// WithTC74Address selects one of the TC74A0-A7 address options.
func WithTC74Address(address byte) TC74Opt {
	return func(c *TC74Opts) {
		c.Address = address
	}
}

// TC74 is a Microchip TC74 digital thermometer with a 1 °C resolution.
// See: https://ww1.microchip.com/downloads/en/DeviceDoc/21462D.pdf
type TC74 struct {
	mx        sync.Mutex
	transport co2sensors.I2CBus
	address   byte
}

func NewTC74(trans co2sensors.I2CBus, opts ...TC74Opt) *TC74 {
	config := TC74Opts{Address: TC74Address}
	for _, opt := range opts {
		opt(&config)
	}
	return &TC74{transport: trans, address: config.Address}
}

// GetTemperature reads the temperature register once the first conversion after power up
// has completed. Before that it returns ErrNotReady.
func (s *TC74) GetTemperature(ctx context.Context) (float32, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	config, err := s.register(ctx, tc74ConfigRegister)
	if err != nil {
		return 0, err
	}
	if config&tc74DataReady == 0 {
		return 0, fmt.Errorf("tc74: %w", ErrNotReady)
	}
	temp, err := s.register(ctx, tc74TempRegister)
	if err != nil {
		return 0, err
	}
	return float32(int8(temp)), nil
}

func (s *TC74) register(ctx context.Context, reg byte) (byte, error) {
	if err := s.transport.WriteToAddr(ctx, s.address, []byte{reg}); err != nil {
		return 0, fmt.Errorf("tc74: could not select register %d: %w", reg, err)
	}
	resp := make([]byte, 1)
	if err := s.transport.ReadFromAddr(ctx, s.address, resp); err != nil {
		return 0, fmt.Errorf("tc74: could not read register %d: %w", reg, err)
	}
	return resp[0], nil
}
