package environment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/co2sensors"
	"github.com/mklimuk/co2sensors/sensirion"
)

// SHTC3 I2C address (7-bit)
const SHTC3Address = 0x70

// Commands (Big Endian on the wire)
const (
	shtc3CmdWake  uint16 = 0x3517
	shtc3CmdSleep uint16 = 0xB098
	shtc3CmdID    uint16 = 0xEFC8

	// Normal power, clock stretching disabled
	// Measure T first, then RH
	shtc3CmdMeasureTFirstNoCS uint16 = 0x7866
)

const (
	shtc3WakeDelay    = 1 * time.Millisecond
	shtc3MeasureDelay = 15 * time.Millisecond
)

// SensorOpts configure the sensors that need a delay between request and reply.
type SensorOpts struct {
	Delay co2sensors.Delayer
}

type SensorOpt func(*SensorOpts)

// WithDelayer replaces the wall clock used between commands.
func WithDelayer(d co2sensors.Delayer) SensorOpt {
	return func(o *SensorOpts) {
		o.Delay = d
	}
}

// SHTC3 represents Sensirion SHTC3 Temperature/Humidity sensor. It uses the same word and
// checksum framing as the SCD4x and serves as the reference thermometer when calibrating
// the SCD4x temperature offset.
// Typical usage:
//
//	s := NewSHTC3(bus)
//	t, h, err := s.GetTempAndHum(ctx)
type SHTC3 struct {
	mx        sync.Mutex
	transport co2sensors.I2CBus
	delay     co2sensors.Delayer
}

func NewSHTC3(trans co2sensors.I2CBus, opts ...SensorOpt) *SHTC3 {
	config := SensorOpts{Delay: co2sensors.SleepDelay}
	for _, opt := range opts {
		opt(&config)
	}
	return &SHTC3{transport: trans, delay: config.Delay}
}

// GetTemperature performs a single measurement and returns temperature in Celsius.
func (s *SHTC3) GetTemperature(ctx context.Context) (float32, error) {
	t, _, err := s.GetTempAndHum(ctx)
	return t, err
}

// GetHumidity performs a single measurement and returns relative humidity in %RH.
func (s *SHTC3) GetHumidity(ctx context.Context) (float32, error) {
	_, h, err := s.GetTempAndHum(ctx)
	return h, err
}

// GetTempAndHum performs a single measurement and returns temperature and humidity.
func (s *SHTC3) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.wake(ctx); err != nil {
		return 0, 0, err
	}
	if err := s.writeCmd(ctx, shtc3CmdMeasureTFirstNoCS); err != nil {
		return 0, 0, fmt.Errorf("shtc3: measure command failed: %w", err)
	}
	// ~12.1 ms in normal mode
	s.delay.Delay(shtc3MeasureDelay)

	words, err := s.readWords(ctx, 2)
	if err != nil {
		return 0, 0, err
	}
	temp := sensirion.TemperatureFromTicks(words[0])
	hum := sensirion.HumidityFromTicks(words[1])

	if err := s.writeCmd(ctx, shtc3CmdSleep); err != nil {
		// Not fatal for reading, but report so caller knows
		return temp, hum, fmt.Errorf("shtc3: sleep failed: %w", err)
	}
	return temp, hum, nil
}

// GetID returns the product code register. Bits 11 and 5:0 identify the SHTC3.
func (s *SHTC3) GetID(ctx context.Context) (uint16, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.wake(ctx); err != nil {
		return 0, err
	}
	if err := s.writeCmd(ctx, shtc3CmdID); err != nil {
		return 0, fmt.Errorf("shtc3: id command failed: %w", err)
	}
	words, err := s.readWords(ctx, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

func (s *SHTC3) wake(ctx context.Context) error {
	if err := s.writeCmd(ctx, shtc3CmdWake); err != nil {
		return fmt.Errorf("shtc3: wake failed: %w", err)
	}
	s.delay.Delay(shtc3WakeDelay)
	return nil
}

func (s *SHTC3) readWords(ctx context.Context, n int) ([]uint16, error) {
	buf := make([]byte, n*sensirion.WordSize)
	if err := s.transport.ReadFromAddr(ctx, SHTC3Address, buf); err != nil {
		return nil, fmt.Errorf("shtc3: read failed: %w", err)
	}
	words, err := sensirion.DecodeWords(buf, n)
	if err != nil {
		return nil, fmt.Errorf("shtc3: %w", err)
	}
	return words, nil
}

func (s *SHTC3) writeCmd(ctx context.Context, cmd uint16) error {
	return s.transport.WriteToAddr(ctx, SHTC3Address, sensirion.EncodeWrite(cmd))
}
