package environment

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/co2sensors"
)

const HIH6021Address = 0x27

// measurement cycle takes typically 36.65ms
const hih6021MeasureDelay = 50 * time.Millisecond

var hihDivider = float32(1<<14 - 2)

var ErrStaleData = errors.New("stale data")
var ErrCommandMode = errors.New("device in command mode")

// HIH6021 is a Honeywell HumidIcon digital humidity and temperature sensor. It has no
// commands: an empty write starts a measurement and a 4 byte read fetches it.
type HIH6021 struct {
	mx        sync.Mutex
	transport co2sensors.I2CBus
	delay     co2sensors.Delayer
}

func NewHIH6021(trans co2sensors.I2CBus, opts ...SensorOpt) *HIH6021 {
	config := SensorOpts{Delay: co2sensors.SleepDelay}
	for _, opt := range opts {
		opt(&config)
	}
	return &HIH6021{transport: trans, delay: config.Delay}
}

func (s *HIH6021) GetTemperature(ctx context.Context) (float32, error) {
	t, _, err := s.GetTempAndHum(ctx)
	return t, err
}

func (s *HIH6021) GetHumidity(ctx context.Context) (float32, error) {
	_, h, err := s.GetTempAndHum(ctx)
	return h, err
}

func (s *HIH6021) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.transport.WriteToAddr(ctx, HIH6021Address, []byte{}); err != nil {
		return 0, 0, fmt.Errorf("hih6021: could not request measurement: %w", err)
	}
	s.delay.Delay(hih6021MeasureDelay)
	resp := make([]byte, 4)
	if err := s.transport.ReadFromAddr(ctx, HIH6021Address, resp); err != nil {
		return 0, 0, fmt.Errorf("hih6021: could not read measurement: %w", err)
	}
	switch {
	case resp[0]&0x80 > 0:
		return 0, 0, fmt.Errorf("hih6021: %w", ErrCommandMode)
	case resp[0]&0x40 > 0:
		// already fetched, or fetched before the measurement cycle completed
		return 0, 0, fmt.Errorf("hih6021: %w", ErrStaleData)
	}
	return hihTemperature(resp[2:4]), hihHumidity(resp[0:2]), nil
}

func hihHumidity(resp []byte) float32 {
	raw := binary.BigEndian.Uint16(resp) & 0x3FFF
	return min(float32(raw)/hihDivider*100, 100)
}

// hihTemperature converts the left aligned 14-bit temperature.
func hihTemperature(resp []byte) float32 {
	raw := binary.BigEndian.Uint16(resp) >> 2
	return float32(raw)/hihDivider*165 - 40
}
