package environment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/co2sensors"
	"github.com/mklimuk/co2sensors/sensirion"
)

// scriptedBus answers every read with the next reply and records writes.
type scriptedBus struct {
	writes  [][]byte
	replies [][]byte
	readErr error
}

func (b *scriptedBus) bus() *co2sensors.BusFuncs {
	return &co2sensors.BusFuncs{
		OpenFunc:  func(ctx context.Context) error { return nil },
		CloseFunc: func() error { return nil },
		WriteFunc: func(ctx context.Context, address byte, buffer []byte) error {
			if address != SHTC3Address {
				return errors.New("wrong address")
			}
			b.writes = append(b.writes, append([]byte(nil), buffer...))
			return nil
		},
		ReadFunc: func(ctx context.Context, address byte, buffer []byte) error {
			if b.readErr != nil {
				return b.readErr
			}
			copy(buffer, b.replies[0])
			b.replies = b.replies[1:]
			return nil
		},
	}
}

func TestSHTC3_GetTempAndHum(t *testing.T) {
	b := &scriptedBus{replies: [][]byte{sensirion.EncodeWords(0x6666, 0x8000)}}
	var delays []time.Duration
	s := NewSHTC3(b.bus(), WithDelayer(co2sensors.DelayFunc(func(d time.Duration) { delays = append(delays, d) })))

	temp, hum, err := s.GetTempAndHum(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25.0, temp, 0.01)
	assert.InDelta(t, 50.0, hum, 0.01)
	assert.Equal(t, [][]byte{{0x35, 0x17}, {0x78, 0x66}, {0xB0, 0x98}}, b.writes)
	assert.Equal(t, []time.Duration{time.Millisecond, 15 * time.Millisecond}, delays)
}

func TestSHTC3_ChecksumMismatch(t *testing.T) {
	reply := sensirion.EncodeWords(0x6666, 0x8000)
	reply[5] ^= 0x10
	b := &scriptedBus{replies: [][]byte{reply}}
	s := NewSHTC3(b.bus(), WithDelayer(co2sensors.DelayFunc(func(time.Duration) {})))

	_, err := s.GetTemperature(context.Background())
	require.ErrorIs(t, err, sensirion.ErrChecksumMismatch)
	var ce *sensirion.ChecksumError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Word)
}

func TestSHTC3_ReadError(t *testing.T) {
	b := &scriptedBus{readErr: errors.New("nack")}
	s := NewSHTC3(b.bus(), WithDelayer(co2sensors.DelayFunc(func(time.Duration) {})))
	_, err := s.GetHumidity(context.Background())
	assert.ErrorContains(t, err, "shtc3: read failed: nack")
}

func TestSHTC3_GetID(t *testing.T) {
	b := &scriptedBus{replies: [][]byte{sensirion.EncodeWords(0x0887)}}
	s := NewSHTC3(b.bus(), WithDelayer(co2sensors.DelayFunc(func(time.Duration) {})))
	id, err := s.GetID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0887), id)
	assert.Equal(t, []byte{0xEF, 0xC8}, b.writes[1])
}

func TestFixedTemperature(t *testing.T) {
	var ref Thermometer = FixedTemperature(22.5)
	v, err := ref.GetTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(22.5), v)
}
