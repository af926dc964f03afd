package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gobot.io/x/gobot/v2/drivers/i2c"
)

type fakeAdaptor struct {
	connectErr  error
	connections []int
	connected   bool
	finalized   bool
}

func (a *fakeAdaptor) GetI2cConnection(address int, busNr int) (i2c.Connection, error) {
	a.connections = append(a.connections, address)
	return nil, errors.New("no such bus")
}

func (a *fakeAdaptor) DefaultI2cBus() int {
	return 0
}

func (a *fakeAdaptor) Connect() error {
	if a.connectErr != nil {
		return a.connectErr
	}
	a.connected = true
	return nil
}

func (a *fakeAdaptor) Finalize() error {
	a.finalized = true
	return nil
}

func TestGobotBus_NotOpen(t *testing.T) {
	b := NewGobotBus(&fakeAdaptor{}, 2)
	err := b.WriteToAddr(context.Background(), 0x62, []byte{0x21, 0xB1})
	assert.ErrorContains(t, err, "gobot i2c bus 2 is not open")
	assert.NoError(t, b.Close())
	assert.Equal(t, "gobot:i2c-2", b.String())
}

func TestGobotBus_ConnectError(t *testing.T) {
	b := NewGobotBus(&fakeAdaptor{connectErr: errors.New("no i2c")}, 0)
	err := b.Open(context.Background())
	assert.ErrorContains(t, err, "adaptor connect error: no i2c")
}

func TestGobotBus_StartError(t *testing.T) {
	a := &fakeAdaptor{}
	b := NewGobotBus(a, 1)
	ctx := context.Background()
	require.NoError(t, b.Open(ctx))
	assert.True(t, a.connected)

	err := b.ReadFromAddr(ctx, 0x62, make([]byte, 3))
	assert.ErrorContains(t, err, "start error at 0x62")

	require.NoError(t, b.Close())
	assert.True(t, a.finalized)
}
