package scd4x

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/co2sensors"
)

// MockTransport is a co2sensors.Transport built on testify/mock. Reads are matched on the
// requested length and answered with the []byte given to Return.
type MockTransport struct {
	mock.Mock
}

var _ co2sensors.Transport = &MockTransport{}

func (m *MockTransport) Open(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTransport) Close() error {
	return m.Called().Error(0)
}

func (m *MockTransport) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	return m.Called(ctx, address, buffer).Error(0)
}

func (m *MockTransport) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, len(buffer))
	if data, ok := args.Get(0).([]byte); ok {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockTransport) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTransport) assertNoTraffic(t *testing.T) {
	t.Helper()
	m.AssertNotCalled(t, "WriteToAddr", mock.Anything, mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "ReadFromAddr", mock.Anything, mock.Anything, mock.Anything)
}

// recordingDelayer records requested delays instead of sleeping.
type recordingDelayer struct {
	mx     sync.Mutex
	delays []time.Duration
}

func (r *recordingDelayer) Delay(d time.Duration) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.delays = append(r.delays, d)
}

func (r *recordingDelayer) Delays() []time.Duration {
	r.mx.Lock()
	defer r.mx.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func (r *recordingDelayer) Last() time.Duration {
	r.mx.Lock()
	defer r.mx.Unlock()
	if len(r.delays) == 0 {
		return -1
	}
	return r.delays[len(r.delays)-1]
}

func newMockSession(t *testing.T, variant Variant) (*SCD4x, *MockTransport, *recordingDelayer) {
	t.Helper()
	m := &MockTransport{}
	m.On("Open", mock.Anything).Return(nil)
	delay := &recordingDelayer{}
	d := NewSCD4x()
	require.NoError(t, d.Bind(context.Background(), variant, m, delay))
	return d, m, delay
}

func newSimSession(t *testing.T, sim *Simulator) (*SCD4x, *recordingDelayer) {
	t.Helper()
	delay := &recordingDelayer{}
	d := NewSCD4x()
	require.NoError(t, d.Bind(context.Background(), sim.Variant, sim, delay))
	return d, delay
}
