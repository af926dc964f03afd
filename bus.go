package co2sensors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// ErrMissingPrimitive is returned by BusFuncs.Validate when one of the bus functions is not set.
var ErrMissingPrimitive = errors.New("bus primitive not supplied")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// Transport is an I2CBus with an explicit lifecycle. Drivers that own their bus for a whole
// session (open on bind, close on teardown) depend on this rather than on I2CBus.
type Transport interface {
	I2CBus
	Open(ctx context.Context) error
	Close() error
}

// Delayer blocks the caller for the given duration. Mandated protocol delays go through it
// so they can be observed in tests without sleeping.
type Delayer interface {
	Delay(d time.Duration)
}

// DelayFunc adapts a plain function to the Delayer interface.
type DelayFunc func(d time.Duration)

func (f DelayFunc) Delay(d time.Duration) {
	f(d)
}

// SleepDelay is the wall-clock Delayer.
var SleepDelay Delayer = DelayFunc(time.Sleep)

// BusFuncs builds a Transport out of individual functions, for hosts that expose their
// bus as loose primitives rather than as a type.
//
//	t := &BusFuncs{
//		OpenFunc:  func(ctx context.Context) error { return nil },
//		CloseFunc: func() error { return nil },
//		WriteFunc: dev.Write,
//		ReadFunc:  dev.Read,
//	}
type BusFuncs struct {
	OpenFunc    func(ctx context.Context) error
	CloseFunc   func() error
	WriteFunc   func(ctx context.Context, address byte, buffer []byte) error
	ReadFunc    func(ctx context.Context, address byte, buffer []byte) error
	ReleaseFunc func(ctx context.Context) error
}

var _ Transport = &BusFuncs{}

// Validate reports every required primitive that is nil. ReleaseFunc is optional.
func (b *BusFuncs) Validate() error {
	var missing []string
	if b.OpenFunc == nil {
		missing = append(missing, "open")
	}
	if b.CloseFunc == nil {
		missing = append(missing, "close")
	}
	if b.WriteFunc == nil {
		missing = append(missing, "write")
	}
	if b.ReadFunc == nil {
		missing = append(missing, "read")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingPrimitive, strings.Join(missing, ", "))
	}
	return nil
}

func (b *BusFuncs) Open(ctx context.Context) error {
	return b.OpenFunc(ctx)
}

func (b *BusFuncs) Close() error {
	return b.CloseFunc()
}

func (b *BusFuncs) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	return b.WriteFunc(ctx, address, buffer)
}

func (b *BusFuncs) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	return b.ReadFunc(ctx, address, buffer)
}

func (b *BusFuncs) Release(ctx context.Context) error {
	if b.ReleaseFunc == nil {
		return nil
	}
	return b.ReleaseFunc(ctx)
}
