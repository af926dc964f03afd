package scd4x

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mklimuk/co2sensors"
	"github.com/mklimuk/co2sensors/sensirion"
)

// Variant is the chip model a session is bound as. The SCD41 is a superset of the SCD40:
// it adds single shot measurements, power management and the ASC period settings.
type Variant uint8

const (
	SCD40 Variant = iota
	SCD41
)

func (v Variant) String() string {
	switch v {
	case SCD40:
		return "SCD40"
	case SCD41:
		return "SCD41"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// ParseVariant accepts "scd40" or "scd41" in any case.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scd40":
		return SCD40, nil
	case "scd41":
		return SCD41, nil
	}
	return 0, fmt.Errorf("%w: unknown sensor variant %q", ErrInvalidArgument, s)
}

// State is the session's position in the measurement lifecycle.
type State uint8

const (
	StateUnbound State = iota
	// StateIdle is a bound session that is not measuring. Configuration is only legal here.
	StateIdle
	StatePeriodic
	StateLowPowerPeriodic
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateIdle:
		return "idle"
	case StatePeriodic:
		return "periodic measurement"
	case StateLowPowerPeriodic:
		return "low power periodic measurement"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Measuring reports whether the sensor runs one of the periodic modes.
func (s State) Measuring() bool {
	return s == StatePeriodic || s == StateLowPowerPeriodic
}

type SCD4xOpts struct {
	Address byte
	Logger  *slog.Logger
}

type SCD4xOpt func(*SCD4xOpts)

// WithAddress overrides the 7-bit bus address.
func WithAddress(addr byte) SCD4xOpt {
	return func(o *SCD4xOpts) {
		o.Address = addr
	}
}

func WithLogger(logger *slog.Logger) SCD4xOpt {
	return func(o *SCD4xOpts) {
		o.Logger = logger
	}
}

// SCD4x is a session with one SCD40/SCD41 sensor.
//
// All methods are safe for concurrent use; they are serialized so that at most one bus
// transaction, including its mandated delay, is outstanding at any time. Calls block for
// the full delay of their command (up to 10 s for the self test).
type SCD4x struct {
	mx sync.Mutex

	addr   byte
	logger *slog.Logger

	transport co2sensors.Transport
	delay     co2sensors.Delayer
	variant   Variant
	state     State
	// set by a single shot command, cleared by the read that consumes its result
	singleShotPending bool
}

func NewSCD4x(opts ...SCD4xOpt) *SCD4x {
	config := SCD4xOpts{
		Address: DefaultAddress,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &SCD4x{
		addr:   config.Address,
		logger: config.Logger.With("device", "scd4x", "addr", fmt.Sprintf("%#02x", config.Address)),
	}
}

// validator is implemented by transports that can report missing primitives (BusFuncs).
type validator interface {
	Validate() error
}

// Bind attaches the session to its transport and delay provider and opens the bus.
// The session stays unbound when the collaborators are incomplete or the bus fails to open.
func (d *SCD4x) Bind(ctx context.Context, variant Variant, transport co2sensors.Transport, delay co2sensors.Delayer) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	if d.state != StateUnbound {
		return fmt.Errorf("scd4x: bind: %w: session is %s", ErrInvalidState, d.state)
	}
	if variant != SCD40 && variant != SCD41 {
		return fmt.Errorf("scd4x: bind: %w: %s", ErrInvalidArgument, variant)
	}
	if transport == nil || delay == nil {
		return fmt.Errorf("scd4x: bind: %w: transport and delay provider are required", ErrConfiguration)
	}
	if v, ok := transport.(validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("scd4x: bind: %w: %w", ErrConfiguration, err)
		}
	}
	if err := transport.Open(ctx); err != nil {
		d.logger.Error("bus open failed", "error", err)
		return fmt.Errorf("scd4x: bind: %w: %w", ErrTransport, err)
	}
	d.transport = transport
	d.delay = delay
	d.variant = variant
	d.state = StateIdle
	d.singleShotPending = false
	d.logger.Debug("session bound", "variant", variant)
	return nil
}

// Unbind stops the sensor and closes the transport. It is only legal while idle; a
// measuring sensor must be stopped first. The session ends up unbound even when the stop
// command or closing the bus fails, in which case the failures are returned together.
func (d *SCD4x) Unbind(ctx context.Context) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	if d.state == StateUnbound {
		return fmt.Errorf("scd4x: unbind: %w", ErrNotInitialized)
	}
	if d.state != StateIdle {
		return fmt.Errorf("scd4x: unbind: %w: stop the %s first", ErrInvalidState, d.state)
	}
	var errs []error
	if err := d.write(ctx, cmdStopPeriodic); err != nil {
		errs = append(errs, err)
	}
	if err := d.transport.Close(); err != nil {
		d.logger.Error("bus close failed", "error", err)
		errs = append(errs, fmt.Errorf("scd4x: unbind: %w: %w", ErrTransport, err))
	}
	d.transport = nil
	d.delay = nil
	d.state = StateUnbound
	d.singleShotPending = false
	d.logger.Debug("session unbound")
	return errors.Join(errs...)
}

// State returns the current lifecycle state. A nil session is always unbound.
func (d *SCD4x) State() State {
	if d == nil {
		return StateUnbound
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.state
}

// Variant returns the chip variant the session was bound as.
func (d *SCD4x) Variant() Variant {
	if d == nil {
		return SCD40
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.variant
}

func (d *SCD4x) String() string {
	return fmt.Sprintf("%s{addr: %#02x, state: %s}", d.Variant(), d.addr, d.State())
}

// lock takes the session mutex; callers must unlock on success.
func (d *SCD4x) lock() error {
	if d == nil {
		return ErrNilSession
	}
	d.mx.Lock()
	return nil
}

// guard rejects cmd before any bus traffic when the session cannot issue it.
func (d *SCD4x) guard(cmd command) error {
	if d.state == StateUnbound {
		return fmt.Errorf("scd4x: %s: %w", cmd.name, ErrNotInitialized)
	}
	if cmd.scd41Only && d.variant != SCD41 {
		return fmt.Errorf("scd4x: %s: %w: %s", cmd.name, ErrUnsupportedOnVariant, d.variant)
	}
	if !cmd.allowed.allows(d.state) {
		return fmt.Errorf("scd4x: %s: %w: session is in %s", cmd.name, ErrInvalidState, d.state)
	}
	return nil
}

// transact runs the whole transaction for cmd: guard, write, mandated delay and, for
// commands with a reply, read and decode. Callers hold the lock.
func (d *SCD4x) transact(ctx context.Context, cmd command, params ...uint16) ([]uint16, error) {
	if err := d.guard(cmd); err != nil {
		return nil, err
	}
	if err := d.write(ctx, cmd, params...); err != nil {
		return nil, err
	}
	d.delay.Delay(cmd.delay)
	if cmd.replyWords == 0 {
		return nil, nil
	}
	return d.read(ctx, cmd)
}

func (d *SCD4x) write(ctx context.Context, cmd command, params ...uint16) error {
	frame := sensirion.EncodeWrite(cmd.code, params...)
	d.logger.Debug("write", "command", cmd.name, "frame", fmt.Sprintf("% x", frame))
	if err := d.transport.WriteToAddr(ctx, d.addr, frame); err != nil {
		d.logger.Error("write failed", "command", cmd.name, "error", err)
		return fmt.Errorf("scd4x: %s: %w: %w", cmd.name, ErrTransport, err)
	}
	return nil
}

func (d *SCD4x) read(ctx context.Context, cmd command) ([]uint16, error) {
	raw := make([]byte, cmd.replyWords*sensirion.WordSize)
	if err := d.transport.ReadFromAddr(ctx, d.addr, raw); err != nil {
		d.logger.Error("read failed", "command", cmd.name, "error", err)
		return nil, fmt.Errorf("scd4x: %s: %w: %w", cmd.name, ErrTransport, err)
	}
	d.logger.Debug("read", "command", cmd.name, "frame", fmt.Sprintf("% x", raw))
	words, err := sensirion.DecodeWords(raw, cmd.replyWords)
	if err != nil {
		d.logger.Error("invalid reply", "command", cmd.name, "error", err)
		return nil, fmt.Errorf("scd4x: %s: %w", cmd.name, err)
	}
	return words, nil
}

// do is the common body of every public command: lock, transact, unlock.
func (d *SCD4x) do(ctx context.Context, cmd command, params ...uint16) ([]uint16, error) {
	if err := d.lock(); err != nil {
		return nil, err
	}
	defer d.mx.Unlock()
	return d.transact(ctx, cmd, params...)
}

// readWord runs a single word read command.
func (d *SCD4x) readWord(ctx context.Context, cmd command) (uint16, error) {
	words, err := d.do(ctx, cmd)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}
