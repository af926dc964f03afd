package scd4x

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/co2sensors"
	"github.com/mklimuk/co2sensors/sensirion"
)

// MeasurementBehaviorFunc produces the raw words of the n-th simulated measurement (n starts at 0).
type MeasurementBehaviorFunc func(n int) (co2, temperature, humidity uint16)

// ConstantMeasurement always returns the same raw words.
func ConstantMeasurement(co2, temperature, humidity uint16) MeasurementBehaviorFunc {
	return func(int) (uint16, uint16, uint16) {
		return co2, temperature, humidity
	}
}

// indoorAir drifts CO2 between 600 and 800 ppm at about 22 °C and 45 %RH.
func indoorAir(n int) (uint16, uint16, uint16) {
	return uint16(600 + (n*17)%200), 25090, 29491
}

var ErrSimulatorClosed = errors.New("simulator is not open")

// Simulator is an in-memory SCD4x on an I2C bus. It decodes written frames, keeps the
// configuration registers, answers reads with checksummed words and records every frame
// written to it. Exported fields configure it and must be set before the first Open.
type Simulator struct {
	Address byte
	Variant Variant
	Serial  uint64
	// Behavior generates measurements; defaults to indoor air.
	Behavior MeasurementBehaviorFunc
	// NotReadyPolls is how many data ready polls report no data after each read measurement.
	NotReadyPolls int
	// SelfTestResult is the word returned by the self test; non-zero means malfunction.
	SelfTestResult uint16
	// FRC computes the forced recalibration reply from the reference. Defaults to a zero correction.
	FRC func(reference uint16) uint16
	// WriteErr and ReadErr, when set, are returned by every write or read.
	WriteErr error
	ReadErr  error

	mx        sync.Mutex
	open      bool
	measuring bool
	asleep    bool
	available bool
	polls     int
	count     int
	registers map[uint16]uint16
	pending   []uint16
	frames    [][]byte
}

var _ co2sensors.Transport = &Simulator{}

// NewSimulator returns an SCD41 simulator with a fixed serial number.
func NewSimulator() *Simulator {
	return &Simulator{
		Address: DefaultAddress,
		Variant: SCD41,
		Serial:  0xBEEF_0001_A4C3,
	}
}

func defaultRegisters() map[uint16]uint16 {
	return map[uint16]uint16{
		opGetTemperatureOffset:            TemperatureOffsetToRegister(4),
		opGetSensorAltitude:               0,
		opAmbientPressure:                 PressureToRegister(101300),
		opGetAutomaticSelfCalibration:     1,
		opGetAutomaticSelfCalibrationTgt:  400,
		opGetAutomaticSelfCalibrationInit: 44,
		opGetAutomaticSelfCalibrationStd:  156,
	}
}

// setters maps each configuration write to the register its getter reads.
var setters = map[uint16]uint16{
	opSetTemperatureOffset:            opGetTemperatureOffset,
	opSetSensorAltitude:               opGetSensorAltitude,
	opAmbientPressure:                 opAmbientPressure,
	opSetAutomaticSelfCalibration:     opGetAutomaticSelfCalibration,
	opSetAutomaticSelfCalibrationTgt:  opGetAutomaticSelfCalibrationTgt,
	opSetAutomaticSelfCalibrationInit: opGetAutomaticSelfCalibrationInit,
	opSetAutomaticSelfCalibrationStd:  opGetAutomaticSelfCalibrationStd,
}

func (s *Simulator) Open(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.registers == nil {
		s.registers = defaultRegisters()
	}
	if s.Behavior == nil {
		s.Behavior = indoorAir
	}
	s.open = true
	return nil
}

func (s *Simulator) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.open = false
	s.pending = nil
	return nil
}

func (s *Simulator) Release(ctx context.Context) error {
	return nil
}

// Frames returns a copy of every frame written so far.
func (s *Simulator) Frames() [][]byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	out := make([][]byte, len(s.frames))
	for i, f := range s.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Measuring reports whether the simulated sensor runs a periodic measurement.
func (s *Simulator) Measuring() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.measuring
}

func (s *Simulator) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.open {
		return ErrSimulatorClosed
	}
	if address != s.Address {
		return fmt.Errorf("sim: no device at %#02x", address)
	}
	s.frames = append(s.frames, append([]byte(nil), buffer...))
	if s.WriteErr != nil {
		return s.WriteErr
	}
	cmd, params, err := sensirion.DecodeWrite(buffer)
	if err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	if s.asleep && cmd != opWakeUp {
		return fmt.Errorf("sim: %#04x: sensor asleep", cmd)
	}
	return s.execute(cmd, params)
}

func (s *Simulator) execute(cmd uint16, params []uint16) error {
	s.pending = nil
	if reg, ok := setters[cmd]; ok && len(params) == 1 {
		s.registers[reg] = params[0]
		return nil
	}
	switch cmd {
	case opStartPeriodic, opStartLowPowerPeriodic:
		s.measuring = true
		s.available = false
		s.polls = 0
	case opStopPeriodic:
		s.measuring = false
	case opGetDataReadyStatus:
		s.pending = []uint16{s.dataReady()}
	case opReadMeasurement:
		co2, t, h := s.Behavior(s.count)
		s.count++
		s.available = false
		s.polls = 0
		s.pending = []uint16{co2, t, h}
	case opMeasureSingleShot, opMeasureSingleShotRHTOnly:
		s.available = true
	case opPerformForcedRecalibration:
		if len(params) != 1 {
			return fmt.Errorf("sim: forced recalibration without reference")
		}
		if s.FRC != nil {
			s.pending = []uint16{s.FRC(params[0])}
		} else {
			s.pending = []uint16{frcZero}
		}
	case opGetSerialNumber:
		s.pending = []uint16{uint16(s.Serial >> 32), uint16(s.Serial >> 16), uint16(s.Serial)}
	case opPerformSelfTest:
		s.pending = []uint16{s.SelfTestResult}
	case opGetSensorVariant:
		s.pending = []uint16{uint16(s.Variant) << 12}
	case opPerformFactoryReset:
		s.registers = defaultRegisters()
	case opPersistSettings, opReinit:
	case opPowerDown:
		s.asleep = true
	case opWakeUp:
		s.asleep = false
	default:
		if v, ok := s.registers[cmd]; ok && len(params) == 0 {
			s.pending = []uint16{v}
			return nil
		}
		return fmt.Errorf("sim: unsupported command %#04x", cmd)
	}
	return nil
}

// dataReady answers NotReadyPolls polls with zero and then flags new data while measuring.
func (s *Simulator) dataReady() uint16 {
	if s.available {
		return 0x8006
	}
	if !s.measuring {
		return 0x8000
	}
	if s.polls < s.NotReadyPolls {
		s.polls++
		return 0x8000
	}
	s.available = true
	return 0x8006
}

func (s *Simulator) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.open {
		return ErrSimulatorClosed
	}
	if address != s.Address {
		return fmt.Errorf("sim: no device at %#02x", address)
	}
	if s.ReadErr != nil {
		return s.ReadErr
	}
	if s.pending == nil {
		return fmt.Errorf("sim: read without a pending reply")
	}
	reply := sensirion.EncodeWords(s.pending...)
	if len(buffer) != len(reply) {
		return fmt.Errorf("sim: read of %d bytes, reply is %d", len(buffer), len(reply))
	}
	copy(buffer, reply)
	s.pending = nil
	return nil
}
