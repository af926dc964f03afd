package scd4x

import (
	"fmt"
	"time"
)

// DefaultAddress is the only (7-bit) I2C address the SCD4x answers on. Adapters that
// expect 8-bit addressing shift it themselves.
const DefaultAddress byte = 0x62

// Command words (big endian on the wire).
const (
	opStartPeriodic                   uint16 = 0x21B1
	opReadMeasurement                 uint16 = 0xEC05
	opStopPeriodic                    uint16 = 0x3F86
	opSetTemperatureOffset            uint16 = 0x241D
	opGetTemperatureOffset            uint16 = 0x2318
	opSetSensorAltitude               uint16 = 0x2427
	opGetSensorAltitude               uint16 = 0x2322
	opAmbientPressure                 uint16 = 0xE000
	opPerformForcedRecalibration      uint16 = 0x362F
	opSetAutomaticSelfCalibration     uint16 = 0x2416
	opGetAutomaticSelfCalibration     uint16 = 0x2313
	opSetAutomaticSelfCalibrationTgt  uint16 = 0x243A
	opGetAutomaticSelfCalibrationTgt  uint16 = 0x233F
	opStartLowPowerPeriodic           uint16 = 0x21AC
	opGetDataReadyStatus              uint16 = 0xE4B8
	opPersistSettings                 uint16 = 0x3615
	opGetSerialNumber                 uint16 = 0x3682
	opPerformSelfTest                 uint16 = 0x3639
	opPerformFactoryReset             uint16 = 0x3632
	opReinit                          uint16 = 0x3646
	opGetSensorVariant                uint16 = 0x202F
	opMeasureSingleShot               uint16 = 0x219D
	opMeasureSingleShotRHTOnly        uint16 = 0x2196
	opPowerDown                       uint16 = 0x36E0
	opWakeUp                          uint16 = 0x36F6
	opSetAutomaticSelfCalibrationInit uint16 = 0x2445
	opGetAutomaticSelfCalibrationInit uint16 = 0x2340
	opSetAutomaticSelfCalibrationStd  uint16 = 0x244E
	opGetAutomaticSelfCalibrationStd  uint16 = 0x234B
)

// Time the sensor needs after each command before it accepts the next one.
// These are datasheet timing contracts, not tunables.
const (
	delayNone          = 0
	delayCommand       = 1 * time.Millisecond
	delayStop          = 500 * time.Millisecond
	delayForcedRecal   = 400 * time.Millisecond
	delayPersist       = 800 * time.Millisecond
	delaySelfTest      = 10 * time.Second
	delayFactoryReset  = 1200 * time.Millisecond
	delayReinit        = 30 * time.Millisecond
	delayWakeUp        = 30 * time.Millisecond
	delaySingleShot    = 5 * time.Second
	delaySingleShotRHT = 50 * time.Millisecond
	delayPowerDown     = 1 * time.Millisecond
)

// Low 12 bits of the data ready status word; all zero means no new measurement yet.
const dataReadyMask uint16 = 0x0FFF

type access int

const (
	accessWrite access = iota
	accessRead
	accessReadWrite
)

func (a access) String() string {
	switch a {
	case accessRead:
		return "read"
	case accessReadWrite:
		return "read-write"
	default:
		return "write"
	}
}

// stateMask is the set of session states a command may be issued from.
type stateMask uint8

const (
	inIdle stateMask = 1 << iota
	inPeriodic
	inLowPower

	inMeasuring = inPeriodic | inLowPower
	inAny       = inIdle | inMeasuring
)

func (m stateMask) allows(s State) bool {
	switch s {
	case StateIdle:
		return m&inIdle != 0
	case StatePeriodic:
		return m&inPeriodic != 0
	case StateLowPowerPeriodic:
		return m&inLowPower != 0
	default:
		return false
	}
}

type command struct {
	code       uint16
	name       string
	access     access
	delay      time.Duration
	replyWords int
	// params is the number of argument words the command takes.
	params int
	// scd41Only marks commands the SCD40 does not implement.
	scd41Only bool
	allowed   stateMask
}

func (c command) String() string {
	return fmt.Sprintf("%s (%#04x)", c.name, c.code)
}

var (
	cmdStartPeriodic = command{
		code: opStartPeriodic, name: "start periodic measurement",
		access: accessWrite, delay: delayNone, allowed: inIdle,
	}
	cmdStartLowPowerPeriodic = command{
		code: opStartLowPowerPeriodic, name: "start low power periodic measurement",
		access: accessWrite, delay: delayNone, allowed: inIdle,
	}
	cmdReadMeasurement = command{
		code: opReadMeasurement, name: "read measurement",
		access: accessRead, delay: delayCommand, replyWords: 3, allowed: inAny,
	}
	cmdStopPeriodic = command{
		code: opStopPeriodic, name: "stop periodic measurement",
		access: accessWrite, delay: delayStop, allowed: inMeasuring,
	}
	cmdGetDataReadyStatus = command{
		code: opGetDataReadyStatus, name: "get data ready status",
		access: accessRead, delay: delayCommand, replyWords: 1, allowed: inAny,
	}
	cmdSetTemperatureOffset = command{
		code: opSetTemperatureOffset, name: "set temperature offset",
		access: accessWrite, delay: delayCommand, params: 1, allowed: inIdle,
	}
	cmdGetTemperatureOffset = command{
		code: opGetTemperatureOffset, name: "get temperature offset",
		access: accessRead, delay: delayCommand, replyWords: 1, allowed: inIdle,
	}
	cmdSetSensorAltitude = command{
		code: opSetSensorAltitude, name: "set sensor altitude",
		access: accessWrite, delay: delayCommand, params: 1, allowed: inIdle,
	}
	cmdGetSensorAltitude = command{
		code: opGetSensorAltitude, name: "get sensor altitude",
		access: accessRead, delay: delayCommand, replyWords: 1, allowed: inIdle,
	}
	cmdSetAmbientPressure = command{
		code: opAmbientPressure, name: "set ambient pressure",
		access: accessWrite, delay: delayCommand, params: 1, allowed: inIdle,
	}
	cmdGetAmbientPressure = command{
		code: opAmbientPressure, name: "get ambient pressure",
		access: accessRead, delay: delayCommand, replyWords: 1, allowed: inIdle,
	}
	cmdPerformForcedRecalibration = command{
		code: opPerformForcedRecalibration, name: "perform forced recalibration",
		access: accessReadWrite, delay: delayForcedRecal, replyWords: 1, params: 1, allowed: inIdle,
	}
	cmdSetAutomaticSelfCalibration = command{
		code: opSetAutomaticSelfCalibration, name: "set automatic self calibration",
		access: accessWrite, delay: delayCommand, params: 1, allowed: inIdle,
	}
	cmdGetAutomaticSelfCalibration = command{
		code: opGetAutomaticSelfCalibration, name: "get automatic self calibration",
		access: accessRead, delay: delayCommand, replyWords: 1, allowed: inIdle,
	}
	cmdSetAutomaticSelfCalibrationTarget = command{
		code: opSetAutomaticSelfCalibrationTgt, name: "set automatic self calibration target",
		access: accessWrite, delay: delayCommand, params: 1, allowed: inIdle,
	}
	cmdGetAutomaticSelfCalibrationTarget = command{
		code: opGetAutomaticSelfCalibrationTgt, name: "get automatic self calibration target",
		access: accessRead, delay: delayCommand, replyWords: 1, allowed: inIdle,
	}
	cmdPersistSettings = command{
		code: opPersistSettings, name: "persist settings",
		access: accessWrite, delay: delayPersist, allowed: inIdle,
	}
	cmdGetSerialNumber = command{
		code: opGetSerialNumber, name: "get serial number",
		access: accessRead, delay: delayCommand, replyWords: 3, allowed: inIdle,
	}
	cmdPerformSelfTest = command{
		code: opPerformSelfTest, name: "perform self test",
		access: accessRead, delay: delaySelfTest, replyWords: 1, allowed: inIdle,
	}
	cmdPerformFactoryReset = command{
		code: opPerformFactoryReset, name: "perform factory reset",
		access: accessWrite, delay: delayFactoryReset, allowed: inIdle,
	}
	cmdReinit = command{
		code: opReinit, name: "reinit",
		access: accessWrite, delay: delayReinit, allowed: inIdle,
	}
	cmdGetSensorVariant = command{
		code: opGetSensorVariant, name: "get sensor variant",
		access: accessRead, delay: delayCommand, replyWords: 1, allowed: inIdle,
	}
	cmdMeasureSingleShot = command{
		code: opMeasureSingleShot, name: "measure single shot",
		access: accessWrite, delay: delaySingleShot, scd41Only: true, allowed: inIdle,
	}
	cmdMeasureSingleShotRHTOnly = command{
		code: opMeasureSingleShotRHTOnly, name: "measure single shot rht only",
		access: accessWrite, delay: delaySingleShotRHT, scd41Only: true, allowed: inIdle,
	}
	cmdPowerDown = command{
		code: opPowerDown, name: "power down",
		access: accessWrite, delay: delayPowerDown, scd41Only: true, allowed: inIdle,
	}
	cmdWakeUp = command{
		code: opWakeUp, name: "wake up",
		access: accessWrite, delay: delayWakeUp, scd41Only: true, allowed: inIdle,
	}
	cmdSetAutomaticSelfCalibrationInitialPeriod = command{
		code: opSetAutomaticSelfCalibrationInit, name: "set automatic self calibration initial period",
		access: accessWrite, delay: delayCommand, scd41Only: true, params: 1, allowed: inIdle,
	}
	cmdGetAutomaticSelfCalibrationInitialPeriod = command{
		code: opGetAutomaticSelfCalibrationInit, name: "get automatic self calibration initial period",
		access: accessRead, delay: delayCommand, replyWords: 1, scd41Only: true, allowed: inIdle,
	}
	cmdSetAutomaticSelfCalibrationStandardPeriod = command{
		code: opSetAutomaticSelfCalibrationStd, name: "set automatic self calibration standard period",
		access: accessWrite, delay: delayCommand, scd41Only: true, params: 1, allowed: inIdle,
	}
	cmdGetAutomaticSelfCalibrationStandardPeriod = command{
		code: opGetAutomaticSelfCalibrationStd, name: "get automatic self calibration standard period",
		access: accessRead, delay: delayCommand, replyWords: 1, scd41Only: true, allowed: inIdle,
	}
)

// commands lists every table entry; raw register access looks opcodes up here.
var commands = []command{
	cmdStartPeriodic, cmdStartLowPowerPeriodic, cmdReadMeasurement, cmdStopPeriodic,
	cmdGetDataReadyStatus, cmdSetTemperatureOffset, cmdGetTemperatureOffset,
	cmdSetSensorAltitude, cmdGetSensorAltitude, cmdSetAmbientPressure, cmdGetAmbientPressure,
	cmdPerformForcedRecalibration, cmdSetAutomaticSelfCalibration, cmdGetAutomaticSelfCalibration,
	cmdSetAutomaticSelfCalibrationTarget, cmdGetAutomaticSelfCalibrationTarget,
	cmdPersistSettings, cmdGetSerialNumber, cmdPerformSelfTest, cmdPerformFactoryReset,
	cmdReinit, cmdGetSensorVariant, cmdMeasureSingleShot, cmdMeasureSingleShotRHTOnly,
	cmdPowerDown, cmdWakeUp,
	cmdSetAutomaticSelfCalibrationInitialPeriod, cmdGetAutomaticSelfCalibrationInitialPeriod,
	cmdSetAutomaticSelfCalibrationStandardPeriod, cmdGetAutomaticSelfCalibrationStandardPeriod,
}

// lookupCommand finds the entry for code, preferring the one whose direction matches read
// (the ambient pressure opcode is both a setter and a getter).
func lookupCommand(code uint16, read bool) (command, bool) {
	var found command
	ok := false
	for _, c := range commands {
		if c.code != code {
			continue
		}
		if (c.replyWords > 0) == read {
			return c, true
		}
		found, ok = c, true
	}
	return found, ok
}

// movesState reports whether the command changes the measurement mode or power state the
// session tracks.
func (c command) movesState() bool {
	switch c.code {
	case opStartPeriodic, opStartLowPowerPeriodic, opStopPeriodic,
		opMeasureSingleShot, opMeasureSingleShotRHTOnly, opPowerDown, opWakeUp:
		return true
	}
	return false
}
