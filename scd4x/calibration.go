package scd4x

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ASC periods are configured in hours and must be a multiple of this.
const ascPeriodStep = 4

func (d *SCD4x) SetTemperatureOffset(ctx context.Context, celsius float64) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	return d.setTemperatureOffset(ctx, celsius)
}

func (d *SCD4x) setTemperatureOffset(ctx context.Context, celsius float64) error {
	if err := d.guard(cmdSetTemperatureOffset); err != nil {
		return err
	}
	if err := checkTemperatureOffset(celsius); err != nil {
		return fmt.Errorf("scd4x: %s: %w", cmdSetTemperatureOffset.name, err)
	}
	_, err := d.transact(ctx, cmdSetTemperatureOffset, TemperatureOffsetToRegister(celsius))
	return err
}

func (d *SCD4x) GetTemperatureOffset(ctx context.Context) (float64, error) {
	reg, err := d.readWord(ctx, cmdGetTemperatureOffset)
	if err != nil {
		return 0, err
	}
	return TemperatureOffsetFromRegister(reg), nil
}

// SetSensorAltitude sets the altitude in meters above sea level used for pressure
// compensation. Fractions of a meter are truncated.
func (d *SCD4x) SetSensorAltitude(ctx context.Context, meters float64) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	return d.setSensorAltitude(ctx, meters)
}

func (d *SCD4x) setSensorAltitude(ctx context.Context, meters float64) error {
	if err := d.guard(cmdSetSensorAltitude); err != nil {
		return err
	}
	if err := checkWordRange("altitude", math.Trunc(meters)); err != nil {
		return fmt.Errorf("scd4x: %s: %w", cmdSetSensorAltitude.name, err)
	}
	_, err := d.transact(ctx, cmdSetSensorAltitude, AltitudeToRegister(meters))
	return err
}

func (d *SCD4x) GetSensorAltitude(ctx context.Context) (float64, error) {
	reg, err := d.readWord(ctx, cmdGetSensorAltitude)
	if err != nil {
		return 0, err
	}
	return AltitudeFromRegister(reg), nil
}

// SetAmbientPressure sets the ambient pressure in pascals. It overrides the altitude
// setting. The sensor stores hectopascals, the remainder is truncated.
func (d *SCD4x) SetAmbientPressure(ctx context.Context, pascal float64) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	return d.setAmbientPressure(ctx, pascal)
}

func (d *SCD4x) setAmbientPressure(ctx context.Context, pascal float64) error {
	if err := d.guard(cmdSetAmbientPressure); err != nil {
		return err
	}
	if err := checkWordRange("ambient pressure", math.Trunc(pascal/pressureFactor)); err != nil {
		return fmt.Errorf("scd4x: %s: %w", cmdSetAmbientPressure.name, err)
	}
	_, err := d.transact(ctx, cmdSetAmbientPressure, PressureToRegister(pascal))
	return err
}

func (d *SCD4x) GetAmbientPressure(ctx context.Context) (float64, error) {
	reg, err := d.readWord(ctx, cmdGetAmbientPressure)
	if err != nil {
		return 0, err
	}
	return PressureFromRegister(reg), nil
}

func (d *SCD4x) SetAutomaticSelfCalibration(ctx context.Context, enabled bool) error {
	var w uint16
	if enabled {
		w = 1
	}
	_, err := d.do(ctx, cmdSetAutomaticSelfCalibration, w)
	return err
}

func (d *SCD4x) GetAutomaticSelfCalibration(ctx context.Context) (bool, error) {
	w, err := d.readWord(ctx, cmdGetAutomaticSelfCalibration)
	if err != nil {
		return false, err
	}
	return w != 0, nil
}

// SetAutomaticSelfCalibrationTarget sets the baseline concentration (ppm) ASC corrects to.
func (d *SCD4x) SetAutomaticSelfCalibrationTarget(ctx context.Context, ppm uint16) error {
	_, err := d.do(ctx, cmdSetAutomaticSelfCalibrationTarget, ppm)
	return err
}

func (d *SCD4x) GetAutomaticSelfCalibrationTarget(ctx context.Context) (uint16, error) {
	return d.readWord(ctx, cmdGetAutomaticSelfCalibrationTarget)
}

// SetAutomaticSelfCalibrationInitialPeriod sets the hours before the first ASC correction.
// hours must be a multiple of 4. SCD41 only.
func (d *SCD4x) SetAutomaticSelfCalibrationInitialPeriod(ctx context.Context, hours uint16) error {
	return d.setPeriod(ctx, cmdSetAutomaticSelfCalibrationInitialPeriod, hours)
}

func (d *SCD4x) GetAutomaticSelfCalibrationInitialPeriod(ctx context.Context) (uint16, error) {
	return d.readWord(ctx, cmdGetAutomaticSelfCalibrationInitialPeriod)
}

// SetAutomaticSelfCalibrationStandardPeriod sets the hours between ASC corrections after
// the initial one. hours must be a multiple of 4. SCD41 only.
func (d *SCD4x) SetAutomaticSelfCalibrationStandardPeriod(ctx context.Context, hours uint16) error {
	return d.setPeriod(ctx, cmdSetAutomaticSelfCalibrationStandardPeriod, hours)
}

func (d *SCD4x) GetAutomaticSelfCalibrationStandardPeriod(ctx context.Context) (uint16, error) {
	return d.readWord(ctx, cmdGetAutomaticSelfCalibrationStandardPeriod)
}

func (d *SCD4x) setPeriod(ctx context.Context, cmd command, hours uint16) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	if err := d.guard(cmd); err != nil {
		return err
	}
	if err := checkPeriod(hours); err != nil {
		return fmt.Errorf("scd4x: %s: %w", cmd.name, err)
	}
	_, err := d.transact(ctx, cmd, hours)
	return err
}

// PerformForcedRecalibration corrects the sensor baseline to a reference concentration
// in ppm. The sensor must have measured in that atmosphere for at least 3 minutes before
// being stopped. The raw reply is returned; see FRCCorrection.
func (d *SCD4x) PerformForcedRecalibration(ctx context.Context, referencePPM uint16) (uint16, error) {
	words, err := d.do(ctx, cmdPerformForcedRecalibration, referencePPM)
	if err != nil {
		return 0, err
	}
	if words[0] == frcFailed {
		d.logger.Warn("forced recalibration failed", "reference", referencePPM)
	}
	return words[0], nil
}

// PersistSettings writes the current configuration to EEPROM.
func (d *SCD4x) PersistSettings(ctx context.Context) error {
	_, err := d.do(ctx, cmdPersistSettings)
	return err
}

// GetSerialNumber returns the 48-bit serial number.
func (d *SCD4x) GetSerialNumber(ctx context.Context) (uint64, error) {
	words, err := d.do(ctx, cmdGetSerialNumber)
	if err != nil {
		return 0, err
	}
	return uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2]), nil
}

// PerformSelfTest runs the on-chip self test, which takes 10 seconds. A detected
// malfunction is reported as ErrSelfTest.
func (d *SCD4x) PerformSelfTest(ctx context.Context) error {
	w, err := d.readWord(ctx, cmdPerformSelfTest)
	if err != nil {
		return err
	}
	if w != 0 {
		return fmt.Errorf("scd4x: %s: %w (%#04x)", cmdPerformSelfTest.name, ErrSelfTest, w)
	}
	return nil
}

// PerformFactoryReset erases the configuration and calibration history in EEPROM.
func (d *SCD4x) PerformFactoryReset(ctx context.Context) error {
	_, err := d.do(ctx, cmdPerformFactoryReset)
	return err
}

// Reinit reloads the settings stored in EEPROM.
func (d *SCD4x) Reinit(ctx context.Context) error {
	_, err := d.do(ctx, cmdReinit)
	return err
}

// GetSensorVariant asks the chip which model it is.
func (d *SCD4x) GetSensorVariant(ctx context.Context) (Variant, error) {
	w, err := d.readWord(ctx, cmdGetSensorVariant)
	if err != nil {
		return 0, err
	}
	switch w >> 12 {
	case 0:
		return SCD40, nil
	case 1:
		return SCD41, nil
	}
	return 0, fmt.Errorf("scd4x: %s: %w (%#04x)", cmdGetSensorVariant.name, ErrUnknownVariant, w)
}

// SetRegister sends an arbitrary command word with at most one argument word and waits
// delay. Opcodes the driver knows keep their variant and mode restrictions, their argument
// count and at least their datasheet delay. Opcodes that change the measurement or power
// state are refused with ErrInvalidState; use the dedicated methods for them.
func (d *SCD4x) SetRegister(ctx context.Context, code uint16, delay time.Duration, value ...uint16) error {
	_, err := d.raw(ctx, code, delay, 0, value)
	return err
}

// GetRegister reads one word from an arbitrary command word after waiting delay, with the
// same restrictions as SetRegister.
func (d *SCD4x) GetRegister(ctx context.Context, code uint16, delay time.Duration) (uint16, error) {
	words, err := d.raw(ctx, code, delay, 1, nil)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

func (d *SCD4x) raw(ctx context.Context, code uint16, delay time.Duration, replyWords int, params []uint16) ([]uint16, error) {
	if err := d.lock(); err != nil {
		return nil, err
	}
	defer d.mx.Unlock()
	cmd, err := rawCommand(code, delay, replyWords, len(params))
	if gerr := d.guard(cmd); gerr != nil {
		return nil, gerr
	}
	if err != nil {
		return nil, err
	}
	return d.transact(ctx, cmd, params...)
}

// rawCommand builds the command for a raw access. The returned command is always usable
// by guard; err reports why the access itself is not allowed.
func rawCommand(code uint16, delay time.Duration, replyWords, params int) (command, error) {
	known, ok := lookupCommand(code, replyWords > 0)
	if !ok {
		a := accessWrite
		if replyWords > 0 {
			a = accessRead
		}
		cmd := command{
			code:       code,
			name:       fmt.Sprintf("raw command %#04x", code),
			access:     a,
			delay:      delay,
			replyWords: replyWords,
			params:     params,
			allowed:    inIdle,
		}
		if params > 1 {
			return cmd, fmt.Errorf("scd4x: %s: %w: at most one argument word", cmd.name, ErrInvalidArgument)
		}
		return cmd, nil
	}
	switch {
	case known.movesState():
		return known, fmt.Errorf("scd4x: %s: %w: state changing commands have dedicated methods", known.name, ErrInvalidState)
	case known.replyWords != replyWords:
		return known, fmt.Errorf("scd4x: %s: %w: replies %d words", known.name, ErrInvalidArgument, known.replyWords)
	case known.params != params:
		return known, fmt.Errorf("scd4x: %s: %w: takes %d argument words", known.name, ErrInvalidArgument, known.params)
	}
	known.delay = max(known.delay, delay)
	return known, nil
}

// Settings is the persistable configuration of a sensor. Nil fields are left untouched by
// ApplySettings and are not read by ReadSettings on variants that lack them.
type Settings struct {
	TemperatureOffset        *float64 `yaml:"temperature_offset_c,omitempty"`
	SensorAltitude           *float64 `yaml:"altitude_m,omitempty"`
	AmbientPressure          *float64 `yaml:"ambient_pressure_pa,omitempty"`
	AutomaticSelfCalibration *bool    `yaml:"asc_enabled,omitempty"`
	ASCTarget                *uint16  `yaml:"asc_target_ppm,omitempty"`
	ASCInitialPeriod         *uint16  `yaml:"asc_initial_period_h,omitempty"`
	ASCStandardPeriod        *uint16  `yaml:"asc_standard_period_h,omitempty"`
}

// ReadSettings reads every configuration value the bound variant supports.
func (d *SCD4x) ReadSettings(ctx context.Context) (*Settings, error) {
	if err := d.lock(); err != nil {
		return nil, err
	}
	defer d.mx.Unlock()
	var s Settings
	reads := []struct {
		cmd  command
		save func(uint16)
	}{
		{cmdGetTemperatureOffset, func(w uint16) { s.TemperatureOffset = ptr(TemperatureOffsetFromRegister(w)) }},
		{cmdGetSensorAltitude, func(w uint16) { s.SensorAltitude = ptr(AltitudeFromRegister(w)) }},
		{cmdGetAmbientPressure, func(w uint16) { s.AmbientPressure = ptr(PressureFromRegister(w)) }},
		{cmdGetAutomaticSelfCalibration, func(w uint16) { s.AutomaticSelfCalibration = ptr(w != 0) }},
		{cmdGetAutomaticSelfCalibrationTarget, func(w uint16) { s.ASCTarget = ptr(w) }},
		{cmdGetAutomaticSelfCalibrationInitialPeriod, func(w uint16) { s.ASCInitialPeriod = ptr(w) }},
		{cmdGetAutomaticSelfCalibrationStandardPeriod, func(w uint16) { s.ASCStandardPeriod = ptr(w) }},
	}
	for _, r := range reads {
		if r.cmd.scd41Only && d.variant != SCD41 {
			continue
		}
		words, err := d.transact(ctx, r.cmd)
		if err != nil {
			return nil, err
		}
		r.save(words[0])
	}
	return &s, nil
}

// ApplySettings writes every non-nil field. All values are validated before the first
// write, so an invalid profile leaves the sensor untouched.
func (d *SCD4x) ApplySettings(ctx context.Context, s *Settings) error {
	if err := d.lock(); err != nil {
		return err
	}
	defer d.mx.Unlock()
	if err := d.guard(cmdSetTemperatureOffset); err != nil {
		return err
	}
	if err := d.validateSettings(s); err != nil {
		return err
	}
	if s.TemperatureOffset != nil {
		if err := d.setTemperatureOffset(ctx, *s.TemperatureOffset); err != nil {
			return err
		}
	}
	if s.SensorAltitude != nil {
		if err := d.setSensorAltitude(ctx, *s.SensorAltitude); err != nil {
			return err
		}
	}
	if s.AmbientPressure != nil {
		if err := d.setAmbientPressure(ctx, *s.AmbientPressure); err != nil {
			return err
		}
	}
	words := []struct {
		cmd   command
		value *uint16
	}{
		{cmdSetAutomaticSelfCalibrationTarget, s.ASCTarget},
		{cmdSetAutomaticSelfCalibrationInitialPeriod, s.ASCInitialPeriod},
		{cmdSetAutomaticSelfCalibrationStandardPeriod, s.ASCStandardPeriod},
	}
	if s.AutomaticSelfCalibration != nil {
		var w uint16
		if *s.AutomaticSelfCalibration {
			w = 1
		}
		if _, err := d.transact(ctx, cmdSetAutomaticSelfCalibration, w); err != nil {
			return err
		}
	}
	for _, w := range words {
		if w.value == nil {
			continue
		}
		if _, err := d.transact(ctx, w.cmd, *w.value); err != nil {
			return err
		}
	}
	return nil
}

func (d *SCD4x) validateSettings(s *Settings) error {
	if s == nil {
		return fmt.Errorf("scd4x: apply settings: %w: nil settings", ErrInvalidArgument)
	}
	if (s.ASCInitialPeriod != nil || s.ASCStandardPeriod != nil) && d.variant != SCD41 {
		return fmt.Errorf("scd4x: apply settings: %w: asc periods on %s", ErrUnsupportedOnVariant, d.variant)
	}
	var checks []error
	if s.TemperatureOffset != nil {
		checks = append(checks, checkTemperatureOffset(*s.TemperatureOffset))
	}
	if s.SensorAltitude != nil {
		checks = append(checks, checkWordRange("altitude", math.Trunc(*s.SensorAltitude)))
	}
	if s.AmbientPressure != nil {
		checks = append(checks, checkWordRange("ambient pressure", math.Trunc(*s.AmbientPressure/pressureFactor)))
	}
	if s.ASCInitialPeriod != nil {
		checks = append(checks, checkPeriod(*s.ASCInitialPeriod))
	}
	if s.ASCStandardPeriod != nil {
		checks = append(checks, checkPeriod(*s.ASCStandardPeriod))
	}
	if err := errors.Join(checks...); err != nil {
		return fmt.Errorf("scd4x: apply settings: %w", err)
	}
	return nil
}

func checkTemperatureOffset(celsius float64) error {
	return checkWordRange("temperature offset", math.Round(celsius*ticks/tempSpan))
}

// checkWordRange rejects values a register cannot hold instead of letting the converter clamp them.
func checkWordRange(what string, reg float64) error {
	if math.IsNaN(reg) || reg < 0 || reg > math.MaxUint16 {
		return fmt.Errorf("%w: %s out of range", ErrInvalidArgument, what)
	}
	return nil
}

func checkPeriod(hours uint16) error {
	if hours%ascPeriodStep != 0 {
		return fmt.Errorf("%w: period of %d h is not a multiple of %d h", ErrInvalidArgument, hours, ascPeriodStep)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
