// Package scd4x drives the Sensirion SCD4x family of CO2/temperature/humidity sensors
// (SCD40, SCD41) over I2C.
//
// A session is created empty, bound to a transport and a delay provider, moved through its
// measurement modes and finally unbound:
//
//	dev := scd4x.NewSCD4x(scd4x.WithLogger(slog.Default()))
//	if err := dev.Bind(ctx, scd4x.SCD41, bus, co2sensors.SleepDelay); err != nil {
//		return err
//	}
//	_ = dev.StartPeriodicMeasurement(ctx)
//	// poll every few seconds
//	r, err := dev.ReadMeasurement(ctx)
//	if errors.Is(err, scd4x.ErrDataNotReady) {
//		// try again later
//	}
//	_ = dev.StopMeasurement(ctx)
//	return dev.Unbind(ctx) // only legal when idle
//
// Every bus operation blocks for the delay the datasheet mandates after its command.
// Datasheet: https://sensirion.com/media/documents/48C4B7FB/66E05452/CD_DS_SCD4x_Datasheet_D1.pdf
package scd4x
