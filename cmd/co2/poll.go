package main

import (
	"context"
	"errors"
	"time"

	"github.com/mklimuk/co2sensors/scd4x"
)

// waitForMeasurement polls ReadMeasurement until the sensor has data, at most attempts times.
func waitForMeasurement(ctx context.Context, d *scd4x.SCD4x, interval time.Duration, attempts int) (scd4x.Reading, error) {
	for i := 1; ; i++ {
		r, err := d.ReadMeasurement(ctx)
		if !errors.Is(err, scd4x.ErrDataNotReady) || i >= attempts {
			return r, err
		}
		select {
		case <-ctx.Done():
			return scd4x.Reading{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}
