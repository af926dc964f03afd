package console

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/co2sensors/scd4x"
)

// Exit codes returned by the co2 command.
const (
	ExitError     = 1
	ExitUsage     = 2
	ExitTransport = 3
	ExitSensor    = 4
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

// Fail maps a driver error to an exit code.
func Fail(what string, err error) cli.ExitCoder {
	code := ExitError
	switch {
	case errors.Is(err, scd4x.ErrInvalidArgument), errors.Is(err, scd4x.ErrUnsupportedOnVariant),
		errors.Is(err, scd4x.ErrConfiguration):
		code = ExitUsage
	case errors.Is(err, scd4x.ErrTransport), errors.Is(err, scd4x.ErrChecksumMismatch):
		code = ExitTransport
	case errors.Is(err, scd4x.ErrSelfTest), errors.Is(err, scd4x.ErrUnknownVariant):
		code = ExitSensor
	}
	return Exit(code, "%s: %s", what, Red(err))
}
