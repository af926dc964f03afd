package console

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/mklimuk/co2sensors/scd4x"
)

func TestMatch(t *testing.T) {
	constraints := []string{No, Yes}
	assert.Equal(t, No, match("", constraints))
	assert.Equal(t, Yes, match(" Y ", constraints))
	assert.Equal(t, No, match("maybe", constraints))
}

func TestConfirm_AssumeYes(t *testing.T) {
	ok, err := Confirm("reset?", true)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestFail(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("scd4x: x: %w", scd4x.ErrInvalidArgument), ExitUsage},
		{fmt.Errorf("scd4x: x: %w", scd4x.ErrTransport), ExitTransport},
		{scd4x.ErrChecksumMismatch, ExitTransport},
		{scd4x.ErrSelfTest, ExitSensor},
		{scd4x.ErrDataNotReady, ExitError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, Fail("op", tt.err).ExitCode(), tt.err.Error())
	}
}

func TestOutput(t *testing.T) {
	color.NoColor = true
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	defer SetOutput(os.Stdout, os.Stderr)

	PInfof(PictoLeaf, "%s ppm", CO2(1200))
	Errorf("bad %d", 1)
	assert.Equal(t, PictoLeaf+" 1200 ppm\n", out.String())
	assert.Equal(t, "ERROR: bad 1\n", errOut.String())
}
