package console

import "github.com/fatih/color"

// Available ANSI colors
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// CO2 colors a concentration the way indoor air guidelines grade it.
func CO2(ppm uint16) string {
	switch {
	case ppm == 0:
		return White(ppm)
	case ppm < 1000:
		return Green(ppm)
	case ppm < 1500:
		return Yellow(ppm)
	default:
		return Red(ppm)
	}
}
