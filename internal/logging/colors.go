package logging

import (
	"github.com/fatih/color"
)

// Colours are dropped automatically when color.NoColor is set, which the color
// package does whenever stderr is not a terminal.
var (
	prefixColor = color.New(color.FgWhite)

	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgRed)
	infoColor  = color.New(color.Reset)
	debugColor = color.New(color.FgGreen)
	traceColor = color.New(color.FgYellow)
)

// DisableColor turns off colour output for all loggers, e.g. when logging to a
// file.
func DisableColor() {
	color.NoColor = true
}
