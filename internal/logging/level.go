package logging

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
	errors "golang.org/x/xerrors"
)

// Level of a message or logger. Higher values are more verbose.
type Level int

const (
	Error Level = iota - 2
	Warn
	Info
	Debug

	// Numeric trace levels run from Debug+1 up to MaxLevel.
	MaxLevel Level = 9
)

var levelNames = map[string]Level{
	"E": Error, "ERROR": Error,
	"W": Warn, "WARN": Warn,
	"I": Info, "INFO": Info,
	"D": Debug, "DEBUG": Debug,
	"T": MaxLevel, "TRACE": MaxLevel,
}

func parseLevel(s string) (Level, error) {
	if level, ok := levelNames[strings.ToUpper(s)]; ok {
		return level, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("unknown level %q", s)
	}
	if level := Level(n); level >= Error && level <= MaxLevel {
		return level, nil
	}
	return 0, errors.Errorf("level %d out of range", n)
}

func (l Level) String() string {
	switch l {
	case Error:
		return "Error"
	case Warn:
		return "Warn"
	case Info:
		return "Info"
	case Debug:
		return "Debug"
	}
	return strconv.Itoa(int(l))
}

// Single character shown in each log line.
func (l Level) letter() byte {
	if l <= Debug {
		return "EWID"[l-Error]
	}
	return byte('0' + l)
}

func (l Level) color() *color.Color {
	switch {
	case l == Error:
		return errorColor
	case l == Warn:
		return warnColor
	case l == Info:
		return infoColor
	case l == Debug:
		return debugColor
	}
	return traceColor
}
