package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

const (
	colorBold    = 1
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorMagenta = 35
)

// consoleFormatLevel renders fixed width level names for the console writer,
// colored when stderr is a terminal.
func consoleFormatLevel(i interface{}) string {
	noColor := !isTerminal()

	l, ok := i.(string)
	if !ok {
		return fmt.Sprintf("%v", i)
	}

	switch l {
	case zerolog.LevelTraceValue:
		return colorize("TRACE", colorMagenta, noColor)
	case zerolog.LevelDebugValue:
		return colorize("DEBUG", colorYellow, noColor)
	case zerolog.LevelInfoValue:
		return colorize("INFO ", colorGreen, noColor)
	case zerolog.LevelWarnValue:
		return colorize("WARN ", colorRed, noColor)
	case zerolog.LevelErrorValue:
		return colorize(colorize("ERROR", colorRed, noColor), colorBold, noColor)
	case zerolog.LevelFatalValue:
		return colorize(colorize("FATAL", colorRed, noColor), colorBold, noColor)
	case zerolog.LevelPanicValue:
		return colorize(colorize("PANIC", colorRed, noColor), colorBold, noColor)
	}
	return colorize("?????", colorBold, noColor)
}

func colorize(s interface{}, color int, disabled bool) string {
	if disabled {
		return fmt.Sprintf("%s", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", color, s)
}
